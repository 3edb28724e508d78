package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/digiexchris/HeatTreatFurnace/internal/logger"
	"github.com/digiexchris/HeatTreatFurnace/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// State stream and command channel on the same port.
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerFurnaceRoutes(api)
		h.registerLogRoutes(api)
		h.registerProgramRoutes(api)
	}
}

func (h *Handler) registerFurnaceRoutes(api *gin.RouterGroup) {
	furnace := api.Group("/furnace")
	{
		// Body: {"program":"anneal"} or {"profile":{...}}
		furnace.POST("/load", h.loadProgram)
		// Optional body: {"segment":1,"offset":"5m"}
		furnace.POST("/start", h.startProgram)
		furnace.POST("/pause", h.simpleCommand(cmdPause))
		furnace.POST("/resume", h.simpleCommand(cmdResume))
		furnace.POST("/cancel", h.simpleCommand(cmdCancel))
		furnace.POST("/clear", h.simpleCommand(cmdClear))
		furnace.POST("/reset", h.simpleCommand(cmdReset))
		furnace.POST("/estop", h.emergencyStop)
		// Body: {"target_c":850}
		furnace.POST("/manual", h.setManualTemp)
		// Body: {"segment":2,"offset":"10m"}
		furnace.POST("/segment", h.setNextSegment)
		furnace.GET("/state", h.getState)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}

func (h *Handler) registerProgramRoutes(api *gin.RouterGroup) {
	programs := api.Group("/programs")
	{
		programs.GET("/", h.listPrograms)
		programs.GET("/:name", h.getProgram)
		programs.PUT("/:name", h.saveProgram)
		programs.DELETE("/:name", h.deleteProgram)
	}
}
