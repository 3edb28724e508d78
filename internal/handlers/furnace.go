package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/digiexchris/HeatTreatFurnace/internal/fsm"
	"github.com/digiexchris/HeatTreatFurnace/internal/models"
	"github.com/digiexchris/HeatTreatFurnace/internal/service"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK     = "ok"
	statusQueued = "queued"

	errCommand         = "failed to queue command"
	errGetState        = "failed to load state"
	errInvalidBodyPref = "invalid body: "
	errLoadBody        = "either program or profile is required"

	estopMessage = "emergency stop"
)

// Commands without a payload.
const (
	cmdPause  = "pause"
	cmdResume = "resume"
	cmdCancel = "cancel"
	cmdClear  = "clear"
	cmdReset  = "reset"
)

// Respond with a status and include current state if available (best-effort).
// The state is read right after queueing, so it may not reflect the command yet.
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	ctx := c.Request.Context()
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	st, err := h.services.Monitoring.GetState(ctx)
	if err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusAccepted, resp)
}

// LoadRequest selects a stored program by name or carries one inline.
type LoadRequest struct {
	Program string          `json:"program,omitempty" example:"anneal-1084"`
	Profile *models.Program `json:"profile,omitempty"`
}

// StartRequest optionally starts part-way through the program.
type StartRequest struct {
	Segment *uint16 `json:"segment,omitempty" example:"1"`
	Offset  string  `json:"offset,omitempty" example:"5m"`
}

// ManualRequest sets a fixed target temperature.
type ManualRequest struct {
	TargetC *float64 `json:"target_c" binding:"required" example:"850"`
}

// SegmentRequest repositions playback.
type SegmentRequest struct {
	Segment *uint16 `json:"segment" binding:"required" example:"2"`
	Offset  string  `json:"offset,omitempty" example:"10m"`
}

func parseOffset(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("offset: %w", err)
	}
	if d < 0 {
		return 0, errors.New("offset must not be negative")
	}
	return d, nil
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Load program
// @Description  Loads a stored program by name, or an inline program definition.
// @Tags         furnace
// @Accept       json
// @Produce      json
// @Param        body  body      LoadRequest  true  "Program selection"
// @Success      202   {object}  map[string]interface{}  "status, state"
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/furnace/load [post]
// @Security     BearerAuth
func (h *Handler) loadProgram(c *gin.Context) {
	var req LoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()

	var (
		name string
		err  error
	)
	switch {
	case req.Program != "":
		name = req.Program
		err = h.services.Furnace.LoadProgram(ctx, req.Program)
	case req.Profile != nil:
		name = req.Profile.Name
		p, perr := service.ParseProgram(*req.Profile)
		if perr != nil {
			err = perr
			break
		}
		err = h.services.Furnace.LoadProfile(ctx, p)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": errLoadBody})
		return
	}
	if err != nil {
		h.logAndJSONError(c, errCommand, "furnace_load_failed", err, "program", name)
		return
	}
	h.respondWithStatusAndState(c, statusQueued, gin.H{"command": "load", "program": name})
}

// @Summary      Start program
// @Description  Starts the loaded program, optionally at a segment and offset.
// @Tags         furnace
// @Accept       json
// @Produce      json
// @Param        body  body      StartRequest  false  "Start position"
// @Success      202   {object}  map[string]interface{}  "status, state"
// @Failure      400   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/furnace/start [post]
// @Security     BearerAuth
func (h *Handler) startProgram(c *gin.Context) {
	var req StartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return
		}
	}
	off, err := parseOffset(req.Offset)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()
	if req.Segment != nil || off > 0 {
		var seg uint16
		if req.Segment != nil {
			seg = *req.Segment
		}
		err = h.services.Furnace.StartAt(ctx, seg, off)
	} else {
		err = h.services.Furnace.Start(ctx)
	}
	if err != nil {
		h.logAndJSONError(c, errCommand, "furnace_start_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusQueued, gin.H{"command": "start"})
}

// simpleCommand serves the payload-free commands.
//
// @Summary      Pause, resume, cancel, clear or reset
// @Tags         furnace
// @Produce      json
// @Success      202  {object}  map[string]interface{}  "status, state"
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/furnace/pause [post]
// @Router       /api/v1/furnace/resume [post]
// @Router       /api/v1/furnace/cancel [post]
// @Router       /api/v1/furnace/clear [post]
// @Router       /api/v1/furnace/reset [post]
// @Security     BearerAuth
func (h *Handler) simpleCommand(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.runSimple(c.Request.Context(), name); err != nil {
			h.logAndJSONError(c, errCommand, "furnace_command_failed", err, "command", name)
			return
		}
		h.respondWithStatusAndState(c, statusQueued, gin.H{"command": name})
	}
}

func (h *Handler) runSimple(ctx context.Context, name string) error {
	f := h.services.Furnace
	switch name {
	case cmdPause:
		return f.Pause(ctx)
	case cmdResume:
		return f.Resume(ctx)
	case cmdCancel:
		return f.Cancel(ctx)
	case cmdClear:
		return f.ClearProgram(ctx)
	case cmdReset:
		return f.Reset(ctx)
	}
	return fmt.Errorf("unknown command %q", name)
}

// @Summary      Emergency stop
// @Description  Raises a safety interlock fault; the heater is switched off and the program dropped.
// @Tags         furnace
// @Produce      json
// @Success      202  {object}  map[string]interface{}  "status, state"
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/furnace/estop [post]
// @Security     BearerAuth
func (h *Handler) emergencyStop(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Furnace.RaiseFault(ctx, fsm.CodeSafetyInterlock, fsm.DomainUI, estopMessage); err != nil {
		h.logAndJSONError(c, errCommand, "furnace_estop_failed", err)
		return
	}
	if h.log != nil {
		h.log.Warnw("furnace_estop", "user", c.GetInt("userId"))
	}
	h.respondWithStatusAndState(c, statusQueued, gin.H{"command": "estop"})
}

// @Summary      Manual temperature
// @Description  Holds a fixed target; leaves a running program paused under override.
// @Tags         furnace
// @Accept       json
// @Produce      json
// @Param        body  body      ManualRequest  true  "Target"
// @Success      202   {object}  map[string]interface{}  "status, state"
// @Failure      400   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/furnace/manual [post]
// @Security     BearerAuth
func (h *Handler) setManualTemp(c *gin.Context) {
	var req ManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.Furnace.SetManualTemp(c.Request.Context(), *req.TargetC); err != nil {
		h.logAndJSONError(c, errCommand, "furnace_manual_failed", err, "target_c", *req.TargetC)
		return
	}
	h.respondWithStatusAndState(c, statusQueued, gin.H{"command": "manual", "target_c": *req.TargetC})
}

// @Summary      Jump to segment
// @Tags         furnace
// @Accept       json
// @Produce      json
// @Param        body  body      SegmentRequest  true  "Position"
// @Success      202   {object}  map[string]interface{}  "status, state"
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/furnace/segment [post]
// @Security     BearerAuth
func (h *Handler) setNextSegment(c *gin.Context) {
	var req SegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	off, err := parseOffset(req.Offset)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.Furnace.SetNextSegment(c.Request.Context(), *req.Segment, off); err != nil {
		h.logAndJSONError(c, errCommand, "furnace_segment_failed", err, "segment", *req.Segment)
		return
	}
	h.respondWithStatusAndState(c, statusQueued, gin.H{"command": "segment", "segment": *req.Segment})
}

// @Summary      Get furnace state
// @Tags         furnace
// @Produce      json
// @Success      200  {object}  models.FurnaceState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/furnace/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		h.logAndJSONError(c, errGetState, "furnace_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}
