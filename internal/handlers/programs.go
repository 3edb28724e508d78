package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digiexchris/HeatTreatFurnace/internal/models"
)

const (
	errListPrograms  = "failed to list programs"
	errGetProgram    = "failed to load program"
	errSaveProgram   = "failed to save program"
	errDeleteProgram = "failed to delete program"
)

// @Summary      List programs
// @Tags         programs
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, programs"
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/programs [get]
// @Security     BearerAuth
func (h *Handler) listPrograms(c *gin.Context) {
	list, err := h.services.Programs.List(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, errListPrograms, "programs_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(list), "programs": list})
}

// @Summary      Get program
// @Tags         programs
// @Produce      json
// @Param        name  path      string  true  "Program name"
// @Success      200   {object}  models.Program
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/programs/{name} [get]
// @Security     BearerAuth
func (h *Handler) getProgram(c *gin.Context) {
	name := c.Param("name")
	p, err := h.services.Programs.Get(c.Request.Context(), name)
	if err != nil {
		h.logAndJSONError(c, errGetProgram, "programs_get_failed", err, "name", name)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary      Create or replace program
// @Description  The path name wins over any name in the body. Durations use Go syntax ("90m").
// @Tags         programs
// @Accept       json
// @Produce      json
// @Param        name  path      string          true  "Program name"
// @Param        body  body      models.Program  true  "Program"
// @Success      200   {object}  models.Program
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/programs/{name} [put]
// @Security     BearerAuth
func (h *Handler) saveProgram(c *gin.Context) {
	var p models.Program
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	p.Name = c.Param("name")
	ctx := c.Request.Context()
	if err := h.services.Programs.Save(ctx, p); err != nil {
		h.logAndJSONError(c, errSaveProgram, "programs_save_failed", err, "name", p.Name)
		return
	}
	saved, err := h.services.Programs.Get(ctx, p.Name)
	if err != nil {
		h.logAndJSONError(c, errGetProgram, "programs_get_failed", err, "name", p.Name)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// @Summary      Delete program
// @Tags         programs
// @Param        name  path  string  true  "Program name"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/programs/{name} [delete]
// @Security     BearerAuth
func (h *Handler) deleteProgram(c *gin.Context) {
	name := c.Param("name")
	if err := h.services.Programs.Delete(c.Request.Context(), name); err != nil {
		h.logAndJSONError(c, errDeleteProgram, "programs_delete_failed", err, "name", name)
		return
	}
	c.Status(http.StatusNoContent)
}
