package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digiexchris/HeatTreatFurnace/internal/repository"
	"github.com/digiexchris/HeatTreatFurnace/internal/service"
)

// statusFor maps service errors onto HTTP status codes. Anything unknown is a
// server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidProfile),
		errors.Is(err, service.ErrInvalidTemperature),
		errors.Is(err, service.ErrInvalidFilter),
		errors.Is(err, service.ErrEmptyUsername):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrProgramNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotAllowed),
		errors.Is(err, repository.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Centralized error logging and response. Client errors carry the service
// message; server errors carry userMsg only.
func (h *Handler) logAndJSONError(c *gin.Context, userMsg, logKey string, err error, kv ...interface{}) {
	code := statusFor(err)
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err, "status", code}, kv...)
		if code >= http.StatusInternalServerError {
			h.log.Errorw(logKey, fields...)
		} else {
			h.log.Infow(logKey, fields...)
		}
	}
	msg := userMsg
	if code < http.StatusInternalServerError || code == http.StatusServiceUnavailable {
		msg = err.Error()
	}
	c.JSON(code, gin.H{"error": msg})
}
