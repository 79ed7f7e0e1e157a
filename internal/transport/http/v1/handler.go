// Package v1 provides the HTTP handlers for call records.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/voiceagent/internal/repository"
)

// Liveness reports the connections currently open.
type Liveness interface {
	ConnectionCount() int
	CallCount() int
}

// Handler handles HTTP requests.
type Handler struct {
	store repository.Store
	live  Liveness
}

// NewHandler creates a new handler.
func NewHandler(store repository.Store, live Liveness) *Handler {
	return &Handler{
		store: store,
		live:  live,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/calls", h.ListCalls)
	e.GET("/v1/calls/:call_sid", h.GetCall)
	e.GET("/v1/calls/:call_sid/tool_calls", h.ListToolCalls)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"connections": h.live.ConnectionCount(),
		"calls":       h.live.CallCount(),
	})
}
