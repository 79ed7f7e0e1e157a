package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/voiceagent/internal/domain"
)

const maxListLimit = 500

// ListCalls lists the most recent calls.
// GET /v1/calls?limit=N
func (h *Handler) ListCalls(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
		}
		limit = min(n, maxListLimit)
	}

	calls, err := h.store.ListCalls(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if calls == nil {
		calls = []domain.Call{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"calls": calls,
	})
}

// GetCall returns one call.
// GET /v1/calls/:call_sid
func (h *Handler) GetCall(c echo.Context) error {
	ctx := c.Request().Context()
	callSID := c.Param("call_sid")

	call, err := h.store.GetCall(ctx, callSID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if call == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "call not found"})
	}

	return c.JSON(http.StatusOK, call)
}

// ListToolCalls lists the tool calls made during a call.
// GET /v1/calls/:call_sid/tool_calls
func (h *Handler) ListToolCalls(c echo.Context) error {
	ctx := c.Request().Context()
	callSID := c.Param("call_sid")

	call, err := h.store.GetCall(ctx, callSID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if call == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "call not found"})
	}

	toolCalls, err := h.store.ListToolCalls(ctx, callSID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if toolCalls == nil {
		toolCalls = []domain.ToolCall{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"call_sid":   callSID,
		"tool_calls": toolCalls,
	})
}
