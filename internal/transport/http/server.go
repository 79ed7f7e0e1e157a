// Package http provides the internal HTTP server of the voice agent.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/gogo/voiceagent/internal/repository"
	v1 "github.com/xiaot623/gogo/voiceagent/internal/transport/http/v1"
)

// NewInternalServer creates the server for health checks and call records.
func NewInternalServer(store repository.Store, live v1.Liveness) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	v1.NewHandler(store, live).RegisterRoutes(e)

	return e
}

// NewCallServer creates the server the call platform connects to.
func NewCallServer(path string, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET(path, handler)

	return e
}
