package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/artificien/orchestrator/internal/config"
	"github.com/artificien/orchestrator/internal/handler"
	"github.com/artificien/orchestrator/internal/middleware"
)

// RegisterRoutes wires the orchestration surface onto the provided Echo
// instance. GET / keeps the literal liveness text the platform's deploy
// checks look for; /healthz is for monitoring. The mutating routes
// (create, model_progress, delete) are optionally wrapped in the bearer
// token middleware when auth is enabled.
func RegisterRoutes(e *echo.Echo, h *handler.OrchestrationHandler, auth config.AuthConfig) {
	e.GET("/", handler.Status)
	e.GET("/healthz", handler.Health)
	e.GET("/models", h.ListModels)
	e.GET("/nodes/:model_id", h.NodeStatus)
	e.GET("/datasets/:id", h.GetDataset)

	g := e.Group("")
	if auth.Enabled {
		g.Use(middleware.JWTAuth(auth.JWTSecret))
	}
	g.POST("/create", h.CreateNode)
	g.POST("/model_progress", h.ModelProgress)
	g.POST("/delete", h.DeleteNode)
}
