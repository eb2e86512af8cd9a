package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leozw/wp-maintenance/internal/api/handlers"
	"github.com/leozw/wp-maintenance/internal/api/middleware"
	"github.com/leozw/wp-maintenance/internal/config"
	"go.uber.org/zap"
)

// NewRouter wires the public HTTP surface. metricsHandler may be nil.
func NewRouter(cfg *config.Config, h *handlers.Handler, metricsHandler http.Handler, logger *zap.Logger) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	api := router.Group("/api/v1")
	api.Use(middleware.AuthRequired(cfg.Auth.JWTSecret))
	{
		api.GET("/websites/:websiteId/maintenance-reports/:reportId", h.GetMaintenanceReport)
		api.HEAD("/websites/:websiteId/maintenance-reports/:reportId", h.GetMaintenanceReport)
	}

	return router
}
