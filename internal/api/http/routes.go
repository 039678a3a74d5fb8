package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Register mounts the control API on router. The metrics route is only
// mounted when gatherer is non-nil.
func (h *Handlers) Register(router gin.IRouter, gatherer prometheus.Gatherer) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	apps := router.Group("/apps")
	apps.POST("", h.AddApp)
	apps.DELETE("/:id", h.RemoveApp)
	apps.POST("/:id/activate", h.ActivateApp)

	if gatherer != nil {
		router.GET("/metrics", MetricsHandler(gatherer))
	}
}
