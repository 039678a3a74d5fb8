package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/logging"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/monitoring"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/tracing"
	"github.com/anon-safe/safe-launcher/internal/shared/id"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
	"github.com/anon-safe/safe-launcher/internal/shared/utils"
)

// Lifecycle is the launcher as seen by the control API
type Lifecycle interface {
	Add(ctx context.Context, detail types.AppDetail) (types.AddResult, error)
	Remove(ctx context.Context, appID id.AppID) (types.RemoveResult, error)
	Activate(ctx context.Context, appID id.AppID) (types.ActivationOutcome, error)
	Stats() types.Stats
}

// Handlers contains all HTTP handlers
type Handlers struct {
	launcher Lifecycle
	metrics  *monitoring.Metrics
	log      *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(launcher Lifecycle, metrics *monitoring.Metrics, log *logging.Logger) *Handlers {
	return &Handlers{launcher: launcher, metrics: metrics, log: log.Component("api")}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "safe-launcher",
		"version": "0.1.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	stats := h.launcher.Stats()
	status, code := "healthy", http.StatusOK
	if stats.Terminated {
		status, code = "terminated", http.StatusServiceUnavailable
	}

	resp := gin.H{
		"status":   status,
		"launcher": stats,
	}
	if h.metrics != nil {
		resp["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(code, resp)
}

// AddApp registers an application binary
func (h *Handlers) AddApp(c *gin.Context) {
	var req types.AppDetail
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := utils.ValidateLaunchPath(req.AbsolutePath); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.launcher.Add(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "add", err)
		return
	}

	code := http.StatusCreated
	if result.Duplicate {
		code = http.StatusOK
	}
	c.JSON(code, result)
}

// RemoveApp drops one reference to an application
func (h *Handlers) RemoveApp(c *gin.Context) {
	appID, ok := h.appID(c)
	if !ok {
		return
	}

	result, err := h.launcher.Remove(c.Request.Context(), appID)
	if err != nil {
		h.fail(c, "remove", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ActivateApp launches an application
func (h *Handlers) ActivateApp(c *gin.Context) {
	appID, ok := h.appID(c)
	if !ok {
		return
	}

	outcome, err := h.launcher.Activate(c.Request.Context(), appID)
	if err != nil {
		h.fail(c, "activate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"app_id":  appID,
		"outcome": outcome,
	})
}

func (h *Handlers) appID(c *gin.Context) (id.AppID, bool) {
	appID, err := utils.ValidateAppID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return appID, true
}

func (h *Handlers) fail(c *gin.Context, op string, err error) {
	code := StatusFor(err)
	if code >= http.StatusInternalServerError {
		h.log.Error("lifecycle request failed",
			zap.String("op", op),
			tracing.Field(c.Request.Context()),
			zap.Error(err))
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
