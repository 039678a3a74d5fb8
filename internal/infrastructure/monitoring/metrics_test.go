package monitoring

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/resilience"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{fmt.Errorf("fetch: %w", types.ErrNotFound), OutcomeNotFound},
		{fmt.Errorf("remove: %w", types.ErrLogic), OutcomeLogic},
		{types.ErrInvalidPath, OutcomeInvalid},
		{types.ErrTerminated, OutcomeTerminated},
		{fmt.Errorf("store: %w", resilience.ErrCircuitOpen), OutcomeUnavailable},
		{errors.New("boom"), OutcomeError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err))
	}
}

func TestRecordLifecycle(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordLifecycle("add", OutcomeOK, time.Millisecond)
	m.RecordLifecycle("add", OutcomeOK, time.Millisecond)
	m.RecordLifecycle("remove", OutcomeLogic, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LifecycleRequests.WithLabelValues("add", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LifecycleRequests.WithLabelValues("remove", OutcomeLogic)))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.FailedRequests)
}

func TestSetLocalApps(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetLocalApps(4)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.LocalApps))
	assert.Equal(t, int64(4), m.Snapshot().LocalApps)
}

func TestTimerStop(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	NewTimer(m, "read_file").Stop(nil)
	NewTimer(m, "read_file").Stop(types.ErrNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreCalls.WithLabelValues("read_file", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreCalls.WithLabelValues("read_file", OutcomeNotFound)))

	var nilTimer *Timer
	assert.NotPanics(t, func() { nilTimer.Stop(nil) })
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/apps/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/apps/app_1", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/apps/:id", "204")))
}
