package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/logging"
)

func TestStartSpanContinuesTrace(t *testing.T) {
	tracer := New("test", logging.NewNop())
	defer tracer.Close()

	root, ctx := tracer.StartSpan(context.Background(), "root")
	assert.NotEmpty(t, root.TraceID)
	assert.Empty(t, root.ParentID)

	child, _ := tracer.StartSpan(ctx, "child")
	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Equal(t, root.SpanID, child.ParentID)
	assert.NotEqual(t, root.SpanID, child.SpanID)
}

func TestInjectExtract(t *testing.T) {
	ctx := WithSpan(context.Background(), "trace-1", "span-1")
	h := http.Header{}
	Inject(ctx, h)

	assert.Equal(t, "trace-1", h.Get(HeaderTraceID))

	got := Extract(context.Background(), h)
	assert.Equal(t, TraceID("trace-1"), GetTraceID(got))
	assert.Equal(t, SpanID("span-1"), GetSpanID(got))

	empty := http.Header{}
	Inject(context.Background(), empty)
	assert.Empty(t, empty)
}

func TestSubmitAfterClose(t *testing.T) {
	tracer := New("test", logging.NewNop())
	span, _ := tracer.StartSpan(context.Background(), "op")
	span.Finish()
	tracer.Submit(span)

	tracer.Close()
	tracer.Close()
	tracer.Submit(span)
}

func TestPropagationAcrossPeers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer := New("test", logging.NewNop())
	defer tracer.Close()

	seen := make(chan TraceID, 1)
	peer := gin.New()
	peer.Use(HTTPMiddleware(tracer))
	peer.GET("/ping", func(c *gin.Context) {
		seen <- GetTraceID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	srv := httptest.NewServer(peer)
	defer srv.Close()

	client := Propagate(resty.New().SetBaseURL(srv.URL))
	ctx := WithSpan(context.Background(), "trace-42", "span-7")

	resp, err := client.R().SetContext(ctx).Get("/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())
	assert.Equal(t, TraceID("trace-42"), <-seen)
	assert.Equal(t, "trace-42", resp.Header().Get(HeaderTraceID))
	assert.NotEqual(t, "span-7", resp.Header().Get(HeaderSpanID))
}
