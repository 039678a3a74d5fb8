package tracing

import (
	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
)

// HTTPMiddleware creates Gin middleware that continues or starts a trace
// for every request and echoes its ids in the response headers
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := Extract(c.Request.Context(), c.Request.Header)

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		span.SetTag("http.host", c.Request.Host)

		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderTraceID, string(span.TraceID))
		c.Header(HeaderSpanID, string(span.SpanID))

		c.Next()

		span.SetStatus(c.Writer.Status())
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}

		span.Finish()
		tracer.Submit(span)
	}
}

// Propagate makes client forward the trace context of each request's
// context to the peer
func Propagate(client *resty.Client) *resty.Client {
	return client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		Inject(r.Context(), r.Header)
		return nil
	})
}
