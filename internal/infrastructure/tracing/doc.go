/*
Package tracing provides lightweight request tracing for the control API
and the networked store.

A trace starts when a request reaches the control API, follows the request
context through the lifecycle actor and is forwarded to a peer store in the
X-Trace-ID and X-Span-ID headers. Finished spans are logged by a buffered
collector.

	tracer := tracing.New("launcher", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))
	tracing.Propagate(restyClient)
*/
package tracing
