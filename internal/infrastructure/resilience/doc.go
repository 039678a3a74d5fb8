/*
Package resilience guards calls to the networked store with a circuit
breaker.

The remote store never retries. When the peer is down, the breaker opens so
lifecycle requests fail with ErrCircuitOpen at once instead of waiting out
the transport timeout. Domain answers such as "not found" come from a
healthy peer and are classified as successes through Settings.IsSuccessful.
A call whose context ends first does not count against the peer.

	breaker := resilience.New("nfs", resilience.Settings{
		Timeout: 30 * time.Second,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, types.ErrNotFound)
		},
	})

	err := breaker.Execute(ctx, func(ctx context.Context) error {
		return call(ctx)
	})

States:

	closed --[ReadyToTrip]--> open --[Timeout]--> half-open --[MaxRequests successes]--> closed
	                           ^                      |
	                           +------[failure]-------+
*/
package resilience
