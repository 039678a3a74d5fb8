package ipc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/logging"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/monitoring"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func startServer(t *testing.T, metrics *monitoring.Metrics) (*Server, *clock) {
	t.Helper()
	return startServerWithLog(t, metrics, logging.NewNop())
}

func startServerWithLog(t *testing.T, metrics *monitoring.Metrics, log *logging.Logger) (*Server, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewServer(Config{ListenAddr: "127.0.0.1:0", TicketTTL: time.Hour}, metrics, log)
	s.now = c.Now
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Close() })
	return s, c
}

func ticket(nonce string) types.ActivationTicket {
	return types.ActivationTicket{Nonce: nonce, AppID: "app_editor", AppRootDirKey: "root-key", DriveAccess: true}
}

func TestListenerEndpoint(t *testing.T) {
	s, _ := startServer(t, nil)

	endpoint, err := s.ListenerEndpoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, s.listener.Addr().String(), endpoint)
}

func TestRedeemOverTCP(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	s, _ := startServer(t, metrics)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	endpoint, err := s.ListenerEndpoint(ctx)
	require.NoError(t, err)
	require.NoError(t, s.AppActivated(ctx, ticket("n0nce")))

	got, err := Dial(ctx, endpoint, "n0nce")
	require.NoError(t, err)
	assert.Equal(t, ticket("n0nce"), got)

	_, err = Dial(ctx, endpoint, "n0nce")
	assert.ErrorContains(t, err, "rejected")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TicketsRedeemed.WithLabelValues(redeemOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TicketsRedeemed.WithLabelValues(redeemUnknown)))
}

func TestRedeemOnce(t *testing.T) {
	s, _ := startServer(t, nil)
	ctx := context.Background()

	require.NoError(t, s.AppActivated(ctx, ticket("abc")))

	got, err := s.Redeem(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Nonce)

	_, err = s.Redeem(ctx, "abc")
	assert.ErrorIs(t, err, ErrUnknownNonce)
}

func TestIssuedTicketIsLoggedWithoutNonce(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s, _ := startServerWithLog(t, nil, &logging.Logger{Logger: zap.New(core)})
	ctx := context.Background()

	require.NoError(t, s.AppActivated(ctx, ticket("s3cret")))
	_, err := s.ListenerEndpoint(ctx)
	require.NoError(t, err)

	issued := logs.FilterMessage("ticket issued").All()
	require.Len(t, issued, 1)
	logged, ok := issued[0].ContextMap()["ticket"].(types.ActivationTicket)
	require.True(t, ok)
	assert.Equal(t, ticket("s3cret").Redacted(), logged)
	assert.NotContains(t, logged.Nonce, "s3cret")

	// The stored ticket keeps its nonce
	got, err := s.Redeem(ctx, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got.Nonce)
}

func TestRedeemExpired(t *testing.T) {
	s, c := startServer(t, nil)
	ctx := context.Background()

	require.NoError(t, s.AppActivated(ctx, ticket("abc")))
	// Round trip through the loop so the ticket is stored before the clock moves
	_, err := s.ListenerEndpoint(ctx)
	require.NoError(t, err)

	c.Advance(2 * time.Hour)

	_, err = s.Redeem(ctx, "abc")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestAppTerminatedRevokesTickets(t *testing.T) {
	s, _ := startServer(t, nil)
	ctx := context.Background()

	require.NoError(t, s.AppActivated(ctx, ticket("one")))
	require.NoError(t, s.AppActivated(ctx, ticket("two")))
	other := ticket("three")
	other.AppID = "app_other"
	require.NoError(t, s.AppActivated(ctx, other))

	require.NoError(t, s.AppTerminated(ctx, "app_editor"))

	_, err := s.Redeem(ctx, "one")
	assert.ErrorIs(t, err, ErrUnknownNonce)
	_, err = s.Redeem(ctx, "two")
	assert.ErrorIs(t, err, ErrUnknownNonce)

	got, err := s.Redeem(ctx, "three")
	require.NoError(t, err)
	assert.Equal(t, other, got)
}

func TestClosedServerRejectsEvents(t *testing.T) {
	s, _ := startServer(t, nil)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err := s.AppActivated(context.Background(), ticket("x"))
	assert.ErrorIs(t, err, ErrClosed)

	_, err = s.ListenerEndpoint(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestParseLauncherArg(t *testing.T) {
	endpoint, nonce, err := ParseLauncherArg("tcp:127.0.0.1:5000:AbC123")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5000", endpoint)
	assert.Equal(t, "AbC123", nonce)

	endpoint, _, err = ParseLauncherArg("tcp:[::1]:5000:n")
	require.NoError(t, err)
	assert.Equal(t, "[::1]:5000", endpoint)

	for _, bad := range []string{"", "udp:1.2.3.4:5:n", "tcp:", "tcp:host:", "tcp::n"} {
		_, _, err := ParseLauncherArg(bad)
		assert.ErrorIs(t, err, ErrBadLauncherArg, bad)
	}
}
