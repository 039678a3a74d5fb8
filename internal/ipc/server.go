package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/logging"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/monitoring"
	"github.com/anon-safe/safe-launcher/internal/shared/id"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
)

var (
	// ErrClosed is returned once the server has been closed
	ErrClosed = errors.New("ipc server closed")
	// ErrUnknownNonce is returned for nonces never issued or already redeemed
	ErrUnknownNonce = errors.New("unknown or already redeemed nonce")
	// ErrExpired is returned for nonces whose ticket timed out
	ErrExpired = errors.New("activation ticket expired")
)

// maxNonceLine bounds what a client may send before the newline
const maxNonceLine = 512

// Redemption results recorded in metrics
const (
	redeemOK      = "ok"
	redeemUnknown = "unknown"
	redeemExpired = "expired"
)

// Config configures the IPC server
type Config struct {
	ListenAddr  string
	TicketTTL   time.Duration
	ReadTimeout time.Duration
}

// Server is the IPC boundary. Lifecycle events arrive over a channel and
// are applied one at a time by a single loop goroutine, which also owns
// the pending tickets. Spawned applications redeem their nonce over TCP.
type Server struct {
	cfg     Config
	events  chan event
	metrics *monitoring.Metrics
	log     *logging.Logger
	now     func() time.Time

	listener  net.Listener
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type event interface{}

type getEndpoint struct {
	reply chan string
}

type activated struct {
	ticket types.ActivationTicket
}

type terminated struct {
	appID id.AppID
}

type redeem struct {
	nonce string
	reply chan redeemResult
}

type redeemResult struct {
	ticket types.ActivationTicket
	err    error
}

type pending struct {
	ticket  types.ActivationTicket
	expires time.Time
}

type redeemResponse struct {
	Ticket *types.ActivationTicket `json:"ticket,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// NewServer creates an IPC server. Start must be called before use.
func NewServer(cfg Config, metrics *monitoring.Metrics, log *logging.Logger) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:0"
	}
	if cfg.TicketTTL <= 0 {
		cfg.TicketTTL = time.Minute
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	return &Server{
		cfg:     cfg,
		events:  make(chan event, 32),
		metrics: metrics,
		log:     log.Component("ipc"),
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// Start binds the listener and starts the event loop and accept loop
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("ipc listen on %s: %w", s.cfg.ListenAddr, err)
	}
	s.listener = ln

	s.wg.Add(2)
	go s.loop()
	go s.accept()

	s.log.Info("IPC server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Close stops accepting connections and drops every pending ticket
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			err = s.listener.Close()
		}
		s.wg.Wait()
	})
	return err
}

// ListenerEndpoint returns the address spawned applications connect to
func (s *Server) ListenerEndpoint(ctx context.Context) (string, error) {
	reply := make(chan string, 1)
	if err := s.send(ctx, getEndpoint{reply: reply}); err != nil {
		return "", err
	}
	select {
	case endpoint := <-reply:
		return endpoint, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.done:
		return "", ErrClosed
	}
}

// AppActivated registers a ticket to be redeemed by its nonce
func (s *Server) AppActivated(ctx context.Context, ticket types.ActivationTicket) error {
	return s.send(ctx, activated{ticket: ticket})
}

// AppTerminated revokes every pending ticket of appID
func (s *Server) AppTerminated(ctx context.Context, appID id.AppID) error {
	return s.send(ctx, terminated{appID: appID})
}

// Redeem exchanges a nonce for its ticket. A nonce redeems at most once.
func (s *Server) Redeem(ctx context.Context, nonce string) (types.ActivationTicket, error) {
	reply := make(chan redeemResult, 1)
	if err := s.send(ctx, redeem{nonce: nonce, reply: reply}); err != nil {
		return types.ActivationTicket{}, err
	}
	select {
	case res := <-reply:
		return res.ticket, res.err
	case <-ctx.Done():
		return types.ActivationTicket{}, ctx.Err()
	case <-s.done:
		return types.ActivationTicket{}, ErrClosed
	}
}

func (s *Server) send(ctx context.Context, ev event) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

func (s *Server) loop() {
	defer s.wg.Done()

	tickets := make(map[string]pending)
	sweep := time.NewTicker(s.cfg.TicketTTL)
	defer sweep.Stop()

	for {
		select {
		case <-s.done:
			s.setPending(0)
			return

		case <-sweep.C:
			now := s.now()
			for nonce, p := range tickets {
				if now.After(p.expires) {
					delete(tickets, nonce)
				}
			}
			s.setPending(len(tickets))

		case ev := <-s.events:
			switch ev := ev.(type) {
			case getEndpoint:
				ev.reply <- s.listener.Addr().String()

			case activated:
				tickets[ev.ticket.Nonce] = pending{ticket: ev.ticket, expires: s.now().Add(s.cfg.TicketTTL)}
				s.log.Debug("ticket issued", zap.Any("ticket", ev.ticket.Redacted()))

			case terminated:
				revoked := 0
				for nonce, p := range tickets {
					if p.ticket.AppID == ev.appID {
						delete(tickets, nonce)
						revoked++
					}
				}
				s.log.Debug("app terminated",
					zap.String("app_id", ev.appID.String()),
					zap.Int("revoked", revoked))

			case redeem:
				p, ok := tickets[ev.nonce]
				delete(tickets, ev.nonce)
				switch {
				case !ok:
					s.recordRedemption(redeemUnknown)
					ev.reply <- redeemResult{err: ErrUnknownNonce}
				case s.now().After(p.expires):
					s.recordRedemption(redeemExpired)
					ev.reply <- redeemResult{err: ErrExpired}
				default:
					s.recordRedemption(redeemOK)
					ev.reply <- redeemResult{ticket: p.ticket}
				}
			}
			s.setPending(len(tickets))
		}
	}
}

func (s *Server) accept() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept failed", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serve(conn)
		}()
	}
}

// serve handles one redemption: the client writes "<nonce>\n" and gets one
// JSON line back
func (s *Server) serve(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(s.now().Add(s.cfg.ReadTimeout))

	line, err := bufio.NewReader(io.LimitReader(conn, maxNonceLine)).ReadString('\n')
	if err != nil {
		s.log.Debug("bad redemption request", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
		return
	}
	nonce := strings.TrimSpace(line)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ReadTimeout)
	defer cancel()

	var resp redeemResponse
	ticket, err := s.Redeem(ctx, nonce)
	if err != nil {
		resp.Error = err.Error()
		s.log.Warn("redemption rejected", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
	} else {
		resp.Ticket = &ticket
		s.log.Info("ticket redeemed", zap.String("app_id", ticket.AppID.String()))
	}

	data, err := sonic.Marshal(resp)
	if err != nil {
		s.log.Error("encode redemption response", zap.Error(err))
		return
	}
	_, _ = conn.Write(append(data, '\n'))
}

func (s *Server) setPending(n int) {
	if s.metrics != nil {
		s.metrics.SetTicketsPending(n)
	}
}

func (s *Server) recordRedemption(result string) {
	if s.metrics != nil {
		s.metrics.RecordRedemption(result)
	}
}
