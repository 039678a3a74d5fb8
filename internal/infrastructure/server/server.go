package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	apihttp "github.com/anon-safe/safe-launcher/internal/api/http"
	"github.com/anon-safe/safe-launcher/internal/api/middleware"
	"github.com/anon-safe/safe-launcher/internal/client"
	"github.com/anon-safe/safe-launcher/internal/crypto"
	"github.com/anon-safe/safe-launcher/internal/domain/launcher"
	"github.com/anon-safe/safe-launcher/internal/domain/sharedconfig"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/config"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/logging"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/monitoring"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/resilience"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/tracing"
	"github.com/anon-safe/safe-launcher/internal/ipc"
	"github.com/anon-safe/safe-launcher/internal/nfs"
	"github.com/anon-safe/safe-launcher/internal/shared/paths"
)

const (
	startTimeout    = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server wraps the control API and the launcher dependencies
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	storeServer *http.Server
	ipc         *ipc.Server
	launcher    *launcher.Launcher
	box         *crypto.Box
	tracer      *tracing.Tracer
	logger      *logging.Logger
	config      *config.Config
	metrics     *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing safe launcher",
		zap.String("port", cfg.Server.Port),
		zap.String("store_mode", cfg.Store.Mode),
		zap.String("ipc_addr", cfg.IPC.ListenAddr),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(reg)
	tracer := tracing.New("launcher", logger)

	box, err := newBox(cfg.Crypto, logger)
	if err != nil {
		tracer.Close()
		return nil, err
	}

	store, local := newStore(cfg.Store, logger)
	handle := client.New(box, nfs.Instrument(store, metrics))

	s := &Server{
		box:     box,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	names := sharedconfig.Names{Directory: cfg.Launcher.GlobalDirectory, File: cfg.Launcher.GlobalConfigFile}
	if err := sharedconfig.New(handle.Store(), nil, names, logger).Provision(ctx); err != nil {
		s.release()
		return nil, fmt.Errorf("provision shared configuration: %w", err)
	}

	s.ipc = ipc.NewServer(ipc.Config{
		ListenAddr: cfg.IPC.ListenAddr,
		TicketTTL:  cfg.IPC.TicketTTL,
	}, metrics, logger)
	if err := s.ipc.Start(); err != nil {
		s.release()
		return nil, err
	}

	s.launcher, err = launcher.Start(ctx, handle, s.ipc, launcher.Options{
		LocalCachePath: paths.LocalCachePath(cfg.Launcher.LocalConfigFile),
		Names:          names,
		NonceLength:    cfg.Launcher.NonceLength,
		QueueSize:      cfg.Launcher.QueueSize,
		Metrics:        metrics,
	}, logger)
	if err != nil {
		s.release()
		return nil, fmt.Errorf("start launcher: %w", err)
	}

	if cfg.Store.Serve && local != nil {
		s.storeServer = &http.Server{
			Addr:              cfg.Store.ServeAddr,
			Handler:           nfs.NewServer(local, logger).Handler(tracing.HTTPMiddleware(tracer)),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	apihttp.NewHandlers(s.launcher, metrics, logger).Register(router, reg)

	s.router = router
	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server initialized successfully", zap.String("ipc_endpoint", s.launcher.Endpoint()))
	return s, nil
}

// Handler returns the control API handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Launcher returns the lifecycle actor
func (s *Server) Launcher() *launcher.Launcher {
	return s.launcher
}

// Run serves the control API, and the local store when configured, until
// Close is called or a listener fails
func (s *Server) Run() error {
	errs := make(chan error, 2)

	if s.storeServer != nil {
		go func() {
			s.logger.Info("Serving networked store", zap.String("addr", s.storeServer.Addr))
			if err := s.storeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("store server: %w", err)
			}
		}()
	}

	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server: %w", err)
			return
		}
		errs <- nil
	}()

	return <-errs
}

// Close stops the HTTP servers, terminates the launcher so the local
// cache is persisted, then closes the IPC server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if s.storeServer != nil {
		if err := s.storeServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("store shutdown: %w", err))
		}
	}
	if s.launcher != nil {
		if err := s.launcher.Terminate(); err != nil {
			s.logger.Error("Failed to terminate launcher", zap.Error(err))
			errs = append(errs, err)
		}
	}
	s.release()

	_ = s.logger.Sync()
	return errors.Join(errs...)
}

func (s *Server) release() {
	if s.ipc != nil {
		if err := s.ipc.Close(); err != nil {
			s.logger.Warn("Failed to close IPC server", zap.Error(err))
		}
	}
	s.box.Destroy()
	s.tracer.Close()
}

func newLogger(cfg config.LogConfig) (*logging.Logger, error) {
	logger, err := logging.New(logging.Config{Level: cfg.Level, Development: cfg.Development})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

func newBox(cfg config.CryptoConfig, logger *logging.Logger) (*crypto.Box, error) {
	if cfg.KeyFile == "" {
		logger.Warn("No key file configured; the local cache will not survive a restart")
		return crypto.NewBox()
	}
	box, err := crypto.LoadOrCreateKeyFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load key: %w", err)
	}
	logger.Info("Loaded key pair", zap.String("key_file", cfg.KeyFile))
	return box, nil
}

// newStore returns the store the launcher talks to and, in memory mode,
// the same store for serving to peers
func newStore(cfg config.StoreConfig, logger *logging.Logger) (nfs.Store, *nfs.MemoryStore) {
	if cfg.Mode == config.StoreModeRemote {
		logger.Info("Using remote store", zap.String("addr", cfg.Address))
		return nfs.NewRemoteStore(nfs.RemoteConfig{
			BaseURL: cfg.Address,
			Timeout: cfg.Timeout,
			Breaker: resilience.Settings{Timeout: 30 * time.Second},
		}, logger), nil
	}
	mem := nfs.NewMemoryStore()
	return mem, mem
}
