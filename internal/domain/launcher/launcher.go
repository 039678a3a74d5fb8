package launcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/anon-safe/safe-launcher/internal/client"
	"github.com/anon-safe/safe-launcher/internal/domain/activation"
	"github.com/anon-safe/safe-launcher/internal/domain/localcache"
	"github.com/anon-safe/safe-launcher/internal/domain/resource"
	"github.com/anon-safe/safe-launcher/internal/domain/sharedconfig"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/logging"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/monitoring"
	"github.com/anon-safe/safe-launcher/internal/shared/id"
	"github.com/anon-safe/safe-launcher/internal/shared/paths"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
)

// DefaultQueueSize is the request buffer used when Options.QueueSize is zero
const DefaultQueueSize = 64

// Notifier is the IPC boundary as seen by the launcher
type Notifier interface {
	ListenerEndpoint(ctx context.Context) (string, error)
	AppActivated(ctx context.Context, ticket types.ActivationTicket) error
	AppTerminated(ctx context.Context, appID id.AppID) error
}

// Options configures a Launcher
type Options struct {
	// LocalCachePath is the local cache file; defaults to the well-known
	// file in the OS temp directory
	LocalCachePath string
	Names          sharedconfig.Names
	NonceLength    int
	QueueSize      int
	Spawner        activation.Spawner
	Metrics        *monitoring.Metrics
}

type op string

const (
	opAdd       op = "add"
	opRemove    op = "remove"
	opActivate  op = "activate"
	opTerminate op = "terminate"
)

type request struct {
	ctx    context.Context
	op     op
	detail types.AppDetail
	appID  id.AppID
	reply  chan response
}

type response struct {
	add        types.AddResult
	remove     types.RemoveResult
	activation types.ActivationOutcome
	err        error
}

// Launcher is the lifecycle actor. One worker goroutine owns the local
// cache and is the only writer of the shared configuration on this agent;
// requests are applied one at a time in arrival order.
type Launcher struct {
	requests chan request
	done     chan struct{}

	terminateOnce sync.Once
	terminateErr  error

	endpoint  string
	localApps atomic.Int64

	// Owned by the worker goroutine
	cache     localcache.Cache
	local     *localcache.Store
	shared    *sharedconfig.Store
	resources *resource.Manager
	activator *activation.Activator
	notifier  Notifier
	ids       *id.Generator

	metrics *monitoring.Metrics
	log     *logging.Logger
}

// Start loads the local cache, reads the shared configuration, asks the IPC
// boundary for the listener endpoint and starts the worker. Local entries
// whose id has no shared row are dropped. A shared store without the
// configuration file fails with types.ErrNotFound.
func Start(ctx context.Context, handle *client.Handle, notifier Notifier, opts Options, log *logging.Logger) (*Launcher, error) {
	log = log.Component("launcher")

	if opts.LocalCachePath == "" {
		opts.LocalCachePath = paths.LocalCachePath("")
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Spawner == nil {
		opts.Spawner = activation.NewExecSpawner(log)
	}

	store := handle.Store()
	resources := resource.NewManager(store, log)

	l := &Launcher{
		requests:  make(chan request, opts.QueueSize),
		done:      make(chan struct{}),
		local:     localcache.NewStore(opts.LocalCachePath, handle, log),
		shared:    sharedconfig.New(store, resources, opts.Names, log),
		resources: resources,
		activator: activation.New(notifier, opts.Spawner, opts.NonceLength, log),
		notifier:  notifier,
		ids:       id.Default(),
		metrics:   opts.Metrics,
		log:       log,
	}

	l.cache = l.local.Load()

	rows, _, err := l.shared.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("read shared configuration: %w", err)
	}
	l.reconcile(rows)

	endpoint, err := notifier.ListenerEndpoint(ctx)
	if err != nil {
		return nil, fmt.Errorf("get listener endpoint: %w", err)
	}
	l.endpoint = endpoint

	go l.run()

	log.Info("launcher started",
		zap.String("endpoint", endpoint),
		zap.Int("local_apps", len(l.cache)),
		zap.String("local_cache", opts.LocalCachePath))
	return l, nil
}

// Add registers the application at detail.AbsolutePath. Registering a
// path twice returns the existing id with Duplicate set.
//
// A ctx that ends after the request is queued makes Add return ctx.Err(),
// but the worker may still apply the add. Retrying is safe: the retry
// finds the path and reports Duplicate.
func (l *Launcher) Add(ctx context.Context, detail types.AppDetail) (types.AddResult, error) {
	resp, err := l.submit(ctx, request{op: opAdd, detail: detail})
	if err != nil {
		return types.AddResult{}, err
	}
	return resp.add, resp.err
}

// Remove drops one reference to appID.
//
// As with Add, a ctx that ends after the request is queued returns
// ctx.Err() while the worker may still apply the remove. A retry then
// fails with types.ErrLogic if the row is gone, and the local entry is
// dropped either way.
func (l *Launcher) Remove(ctx context.Context, appID id.AppID) (types.RemoveResult, error) {
	resp, err := l.submit(ctx, request{op: opRemove, appID: appID})
	if err != nil {
		return types.RemoveResult{}, err
	}
	return resp.remove, resp.err
}

// Activate launches appID. Apps without a shared row or without a local
// launch path are skipped.
func (l *Launcher) Activate(ctx context.Context, appID id.AppID) (types.ActivationOutcome, error) {
	resp, err := l.submit(ctx, request{op: opActivate, appID: appID})
	if err != nil {
		return "", err
	}
	return resp.activation, resp.err
}

// Terminate stops the worker after the requests queued before it and
// persists the local cache. Only the first call does the work; every
// call returns the persist error.
func (l *Launcher) Terminate() error {
	l.terminateOnce.Do(func() {
		reply := make(chan response, 1)
		l.requests <- request{ctx: context.Background(), op: opTerminate, reply: reply}
		l.terminateErr = (<-reply).err
		<-l.done
	})
	return l.terminateErr
}

// Done is closed once the worker has exited
func (l *Launcher) Done() <-chan struct{} {
	return l.done
}

// Endpoint returns the IPC endpoint handed to spawned applications
func (l *Launcher) Endpoint() string {
	return l.endpoint
}

// Stats returns launcher statistics
func (l *Launcher) Stats() types.Stats {
	terminated := false
	select {
	case <-l.done:
		terminated = true
	default:
	}
	return types.Stats{
		LocalApps:  int(l.localApps.Load()),
		Endpoint:   l.endpoint,
		Terminated: terminated,
	}
}

func (l *Launcher) submit(ctx context.Context, req request) (response, error) {
	select {
	case <-l.done:
		return response{}, types.ErrTerminated
	default:
	}

	if err := ctx.Err(); err != nil {
		return response{}, err
	}

	req.ctx = ctx
	req.reply = make(chan response, 1)

	select {
	case l.requests <- req:
	case <-l.done:
		return response{}, types.ErrTerminated
	case <-ctx.Done():
		return response{}, ctx.Err()
	}

	select {
	case resp := <-req.reply:
		return resp, nil
	case <-l.done:
		// The worker may have answered just before exiting
		select {
		case resp := <-req.reply:
			return resp, nil
		default:
			return response{}, types.ErrTerminated
		}
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

func (l *Launcher) run() {
	defer close(l.done)

	for req := range l.requests {
		if req.op == opTerminate {
			req.reply <- response{err: l.shutdown()}
			return
		}

		start := time.Now()
		var resp response
		switch req.op {
		case opAdd:
			resp.add, resp.err = l.onAdd(req.ctx, req.detail)
		case opRemove:
			resp.remove, resp.err = l.onRemove(req.ctx, req.appID)
		case opActivate:
			resp.activation, resp.err = l.onActivate(req.ctx, req.appID)
		}
		l.recordLifecycle(req.op, resp.err, time.Since(start))
		req.reply <- resp
	}
}

func (l *Launcher) shutdown() error {
	if err := l.local.Persist(l.cache); err != nil {
		l.log.Error("failed to persist local cache", zap.Error(err))
		return fmt.Errorf("persist local cache: %w", err)
	}
	l.log.Info("launcher terminated", zap.Int("local_apps", len(l.cache)))
	return nil
}

// reconcile drops local entries with no shared row. They appear when the
// shared file was recreated empty while this machine kept its cache, and
// would otherwise turn every add of the path into a Duplicate that can
// never be activated.
func (l *Launcher) reconcile(rows []types.SharedAppConfig) {
	for appID, path := range l.cache {
		if types.FindConfig(rows, appID) >= 0 {
			continue
		}
		delete(l.cache, appID)
		l.log.Warn("dropping local entry without shared row",
			zap.String("app_id", appID.String()),
			zap.String("path", path),
			zap.Error(types.ErrLogic))
	}
	l.setLocalApps()
}

func (l *Launcher) setLocalApps() {
	l.localApps.Store(int64(len(l.cache)))
	if l.metrics != nil {
		l.metrics.SetLocalApps(len(l.cache))
	}
}

func (l *Launcher) recordLifecycle(o op, err error, d time.Duration) {
	if l.metrics != nil {
		l.metrics.RecordLifecycle(string(o), monitoring.Outcome(err), d)
	}
}
