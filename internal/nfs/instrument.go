package nfs

import (
	"context"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/monitoring"
)

// Instrumented records a duration and outcome for every call on the
// wrapped store.
type Instrumented struct {
	next    Store
	metrics *monitoring.Metrics
}

// Instrument wraps store with metrics. A nil metrics returns store unchanged.
func Instrument(store Store, metrics *monitoring.Metrics) Store {
	if metrics == nil {
		return store
	}
	return &Instrumented{next: store, metrics: metrics}
}

func (s *Instrumented) ConfigDirectory(ctx context.Context, name string) (dir *Directory, err error) {
	t := monitoring.NewTimer(s.metrics, "config_directory")
	defer func() { t.Stop(err) }()
	return s.next.ConfigDirectory(ctx, name)
}

func (s *Instrumented) CreateConfigDirectory(ctx context.Context, name string) (dir *Directory, err error) {
	t := monitoring.NewTimer(s.metrics, "create_config_directory")
	defer func() { t.Stop(err) }()
	return s.next.CreateConfigDirectory(ctx, name)
}

func (s *Instrumented) RootDirectory(ctx context.Context) (dir *Directory, err error) {
	t := monitoring.NewTimer(s.metrics, "root_directory")
	defer func() { t.Stop(err) }()
	return s.next.RootDirectory(ctx)
}

func (s *Instrumented) GetDirectory(ctx context.Context, key string) (dir *Directory, err error) {
	t := monitoring.NewTimer(s.metrics, "get_directory")
	defer func() { t.Stop(err) }()
	return s.next.GetDirectory(ctx, key)
}

func (s *Instrumented) CreateDirectory(ctx context.Context, parentKey, name string, opts DirectoryOptions) (dir *Directory, err error) {
	t := monitoring.NewTimer(s.metrics, "create_directory")
	defer func() { t.Stop(err) }()
	return s.next.CreateDirectory(ctx, parentKey, name, opts)
}

func (s *Instrumented) DeleteDirectory(ctx context.Context, parentKey, name string) (err error) {
	t := monitoring.NewTimer(s.metrics, "delete_directory")
	defer func() { t.Stop(err) }()
	return s.next.DeleteDirectory(ctx, parentKey, name)
}

func (s *Instrumented) CreateFile(ctx context.Context, dirKey, name string) (info FileInfo, err error) {
	t := monitoring.NewTimer(s.metrics, "create_file")
	defer func() { t.Stop(err) }()
	return s.next.CreateFile(ctx, dirKey, name)
}

func (s *Instrumented) ReadFile(ctx context.Context, dirKey, name string) (data []byte, info FileInfo, err error) {
	t := monitoring.NewTimer(s.metrics, "read_file")
	defer func() { t.Stop(err) }()
	return s.next.ReadFile(ctx, dirKey, name)
}

func (s *Instrumented) OverwriteFile(ctx context.Context, dirKey, name string, data []byte) (info FileInfo, err error) {
	t := monitoring.NewTimer(s.metrics, "overwrite_file")
	defer func() { t.Stop(err) }()
	return s.next.OverwriteFile(ctx, dirKey, name, data)
}
