package nfs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/logging"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/resilience"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/tracing"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
)

// Headers carrying file metadata on raw content responses
const (
	HeaderFileVersion  = "X-File-Version"
	HeaderFileSize     = "X-File-Size"
	HeaderFileModified = "X-File-Modified"
)

// RemoteConfig configures a RemoteStore
type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
	Breaker resilience.Settings
}

// RemoteStore is a Store backed by a peer serving the REST surface of Server.
// Requests are never retried: a failed call surfaces to the caller at once.
type RemoteStore struct {
	client  *resty.Client
	breaker *resilience.Breaker
	log     *logging.Logger
}

type errorBody struct {
	Error string `json:"error"`
}

// NewRemoteStore creates a client for the store served at cfg.BaseURL
func NewRemoteStore(cfg RemoteConfig, log *logging.Logger) *RemoteStore {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	log = log.Component("nfs.remote")

	settings := cfg.Breaker
	if settings.IsSuccessful == nil {
		// Not-found and conflict answers come from a healthy peer
		settings.IsSuccessful = func(err error) bool {
			return err == nil || errors.Is(err, types.ErrNotFound) || errors.Is(err, ErrExists)
		}
	}
	if settings.OnStateChange == nil {
		settings.OnStateChange = func(name string, from, to resilience.State) {
			log.Warn("store breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		}
	}

	client := tracing.Propagate(resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "safe-launcher/1.0").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal))

	return &RemoteStore{
		client:  client,
		breaker: resilience.New("nfs:"+cfg.BaseURL, settings),
		log:     log,
	}
}

// do runs one request through the breaker and maps status codes to errors
func (s *RemoteStore) do(ctx context.Context, what string, build func(*resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	var resp *resty.Response
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		req := s.client.R().SetContext(ctx).SetError(&errorBody{})
		r, err := build(req)
		if err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		resp = r
		return statusError(what, r)
	})
	return resp, err
}

func statusError(what string, resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	msg := resp.Status()
	if body, ok := resp.Error().(*errorBody); ok && body.Error != "" {
		msg = body.Error
	}
	switch resp.StatusCode() {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %s: %w", what, msg, types.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: %s: %w", what, msg, ErrExists)
	default:
		return fmt.Errorf("%s: peer returned %d: %s", what, resp.StatusCode(), msg)
	}
}

func (s *RemoteStore) directory(ctx context.Context, what string, build func(*resty.Request) (*resty.Response, error)) (*Directory, error) {
	var dir Directory
	_, err := s.do(ctx, what, func(req *resty.Request) (*resty.Response, error) {
		return build(req.SetResult(&dir))
	})
	if err != nil {
		return nil, err
	}
	return &dir, nil
}

// ConfigDirectory implements Store
func (s *RemoteStore) ConfigDirectory(ctx context.Context, name string) (*Directory, error) {
	return s.directory(ctx, "get configuration directory", func(req *resty.Request) (*resty.Response, error) {
		return req.SetPathParam("name", name).Get("/v1/config-dirs/{name}")
	})
}

// CreateConfigDirectory implements Store
func (s *RemoteStore) CreateConfigDirectory(ctx context.Context, name string) (*Directory, error) {
	return s.directory(ctx, "create configuration directory", func(req *resty.Request) (*resty.Response, error) {
		return req.SetBody(map[string]string{"name": name}).Post("/v1/config-dirs")
	})
}

// RootDirectory implements Store
func (s *RemoteStore) RootDirectory(ctx context.Context) (*Directory, error) {
	return s.directory(ctx, "get root directory", func(req *resty.Request) (*resty.Response, error) {
		return req.Get("/v1/root")
	})
}

// GetDirectory implements Store
func (s *RemoteStore) GetDirectory(ctx context.Context, key string) (*Directory, error) {
	return s.directory(ctx, "get directory", func(req *resty.Request) (*resty.Response, error) {
		return req.SetPathParam("key", key).Get("/v1/dirs/{key}")
	})
}

// CreateDirectory implements Store
func (s *RemoteStore) CreateDirectory(ctx context.Context, parentKey, name string, opts DirectoryOptions) (*Directory, error) {
	body := createDirectoryRequest{Name: name, Versioned: opts.Versioned, Access: opts.Access}
	return s.directory(ctx, "create directory", func(req *resty.Request) (*resty.Response, error) {
		return req.SetPathParam("key", parentKey).SetBody(body).Post("/v1/dirs/{key}/children")
	})
}

// DeleteDirectory implements Store
func (s *RemoteStore) DeleteDirectory(ctx context.Context, parentKey, name string) error {
	_, err := s.do(ctx, "delete directory", func(req *resty.Request) (*resty.Response, error) {
		return req.SetPathParams(map[string]string{"key": parentKey, "name": name}).
			Delete("/v1/dirs/{key}/children/{name}")
	})
	return err
}

// CreateFile implements Store
func (s *RemoteStore) CreateFile(ctx context.Context, dirKey, name string) (FileInfo, error) {
	var info FileInfo
	_, err := s.do(ctx, "create file", func(req *resty.Request) (*resty.Response, error) {
		return req.SetPathParam("key", dirKey).
			SetBody(map[string]string{"name": name}).
			SetResult(&info).
			Post("/v1/dirs/{key}/files")
	})
	return info, err
}

// ReadFile implements Store
func (s *RemoteStore) ReadFile(ctx context.Context, dirKey, name string) ([]byte, FileInfo, error) {
	resp, err := s.do(ctx, "read file", func(req *resty.Request) (*resty.Response, error) {
		return req.SetPathParams(map[string]string{"key": dirKey, "name": name}).
			Get("/v1/dirs/{key}/files/{name}")
	})
	if err != nil {
		return nil, FileInfo{}, err
	}
	info, err := fileInfoFromHeaders(name, resp.Header())
	if err != nil {
		return nil, FileInfo{}, fmt.Errorf("read file: %w", err)
	}
	return resp.Body(), info, nil
}

// OverwriteFile implements Store
func (s *RemoteStore) OverwriteFile(ctx context.Context, dirKey, name string, data []byte) (FileInfo, error) {
	var info FileInfo
	_, err := s.do(ctx, "overwrite file", func(req *resty.Request) (*resty.Response, error) {
		return req.SetPathParams(map[string]string{"key": dirKey, "name": name}).
			SetHeader("Content-Type", "application/octet-stream").
			SetBody(data).
			SetResult(&info).
			Put("/v1/dirs/{key}/files/{name}")
	})
	return info, err
}

func fileInfoFromHeaders(name string, h http.Header) (FileInfo, error) {
	info := FileInfo{Name: name}
	var err error
	if v := h.Get(HeaderFileVersion); v != "" {
		if info.Version, err = strconv.ParseUint(v, 10, 64); err != nil {
			return FileInfo{}, fmt.Errorf("bad %s header: %w", HeaderFileVersion, err)
		}
	}
	if v := h.Get(HeaderFileSize); v != "" {
		if info.Size, err = strconv.ParseInt(v, 10, 64); err != nil {
			return FileInfo{}, fmt.Errorf("bad %s header: %w", HeaderFileSize, err)
		}
	}
	if v := h.Get(HeaderFileModified); v != "" {
		if info.ModifiedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return FileInfo{}, fmt.Errorf("bad %s header: %w", HeaderFileModified, err)
		}
	}
	return info, nil
}

type createDirectoryRequest struct {
	Name      string      `json:"name" binding:"required"`
	Versioned bool        `json:"versioned"`
	Access    AccessLevel `json:"access"`
}
