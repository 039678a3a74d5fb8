// Package localcache keeps the machine-local mapping from application id
// to launch path.
//
// The mapping is a best-effort optimisation, never a source of truth for
// shared data: Load degrades to an empty mapping on any failure and
// Persist overwrites the whole file. On disk the mapping is JSON,
// zstd-compressed, then sealed with the launcher's hybrid cipher.
package localcache

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zstd"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/logging"
	"github.com/anon-safe/safe-launcher/internal/shared/id"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
)

// Cipher seals and opens the persisted blob
type Cipher interface {
	HybridEncrypt(plaintext []byte) ([]byte, error)
	HybridDecrypt(ciphertext []byte) ([]byte, error)
}

// Cache maps application ids to absolute launch paths on this machine
type Cache map[id.AppID]string

// FindPath returns the id registered for path, if any
func (c Cache) FindPath(path string) (id.AppID, bool) {
	for appID, p := range c {
		if p == path {
			return appID, true
		}
	}
	return "", false
}

// IDs returns the registered ids in sorted order
func (c Cache) IDs() []id.AppID {
	ids := make([]id.AppID, 0, len(c))
	for appID := range c {
		ids = append(ids, appID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// Store reads and writes the cache file
type Store struct {
	path   string
	cipher Cipher
	log    *logging.Logger
}

// NewStore creates a store for the file at path
func NewStore(path string, cipher Cipher, log *logging.Logger) *Store {
	return &Store{path: path, cipher: cipher, log: log.Component("localcache")}
}

// Path returns the cache file location
func (s *Store) Path() string {
	return s.path
}

// Load reads the cache. A missing or empty file yields an empty cache.
// Unreadable, undecryptable or undecodable content is logged and also
// yields an empty cache.
func (s *Store) Load() Cache {
	cache, err := s.read()
	if err != nil {
		s.log.Warn("starting with empty local cache",
			zap.String("path", s.path),
			zap.Error(err))
		return make(Cache)
	}
	s.log.Debug("local cache loaded", zap.Int("apps", len(cache)))
	return cache
}

func (s *Store) read() (Cache, error) {
	blob, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(Cache), nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(blob) == 0 {
		return make(Cache), nil
	}

	compressed, err := s.cipher.HybridDecrypt(blob)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %v: %w", err, types.ErrCorrupted)
	}
	plain, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: %v: %w", err, types.ErrCorrupted)
	}

	var entries map[string]string
	if err := sonic.Unmarshal(plain, &entries); err != nil {
		return nil, fmt.Errorf("decode: %v: %w", err, types.ErrCorrupted)
	}
	cache := make(Cache, len(entries))
	for appID, path := range entries {
		cache[id.AppID(appID)] = path
	}
	return cache, nil
}

// Persist encodes, encrypts and atomically replaces the cache file. The
// write is synced before Persist returns.
func (s *Store) Persist(cache Cache) error {
	entries := make(map[string]string, len(cache))
	for appID, path := range cache {
		entries[string(appID)] = path
	}
	plain, err := sonic.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode local cache: %w", err)
	}
	blob, err := s.cipher.HybridEncrypt(encoder.EncodeAll(plain, nil))
	if err != nil {
		return fmt.Errorf("encrypt local cache: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(blob)); err != nil {
		return fmt.Errorf("write local cache %s: %w", s.path, err)
	}
	s.log.Debug("local cache persisted", zap.Int("apps", len(cache)), zap.String("path", s.path))
	return nil
}
