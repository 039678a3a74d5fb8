// Package client provides the handle shared by everything that talks to
// the crypto key and the networked store.
//
// Only one call is ever in flight through a Handle. Every forwarding
// method holds the lock for exactly that call and releases it before
// returning, so a sequence of calls may interleave with other users.
package client

import (
	"context"
	"sync"

	"github.com/anon-safe/safe-launcher/internal/nfs"
)

// Cipher is the hybrid encryption capability of a Handle
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Handle guards a cipher and a store behind one mutex
type Handle struct {
	mu     sync.Mutex
	cipher Cipher
	store  nfs.Store
}

// New creates a handle
func New(cipher Cipher, store nfs.Store) *Handle {
	return &Handle{cipher: cipher, store: store}
}

// HybridEncrypt encrypts plaintext under the handle's key
func (h *Handle) HybridEncrypt(plaintext []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cipher.Encrypt(plaintext)
}

// HybridDecrypt decrypts a payload produced by HybridEncrypt
func (h *Handle) HybridDecrypt(ciphertext []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cipher.Decrypt(ciphertext)
}

// Store returns a view of the store whose every call holds the handle's lock
func (h *Handle) Store() nfs.Store {
	return lockedStore{h: h}
}

type lockedStore struct {
	h *Handle
}

func (s lockedStore) ConfigDirectory(ctx context.Context, name string) (*nfs.Directory, error) {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	return s.h.store.ConfigDirectory(ctx, name)
}

func (s lockedStore) CreateConfigDirectory(ctx context.Context, name string) (*nfs.Directory, error) {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	return s.h.store.CreateConfigDirectory(ctx, name)
}

func (s lockedStore) RootDirectory(ctx context.Context) (*nfs.Directory, error) {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	return s.h.store.RootDirectory(ctx)
}

func (s lockedStore) GetDirectory(ctx context.Context, key string) (*nfs.Directory, error) {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	return s.h.store.GetDirectory(ctx, key)
}

func (s lockedStore) CreateDirectory(ctx context.Context, parentKey, name string, opts nfs.DirectoryOptions) (*nfs.Directory, error) {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	return s.h.store.CreateDirectory(ctx, parentKey, name, opts)
}

func (s lockedStore) DeleteDirectory(ctx context.Context, parentKey, name string) error {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	return s.h.store.DeleteDirectory(ctx, parentKey, name)
}

func (s lockedStore) CreateFile(ctx context.Context, dirKey, name string) (nfs.FileInfo, error) {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	return s.h.store.CreateFile(ctx, dirKey, name)
}

func (s lockedStore) ReadFile(ctx context.Context, dirKey, name string) ([]byte, nfs.FileInfo, error) {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	return s.h.store.ReadFile(ctx, dirKey, name)
}

func (s lockedStore) OverwriteFile(ctx context.Context, dirKey, name string, data []byte) (nfs.FileInfo, error) {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	return s.h.store.OverwriteFile(ctx, dirKey, name, data)
}
