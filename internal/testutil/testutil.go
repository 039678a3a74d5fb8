// Package testutil provides mocks and fixtures shared by the launcher tests.
package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anon-safe/safe-launcher/internal/client"
	"github.com/anon-safe/safe-launcher/internal/crypto"
	"github.com/anon-safe/safe-launcher/internal/nfs"
	"github.com/anon-safe/safe-launcher/internal/shared/id"
	"github.com/anon-safe/safe-launcher/internal/shared/paths"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
)

// MockNotifier is a mock implementation of the IPC boundary.
type MockNotifier struct {
	mock.Mock
}

// ListenerEndpoint mocks the ListenerEndpoint method.
func (m *MockNotifier) ListenerEndpoint(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// AppActivated mocks the AppActivated method.
func (m *MockNotifier) AppActivated(ctx context.Context, ticket types.ActivationTicket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

// AppTerminated mocks the AppTerminated method.
func (m *MockNotifier) AppTerminated(ctx context.Context, appID id.AppID) error {
	args := m.Called(ctx, appID)
	return args.Error(0)
}

// NewMockNotifier creates a notifier that reports endpoint and accepts
// every event.
func NewMockNotifier(t *testing.T, endpoint string) *MockNotifier {
	t.Helper()
	m := new(MockNotifier)

	m.On("ListenerEndpoint", mock.Anything).Return(endpoint, nil).Maybe()
	m.On("AppActivated", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("AppTerminated", mock.Anything, mock.Anything).Return(nil).Maybe()

	return m
}

// SpawnCall records one Spawn invocation.
type SpawnCall struct {
	Path string
	Args []string
}

// RecordingSpawner records spawns instead of starting processes.
type RecordingSpawner struct {
	mu    sync.Mutex
	calls []SpawnCall
	Err   error
}

// Spawn implements activation.Spawner.
func (s *RecordingSpawner) Spawn(path string, args []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.calls = append(s.calls, SpawnCall{Path: path, Args: append([]string(nil), args...)})
	return nil
}

// Calls returns a copy of the recorded spawns.
func (s *RecordingSpawner) Calls() []SpawnCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SpawnCall(nil), s.calls...)
}

// NewHandle creates a client handle with a fresh key over store.
func NewHandle(t *testing.T, store nfs.Store) *client.Handle {
	t.Helper()
	box, err := crypto.NewBox()
	require.NoError(t, err)
	return client.New(box, store)
}

// NewProvisionedStore creates a memory store holding the well-known
// configuration directory and an empty shared config file.
func NewProvisionedStore(t *testing.T) *nfs.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := nfs.NewMemoryStore()

	dir, err := store.CreateConfigDirectory(ctx, paths.GlobalDirectoryName)
	require.NoError(t, err)
	_, err = store.CreateFile(ctx, dir.Info.Key, paths.GlobalConfigFileName)
	require.NoError(t, err)

	return store
}

// FailingStore wraps a store and fails file overwrites or directory
// deletes on demand. Every other call goes to the wrapped store.
type FailingStore struct {
	nfs.Store

	mu           sync.Mutex
	overwriteErr error
	deleteErr    error
}

// NewFailingStore wraps store. Nothing fails until configured.
func NewFailingStore(store nfs.Store) *FailingStore {
	return &FailingStore{Store: store}
}

// FailOverwrite makes every OverwriteFile return err; nil restores it.
func (s *FailingStore) FailOverwrite(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overwriteErr = err
}

// FailDelete makes every DeleteDirectory return err; nil restores it.
func (s *FailingStore) FailDelete(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErr = err
}

// OverwriteFile implements nfs.Store.
func (s *FailingStore) OverwriteFile(ctx context.Context, dirKey, name string, data []byte) (nfs.FileInfo, error) {
	s.mu.Lock()
	err := s.overwriteErr
	s.mu.Unlock()
	if err != nil {
		return nfs.FileInfo{}, err
	}
	return s.Store.OverwriteFile(ctx, dirKey, name, data)
}

// DeleteDirectory implements nfs.Store.
func (s *FailingStore) DeleteDirectory(ctx context.Context, parentKey, name string) error {
	s.mu.Lock()
	err := s.deleteErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.DeleteDirectory(ctx, parentKey, name)
}
