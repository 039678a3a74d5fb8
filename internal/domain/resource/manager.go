// Package resource manages the per-application root directories in the
// user root of the networked store.
package resource

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/logging"
	"github.com/anon-safe/safe-launcher/internal/nfs"
	"github.com/anon-safe/safe-launcher/internal/shared/paths"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
)

// Allocation is the result of AllocateOrReuse
type Allocation struct {
	Key    string
	Name   string
	Reused bool
}

// ReusableFunc reports whether an existing root directory may be taken
// over by the application being registered. Returning false marks the
// directory as belonging to a different application.
type ReusableFunc func(dir nfs.DirectoryInfo) bool

// Manager allocates and reclaims root directories
type Manager struct {
	store nfs.Store
	log   *logging.Logger
}

// NewManager creates a resource manager over store
func NewManager(store nfs.Store, log *logging.Logger) *Manager {
	return &Manager{store: store, log: log.Component("resource")}
}

// AllocateOrReuse walks the candidate names <app>-0-Root-Dir,
// <app>-1-Root-Dir, ... and stops at the first name that is either free
// or held by a reusable directory. A free name gets a new private,
// unversioned directory.
func (m *Manager) AllocateOrReuse(ctx context.Context, appName string, reusable ReusableFunc) (Allocation, error) {
	if appName == "" {
		return Allocation{}, types.ErrInvalidPath
	}

	root, err := m.store.RootDirectory(ctx)
	if err != nil {
		return Allocation{}, fmt.Errorf("list user root: %w", err)
	}

	// Every skipped name is an existing sibling, so the walk ends within
	// len(SubDirectories)+1 steps.
	for n := 0; n <= len(root.SubDirectories); n++ {
		name := paths.RootDirName(appName, n)

		existing, taken := root.FindSubDirectory(name)
		if !taken {
			dir, err := m.store.CreateDirectory(ctx, root.Info.Key, name, nfs.DirectoryOptions{
				Versioned: false,
				Access:    nfs.AccessPrivate,
			})
			if err != nil {
				return Allocation{}, fmt.Errorf("create root directory %s: %w", name, err)
			}
			m.log.Info("root directory created", zap.String("name", name), zap.String("key", dir.Info.Key))
			return Allocation{Key: dir.Info.Key, Name: name}, nil
		}

		if reusable != nil && reusable(existing) {
			m.log.Info("root directory reused", zap.String("name", name), zap.String("key", existing.Key))
			return Allocation{Key: existing.Key, Name: name, Reused: true}, nil
		}
	}

	return Allocation{}, fmt.Errorf("no free root directory name for %q: %w", appName, types.ErrLogic)
}

// Reclaim deletes the root directory with the given key
func (m *Manager) Reclaim(ctx context.Context, key string) error {
	dir, err := m.store.GetDirectory(ctx, key)
	if err != nil {
		return fmt.Errorf("resolve root directory %s: %w", key, err)
	}

	root, err := m.store.RootDirectory(ctx)
	if err != nil {
		return fmt.Errorf("list user root: %w", err)
	}
	child, ok := root.FindSubDirectory(dir.Info.Name)
	if !ok || child.Key != key {
		return fmt.Errorf("directory %s is not a child of the user root: %w", key, types.ErrLogic)
	}

	if err := m.store.DeleteDirectory(ctx, root.Info.Key, dir.Info.Name); err != nil {
		return fmt.Errorf("delete root directory %s: %w", dir.Info.Name, err)
	}
	m.log.Info("root directory reclaimed", zap.String("name", dir.Info.Name), zap.String("key", key))
	return nil
}

// IsGone reports whether a Reclaim error means the directory no longer exists
func IsGone(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
