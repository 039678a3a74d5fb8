// Package sharedconfig reads and writes the launcher configuration shared
// by every agent of one user: a single file in a well-known configuration
// directory of the networked store, holding one row per registered
// application.
//
// Every operation is a full read-modify-write of the file. There is no
// compare-and-swap, so writers from different agents can lose updates.
package sharedconfig

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/anon-safe/safe-launcher/internal/domain/resource"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/logging"
	"github.com/anon-safe/safe-launcher/internal/nfs"
	"github.com/anon-safe/safe-launcher/internal/shared/id"
	"github.com/anon-safe/safe-launcher/internal/shared/paths"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
)

// Reclaimer deletes a root directory once nothing references it
type Reclaimer interface {
	Reclaim(ctx context.Context, key string) error
}

// Names locates the shared file
type Names struct {
	Directory string
	File      string
}

// DefaultNames returns the well-known names
func DefaultNames() Names {
	return Names{Directory: paths.GlobalDirectoryName, File: paths.GlobalConfigFileName}
}

// Removal is the result of RemoveOrDecrement
type Removal struct {
	Row       types.SharedAppConfig
	Reclaimed bool
}

// Store is the shared configuration file
type Store struct {
	nfs       nfs.Store
	reclaimer Reclaimer
	names     Names
	log       *logging.Logger
}

// New creates a shared configuration store
func New(store nfs.Store, reclaimer Reclaimer, names Names, log *logging.Logger) *Store {
	if names.Directory == "" {
		names.Directory = paths.GlobalDirectoryName
	}
	if names.File == "" {
		names.File = paths.GlobalConfigFileName
	}
	return &Store{nfs: store, reclaimer: reclaimer, names: names, log: log.Component("sharedconfig")}
}

// Fetch reads every row. An empty file is an empty list. A missing
// directory or file fails with types.ErrNotFound.
func (s *Store) Fetch(ctx context.Context) ([]types.SharedAppConfig, *nfs.Directory, error) {
	dir, err := s.nfs.ConfigDirectory(ctx, s.names.Directory)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve %s: %w", s.names.Directory, err)
	}
	if _, ok := dir.FindFile(s.names.File); !ok {
		return nil, nil, fmt.Errorf("locate %s: %w", s.names.File, types.ErrNotFound)
	}

	data, _, err := s.nfs.ReadFile(ctx, dir.Info.Key, s.names.File)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", s.names.File, err)
	}

	rows, err := decode(data)
	if err != nil {
		return nil, nil, err
	}
	return rows, dir, nil
}

// Upsert replaces the row with the same AppID, or appends it
func (s *Store) Upsert(ctx context.Context, row types.SharedAppConfig) error {
	rows, dir, err := s.Fetch(ctx)
	if err != nil {
		return err
	}

	if i := types.FindConfig(rows, row.AppID); i >= 0 {
		rows[i] = row
	} else {
		rows = append(rows, row)
	}

	if err := s.write(ctx, dir, rows); err != nil {
		return err
	}
	s.log.Debug("shared config upserted",
		zap.String("app_id", row.AppID.String()),
		zap.Uint32("reference_count", row.ReferenceCount))
	return nil
}

// RemoveOrDecrement drops one reference to appID. At zero the root
// directory is reclaimed first and the row removed after, so a failed
// reclaim leaves the row in place for a retry. A directory already gone is
// not an error. An unknown appID fails with types.ErrLogic. Removal.Row is
// set only once the file has been written.
func (s *Store) RemoveOrDecrement(ctx context.Context, appID id.AppID) (Removal, error) {
	rows, dir, err := s.Fetch(ctx)
	if err != nil {
		return Removal{}, err
	}

	i := types.FindConfig(rows, appID)
	if i < 0 {
		return Removal{}, fmt.Errorf("no shared config row for %s: %w", appID, types.ErrLogic)
	}

	row := rows[i]
	if row.ReferenceCount > 0 {
		row.ReferenceCount--
	}

	if row.ReferenceCount > 0 {
		rows[i] = row
		if err := s.write(ctx, dir, rows); err != nil {
			return Removal{}, err
		}
		return Removal{Row: row}, nil
	}

	if err := s.reclaimer.Reclaim(ctx, row.AppRootDirKey); err != nil {
		if !resource.IsGone(err) {
			return Removal{}, fmt.Errorf("reclaim root directory of %s: %w", appID, err)
		}
		s.log.Warn("root directory already gone",
			zap.String("app_id", appID.String()),
			zap.String("key", row.AppRootDirKey))
	}

	rows = append(rows[:i], rows[i+1:]...)
	if err := s.write(ctx, dir, rows); err != nil {
		return Removal{}, err
	}
	return Removal{Row: row, Reclaimed: true}, nil
}

// Provision creates the configuration directory and an empty file if
// either is missing
func (s *Store) Provision(ctx context.Context) error {
	dir, err := s.nfs.ConfigDirectory(ctx, s.names.Directory)
	if errors.Is(err, types.ErrNotFound) {
		dir, err = s.nfs.CreateConfigDirectory(ctx, s.names.Directory)
		if err == nil {
			s.log.Info("configuration directory created", zap.String("name", s.names.Directory))
		}
	}
	if err != nil {
		return fmt.Errorf("provision %s: %w", s.names.Directory, err)
	}

	if _, ok := dir.FindFile(s.names.File); ok {
		return nil
	}
	if _, err := s.nfs.CreateFile(ctx, dir.Info.Key, s.names.File); err != nil && !errors.Is(err, nfs.ErrExists) {
		return fmt.Errorf("provision %s: %w", s.names.File, err)
	}
	s.log.Info("shared config file created", zap.String("name", s.names.File))
	return nil
}

func (s *Store) write(ctx context.Context, dir *nfs.Directory, rows []types.SharedAppConfig) error {
	data, err := encode(rows)
	if err != nil {
		return err
	}
	if _, err := s.nfs.OverwriteFile(ctx, dir.Info.Key, s.names.File, data); err != nil {
		return fmt.Errorf("write %s: %w", s.names.File, err)
	}
	return nil
}

func encode(rows []types.SharedAppConfig) ([]byte, error) {
	if rows == nil {
		rows = []types.SharedAppConfig{}
	}
	data, err := sonic.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode shared config: %w", err)
	}
	return data, nil
}

func decode(data []byte) ([]types.SharedAppConfig, error) {
	if len(data) == 0 {
		return []types.SharedAppConfig{}, nil
	}
	var rows []types.SharedAppConfig
	if err := sonic.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode shared config: %w", err)
	}
	if rows == nil {
		rows = []types.SharedAppConfig{}
	}
	return rows, nil
}
