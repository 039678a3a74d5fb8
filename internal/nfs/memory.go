package nfs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anon-safe/safe-launcher/internal/shared/id"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
)

type memFile struct {
	data       []byte
	version    uint64
	modifiedAt time.Time
}

type memDir struct {
	info     DirectoryInfo
	parent   string
	files    map[string]*memFile
	children map[string]string // name -> key
}

// MemoryStore is an in-memory Store. It is safe for concurrent use and is
// what the agent serves to its peers when no remote store is configured.
type MemoryStore struct {
	mu         sync.RWMutex
	dirs       map[string]*memDir
	configDirs map[string]string // name -> key
	rootKey    string
	gen        *id.Generator
	now        func() time.Time
}

// NewMemoryStore creates an empty store with a user root directory
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		dirs:       make(map[string]*memDir),
		configDirs: make(map[string]string),
		gen:        id.NewGenerator(),
		now:        time.Now,
	}
	root := s.newDir("", "user-root", DirectoryOptions{Access: AccessPrivate})
	s.rootKey = root.info.Key
	return s
}

// newDir allocates a directory node. Caller must hold mu or be the constructor.
func (s *MemoryStore) newDir(parent, name string, opts DirectoryOptions) *memDir {
	key, err := s.gen.Generate()
	if err != nil {
		// crypto/rand failing leaves nothing sensible to do
		panic(fmt.Sprintf("nfs: generate directory key: %v", err))
	}
	if opts.Access == "" {
		opts.Access = AccessPrivate
	}
	d := &memDir{
		info: DirectoryInfo{
			Key:       key.String(),
			Name:      name,
			Versioned: opts.Versioned,
			Access:    opts.Access,
			CreatedAt: s.now(),
		},
		parent:   parent,
		files:    make(map[string]*memFile),
		children: make(map[string]string),
	}
	s.dirs[d.info.Key] = d
	return d
}

// listing snapshots a directory. Caller must hold mu.
func (s *MemoryStore) listing(d *memDir) *Directory {
	out := &Directory{
		Info:           d.info,
		Files:          make([]FileInfo, 0, len(d.files)),
		SubDirectories: make([]DirectoryInfo, 0, len(d.children)),
	}
	for name, f := range d.files {
		out.Files = append(out.Files, fileInfo(name, f))
	}
	for _, key := range d.children {
		out.SubDirectories = append(out.SubDirectories, s.dirs[key].info)
	}
	sort.Slice(out.Files, func(i, j int) bool { return out.Files[i].Name < out.Files[j].Name })
	sort.Slice(out.SubDirectories, func(i, j int) bool { return out.SubDirectories[i].Name < out.SubDirectories[j].Name })
	return out
}

func fileInfo(name string, f *memFile) FileInfo {
	return FileInfo{
		Name:       name,
		Size:       int64(len(f.data)),
		Version:    f.version,
		ModifiedAt: f.modifiedAt,
	}
}

func (s *MemoryStore) dir(key string) (*memDir, error) {
	d, ok := s.dirs[key]
	if !ok {
		return nil, fmt.Errorf("directory %q: %w", key, types.ErrNotFound)
	}
	return d, nil
}

// ConfigDirectory implements Store
func (s *MemoryStore) ConfigDirectory(ctx context.Context, name string) (*Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.configDirs[name]
	if !ok {
		return nil, fmt.Errorf("configuration directory %q: %w", name, types.ErrNotFound)
	}
	return s.listing(s.dirs[key]), nil
}

// CreateConfigDirectory implements Store
func (s *MemoryStore) CreateConfigDirectory(ctx context.Context, name string) (*Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.configDirs[name]; ok {
		return s.listing(s.dirs[key]), nil
	}
	d := s.newDir("", name, DirectoryOptions{Versioned: true, Access: AccessPrivate})
	s.configDirs[name] = d.info.Key
	return s.listing(d), nil
}

// RootDirectory implements Store
func (s *MemoryStore) RootDirectory(ctx context.Context) (*Directory, error) {
	return s.GetDirectory(ctx, s.rootKey)
}

// GetDirectory implements Store
func (s *MemoryStore) GetDirectory(ctx context.Context, key string) (*Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.dir(key)
	if err != nil {
		return nil, err
	}
	return s.listing(d), nil
}

// CreateDirectory implements Store
func (s *MemoryStore) CreateDirectory(ctx context.Context, parentKey, name string, opts DirectoryOptions) (*Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("directory name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, err := s.dir(parentKey)
	if err != nil {
		return nil, err
	}
	if _, taken := parent.children[name]; taken {
		return nil, fmt.Errorf("directory %q: %w", name, ErrExists)
	}
	d := s.newDir(parentKey, name, opts)
	parent.children[name] = d.info.Key
	return s.listing(d), nil
}

// DeleteDirectory implements Store
func (s *MemoryStore) DeleteDirectory(ctx context.Context, parentKey, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, err := s.dir(parentKey)
	if err != nil {
		return err
	}
	key, ok := parent.children[name]
	if !ok {
		return fmt.Errorf("directory %q: %w", name, types.ErrNotFound)
	}
	delete(parent.children, name)
	s.dropTree(key)
	return nil
}

// dropTree removes a directory and its descendants. Caller must hold mu.
func (s *MemoryStore) dropTree(key string) {
	d, ok := s.dirs[key]
	if !ok {
		return
	}
	for _, child := range d.children {
		s.dropTree(child)
	}
	delete(s.dirs, key)
}

// CreateFile implements Store
func (s *MemoryStore) CreateFile(ctx context.Context, dirKey, name string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.dir(dirKey)
	if err != nil {
		return FileInfo{}, err
	}
	if _, taken := d.files[name]; taken {
		return FileInfo{}, fmt.Errorf("file %q: %w", name, ErrExists)
	}
	f := &memFile{data: []byte{}, version: 1, modifiedAt: s.now()}
	d.files[name] = f
	return fileInfo(name, f), nil
}

// ReadFile implements Store
func (s *MemoryStore) ReadFile(ctx context.Context, dirKey, name string) ([]byte, FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, FileInfo{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.dir(dirKey)
	if err != nil {
		return nil, FileInfo{}, err
	}
	f, ok := d.files[name]
	if !ok {
		return nil, FileInfo{}, fmt.Errorf("file %q: %w", name, types.ErrNotFound)
	}
	data := make([]byte, len(f.data))
	copy(data, f.data)
	return data, fileInfo(name, f), nil
}

// OverwriteFile implements Store
func (s *MemoryStore) OverwriteFile(ctx context.Context, dirKey, name string, data []byte) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.dir(dirKey)
	if err != nil {
		return FileInfo{}, err
	}
	f, ok := d.files[name]
	if !ok {
		return FileInfo{}, fmt.Errorf("file %q: %w", name, types.ErrNotFound)
	}
	f.data = append([]byte(nil), data...)
	f.version++
	f.modifiedAt = s.now()
	return fileInfo(name, f), nil
}
