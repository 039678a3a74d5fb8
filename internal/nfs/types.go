package nfs

import (
	"context"
	"errors"
	"time"
)

// ErrExists is returned when creating a directory or file whose name is taken
var ErrExists = errors.New("already exists")

// AccessLevel controls who may read a directory
type AccessLevel string

const (
	AccessPrivate AccessLevel = "private"
	AccessPublic  AccessLevel = "public"
)

// DirectoryInfo describes a directory without its contents
type DirectoryInfo struct {
	Key       string      `json:"key"`
	Name      string      `json:"name"`
	Versioned bool        `json:"versioned"`
	Access    AccessLevel `json:"access"`
	CreatedAt time.Time   `json:"created_at"`
}

// FileInfo describes a file. Version increases on every overwrite.
type FileInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Version    uint64    `json:"version"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Directory is a directory listing
type Directory struct {
	Info           DirectoryInfo   `json:"info"`
	Files          []FileInfo      `json:"files"`
	SubDirectories []DirectoryInfo `json:"sub_directories"`
}

// FindFile looks up a file in the listing by name
func (d *Directory) FindFile(name string) (FileInfo, bool) {
	for _, f := range d.Files {
		if f.Name == name {
			return f, true
		}
	}
	return FileInfo{}, false
}

// FindSubDirectory looks up a child directory in the listing by name
func (d *Directory) FindSubDirectory(name string) (DirectoryInfo, bool) {
	for _, sub := range d.SubDirectories {
		if sub.Name == name {
			return sub, true
		}
	}
	return DirectoryInfo{}, false
}

// DirectoryOptions configures a new directory
type DirectoryOptions struct {
	Versioned bool        `json:"versioned"`
	Access    AccessLevel `json:"access"`
}

// Store is the networked directory and file abstraction. Implementations
// return errors wrapping types.ErrNotFound for missing directories or files.
type Store interface {
	// ConfigDirectory returns the well-known configuration directory name
	ConfigDirectory(ctx context.Context, name string) (*Directory, error)
	// CreateConfigDirectory creates a configuration directory, or returns
	// the existing one
	CreateConfigDirectory(ctx context.Context, name string) (*Directory, error)
	// RootDirectory returns the user root directory
	RootDirectory(ctx context.Context) (*Directory, error)
	// GetDirectory resolves a directory by key
	GetDirectory(ctx context.Context, key string) (*Directory, error)
	// CreateDirectory creates a child of parentKey
	CreateDirectory(ctx context.Context, parentKey, name string, opts DirectoryOptions) (*Directory, error)
	// DeleteDirectory deletes the named child of parentKey and everything below it
	DeleteDirectory(ctx context.Context, parentKey, name string) error
	// CreateFile creates an empty file in dirKey
	CreateFile(ctx context.Context, dirKey, name string) (FileInfo, error)
	// ReadFile returns the whole content of a file
	ReadFile(ctx context.Context, dirKey, name string) ([]byte, FileInfo, error)
	// OverwriteFile replaces the whole content of an existing file
	OverwriteFile(ctx context.Context, dirKey, name string, data []byte) (FileInfo, error)
}
