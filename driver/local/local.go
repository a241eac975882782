// Package local implements the file:// backend on top of afero.
package local

import (
	"context"
	"crypto/md5" //nolint:gosec // md5 is intentionally supported
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"

	"github.com/nuln/jobfs"
)

// Auto-register the local backend driver.
func init() {
	jobfs.Register(jobfs.KindLocal, func(ctx context.Context, opts jobfs.Options) (jobfs.Backend, error) {
		var cfg Config
		if err := mapstructure.Decode(map[string]string(opts), &cfg); err != nil {
			return nil, fmt.Errorf("jobfs/local: decode options: %w", err)
		}
		return New(cfg.Root)
	})
}

// Config holds the local driver options. Host and port of a file://
// address are accepted but not used.
type Config struct {
	// Root confines the backend to a directory; address paths resolve
	// below it. Empty means the filesystem root.
	//
	// A Hub keys local backends by host and port, which file:// addresses
	// leave empty. Once a local backend is cached, connecting again with a
	// different Root returns the cached backend and Root is not applied.
	Root string `mapstructure:"root"`
}

// Engine implements jobfs.Backend for the local filesystem.
type Engine struct {
	fs afero.Fs
}

// New creates a local Engine. A non-empty root is created if missing.
func New(root string) (*Engine, error) {
	if root == "" || root == "/" {
		return &Engine{fs: afero.NewOsFs()}, nil
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absRoot, 0750); err != nil {
		return nil, err
	}
	return &Engine{fs: afero.NewBasePathFs(afero.NewOsFs(), absRoot)}, nil
}

// NewWithFs creates a local Engine backed by a custom afero.Fs.
// This is useful for testing with afero.MemMapFs.
func NewWithFs(fs afero.Fs) *Engine {
	return &Engine{fs: fs}
}

// file adapts afero.File to jobfs.File.
type file struct {
	afero.File
	name string
}

func (f *file) Name() string { return f.name }

func (f *file) Tell() (int64, error) {
	return f.File.Seek(0, io.SeekCurrent)
}

func (f *file) Size() (int64, error) {
	info, err := f.File.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (e *Engine) Open(ctx context.Context, path string, mode jobfs.OpenMode) (jobfs.File, error) {
	if mode == jobfs.WriteMode {
		if err := e.fs.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, err
		}
		f, err := e.fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		return &file{File: f, name: path}, nil
	}

	f, err := e.fs.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("jobfs/local: open %s: %w", path, jobfs.ErrIsDir)
	}
	return &file{File: f, name: path}, nil
}

func (e *Engine) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := e.fs.MkdirAll(filepath.Dir(newPath), 0750); err != nil {
		return err
	}
	return e.fs.Rename(oldPath, newPath)
}

func (e *Engine) Remove(ctx context.Context, path string) error {
	exists, err := afero.Exists(e.fs, path)
	if err != nil {
		return err
	}
	if !exists {
		return &os.PathError{Op: "remove", Path: path, Err: jobfs.ErrNotFound}
	}
	return e.fs.RemoveAll(path)
}

func (e *Engine) List(ctx context.Context, dir string) ([]jobfs.FileInfo, error) {
	f, err := e.fs.Open(dir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	infos, err := f.Readdir(-1)
	if err != nil {
		return nil, err
	}

	result := make([]jobfs.FileInfo, 0, len(infos))
	for _, info := range infos {
		entry := jobfs.FileInfo{
			Kind: jobfs.EntryFile,
			Name: filepath.Join(dir, info.Name()),
			Size: info.Size(),
		}
		if info.IsDir() {
			entry.Kind = jobfs.EntryDir
			entry.Size = 0
		}
		result = append(result, entry)
	}
	return result, nil
}

func (e *Engine) Glob(ctx context.Context, pattern string) ([]jobfs.FileInfo, error) {
	return jobfs.GlobEntries(ctx, e, pattern)
}

func (e *Engine) Mkdirs(ctx context.Context, path string) error {
	return e.fs.MkdirAll(path, 0750)
}

func (e *Engine) Exists(ctx context.Context, path string) (bool, error) {
	return afero.Exists(e.fs, path)
}

// Close is a no-op; the local filesystem holds no connection.
func (e *Engine) Close() error { return nil }

// === Extension: Copier ===

func (e *Engine) Copy(ctx context.Context, src, dst string) error {
	if err := e.fs.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return err
	}
	sf, err := e.fs.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = sf.Close() }()

	df, err := e.fs.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(df, sf); err != nil {
		_ = df.Close()
		return err
	}
	return df.Close()
}

// === Extension: Hasher ===

func (e *Engine) Hash(ctx context.Context, path string, algorithm string) (string, error) {
	var h interface {
		io.Writer
		Sum([]byte) []byte
	}
	switch algorithm {
	case "md5":
		h = md5.New() //nolint:gosec // md5 intentionally supported
	case "sha256":
		h = sha256.New()
	default:
		return "", fmt.Errorf("jobfs/local: unsupported hash algorithm %q: %w", algorithm, jobfs.ErrNotSupported)
	}

	f, err := e.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Compile-time interface checks.
var (
	_ jobfs.Backend = (*Engine)(nil)
	_ jobfs.Copier  = (*Engine)(nil)
	_ jobfs.Hasher  = (*Engine)(nil)
)
