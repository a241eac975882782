// Package hdfs implements the hdfs:// backend. Connections go through
// rclone's HDFS backend, with the address host and port naming the
// namenode.
package hdfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	_ "github.com/rclone/rclone/backend/hdfs"
	"github.com/rclone/rclone/fs"
	"github.com/rclone/rclone/fs/hash"
	"github.com/rclone/rclone/fs/operations"
	rcloneWalk "github.com/rclone/rclone/fs/walk"

	"github.com/nuln/jobfs"
)

// DefaultPort is the namenode RPC port used when an address has none.
const DefaultPort = "8020"

// Auto-register the hdfs backend driver.
func init() {
	jobfs.Register(jobfs.KindDFS, func(ctx context.Context, opts jobfs.Options) (jobfs.Backend, error) {
		remote, err := ConnectionString(opts)
		if err != nil {
			return nil, err
		}
		return NewWithRemote(ctx, remote)
	})
}

// Config is the decoded form of the driver options.
type Config struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`

	// Extra holds further rclone hdfs options such as
	// service_principal_name or data_transfer_protection.
	Extra map[string]any `mapstructure:",remain"`
}

// ConnectionString builds the rclone connection string for opts. Without
// a host the namenode is left to rclone's environment configuration
// (RCLONE_HDFS_NAMENODE).
func ConnectionString(opts jobfs.Options) (string, error) {
	var cfg Config
	if err := mapstructure.Decode(map[string]string(opts), &cfg); err != nil {
		return "", fmt.Errorf("jobfs/hdfs: decode options: %w", err)
	}
	if cfg.Password != "" {
		return "", fmt.Errorf("jobfs/hdfs: password authentication: %w (use service_principal_name)", jobfs.ErrNotSupported)
	}

	var b strings.Builder
	b.WriteString(":hdfs")
	if cfg.Host != "" {
		port := cfg.Port
		if port == "" {
			port = DefaultPort
		}
		writeParam(&b, "namenode", cfg.Host+":"+port)
	}
	if cfg.User != "" {
		writeParam(&b, "username", cfg.User)
	}

	keys := make([]string, 0, len(cfg.Extra))
	for k := range cfg.Extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !validParamName(k) {
			return "", fmt.Errorf("jobfs/hdfs: invalid option name %q: %w", k, jobfs.ErrInvalid)
		}
		writeParam(&b, k, fmt.Sprint(cfg.Extra[k]))
	}

	b.WriteString(":/")
	return b.String(), nil
}

// writeParam appends ,name='value' with quotes in value doubled.
func writeParam(b *strings.Builder, name, value string) {
	b.WriteString(",")
	b.WriteString(name)
	b.WriteString("='")
	b.WriteString(strings.ReplaceAll(value, "'", "''"))
	b.WriteString("'")
}

func validParamName(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}

// Engine implements jobfs.Backend on top of an rclone fs.Fs.
type Engine struct {
	remote fs.Fs

	closeOnce sync.Once
	closeErr  error
}

// NewWithRemote creates an Engine for any rclone remote, e.g.
// ":hdfs,namenode='nn:8020':/". Tests use ":local:" remotes.
func NewWithRemote(ctx context.Context, remote string) (*Engine, error) {
	f, err := fs.NewFs(ctx, remote)
	if err != nil {
		return nil, fmt.Errorf("jobfs/hdfs: connect %s: %w", remote, err)
	}
	return &Engine{remote: f}, nil
}

// rel converts an address path to an rclone remote path.
func rel(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// abs converts an rclone remote path back to an address path.
func abs(remote string) string {
	return path.Join("/", remote)
}

func (e *Engine) Open(ctx context.Context, p string, mode jobfs.OpenMode) (jobfs.File, error) {
	if mode == jobfs.WriteMode {
		return &writeFile{engine: e, ctx: ctx, name: p, remote: rel(p)}, nil
	}

	obj, err := e.remote.NewObject(ctx, rel(p))
	if err != nil {
		return nil, convertError(err)
	}

	// Rclone objects don't natively support Seek. Download to a temp file.
	tmp, err := os.CreateTemp("", "jobfs-hdfs-*")
	if err != nil {
		return nil, err
	}
	discard := func(err error) (jobfs.File, error) {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, err
	}

	rc, err := obj.Open(ctx)
	if err != nil {
		return discard(err)
	}
	_, err = io.Copy(tmp, rc)
	_ = rc.Close()
	if err != nil {
		return discard(err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return discard(err)
	}
	return &readFile{File: tmp, name: p}, nil
}

func (e *Engine) Rename(ctx context.Context, oldPath, newPath string) error {
	src, dst := rel(oldPath), rel(newPath)
	if _, err := e.remote.NewObject(ctx, src); err == nil {
		return convertError(operations.MoveFile(ctx, e.remote, e.remote, dst, src))
	}
	mover, ok := e.remote.(fs.DirMover)
	if !ok {
		return fmt.Errorf("jobfs/hdfs: rename directory %s: %w", oldPath, jobfs.ErrNotSupported)
	}
	return convertError(mover.DirMove(ctx, e.remote, src, dst))
}

func (e *Engine) Remove(ctx context.Context, p string) error {
	r := rel(p)
	obj, err := e.remote.NewObject(ctx, r)
	if err == nil {
		return convertError(obj.Remove(ctx))
	}
	if r == "" {
		return fmt.Errorf("jobfs/hdfs: refusing to remove the root: %w", jobfs.ErrInvalid)
	}
	return convertError(operations.Purge(ctx, e.remote, r))
}

func (e *Engine) List(ctx context.Context, dir string) ([]jobfs.FileInfo, error) {
	entries, err := e.remote.List(ctx, rel(dir))
	if err != nil {
		return nil, convertError(err)
	}
	result := make([]jobfs.FileInfo, 0, len(entries))
	for _, entry := range entries {
		result = append(result, fileInfo(entry))
	}
	return result, nil
}

// Glob walks natively with rclone instead of listing directory by
// directory through jobfs.GlobEntries.
func (e *Engine) Glob(ctx context.Context, pattern string) ([]jobfs.FileInfo, error) {
	dir, depth := jobfs.GlobBase(pattern)
	root := rel(dir)

	var matches []jobfs.FileInfo
	err := rcloneWalk.Walk(ctx, e.remote, root, true, depth, func(walkPath string, entries fs.DirEntries, err error) error {
		if err != nil {
			if walkPath == root && errors.Is(err, fs.ErrorDirNotFound) {
				return nil
			}
			return err
		}
		for _, entry := range entries {
			info := fileInfo(entry)
			if jobfs.Match(pattern, info.Name) {
				matches = append(matches, info)
			}
		}
		return nil
	})
	if err != nil {
		return nil, convertError(err)
	}
	slices.SortFunc(matches, func(a, b jobfs.FileInfo) int { return strings.Compare(a.Name, b.Name) })
	return matches, nil
}

func (e *Engine) Mkdirs(ctx context.Context, p string) error {
	return convertError(e.remote.Mkdir(ctx, rel(p)))
}

func (e *Engine) Exists(ctx context.Context, p string) (bool, error) {
	r := rel(p)
	if r == "" {
		return true, nil
	}
	if _, err := e.remote.NewObject(ctx, r); err == nil {
		return true, nil
	}
	_, err := e.remote.List(ctx, r)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrorDirNotFound), errors.Is(err, fs.ErrorIsFile):
		return false, nil
	default:
		return false, convertError(err)
	}
}

// Close shuts the remote down if it holds a connection.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		if s, ok := e.remote.(fs.Shutdowner); ok {
			e.closeErr = s.Shutdown(context.Background())
		}
	})
	return e.closeErr
}

// === Extension: Hasher ===

func (e *Engine) Hash(ctx context.Context, p string, algorithm string) (string, error) {
	obj, err := e.remote.NewObject(ctx, rel(p))
	if err != nil {
		return "", convertError(err)
	}

	var ht hash.Type
	switch algorithm {
	case "md5":
		ht = hash.MD5
	case "sha1":
		ht = hash.SHA1
	case "sha256":
		ht = hash.SHA256
	default:
		return "", fmt.Errorf("jobfs/hdfs: unsupported hash algorithm %q: %w", algorithm, jobfs.ErrNotSupported)
	}

	h, err := obj.Hash(ctx, ht)
	if err != nil {
		if errors.Is(err, hash.ErrUnsupported) {
			return "", jobfs.ErrNotSupported
		}
		return "", err
	}
	if h == "" {
		return "", jobfs.ErrNotSupported
	}
	return h, nil
}

// === Extension: Copier ===

func (e *Engine) Copy(ctx context.Context, src, dst string) error {
	return convertError(operations.CopyFile(ctx, e.remote, e.remote, rel(dst), rel(src)))
}

// Helpers

func fileInfo(entry fs.DirEntry) jobfs.FileInfo {
	info := jobfs.FileInfo{Kind: jobfs.EntryDir, Name: abs(entry.Remote())}
	if obj, ok := entry.(fs.Object); ok {
		info.Kind = jobfs.EntryFile
		info.Size = obj.Size()
	}
	return info
}

func convertError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrorObjectNotFound), errors.Is(err, fs.ErrorDirNotFound):
		return fmt.Errorf("%w: %v", jobfs.ErrNotFound, err)
	case errors.Is(err, fs.ErrorIsDir):
		return fmt.Errorf("%w: %v", jobfs.ErrIsDir, err)
	}
	return err
}

// readFile serves reads from a downloaded temp file, deleted on Close.
type readFile struct {
	*os.File
	name string
}

func (f *readFile) Name() string { return f.name }

func (f *readFile) Write([]byte) (int, error) {
	return 0, fmt.Errorf("jobfs/hdfs: write to %s opened for reading: %w", f.name, jobfs.ErrNotSupported)
}

func (f *readFile) Tell() (int64, error) { return f.File.Seek(0, io.SeekCurrent) }

func (f *readFile) Size() (int64, error) {
	info, err := f.File.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (f *readFile) Close() error {
	tmp := f.File.Name()
	err := f.File.Close()
	_ = os.Remove(tmp)
	return err
}

// writeFile buffers writes and uploads them on Close. HDFS files are
// append-only, so only the write position can be seeked to.
type writeFile struct {
	engine *Engine
	ctx    context.Context
	name   string
	remote string
	buf    bytes.Buffer
	closed bool
}

func (w *writeFile) Name() string { return w.name }

func (w *writeFile) Write(p []byte) (int, error) {
	if w.closed {
		return 0, jobfs.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *writeFile) Read([]byte) (int, error) {
	return 0, fmt.Errorf("jobfs/hdfs: read from %s opened for writing: %w", w.name, jobfs.ErrNotSupported)
}

func (w *writeFile) Seek(offset int64, whence int) (int64, error) {
	end := int64(w.buf.Len())
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent, io.SeekEnd:
		target = end + offset
	}
	if target != end {
		return end, fmt.Errorf("jobfs/hdfs: seek in %s opened for writing: %w", w.name, jobfs.ErrNotSupported)
	}
	return end, nil
}

func (w *writeFile) Tell() (int64, error) { return int64(w.buf.Len()), nil }

func (w *writeFile) Size() (int64, error) { return int64(w.buf.Len()), nil }

func (w *writeFile) Close() error {
	if w.closed {
		return jobfs.ErrClosed
	}
	w.closed = true
	rc := io.NopCloser(bytes.NewReader(w.buf.Bytes()))
	_, err := operations.Rcat(w.ctx, w.engine.remote, w.remote, rc, time.Now(), nil)
	return convertError(err)
}

// Compile-time interface checks.
var (
	_ jobfs.Backend = (*Engine)(nil)
	_ jobfs.Hasher  = (*Engine)(nil)
	_ jobfs.Copier  = (*Engine)(nil)
)
