package jobfs

import "context"

// Backend is a live connection to one storage endpoint. Paths passed to a
// Backend are the path part of an [Address].
// Implementations must be comparable, usually a pointer type: a [Hub]
// caches backends by identity.
// All driver implementations must satisfy this interface.
type Backend interface {
	// Open opens path for reading or, in WriteMode, creates or truncates it.
	Open(ctx context.Context, path string, mode OpenMode) (File, error)

	// Rename moves oldPath to newPath.
	Rename(ctx context.Context, oldPath, newPath string) error

	// Remove deletes a file or directory (and all children).
	Remove(ctx context.Context, path string) error

	// List returns the direct children of dir.
	List(ctx context.Context, dir string) ([]FileInfo, error)

	// Glob returns the entries matching pattern, see [Match].
	Glob(ctx context.Context, pattern string) ([]FileInfo, error)

	// Mkdirs creates a directory and all necessary parents.
	Mkdirs(ctx context.Context, path string) error

	// Exists reports whether path refers to a file or directory.
	Exists(ctx context.Context, path string) (bool, error)

	// Close releases the connection. It is called by the owning cache.
	Close() error
}

// Lister is the part of a Backend needed by [Walk] and [GlobEntries].
type Lister interface {
	List(ctx context.Context, dir string) ([]FileInfo, error)
}
