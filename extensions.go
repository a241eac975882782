package jobfs

import "context"

// Optional backend capabilities. Use a type assertion to check:
//
//	if c, ok := backend.(jobfs.Copier); ok { ... }

// Hasher supports calculating file hashes ("md5", "sha256", ...).
type Hasher interface {
	Hash(ctx context.Context, path string, algorithm string) (string, error)
}

// Copier supports copying a file. Some backends can implement this
// as a server-side operation.
type Copier interface {
	Copy(ctx context.Context, src, dst string) error
}
