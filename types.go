package jobfs

import (
	"io"
	"strconv"
)

// Kind identifies a storage backend family.
type Kind int

const (
	// KindLocal is the local filesystem, addressed with file://.
	KindLocal Kind = iota + 1
	// KindDFS is a distributed filesystem reachable by host and port.
	KindDFS
)

// schemes maps every accepted address scheme to its backend kind.
var schemes = map[string]Kind{
	"file": KindLocal,
	"hdfs": KindDFS,
}

// KindForScheme resolves an address scheme such as "hdfs".
func KindForScheme(scheme string) (Kind, bool) {
	k, ok := schemes[scheme]
	return k, ok
}

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindDFS:
		return "dfs"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Scheme returns the canonical address scheme of the kind.
func (k Kind) Scheme() string {
	switch k {
	case KindLocal:
		return "file"
	case KindDFS:
		return "hdfs"
	default:
		return ""
	}
}

// OpenMode selects how [Backend.Open] opens a file.
type OpenMode int

const (
	// ReadMode opens an existing file for reading.
	ReadMode OpenMode = iota
	// WriteMode creates or truncates a file for writing.
	WriteMode
)

func (m OpenMode) String() string {
	if m == WriteMode {
		return "write"
	}
	return "read"
}

// EntryKind discriminates directory listing entries.
type EntryKind byte

const (
	EntryFile EntryKind = 'F'
	EntryDir  EntryKind = 'D'
)

// FileInfo is one entry returned by List and Glob.
type FileInfo struct {
	Kind EntryKind `json:"kind"`
	// Name is the full path of the entry as reported by the backend.
	Name string `json:"name"`
	// Size is only meaningful for files.
	Size int64 `json:"size"`
}

// IsDir reports whether the entry is a directory.
func (fi FileInfo) IsDir() bool { return fi.Kind == EntryDir }

// File is an open file on a backend.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	// Tell returns the current offset.
	Tell() (int64, error)

	// Size returns the current size of the file in bytes.
	Size() (int64, error)

	// Name returns the path the file was opened with.
	Name() string
}
