package jobfs

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
)

// WalkFunc is the callback for Walk. It is called for each entry below
// the root. If it returns filepath.SkipDir for a directory, Walk skips
// that directory's contents. When listing a directory fails, fn is called
// with that directory, a nil info and the error.
type WalkFunc func(path string, info *FileInfo, err error) error

// Walk walks the tree rooted at root, calling fn for every entry at most
// maxDepth levels below root. maxDepth <= 0 means no limit. It works with
// any Backend.
func Walk(ctx context.Context, l Lister, root string, maxDepth int, fn WalkFunc) error {
	err := walkDir(ctx, l, root, 1, maxDepth, fn)
	if errors.Is(err, filepath.SkipDir) {
		return nil
	}
	return err
}

func walkDir(ctx context.Context, l Lister, dir string, depth, maxDepth int, fn WalkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := l.List(ctx, dir)
	if err != nil {
		return fn(dir, nil, err)
	}

	for i := range entries {
		entry := &entries[i]
		err := fn(entry.Name, entry, nil)
		if err != nil {
			if errors.Is(err, filepath.SkipDir) && entry.IsDir() {
				continue
			}
			return err
		}
		if !entry.IsDir() || (maxDepth > 0 && depth >= maxDepth) {
			continue
		}
		if err := walkDir(ctx, l, entry.Name, depth+1, maxDepth, fn); err != nil {
			if errors.Is(err, filepath.SkipDir) {
				continue
			}
			return err
		}
	}
	return nil
}

// GlobBase splits pattern into the wildcard-free directory to list and
// the number of path components below it the pattern spans.
//
// Example: GlobBase("/jobs/*/part-?") → ("/jobs", 2)
func GlobBase(pattern string) (dir string, depth int) {
	wild := strings.IndexAny(pattern, "*?")
	if wild < 0 {
		wild = len(pattern)
	}
	var rest string
	switch slash := strings.LastIndexByte(pattern[:wild], '/'); {
	case slash < 0:
		dir, rest = ".", pattern
	case slash == 0:
		dir, rest = "/", pattern[1:]
	default:
		dir, rest = pattern[:slash], pattern[slash+1:]
	}
	return dir, strings.Count(rest, "/") + 1
}

// GlobEntries lists the entries matching pattern by walking the directory
// returned by GlobBase and filtering full entry names with Match. A
// missing base directory yields no entries. Results are sorted by name.
func GlobEntries(ctx context.Context, l Lister, pattern string) ([]FileInfo, error) {
	dir, depth := GlobBase(pattern)
	var matches []FileInfo
	err := Walk(ctx, l, dir, depth, func(path string, info *FileInfo, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, ErrNotFound) {
				return filepath.SkipDir
			}
			return err
		}
		if Match(pattern, info.Name) {
			matches = append(matches, *info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(matches, func(a, b FileInfo) int { return strings.Compare(a.Name, b.Name) })
	return matches, nil
}
