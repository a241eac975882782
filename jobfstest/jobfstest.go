// Package jobfstest provides a conformance suite for jobfs backends.
package jobfstest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"testing"

	"github.com/nuln/jobfs"
)

// testLine is repeated to build file contents.
const testLine = "this is a test string\n"

// BackendTestSuite runs a comprehensive set of tests against a Backend
// implementation. All files are created below root, which must not exist
// yet. Call this in your driver tests to verify correctness:
//
//	func TestLocalBackend(t *testing.T) {
//	    backend := setupBackend(t)
//	    jobfstest.BackendTestSuite(t, backend, "/jobfstest")
//	}
func BackendTestSuite(t *testing.T, backend jobfs.Backend, root string) { //nolint:gocyclo
	t.Helper()
	ctx := context.Background()
	content := strings.Repeat(testLine, 100)

	if err := backend.Mkdirs(ctx, root); err != nil {
		t.Fatalf("Mkdirs(%s): %v", root, err)
	}
	defer func() { _ = backend.Remove(ctx, root) }()

	t.Run("Open_Close_Name", func(t *testing.T) {
		p := path.Join(root, "name.file")

		w, err := backend.Open(ctx, p, jobfs.WriteMode)
		if err != nil {
			t.Fatalf("Open write: %v", err)
		}
		if w.Name() != p {
			t.Errorf("Name = %q, want %q", w.Name(), p)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close writer: %v", err)
		}

		r, err := backend.Open(ctx, p, jobfs.ReadMode)
		if err != nil {
			t.Fatalf("Open read: %v", err)
		}
		if r.Name() != p {
			t.Errorf("Name = %q, want %q", r.Name(), p)
		}
		if err := r.Close(); err != nil {
			t.Fatalf("Close reader: %v", err)
		}
	})

	t.Run("Open_Missing", func(t *testing.T) {
		_, err := backend.Open(ctx, path.Join(root, "missing.file"), jobfs.ReadMode)
		if !errors.Is(err, jobfs.ErrNotFound) {
			t.Errorf("Open missing: err = %v, want ErrNotFound", err)
		}
	})

	t.Run("Read_Write", func(t *testing.T) {
		p := path.Join(root, "rw.file")
		writeFile(t, backend, p, content)

		r, err := backend.Open(ctx, p, jobfs.ReadMode)
		if err != nil {
			t.Fatalf("Open read: %v", err)
		}
		data, err := io.ReadAll(r)
		_ = r.Close()
		if err != nil {
			t.Fatalf("ReadAll: %v", err)
		}
		if string(data) != content {
			t.Errorf("read %d bytes, want the %d bytes written", len(data), len(content))
		}

		// Writing again truncates.
		writeFile(t, backend, p, testLine)
		r, err = backend.Open(ctx, p, jobfs.ReadMode)
		if err != nil {
			t.Fatalf("Open read after rewrite: %v", err)
		}
		data, _ = io.ReadAll(r)
		_ = r.Close()
		if string(data) != testLine {
			t.Errorf("after rewrite = %q, want %q", string(data), testLine)
		}
	})

	t.Run("Rename_Remove_Exists", func(t *testing.T) {
		p := path.Join(root, "rename.file")
		renamed := p + "_test_newfile"
		writeFile(t, backend, p, "data")

		mustExist(t, backend, p, true)
		mustExist(t, backend, renamed, false)

		if err := backend.Rename(ctx, p, renamed); err != nil {
			t.Fatalf("Rename: %v", err)
		}
		mustExist(t, backend, p, false)
		mustExist(t, backend, renamed, true)

		if err := backend.Rename(ctx, renamed, p); err != nil {
			t.Fatalf("Rename back: %v", err)
		}
		mustExist(t, backend, renamed, false)
		mustExist(t, backend, p, true)

		if err := backend.Remove(ctx, p); err != nil {
			t.Fatalf("Remove file: %v", err)
		}
		mustExist(t, backend, p, false)

		if err := backend.Mkdirs(ctx, p); err != nil {
			t.Fatalf("Mkdirs: %v", err)
		}
		mustExist(t, backend, p, true)
		if err := backend.Remove(ctx, p); err != nil {
			t.Fatalf("Remove directory: %v", err)
		}
		mustExist(t, backend, p, false)
	})

	t.Run("Tell_Seek", func(t *testing.T) {
		p := path.Join(root, "seek.file")
		writeFile(t, backend, p, content)

		r, err := backend.Open(ctx, p, jobfs.ReadMode)
		if err != nil {
			t.Fatalf("Open read: %v", err)
		}
		defer func() { _ = r.Close() }()

		size, err := r.Size()
		if err != nil {
			t.Fatalf("Size: %v", err)
		}
		if size != int64(len(content)) {
			t.Errorf("Size = %d, want %d", size, len(content))
		}
		if pos, err := r.Tell(); err != nil || pos != 0 {
			t.Errorf("Tell = %d, %v, want 0", pos, err)
		}

		half := size >> 1
		if _, err := r.Seek(half, io.SeekStart); err != nil {
			t.Fatalf("Seek: %v", err)
		}
		if pos, err := r.Tell(); err != nil || pos != half {
			t.Errorf("Tell after Seek = %d, %v, want %d", pos, err, half)
		}
		rest, _ := io.ReadAll(r)
		if string(rest) != content[half:] {
			t.Errorf("read after Seek returned %d bytes, want %d", len(rest), len(content[half:]))
		}
	})

	t.Run("List_Glob", func(t *testing.T) {
		dir := path.Join(root, "listdir")
		const n = 100
		for i := 0; i < n; i++ {
			if err := backend.Mkdirs(ctx, fmt.Sprintf("%s/%04d", dir, i)); err != nil {
				t.Fatalf("Mkdirs: %v", err)
			}
		}

		listed, err := backend.List(ctx, dir)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		sortInfos(listed)
		if len(listed) != n {
			t.Fatalf("List: got %d entries, want %d", len(listed), n)
		}
		for i, info := range listed {
			if info.Kind != jobfs.EntryDir {
				t.Errorf("entry %s: kind = %c, want D", info.Name, info.Kind)
			}
			if want := fmt.Sprintf("%s/%04d", dir, i); info.Name != want {
				t.Errorf("entry %d: name = %q, want %q", i, info.Name, want)
			}
		}

		globbed, err := backend.Glob(ctx, dir+"/*")
		if err != nil {
			t.Fatalf("Glob: %v", err)
		}
		sortInfos(globbed)
		if !slices.Equal(listed, globbed) {
			t.Errorf("Glob(%s/*) differs from List: %d vs %d entries", dir, len(globbed), len(listed))
		}

		some, err := backend.Glob(ctx, dir+"/00?5")
		if err != nil {
			t.Fatalf("Glob ?: %v", err)
		}
		if len(some) != 10 {
			t.Errorf("Glob(%s/00?5): got %d entries, want 10", dir, len(some))
		}

		none, err := backend.Glob(ctx, path.Join(root, "nowhere")+"/*")
		if err != nil {
			t.Fatalf("Glob missing dir: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("Glob missing dir: got %d entries, want 0", len(none))
		}

		if err := backend.Remove(ctx, dir); err != nil {
			t.Fatalf("Remove: %v", err)
		}
	})

	t.Run("List_Files", func(t *testing.T) {
		dir := path.Join(root, "files")
		writeFile(t, backend, dir+"/a.txt", "a")
		writeFile(t, backend, dir+"/b.txt", "bbb")
		if err := backend.Mkdirs(ctx, dir+"/sub"); err != nil {
			t.Fatalf("Mkdirs: %v", err)
		}

		listed, err := backend.List(ctx, dir)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		sortInfos(listed)
		want := []jobfs.FileInfo{
			{Kind: jobfs.EntryFile, Name: dir + "/a.txt", Size: 1},
			{Kind: jobfs.EntryFile, Name: dir + "/b.txt", Size: 3},
			{Kind: jobfs.EntryDir, Name: dir + "/sub"},
		}
		if !slices.Equal(listed, want) {
			t.Errorf("List = %+v, want %+v", listed, want)
		}

		txt, err := backend.Glob(ctx, dir+"/*.txt")
		if err != nil {
			t.Fatalf("Glob: %v", err)
		}
		if !slices.Equal(txt, want[:2]) {
			t.Errorf("Glob(*.txt) = %+v, want %+v", txt, want[:2])
		}
	})

	// Test extensions if supported
	if copier, ok := backend.(jobfs.Copier); ok {
		t.Run("Copier", func(t *testing.T) {
			src := path.Join(root, "copy_src.txt")
			dst := path.Join(root, "copy_dst.txt")
			writeFile(t, backend, src, "copy me")

			if err := copier.Copy(ctx, src, dst); err != nil {
				if errors.Is(err, jobfs.ErrNotSupported) {
					t.Skip("Copy not supported by this backend")
				}
				t.Fatalf("Copy: %v", err)
			}

			r, err := backend.Open(ctx, dst, jobfs.ReadMode)
			if err != nil {
				t.Fatalf("Open copy: %v", err)
			}
			data, _ := io.ReadAll(r)
			_ = r.Close()
			if string(data) != "copy me" {
				t.Errorf("Copy content = %q, want %q", string(data), "copy me")
			}
		})
	}

	if hasher, ok := backend.(jobfs.Hasher); ok {
		t.Run("Hasher", func(t *testing.T) {
			p := path.Join(root, "hash_test.txt")
			writeFile(t, backend, p, "hash me")

			sum, err := hasher.Hash(ctx, p, "md5")
			if errors.Is(err, jobfs.ErrNotSupported) {
				t.Skip("Hash not supported by this backend")
			}
			if err != nil {
				t.Fatalf("Hash: %v", err)
			}
			// md5("hash me")
			if sum != "17b31dce96b9d6c6d0a6ba95f47796fb" {
				t.Errorf("Hash = %q", sum)
			}
		})
	}
}

func writeFile(t *testing.T, backend jobfs.Backend, p, content string) {
	t.Helper()
	w, err := backend.Open(context.Background(), p, jobfs.WriteMode)
	if err != nil {
		t.Fatalf("Open %s for writing: %v", p, err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		t.Fatalf("Write %s: %v", p, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close %s: %v", p, err)
	}
}

func mustExist(t *testing.T, backend jobfs.Backend, p string, want bool) {
	t.Helper()
	got, err := backend.Exists(context.Background(), p)
	if err != nil {
		t.Fatalf("Exists(%s): %v", p, err)
	}
	if got != want {
		t.Errorf("Exists(%s) = %v, want %v", p, got, want)
	}
}

func sortInfos(infos []jobfs.FileInfo) {
	slices.SortFunc(infos, func(a, b jobfs.FileInfo) int { return strings.Compare(a.Name, b.Name) })
}
