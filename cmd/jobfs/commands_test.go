package main

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // test fixture
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuln/jobfs"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func fileAddr(p string) string { return "file://" + filepath.ToSlash(p) }

func TestCLI_Local(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello jobfs"), 0o644))

	_, err := runCLI(t, "mkdir", fileAddr(filepath.Join(dir, "jobs", "1")))
	require.NoError(t, err)

	_, err = runCLI(t, "put", src, fileAddr(filepath.Join(dir, "jobs", "1", "part-0")))
	require.NoError(t, err)

	out, err := runCLI(t, "cat", fileAddr(filepath.Join(dir, "jobs", "1", "part-0")))
	require.NoError(t, err)
	assert.Equal(t, "hello jobfs", out)

	_, err = runCLI(t, "cp", fileAddr(filepath.Join(dir, "jobs", "1", "part-0")), fileAddr(filepath.Join(dir, "jobs", "1", "part-1")))
	require.NoError(t, err)

	_, err = runCLI(t, "mv", fileAddr(filepath.Join(dir, "jobs", "1", "part-1")), fileAddr(filepath.Join(dir, "jobs", "1", "part-2")))
	require.NoError(t, err)

	out, err = runCLI(t, "ls", fileAddr(filepath.Join(dir, "jobs", "1")))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "F "))
	assert.True(t, strings.HasSuffix(lines[0], "part-0"))
	assert.True(t, strings.HasSuffix(lines[1], "part-2"))

	out, err = runCLI(t, "glob", fileAddr(filepath.Join(dir, "jobs", "*", "part-?")))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"))

	out, err = runCLI(t, "hash", fileAddr(filepath.Join(dir, "jobs", "1", "part-2")))
	require.NoError(t, err)
	sum := md5.Sum([]byte("hello jobfs"))
	assert.Equal(t, hex.EncodeToString(sum[:]), strings.Fields(out)[0])

	_, err = runCLI(t, "rm", fileAddr(filepath.Join(dir, "jobs")))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "jobs"))
	assert.True(t, os.IsNotExist(err))
}

func TestCLI_Errors(t *testing.T) {
	_, err := runCLI(t, "ls", "dfs://nowhere/x")
	assert.ErrorIs(t, err, jobfs.ErrParse)

	_, err = runCLI(t, "cat", fileAddr(filepath.Join(t.TempDir(), "missing")))
	assert.ErrorIs(t, err, jobfs.ErrNotFound)

	_, err = runCLI(t, "--endpoint", "nope", "ls", "/")
	assert.ErrorContains(t, err, `unknown endpoint "nope"`)

	_, err = runCLI(t, "ls")
	assert.Error(t, err)
}

func TestCLI_Endpoint(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(t.TempDir(), "jobfs.yaml")
	config := "endpoints:\n  - name: scratch\n    path: " + fileAddr(dir) + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", configPath, "--endpoint", "scratch", "put", "-", "a/b.txt"})
	cmd.SetIn(strings.NewReader("from stdin"))
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	got, err := os.ReadFile(filepath.Join(dir, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", string(got))
}
