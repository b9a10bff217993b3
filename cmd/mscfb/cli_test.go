package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestBuildAndInspect(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.cfb")
	source := filepath.Join(dir, "source.txt")
	payload := strings.Repeat("compound file payload\n", 300)
	require.NoError(t, os.WriteFile(source, []byte(payload), 0o644))

	_, err := run(t, "new", file)
	require.NoError(t, err)

	_, err = run(t, "add", file, "/Docs/Readme", source, "--storage=false")
	require.NoError(t, err)
	_, err = run(t, "add", file, "/Docs/Images", "--storage=true")
	require.NoError(t, err)
	_, err = run(t, "add", file, "/Docs/Empty", "--storage=false")
	require.NoError(t, err)

	out, err := run(t, "ls", file, "--long=false")
	require.NoError(t, err)
	assert.Equal(t, "/\n/Docs\n/Docs/Images\n/Docs/Empty\n/Docs/Readme\n", out)

	out, err = run(t, "ls", file, "/Docs/Images", "--long=true")
	require.NoError(t, err)
	assert.Contains(t, out, "storage")
	assert.Contains(t, out, "/Docs/Images")
	assert.NotContains(t, out, "Readme")

	out, err = run(t, "cat", file, "/Docs/Readme")
	require.NoError(t, err)
	assert.Equal(t, payload, out)

	out, err = run(t, "info", file, "--strict=true")
	require.NoError(t, err)
	assert.Contains(t, out, "Directory entries:  5")

	copied := filepath.Join(dir, "copy.cfb")
	_, err = run(t, "copy", file, copied, "--strict=false")
	require.NoError(t, err)
	out, err = run(t, "cat", copied, "/Docs/Readme")
	require.NoError(t, err)
	assert.Equal(t, payload, out)

	out, err = run(t, "dump", file, "/Docs/Readme", "--sector=-1")
	require.NoError(t, err)
	assert.Contains(t, out, "compound file pa")

	out, err = run(t, "dump", file, "--sector=0")
	require.NoError(t, err)
	assert.Contains(t, out, "00000000")
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.cfb")
	_, err := run(t, "new", file)
	require.NoError(t, err)

	_, err = run(t, "cat", file, "/missing")
	assert.Error(t, err)

	_, err = run(t, "add", file, "/", "--storage=false")
	assert.Error(t, err)

	_, err = run(t, "info", filepath.Join(dir, "nope.cfb"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.cfb"), bytes.Repeat([]byte{1}, 2048), 0o644))
	_, err = run(t, "ls", filepath.Join(dir, "junk.cfb"))
	assert.Error(t, err)
}

func TestHomeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	_, err := run(t, "new", "~/fresh.cfb")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(home, "fresh.cfb"))

	out, err := run(t, "ls", "~/fresh.cfb", "--long=false")
	require.NoError(t, err)
	assert.Equal(t, "/\n", out)
}
