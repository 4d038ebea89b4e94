package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestPathIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("content"), 0o644))

	s := NewMemStore()
	p1, err := s.IngestPath(file, "f.txt", IngestFlat)
	require.NoError(t, err)
	p2, err := s.IngestPath(file, "f.txt", IngestFlat)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.True(t, strings.HasPrefix(p1, "/nix/store/"))
	assert.True(t, strings.HasSuffix(p1, "-f.txt"))

	require.NoError(t, os.WriteFile(file, []byte("different"), 0o644))
	p3, err := s.IngestPath(file, "f.txt", IngestFlat)
	require.NoError(t, err)
	assert.NotEqual(t, p1, p3)
}

func TestIngestPathRecursive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "a"), []byte("x"), 0o644))

	s := NewMemStore()
	p, err := s.IngestPath(dir, "tree", IngestRecursive)
	require.NoError(t, err)
	assert.True(t, s.IsInStore(p))
	assert.Equal(t, dir, s.ToRealPath(p))
}

func TestParseStorePath(t *testing.T) {
	s := NewMemStore()

	_, err := s.ParseStorePath("/nix/store/abc123-hello")
	require.NoError(t, err)

	for _, bad := range []string{
		"/nix/store",
		"/nix/store/",
		"/nix/store/abc/extra",
		"/somewhere/else",
		"/nix/store/-noname",
	} {
		_, err := s.ParseStorePath(bad)
		require.Error(t, err, "%s should not parse", bad)
		var ipe *InvalidPathError
		assert.ErrorAs(t, err, &ipe)
	}
}

func TestComputeClosure(t *testing.T) {
	s := NewMemStore()
	s.AddObject("/nix/store/a1-a", "/nix/store/b1-b")
	s.AddObject("/nix/store/b1-b", "/nix/store/c1-c")
	s.AddObject("/nix/store/c1-c")

	closure, err := s.ComputeClosure("/nix/store/a1-a")
	require.NoError(t, err)
	assert.Len(t, closure, 3)

	_, err = s.ComputeClosure("/nix/store/missing1-x")
	require.Error(t, err)
}

func TestReadDerivation(t *testing.T) {
	s := NewMemStore()
	s.AddDerivation("/nix/store/d1-x.drv", Derivation{
		Name:    "x",
		Outputs: map[string]string{"out": "/nix/store/o1-x"},
	})

	drv, err := s.ReadDerivation("/nix/store/d1-x.drv")
	require.NoError(t, err)
	assert.Equal(t, "x", drv.Name)

	_, err = s.ReadDerivation("/nix/store/unknown1-y.drv")
	require.Error(t, err)
}

func TestMakeFixedOutputPathFromCA(t *testing.T) {
	s := NewMemStore()
	p1, err := s.MakeFixedOutputPathFromCA("hello", "sha256:abc")
	require.NoError(t, err)
	p2, err := s.MakeFixedOutputPathFromCA("hello", "sha256:abc")
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.True(t, strings.HasSuffix(p1, "-hello"))

	p3, err := s.MakeFixedOutputPathFromCA("hello", "sha256:other")
	require.NoError(t, err)
	assert.NotEqual(t, p1, p3)
}
