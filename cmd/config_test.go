package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixel-lang/nixel/eval"
)

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nixel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pure-eval: true
max-call-depth: 512
allowed-paths:
  - /src
allowed-uris:
  - https://example.org/pkgs
search-path:
  nixpkgs: /src/nixpkgs
  "": /src/extra
count-calls: true
system: riscv64-linux
`), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.PureEval)
	assert.Equal(t, 512, cfg.MaxCallDepth)

	applied := cfg.Apply(eval.Config{})
	assert.True(t, applied.PureEval)
	assert.Equal(t, 512, applied.MaxCallDepth)
	assert.Equal(t, []string{"/src"}, applied.AllowedPaths)
	assert.Equal(t, []string{"https://example.org/pkgs"}, applied.AllowedURIs)
	assert.True(t, applied.CountCalls)
	assert.Equal(t, "riscv64-linux", applied.CurrentSystem)
	require.Len(t, applied.SearchPath, 2)
	assert.Equal(t, eval.SearchPathElem{Prefix: "", Value: "/src/extra"}, applied.SearchPath[0])
	assert.Equal(t, eval.SearchPathElem{Prefix: "nixpkgs", Value: "/src/nixpkgs"}, applied.SearchPath[1])
}

func TestLoadConfigFileErrors(t *testing.T) {
	_, err := LoadConfigFile("/does/not/exist.yaml")
	require.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(":\n  - ["), 0o644))
	_, err = LoadConfigFile(bad)
	require.Error(t, err)
}

func TestApplyMaxCallDepth(t *testing.T) {
	cfg := (&ConfigFile{MaxCallDepth: 100}).Apply(eval.Config{})
	assert.Equal(t, 100, cfg.MaxCallDepth)

	// A zero in the file keeps the existing value.
	cfg2 := (&ConfigFile{}).Apply(eval.Config{MaxCallDepth: 7})
	assert.Equal(t, 7, cfg2.MaxCallDepth)
}
