package eval_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixel-lang/nixel/eval"
	"github.com/nixel-lang/nixel/store"
)

func TestFindFileResolvesPrefixes(t *testing.T) {
	dir := t.TempDir()
	libDir := filepath.Join(dir, "lib")
	require.NoError(t, os.MkdirAll(libDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, "util.nix"), []byte("1"), 0o644))

	st := eval.New(eval.Config{
		SearchPath: []eval.SearchPathElem{
			{Prefix: "pkgs", Value: dir},
		},
	}, store.NewMemStore(), nil)

	res, err := st.FindFile("pkgs/lib/util.nix", 0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lib", "util.nix"), res)

	// Bare prefix resolves to the entry itself.
	res2, err := st.FindFile("pkgs", 0)
	require.NoError(t, err)
	assert.Equal(t, dir, res2)
}

func TestFindFileLongestPrefixWins(t *testing.T) {
	shortDir := t.TempDir()
	longDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(shortDir, "x.nix"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(longDir, "x.nix"), []byte("2"), 0o644))

	st := eval.New(eval.Config{
		SearchPath: []eval.SearchPathElem{
			{Prefix: "a", Value: shortDir},
			{Prefix: "a/b", Value: longDir},
		},
	}, store.NewMemStore(), nil)

	res, err := st.FindFile("a/b/x.nix", 0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(longDir, "x.nix"), res)
}

func TestFindFileSkipsMissingEntries(t *testing.T) {
	okDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(okDir, "y.nix"), []byte("1"), 0o644))

	var warnings []string
	st := eval.New(eval.Config{
		SearchPath: []eval.SearchPathElem{
			{Prefix: "", Value: "/definitely/not/here"},
			{Prefix: "", Value: okDir},
		},
		Warn: func(msg string) { warnings = append(warnings, msg) },
	}, store.NewMemStore(), nil)

	res, err := st.FindFile("y.nix", 0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(okDir, "y.nix"), res)
	assert.NotEmpty(t, warnings, "unresolvable entries warn and are skipped")
}

func TestFindFileCorePrefix(t *testing.T) {
	st := eval.New(eval.Config{}, store.NewMemStore(), nil)
	res, err := st.FindFile("nix/derivation.nix", 0)
	require.NoError(t, err)
	assert.Equal(t, "/__corepkgs__/derivation.nix", res)
}

func TestFindFileNotFoundIsThrown(t *testing.T) {
	st := eval.New(eval.Config{}, store.NewMemStore(), nil)
	_, err := st.FindFile("nope", 0)
	require.Error(t, err)
	assert.True(t, eval.IsKind(err, eval.KindThrown), "a failed lookup is a catchable throw")
}

func TestSearchPathExpression(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mod.nix"), []byte("40 + 2"), 0o644))

	st := eval.New(eval.Config{
		SearchPath: []eval.SearchPathElem{{Prefix: "", Value: dir}},
	}, store.NewMemStore(), nil)

	var v eval.Value
	require.NoError(t, st.EvalString("import <mod.nix>", "/", &v))
	assert.Equal(t, int64(42), v.Int())

	// tryEval can absorb a failed lookup.
	var v2 eval.Value
	require.NoError(t, st.EvalString("builtins.tryEval <missing-entry>", "/", &v2))
	require.NoError(t, st.ForceDeep(&v2))
	sSuccess, _ := st.Symbols.Lookup("success")
	assert.False(t, v2.Attrs().Get(sSuccess).Value.Bool())
}
