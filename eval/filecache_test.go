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

func TestEvalFileBasic(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "m.nix")
	require.NoError(t, os.WriteFile(file, []byte("{ answer = 42; }"), 0o644))

	st := eval.New(eval.Config{}, store.NewMemStore(), nil)
	var v eval.Value
	require.NoError(t, st.EvalFile(file, &v, false))
	require.Equal(t, eval.KindAttrs, v.Kind())

	sAnswer, _ := st.Symbols.Lookup("answer")
	cell := v.Attrs().Get(sAnswer)
	require.NotNil(t, cell)
	require.NoError(t, st.Force(cell.Value, 0))
	assert.Equal(t, int64(42), cell.Value.Int())
}

func TestEvalFileIsMemoised(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "m.nix")
	require.NoError(t, os.WriteFile(file, []byte("1"), 0o644))

	st := eval.New(eval.Config{}, store.NewMemStore(), nil)
	var v1 eval.Value
	require.NoError(t, st.EvalFile(file, &v1, false))

	// Rewriting the file must not be observable: the cache serves the
	// old value.
	require.NoError(t, os.WriteFile(file, []byte("2"), 0o644))
	var v2 eval.Value
	require.NoError(t, st.EvalFile(file, &v2, false))
	assert.Equal(t, int64(1), v2.Int())

	st.ResetFileCache()
	var v3 eval.Value
	require.NoError(t, st.EvalFile(file, &v3, false))
	assert.Equal(t, int64(2), v3.Int())
}

func TestEvalFileDirectoryAppendsDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.nix"), []byte("7"), 0o644))

	st := eval.New(eval.Config{}, store.NewMemStore(), nil)
	var v eval.Value
	require.NoError(t, st.EvalFile(dir, &v, false))
	assert.Equal(t, int64(7), v.Int())
}

func TestEvalFileFollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.nix")
	require.NoError(t, os.WriteFile(target, []byte("5"), 0o644))
	link := filepath.Join(dir, "link.nix")
	require.NoError(t, os.Symlink(target, link))

	st := eval.New(eval.Config{}, store.NewMemStore(), nil)
	var v eval.Value
	require.NoError(t, st.EvalFile(link, &v, false))
	assert.Equal(t, int64(5), v.Int())
}

func TestEvalFileMustBeTrivial(t *testing.T) {
	dir := t.TempDir()
	attrFile := filepath.Join(dir, "a.nix")
	require.NoError(t, os.WriteFile(attrFile, []byte("{ x = 1; }"), 0o644))
	exprFile := filepath.Join(dir, "e.nix")
	require.NoError(t, os.WriteFile(exprFile, []byte("1 + 1"), 0o644))

	st := eval.New(eval.Config{}, store.NewMemStore(), nil)
	var v eval.Value
	require.NoError(t, st.EvalFile(attrFile, &v, true))

	var v2 eval.Value
	err := st.EvalFile(exprFile, &v2, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an attribute set")
}

func TestImportRelativePaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.nix"), []byte("{ double = x: x * 2; }"), 0o644))
	main := filepath.Join(dir, "main.nix")
	require.NoError(t, os.WriteFile(main, []byte("(import ./lib.nix).double 21"), 0o644))

	st := eval.New(eval.Config{}, store.NewMemStore(), nil)
	var v eval.Value
	require.NoError(t, st.EvalFile(main, &v, false))
	assert.Equal(t, int64(42), v.Int())
}

func TestImportRecursionIsDetected(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.nix")
	require.NoError(t, os.WriteFile(a, []byte("import ./a.nix"), 0o644))

	st := eval.New(eval.Config{}, store.NewMemStore(), nil)
	var v eval.Value
	err := st.EvalFile(a, &v, false)
	require.Error(t, err)
}
