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

func restrictedState(t *testing.T, allowed ...string) *eval.EvalState {
	t.Helper()
	return eval.New(eval.Config{
		RestrictEval: true,
		AllowedPaths: allowed,
	}, store.NewMemStore(), nil)
}

func TestSandboxAllowsListedPaths(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.nix")
	require.NoError(t, os.WriteFile(file, []byte("1"), 0o644))

	st := restrictedState(t, dir)
	checked, err := st.CheckSourcePath(file, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, checked)
}

func TestSandboxRejectsOutsidePaths(t *testing.T) {
	dir := t.TempDir()
	st := restrictedState(t, dir)

	_, err := st.CheckSourcePath("/etc/passwd", 0)
	require.Error(t, err)
	assert.True(t, eval.IsKind(err, eval.KindRestrictedPath))
}

func TestSandboxRejectsDotDotEscape(t *testing.T) {
	dir := t.TempDir()
	st := restrictedState(t, dir)

	_, err := st.CheckSourcePath(filepath.Join(dir, "..", "..", "etc", "passwd"), 0)
	require.Error(t, err)
	assert.True(t, eval.IsKind(err, eval.KindRestrictedPath))
}

func TestSandboxRejectsSymlinkEscape(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret")
	require.NoError(t, os.WriteFile(secret, []byte("x"), 0o644))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(secret, link))

	st := restrictedState(t, dir)
	_, err := st.CheckSourcePath(link, 0)
	require.Error(t, err, "a symlink below an allowed path must not reach outside it")
	assert.True(t, eval.IsKind(err, eval.KindRestrictedPath))
}

func TestUnrestrictedPassesThrough(t *testing.T) {
	st := eval.New(eval.Config{}, store.NewMemStore(), nil)
	p, err := st.CheckSourcePath("/anything/goes", 0)
	require.NoError(t, err)
	assert.Equal(t, "/anything/goes", p)
}

func TestCheckURI(t *testing.T) {
	st := eval.New(eval.Config{
		RestrictEval: true,
		AllowedURIs:  []string{"https://example.org/pkgs"},
	}, store.NewMemStore(), nil)

	require.NoError(t, st.CheckURI("https://example.org/pkgs", 0))
	require.NoError(t, st.CheckURI("https://example.org/pkgs/sub", 0))

	err := st.CheckURI("https://example.org/pkgsevil", 0)
	require.Error(t, err, "prefixes match whole components only")

	err = st.CheckURI("https://other.example.org/", 0)
	require.Error(t, err)
	assert.True(t, eval.IsKind(err, eval.KindRestrictedPath))
}

func TestRestrictedReadFileBuiltin(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o644))

	st := restrictedState(t, dir)
	var v eval.Value
	require.NoError(t, st.EvalString("builtins.readFile "+file, dir, &v))
	assert.Equal(t, "hello", v.Str())

	var v2 eval.Value
	err := st.EvalString("builtins.readFile /etc/hostname", dir, &v2)
	require.Error(t, err)
}
