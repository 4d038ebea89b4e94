package eval

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nixel-lang/nixel/syntax"
)

// corePkgsPrefix is the virtual prefix backing <nix/...> lookups.
const corePkgsPrefix = "/__corepkgs__/"

// mkSearchPathValue renders the configured search path as the list of
// { path, prefix } sets bound to __nixPath.
func (st *EvalState) mkSearchPathValue() *Value {
	sPath := st.Symbols.Intern("path")
	sPrefix := st.Symbols.Intern("prefix")
	elems := make([]*Value, 0, len(st.cfg.SearchPath))
	for _, elem := range st.cfg.SearchPath {
		b := NewBindings(2)
		vPath := new(Value)
		vPath.MkString(elem.Value, nil)
		vPrefix := new(Value)
		vPrefix.MkString(elem.Prefix, nil)
		b.Push(Attr{Name: sPath, Value: vPath})
		b.Push(Attr{Name: sPrefix, Value: vPrefix})
		b.Sort()
		v := new(Value)
		v.MkAttrs(b)
		elems = append(elems, v)
	}
	v := new(Value)
	v.MkList(elems)
	return v
}

// suffixIfPrefixMatch returns the remainder of path after prefix when
// prefix matches at a component boundary.
func suffixIfPrefixMatch(prefix, path string) (string, bool) {
	if prefix == "" {
		return path, true
	}
	if path == prefix {
		return "", true
	}
	if strings.HasPrefix(path, prefix+"/") {
		return path[len(prefix):], true
	}
	return "", false
}

// FindFile resolves an angle-bracket module reference against the
// search path. The longest matching prefix wins; entries that cannot
// be resolved are skipped with a warning. A nix/ query falls back to
// the built-in core-packages prefix.
func (st *EvalState) FindFile(path string, pos syntax.PosIdx) (string, error) {
	return st.FindFileIn(st.cfg.SearchPath, path, pos)
}

// FindFileIn is FindFile against an explicit search path, as supplied
// by the __findFile builtin's first argument.
func (st *EvalState) FindFileIn(searchPath []SearchPathElem, path string, pos syntax.PosIdx) (string, error) {
	type candidate struct {
		suffix string
		value  string
		length int
	}
	var candidates []candidate
	for _, elem := range searchPath {
		if suffix, ok := suffixIfPrefixMatch(elem.Prefix, path); ok {
			candidates = append(candidates, candidate{suffix: suffix, value: elem.Value, length: len(elem.Prefix)})
		}
	}
	// Longest prefix first; ties keep configuration order.
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].length > candidates[j].length })
	for _, c := range candidates {
		if err := st.checkInterrupt(pos); err != nil {
			return "", err
		}
		resolved, ok := st.resolveSearchPathValue(c.value)
		if !ok {
			continue
		}
		res := resolved
		if c.suffix != "" {
			res = filepath.Join(resolved, c.suffix)
		}
		if pathExists(res) {
			return cleanPath(res), nil
		}
	}

	if strings.HasPrefix(path, "nix/") {
		return corePkgsPrefix + path[4:], nil
	}

	if st.cfg.PureEval {
		return "", st.errorf(KindThrown, pos,
			"cannot look up '<%s>' in pure evaluation mode (use '--impure' to override)", path)
	}
	return "", st.errorf(KindThrown, pos,
		"file '%s' was not found in the search path (add it using -I or the configuration file)", path)
}

// resolveSearchPathValue resolves one search-path entry value: a local
// path, a file:// URL, a downloadable tarball URL, or a flake
// reference. Results, including failures, are cached.
func (st *EvalState) resolveSearchPathValue(value string) (string, bool) {
	if cached, ok := st.searchPathResolved[value]; ok {
		if cached == nil {
			return "", false
		}
		return *cached, true
	}

	var res string
	resolved := false

	switch {
	case strings.HasPrefix(value, "file://"):
		res = strings.TrimPrefix(value, "file://")
		resolved = true

	case isPseudoURL(value):
		path, err := st.fetch.DownloadTarball(resolvePseudoURL(value))
		if err != nil {
			st.Warn("search path entry '%s' cannot be downloaded, ignoring (%v)", value, err)
		} else {
			res = st.store.ToRealPath(path)
			resolved = true
		}

	case strings.HasPrefix(value, "flake:"):
		path, err := st.fetch.ResolveFlakeRef(strings.TrimPrefix(value, "flake:"))
		if err != nil {
			st.Warn("search path entry '%s' cannot be fetched, ignoring (%v)", value, err)
		} else {
			res = st.store.ToRealPath(path)
			resolved = true
		}

	default:
		abs, err := filepath.Abs(value)
		if err == nil && pathExists(abs) {
			res = abs
			resolved = true
		} else {
			st.Warn("search path entry '%s' does not exist, ignoring", value)
		}
	}

	if !resolved {
		st.searchPathResolved[value] = nil
		return "", false
	}
	st.searchPathResolved[value] = &res
	return res, true
}

func isPseudoURL(s string) bool {
	for _, prefix := range []string{"channel:", "http://", "https://"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func resolvePseudoURL(s string) string {
	if rest, ok := strings.CutPrefix(s, "channel:"); ok {
		return "https://channels.example.org/" + rest + "/tarball.tar.xz"
	}
	return s
}

func pathExists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}

func cleanPath(p string) string {
	return filepath.Clean(p)
}
