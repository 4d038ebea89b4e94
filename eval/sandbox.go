package eval

import (
	"path/filepath"
	"strings"

	"github.com/nixel-lang/nixel/syntax"
)

// allowPath adds a path to the read allow-list when restrictions are
// active.
func (st *EvalState) allowPath(path string) {
	if st.allowedPaths != nil {
		st.allowedPaths = append(st.allowedPaths, path)
	}
}

// isDirOrInDir reports whether path equals dir or sits below it.
func isDirOrInDir(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, strings.TrimSuffix(dir, "/")+"/")
}

// CheckSourcePath verifies that reading path is permitted: the path
// must sit under an allow-list entry both before and after symlink
// resolution, so a symlink cannot smuggle reads out of the sandbox.
// Unrestricted evaluators pass everything through.
func (st *EvalState) CheckSourcePath(path string, pos syntax.PosIdx) (string, error) {
	if st.allowedPaths == nil {
		return path, nil
	}

	if resolved, ok := st.resolvedPaths[path]; ok {
		return resolved, nil
	}

	// First canonicalise lexically, so "../.." cannot escape an
	// allowed directory before symlinks are even considered.
	abspath := cleanPath(path)

	if strings.HasPrefix(abspath, corePkgsPrefix) {
		return abspath, nil
	}

	found := false
	for _, allowed := range st.allowedPaths {
		if isDirOrInDir(abspath, allowed) {
			found = true
			break
		}
	}
	if !found {
		mode := "in restricted mode"
		if st.cfg.PureEval {
			mode = "in pure eval mode (use '--impure' to override)"
		}
		return "", st.errorf(KindRestrictedPath, pos, "access to absolute path '%s' is forbidden %s", abspath, mode)
	}

	// Then resolve symlinks and re-check the landing point.
	resolved, err := filepath.EvalSymlinks(abspath)
	if err != nil {
		resolved = abspath
	}
	for _, allowed := range st.allowedPaths {
		if isDirOrInDir(resolved, allowed) {
			st.resolvedPaths[path] = resolved
			return resolved, nil
		}
	}
	return "", st.errorf(KindRestrictedPath, pos, "access to canonical path '%s' is forbidden in restricted mode", resolved)
}

// CheckURI verifies network access against the allowed-URIs prefixes
// in restricted mode. Path-shaped URIs fall back to the path sandbox.
func (st *EvalState) CheckURI(uri string, pos syntax.PosIdx) error {
	if !st.cfg.RestrictEval && !st.cfg.PureEval {
		return nil
	}

	// A prefix only matches whole components: https://github.co must
	// not admit https://github.com.
	for _, prefix := range st.cfg.AllowedURIs {
		if uri == prefix {
			return nil
		}
		if len(uri) > len(prefix) && prefix != "" && strings.HasPrefix(uri, prefix) &&
			(prefix[len(prefix)-1] == '/' || uri[len(prefix)] == '/') {
			return nil
		}
	}

	if strings.HasPrefix(uri, "/") {
		_, err := st.CheckSourcePath(uri, pos)
		return err
	}
	if rest, ok := strings.CutPrefix(uri, "file://"); ok {
		_, err := st.CheckSourcePath(rest, pos)
		return err
	}

	return st.errorf(KindRestrictedPath, pos, "access to URI '%s' is forbidden in restricted mode", uri)
}
