package eval

import (
	"os"
	"path/filepath"

	"github.com/nixel-lang/nixel/syntax"
)

// DefaultModuleFilename is appended when an import resolves to a
// directory.
const DefaultModuleFilename = "default.nix"

// maxSymlinkFollows bounds symlink chasing during import resolution.
const maxSymlinkFollows = 1024

// resolveExprPath follows symlinks (so relative references inside the
// target keep working) and appends the default module filename for
// directories.
func (st *EvalState) resolveExprPath(path string, pos syntax.PosIdx) (string, error) {
	follows := 0
	for {
		if err := st.checkInterrupt(pos); err != nil {
			return "", err
		}
		follows++
		if follows >= maxSymlinkFollows {
			return "", st.errorf(KindEval, pos, "too many symbolic links encountered while traversing the path '%s'", path)
		}
		fi, err := os.Lstat(path)
		if err != nil {
			break
		}
		if fi.Mode()&os.ModeSymlink == 0 {
			break
		}
		target, err := os.Readlink(path)
		if err != nil {
			return "", st.errorf(KindEval, pos, "cannot read symbolic link '%s': %v", path, err)
		}
		if filepath.IsAbs(target) {
			path = filepath.Clean(target)
		} else {
			path = filepath.Join(filepath.Dir(path), target)
		}
	}

	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, DefaultModuleFilename)
	}
	return path, nil
}

// EvalFile evaluates the expression in the given file, memoising both
// the parse and the fully evaluated top-level value under the
// canonical path. mustBeTrivial requires the top-level node to be a
// plain attrset literal.
func (st *EvalState) EvalFile(path string, v *Value, mustBeTrivial bool) error {
	return st.evalFileAt(path, v, mustBeTrivial, syntax.NoPos)
}

func (st *EvalState) evalFileAt(path string, v *Value, mustBeTrivial bool, pos syntax.PosIdx) error {
	checked, err := st.CheckSourcePath(cleanPath(path), pos)
	if err != nil {
		return err
	}

	if cached, ok := st.fileEvalCache[checked]; ok {
		*v = *cached
		return nil
	}

	resolvedPath, err := st.resolveExprPath(checked, pos)
	if err != nil {
		return err
	}
	if cached, ok := st.fileEvalCache[resolvedPath]; ok {
		*v = *cached
		return nil
	}

	expr, ok := st.fileParseCache[resolvedPath]
	if !ok {
		parsePath, err := st.CheckSourcePath(resolvedPath, pos)
		if err != nil {
			return err
		}
		expr, err = st.parser.ParseFile(parsePath, st.staticBaseEnv)
		if err != nil {
			return err
		}
		st.fileParseCache[resolvedPath] = expr
	}

	pop := st.maybePushDebugTrace(expr.Pos(), expr, st.baseEnv, "while evaluating the file '"+resolvedPath+"'")
	defer pop()

	if mustBeTrivial {
		if _, ok := expr.(*syntax.ExprAttrs); !ok {
			return st.errorf(KindEval, expr.Pos(), "file '%s' must be an attribute set", path)
		}
	}
	if err := st.Eval(expr, v); err != nil {
		return st.addErrorTrace(err, expr.Pos(), "while evaluating the file '%s':", resolvedPath)
	}

	cached := new(Value)
	*cached = *v
	st.fileEvalCache[resolvedPath] = cached
	if checked != resolvedPath {
		st.fileEvalCache[checked] = cached
	}
	return nil
}

// ResetFileCache drops both file caches, for REPL-style reloading.
func (st *EvalState) ResetFileCache() {
	st.fileParseCache = make(map[string]syntax.Expr)
	st.fileEvalCache = make(map[string]*Value)
}

// ImportFile is the builtin import entry point: sandbox check, path
// resolution, caches, then evaluation.
func (st *EvalState) ImportFile(path string, v *Value, pos syntax.PosIdx) error {
	return st.evalFileAt(path, v, false, pos)
}
