package builtins

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sort"

	"github.com/nixel-lang/nixel/eval"
	"github.com/nixel-lang/nixel/syntax"
)

func init() {
	reg("__readFile", 1, []string{"path"}, primReadFile)
	reg("__pathExists", 1, []string{"path"}, primPathExists)
	reg("__readDir", 1, []string{"path"}, primReadDir)
	reg("__findFile", 2, []string{"search-path", "lookup-path"}, primFindFile)
	reg("__storePath", 1, []string{"path"}, primStorePath)
	reg("placeholder", 1, []string{"output"}, primPlaceholder)
}

func coercedSourcePath(st *eval.EvalState, v *eval.Value, pos syntax.PosIdx, what string) (string, error) {
	var ctx eval.Context
	path, err := st.CoerceToPath(pos, v, &ctx, "while evaluating the "+what)
	if err != nil {
		return "", err
	}
	return st.CheckSourcePath(path, pos)
}

func primReadFile(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	path, err := coercedSourcePath(st, args[0], pos, "argument passed to builtins.readFile")
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return st.Errorf(eval.KindEval, pos, "cannot read file '%s': %v", path, err)
	}
	out.MkString(string(data), nil)
	return nil
}

func primPathExists(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	var ctx eval.Context
	path, err := st.CoerceToPath(pos, args[0], &ctx, "while evaluating the argument passed to builtins.pathExists")
	if err != nil {
		return err
	}
	checked, err := st.CheckSourcePath(path, pos)
	if err != nil {
		return err
	}
	_, statErr := os.Lstat(checked)
	out.MkBool(statErr == nil)
	return nil
}

func primReadDir(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	path, err := coercedSourcePath(st, args[0], pos, "argument passed to builtins.readDir")
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return st.Errorf(eval.KindEval, pos, "cannot read directory '%s': %v", path, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	b := eval.NewBindings(len(entries))
	for _, entry := range entries {
		kind := "regular"
		switch {
		case entry.IsDir():
			kind = "directory"
		case entry.Type()&os.ModeSymlink != 0:
			kind = "symlink"
		case !entry.Type().IsRegular():
			kind = "unknown"
		}
		v := new(eval.Value)
		v.MkString(kind, nil)
		b.Push(eval.Attr{Name: st.Symbols.Intern(entry.Name()), Value: v})
	}
	b.Sort()
	out.MkAttrs(b)
	return nil
}

// primFindFile resolves a lookup path against an explicit search path,
// which arrives as a list of { path, prefix } sets.
func primFindFile(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := st.ForceList(args[0], pos, "while evaluating the first argument passed to builtins.findFile"); err != nil {
		return err
	}
	sPath := st.Symbols.Intern("path")
	sPrefix := st.Symbols.Intern("prefix")

	var searchPath []eval.SearchPathElem
	for _, el := range args[0].List() {
		if err := st.ForceAttrs(el, pos, "while evaluating an element of the list passed to builtins.findFile"); err != nil {
			return err
		}
		var elem eval.SearchPathElem
		if prefixAttr := el.Attrs().Get(sPrefix); prefixAttr != nil {
			prefix, err := st.ForceStringNoCtx(prefixAttr.Value, pos, "while evaluating the 'prefix' attribute of an element of the search path")
			if err != nil {
				return err
			}
			elem.Prefix = prefix
		}
		pathAttr := el.Attrs().Get(sPath)
		if pathAttr == nil {
			return st.Errorf(eval.KindAttributeMissing, pos, "attribute 'path' missing")
		}
		var ctx eval.Context
		value, err := st.CoerceToString(pos, pathAttr.Value, &ctx, eval.CoerceOpts{
			ErrorCtx: "while evaluating the 'path' attribute of an element of the search path",
		})
		if err != nil {
			return err
		}
		elem.Value = value
		searchPath = append(searchPath, elem)
	}

	lookup, err := st.ForceStringNoCtx(args[1], pos, "while evaluating the second argument passed to builtins.findFile")
	if err != nil {
		return err
	}
	res, err := st.FindFileIn(searchPath, lookup, pos)
	if err != nil {
		return err
	}
	out.MkPath(res)
	return nil
}

func primStorePath(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if st.Config().PureEval {
		return st.Errorf(eval.KindEval, pos, "'builtins.storePath' is not allowed in pure evaluation mode")
	}
	var ctx eval.Context
	path, err := st.CoerceToPath(pos, args[0], &ctx, "while evaluating the argument passed to builtins.storePath")
	if err != nil {
		return err
	}
	if !st.Store().IsInStore(path) {
		return st.Errorf(eval.KindEval, pos, "path '%s' is not in the store", path)
	}
	if _, err := st.Store().ParseStorePath(path); err != nil {
		return st.Errorf(eval.KindInvalidPath, pos, "path '%s' is not a valid store path", path)
	}
	ctx.Add(eval.ContextElem{Kind: eval.ContextOpaque, Path: path})
	out.MkString(path, ctx.Elems())
	return nil
}

// primPlaceholder returns the deterministic placeholder string that
// stands in for a derivation output before the output path is known.
func primPlaceholder(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	name, err := st.ForceStringNoCtx(args[0], pos, "while evaluating the first argument passed to builtins.placeholder")
	if err != nil {
		return err
	}
	sum := sha256.Sum256([]byte("nix-output:" + name))
	out.MkString("/"+hex.EncodeToString(sum[:20]), nil)
	return nil
}
