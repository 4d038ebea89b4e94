package builtins

import (
	"strings"

	"github.com/nixel-lang/nixel/eval"
	"github.com/nixel-lang/nixel/syntax"
)

func init() {
	reg("__stringLength", 1, []string{"e"}, primStringLength)
	reg("__substring", 3, []string{"start", "len", "s"}, primSubstring)
	reg("__concatStringsSep", 2, []string{"separator", "list"}, primConcatStringsSep)
	reg("__replaceStrings", 3, []string{"from", "to", "s"}, primReplaceStrings)
	reg("baseNameOf", 1, []string{"s"}, primBaseNameOf)
	reg("dirOf", 1, []string{"s"}, primDirOf)
}

func primStringLength(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	var ctx eval.Context
	s, err := st.CoerceToString(pos, args[0], &ctx, eval.CoerceOpts{
		ErrorCtx: "while evaluating the argument passed to builtins.stringLength",
	})
	if err != nil {
		return err
	}
	out.MkInt(int64(len(s)))
	return nil
}

func primSubstring(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	start, err := st.ForceInt(args[0], pos, "while evaluating the first argument passed to builtins.substring")
	if err != nil {
		return err
	}
	length, err := st.ForceInt(args[1], pos, "while evaluating the second argument passed to builtins.substring")
	if err != nil {
		return err
	}
	var ctx eval.Context
	s, err := st.CoerceToString(pos, args[2], &ctx, eval.CoerceOpts{
		ErrorCtx: "while evaluating the third argument passed to builtins.substring",
	})
	if err != nil {
		return err
	}
	if start < 0 {
		return st.Errorf(eval.KindEval, pos, "negative start position in 'substring'")
	}
	if start > int64(len(s)) {
		out.MkString("", ctx.Elems())
		return nil
	}
	end := int64(len(s))
	if length >= 0 && start+length < end {
		end = start + length
	}
	out.MkString(s[start:end], ctx.Elems())
	return nil
}

func primConcatStringsSep(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	var ctx eval.Context
	sep, err := st.ForceString(args[0], &ctx, pos, "while evaluating the first argument passed to builtins.concatStringsSep")
	if err != nil {
		return err
	}
	if err := st.ForceList(args[1], pos, "while evaluating the second argument passed to builtins.concatStringsSep"); err != nil {
		return err
	}
	var sb strings.Builder
	for i, el := range args[1].List() {
		if i > 0 {
			sb.WriteString(sep)
		}
		s, err := st.CoerceToString(pos, el, &ctx, eval.CoerceOpts{
			ErrorCtx:    "while evaluating one element of the list of strings to concatenate passed to builtins.concatStringsSep",
			CopyToStore: true,
		})
		if err != nil {
			return err
		}
		sb.WriteString(s)
	}
	out.MkString(sb.String(), ctx.Elems())
	return nil
}

func primReplaceStrings(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := st.ForceList(args[0], pos, "while evaluating the first argument passed to builtins.replaceStrings"); err != nil {
		return err
	}
	if err := st.ForceList(args[1], pos, "while evaluating the second argument passed to builtins.replaceStrings"); err != nil {
		return err
	}
	if len(args[0].List()) != len(args[1].List()) {
		return st.Errorf(eval.KindEval, pos,
			"'from' and 'to' arguments passed to builtins.replaceStrings have different lengths")
	}

	var from []string
	for _, el := range args[0].List() {
		s, err := st.ForceStringNoCtx(el, pos, "while evaluating one of the strings to replace passed to builtins.replaceStrings")
		if err != nil {
			return err
		}
		from = append(from, s)
	}

	var ctx eval.Context
	var to []string
	for _, el := range args[1].List() {
		s, err := st.ForceString(el, &ctx, pos, "while evaluating one of the replacement strings passed to builtins.replaceStrings")
		if err != nil {
			return err
		}
		to = append(to, s)
	}

	s, err := st.ForceString(args[2], &ctx, pos, "while evaluating the third argument passed to builtins.replaceStrings")
	if err != nil {
		return err
	}

	var sb strings.Builder
	i := 0
	for i < len(s) {
		replaced := false
		for j, f := range from {
			if f != "" && strings.HasPrefix(s[i:], f) {
				sb.WriteString(to[j])
				i += len(f)
				replaced = true
				break
			}
		}
		if !replaced {
			sb.WriteByte(s[i])
			i++
		}
	}
	out.MkString(sb.String(), ctx.Elems())
	return nil
}

func primBaseNameOf(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	var ctx eval.Context
	s, err := st.CoerceToString(pos, args[0], &ctx, eval.CoerceOpts{
		ErrorCtx: "while evaluating the first argument passed to builtins.baseNameOf",
	})
	if err != nil {
		return err
	}
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	out.MkString(s, ctx.Elems())
	return nil
}

func primDirOf(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	v, err := forcedArg(st, args[0], pos)
	if err != nil {
		return err
	}
	isPath := v.Kind() == eval.KindPath
	var ctx eval.Context
	s, err := st.CoerceToString(pos, v, &ctx, eval.CoerceOpts{
		ErrorCtx: "while evaluating the first argument passed to builtins.dirOf",
	})
	if err != nil {
		return err
	}
	dir := s
	if i := strings.LastIndexByte(strings.TrimRight(s, "/"), '/'); i >= 0 {
		dir = s[:i]
		if dir == "" {
			dir = "/"
		}
	} else {
		dir = "."
	}
	if isPath {
		out.MkPath(dir)
		return nil
	}
	out.MkString(dir, ctx.Elems())
	return nil
}
