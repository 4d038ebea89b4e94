package builtins

import (
	"os"
	"strings"

	"github.com/nixel-lang/nixel/eval"
	"github.com/nixel-lang/nixel/syntax"
)

func init() {
	reg("import", 1, []string{"path"}, primImport)
	reg("throw", 1, []string{"s"}, primThrow)
	reg("abort", 1, []string{"s"}, primAbort)
	reg("__tryEval", 1, []string{"e"}, primTryEval)
	reg("__typeOf", 1, []string{"e"}, primTypeOf)
	reg("toString", 1, []string{"e"}, primToString)
	reg("__seq", 2, []string{"e1", "e2"}, primSeq)
	reg("__deepSeq", 2, []string{"e1", "e2"}, primDeepSeq)
	reg("__trace", 2, []string{"e1", "e2"}, primTrace)
	reg("__getEnv", 1, []string{"s"}, primGetEnv)
	reg("__functionArgs", 1, []string{"f"}, primFunctionArgs)
	reg("__genericClosure", 1, []string{"attrset"}, primGenericClosure)
	reg("__compareVersions", 2, []string{"v1", "v2"}, primCompareVersions)
	reg("__splitVersion", 1, []string{"s"}, primSplitVersion)

	reg("isNull", 1, []string{"e"}, isKind(eval.KindNull))
	reg("__isBool", 1, []string{"e"}, isKind(eval.KindBool))
	reg("__isInt", 1, []string{"e"}, isKind(eval.KindInt))
	reg("__isFloat", 1, []string{"e"}, isKind(eval.KindFloat))
	reg("__isString", 1, []string{"e"}, isKind(eval.KindString))
	reg("__isPath", 1, []string{"e"}, isKind(eval.KindPath))
	reg("__isList", 1, []string{"e"}, isKind(eval.KindList))
	reg("__isAttrs", 1, []string{"e"}, isKind(eval.KindAttrs))
	reg("__isFunction", 1, []string{"e"}, primIsFunction)
}

func primImport(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	var ctx eval.Context
	path, err := st.CoerceToPath(pos, args[0], &ctx, "while evaluating the argument passed to import")
	if err != nil {
		return err
	}
	return st.ImportFile(path, out, pos)
}

func primThrow(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	var ctx eval.Context
	s, err := st.CoerceToString(pos, args[0], &ctx, eval.CoerceOpts{
		ErrorCtx: "while evaluating the error message passed to builtins.throw",
		More:     true,
	})
	if err != nil {
		return err
	}
	return st.Errorf(eval.KindThrown, pos, "%s", s)
}

func primAbort(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	var ctx eval.Context
	s, err := st.CoerceToString(pos, args[0], &ctx, eval.CoerceOpts{
		ErrorCtx: "while evaluating the error message passed to builtins.abort",
		More:     true,
	})
	if err != nil {
		return err
	}
	return st.Errorf(eval.KindAbort, pos, "evaluation aborted with the following error message: '%s'", s)
}

// primTryEval absorbs assert and throw failures, converting them to
// {success, value}. Aborts, interrupts, and resource-guard errors pass
// through.
func primTryEval(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	success := true
	value := args[0]
	if err := st.Force(args[0], pos); err != nil {
		if !eval.IsKind(err, eval.KindThrown) && !eval.IsKind(err, eval.KindAssertion) {
			return err
		}
		success = false
		value = new(eval.Value)
		value.MkNull()
	}

	b := eval.NewBindings(2)
	vSuccess := new(eval.Value)
	vSuccess.MkBool(success)
	b.Push(eval.Attr{Name: st.Symbols.Intern("success"), Value: vSuccess})
	b.Push(eval.Attr{Name: st.Symbols.Intern("value"), Value: value})
	b.Sort()
	out.MkAttrs(b)
	return nil
}

func primTypeOf(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	v, err := forcedArg(st, args[0], pos)
	if err != nil {
		return err
	}
	var name string
	switch v.Kind() {
	case eval.KindInt:
		name = "int"
	case eval.KindBool:
		name = "bool"
	case eval.KindString:
		name = "string"
	case eval.KindPath:
		name = "path"
	case eval.KindNull:
		name = "null"
	case eval.KindAttrs:
		name = "set"
	case eval.KindList:
		name = "list"
	case eval.KindFunction:
		name = "lambda"
	case eval.KindFloat:
		name = "float"
	default:
		name = "external"
	}
	out.MkString(name, nil)
	return nil
}

func primToString(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	var ctx eval.Context
	s, err := st.CoerceToString(pos, args[0], &ctx, eval.CoerceOpts{
		ErrorCtx: "while evaluating the first argument passed to builtins.toString",
		More:     true,
	})
	if err != nil {
		return err
	}
	out.MkString(s, ctx.Elems())
	return nil
}

func primSeq(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := st.Force(args[0], pos); err != nil {
		return err
	}
	if err := st.Force(args[1], pos); err != nil {
		return err
	}
	*out = *args[1]
	return nil
}

func primDeepSeq(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := st.ForceDeep(args[0]); err != nil {
		return err
	}
	if err := st.Force(args[1], pos); err != nil {
		return err
	}
	*out = *args[1]
	return nil
}

func primTrace(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	v, err := forcedArg(st, args[0], pos)
	if err != nil {
		return err
	}
	if v.Kind() == eval.KindString {
		st.Warn("trace: %s", v.Str())
	} else {
		st.Warn("trace: %s", st.PrintValue(v, eval.PrintOptions{Force: true, DerivationPaths: true}))
	}
	if err := st.Force(args[1], pos); err != nil {
		return err
	}
	*out = *args[1]
	return nil
}

func primGetEnv(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	name, err := st.ForceStringNoCtx(args[0], pos, "while evaluating the first argument passed to builtins.getEnv")
	if err != nil {
		return err
	}
	if st.Config().PureEval {
		out.MkString("", nil)
		return nil
	}
	out.MkString(os.Getenv(name), nil)
	return nil
}

func primFunctionArgs(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	v, err := forcedArg(st, args[0], pos)
	if err != nil {
		return err
	}
	if v.Kind() != eval.KindFunction {
		return st.Errorf(eval.KindType, pos, "'functionArgs' requires a function")
	}

	if !v.IsLambdaValue() {
		out.MkAttrs(eval.EmptyBindings())
		return nil
	}
	_, lambda := v.Lambda()
	if !lambda.HasFormals() {
		out.MkAttrs(eval.EmptyBindings())
		return nil
	}
	b := eval.NewBindings(len(lambda.Formals.Formals))
	for _, f := range lambda.Formals.Formals {
		hasDef := new(eval.Value)
		hasDef.MkBool(f.Def != nil)
		b.Push(eval.Attr{Name: f.Name, Value: hasDef, Pos: f.Pos})
	}
	b.Sort()
	out.MkAttrs(b)
	return nil
}

// primGenericClosure computes the closure of startSet under operator,
// deduplicating by the key attribute.
func primGenericClosure(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := st.ForceAttrs(args[0], pos, "while evaluating the first argument passed to builtins.genericClosure"); err != nil {
		return err
	}
	sStartSet := st.Symbols.Intern("startSet")
	sOperator := st.Symbols.Intern("operator")
	sKey := st.Symbols.Intern("key")

	startSet := args[0].Attrs().Get(sStartSet)
	if startSet == nil {
		return st.Errorf(eval.KindAttributeMissing, pos, "attribute 'startSet' missing")
	}
	if err := st.ForceList(startSet.Value, pos, "while evaluating the 'startSet' attribute"); err != nil {
		return err
	}
	operator := args[0].Attrs().Get(sOperator)
	if operator == nil {
		return st.Errorf(eval.KindAttributeMissing, pos, "attribute 'operator' missing")
	}

	workSet := append([]*eval.Value(nil), startSet.Value.List()...)
	var doneKeys []*eval.Value
	var res []*eval.Value

	for len(workSet) > 0 {
		if err := st.CheckInterrupt(pos); err != nil {
			return err
		}
		e := workSet[0]
		workSet = workSet[1:]
		if err := st.ForceAttrs(e, pos, "while evaluating one of the elements generated by builtins.genericClosure"); err != nil {
			return err
		}
		key := e.Attrs().Get(sKey)
		if key == nil {
			return st.Errorf(eval.KindAttributeMissing, pos, "attribute 'key' missing")
		}
		if err := st.Force(key.Value, pos); err != nil {
			return err
		}

		seen := false
		for _, k := range doneKeys {
			eq, err := st.EqValues(k, key.Value, pos, "while comparing keys in builtins.genericClosure")
			if err != nil {
				return err
			}
			if eq {
				seen = true
				break
			}
		}
		if seen {
			continue
		}
		doneKeys = append(doneKeys, key.Value)
		res = append(res, e)

		produced := new(eval.Value)
		if err := st.Call(operator.Value, produced, pos, e); err != nil {
			return err
		}
		if err := st.ForceList(produced, pos, "while evaluating the return value of the 'operator' passed to builtins.genericClosure"); err != nil {
			return err
		}
		workSet = append(workSet, produced.List()...)
	}

	out.MkList(res)
	return nil
}

// Version components compare numerically when both are digits, by the
// special pre-release rule when one is "pre", and lexically otherwise.
func compareVersions(v1, v2 string) int {
	c1 := splitVersionString(v1)
	c2 := splitVersionString(v2)
	for i := 0; i < len(c1) || i < len(c2); i++ {
		var a, b string
		if i < len(c1) {
			a = c1[i]
		}
		if i < len(c2) {
			b = c2[i]
		}
		if cmp := compareVersionComponent(a, b); cmp != 0 {
			return cmp
		}
	}
	return 0
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func compareVersionComponent(a, b string) int {
	switch {
	case a == b:
		return 0
	case isAllDigits(a) && isAllDigits(b):
		a = strings.TrimLeft(a, "0")
		b = strings.TrimLeft(b, "0")
		if len(a) != len(b) {
			if len(a) < len(b) {
				return -1
			}
			return 1
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	case a == "" && isAllDigits(b):
		return -1
	case b == "" && isAllDigits(a):
		return 1
	case a == "pre":
		return -1
	case b == "pre":
		return 1
	case isAllDigits(a):
		return 1
	case isAllDigits(b):
		return -1
	case a < b:
		return -1
	default:
		return 1
	}
}

func splitVersionString(s string) []string {
	var parts []string
	i := 0
	for i < len(s) {
		if s[i] == '.' || s[i] == '-' {
			i++
			continue
		}
		digit := isAllDigits(s[i : i+1])
		j := i
		for j < len(s) && s[j] != '.' && s[j] != '-' && isAllDigits(s[j:j+1]) == digit {
			j++
		}
		parts = append(parts, s[i:j])
		i = j
	}
	return parts
}

func primCompareVersions(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	v1, err := st.ForceStringNoCtx(args[0], pos, "while evaluating the first argument passed to builtins.compareVersions")
	if err != nil {
		return err
	}
	v2, err := st.ForceStringNoCtx(args[1], pos, "while evaluating the second argument passed to builtins.compareVersions")
	if err != nil {
		return err
	}
	out.MkInt(int64(compareVersions(v1, v2)))
	return nil
}

func primSplitVersion(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	s, err := st.ForceStringNoCtx(args[0], pos, "while evaluating the first argument passed to builtins.splitVersion")
	if err != nil {
		return err
	}
	parts := splitVersionString(s)
	elems := make([]*eval.Value, len(parts))
	for i, p := range parts {
		v := new(eval.Value)
		v.MkString(p, nil)
		elems[i] = v
	}
	out.MkList(elems)
	return nil
}

func isKind(kind eval.ValueKind) eval.PrimOpFn {
	return func(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
		v, err := forcedArg(st, args[0], pos)
		if err != nil {
			return err
		}
		out.MkBool(v.Kind() == kind)
		return nil
	}
}

func primIsFunction(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	v, err := forcedArg(st, args[0], pos)
	if err != nil {
		return err
	}
	out.MkBool(v.Kind() == eval.KindFunction)
	return nil
}
