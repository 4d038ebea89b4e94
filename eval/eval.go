package eval

import (
	"path/filepath"

	"github.com/nixel-lang/nixel/syntax"
)

// Eval evaluates a bound expression in the root environment, writing
// the (weak-head) result into v.
func (st *EvalState) Eval(e syntax.Expr, v *Value) error {
	return st.evalExpr(e, st.baseEnv, v)
}

// EvalString parses and evaluates an expression string. Relative paths
// are anchored at basePath.
func (st *EvalState) EvalString(src, basePath string, v *Value) error {
	e, err := st.ParseString(src, basePath)
	if err != nil {
		return err
	}
	return st.Eval(e, v)
}

var emptyListValue = &Value{tag: tList}

// maybeThunk produces a value cell for a subexpression, eliding the
// thunk for the cheap cases: the four literal kinds, the empty list
// literal, and variables whose slot is already initialised.
func (st *EvalState) maybeThunk(e syntax.Expr, env *Env) *Value {
	switch e := e.(type) {
	case *syntax.ExprInt:
		st.stats.NrAvoided++
		v := new(Value)
		v.MkInt(e.Value)
		return v
	case *syntax.ExprFloat:
		st.stats.NrAvoided++
		v := new(Value)
		v.MkFloat(e.Value)
		return v
	case *syntax.ExprString:
		st.stats.NrAvoided++
		v := new(Value)
		v.MkString(e.Value, nil)
		return v
	case *syntax.ExprPath:
		st.stats.NrAvoided++
		v := new(Value)
		v.MkPath(e.Value)
		return v
	case *syntax.ExprList:
		if len(e.Elems) == 0 {
			st.stats.NrAvoided++
			return emptyListValue
		}
	case *syntax.ExprVar:
		// The slot might not be initialised yet (recursive sets being
		// built); fall back to a thunk in that case.
		if v := st.lookupVarNoEval(env, e); v != nil {
			st.stats.NrAvoided++
			return v
		}
	}
	st.stats.NrThunks++
	v := new(Value)
	v.MkThunk(env, e)
	return v
}

func (st *EvalState) lookupVarNoEval(env *Env, e *syntax.ExprVar) *Value {
	if e.FromWith != nil {
		return nil
	}
	for l := e.Level; l > 0; l-- {
		env = env.Up
	}
	return env.Values[e.Displ]
}

// lookupVar resolves a variable at runtime. Lexical references chase
// the parent chain by the precomputed level and displacement; with
// references walk the with chain, forcing each attribute set in turn.
func (st *EvalState) lookupVar(env *Env, e *syntax.ExprVar) (*Value, error) {
	for l := e.Level; l > 0; l-- {
		env = env.Up
	}
	if e.FromWith == nil {
		return env.Values[e.Displ], nil
	}

	var visible []string
	fromWith := e.FromWith
	for {
		if err := st.ForceAttrs(env.Values[0], fromWith.Pos(),
			"while evaluating the first subexpression of a with expression"); err != nil {
			return nil, err
		}
		if a := env.Values[0].attrs.Get(e.Name); a != nil {
			return a.Value, nil
		}
		visible = append(visible, env.Values[0].attrs.Names(st.Symbols)...)
		if fromWith.ParentWith == nil {
			visible = append(visible, st.staticBaseEnv.Names(st.Symbols)...)
			name := st.Symbols.Name(e.Name)
			return nil, st.errorf(KindUndefinedVariable, e.P, "undefined variable '%s'", name).
				WithSuggestions(syntax.BestMatches(visible, name))
		}
		for l := fromWith.PrevWith; l > 0; l-- {
			env = env.Up
		}
		fromWith = fromWith.ParentWith
	}
}

// evalBool evaluates e and asserts a Boolean.
func (st *EvalState) evalBool(env *Env, e syntax.Expr, pos syntax.PosIdx, errorCtx string) (bool, error) {
	var v Value
	if err := st.evalExpr(e, env, &v); err != nil {
		return false, st.addErrorTrace(err, pos, "%s", errorCtx)
	}
	if v.tag != tBool {
		return false, st.addErrorTrace(
			st.errorf(KindType, pos, "expected a Boolean but found %s: %s", st.ShowTypeOf(&v), st.AbbrevValue(&v)),
			pos, "%s", errorCtx)
	}
	return v.num != 0, nil
}

// evalAttrs evaluates e and asserts an attribute set.
func (st *EvalState) evalAttrs(env *Env, e syntax.Expr, v *Value, pos syntax.PosIdx, errorCtx string) error {
	if err := st.evalExpr(e, env, v); err != nil {
		return st.addErrorTrace(err, pos, "%s", errorCtx)
	}
	if v.tag != tAttrs {
		return st.addErrorTrace(
			st.errorf(KindType, pos, "expected a set but found %s: %s", st.ShowTypeOf(v), st.AbbrevValue(v)),
			pos, "%s", errorCtx)
	}
	return nil
}

// evalExpr applies the evaluation rule for e's node kind, writing the
// result into v.
func (st *EvalState) evalExpr(e syntax.Expr, env *Env, v *Value) error {
	switch e := e.(type) {
	case *syntax.ExprInt:
		v.MkInt(e.Value)
		return nil
	case *syntax.ExprFloat:
		v.MkFloat(e.Value)
		return nil
	case *syntax.ExprString:
		v.MkString(e.Value, nil)
		return nil
	case *syntax.ExprPath:
		v.MkPath(e.Value)
		return nil

	case *syntax.ExprVar:
		cell, err := st.lookupVar(env, e)
		if err != nil {
			return err
		}
		if err := st.Force(cell, e.P); err != nil {
			return err
		}
		*v = *cell
		return nil

	case *syntax.ExprInheritFrom:
		cell := env.Values[e.Displ]
		if err := st.Force(cell, e.P); err != nil {
			return err
		}
		*v = *cell
		return nil

	case *syntax.ExprAttrs:
		return st.evalAttrsLiteral(e, env, v)

	case *syntax.ExprList:
		elems := make([]*Value, len(e.Elems))
		for i, el := range e.Elems {
			elems[i] = st.maybeThunk(el, env)
		}
		st.stats.NrListElems += int64(len(elems))
		v.MkList(elems)
		return nil

	case *syntax.ExprSelect:
		return st.evalSelect(e, env, v)

	case *syntax.ExprOpHasAttr:
		return st.evalHasAttr(e, env, v)

	case *syntax.ExprLambda:
		v.MkLambda(env, e)
		return nil

	case *syntax.ExprCall:
		pop := st.maybePushDebugTrace(e.P, e, env, "while calling a function")
		defer pop()
		var vFun Value
		if err := st.evalExpr(e.Fun, env, &vFun); err != nil {
			return err
		}
		args := make([]*Value, len(e.Args))
		for i, a := range e.Args {
			args[i] = st.maybeThunk(a, env)
		}
		return st.callFunction(&vFun, args, v, e.P)

	case *syntax.ExprLet:
		env2 := st.allocEnv(len(e.Attrs.Attrs), env)
		var inheritEnv *Env
		if len(e.Attrs.InheritFrom) > 0 {
			inheritEnv = st.buildInheritFromEnv(e.Attrs, env2)
		}
		for i := range e.Attrs.Attrs {
			def := &e.Attrs.Attrs[i]
			env2.Values[def.Displ] = st.maybeThunk(def.E, st.chooseByKind(def, env2, env, inheritEnv))
		}
		pop := st.maybePushDebugTrace(e.P, e, env2, "while evaluating a 'let' expression")
		defer pop()
		return st.evalExpr(e.Body, env2, v)

	case *syntax.ExprWith:
		env2 := st.allocEnv(1, env)
		env2.Values[0] = st.maybeThunk(e.Attrs, env)
		return st.evalExpr(e.Body, env2, v)

	case *syntax.ExprIf:
		cond, err := st.evalBool(env, e.Cond, e.P, "while evaluating a branch condition")
		if err != nil {
			return err
		}
		if cond {
			return st.evalExpr(e.Then, env, v)
		}
		return st.evalExpr(e.Else, env, v)

	case *syntax.ExprAssert:
		cond, err := st.evalBool(env, e.Cond, e.P, "in the condition of the assert statement")
		if err != nil {
			return err
		}
		if !cond {
			return st.errorf(KindAssertion, e.P, "assertion '%s' failed", syntax.Show(st.Symbols, e.Cond))
		}
		return st.evalExpr(e.Body, env, v)

	case *syntax.ExprOpNot:
		b, err := st.evalBool(env, e.E, e.P, "in the argument of the not operator")
		if err != nil {
			return err
		}
		v.MkBool(!b)
		return nil

	case *syntax.ExprOpEq:
		var v1, v2 Value
		if err := st.evalExpr(e.E1, env, &v1); err != nil {
			return err
		}
		if err := st.evalExpr(e.E2, env, &v2); err != nil {
			return err
		}
		eq, err := st.EqValues(&v1, &v2, e.P, "while testing two values for equality")
		if err != nil {
			return err
		}
		v.MkBool(eq)
		return nil

	case *syntax.ExprOpNEq:
		var v1, v2 Value
		if err := st.evalExpr(e.E1, env, &v1); err != nil {
			return err
		}
		if err := st.evalExpr(e.E2, env, &v2); err != nil {
			return err
		}
		eq, err := st.EqValues(&v1, &v2, e.P, "while testing two values for inequality")
		if err != nil {
			return err
		}
		v.MkBool(!eq)
		return nil

	case *syntax.ExprOpAnd:
		b1, err := st.evalBool(env, e.E1, e.P, "in the left operand of the AND (&&) operator")
		if err != nil {
			return err
		}
		if !b1 {
			v.MkBool(false)
			return nil
		}
		b2, err := st.evalBool(env, e.E2, e.P, "in the right operand of the AND (&&) operator")
		if err != nil {
			return err
		}
		v.MkBool(b2)
		return nil

	case *syntax.ExprOpOr:
		b1, err := st.evalBool(env, e.E1, e.P, "in the left operand of the OR (||) operator")
		if err != nil {
			return err
		}
		if b1 {
			v.MkBool(true)
			return nil
		}
		b2, err := st.evalBool(env, e.E2, e.P, "in the right operand of the OR (||) operator")
		if err != nil {
			return err
		}
		v.MkBool(b2)
		return nil

	case *syntax.ExprOpImpl:
		b1, err := st.evalBool(env, e.E1, e.P, "in the left operand of the IMPL (->) operator")
		if err != nil {
			return err
		}
		if !b1 {
			v.MkBool(true)
			return nil
		}
		b2, err := st.evalBool(env, e.E2, e.P, "in the right operand of the IMPL (->) operator")
		if err != nil {
			return err
		}
		v.MkBool(b2)
		return nil

	case *syntax.ExprOpUpdate:
		return st.evalUpdate(e, env, v)

	case *syntax.ExprOpConcatLists:
		var v1, v2 Value
		if err := st.evalExpr(e.E1, env, &v1); err != nil {
			return err
		}
		if err := st.evalExpr(e.E2, env, &v2); err != nil {
			return err
		}
		return st.ConcatLists(v, []*Value{&v1, &v2}, e.P, "while evaluating one of the elements to concatenate")

	case *syntax.ExprConcatStrings:
		return st.evalConcat(e, env, v)

	case *syntax.ExprPos:
		st.mkPos(v, e.P)
		return nil

	case *syntax.ExprBlackHole:
		return st.errorf(KindInfiniteRecursion, syntax.NoPos, "infinite recursion encountered")
	}

	return st.errorf(KindEval, e.Pos(), "cannot evaluate expression node")
}

// chooseByKind picks the environment an attribute definition evaluates
// in: the inner recursive env for plain attributes, the enclosing env
// for inherited ones, and the inherit-from env for inherit (e) names.
func (st *EvalState) chooseByKind(def *syntax.AttrDef, inner, enclosing, inheritEnv *Env) *Env {
	switch def.Kind {
	case syntax.AttrInherited:
		return enclosing
	case syntax.AttrInheritedFrom:
		return inheritEnv
	default:
		return inner
	}
}

// buildInheritFromEnv evaluates the inherit (e) source expressions into
// a dedicated frame, one slot per source, shared by all names inherited
// from it.
func (st *EvalState) buildInheritFromEnv(attrs *syntax.ExprAttrs, up *Env) *Env {
	inheritEnv := st.allocEnv(len(attrs.InheritFrom), up)
	for i, from := range attrs.InheritFrom {
		inheritEnv.Values[i] = st.maybeThunk(from, up)
	}
	return inheritEnv
}

// evalAttrsLiteral builds an attribute set. Recursive literals get an
// inner environment whose slots alias the attribute cells; an
// __overrides attribute replaces both the bindings and those slots;
// dynamic attributes apply last.
func (st *EvalState) evalAttrsLiteral(e *syntax.ExprAttrs, env *Env, v *Value) error {
	st.stats.NrAttrsets++
	bindings := NewBindings(len(e.Attrs) + len(e.Dynamic))
	bindings.pos = e.P
	v.MkAttrs(bindings)

	dynamicEnv := env

	if e.Recursive {
		env2 := st.allocEnv(len(e.Attrs), env)
		dynamicEnv = env2
		var inheritEnv *Env
		if len(e.InheritFrom) > 0 {
			inheritEnv = st.buildInheritFromEnv(e, env2)
		}

		overrides := -1
		for i := range e.Attrs {
			if e.Attrs[i].Name == st.sOverrides {
				overrides = i
				break
			}
		}

		for i := range e.Attrs {
			def := &e.Attrs[i]
			var vAttr *Value
			if overrides >= 0 && def.Kind != syntax.AttrInherited {
				// With overrides in play, every attribute must stay a
				// thunk so replaced slots are still observable.
				st.stats.NrThunks++
				vAttr = new(Value)
				vAttr.MkThunk(st.chooseByKind(def, env2, env, inheritEnv), def.E)
			} else {
				vAttr = st.maybeThunk(def.E, st.chooseByKind(def, env2, env, inheritEnv))
			}
			env2.Values[def.Displ] = vAttr
			bindings.Push(Attr{Name: def.Name, Value: vAttr, Pos: def.Pos})
		}

		if overrides >= 0 {
			vOverrides := bindings.Attrs()[overrides].Value
			if err := st.ForceAttrs(vOverrides, vOverrides.determinePos(e.P),
				"while evaluating the `__overrides` attribute"); err != nil {
				return err
			}
			newBindings := NewBindings(bindings.Size() + vOverrides.attrs.Size())
			for _, a := range bindings.Attrs() {
				newBindings.Push(a)
			}
			for _, o := range vOverrides.attrs.Attrs() {
				replaced := false
				for i := range e.Attrs {
					if e.Attrs[i].Name == o.Name {
						newBindings.Set(e.Attrs[i].Displ, o)
						env2.Values[e.Attrs[i].Displ] = o.Value
						replaced = true
						break
					}
				}
				if !replaced {
					newBindings.Push(o)
				}
			}
			newBindings.Sort()
			newBindings.pos = e.P
			bindings = newBindings
			v.MkAttrs(bindings)
		}
	} else {
		var inheritEnv *Env
		if len(e.InheritFrom) > 0 {
			inheritEnv = st.buildInheritFromEnv(e, env)
		}
		for i := range e.Attrs {
			def := &e.Attrs[i]
			bindings.Push(Attr{
				Name:  def.Name,
				Value: st.maybeThunk(def.E, st.chooseByKind(def, env, env, inheritEnv)),
				Pos:   def.Pos,
			})
		}
	}

	// Dynamic attrs apply after rec and __overrides.
	for _, d := range e.Dynamic {
		var nameVal Value
		if err := st.evalExpr(d.NameExpr, dynamicEnv, &nameVal); err != nil {
			return err
		}
		if err := st.Force(&nameVal, d.Pos); err != nil {
			return err
		}
		if nameVal.tag == tNull {
			continue
		}
		name, err := st.ForceStringNoCtx(&nameVal, d.Pos, "while evaluating the name of a dynamic attribute")
		if err != nil {
			return err
		}
		nameSym := st.Symbols.Intern(name)
		if existing := bindings.Get(nameSym); existing != nil {
			return st.errorf(KindDuplicateAttribute, d.Pos,
				"dynamic attribute '%s' already defined at %s", name, st.Positions.Resolve(existing.Pos))
		}
		bindings.Push(Attr{Name: nameSym, Value: st.maybeThunk(d.ValueExpr, dynamicEnv), Pos: d.Pos})
		bindings.Sort()
	}

	return nil
}

func (st *EvalState) attrNameOf(env *Env, an syntax.AttrName) (syntax.Symbol, error) {
	if an.Symbol != 0 {
		return an.Symbol, nil
	}
	var nameVal Value
	if err := st.evalExpr(an.Expr, env, &nameVal); err != nil {
		return 0, err
	}
	name, err := st.ForceStringNoCtx(&nameVal, an.Expr.Pos(), "while evaluating an attribute name")
	if err != nil {
		return 0, err
	}
	return st.Symbols.Intern(name), nil
}

func (st *EvalState) showAttrPath(env *Env, path []syntax.AttrName) string {
	out := ""
	for i, an := range path {
		if i > 0 {
			out += "."
		}
		if an.Symbol != 0 {
			out += st.Symbols.Name(an.Symbol)
		} else {
			out += "\"${…}\""
		}
	}
	return out
}

func (st *EvalState) evalSelect(e *syntax.ExprSelect, env *Env, v *Value) error {
	var vFirst Value
	current := &vFirst
	posCurrent := syntax.NoPos

	pop := st.maybePushDebugTrace(e.P, e, env, "while evaluating the attribute '"+st.showAttrPath(env, e.Path)+"'")
	defer pop()

	if err := st.evalExpr(e.E, env, &vFirst); err != nil {
		return st.addErrorTrace(err, e.P, "while evaluating '%s' to select '%s' on it",
			syntax.Show(st.Symbols, e.E), st.showAttrPath(env, e.Path))
	}

	for _, an := range e.Path {
		st.stats.NrLookups++
		name, err := st.attrNameOf(env, an)
		if err != nil {
			return err
		}
		if err := st.Force(current, e.P); err != nil {
			return st.addErrorTrace(err, e.P, "while selecting '%s'", st.Symbols.Name(name))
		}
		if current.tag != tAttrs {
			if e.Default != nil {
				return st.evalExpr(e.Default, env, v)
			}
			return st.errorf(KindType, e.P, "expected a set but found %s: %s",
				st.ShowTypeOf(current), st.AbbrevValue(current))
		}
		attr := current.attrs.Get(name)
		if attr == nil {
			if e.Default != nil {
				return st.evalExpr(e.Default, env, v)
			}
			nameStr := st.Symbols.Name(name)
			return st.errorf(KindAttributeMissing, e.P, "attribute '%s' missing", nameStr).
				WithSuggestions(syntax.BestMatches(current.attrs.Names(st.Symbols), nameStr))
		}
		current = attr.Value
		posCurrent = attr.Pos
	}

	forcePos := posCurrent
	if forcePos == syntax.NoPos {
		forcePos = e.P
	}
	if err := st.Force(current, forcePos); err != nil {
		return st.addErrorTrace(err, forcePos, "while evaluating the attribute '%s'",
			st.showAttrPath(env, e.Path))
	}
	*v = *current
	return nil
}

func (st *EvalState) evalHasAttr(e *syntax.ExprOpHasAttr, env *Env, v *Value) error {
	var vTmp Value
	if err := st.evalExpr(e.E, env, &vTmp); err != nil {
		return err
	}
	current := &vTmp
	for _, an := range e.Path {
		if err := st.Force(current, e.P); err != nil {
			return err
		}
		name, err := st.attrNameOf(env, an)
		if err != nil {
			return err
		}
		if current.tag != tAttrs {
			v.MkBool(false)
			return nil
		}
		attr := current.attrs.Get(name)
		if attr == nil {
			v.MkBool(false)
			return nil
		}
		current = attr.Value
	}
	v.MkBool(true)
	return nil
}

func (st *EvalState) evalUpdate(e *syntax.ExprOpUpdate, env *Env, v *Value) error {
	var v1, v2 Value
	if err := st.evalAttrs(env, e.E1, &v1, e.P, "in the left operand of the update (//) operator"); err != nil {
		return err
	}
	if err := st.evalAttrs(env, e.E2, &v2, e.P, "in the right operand of the update (//) operator"); err != nil {
		return err
	}
	st.stats.NrOpUpdates++

	if v1.attrs.Size() == 0 {
		*v = v2
		return nil
	}
	if v2.attrs.Size() == 0 {
		*v = v1
		return nil
	}

	// Merge the sorted sequences; the right side wins on collisions.
	left, right := v1.attrs.Attrs(), v2.attrs.Attrs()
	out := NewBindings(len(left) + len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		switch {
		case left[i].Name == right[j].Name:
			out.Push(right[j])
			i++
			j++
		case left[i].Name < right[j].Name:
			out.Push(left[i])
			i++
		default:
			out.Push(right[j])
			j++
		}
	}
	for ; i < len(left); i++ {
		out.Push(left[i])
	}
	for ; j < len(right); j++ {
		out.Push(right[j])
	}
	st.stats.NrOpUpdateCopies += int64(out.Size())
	v.MkAttrs(out)
	return nil
}

// ConcatLists concatenates the given (forced or thunked) list values
// into v, reusing a single non-empty operand directly.
func (st *EvalState) ConcatLists(v *Value, lists []*Value, pos syntax.PosIdx, errorCtx string) error {
	st.stats.NrListConcats++

	var nonEmpty *Value
	total := 0
	for _, l := range lists {
		if err := st.ForceList(l, pos, errorCtx); err != nil {
			return err
		}
		n := len(l.list)
		total += n
		if n > 0 {
			nonEmpty = l
		}
	}
	if nonEmpty != nil && total == len(nonEmpty.list) {
		*v = *nonEmpty
		return nil
	}
	out := make([]*Value, 0, total)
	for _, l := range lists {
		out = append(out, l.list...)
	}
	st.stats.NrListElems += int64(total)
	v.MkList(out)
	return nil
}

// evalConcat implements the overloaded + chain: the first operand's
// type decides between checked integer addition, float addition, string
// concatenation with context merging, and path concatenation, which
// rejects operands that carry context.
func (st *EvalState) evalConcat(e *syntax.ExprConcatStrings, env *Env, v *Value) error {
	var ctx Context
	var parts []string
	var n int64
	var nf float64

	first := !e.ForceString
	firstType := tString

	for _, part := range e.Parts {
		var vTmp Value
		if err := st.evalExpr(part.E, env, &vTmp); err != nil {
			return err
		}
		if first {
			firstType = vTmp.tag
		}

		switch firstType {
		case tInt:
			switch vTmp.tag {
			case tInt:
				sum, ok := addChecked(n, vTmp.num)
				if !ok {
					return st.errorf(KindEval, part.Pos, "integer overflow in adding %d + %d", n, vTmp.num)
				}
				n = sum
			case tFloat:
				firstType = tFloat
				nf = float64(n) + vTmp.fpoint
			default:
				return st.errorf(KindEval, part.Pos, "cannot add %s to an integer", st.ShowTypeOf(&vTmp))
			}
		case tFloat:
			switch vTmp.tag {
			case tInt:
				nf += float64(vTmp.num)
			case tFloat:
				nf += vTmp.fpoint
			default:
				return st.errorf(KindEval, part.Pos, "cannot add %s to a float", st.ShowTypeOf(&vTmp))
			}
		default:
			// Path canonicalisation is skipped for the first segment so
			// literals like ./. + "/x" keep their written form until
			// the final clean.
			s, err := st.CoerceToString(part.Pos, &vTmp, &ctx, CoerceOpts{
				ErrorCtx:         "while evaluating a path segment",
				CopyToStore:      firstType == tString,
				CanonicalisePath: !first,
			})
			if err != nil {
				return err
			}
			parts = append(parts, s)
		}
		first = false
	}

	switch firstType {
	case tInt:
		v.MkInt(n)
	case tFloat:
		v.MkFloat(nf)
	case tPath:
		if !ctx.Empty() {
			return st.errorf(KindEval, e.P, "a string that refers to a store path cannot be appended to a path")
		}
		joined := ""
		for _, p := range parts {
			joined += p
		}
		v.MkPath(filepath.Clean(joined))
	default:
		joined := ""
		for _, p := range parts {
			joined += p
		}
		v.MkString(joined, ctx.Elems())
	}
	return nil
}

func addChecked(a, b int64) (int64, bool) {
	sum := a + b
	if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0) {
		return 0, false
	}
	return sum, true
}

// mkPos builds the {file, line, column} attrset for a position with a
// source-path origin, and null otherwise.
func (st *EvalState) mkPos(v *Value, pos syntax.PosIdx) {
	origin, ok := st.Positions.OriginOf(pos)
	if !ok || origin.Kind != syntax.OriginPath {
		v.MkNull()
		return
	}
	p := st.Positions.Resolve(pos)
	b := NewBindings(3)
	vFile := new(Value)
	vFile.MkString(origin.Path, nil)
	vLine := new(Value)
	vLine.MkInt(int64(p.Line))
	vColumn := new(Value)
	vColumn.MkInt(int64(p.Column))
	b.Push(Attr{Name: st.sFile, Value: vFile})
	b.Push(Attr{Name: st.sLine, Value: vLine})
	b.Push(Attr{Name: st.sColumn, Value: vColumn})
	b.Sort()
	v.MkAttrs(b)
}

// maybePushDebugTrace pushes an evaluation frame when a debug callback
// is configured; otherwise it is free.
func (st *EvalState) maybePushDebugTrace(pos syntax.PosIdx, e syntax.Expr, env *Env, hint string) func() {
	if st.cfg.DebugRepl == nil {
		return func() {}
	}
	return st.pushDebugTrace(DebugTrace{
		Pos:  st.Positions.Resolve(pos),
		Expr: e,
		Env:  env,
		Hint: hint,
	})
}
