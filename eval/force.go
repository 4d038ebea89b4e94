package eval

import "github.com/nixel-lang/nixel/syntax"

// Force drives v to weak-head normal form in place. Forcing is
// memoised: a thunk is overwritten by its result, and a failed thunk
// remembers its error so every later force reports the same failure.
// Observing a black hole that carries no stored error means the cell is
// currently being forced further up the stack: infinite recursion.
func (st *EvalState) Force(v *Value, pos syntax.PosIdx) error {
	switch v.tag {
	case tThunk:
		env, expr := v.env, v.expr
		v.mkBlackhole()
		if err := st.evalExpr(expr, env, v); err != nil {
			st.rememberFailure(v, err)
			return err
		}
		return nil
	case tApp:
		left, right := v.left, v.right
		v.mkBlackhole()
		if err := st.callFunction(left, []*Value{right}, v, pos); err != nil {
			st.rememberFailure(v, err)
			return err
		}
		return nil
	case tBlackhole:
		if v.failed != nil {
			return v.failed
		}
		return st.errorf(KindInfiniteRecursion, pos, "infinite recursion encountered")
	default:
		return nil
	}
}

// rememberFailure pins the error on a cell stuck in the black-hole
// state, keeping repeated forces consistent with the first one.
func (st *EvalState) rememberFailure(v *Value, err error) {
	if v.tag == tBlackhole {
		if ee, ok := err.(*EvalError); ok {
			v.failed = ee
		}
	}
}

// ForceDeep forces v and recursively every attribute and list element
// reachable from it. Each cell is visited once, so shared subgraphs
// and cycles between cells end the walk there; a cell whose forcing
// depends on itself still fails with infinite recursion.
func (st *EvalState) ForceDeep(v *Value) error {
	seen := make(map[*Value]struct{})
	var recurse func(v *Value) error
	recurse = func(v *Value) error {
		if _, ok := seen[v]; ok {
			return nil
		}
		seen[v] = struct{}{}
		if err := st.checkInterrupt(v.determinePos(syntax.NoPos)); err != nil {
			return err
		}

		if err := st.Force(v, v.determinePos(syntax.NoPos)); err != nil {
			return err
		}
		switch v.tag {
		case tAttrs:
			for _, a := range v.attrs.Attrs() {
				if err := recurse(a.Value); err != nil {
					return st.addErrorTrace(err, a.Pos, "while evaluating the attribute '%s'", st.Symbols.Name(a.Name))
				}
			}
		case tList:
			for _, el := range v.list {
				if err := recurse(el); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return recurse(v)
}

// ForceInt forces v and asserts an integer.
func (st *EvalState) ForceInt(v *Value, pos syntax.PosIdx, errorCtx string) (int64, error) {
	if err := st.Force(v, pos); err != nil {
		return 0, st.addErrorTrace(err, pos, "%s", errorCtx)
	}
	if v.tag != tInt {
		return 0, st.addErrorTrace(
			st.errorf(KindType, pos, "expected an integer but found %s: %s", st.ShowTypeOf(v), st.AbbrevValue(v)),
			pos, "%s", errorCtx)
	}
	return v.num, nil
}

// ForceFloat forces v and asserts a float, promoting integers.
func (st *EvalState) ForceFloat(v *Value, pos syntax.PosIdx, errorCtx string) (float64, error) {
	if err := st.Force(v, pos); err != nil {
		return 0, st.addErrorTrace(err, pos, "%s", errorCtx)
	}
	switch v.tag {
	case tInt:
		return float64(v.num), nil
	case tFloat:
		return v.fpoint, nil
	}
	return 0, st.addErrorTrace(
		st.errorf(KindType, pos, "expected a float but found %s: %s", st.ShowTypeOf(v), st.AbbrevValue(v)),
		pos, "%s", errorCtx)
}

// ForceBool forces v and asserts a Boolean.
func (st *EvalState) ForceBool(v *Value, pos syntax.PosIdx, errorCtx string) (bool, error) {
	if err := st.Force(v, pos); err != nil {
		return false, st.addErrorTrace(err, pos, "%s", errorCtx)
	}
	if v.tag != tBool {
		return false, st.addErrorTrace(
			st.errorf(KindType, pos, "expected a Boolean but found %s: %s", st.ShowTypeOf(v), st.AbbrevValue(v)),
			pos, "%s", errorCtx)
	}
	return v.num != 0, nil
}

// ForceAttrs forces v and asserts an attribute set.
func (st *EvalState) ForceAttrs(v *Value, pos syntax.PosIdx, errorCtx string) error {
	if err := st.Force(v, pos); err != nil {
		return st.addErrorTrace(err, pos, "%s", errorCtx)
	}
	if v.tag != tAttrs {
		return st.addErrorTrace(
			st.errorf(KindType, pos, "expected a set but found %s: %s", st.ShowTypeOf(v), st.AbbrevValue(v)),
			pos, "%s", errorCtx)
	}
	return nil
}

// ForceList forces v and asserts a list.
func (st *EvalState) ForceList(v *Value, pos syntax.PosIdx, errorCtx string) error {
	if err := st.Force(v, pos); err != nil {
		return st.addErrorTrace(err, pos, "%s", errorCtx)
	}
	if v.tag != tList {
		return st.addErrorTrace(
			st.errorf(KindType, pos, "expected a list but found %s: %s", st.ShowTypeOf(v), st.AbbrevValue(v)),
			pos, "%s", errorCtx)
	}
	return nil
}

// ForceFunction forces v and asserts something callable: a lambda, a
// primop (partially applied or not), or a functor attrset.
func (st *EvalState) ForceFunction(v *Value, pos syntax.PosIdx, errorCtx string) error {
	if err := st.Force(v, pos); err != nil {
		return st.addErrorTrace(err, pos, "%s", errorCtx)
	}
	if v.Kind() != KindFunction && !st.isFunctor(v) {
		return st.addErrorTrace(
			st.errorf(KindType, pos, "expected a function but found %s: %s", st.ShowTypeOf(v), st.AbbrevValue(v)),
			pos, "%s", errorCtx)
	}
	return nil
}

// ForceString forces v, asserts a string, and merges its context into
// ctx when ctx is non-nil.
func (st *EvalState) ForceString(v *Value, ctx *Context, pos syntax.PosIdx, errorCtx string) (string, error) {
	if err := st.Force(v, pos); err != nil {
		return "", st.addErrorTrace(err, pos, "%s", errorCtx)
	}
	if v.tag != tString {
		return "", st.addErrorTrace(
			st.errorf(KindType, pos, "expected a string but found %s: %s", st.ShowTypeOf(v), st.AbbrevValue(v)),
			pos, "%s", errorCtx)
	}
	if ctx != nil {
		ctx.AddAll(v.context)
	}
	return v.str, nil
}

// ForceStringNoCtx is ForceString but fails on a non-empty context.
func (st *EvalState) ForceStringNoCtx(v *Value, pos syntax.PosIdx, errorCtx string) (string, error) {
	s, err := st.ForceString(v, nil, pos, errorCtx)
	if err != nil {
		return "", err
	}
	if len(v.context) > 0 {
		return "", st.addErrorTrace(
			st.errorf(KindEval, pos, "the string '%s' is not allowed to refer to a store path (such as '%s')",
				s, v.context[0]),
			pos, "%s", errorCtx)
	}
	return s, nil
}
