package eval

import "github.com/nixel-lang/nixel/syntax"

// EqValues implements deep structural equality. Both sides are forced;
// integers and floats compare numerically across tags; functions are
// equal only by cell identity; derivations compare by outPath.
func (st *EvalState) EqValues(v1, v2 *Value, pos syntax.PosIdx, errorCtx string) (bool, error) {
	if err := st.Force(v1, pos); err != nil {
		return false, st.addErrorTrace(err, pos, "%s", errorCtx)
	}
	if err := st.Force(v2, pos); err != nil {
		return false, st.addErrorTrace(err, pos, "%s", errorCtx)
	}

	if v1 == v2 {
		return true, nil
	}

	if v1.tag == tInt && v2.tag == tFloat {
		return float64(v1.num) == v2.fpoint, nil
	}
	if v1.tag == tFloat && v2.tag == tInt {
		return v1.fpoint == float64(v2.num), nil
	}

	if v1.tag != v2.tag {
		return false, nil
	}

	switch v1.tag {
	case tInt:
		return v1.num == v2.num, nil
	case tBool:
		return v1.num == v2.num, nil
	case tFloat:
		return v1.fpoint == v2.fpoint, nil
	case tNull:
		return true, nil
	case tString:
		// Context is ignored in comparisons.
		return v1.str == v2.str, nil
	case tPath:
		return v1.str == v2.str, nil

	case tList:
		if len(v1.list) != len(v2.list) {
			return false, nil
		}
		for i := range v1.list {
			eq, err := st.EqValues(v1.list[i], v2.list[i], pos, errorCtx)
			if err != nil {
				return false, err
			}
			if !eq {
				return false, nil
			}
		}
		return true, nil

	case tAttrs:
		// Two derivations are equal when their output paths are.
		if st.IsDerivation(v1) && st.IsDerivation(v2) {
			out1 := v1.attrs.Get(st.sOutPath)
			out2 := v2.attrs.Get(st.sOutPath)
			if out1 != nil && out2 != nil {
				return st.EqValues(out1.Value, out2.Value, pos, errorCtx)
			}
		}
		if v1.attrs.Size() != v2.attrs.Size() {
			return false, nil
		}
		a1, a2 := v1.attrs.Attrs(), v2.attrs.Attrs()
		for i := range a1 {
			if a1[i].Name != a2[i].Name {
				return false, nil
			}
			eq, err := st.EqValues(a1[i].Value, a2[i].Value, pos, errorCtx)
			if err != nil {
				return false, err
			}
			if !eq {
				return false, nil
			}
		}
		return true, nil

	case tLambda, tPrimOp, tPrimOpApp:
		// Functions are incomparable.
		return false, nil

	case tExternal:
		return v1.ext.Equal(v2.ext), nil
	}

	return false, st.addErrorTrace(
		st.errorf(KindEval, pos, "cannot compare %s with %s", st.ShowTypeOf(v1), st.ShowTypeOf(v2)),
		pos, "%s", errorCtx)
}
