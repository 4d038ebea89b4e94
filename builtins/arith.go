package builtins

import (
	"math"

	"github.com/nixel-lang/nixel/eval"
	"github.com/nixel-lang/nixel/syntax"
)

func init() {
	reg("__add", 2, []string{"e1", "e2"}, arith("add", addInts, func(a, b float64) float64 { return a + b }))
	reg("__sub", 2, []string{"e1", "e2"}, arith("subtract", subInts, func(a, b float64) float64 { return a - b }))
	reg("__mul", 2, []string{"e1", "e2"}, arith("multiply", mulInts, func(a, b float64) float64 { return a * b }))
	reg("__div", 2, []string{"e1", "e2"}, primDiv)
	reg("__lessThan", 2, []string{"e1", "e2"}, primLessThan)
	reg("__bitAnd", 2, []string{"e1", "e2"}, bitop(func(a, b int64) int64 { return a & b }))
	reg("__bitOr", 2, []string{"e1", "e2"}, bitop(func(a, b int64) int64 { return a | b }))
	reg("__bitXor", 2, []string{"e1", "e2"}, bitop(func(a, b int64) int64 { return a ^ b }))
}

func addInts(a, b int64) (int64, bool) {
	sum := a + b
	if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0) {
		return 0, false
	}
	return sum, true
}

func subInts(a, b int64) (int64, bool) {
	diff := a - b
	if (a >= 0 && b < 0 && diff < 0) || (a < 0 && b > 0 && diff >= 0) {
		return 0, false
	}
	return diff, true
}

func mulInts(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if b == -1 && a == math.MinInt64 {
		return 0, false
	}
	prod := a * b
	if prod/b != a {
		return 0, false
	}
	return prod, true
}

// arith builds a checked binary arithmetic primop: floats win when
// either side is a float, and integer overflow is an evaluation error
// rather than wrap-around.
func arith(opName string, intOp func(a, b int64) (int64, bool), floatOp func(a, b float64) float64) eval.PrimOpFn {
	return func(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
		v1, err := forcedArg(st, args[0], pos)
		if err != nil {
			return err
		}
		v2, err := forcedArg(st, args[1], pos)
		if err != nil {
			return err
		}
		if v1.Kind() == eval.KindFloat || v2.Kind() == eval.KindFloat {
			f1, err := st.ForceFloat(v1, pos, "while evaluating the first argument of an arithmetic operation")
			if err != nil {
				return err
			}
			f2, err := st.ForceFloat(v2, pos, "while evaluating the second argument of an arithmetic operation")
			if err != nil {
				return err
			}
			out.MkFloat(floatOp(f1, f2))
			return nil
		}
		n1, err := st.ForceInt(v1, pos, "while evaluating the first argument of an arithmetic operation")
		if err != nil {
			return err
		}
		n2, err := st.ForceInt(v2, pos, "while evaluating the second argument of an arithmetic operation")
		if err != nil {
			return err
		}
		res, ok := intOp(n1, n2)
		if !ok {
			return st.Errorf(eval.KindEval, pos, "integer overflow in %s %d and %d", opName, n1, n2)
		}
		out.MkInt(res)
		return nil
	}
}

func primDiv(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	v1, err := forcedArg(st, args[0], pos)
	if err != nil {
		return err
	}
	v2, err := forcedArg(st, args[1], pos)
	if err != nil {
		return err
	}
	if v1.Kind() == eval.KindFloat || v2.Kind() == eval.KindFloat {
		f1, err := st.ForceFloat(v1, pos, "while evaluating the first operand of the division")
		if err != nil {
			return err
		}
		f2, err := st.ForceFloat(v2, pos, "while evaluating the second operand of the division")
		if err != nil {
			return err
		}
		if f2 == 0 {
			return st.Errorf(eval.KindEval, pos, "division by zero")
		}
		out.MkFloat(f1 / f2)
		return nil
	}
	n1, err := st.ForceInt(v1, pos, "while evaluating the first operand of the division")
	if err != nil {
		return err
	}
	n2, err := st.ForceInt(v2, pos, "while evaluating the second operand of the division")
	if err != nil {
		return err
	}
	if n2 == 0 {
		return st.Errorf(eval.KindEval, pos, "division by zero")
	}
	// The one overflowing division.
	if n1 == -9223372036854775808 && n2 == -1 {
		return st.Errorf(eval.KindEval, pos, "integer overflow in dividing %d by %d", n1, n2)
	}
	out.MkInt(n1 / n2)
	return nil
}

func primLessThan(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	v1, err := forcedArg(st, args[0], pos)
	if err != nil {
		return err
	}
	v2, err := forcedArg(st, args[1], pos)
	if err != nil {
		return err
	}
	less, err := compareLess(st, v1, v2, pos)
	if err != nil {
		return err
	}
	out.MkBool(less)
	return nil
}

// compareLess orders numbers across int/float, strings, paths, and
// lists (lexicographically); everything else is incomparable.
func compareLess(st *eval.EvalState, v1, v2 *eval.Value, pos syntax.PosIdx) (bool, error) {
	k1, k2 := v1.Kind(), v2.Kind()
	numeric := func(k eval.ValueKind) bool { return k == eval.KindInt || k == eval.KindFloat }

	switch {
	case numeric(k1) && numeric(k2):
		if k1 == eval.KindInt && k2 == eval.KindInt {
			return v1.Int() < v2.Int(), nil
		}
		f1, f2 := toFloat(v1), toFloat(v2)
		return f1 < f2, nil
	case k1 == eval.KindString && k2 == eval.KindString:
		return v1.Str() < v2.Str(), nil
	case k1 == eval.KindPath && k2 == eval.KindPath:
		return v1.Path() < v2.Path(), nil
	case k1 == eval.KindList && k2 == eval.KindList:
		l1, l2 := v1.List(), v2.List()
		for i := 0; i < len(l1) && i < len(l2); i++ {
			if err := st.Force(l1[i], pos); err != nil {
				return false, err
			}
			if err := st.Force(l2[i], pos); err != nil {
				return false, err
			}
			less, err := compareLess(st, l1[i], l2[i], pos)
			if err != nil {
				return false, err
			}
			if less {
				return true, nil
			}
			greater, err := compareLess(st, l2[i], l1[i], pos)
			if err != nil {
				return false, err
			}
			if greater {
				return false, nil
			}
		}
		return len(l1) < len(l2), nil
	default:
		return false, st.Errorf(eval.KindType, pos, "cannot compare %s with %s",
			st.ShowTypeOf(v1), st.ShowTypeOf(v2))
	}
}

func toFloat(v *eval.Value) float64 {
	if v.Kind() == eval.KindInt {
		return float64(v.Int())
	}
	return v.Float()
}

func bitop(op func(a, b int64) int64) eval.PrimOpFn {
	return func(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
		n1, err := st.ForceInt(args[0], pos, "while evaluating the first argument of a bitwise operation")
		if err != nil {
			return err
		}
		n2, err := st.ForceInt(args[1], pos, "while evaluating the second argument of a bitwise operation")
		if err != nil {
			return err
		}
		out.MkInt(op(n1, n2))
		return nil
	}
}
