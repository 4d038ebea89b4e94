// Package builtins populates the evaluator's primop registry. Each
// themed file registers its group from init, so importing this package
// (usually blank, from the binary entry point) is what makes the
// builtin environment complete. The registry is read once when an
// evaluator is constructed.
package builtins

import (
	"github.com/nixel-lang/nixel/eval"
	"github.com/nixel-lang/nixel/syntax"
)

// reg is shorthand used by the themed files.
func reg(name string, arity int, args []string, fn eval.PrimOpFn) {
	eval.RegisterPrimOp(&eval.PrimOp{Name: name, Arity: arity, Args: args, Fn: fn})
}

// forcedArg forces one argument in place and returns it.
func forcedArg(st *eval.EvalState, v *eval.Value, pos syntax.PosIdx) (*eval.Value, error) {
	if err := st.Force(v, pos); err != nil {
		return nil, err
	}
	return v, nil
}
