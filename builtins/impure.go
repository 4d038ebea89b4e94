package builtins

import (
	"time"

	"github.com/nixel-lang/nixel/eval"
	"github.com/nixel-lang/nixel/syntax"
)

func init() {
	eval.RegisterPrimOp(&eval.PrimOp{
		Name:       "__currentTime",
		Arity:      0,
		ImpureOnly: true,
		Fn:         primCurrentTime,
	})
}

func primCurrentTime(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	out.MkInt(time.Now().Unix())
	return nil
}
