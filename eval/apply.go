package eval

import (
	"github.com/nixel-lang/nixel/syntax"
)

func (st *EvalState) isFunctor(v *Value) bool {
	return v.tag == tAttrs && v.attrs.Get(st.sFunctor) != nil
}

// Call applies fun to args and forces nothing beyond weak head.
func (st *EvalState) Call(fun *Value, out *Value, pos syntax.PosIdx, args ...*Value) error {
	return st.callFunction(fun, args, out, pos)
}

// callFunction is the application loop: it consumes args against the
// current callee, which may be a lambda, a primop (curried through
// PrimOpApp chains), or a functor attrset rewritten to functor self arg.
func (st *EvalState) callFunction(fun *Value, args []*Value, vRes *Value, pos syntax.PosIdx) error {
	if st.callDepth >= st.cfg.MaxCallDepth {
		return st.errorf(KindStackOverflow, pos, "stack overflow; max-call-depth exceeded")
	}
	st.callDepth++
	defer func() { st.callDepth-- }()

	if st.cfg.TraceFunctionCalls {
		st.Warn("function-trace entered %s", st.Positions.Resolve(pos))
		defer st.Warn("function-trace exited %s", st.Positions.Resolve(pos))
	}

	if err := st.Force(fun, pos); err != nil {
		return err
	}

	vCur := new(Value)
	*vCur = *fun

	// makeAppChain parks the not-yet-saturated primop application as a
	// left-biased PrimOpApp chain.
	makeAppChain := func() {
		*vRes = *vCur
		for _, arg := range args {
			fun2 := new(Value)
			*fun2 = *vRes
			vRes.MkPrimOpApp(fun2, arg)
		}
	}

	for len(args) > 0 {
		switch {
		case vCur.isLambda():
			env2, lambda, err := st.bindLambda(vCur, args[0], pos)
			if err != nil {
				return err
			}

			st.stats.NrFunctionCalls++
			if st.cfg.CountCalls {
				st.functionCalls[lambda]++
			}

			pop := st.maybePushDebugTrace(lambda.P, lambda.Body, env2, "while calling "+lambda.ShowName(st.Symbols))
			if err := st.evalExpr(lambda.Body, env2, vCur); err != nil {
				pop()
				err = st.addErrorTrace(err, lambda.P, "while calling %s", lambda.ShowName(st.Symbols))
				if pos != syntax.NoPos {
					err = st.addErrorTrace(err, pos, "from call site")
				}
				return err
			}
			pop()
			args = args[1:]

		case vCur.isPrimOp():
			arity := vCur.primop.Arity
			if len(args) < arity {
				makeAppChain()
				return nil
			}
			fn := vCur.primop
			st.stats.NrPrimOpCalls++
			if st.cfg.CountCalls {
				st.primOpCalls[fn.Name]++
			}
			if err := fn.Fn(st, pos, args[:arity], vCur); err != nil {
				return st.traceBuiltinError(err, fn, pos)
			}
			args = args[arity:]

		case vCur.isPrimOpApp():
			// Count the accumulated arguments along the left spine.
			argsDone := 0
			primOp := vCur
			for primOp.isPrimOpApp() {
				argsDone++
				primOp = primOp.left
			}
			arity := primOp.primop.Arity
			argsLeft := arity - argsDone
			if len(args) < argsLeft {
				makeAppChain()
				return nil
			}

			vArgs := make([]*Value, arity)
			n := argsDone
			for arg := vCur; arg.isPrimOpApp(); arg = arg.left {
				n--
				vArgs[n] = arg.right
			}
			copy(vArgs[argsDone:], args[:argsLeft])

			fn := primOp.primop
			st.stats.NrPrimOpCalls++
			if st.cfg.CountCalls {
				st.primOpCalls[fn.Name]++
			}
			if err := fn.Fn(st, pos, vArgs, vCur); err != nil {
				return st.traceBuiltinError(err, fn, pos)
			}
			args = args[argsLeft:]

		case st.isFunctor(vCur):
			// Rewrite as functor self arg; the self copy must outlive
			// this frame, so it gets its own cell.
			functor := vCur.attrs.Get(st.sFunctor)
			self := new(Value)
			*self = *vCur
			if err := st.callFunction(functor.Value, []*Value{self, args[0]}, vCur, functor.Pos); err != nil {
				return st.addErrorTrace(err, pos,
					"while calling a functor (an attribute set with a '__functor' attribute)")
			}
			args = args[1:]

		default:
			return st.errorf(KindType, pos, "attempt to call something which is not a function but %s: %s",
				st.ShowTypeOf(vCur), st.AbbrevValue(vCur))
		}
	}

	*vRes = *vCur
	return nil
}

// bindLambda builds the lambda's activation record from one argument:
// a single slot for a plain argument, or formal matching with defaults,
// missing-argument and unexpected-argument errors for patterns.
func (st *EvalState) bindLambda(vCur *Value, arg *Value, pos syntax.PosIdx) (*Env, *syntax.ExprLambda, error) {
	capturedEnv, lambda := vCur.Lambda()

	size := 0
	if lambda.Arg != 0 {
		size = 1
	}
	if lambda.HasFormals() {
		size += len(lambda.Formals.Formals)
	}
	env2 := st.allocEnv(size, capturedEnv)

	displ := 0
	if !lambda.HasFormals() {
		env2.Values[displ] = arg
		return env2, lambda, nil
	}

	if err := st.ForceAttrs(arg, lambda.P, "while evaluating the value passed for the lambda argument"); err != nil {
		if pos != syntax.NoPos {
			err = st.addErrorTrace(err, pos, "from call site")
		}
		return nil, nil, err
	}

	if lambda.Arg != 0 {
		env2.Values[displ] = arg
		displ++
	}

	attrsUsed := 0
	for i := range lambda.Formals.Formals {
		formal := &lambda.Formals.Formals[i]
		if matching := arg.attrs.Get(formal.Name); matching != nil {
			attrsUsed++
			env2.Values[displ] = matching.Value
			displ++
			continue
		}
		if formal.Def == nil {
			err := st.errorf(KindMissingArgument, lambda.P,
				"function %s called without required argument '%s'",
				lambda.ShowName(st.Symbols), st.Symbols.Name(formal.Name))
			if pos != syntax.NoPos {
				err.Trace = append(err.Trace, TraceEntry{Pos: st.Positions.Resolve(pos), Msg: "from call site"})
			}
			return nil, nil, err
		}
		env2.Values[displ] = st.maybeThunk(formal.Def, env2)
		displ++
	}

	if !lambda.Formals.Ellipsis && attrsUsed != arg.attrs.Size() {
		for _, attr := range arg.attrs.Attrs() {
			if !lambda.Formals.Has(attr.Name) {
				unexpected := st.Symbols.Name(attr.Name)
				var formalNames []string
				for _, f := range lambda.Formals.Formals {
					formalNames = append(formalNames, st.Symbols.Name(f.Name))
				}
				err := st.errorf(KindUnexpectedArgument, lambda.P,
					"function %s called with unexpected argument '%s'",
					lambda.ShowName(st.Symbols), unexpected).
					WithSuggestions(syntax.BestMatches(formalNames, unexpected))
				if pos != syntax.NoPos {
					err.Trace = append(err.Trace, TraceEntry{Pos: st.Positions.Resolve(pos), Msg: "from call site"})
				}
				return nil, nil, err
			}
		}
	}

	return env2, lambda, nil
}

// traceBuiltinError distinguishes an error that happened while "throw"
// itself was evaluated from an explicit thrown error.
func (st *EvalState) traceBuiltinError(err error, fn *PrimOp, pos syntax.PosIdx) error {
	if IsKind(err, KindThrown) && fn.Name == "throw" {
		return st.addErrorTrace(err, pos, "caused by explicit throw")
	}
	return st.addErrorTrace(err, pos, "while calling the '%s' builtin", fn.Name)
}

// AutoCallFunction calls a formals lambda with arguments taken from
// args, substituting defaults for everything args does not name.
// Non-lambdas and plain-argument lambdas are returned unchanged.
func (st *EvalState) AutoCallFunction(args *Bindings, fun *Value, res *Value) error {
	pos := fun.determinePos(syntax.NoPos)
	if err := st.Force(fun, pos); err != nil {
		return err
	}

	if fun.tag == tAttrs {
		if functor := fun.attrs.Get(st.sFunctor); functor != nil {
			v := new(Value)
			if err := st.callFunction(functor.Value, []*Value{fun}, v, pos); err != nil {
				return err
			}
			if err := st.Force(v, pos); err != nil {
				return err
			}
			return st.AutoCallFunction(args, v, res)
		}
	}

	if !fun.isLambda() {
		*res = *fun
		return nil
	}
	_, lambda := fun.Lambda()
	if !lambda.HasFormals() {
		*res = *fun
		return nil
	}

	actual := NewBindings(len(lambda.Formals.Formals))
	if lambda.Formals.Ellipsis {
		for _, a := range args.Attrs() {
			actual.Push(a)
		}
	} else {
		for _, formal := range lambda.Formals.Formals {
			if a := args.Get(formal.Name); a != nil {
				actual.Push(*a)
			} else if formal.Def == nil {
				return st.errorf(KindMissingArgument, formal.Pos,
					"cannot evaluate a function that has an argument without a value ('%s')",
					st.Symbols.Name(formal.Name))
			}
		}
	}
	actual.Sort()
	vArg := new(Value)
	vArg.MkAttrs(actual)
	return st.callFunction(fun, []*Value{vArg}, res, pos)
}
