package builtins

import (
	"sort"

	"github.com/nixel-lang/nixel/eval"
	"github.com/nixel-lang/nixel/syntax"
)

func init() {
	reg("__getContext", 1, []string{"s"}, primGetContext)
	reg("__hasContext", 1, []string{"s"}, primHasContext)
	reg("__unsafeDiscardStringContext", 1, []string{"s"}, primDiscardContext)
	reg("__appendContext", 2, []string{"s", "context"}, primAppendContext)
}

func primHasContext(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if _, err := st.ForceString(args[0], nil, pos, "while evaluating the argument passed to builtins.hasContext"); err != nil {
		return err
	}
	out.MkBool(len(args[0].StrContext()) > 0)
	return nil
}

func primDiscardContext(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	var ctx eval.Context
	s, err := st.CoerceToString(pos, args[0], &ctx, eval.CoerceOpts{
		ErrorCtx: "while evaluating the argument passed to builtins.unsafeDiscardStringContext",
	})
	if err != nil {
		return err
	}
	out.MkString(s, nil)
	return nil
}

// primGetContext renders the context as an attrset keyed by the
// referenced path, each value saying how the path is used: { path,
// allOutputs, outputs }.
func primGetContext(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if _, err := st.ForceString(args[0], nil, pos, "while evaluating the argument passed to builtins.getContext"); err != nil {
		return err
	}

	type usage struct {
		path       bool
		allOutputs bool
		outputs    []string
	}
	usages := make(map[string]*usage)
	use := func(path string) *usage {
		u := usages[path]
		if u == nil {
			u = &usage{}
			usages[path] = u
		}
		return u
	}
	for _, el := range args[0].StrContext() {
		switch el.Kind {
		case eval.ContextOpaque:
			use(el.Path).path = true
		case eval.ContextDrvDeep:
			use(el.Path).allOutputs = true
		case eval.ContextBuilt:
			u := use(el.Path)
			u.outputs = append(u.outputs, el.Output)
		}
	}

	sPath := st.Symbols.Intern("path")
	sAllOutputs := st.Symbols.Intern("allOutputs")
	sOutputs := st.Symbols.Intern("outputs")

	b := eval.NewBindings(len(usages))
	for path, u := range usages {
		inner := eval.NewBindings(3)
		if u.path {
			v := new(eval.Value)
			v.MkBool(true)
			inner.Push(eval.Attr{Name: sPath, Value: v})
		}
		if u.allOutputs {
			v := new(eval.Value)
			v.MkBool(true)
			inner.Push(eval.Attr{Name: sAllOutputs, Value: v})
		}
		if len(u.outputs) > 0 {
			sort.Strings(u.outputs)
			elems := make([]*eval.Value, len(u.outputs))
			for i, o := range u.outputs {
				v := new(eval.Value)
				v.MkString(o, nil)
				elems[i] = v
			}
			v := new(eval.Value)
			v.MkList(elems)
			inner.Push(eval.Attr{Name: sOutputs, Value: v})
		}
		inner.Sort()
		v := new(eval.Value)
		v.MkAttrs(inner)
		b.Push(eval.Attr{Name: st.Symbols.Intern(path), Value: v})
	}
	b.Sort()
	out.MkAttrs(b)
	return nil
}

// primAppendContext adds the context described by an attrset (in
// getContext's format) to a string.
func primAppendContext(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	var ctx eval.Context
	s, err := st.ForceString(args[0], &ctx, pos, "while evaluating the first argument passed to builtins.appendContext")
	if err != nil {
		return err
	}
	if err := st.ForceAttrs(args[1], pos, "while evaluating the second argument passed to builtins.appendContext"); err != nil {
		return err
	}

	sPath := st.Symbols.Intern("path")
	sAllOutputs := st.Symbols.Intern("allOutputs")
	sOutputs := st.Symbols.Intern("outputs")

	for _, a := range args[1].Attrs().Attrs() {
		name := st.Symbols.Name(a.Name)
		if _, err := st.Store().ParseStorePath(name); err != nil {
			return st.Errorf(eval.KindEval, pos, "context key '%s' is not a store path", name)
		}
		if err := st.ForceAttrs(a.Value, pos, "while evaluating the value of a string context"); err != nil {
			return err
		}
		info := a.Value.Attrs()

		if pathAttr := info.Get(sPath); pathAttr != nil {
			b, err := st.ForceBool(pathAttr.Value, pos, "while evaluating the 'path' attribute of a string context")
			if err != nil {
				return err
			}
			if b {
				ctx.Add(eval.ContextElem{Kind: eval.ContextOpaque, Path: name})
			}
		}
		if allAttr := info.Get(sAllOutputs); allAttr != nil {
			b, err := st.ForceBool(allAttr.Value, pos, "while evaluating the 'allOutputs' attribute of a string context")
			if err != nil {
				return err
			}
			if b {
				ctx.Add(eval.ContextElem{Kind: eval.ContextDrvDeep, Path: name})
			}
		}
		if outputsAttr := info.Get(sOutputs); outputsAttr != nil {
			if err := st.ForceList(outputsAttr.Value, pos, "while evaluating the 'outputs' attribute of a string context"); err != nil {
				return err
			}
			for _, el := range outputsAttr.Value.List() {
				output, err := st.ForceStringNoCtx(el, pos, "while evaluating an output name of a string context")
				if err != nil {
					return err
				}
				ctx.Add(eval.ContextElem{Kind: eval.ContextBuilt, Path: name, Output: output})
			}
		}
	}

	out.MkString(s, ctx.Elems())
	return nil
}
