package builtins

import (
	"sort"

	"github.com/nixel-lang/nixel/eval"
	"github.com/nixel-lang/nixel/syntax"
)

func init() {
	reg("__elem", 2, []string{"x", "xs"}, primElem)
	reg("__elemAt", 2, []string{"xs", "n"}, primElemAt)
	reg("__head", 1, []string{"list"}, primHead)
	reg("__tail", 1, []string{"list"}, primTail)
	reg("__length", 1, []string{"e"}, primLength)
	reg("map", 2, []string{"f", "list"}, primMap)
	reg("__filter", 2, []string{"f", "list"}, primFilter)
	reg("__concatLists", 1, []string{"lists"}, primConcatLists)
	reg("__genList", 2, []string{"generator", "length"}, primGenList)
	reg("__foldl'", 3, []string{"op", "nul", "list"}, primFoldlStrict)
	reg("__any", 2, []string{"pred", "list"}, primAny)
	reg("__all", 2, []string{"pred", "list"}, primAll)
	reg("__sort", 2, []string{"comparator", "list"}, primSort)
}

func forceListArg(st *eval.EvalState, v *eval.Value, pos syntax.PosIdx, what string) error {
	return st.ForceList(v, pos, "while evaluating the "+what)
}

func primElem(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := forceListArg(st, args[1], pos, "second argument passed to builtins.elem"); err != nil {
		return err
	}
	for _, el := range args[1].List() {
		eq, err := st.EqValues(args[0], el, pos, "while searching for an element with builtins.elem")
		if err != nil {
			return err
		}
		if eq {
			out.MkBool(true)
			return nil
		}
	}
	out.MkBool(false)
	return nil
}

func primElemAt(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := forceListArg(st, args[0], pos, "first argument passed to builtins.elemAt"); err != nil {
		return err
	}
	n, err := st.ForceInt(args[1], pos, "while evaluating the second argument passed to builtins.elemAt")
	if err != nil {
		return err
	}
	list := args[0].List()
	if n < 0 || n >= int64(len(list)) {
		return st.Errorf(eval.KindEval, pos, "list index %d is out of bounds", n)
	}
	if err := st.Force(list[n], pos); err != nil {
		return err
	}
	*out = *list[n]
	return nil
}

func primHead(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := forceListArg(st, args[0], pos, "first argument passed to builtins.head"); err != nil {
		return err
	}
	list := args[0].List()
	if len(list) == 0 {
		return st.Errorf(eval.KindEval, pos, "'head' called on an empty list")
	}
	if err := st.Force(list[0], pos); err != nil {
		return err
	}
	*out = *list[0]
	return nil
}

func primTail(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := forceListArg(st, args[0], pos, "first argument passed to builtins.tail"); err != nil {
		return err
	}
	list := args[0].List()
	if len(list) == 0 {
		return st.Errorf(eval.KindEval, pos, "'tail' called on an empty list")
	}
	out.MkList(list[1:])
	return nil
}

func primLength(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := forceListArg(st, args[0], pos, "argument passed to builtins.length"); err != nil {
		return err
	}
	out.MkInt(int64(len(args[0].List())))
	return nil
}

func primMap(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := forceListArg(st, args[1], pos, "second argument passed to builtins.map"); err != nil {
		return err
	}
	src := args[1].List()
	if len(src) == 0 {
		*out = *args[1]
		return nil
	}
	elems := make([]*eval.Value, len(src))
	for i, el := range src {
		// Deferred application keeps map lazy per element.
		mapped := new(eval.Value)
		mapped.MkApp(args[0], el)
		elems[i] = mapped
	}
	out.MkList(elems)
	return nil
}

func primFilter(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := forceListArg(st, args[1], pos, "second argument passed to builtins.filter"); err != nil {
		return err
	}
	src := args[1].List()
	kept := make([]*eval.Value, 0, len(src))
	same := true
	for _, el := range src {
		res := new(eval.Value)
		if err := st.Call(args[0], res, pos, el); err != nil {
			return err
		}
		keep, err := st.ForceBool(res, pos, "while evaluating the return value of the filtering function passed to builtins.filter")
		if err != nil {
			return err
		}
		if keep {
			kept = append(kept, el)
		} else {
			same = false
		}
	}
	if same {
		*out = *args[1]
		return nil
	}
	out.MkList(kept)
	return nil
}

func primConcatLists(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := forceListArg(st, args[0], pos, "first argument passed to builtins.concatLists"); err != nil {
		return err
	}
	return st.ConcatLists(out, args[0].List(), pos, "while evaluating a value of the list passed to builtins.concatLists")
}

func primGenList(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	length, err := st.ForceInt(args[1], pos, "while evaluating the second argument passed to builtins.genList")
	if err != nil {
		return err
	}
	if length < 0 {
		return st.Errorf(eval.KindEval, pos, "cannot create list of size %d", length)
	}
	elems := make([]*eval.Value, length)
	for i := range elems {
		vIdx := new(eval.Value)
		vIdx.MkInt(int64(i))
		el := new(eval.Value)
		el.MkApp(args[0], vIdx)
		elems[i] = el
	}
	out.MkList(elems)
	return nil
}

func primFoldlStrict(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := forceListArg(st, args[2], pos, "third argument passed to builtins.foldl'"); err != nil {
		return err
	}
	acc := args[1]
	for _, el := range args[2].List() {
		next := new(eval.Value)
		if err := st.Call(args[0], next, pos, acc, el); err != nil {
			return err
		}
		if err := st.Force(next, pos); err != nil {
			return err
		}
		acc = next
	}
	if err := st.Force(acc, pos); err != nil {
		return err
	}
	*out = *acc
	return nil
}

func anyAll(name string, want bool) eval.PrimOpFn {
	return func(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
		if err := forceListArg(st, args[1], pos, "second argument passed to builtins."+name); err != nil {
			return err
		}
		for _, el := range args[1].List() {
			res := new(eval.Value)
			if err := st.Call(args[0], res, pos, el); err != nil {
				return err
			}
			b, err := st.ForceBool(res, pos, "while evaluating the return value of the function passed to builtins."+name)
			if err != nil {
				return err
			}
			if b == want {
				out.MkBool(want)
				return nil
			}
		}
		out.MkBool(!want)
		return nil
	}
}

var (
	primAny = anyAll("any", true)
	primAll = anyAll("all", false)
)

func primSort(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := forceListArg(st, args[1], pos, "second argument passed to builtins.sort"); err != nil {
		return err
	}
	src := args[1].List()
	elems := make([]*eval.Value, len(src))
	copy(elems, src)
	for _, el := range elems {
		if err := st.Force(el, pos); err != nil {
			return err
		}
	}

	var sortErr error
	sort.SliceStable(elems, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		res := new(eval.Value)
		if err := st.Call(args[0], res, pos, elems[i], elems[j]); err != nil {
			sortErr = err
			return false
		}
		less, err := st.ForceBool(res, pos, "while evaluating the return value of the sorting function passed to builtins.sort")
		if err != nil {
			sortErr = err
			return false
		}
		return less
	})
	if sortErr != nil {
		return sortErr
	}
	out.MkList(elems)
	return nil
}
