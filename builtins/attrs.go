package builtins

import (
	"sort"

	"github.com/nixel-lang/nixel/eval"
	"github.com/nixel-lang/nixel/syntax"
)

func init() {
	reg("__attrNames", 1, []string{"set"}, primAttrNames)
	reg("__attrValues", 1, []string{"set"}, primAttrValues)
	reg("__getAttr", 2, []string{"s", "set"}, primGetAttr)
	reg("__hasAttr", 2, []string{"s", "set"}, primHasAttr)
	reg("removeAttrs", 2, []string{"set", "list"}, primRemoveAttrs)
	reg("__listToAttrs", 1, []string{"e"}, primListToAttrs)
	reg("__intersectAttrs", 2, []string{"e1", "e2"}, primIntersectAttrs)
	reg("__mapAttrs", 2, []string{"f", "attrset"}, primMapAttrs)
}

func primAttrNames(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := st.ForceAttrs(args[0], pos, "while evaluating the argument passed to builtins.attrNames"); err != nil {
		return err
	}
	attrs := args[0].Attrs().Attrs()
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = st.Symbols.Name(a.Name)
	}
	// Symbol order is creation order; the result must be lexicographic.
	sort.Strings(names)
	elems := make([]*eval.Value, len(names))
	for i, name := range names {
		v := new(eval.Value)
		v.MkString(name, nil)
		elems[i] = v
	}
	out.MkList(elems)
	return nil
}

func primAttrValues(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := st.ForceAttrs(args[0], pos, "while evaluating the argument passed to builtins.attrValues"); err != nil {
		return err
	}
	attrs := args[0].Attrs().Attrs()
	type named struct {
		name  string
		value *eval.Value
	}
	byName := make([]named, len(attrs))
	for i, a := range attrs {
		byName[i] = named{name: st.Symbols.Name(a.Name), value: a.Value}
	}
	sort.Slice(byName, func(i, j int) bool { return byName[i].name < byName[j].name })
	elems := make([]*eval.Value, len(byName))
	for i, n := range byName {
		elems[i] = n.value
	}
	out.MkList(elems)
	return nil
}

func primGetAttr(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	name, err := st.ForceStringNoCtx(args[0], pos, "while evaluating the first argument passed to builtins.getAttr")
	if err != nil {
		return err
	}
	if err := st.ForceAttrs(args[1], pos, "while evaluating the second argument passed to builtins.getAttr"); err != nil {
		return err
	}
	attr := args[1].Attrs().Get(st.Symbols.Intern(name))
	if attr == nil {
		return st.Errorf(eval.KindAttributeMissing, pos, "attribute '%s' missing", name).
			WithSuggestions(syntax.BestMatches(args[1].Attrs().Names(st.Symbols), name))
	}
	if err := st.Force(attr.Value, pos); err != nil {
		return err
	}
	*out = *attr.Value
	return nil
}

func primHasAttr(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	name, err := st.ForceStringNoCtx(args[0], pos, "while evaluating the first argument passed to builtins.hasAttr")
	if err != nil {
		return err
	}
	if err := st.ForceAttrs(args[1], pos, "while evaluating the second argument passed to builtins.hasAttr"); err != nil {
		return err
	}
	sym, known := st.Symbols.Lookup(name)
	out.MkBool(known && args[1].Attrs().Get(sym) != nil)
	return nil
}

func primRemoveAttrs(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := st.ForceAttrs(args[0], pos, "while evaluating the first argument passed to builtins.removeAttrs"); err != nil {
		return err
	}
	if err := st.ForceList(args[1], pos, "while evaluating the second argument passed to builtins.removeAttrs"); err != nil {
		return err
	}

	toRemove := make(map[syntax.Symbol]bool, len(args[1].List()))
	for _, el := range args[1].List() {
		name, err := st.ForceStringNoCtx(el, pos, "while evaluating an element of the list passed to builtins.removeAttrs")
		if err != nil {
			return err
		}
		if sym, ok := st.Symbols.Lookup(name); ok {
			toRemove[sym] = true
		}
	}

	src := args[0].Attrs().Attrs()
	b := eval.NewBindings(len(src))
	for _, a := range src {
		if !toRemove[a.Name] {
			b.Push(a)
		}
	}
	out.MkAttrs(b)
	return nil
}

func primListToAttrs(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := st.ForceList(args[0], pos, "while evaluating the argument passed to builtins.listToAttrs"); err != nil {
		return err
	}
	sName := st.Symbols.Intern("name")
	sValue := st.Symbols.Intern("value")

	b := eval.NewBindings(len(args[0].List()))
	seen := make(map[syntax.Symbol]bool)
	for _, el := range args[0].List() {
		if err := st.ForceAttrs(el, pos, "while evaluating an element of the list passed to builtins.listToAttrs"); err != nil {
			return err
		}
		nameAttr := el.Attrs().Get(sName)
		if nameAttr == nil {
			return st.Errorf(eval.KindType, pos, "'name' attribute missing in a call to builtins.listToAttrs")
		}
		name, err := st.ForceStringNoCtx(nameAttr.Value, pos, "while evaluating the 'name' attribute of an element of the list passed to builtins.listToAttrs")
		if err != nil {
			return err
		}
		sym := st.Symbols.Intern(name)
		// The first binding for a name wins.
		if seen[sym] {
			continue
		}
		seen[sym] = true
		valueAttr := el.Attrs().Get(sValue)
		if valueAttr == nil {
			return st.Errorf(eval.KindType, pos, "'value' attribute missing in a call to builtins.listToAttrs")
		}
		b.Push(eval.Attr{Name: sym, Value: valueAttr.Value, Pos: valueAttr.Pos})
	}
	b.Sort()
	out.MkAttrs(b)
	return nil
}

func primIntersectAttrs(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := st.ForceAttrs(args[0], pos, "while evaluating the first argument passed to builtins.intersectAttrs"); err != nil {
		return err
	}
	if err := st.ForceAttrs(args[1], pos, "while evaluating the second argument passed to builtins.intersectAttrs"); err != nil {
		return err
	}
	left, right := args[0].Attrs(), args[1].Attrs()
	b := eval.NewBindings(min(left.Size(), right.Size()))
	for _, a := range right.Attrs() {
		if left.Get(a.Name) != nil {
			b.Push(a)
		}
	}
	out.MkAttrs(b)
	return nil
}

func primMapAttrs(st *eval.EvalState, pos syntax.PosIdx, args []*eval.Value, out *eval.Value) error {
	if err := st.ForceAttrs(args[1], pos, "while evaluating the second argument passed to builtins.mapAttrs"); err != nil {
		return err
	}
	src := args[1].Attrs().Attrs()
	b := eval.NewBindings(len(src))
	for _, a := range src {
		vName := new(eval.Value)
		vName.MkString(st.Symbols.Name(a.Name), nil)
		// Lazy per attribute: the call itself is deferred.
		mapped := new(eval.Value)
		partial := new(eval.Value)
		partial.MkApp(args[0], vName)
		mapped.MkApp(partial, a.Value)
		b.Push(eval.Attr{Name: a.Name, Value: mapped, Pos: a.Pos})
	}
	out.MkAttrs(b)
	return nil
}
