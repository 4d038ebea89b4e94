package syntax

import (
	"fmt"
	"sort"
)

// StaticEnv is the compile-time scope model. Each level lists the names
// the corresponding runtime frame introduces, with their slot
// displacements; With is non-nil for with frames, which supply names
// dynamically instead.
type StaticEnv struct {
	Up   *StaticEnv
	With *ExprWith
	vars []staticVar // sorted by symbol once sealed
}

type staticVar struct {
	name  Symbol
	displ int
}

// NewStaticEnv creates a static environment level below up. with is
// non-nil when the level belongs to a with expression.
func NewStaticEnv(with *ExprWith, up *StaticEnv, capacity int) *StaticEnv {
	return &StaticEnv{Up: up, With: with, vars: make([]staticVar, 0, capacity)}
}

// Declare adds a name to this level. Call Seal before lookups.
func (se *StaticEnv) Declare(name Symbol, displ int) {
	se.vars = append(se.vars, staticVar{name: name, displ: displ})
}

// Seal sorts the level's names for binary-search lookup.
func (se *StaticEnv) Seal() {
	sort.Slice(se.vars, func(i, j int) bool { return se.vars[i].name < se.vars[j].name })
}

// Find returns the displacement of name at this level.
func (se *StaticEnv) Find(name Symbol) (int, bool) {
	lo, hi := 0, len(se.vars)
	for lo < hi {
		mid := (lo + hi) / 2
		if se.vars[mid].name < name {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(se.vars) && se.vars[lo].name == name {
		return se.vars[lo].displ, true
	}
	return 0, false
}

// Names returns the declared names at this level, for diagnostics.
func (se *StaticEnv) Names(st *SymbolTable) []string {
	out := make([]string, 0, len(se.vars))
	for _, v := range se.vars {
		out = append(out, st.Name(v.name))
	}
	return out
}

// UndefinedVarError reports a variable reference that no lexical scope
// and no with scope can supply.
type UndefinedVarError struct {
	Name        string
	Pos         Pos
	Suggestions []string
}

func (e *UndefinedVarError) Error() string {
	return fmt.Sprintf("undefined variable '%s' at %s", e.Name, e.Pos)
}

type binder struct {
	symbols   *SymbolTable
	positions *PosTable
}

// Bind resolves every variable reference in e against env, filling in
// (level, displacement) pairs or with-chain links. It must run once per
// expression before evaluation.
func Bind(e Expr, symbols *SymbolTable, positions *PosTable, env *StaticEnv) error {
	b := &binder{symbols: symbols, positions: positions}
	return e.bind(b, env)
}

func (e *ExprInt) bind(b *binder, env *StaticEnv) error    { return nil }
func (e *ExprFloat) bind(b *binder, env *StaticEnv) error  { return nil }
func (e *ExprString) bind(b *binder, env *StaticEnv) error { return nil }
func (e *ExprPath) bind(b *binder, env *StaticEnv) error   { return nil }
func (e *ExprPos) bind(b *binder, env *StaticEnv) error    { return nil }

func (e *ExprBlackHole) bind(b *binder, env *StaticEnv) error { return nil }

func (e *ExprInheritFrom) bind(b *binder, env *StaticEnv) error { return nil }

func (e *ExprVar) bind(b *binder, env *StaticEnv) error {
	level := 0
	withLevel := -1
	var nearestWith *ExprWith
	for curEnv := env; curEnv != nil; curEnv = curEnv.Up {
		if curEnv.With != nil {
			if withLevel == -1 {
				withLevel = level
				nearestWith = curEnv.With
			}
		} else if displ, ok := curEnv.Find(e.Name); ok {
			e.FromWith = nil
			e.Level = level
			e.Displ = displ
			return nil
		}
		level++
	}

	// No lexical binding. Route the lookup through the innermost with
	// scope, or fail now if there is none.
	if withLevel == -1 {
		return &UndefinedVarError{
			Name:        b.symbols.Name(e.Name),
			Pos:         b.positions.Resolve(e.P),
			Suggestions: bestMatchesInScope(b.symbols, env, e.Name),
		}
	}
	e.FromWith = nearestWith
	e.Level = withLevel
	return nil
}

func bestMatchesInScope(st *SymbolTable, env *StaticEnv, name Symbol) []string {
	var visible []string
	for curEnv := env; curEnv != nil; curEnv = curEnv.Up {
		visible = append(visible, curEnv.Names(st)...)
	}
	return BestMatches(visible, st.Name(name))
}

func bindAttrNames(b *binder, env *StaticEnv, path []AttrName) error {
	for _, an := range path {
		if an.Expr != nil {
			if err := an.Expr.bind(b, env); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *ExprSelect) bind(b *binder, env *StaticEnv) error {
	if err := e.E.bind(b, env); err != nil {
		return err
	}
	if e.Default != nil {
		if err := e.Default.bind(b, env); err != nil {
			return err
		}
	}
	return bindAttrNames(b, env, e.Path)
}

func (e *ExprOpHasAttr) bind(b *binder, env *StaticEnv) error {
	if err := e.E.bind(b, env); err != nil {
		return err
	}
	return bindAttrNames(b, env, e.Path)
}

func (e *ExprAttrs) bind(b *binder, env *StaticEnv) error {
	inner := e.bindInner(b, env)
	return e.bindBody(b, env, inner)
}

// bindInner builds the inner static level for a recursive set: the
// plain and dynamic attributes see a level holding the static attribute
// names, while inherited attributes keep seeing the enclosing scope.
func (e *ExprAttrs) bindInner(b *binder, env *StaticEnv) *StaticEnv {
	inner := env
	if e.Recursive {
		inner = NewStaticEnv(nil, env, len(e.Attrs))
		for i := range e.Attrs {
			e.Attrs[i].Displ = i
			inner.Declare(e.Attrs[i].Name, i)
		}
		inner.Seal()
	}
	return inner
}

func (e *ExprAttrs) bindBody(b *binder, env, inner *StaticEnv) error {
	fromEnv := env
	if e.Recursive {
		fromEnv = inner
	}
	for _, from := range e.InheritFrom {
		if err := from.bind(b, fromEnv); err != nil {
			return err
		}
	}
	for i := range e.Attrs {
		def := &e.Attrs[i]
		defEnv := inner
		if def.Kind == AttrInherited {
			defEnv = env
		}
		if err := def.E.bind(b, defEnv); err != nil {
			return err
		}
	}
	dynEnv := env
	if e.Recursive {
		dynEnv = inner
	}
	for _, d := range e.Dynamic {
		if err := d.NameExpr.bind(b, dynEnv); err != nil {
			return err
		}
		if err := d.ValueExpr.bind(b, dynEnv); err != nil {
			return err
		}
	}
	return nil
}

func (e *ExprList) bind(b *binder, env *StaticEnv) error {
	for _, el := range e.Elems {
		if err := el.bind(b, env); err != nil {
			return err
		}
	}
	return nil
}

func (e *ExprLambda) bind(b *binder, env *StaticEnv) error {
	size := 0
	if e.Arg != 0 {
		size = 1
	}
	if e.HasFormals() {
		size += len(e.Formals.Formals)
	}
	inner := NewStaticEnv(nil, env, size)

	displ := 0
	if e.Arg != 0 {
		inner.Declare(e.Arg, displ)
		displ++
	}
	if e.HasFormals() {
		for i := range e.Formals.Formals {
			inner.Declare(e.Formals.Formals[i].Name, displ)
			displ++
		}
	}
	inner.Seal()

	if e.HasFormals() {
		for i := range e.Formals.Formals {
			if def := e.Formals.Formals[i].Def; def != nil {
				if err := def.bind(b, inner); err != nil {
					return err
				}
			}
		}
	}
	return e.Body.bind(b, inner)
}

func (e *ExprCall) bind(b *binder, env *StaticEnv) error {
	if err := e.Fun.bind(b, env); err != nil {
		return err
	}
	for _, a := range e.Args {
		if err := a.bind(b, env); err != nil {
			return err
		}
	}
	return nil
}

func (e *ExprLet) bind(b *binder, env *StaticEnv) error {
	inner := e.Attrs.bindInner(b, env)
	if err := e.Attrs.bindBody(b, env, inner); err != nil {
		return err
	}
	return e.Body.bind(b, inner)
}

func (e *ExprWith) bind(b *binder, env *StaticEnv) error {
	// Record how far up the next enclosing with sits, so runtime lookup
	// can hop the chain without searching.
	e.PrevWith = 0
	level := 1
	for curEnv := env; curEnv != nil; curEnv = curEnv.Up {
		if curEnv.With != nil {
			e.PrevWith = level
			e.ParentWith = curEnv.With
			break
		}
		level++
	}
	if err := e.Attrs.bind(b, env); err != nil {
		return err
	}
	inner := NewStaticEnv(e, env, 0)
	return e.Body.bind(b, inner)
}

func (e *ExprIf) bind(b *binder, env *StaticEnv) error {
	if err := e.Cond.bind(b, env); err != nil {
		return err
	}
	if err := e.Then.bind(b, env); err != nil {
		return err
	}
	return e.Else.bind(b, env)
}

func (e *ExprAssert) bind(b *binder, env *StaticEnv) error {
	if err := e.Cond.bind(b, env); err != nil {
		return err
	}
	return e.Body.bind(b, env)
}

func (e *ExprOpNot) bind(b *binder, env *StaticEnv) error {
	return e.E.bind(b, env)
}

func bind2(b *binder, env *StaticEnv, e1, e2 Expr) error {
	if err := e1.bind(b, env); err != nil {
		return err
	}
	return e2.bind(b, env)
}

func (e *ExprOpEq) bind(b *binder, env *StaticEnv) error  { return bind2(b, env, e.E1, e.E2) }
func (e *ExprOpNEq) bind(b *binder, env *StaticEnv) error { return bind2(b, env, e.E1, e.E2) }
func (e *ExprOpAnd) bind(b *binder, env *StaticEnv) error { return bind2(b, env, e.E1, e.E2) }
func (e *ExprOpOr) bind(b *binder, env *StaticEnv) error  { return bind2(b, env, e.E1, e.E2) }
func (e *ExprOpImpl) bind(b *binder, env *StaticEnv) error {
	return bind2(b, env, e.E1, e.E2)
}
func (e *ExprOpUpdate) bind(b *binder, env *StaticEnv) error {
	return bind2(b, env, e.E1, e.E2)
}
func (e *ExprOpConcatLists) bind(b *binder, env *StaticEnv) error {
	return bind2(b, env, e.E1, e.E2)
}

func (e *ExprConcatStrings) bind(b *binder, env *StaticEnv) error {
	for _, p := range e.Parts {
		if err := p.E.bind(b, env); err != nil {
			return err
		}
	}
	return nil
}
