// Package eval implements the Nixel evaluator core: a thunk-based
// call-by-need engine over the syntax package's expression trees, with
// attribute sets, string contexts, primop dispatch, a search-path
// resolver, a path sandbox, and file-level memoisation.
package eval

import (
	"github.com/nixel-lang/nixel/syntax"
)

type tag uint8

const (
	tUninit tag = iota
	tInt
	tFloat
	tBool
	tNull
	tString
	tPath
	tList
	tAttrs
	tLambda
	tPrimOp
	tPrimOpApp
	tApp
	tThunk
	tBlackhole
	tExternal
)

// ValueKind is the user-visible type of a value. Thunk covers all
// not-yet-forced states.
type ValueKind uint8

const (
	KindThunk ValueKind = iota
	KindInt
	KindFloat
	KindBool
	KindNull
	KindString
	KindPath
	KindList
	KindAttrs
	KindFunction
	KindExternal
)

// External is the hook for host-defined values.
type External interface {
	// TypeName renders like "an external value of type x".
	TypeName() string
	// String renders the value for diagnostics.
	String() string
	// CoerceToString converts the value for string interpolation, or
	// returns an error if the value does not support it.
	CoerceToString(st *EvalState, pos syntax.PosIdx, ctx *Context, coerceMore, copyToStore bool) (string, error)
	// Equal compares with another external value.
	Equal(other External) bool
}

// Value is the runtime representation: a tagged cell that doubles as
// computation state (thunk, deferred application, black hole) and
// result. Cells are mutated in place when forced, so they are always
// handled through pointers.
type Value struct {
	tag     tag
	num     int64 // Int payload; Bool stored as 0/1
	fpoint  float64
	str     string // String and Path payload
	context []ContextElem
	list    []*Value
	attrs   *Bindings
	env     *Env        // Thunk and Lambda capture
	expr    syntax.Expr // Thunk body; *syntax.ExprLambda for Lambda
	primop  *PrimOp
	left    *Value // PrimOpApp and App
	right   *Value
	ext     External
	failed  *EvalError // set on a black hole whose computation failed
}

// Kind returns the user-visible type of v.
func (v *Value) Kind() ValueKind {
	switch v.tag {
	case tInt:
		return KindInt
	case tFloat:
		return KindFloat
	case tBool:
		return KindBool
	case tNull:
		return KindNull
	case tString:
		return KindString
	case tPath:
		return KindPath
	case tList:
		return KindList
	case tAttrs:
		return KindAttrs
	case tLambda, tPrimOp, tPrimOpApp:
		return KindFunction
	case tExternal:
		return KindExternal
	default:
		return KindThunk
	}
}

// Forced reports whether v is past its thunk states.
func (v *Value) Forced() bool {
	switch v.tag {
	case tUninit, tThunk, tApp, tBlackhole:
		return false
	}
	return true
}

// IsBlackhole reports whether v is currently being forced.
func (v *Value) IsBlackhole() bool { return v.tag == tBlackhole }

// Int returns the integer payload; valid only for KindInt.
func (v *Value) Int() int64 { return v.num }

// Float returns the float payload; valid only for KindFloat.
func (v *Value) Float() float64 { return v.fpoint }

// Bool returns the boolean payload; valid only for KindBool.
func (v *Value) Bool() bool { return v.num != 0 }

// Str returns the string payload without its context.
func (v *Value) Str() string { return v.str }

// StrContext returns the string's context elements; nil when empty.
func (v *Value) StrContext() []ContextElem { return v.context }

// Path returns the path payload; valid only for KindPath.
func (v *Value) Path() string { return v.str }

// List returns the element slice; valid only for KindList.
func (v *Value) List() []*Value { return v.list }

// Attrs returns the bindings; valid only for KindAttrs.
func (v *Value) Attrs() *Bindings { return v.attrs }

// Lambda returns the captured environment and function literal; valid
// only when v holds a lambda.
func (v *Value) Lambda() (*Env, *syntax.ExprLambda) {
	return v.env, v.expr.(*syntax.ExprLambda)
}

// IsLambdaValue reports whether v holds a user lambda rather than a
// primop.
func (v *Value) IsLambdaValue() bool { return v.tag == tLambda }

func (v *Value) isLambda() bool    { return v.tag == tLambda }
func (v *Value) isPrimOp() bool    { return v.tag == tPrimOp }
func (v *Value) isPrimOpApp() bool { return v.tag == tPrimOpApp }

// PrimOpOf walks a PrimOpApp chain to its underlying primop, or returns
// the primop of a bare PrimOp value.
func (v *Value) PrimOpOf() *PrimOp {
	p := v
	for p.tag == tPrimOpApp {
		p = p.left
	}
	if p.tag == tPrimOp {
		return p.primop
	}
	return nil
}

func (v *Value) MkInt(n int64)     { *v = Value{tag: tInt, num: n} }
func (v *Value) MkFloat(f float64) { *v = Value{tag: tFloat, fpoint: f} }
func (v *Value) MkNull()           { *v = Value{tag: tNull} }

func (v *Value) MkBool(b bool) {
	n := int64(0)
	if b {
		n = 1
	}
	*v = Value{tag: tBool, num: n}
}

// MkString sets v to a string with the given context (which may be nil).
func (v *Value) MkString(s string, ctx []ContextElem) {
	*v = Value{tag: tString, str: s, context: ctx}
}

// MkPath sets v to a path value. The caller supplies an absolute,
// lexically cleaned path.
func (v *Value) MkPath(p string) { *v = Value{tag: tPath, str: p} }

// MkList sets v to a list over elems; the slice is shared, not copied.
func (v *Value) MkList(elems []*Value) { *v = Value{tag: tList, list: elems} }

// MkAttrs sets v to an attribute set over b, which must be sealed.
func (v *Value) MkAttrs(b *Bindings) { *v = Value{tag: tAttrs, attrs: b} }

func (v *Value) MkLambda(env *Env, fun *syntax.ExprLambda) {
	*v = Value{tag: tLambda, env: env, expr: fun}
}

func (v *Value) MkPrimOp(p *PrimOp) { *v = Value{tag: tPrimOp, primop: p} }

func (v *Value) MkPrimOpApp(left, right *Value) {
	*v = Value{tag: tPrimOpApp, left: left, right: right}
}

func (v *Value) MkApp(left, right *Value) {
	*v = Value{tag: tApp, left: left, right: right}
}

func (v *Value) MkThunk(env *Env, expr syntax.Expr) {
	*v = Value{tag: tThunk, env: env, expr: expr}
}

func (v *Value) mkBlackhole() { *v = Value{tag: tBlackhole} }

// MkExternal sets v to a host-defined value.
func (v *Value) MkExternal(e External) { *v = Value{tag: tExternal, ext: e} }

// External returns the host payload; valid only for KindExternal.
func (v *Value) External() External { return v.ext }

// determinePos returns the best position for diagnostics about v,
// falling back to the given position.
func (v *Value) determinePos(fallback syntax.PosIdx) syntax.PosIdx {
	switch v.tag {
	case tAttrs:
		if v.attrs.pos != syntax.NoPos {
			return v.attrs.pos
		}
	case tThunk:
		if p := v.expr.Pos(); p != syntax.NoPos {
			return p
		}
	case tLambda:
		if p := v.expr.Pos(); p != syntax.NoPos {
			return p
		}
	}
	return fallback
}
