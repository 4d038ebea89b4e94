package eval

import (
	"sort"
	"strconv"
	"strings"

	"github.com/nixel-lang/nixel/syntax"
)

// ShowKind names a user-visible type, optionally with an article.
func ShowKind(k ValueKind, withArticle bool) string {
	wa := func(article, word string) string {
		if withArticle {
			return article + " " + word
		}
		return word
	}
	switch k {
	case KindInt:
		return wa("an", "integer")
	case KindBool:
		return wa("a", "Boolean")
	case KindString:
		return wa("a", "string")
	case KindPath:
		return wa("a", "path")
	case KindNull:
		return "null"
	case KindAttrs:
		return wa("a", "set")
	case KindList:
		return wa("a", "list")
	case KindFunction:
		return wa("a", "function")
	case KindExternal:
		return wa("an", "external value")
	case KindFloat:
		return wa("a", "float")
	default:
		return wa("a", "thunk")
	}
}

// ShowTypeOf renders the precise state of v for diagnostics, including
// the internal thunk states.
func (st *EvalState) ShowTypeOf(v *Value) string {
	switch v.tag {
	case tString:
		if len(v.context) > 0 {
			return "a string with context"
		}
		return "a string"
	case tPrimOp:
		return "the built-in function '" + v.primop.Name + "'"
	case tPrimOpApp:
		if p := v.PrimOpOf(); p != nil {
			return "the partially applied built-in function '" + p.Name + "'"
		}
		return "a partially applied built-in function"
	case tExternal:
		return v.ext.TypeName()
	case tBlackhole:
		return "a black hole"
	case tApp:
		return "a function application"
	case tThunk:
		return "a thunk"
	default:
		return ShowKind(v.Kind(), true)
	}
}

// PrintOptions controls PrintValue.
type PrintOptions struct {
	// Force evaluates thunks encountered while printing; unforced
	// thunks render as «thunk» otherwise.
	Force bool
	// DerivationPaths abbreviates derivations to «derivation /path».
	DerivationPaths bool
	// MaxDepth bounds recursion; deeper structure renders as «…».
	// Zero means unlimited.
	MaxDepth int
	// MaxAttrs and MaxListItems bound element counts; zero means
	// unlimited.
	MaxAttrs     int
	MaxListItems int
}

// errorPrintOptions abbreviates values embedded in error messages.
var errorPrintOptions = PrintOptions{Force: false, DerivationPaths: true, MaxDepth: 2, MaxAttrs: 8, MaxListItems: 8}

// AbbrevValue renders v compactly for inclusion in a diagnostic.
func (st *EvalState) AbbrevValue(v *Value) string {
	return st.PrintValue(v, errorPrintOptions)
}

// PrintValue renders v as source-like text.
func (st *EvalState) PrintValue(v *Value, opts PrintOptions) string {
	var sb strings.Builder
	seen := make(map[*Bindings]bool)
	st.printValue(&sb, v, opts, 0, seen)
	return sb.String()
}

func (st *EvalState) printValue(sb *strings.Builder, v *Value, opts PrintOptions, depth int, seen map[*Bindings]bool) {
	if opts.Force && !v.Forced() {
		if err := st.Force(v, syntax.NoPos); err != nil {
			sb.WriteString("«error: " + firstLine(err.Error()) + "»")
			return
		}
	}

	switch v.tag {
	case tInt:
		sb.WriteString(strconv.FormatInt(v.num, 10))
	case tFloat:
		sb.WriteString(strconv.FormatFloat(v.fpoint, 'g', -1, 64))
	case tBool:
		if v.num != 0 {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case tNull:
		sb.WriteString("null")
	case tString:
		sb.WriteString(syntax.QuoteString(v.str))
	case tPath:
		sb.WriteString(v.str)

	case tList:
		if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
			sb.WriteString("[ … ]")
			return
		}
		sb.WriteString("[ ")
		for i, el := range v.list {
			if opts.MaxListItems > 0 && i >= opts.MaxListItems {
				sb.WriteString("… ")
				break
			}
			st.printValue(sb, el, opts, depth+1, seen)
			sb.WriteByte(' ')
		}
		sb.WriteString("]")

	case tAttrs:
		if opts.DerivationPaths && st.IsDerivation(v) {
			if outPath := v.attrs.Get(st.sOutPath); outPath != nil && outPath.Value.tag == tString {
				sb.WriteString("«derivation " + outPath.Value.str + "»")
				return
			}
		}
		if seen[v.attrs] {
			sb.WriteString("«repeated»")
			return
		}
		seen[v.attrs] = true
		if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
			sb.WriteString("{ … }")
			return
		}
		sb.WriteString("{ ")
		// Attributes print in name order, not in symbol-id order.
		attrs := append([]Attr(nil), v.attrs.Attrs()...)
		sort.SliceStable(attrs, func(i, j int) bool {
			return st.Symbols.Name(attrs[i].Name) < st.Symbols.Name(attrs[j].Name)
		})
		for i, a := range attrs {
			if opts.MaxAttrs > 0 && i >= opts.MaxAttrs {
				sb.WriteString("… ")
				break
			}
			sb.WriteString(st.Symbols.Name(a.Name))
			sb.WriteString(" = ")
			st.printValue(sb, a.Value, opts, depth+1, seen)
			sb.WriteString("; ")
		}
		sb.WriteString("}")

	case tLambda:
		pos := st.Positions.Resolve(v.expr.Pos())
		sb.WriteString("«lambda @ " + pos.String() + "»")
	case tPrimOp:
		sb.WriteString("«primop " + v.primop.Name + "»")
	case tPrimOpApp:
		if p := v.PrimOpOf(); p != nil {
			sb.WriteString("«partially applied primop " + p.Name + "»")
		} else {
			sb.WriteString("«partially applied primop»")
		}
	case tExternal:
		sb.WriteString(v.ext.String())
	case tBlackhole:
		sb.WriteString("«potential infinite recursion»")
	default:
		sb.WriteString("«thunk»")
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
