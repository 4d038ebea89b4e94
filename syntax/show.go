package syntax

import (
	"fmt"
	"strconv"
	"strings"
)

type printer struct {
	sb strings.Builder
}

func (p *printer) ws(s string)               { p.sb.WriteString(s) }
func (p *printer) wf(f string, a ...any)     { fmt.Fprintf(&p.sb, f, a...) }
func (p *printer) sub(st *SymbolTable, e Expr) { e.show(st, p) }

// Show renders an expression back to source-like text, used by assert
// failure messages and the parse dump. It is not a formatter: output is
// single-line and fully parenthesised where precedence is unclear.
func Show(st *SymbolTable, e Expr) string {
	var p printer
	e.show(st, &p)
	return p.sb.String()
}

// QuoteString renders a string body with the escapes the lexer accepts.
func QuoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString("\\\"")
		case '\\':
			sb.WriteString("\\\\")
		case '\n':
			sb.WriteString("\\n")
		case '\r':
			sb.WriteString("\\r")
		case '\t':
			sb.WriteString("\\t")
		case '$':
			sb.WriteString("\\$")
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func showAttrName(st *SymbolTable, p *printer, an AttrName) {
	if an.Symbol != 0 {
		p.ws(st.Name(an.Symbol))
		return
	}
	p.ws("\"${")
	p.sub(st, an.Expr)
	p.ws("}\"")
}

func showAttrPath(st *SymbolTable, p *printer, path []AttrName) {
	for i, an := range path {
		if i > 0 {
			p.ws(".")
		}
		showAttrName(st, p, an)
	}
}

func (e *ExprInt) show(st *SymbolTable, p *printer)   { p.ws(strconv.FormatInt(e.Value, 10)) }
func (e *ExprFloat) show(st *SymbolTable, p *printer) { p.ws(strconv.FormatFloat(e.Value, 'g', -1, 64)) }
func (e *ExprString) show(st *SymbolTable, p *printer) {
	p.ws(QuoteString(e.Value))
}
func (e *ExprPath) show(st *SymbolTable, p *printer) { p.ws(e.Value) }
func (e *ExprVar) show(st *SymbolTable, p *printer)  { p.ws(st.Name(e.Name)) }

func (e *ExprSelect) show(st *SymbolTable, p *printer) {
	p.ws("(")
	p.sub(st, e.E)
	p.ws(").")
	showAttrPath(st, p, e.Path)
	if e.Default != nil {
		p.ws(" or (")
		p.sub(st, e.Default)
		p.ws(")")
	}
}

func (e *ExprOpHasAttr) show(st *SymbolTable, p *printer) {
	p.ws("((")
	p.sub(st, e.E)
	p.ws(") ? ")
	showAttrPath(st, p, e.Path)
	p.ws(")")
}

func (e *ExprAttrs) show(st *SymbolTable, p *printer) {
	if e.Recursive {
		p.ws("rec ")
	}
	p.ws("{ ")
	for _, a := range e.Attrs {
		p.ws(st.Name(a.Name))
		p.ws(" = ")
		p.sub(st, a.E)
		p.ws("; ")
	}
	for _, d := range e.Dynamic {
		p.ws("\"${")
		p.sub(st, d.NameExpr)
		p.ws("}\" = ")
		p.sub(st, d.ValueExpr)
		p.ws("; ")
	}
	p.ws("}")
}

func (e *ExprInheritFrom) show(st *SymbolTable, p *printer) {
	p.wf("(/* expanded inherit (%d) */)", e.Displ)
}

func (e *ExprList) show(st *SymbolTable, p *printer) {
	p.ws("[ ")
	for _, el := range e.Elems {
		p.ws("(")
		p.sub(st, el)
		p.ws(") ")
	}
	p.ws("]")
}

func (e *ExprLambda) show(st *SymbolTable, p *printer) {
	p.ws("(")
	if e.HasFormals() {
		p.ws("{ ")
		for i, f := range e.Formals.Formals {
			if i > 0 {
				p.ws(", ")
			}
			p.ws(st.Name(f.Name))
			if f.Def != nil {
				p.ws(" ? ")
				p.sub(st, f.Def)
			}
		}
		if e.Formals.Ellipsis {
			if len(e.Formals.Formals) > 0 {
				p.ws(", ")
			}
			p.ws("...")
		}
		p.ws(" }")
		if e.Arg != 0 {
			p.ws(" @ ")
			p.ws(st.Name(e.Arg))
		}
	} else {
		p.ws(st.Name(e.Arg))
	}
	p.ws(": ")
	p.sub(st, e.Body)
	p.ws(")")
}

func (e *ExprCall) show(st *SymbolTable, p *printer) {
	p.ws("(")
	p.sub(st, e.Fun)
	for _, a := range e.Args {
		p.ws(" (")
		p.sub(st, a)
		p.ws(")")
	}
	p.ws(")")
}

func (e *ExprLet) show(st *SymbolTable, p *printer) {
	p.ws("(let ")
	for _, a := range e.Attrs.Attrs {
		p.ws(st.Name(a.Name))
		p.ws(" = ")
		p.sub(st, a.E)
		p.ws("; ")
	}
	p.ws("in ")
	p.sub(st, e.Body)
	p.ws(")")
}

func (e *ExprWith) show(st *SymbolTable, p *printer) {
	p.ws("(with ")
	p.sub(st, e.Attrs)
	p.ws("; ")
	p.sub(st, e.Body)
	p.ws(")")
}

func (e *ExprIf) show(st *SymbolTable, p *printer) {
	p.ws("(if ")
	p.sub(st, e.Cond)
	p.ws(" then ")
	p.sub(st, e.Then)
	p.ws(" else ")
	p.sub(st, e.Else)
	p.ws(")")
}

func (e *ExprAssert) show(st *SymbolTable, p *printer) {
	p.ws("assert ")
	p.sub(st, e.Cond)
	p.ws("; ")
	p.sub(st, e.Body)
}

func (e *ExprOpNot) show(st *SymbolTable, p *printer) {
	p.ws("(! ")
	p.sub(st, e.E)
	p.ws(")")
}

func showBinop(st *SymbolTable, p *printer, e1 Expr, op string, e2 Expr) {
	p.ws("(")
	p.sub(st, e1)
	p.ws(" ")
	p.ws(op)
	p.ws(" ")
	p.sub(st, e2)
	p.ws(")")
}

func (e *ExprOpEq) show(st *SymbolTable, p *printer)  { showBinop(st, p, e.E1, "==", e.E2) }
func (e *ExprOpNEq) show(st *SymbolTable, p *printer) { showBinop(st, p, e.E1, "!=", e.E2) }
func (e *ExprOpAnd) show(st *SymbolTable, p *printer) { showBinop(st, p, e.E1, "&&", e.E2) }
func (e *ExprOpOr) show(st *SymbolTable, p *printer)  { showBinop(st, p, e.E1, "||", e.E2) }
func (e *ExprOpImpl) show(st *SymbolTable, p *printer) {
	showBinop(st, p, e.E1, "->", e.E2)
}
func (e *ExprOpUpdate) show(st *SymbolTable, p *printer) {
	showBinop(st, p, e.E1, "//", e.E2)
}
func (e *ExprOpConcatLists) show(st *SymbolTable, p *printer) {
	showBinop(st, p, e.E1, "++", e.E2)
}

func (e *ExprConcatStrings) show(st *SymbolTable, p *printer) {
	p.ws("(")
	for i, part := range e.Parts {
		if i > 0 {
			p.ws(" + ")
		}
		p.sub(st, part.E)
	}
	p.ws(")")
}

func (e *ExprPos) show(st *SymbolTable, p *printer) { p.ws("__curPos") }

func (e *ExprBlackHole) show(st *SymbolTable, p *printer) { p.ws("«potential infinite recursion»") }
