package syntax

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Parser turns Nixel source text into bound expression trees. It owns
// nothing: the symbol and position tables belong to the evaluator and
// are populated during parsing.
type Parser struct {
	Symbols   *SymbolTable
	Positions *PosTable
}

// ParseFile reads and parses a source file. The file's directory is the
// base path for relative path literals.
func (p *Parser) ParseFile(path string, env *StaticEnv) (Expr, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	origin := p.Positions.AddOrigin(Origin{Kind: OriginPath, Path: path})
	return p.parse(string(src), origin, filepath.Dir(path), env)
}

// ParseString parses an in-memory expression. basePath anchors relative
// path literals.
func (p *Parser) ParseString(src, basePath string, env *StaticEnv) (Expr, error) {
	origin := p.Positions.AddOrigin(Origin{Kind: OriginString, Source: src})
	return p.parse(src, origin, basePath, env)
}

// ParseStdin parses an expression from standard input, anchored at the
// current working directory.
func (p *Parser) ParseStdin(env *StaticEnv) (Expr, error) {
	src, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	origin := p.Positions.AddOrigin(Origin{Kind: OriginStdin, Source: string(src)})
	return p.parse(string(src), origin, cwd, env)
}

func (p *Parser) parse(src string, origin uint32, basePath string, env *StaticEnv) (Expr, error) {
	ps := &parseState{
		lx:        newLexer(src, p.Positions, origin),
		symbols:   p.Symbols,
		positions: p.Positions,
		basePath:  basePath,
	}
	if err := ps.advance(); err != nil {
		return nil, err
	}
	e, err := ps.parseExpr()
	if err != nil {
		return nil, err
	}
	if ps.tok.kind != tEOF {
		return nil, ps.unexpected("end of file")
	}
	if err := Bind(e, p.Symbols, p.Positions, env); err != nil {
		return nil, err
	}
	return e, nil
}

type parseState struct {
	lx        *lexer
	symbols   *SymbolTable
	positions *PosTable
	basePath  string

	tok   token
	queue []token // buffered lookahead beyond tok
}

func (ps *parseState) advance() error {
	if len(ps.queue) > 0 {
		ps.tok = ps.queue[0]
		ps.queue = ps.queue[1:]
		return nil
	}
	tok, err := ps.lx.next()
	if err != nil {
		return err
	}
	ps.tok = tok
	return nil
}

// peek returns the n-th token after the current one, lexing ahead as
// needed. The token stream does not depend on parse decisions, so
// buffering is safe.
func (ps *parseState) peek(n int) (token, error) {
	for len(ps.queue) <= n {
		tok, err := ps.lx.next()
		if err != nil {
			return token{}, err
		}
		ps.queue = append(ps.queue, tok)
	}
	return ps.queue[n], nil
}

func (ps *parseState) errAt(tok token, format string, args ...any) error {
	return &ParseError{
		Msg: fmt.Sprintf(format, args...),
		Pos: ps.positions.Resolve(tok.pos),
	}
}

func (ps *parseState) unexpected(wanted string) error {
	return ps.errAt(ps.tok, "expected %s, got %s", wanted, ps.tok.kind)
}

func (ps *parseState) expect(kind tokenKind) (token, error) {
	if ps.tok.kind != kind {
		return token{}, ps.unexpected(kind.String())
	}
	tok := ps.tok
	if err := ps.advance(); err != nil {
		return token{}, err
	}
	return tok, nil
}

func (ps *parseState) intern(s string) Symbol { return ps.symbols.Intern(s) }

// parseExpr parses at the function level: lambdas, assert, with, let,
// or anything below.
func (ps *parseState) parseExpr() (Expr, error) {
	switch ps.tok.kind {
	case tID:
		// 'x: body' and 'x @ {…}: body' are lambdas; anything else
		// falls through to the operator grammar.
		nxt, err := ps.peek(0)
		if err != nil {
			return nil, err
		}
		if nxt.kind == tColon {
			arg := ps.tok
			if err := ps.advance(); err != nil { // identifier
				return nil, err
			}
			if err := ps.advance(); err != nil { // colon
				return nil, err
			}
			body, err := ps.parseExpr()
			if err != nil {
				return nil, err
			}
			return &ExprLambda{P: arg.pos, Arg: ps.intern(arg.text), Body: body}, nil
		}
		if nxt.kind == tAt {
			arg := ps.tok
			if err := ps.advance(); err != nil {
				return nil, err
			}
			if err := ps.advance(); err != nil {
				return nil, err
			}
			return ps.parseFormalsLambda(arg.pos, ps.intern(arg.text))
		}

	case tLBrace:
		isLambda, err := ps.braceStartsFormals()
		if err != nil {
			return nil, err
		}
		if isLambda {
			pos := ps.tok.pos
			if err := ps.advance(); err != nil {
				return nil, err
			}
			return ps.parseFormalsLambdaAfterBrace(pos, 0)
		}

	case tKwAssert:
		pos := ps.tok.pos
		if err := ps.advance(); err != nil {
			return nil, err
		}
		cond, err := ps.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := ps.expect(tSemi); err != nil {
			return nil, err
		}
		body, err := ps.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ExprAssert{P: pos, Cond: cond, Body: body}, nil

	case tKwWith:
		pos := ps.tok.pos
		if err := ps.advance(); err != nil {
			return nil, err
		}
		attrs, err := ps.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := ps.expect(tSemi); err != nil {
			return nil, err
		}
		body, err := ps.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ExprWith{P: pos, Attrs: attrs, Body: body}, nil

	case tKwLet:
		pos := ps.tok.pos
		if err := ps.advance(); err != nil {
			return nil, err
		}
		attrs := &ExprAttrs{P: pos, Recursive: true}
		if err := ps.parseBinds(attrs, tKwIn, true); err != nil {
			return nil, err
		}
		if err := ps.advance(); err != nil { // 'in'
			return nil, err
		}
		body, err := ps.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ExprLet{P: pos, Attrs: attrs, Body: body}, nil

	case tKwIf:
		return ps.parseIf()
	}

	return ps.parseOp(0)
}

func (ps *parseState) parseIf() (Expr, error) {
	pos := ps.tok.pos
	if err := ps.advance(); err != nil {
		return nil, err
	}
	cond, err := ps.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := ps.expect(tKwThen); err != nil {
		return nil, err
	}
	then, err := ps.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := ps.expect(tKwElse); err != nil {
		return nil, err
	}
	els, err := ps.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ExprIf{P: pos, Cond: cond, Then: then, Else: els}, nil
}

// braceStartsFormals decides whether a '{' opens a formals pattern
// ({}: …, {a, b ? x, …}: …) rather than an attrset literal.
func (ps *parseState) braceStartsFormals() (bool, error) {
	t0, err := ps.peek(0)
	if err != nil {
		return false, err
	}
	switch t0.kind {
	case tRBrace:
		t1, err := ps.peek(1)
		if err != nil {
			return false, err
		}
		return t1.kind == tColon || t1.kind == tAt, nil
	case tEllipsis:
		return true, nil
	case tID:
		t1, err := ps.peek(1)
		if err != nil {
			return false, err
		}
		switch t1.kind {
		case tComma, tQuestion:
			return true, nil
		case tRBrace:
			t2, err := ps.peek(2)
			if err != nil {
				return false, err
			}
			return t2.kind == tColon || t2.kind == tAt, nil
		}
	}
	return false, nil
}

// parseFormalsLambda parses '{formals} : body' after 'name @' has been
// consumed.
func (ps *parseState) parseFormalsLambda(pos PosIdx, arg Symbol) (Expr, error) {
	if _, err := ps.expect(tLBrace); err != nil {
		return nil, err
	}
	return ps.parseFormalsLambdaAfterBrace(pos, arg)
}

func (ps *parseState) parseFormalsLambdaAfterBrace(pos PosIdx, arg Symbol) (Expr, error) {
	formals := &Formals{}
	seen := make(map[Symbol]bool)
	for ps.tok.kind != tRBrace {
		if ps.tok.kind == tEllipsis {
			formals.Ellipsis = true
			if err := ps.advance(); err != nil {
				return nil, err
			}
			break
		}
		nameTok, err := ps.expect(tID)
		if err != nil {
			return nil, err
		}
		name := ps.intern(nameTok.text)
		if seen[name] {
			return nil, ps.errAt(nameTok, "duplicate formal function argument '%s'", nameTok.text)
		}
		seen[name] = true
		f := Formal{Name: name, Pos: nameTok.pos}
		if ps.tok.kind == tQuestion {
			if err := ps.advance(); err != nil {
				return nil, err
			}
			def, err := ps.parseExpr()
			if err != nil {
				return nil, err
			}
			f.Def = def
		}
		formals.Formals = append(formals.Formals, f)
		if ps.tok.kind == tComma {
			if err := ps.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := ps.expect(tRBrace); err != nil {
		return nil, err
	}

	if ps.tok.kind == tAt {
		if arg != 0 {
			return nil, ps.unexpected("':'")
		}
		if err := ps.advance(); err != nil {
			return nil, err
		}
		argTok, err := ps.expect(tID)
		if err != nil {
			return nil, err
		}
		arg = ps.intern(argTok.text)
	}
	if _, err := ps.expect(tColon); err != nil {
		return nil, err
	}
	if arg != 0 && seen[arg] {
		return nil, ps.errAt(ps.tok, "duplicate formal function argument '%s'", ps.symbols.Name(arg))
	}
	body, err := ps.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ExprLambda{P: pos, Arg: arg, Formals: formals, Body: body}, nil
}

// Operator precedence, low to high. Subtraction, multiplication,
// division and the comparisons desugar to calls of the __sub, __mul,
// __div and __lessThan builtins.
type opInfo struct {
	prec       int
	rightAssoc bool
	nonAssoc   bool
}

var binops = map[tokenKind]opInfo{
	tImpl:     {prec: 1, rightAssoc: true},
	tOr:       {prec: 2},
	tAnd:      {prec: 3},
	tEq:       {prec: 4, nonAssoc: true},
	tNEq:      {prec: 4, nonAssoc: true},
	tLt:       {prec: 5, nonAssoc: true},
	tGt:       {prec: 5, nonAssoc: true},
	tLeq:      {prec: 5, nonAssoc: true},
	tGeq:      {prec: 5, nonAssoc: true},
	tUpdate:   {prec: 6, rightAssoc: true},
	tPlus:     {prec: 8},
	tMinus:    {prec: 8},
	tStar:     {prec: 9},
	tSlash:    {prec: 9},
	tConcat:   {prec: 10, rightAssoc: true},
	tQuestion: {prec: 11, nonAssoc: true},
}

const (
	precNot    = 7
	precNegate = 12
)

func (ps *parseState) builtinCall(pos PosIdx, name string, args ...Expr) Expr {
	return &ExprCall{
		P:    pos,
		Fun:  &ExprVar{P: pos, Name: ps.intern(name)},
		Args: args,
	}
}

func (ps *parseState) parseOp(minPrec int) (Expr, error) {
	var lhs Expr
	var err error

	switch {
	case ps.tok.kind == tNot && precNot >= minPrec:
		pos := ps.tok.pos
		if err := ps.advance(); err != nil {
			return nil, err
		}
		e, err := ps.parseOp(precNot + 1)
		if err != nil {
			return nil, err
		}
		lhs = &ExprOpNot{P: pos, E: e}
	case ps.tok.kind == tMinus:
		pos := ps.tok.pos
		if err := ps.advance(); err != nil {
			return nil, err
		}
		e, err := ps.parseOp(precNegate + 1)
		if err != nil {
			return nil, err
		}
		lhs = ps.builtinCall(pos, "__sub", &ExprInt{P: pos, Value: 0}, e)
	default:
		lhs, err = ps.parseApp()
		if err != nil {
			return nil, err
		}
	}

	for {
		info, ok := binops[ps.tok.kind]
		if !ok || info.prec < minPrec {
			return lhs, nil
		}
		opTok := ps.tok
		if err := ps.advance(); err != nil {
			return nil, err
		}

		if opTok.kind == tQuestion {
			path, err := ps.parseAttrPath()
			if err != nil {
				return nil, err
			}
			lhs = &ExprOpHasAttr{P: opTok.pos, E: lhs, Path: path}
			continue
		}

		nextMin := info.prec + 1
		if info.rightAssoc {
			nextMin = info.prec
		}
		rhs, err := ps.parseOp(nextMin)
		if err != nil {
			return nil, err
		}

		pos := opTok.pos
		switch opTok.kind {
		case tImpl:
			lhs = &ExprOpImpl{P: pos, E1: lhs, E2: rhs}
		case tOr:
			lhs = &ExprOpOr{P: pos, E1: lhs, E2: rhs}
		case tAnd:
			lhs = &ExprOpAnd{P: pos, E1: lhs, E2: rhs}
		case tEq:
			lhs = &ExprOpEq{P: pos, E1: lhs, E2: rhs}
		case tNEq:
			lhs = &ExprOpNEq{P: pos, E1: lhs, E2: rhs}
		case tLt:
			lhs = ps.builtinCall(pos, "__lessThan", lhs, rhs)
		case tGt:
			lhs = ps.builtinCall(pos, "__lessThan", rhs, lhs)
		case tLeq:
			lhs = &ExprOpNot{P: pos, E: ps.builtinCall(pos, "__lessThan", rhs, lhs)}
		case tGeq:
			lhs = &ExprOpNot{P: pos, E: ps.builtinCall(pos, "__lessThan", lhs, rhs)}
		case tUpdate:
			lhs = &ExprOpUpdate{P: pos, E1: lhs, E2: rhs}
		case tPlus:
			// Collapse nested + chains so context and type promotion
			// work over the whole chain at once.
			if cs, ok := lhs.(*ExprConcatStrings); ok && !cs.ForceString {
				cs.Parts = append(cs.Parts, ConcatPart{Pos: pos, E: rhs})
				lhs = cs
			} else {
				lhs = &ExprConcatStrings{P: pos, Parts: []ConcatPart{
					{Pos: lhs.Pos(), E: lhs},
					{Pos: pos, E: rhs},
				}}
			}
		case tMinus:
			lhs = ps.builtinCall(pos, "__sub", lhs, rhs)
		case tStar:
			lhs = ps.builtinCall(pos, "__mul", lhs, rhs)
		case tSlash:
			lhs = ps.builtinCall(pos, "__div", lhs, rhs)
		case tConcat:
			lhs = &ExprOpConcatLists{P: pos, E1: lhs, E2: rhs}
		}
	}
}

func startsSimpleExpr(kind tokenKind) bool {
	switch kind {
	case tID, tInt, tFloat, tStrStart, tIndStrStart, tPath, tSearchPath,
		tLParen, tLBrace, tLBracket, tKwRec:
		return true
	}
	return false
}

func (ps *parseState) parseApp() (Expr, error) {
	fun, err := ps.parseSelect()
	if err != nil {
		return nil, err
	}
	if !startsSimpleExpr(ps.tok.kind) {
		return fun, nil
	}
	call := &ExprCall{P: fun.Pos(), Fun: fun}
	for startsSimpleExpr(ps.tok.kind) {
		arg, err := ps.parseSelect()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
	}
	return call, nil
}

func (ps *parseState) parseSelect() (Expr, error) {
	e, err := ps.parseSimple()
	if err != nil {
		return nil, err
	}
	if ps.tok.kind != tDot {
		return e, nil
	}
	pos := ps.tok.pos
	if err := ps.advance(); err != nil {
		return nil, err
	}
	path, err := ps.parseAttrPath()
	if err != nil {
		return nil, err
	}
	sel := &ExprSelect{P: pos, E: e, Path: path}
	if ps.tok.kind == tKwOr {
		if err := ps.advance(); err != nil {
			return nil, err
		}
		def, err := ps.parseSelect()
		if err != nil {
			return nil, err
		}
		sel.Default = def
	}
	return sel, nil
}

func (ps *parseState) parseAttrPath() ([]AttrName, error) {
	var path []AttrName
	for {
		an, err := ps.parseAttrName()
		if err != nil {
			return nil, err
		}
		path = append(path, an)
		if ps.tok.kind != tDot {
			return path, nil
		}
		if err := ps.advance(); err != nil {
			return nil, err
		}
	}
}

func (ps *parseState) parseAttrName() (AttrName, error) {
	switch ps.tok.kind {
	case tID:
		name := ps.intern(ps.tok.text)
		if err := ps.advance(); err != nil {
			return AttrName{}, err
		}
		return AttrName{Symbol: name}, nil
	case tKwOr:
		if err := ps.advance(); err != nil {
			return AttrName{}, err
		}
		return AttrName{Symbol: ps.intern("or")}, nil
	case tStrStart:
		e, err := ps.parseString()
		if err != nil {
			return AttrName{}, err
		}
		if lit, ok := e.(*ExprString); ok {
			return AttrName{Symbol: ps.intern(lit.Value)}, nil
		}
		// "${e}" with nothing around the hole is the hole itself, so
		// a null name can skip the attribute.
		if cs, ok := e.(*ExprConcatStrings); ok && len(cs.Parts) == 1 {
			return AttrName{Expr: cs.Parts[0].E}, nil
		}
		return AttrName{Expr: e}, nil
	case tInterpStart:
		if err := ps.advance(); err != nil {
			return AttrName{}, err
		}
		e, err := ps.parseExpr()
		if err != nil {
			return AttrName{}, err
		}
		if _, err := ps.expect(tInterpEnd); err != nil {
			return AttrName{}, err
		}
		return AttrName{Expr: e}, nil
	}
	return AttrName{}, ps.unexpected("attribute name")
}

func (ps *parseState) parseSimple() (Expr, error) {
	tok := ps.tok
	switch tok.kind {
	case tID:
		if err := ps.advance(); err != nil {
			return nil, err
		}
		if tok.text == "__curPos" {
			return &ExprPos{P: tok.pos}, nil
		}
		return &ExprVar{P: tok.pos, Name: ps.intern(tok.text)}, nil
	case tInt:
		if err := ps.advance(); err != nil {
			return nil, err
		}
		return &ExprInt{P: tok.pos, Value: tok.ival}, nil
	case tFloat:
		if err := ps.advance(); err != nil {
			return nil, err
		}
		return &ExprFloat{P: tok.pos, Value: tok.fval}, nil
	case tStrStart:
		return ps.parseString()
	case tIndStrStart:
		return ps.parseIndString()
	case tPath:
		if err := ps.advance(); err != nil {
			return nil, err
		}
		return &ExprPath{P: tok.pos, Value: ps.absolutePath(tok.text)}, nil
	case tSearchPath:
		if err := ps.advance(); err != nil {
			return nil, err
		}
		return ps.builtinCall(tok.pos, "__findFile",
			&ExprVar{P: tok.pos, Name: ps.intern("__nixPath")},
			&ExprString{P: tok.pos, Value: tok.text}), nil
	case tLParen:
		if err := ps.advance(); err != nil {
			return nil, err
		}
		e, err := ps.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := ps.expect(tRParen); err != nil {
			return nil, err
		}
		return e, nil
	case tLBracket:
		if err := ps.advance(); err != nil {
			return nil, err
		}
		list := &ExprList{P: tok.pos}
		for ps.tok.kind != tRBracket {
			el, err := ps.parseSelect()
			if err != nil {
				return nil, err
			}
			list.Elems = append(list.Elems, el)
		}
		if err := ps.advance(); err != nil {
			return nil, err
		}
		return list, nil
	case tKwRec:
		if err := ps.advance(); err != nil {
			return nil, err
		}
		if _, err := ps.expect(tLBrace); err != nil {
			return nil, err
		}
		attrs := &ExprAttrs{P: tok.pos, Recursive: true}
		if err := ps.parseBinds(attrs, tRBrace, false); err != nil {
			return nil, err
		}
		if err := ps.advance(); err != nil {
			return nil, err
		}
		return attrs, nil
	case tLBrace:
		if err := ps.advance(); err != nil {
			return nil, err
		}
		attrs := &ExprAttrs{P: tok.pos}
		if err := ps.parseBinds(attrs, tRBrace, false); err != nil {
			return nil, err
		}
		if err := ps.advance(); err != nil {
			return nil, err
		}
		return attrs, nil
	}
	return nil, ps.unexpected("expression")
}

func (ps *parseState) absolutePath(text string) string {
	switch {
	case strings.HasPrefix(text, "/"):
		return filepath.Clean(text)
	case strings.HasPrefix(text, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			home = "/"
		}
		return filepath.Join(home, text[2:])
	default:
		return filepath.Join(ps.basePath, text)
	}
}

func (ps *parseState) parseString() (Expr, error) {
	start, err := ps.expect(tStrStart)
	if err != nil {
		return nil, err
	}
	var parts []ConcatPart
	interpolated := false
	for ps.tok.kind != tStrEnd {
		switch ps.tok.kind {
		case tStrLit:
			parts = append(parts, ConcatPart{Pos: ps.tok.pos, E: &ExprString{P: ps.tok.pos, Value: ps.tok.text}})
			if err := ps.advance(); err != nil {
				return nil, err
			}
		case tInterpStart:
			interpolated = true
			if err := ps.advance(); err != nil {
				return nil, err
			}
			e, err := ps.parseExpr()
			if err != nil {
				return nil, err
			}
			end, err := ps.expect(tInterpEnd)
			if err != nil {
				return nil, err
			}
			parts = append(parts, ConcatPart{Pos: end.pos, E: e})
		default:
			return nil, ps.unexpected("string content")
		}
	}
	if err := ps.advance(); err != nil {
		return nil, err
	}
	// "${"a"}" stays an interpolation, so as an attribute name it is
	// dynamic rather than the static name a.
	if interpolated {
		return &ExprConcatStrings{P: start.pos, ForceString: true, Parts: parts}, nil
	}
	return ps.finishString(start.pos, parts), nil
}

func (ps *parseState) finishString(pos PosIdx, parts []ConcatPart) Expr {
	if len(parts) == 0 {
		return &ExprString{P: pos, Value: ""}
	}
	if len(parts) == 1 {
		if lit, ok := parts[0].E.(*ExprString); ok {
			return lit
		}
	}
	return &ExprConcatStrings{P: pos, ForceString: true, Parts: parts}
}

func (ps *parseState) parseIndString() (Expr, error) {
	start, err := ps.expect(tIndStrStart)
	if err != nil {
		return nil, err
	}
	var parts []ConcatPart
	for ps.tok.kind != tIndStrEnd {
		switch ps.tok.kind {
		case tIndStrLit:
			parts = append(parts, ConcatPart{Pos: ps.tok.pos, E: &ExprString{P: ps.tok.pos, Value: ps.tok.text}})
			if err := ps.advance(); err != nil {
				return nil, err
			}
		case tInterpStart:
			if err := ps.advance(); err != nil {
				return nil, err
			}
			e, err := ps.parseExpr()
			if err != nil {
				return nil, err
			}
			end, err := ps.expect(tInterpEnd)
			if err != nil {
				return nil, err
			}
			parts = append(parts, ConcatPart{Pos: end.pos, E: e})
		default:
			return nil, ps.unexpected("string content")
		}
	}
	if err := ps.advance(); err != nil {
		return nil, err
	}
	stripIndentation(parts)
	return ps.finishString(start.pos, parts), nil
}

// stripIndentation removes the common leading whitespace of every line
// of an indented string, in place. Interpolations at the start of a
// line pin the minimum indentation just like text does.
func stripIndentation(parts []ConcatPart) {
	minIndent := 1 << 30
	atLineStart := true
	curIndent := 0
	for _, part := range parts {
		lit, ok := part.E.(*ExprString)
		if !ok {
			if atLineStart && curIndent < minIndent {
				minIndent = curIndent
			}
			atLineStart = false
			continue
		}
		for i := 0; i < len(lit.Value); i++ {
			switch lit.Value[i] {
			case ' ':
				if atLineStart {
					curIndent++
				}
			case '\n':
				atLineStart = true
				curIndent = 0
			default:
				if atLineStart {
					atLineStart = false
					if curIndent < minIndent {
						minIndent = curIndent
					}
				}
			}
		}
	}
	if minIndent == 0 || minIndent == 1<<30 {
		minIndent = 0
	}

	atLineStart = true
	toStrip := minIndent
	for _, part := range parts {
		lit, ok := part.E.(*ExprString)
		if !ok {
			atLineStart = false
			toStrip = 0
			continue
		}
		var sb strings.Builder
		for i := 0; i < len(lit.Value); i++ {
			ch := lit.Value[i]
			if ch == '\n' {
				atLineStart = true
				toStrip = minIndent
				sb.WriteByte(ch)
				continue
			}
			if atLineStart && toStrip > 0 && ch == ' ' {
				toStrip--
				continue
			}
			atLineStart = false
			sb.WriteByte(ch)
		}
		lit.Value = sb.String()
	}

	// Drop the whitespace-only final line left by a closing '' on its
	// own line.
	if len(parts) > 0 {
		if lit, ok := parts[len(parts)-1].E.(*ExprString); ok {
			if i := strings.LastIndexByte(lit.Value, '\n'); i >= 0 &&
				strings.TrimLeft(lit.Value[i+1:], " ") == "" {
				lit.Value = lit.Value[:i+1]
			}
		}
	}
}

// parseBinds parses attribute definitions up to (not consuming) the
// terminator. noDynamic forbids ${…} names, as in let.
func (ps *parseState) parseBinds(attrs *ExprAttrs, terminator tokenKind, noDynamic bool) error {
	for ps.tok.kind != terminator {
		if ps.tok.kind == tKwInherit {
			if err := ps.parseInherit(attrs); err != nil {
				return err
			}
			continue
		}

		startTok := ps.tok
		path, err := ps.parseAttrPath()
		if err != nil {
			return err
		}
		if _, err := ps.expect(tAssign); err != nil {
			return err
		}
		value, err := ps.parseExpr()
		if err != nil {
			return err
		}
		if _, err := ps.expect(tSemi); err != nil {
			return err
		}
		if err := ps.addAttr(attrs, path, startTok, value, noDynamic); err != nil {
			return err
		}
	}
	return nil
}

func (ps *parseState) parseInherit(attrs *ExprAttrs) error {
	if err := ps.advance(); err != nil { // 'inherit'
		return err
	}
	fromIdx := -1
	if ps.tok.kind == tLParen {
		if err := ps.advance(); err != nil {
			return err
		}
		from, err := ps.parseExpr()
		if err != nil {
			return err
		}
		if _, err := ps.expect(tRParen); err != nil {
			return err
		}
		attrs.InheritFrom = append(attrs.InheritFrom, from)
		fromIdx = len(attrs.InheritFrom) - 1
	}
	for ps.tok.kind != tSemi {
		nameTok := ps.tok
		an, err := ps.parseAttrName()
		if err != nil {
			return err
		}
		if an.Symbol == 0 {
			return ps.errAt(nameTok, "dynamic attributes not allowed in inherit")
		}
		var def AttrDef
		if fromIdx >= 0 {
			def = AttrDef{
				Name: an.Symbol,
				Pos:  nameTok.pos,
				Kind: AttrInheritedFrom,
				E: &ExprSelect{
					P:    nameTok.pos,
					E:    &ExprInheritFrom{P: nameTok.pos, Displ: fromIdx},
					Path: []AttrName{{Symbol: an.Symbol}},
				},
			}
		} else {
			def = AttrDef{
				Name: an.Symbol,
				Pos:  nameTok.pos,
				Kind: AttrInherited,
				E:    &ExprVar{P: nameTok.pos, Name: an.Symbol},
			}
		}
		if err := ps.insertAttr(attrs, def, nameTok); err != nil {
			return err
		}
	}
	return ps.advance() // ';'
}

// addAttr installs path = value into attrs, desugaring dotted paths
// into nested attribute sets and merging sets defined piecewise.
func (ps *parseState) addAttr(attrs *ExprAttrs, path []AttrName, startTok token, value Expr, noDynamic bool) error {
	head, rest := path[0], path[1:]

	if head.Symbol == 0 {
		if noDynamic {
			return ps.errAt(startTok, "dynamic attributes not allowed in let")
		}
		val := value
		if len(rest) > 0 {
			nested := &ExprAttrs{P: startTok.pos}
			if err := ps.addAttr(nested, rest, startTok, value, noDynamic); err != nil {
				return err
			}
			val = nested
		}
		attrs.Dynamic = append(attrs.Dynamic, DynamicAttrDef{
			Pos:       startTok.pos,
			NameExpr:  head.Expr,
			ValueExpr: val,
		})
		return nil
	}

	if len(rest) > 0 {
		// Reuse an existing nested set created by a previous a.b = …
		// definition; anything else is a duplicate.
		for i := range attrs.Attrs {
			if attrs.Attrs[i].Name == head.Symbol {
				nested, ok := attrs.Attrs[i].E.(*ExprAttrs)
				if !ok || attrs.Attrs[i].Kind != AttrPlain || nested.Recursive {
					return ps.errAt(startTok, "attribute '%s' already defined at %s",
						ps.symbols.Name(head.Symbol), ps.positions.Resolve(attrs.Attrs[i].Pos))
				}
				return ps.addAttr(nested, rest, startTok, value, noDynamic)
			}
		}
		nested := &ExprAttrs{P: startTok.pos}
		if err := ps.addAttr(nested, rest, startTok, value, noDynamic); err != nil {
			return err
		}
		return ps.insertAttr(attrs, AttrDef{
			Name: head.Symbol,
			Pos:  startTok.pos,
			Kind: AttrPlain,
			E:    nested,
		}, startTok)
	}

	if lam, ok := value.(*ExprLambda); ok && lam.Name == 0 {
		lam.Name = head.Symbol
	}
	return ps.insertAttr(attrs, AttrDef{
		Name: head.Symbol,
		Pos:  startTok.pos,
		Kind: AttrPlain,
		E:    value,
	}, startTok)
}

// insertAttr keeps attrs.Attrs sorted by symbol and rejects duplicates.
func (ps *parseState) insertAttr(attrs *ExprAttrs, def AttrDef, tok token) error {
	lo, hi := 0, len(attrs.Attrs)
	for lo < hi {
		mid := (lo + hi) / 2
		if attrs.Attrs[mid].Name < def.Name {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(attrs.Attrs) && attrs.Attrs[lo].Name == def.Name {
		return ps.errAt(tok, "attribute '%s' already defined at %s",
			ps.symbols.Name(def.Name), ps.positions.Resolve(attrs.Attrs[lo].Pos))
	}
	attrs.Attrs = append(attrs.Attrs, AttrDef{})
	copy(attrs.Attrs[lo+1:], attrs.Attrs[lo:])
	attrs.Attrs[lo] = def
	return nil
}
