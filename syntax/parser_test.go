package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParser(t *testing.T) (*Parser, *StaticEnv) {
	t.Helper()
	symbols := NewSymbolTable()
	positions := NewPosTable()
	env := NewStaticEnv(nil, nil, 16)
	for _, name := range []string{"true", "false", "null", "builtins", "__sub", "__mul", "__div", "__lessThan", "__findFile", "__nixPath", "throw", "map", "toString"} {
		env.Declare(symbols.Intern(name), len(symbols.names)-1)
	}
	env.Seal()
	return &Parser{Symbols: symbols, Positions: positions}, env
}

func parseOK(t *testing.T, src string) (Expr, *Parser) {
	t.Helper()
	p, env := testParser(t)
	e, err := p.ParseString(src, "/base", env)
	require.NoError(t, err, "parsing %s", src)
	return e, p
}

func parseFail(t *testing.T, src string) error {
	t.Helper()
	p, env := testParser(t)
	_, err := p.ParseString(src, "/base", env)
	require.Error(t, err, "parsing %s should fail", src)
	return err
}

func TestParseLiterals(t *testing.T) {
	e, _ := parseOK(t, "42")
	require.IsType(t, &ExprInt{}, e)
	assert.Equal(t, int64(42), e.(*ExprInt).Value)

	e2, _ := parseOK(t, "4.25")
	require.IsType(t, &ExprFloat{}, e2)
	assert.Equal(t, 4.25, e2.(*ExprFloat).Value)

	e3, _ := parseOK(t, `"hello\nworld"`)
	require.IsType(t, &ExprString{}, e3)
	assert.Equal(t, "hello\nworld", e3.(*ExprString).Value)

	e4, _ := parseOK(t, "1.5e3")
	require.IsType(t, &ExprFloat{}, e4)
	assert.Equal(t, 1500.0, e4.(*ExprFloat).Value)
}

func TestParsePaths(t *testing.T) {
	e, _ := parseOK(t, "./foo/bar")
	require.IsType(t, &ExprPath{}, e)
	assert.Equal(t, "/base/foo/bar", e.(*ExprPath).Value)

	e2, _ := parseOK(t, "/abs/path")
	require.IsType(t, &ExprPath{}, e2)
	assert.Equal(t, "/abs/path", e2.(*ExprPath).Value)
}

func TestParseSearchPath(t *testing.T) {
	e, p := parseOK(t, "<nixpkgs/lib>")
	call, ok := e.(*ExprCall)
	require.True(t, ok)
	fun, ok := call.Fun.(*ExprVar)
	require.True(t, ok)
	assert.Equal(t, "__findFile", p.Symbols.Name(fun.Name))
	require.Len(t, call.Args, 2)
	lit, ok := call.Args[1].(*ExprString)
	require.True(t, ok)
	assert.Equal(t, "nixpkgs/lib", lit.Value)
}

func TestParseOperatorPrecedence(t *testing.T) {
	// 1 + 2 * 3 parses as 1 + (2 * 3): the + chain has two parts, the
	// second being the __mul call.
	e, p := parseOK(t, "1 + 2 * 3")
	cs, ok := e.(*ExprConcatStrings)
	require.True(t, ok)
	require.Len(t, cs.Parts, 2)
	mul, ok := cs.Parts[1].E.(*ExprCall)
	require.True(t, ok)
	assert.Equal(t, "__mul", p.Symbols.Name(mul.Fun.(*ExprVar).Name))

	// Comparison desugars to __lessThan with negation for >=.
	e2, _ := parseOK(t, "1 >= 2")
	require.IsType(t, &ExprOpNot{}, e2)

	// // is right associative.
	e3, _ := parseOK(t, "{ } // { } // { }")
	upd := e3.(*ExprOpUpdate)
	require.IsType(t, &ExprAttrs{}, upd.E1)
	require.IsType(t, &ExprOpUpdate{}, upd.E2)

	// -> is right associative, || binds tighter.
	e4, _ := parseOK(t, "true -> false || true -> false")
	impl := e4.(*ExprOpImpl)
	require.IsType(t, &ExprOpImpl{}, impl.E2)
}

func TestParseApplicationChain(t *testing.T) {
	e, _ := parseOK(t, "map toString [ 1 2 ]")
	call, ok := e.(*ExprCall)
	require.True(t, ok)
	require.Len(t, call.Args, 2)
	require.IsType(t, &ExprVar{}, call.Fun)
	require.IsType(t, &ExprList{}, call.Args[1])
}

func TestParseLambdas(t *testing.T) {
	e, p := parseOK(t, "x: x")
	lam := e.(*ExprLambda)
	assert.Equal(t, "x", p.Symbols.Name(lam.Arg))
	assert.False(t, lam.HasFormals())

	e2, _ := parseOK(t, "{ a, b ? 1, ... }: a")
	lam2 := e2.(*ExprLambda)
	require.True(t, lam2.HasFormals())
	assert.True(t, lam2.Formals.Ellipsis)
	require.Len(t, lam2.Formals.Formals, 2)

	e3, p3 := parseOK(t, "args @ { a ? 0 }: args")
	lam3 := e3.(*ExprLambda)
	assert.Equal(t, "args", p3.Symbols.Name(lam3.Arg))
	require.True(t, lam3.HasFormals())

	e4, p4 := parseOK(t, "{ a ? 0 } @ args: args")
	lam4 := e4.(*ExprLambda)
	assert.Equal(t, "args", p4.Symbols.Name(lam4.Arg))

	err := parseFail(t, "{ a, a }: a")
	assert.Contains(t, err.Error(), "duplicate formal")
}

func TestParseAttrsetShapes(t *testing.T) {
	e, _ := parseOK(t, "{ }")
	attrs := e.(*ExprAttrs)
	assert.Empty(t, attrs.Attrs)
	assert.False(t, attrs.Recursive)

	e2, _ := parseOK(t, "rec { a = 1; b = a; }")
	attrs2 := e2.(*ExprAttrs)
	assert.True(t, attrs2.Recursive)
	assert.Len(t, attrs2.Attrs, 2)

	// {} at function position is a formals lambda.
	e3, _ := parseOK(t, "{}: 1")
	require.IsType(t, &ExprLambda{}, e3)
}

func TestParseAttrPathDesugar(t *testing.T) {
	e, p := parseOK(t, "{ a.b = 1; a.c = 2; }")
	attrs := e.(*ExprAttrs)
	require.Len(t, attrs.Attrs, 1)
	assert.Equal(t, "a", p.Symbols.Name(attrs.Attrs[0].Name))
	nested := attrs.Attrs[0].E.(*ExprAttrs)
	require.Len(t, nested.Attrs, 2)
}

func TestParseDuplicateAttr(t *testing.T) {
	err := parseFail(t, "{ a = 1; a = 2; }")
	assert.Contains(t, err.Error(), "already defined")

	err2 := parseFail(t, "{ a.b = 1; a = 2; }")
	assert.Contains(t, err2.Error(), "already defined")
}

func TestParseInherit(t *testing.T) {
	e, _ := parseOK(t, "let x = 1; s = { y = 2; }; in { inherit x; inherit (s) y; }")
	let := e.(*ExprLet)
	body := let.Body.(*ExprAttrs)
	require.Len(t, body.Attrs, 2)
	require.Len(t, body.InheritFrom, 1)

	var kinds []AttrDefKind
	for _, a := range body.Attrs {
		kinds = append(kinds, a.Kind)
	}
	assert.Contains(t, kinds, AttrInherited)
	assert.Contains(t, kinds, AttrInheritedFrom)
}

func TestParseStringInterpolation(t *testing.T) {
	e, _ := parseOK(t, `"a${toString 1}b"`)
	cs := e.(*ExprConcatStrings)
	assert.True(t, cs.ForceString)
	require.Len(t, cs.Parts, 3)
	require.IsType(t, &ExprString{}, cs.Parts[0].E)
	require.IsType(t, &ExprCall{}, cs.Parts[1].E)
	require.IsType(t, &ExprString{}, cs.Parts[2].E)

	// Escaped dollar is literal.
	e2, _ := parseOK(t, `"a\${b"`)
	require.IsType(t, &ExprString{}, e2)
	assert.Equal(t, "a${b", e2.(*ExprString).Value)
}

func TestParseIndentedString(t *testing.T) {
	e, _ := parseOK(t, "''\n    foo\n    bar\n  ''")
	require.IsType(t, &ExprString{}, e)
	assert.Equal(t, "foo\nbar\n", e.(*ExprString).Value)

	// Two-quote escapes.
	e2, _ := parseOK(t, "''a''$b''")
	require.IsType(t, &ExprString{}, e2)
	assert.Equal(t, "a$b", e2.(*ExprString).Value)
}

func TestParseSelectWithDefault(t *testing.T) {
	e, _ := parseOK(t, "{ a = 1; }.b or 2")
	sel := e.(*ExprSelect)
	require.NotNil(t, sel.Default)
	require.Len(t, sel.Path, 1)
}

func TestBindUndefinedVariable(t *testing.T) {
	err := parseFail(t, "let x = 1; in y")
	var uv *UndefinedVarError
	require.ErrorAs(t, err, &uv)
	assert.Equal(t, "y", uv.Name)

	// A with scope defers the lookup to runtime.
	_, _ = parseOK(t, "with { }; y")
}

func TestBindLevels(t *testing.T) {
	e, _ := parseOK(t, "x: y: x")
	inner := e.(*ExprLambda).Body.(*ExprLambda)
	v := inner.Body.(*ExprVar)
	assert.Equal(t, 1, v.Level)
	assert.Equal(t, 0, v.Displ)
	assert.Nil(t, v.FromWith)

	e2, _ := parseOK(t, "with { }; with { }; a")
	outer := e2.(*ExprWith)
	innerWith := outer.Body.(*ExprWith)
	va := innerWith.Body.(*ExprVar)
	require.NotNil(t, va.FromWith)
	assert.Same(t, innerWith, va.FromWith)
	assert.Equal(t, 0, va.Level)
	assert.Equal(t, 1, innerWith.PrevWith)
	assert.Same(t, outer, innerWith.ParentWith)
}

func TestParseComments(t *testing.T) {
	e, _ := parseOK(t, "# line comment\n/* block\ncomment */ 7")
	require.IsType(t, &ExprInt{}, e)
	assert.Equal(t, int64(7), e.(*ExprInt).Value)
}

func TestParseErrorsHavePositions(t *testing.T) {
	err := parseFail(t, "let x = ; in x")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.NotZero(t, pe.Pos.Line)
}

func TestShowRoundTrips(t *testing.T) {
	p, env := testParser(t)
	for _, src := range []string{
		"1",
		"[ (1) (2) ]",
		"{ a = 1; }",
		"(x: x)",
		"(if true then 1 else 2)",
	} {
		e, err := p.ParseString(src, "/", env)
		require.NoError(t, err)
		rendered := Show(p.Symbols, e)
		e2, err := p.ParseString(rendered, "/", env)
		require.NoError(t, err, "re-parsing rendered form %q", rendered)
		assert.Equal(t, Show(p.Symbols, e2), rendered)
	}
}
