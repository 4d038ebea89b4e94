package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string) []token {
	t.Helper()
	positions := NewPosTable()
	origin := positions.AddOrigin(Origin{Kind: OriginString, Source: src})
	lx := newLexer(src, positions, origin)
	var toks []token
	for {
		tok, err := lx.next()
		require.NoError(t, err, "lexing %q", src)
		if tok.kind == tEOF {
			return toks
		}
		toks = append(toks, tok)
		require.Less(t, len(toks), 1000, "runaway lexer")
	}
}

func kinds(toks []token) []tokenKind {
	out := make([]tokenKind, len(toks))
	for i, tok := range toks {
		out[i] = tok.kind
	}
	return out
}

func TestLexOperators(t *testing.T) {
	toks := lexAll(t, "a == b != c && d || e -> f // g ++ h")
	assert.Equal(t, []tokenKind{
		tID, tEq, tID, tNEq, tID, tAnd, tID, tOr, tID, tImpl, tID,
		tUpdate, tID, tConcat, tID,
	}, kinds(toks))
}

func TestLexNumbers(t *testing.T) {
	toks := lexAll(t, "1 23 4.5 1e3 2.5e-2")
	require.Len(t, toks, 5)
	assert.Equal(t, tInt, toks[0].kind)
	assert.Equal(t, int64(23), toks[1].ival)
	assert.Equal(t, tFloat, toks[2].kind)
	assert.Equal(t, 4.5, toks[2].fval)
	assert.Equal(t, tFloat, toks[3].kind)
	assert.Equal(t, tFloat, toks[4].kind)
}

func TestLexIntegerOverflowIsAnError(t *testing.T) {
	positions := NewPosTable()
	origin := positions.AddOrigin(Origin{Kind: OriginString})
	lx := newLexer("99999999999999999999", positions, origin)
	_, err := lx.next()
	require.Error(t, err)
}

func TestLexPathsVersusDivision(t *testing.T) {
	toks := lexAll(t, "./foo/bar /abs a/b ~/home/x")
	require.Len(t, toks, 4)
	for _, tok := range toks {
		assert.Equal(t, tPath, tok.kind)
	}
	assert.Equal(t, "./foo/bar", toks[0].text)
	assert.Equal(t, "~/home/x", toks[3].text)

	toks2 := lexAll(t, "a / b")
	assert.Equal(t, []tokenKind{tID, tSlash, tID}, kinds(toks2))

	toks3 := lexAll(t, "a // b")
	assert.Equal(t, []tokenKind{tID, tUpdate, tID}, kinds(toks3))
}

func TestLexSearchPath(t *testing.T) {
	toks := lexAll(t, "<nixpkgs/lib> a < b")
	assert.Equal(t, []tokenKind{tSearchPath, tID, tLt, tID}, kinds(toks))
	assert.Equal(t, "nixpkgs/lib", toks[0].text)
}

func TestLexStringModes(t *testing.T) {
	toks := lexAll(t, `"a${x}b"`)
	assert.Equal(t, []tokenKind{
		tStrStart, tStrLit, tInterpStart, tID, tInterpEnd, tStrLit, tStrEnd,
	}, kinds(toks))
	assert.Equal(t, "a", toks[1].text)
	assert.Equal(t, "b", toks[5].text)
}

func TestLexNestedInterpolation(t *testing.T) {
	toks := lexAll(t, `"${ { a = "${y}"; }.a }"`)
	// The inner string's interpolation must not close the outer one.
	var depth int
	for _, tok := range toks {
		switch tok.kind {
		case tInterpStart:
			depth++
		case tInterpEnd:
			depth--
		}
		require.GreaterOrEqual(t, depth, 0)
	}
	assert.Zero(t, depth)
}

func TestLexStringEscapes(t *testing.T) {
	toks := lexAll(t, `"a\n\t\\\"\$b"`)
	require.Equal(t, []tokenKind{tStrStart, tStrLit, tStrEnd}, kinds(toks))
	assert.Equal(t, "a\n\t\\\"$b", toks[1].text)
}

func TestLexBracesInsideInterpolation(t *testing.T) {
	toks := lexAll(t, `"${ { } }"`)
	assert.Equal(t, []tokenKind{tStrStart, tInterpStart, tLBrace, tRBrace, tInterpEnd, tStrEnd}, kinds(toks))
}

func TestLexKeywords(t *testing.T) {
	toks := lexAll(t, "if then else assert with let in rec inherit or ifx")
	assert.Equal(t, []tokenKind{
		tKwIf, tKwThen, tKwElse, tKwAssert, tKwWith, tKwLet, tKwIn,
		tKwRec, tKwInherit, tKwOr, tID,
	}, kinds(toks))
}

func TestLexComments(t *testing.T) {
	toks := lexAll(t, "1 # comment\n2 /* multi\nline */ 3")
	assert.Equal(t, []tokenKind{tInt, tInt, tInt}, kinds(toks))
}

func TestLexPositions(t *testing.T) {
	toks := lexAll(t, "a\n  b")
	require.Len(t, toks, 2)
	assert.Equal(t, uint32(1), toks[0].line)
	assert.Equal(t, uint32(1), toks[0].col)
	assert.Equal(t, uint32(2), toks[1].line)
	assert.Equal(t, uint32(3), toks[1].col)
}

func TestLexUnterminatedString(t *testing.T) {
	positions := NewPosTable()
	origin := positions.AddOrigin(Origin{Kind: OriginString})
	lx := newLexer(`"abc`, positions, origin)
	_, err := lx.next() // tStrStart
	require.NoError(t, err)
	_, err = lx.next() // the chunk runs to EOF
	if err == nil {
		_, err = lx.next()
	}
	require.Error(t, err)
}
