package syntax

// tokenKind enumerates lexer tokens. String contents arrive as TStrLit
// chunks between TStrStart/TStrEnd (or the indented-string pair), with
// TInterpStart/TInterpEnd bracketing ${...} holes.
type tokenKind uint8

const (
	tEOF tokenKind = iota
	tID
	tInt
	tFloat
	tPath
	tSearchPath // <nixpkgs/lib>

	tStrStart
	tStrLit
	tStrEnd
	tIndStrStart
	tIndStrLit
	tIndStrEnd
	tInterpStart
	tInterpEnd

	tKwIf
	tKwThen
	tKwElse
	tKwAssert
	tKwWith
	tKwLet
	tKwIn
	tKwRec
	tKwInherit
	tKwOr

	tSemi
	tColon
	tComma
	tDot
	tEllipsis
	tAt
	tLParen
	tRParen
	tLBracket
	tRBracket
	tLBrace
	tRBrace
	tAssign
	tQuestion

	tEq
	tNEq
	tLeq
	tGeq
	tLt
	tGt
	tAnd
	tOr
	tImpl
	tNot
	tPlus
	tMinus
	tStar
	tSlash
	tConcat
	tUpdate
)

var tokenNames = map[tokenKind]string{
	tEOF:         "end of file",
	tID:          "identifier",
	tInt:         "integer",
	tFloat:       "float",
	tPath:        "path",
	tSearchPath:  "search path",
	tStrStart:    `'"'`,
	tStrLit:      "string chunk",
	tStrEnd:      `'"'`,
	tIndStrStart: "''",
	tIndStrLit:   "string chunk",
	tIndStrEnd:   "''",
	tInterpStart: "'${'",
	tInterpEnd:   "'}'",
	tKwIf:        "'if'",
	tKwThen:      "'then'",
	tKwElse:      "'else'",
	tKwAssert:    "'assert'",
	tKwWith:      "'with'",
	tKwLet:       "'let'",
	tKwIn:        "'in'",
	tKwRec:       "'rec'",
	tKwInherit:   "'inherit'",
	tKwOr:        "'or'",
	tSemi:        "';'",
	tColon:       "':'",
	tComma:       "','",
	tDot:         "'.'",
	tEllipsis:    "'...'",
	tAt:          "'@'",
	tLParen:      "'('",
	tRParen:      "')'",
	tLBracket:    "'['",
	tRBracket:    "']'",
	tLBrace:      "'{'",
	tRBrace:      "'}'",
	tAssign:      "'='",
	tQuestion:    "'?'",
	tEq:          "'=='",
	tNEq:         "'!='",
	tLeq:         "'<='",
	tGeq:         "'>='",
	tLt:          "'<'",
	tGt:          "'>'",
	tAnd:         "'&&'",
	tOr:          "'||'",
	tImpl:        "'->'",
	tNot:         "'!'",
	tPlus:        "'+'",
	tMinus:       "'-'",
	tStar:        "'*'",
	tSlash:       "'/'",
	tConcat:      "'++'",
	tUpdate:      "'//'",
}

func (k tokenKind) String() string { return tokenNames[k] }

type token struct {
	kind  tokenKind
	text  string // identifier, path or string-chunk payload
	ival  int64
	fval  float64
	pos   PosIdx
	line  uint32
	col   uint32
}

var keywords = map[string]tokenKind{
	"if":      tKwIf,
	"then":    tKwThen,
	"else":    tKwElse,
	"assert":  tKwAssert,
	"with":    tKwWith,
	"let":     tKwLet,
	"in":      tKwIn,
	"rec":     tKwRec,
	"inherit": tKwInherit,
	"or":      tKwOr,
}
