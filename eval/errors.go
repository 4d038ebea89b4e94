package eval

import (
	"fmt"
	"strings"

	"github.com/nixel-lang/nixel/syntax"
)

// ErrorKind classifies evaluation failures by behaviour.
type ErrorKind uint8

const (
	// KindEval is the catch-all for domain errors: integer overflow,
	// context in a path literal, too many symlinks, and the like.
	KindEval ErrorKind = iota
	// KindType is a wrong value tag for an operation.
	KindType
	// KindAttributeMissing is a failed attribute selection.
	KindAttributeMissing
	// KindUndefinedVariable is an unresolvable name.
	KindUndefinedVariable
	// KindMissingArgument is a formal without a matching attribute or
	// default.
	KindMissingArgument
	// KindUnexpectedArgument is a supplied attribute no formal names.
	KindUnexpectedArgument
	// KindDuplicateAttribute is a dynamic attribute colliding with an
	// existing one.
	KindDuplicateAttribute
	// KindAssertion is a failed assert.
	KindAssertion
	// KindThrown is an explicit throw.
	KindThrown
	// KindAbort is an explicit abort; tryEval does not absorb it.
	KindAbort
	// KindInfiniteRecursion is a black hole observed during forcing.
	KindInfiniteRecursion
	// KindStackOverflow is the call-depth guard tripping.
	KindStackOverflow
	// KindRestrictedPath is a sandbox violation.
	KindRestrictedPath
	// KindInvalidPath references a store path that does not exist.
	KindInvalidPath
	// KindInterrupted is a cooperative cancellation.
	KindInterrupted
)

var kindNames = map[ErrorKind]string{
	KindEval:               "error",
	KindType:               "type error",
	KindAttributeMissing:   "attribute missing",
	KindUndefinedVariable:  "undefined variable",
	KindMissingArgument:    "missing argument",
	KindUnexpectedArgument: "unexpected argument",
	KindDuplicateAttribute: "duplicate attribute",
	KindAssertion:          "assertion failure",
	KindThrown:             "error thrown",
	KindAbort:              "evaluation aborted",
	KindInfiniteRecursion:  "infinite recursion",
	KindStackOverflow:      "stack overflow",
	KindRestrictedPath:     "restricted path",
	KindInvalidPath:        "invalid path",
	KindInterrupted:        "interrupted",
}

func (k ErrorKind) String() string { return kindNames[k] }

// TraceEntry is one frame of an error trace, innermost first.
type TraceEntry struct {
	Pos syntax.Pos
	Msg string
}

// EvalError is the structured diagnostic every user-visible failure
// flows through: kind, primary message, position, ordered trace, and
// optional suggestions.
type EvalError struct {
	Kind        ErrorKind
	Msg         string
	Pos         syntax.Pos
	Trace       []TraceEntry
	Suggestions []string
}

func (e *EvalError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", e.Kind, e.Msg)
	if e.Pos.Line != 0 || e.Pos.Origin.Path != "" {
		fmt.Fprintf(&sb, "\n       at %s", e.Pos)
	}
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&sb, "\n       did you mean %s?", strings.Join(e.Suggestions, ", "))
	}
	for _, t := range e.Trace {
		sb.WriteString("\n       … ")
		sb.WriteString(t.Msg)
		if t.Pos.Line != 0 {
			fmt.Fprintf(&sb, " at %s", t.Pos)
		}
	}
	return sb.String()
}

// AtPos pins the primary position if none is set yet.
func (e *EvalError) AtPos(p syntax.Pos) *EvalError {
	if e.Pos.Line == 0 && e.Pos.Origin.Path == "" {
		e.Pos = p
	}
	return e
}

// WithSuggestions attaches a best-match list.
func (e *EvalError) WithSuggestions(s []string) *EvalError {
	e.Suggestions = s
	return e
}

// Errorf builds an EvalError pinned at pos; builtin implementations
// use it to raise structured failures.
func (st *EvalState) Errorf(kind ErrorKind, pos syntax.PosIdx, format string, args ...any) *EvalError {
	return st.errorf(kind, pos, format, args...)
}

// AddErrorTrace appends a trace frame to an EvalError, passing other
// errors through untouched.
func (st *EvalState) AddErrorTrace(err error, pos syntax.PosIdx, format string, args ...any) error {
	return st.addErrorTrace(err, pos, format, args...)
}

// errorf builds an EvalError pinned at pos.
func (st *EvalState) errorf(kind ErrorKind, pos syntax.PosIdx, format string, args ...any) *EvalError {
	return &EvalError{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
		Pos:  st.Positions.Resolve(pos),
	}
}

// addErrorTrace appends a trace entry to err if it is an EvalError;
// other errors pass through unchanged so external failures keep their
// identity.
func (st *EvalState) addErrorTrace(err error, pos syntax.PosIdx, format string, args ...any) error {
	if ee, ok := err.(*EvalError); ok {
		ee.Trace = append(ee.Trace, TraceEntry{
			Pos: st.Positions.Resolve(pos),
			Msg: fmt.Sprintf(format, args...),
		})
	}
	return err
}

// IsKind reports whether err is an EvalError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	ee, ok := err.(*EvalError)
	return ok && ee.Kind == kind
}
