package eval

import "github.com/nixel-lang/nixel/syntax"

// DebugTrace is one frame of evaluation context, pushed at user-visible
// steps (file load, attribute selection, function call, let) while
// debug mode is active, and at the reduced set of points needed for
// error traces otherwise.
type DebugTrace struct {
	Pos     syntax.Pos
	Expr    syntax.Expr
	Env     *Env
	Hint    string
	IsError bool
}

// ReplExit tells the evaluator how to continue after a debug callback.
type ReplExit uint8

const (
	// ReplContinue resumes evaluation.
	ReplContinue ReplExit = iota
	// ReplQuitAll aborts the whole evaluation.
	ReplQuitAll
)

// DebugRepl is the callback invoked on traced stops and errors when
// debugging is enabled.
type DebugRepl func(st *EvalState, trace []DebugTrace) ReplExit

// pushDebugTrace pushes a frame and returns a pop function. Every push
// is paired with a deferred pop so frames unwind on all exits.
func (st *EvalState) pushDebugTrace(t DebugTrace) func() {
	st.debugTraces = append(st.debugTraces, t)
	if st.debugStop && st.cfg.DebugRepl != nil {
		st.runDebugRepl(nil, t)
	}
	return func() {
		st.debugTraces = st.debugTraces[:len(st.debugTraces)-1]
	}
}

// DebugTraces returns the current stack, outermost first.
func (st *EvalState) DebugTraces() []DebugTrace {
	return st.debugTraces
}

func (st *EvalState) runDebugRepl(err *EvalError, t DebugTrace) {
	if st.cfg.DebugRepl == nil || st.inDebugger {
		return
	}
	st.inDebugger = true
	defer func() { st.inDebugger = false }()

	frames := st.debugTraces
	if err != nil {
		frames = append(frames, DebugTrace{Pos: err.Pos, Hint: err.Msg, IsError: true})
	}
	if st.cfg.DebugRepl(st, frames) == ReplQuitAll {
		st.debugQuit = true
	}
}
