package eval

import "github.com/nixel-lang/nixel/syntax"

// maxPrimOpArity bounds primop argument vectors.
const maxPrimOpArity = 8

// PrimOpFn is the native function behind a builtin. It receives the
// call position, exactly arity argument cells (possibly unforced), and
// the output cell to fill.
type PrimOpFn func(st *EvalState, pos syntax.PosIdx, args []*Value, out *Value) error

// PrimOp describes one builtin function or constant.
type PrimOp struct {
	// Name is the environment name; a leading "__" also installs the
	// short name inside the builtins set.
	Name string
	// Arity is the argument count. Zero-arity primops are installed as
	// a unary primop applied to a sentinel, giving them thunk
	// semantics.
	Arity int
	// Args names the arguments for documentation.
	Args []string
	// Doc is the optional documentation string.
	Doc string
	// ImpureOnly primops are omitted from the environment in pure
	// evaluation mode.
	ImpureOnly bool
	Fn         PrimOpFn
}

var primOpRegistry []*PrimOp

// RegisterPrimOp adds a primop to the startup registry. Builtin
// packages call this from init; the registry is read once when an
// EvalState is constructed. Later registrations are not rejected; they
// reach only evaluators constructed afterwards.
func RegisterPrimOp(p *PrimOp) {
	if p.Arity > maxPrimOpArity {
		panic("primop arity exceeds maximum: " + p.Name)
	}
	primOpRegistry = append(primOpRegistry, p)
}

// RegisteredPrimOps returns the registry contents for diagnostics.
func RegisteredPrimOps() []*PrimOp {
	return primOpRegistry
}
