package eval

import (
	"fmt"
	"time"

	"github.com/nixel-lang/nixel/fetcher"
	"github.com/nixel-lang/nixel/store"
	"github.com/nixel-lang/nixel/syntax"
)

// DefaultMaxCallDepth guards the host stack when no limit is given.
const DefaultMaxCallDepth = 10000

// SearchPathElem is one prefix=value entry of the module search path.
type SearchPathElem struct {
	Prefix string
	Value  string
}

// Config carries the evaluator construction toggles.
type Config struct {
	PureEval           bool
	RestrictEval       bool
	AllowedPaths       []string
	AllowedURIs        []string
	MaxCallDepth       int
	TraceFunctionCalls bool
	CountCalls         bool
	SearchPath         []SearchPathElem
	// DebugRepl, when set, is called on traced stops and errors.
	DebugRepl DebugRepl
	// Interrupt is polled inside potentially unbounded operations;
	// returning true cancels evaluation cooperatively.
	Interrupt func() bool
	// CurrentSystem overrides the builtins.currentSystem string.
	CurrentSystem string
	// Warn receives non-fatal diagnostics (search-path skips). Nil
	// discards them.
	Warn func(msg string)
}

// EvalState is one single-threaded evaluator instance. It owns the
// symbol and position tables, the caches, the base environment, and
// all statistics; none of these are shared between instances.
type EvalState struct {
	Symbols   *syntax.SymbolTable
	Positions *syntax.PosTable

	cfg    Config
	store  store.Store
	fetch  fetcher.Fetcher
	parser *syntax.Parser

	baseEnv       *Env
	staticBaseEnv *syntax.StaticEnv
	baseEnvDispl  int
	builtinsValue *Value

	// Interned well-known symbols.
	sOutPath    syntax.Symbol
	sDrvPath    syntax.Symbol
	sType       syntax.Symbol
	sName       syntax.Symbol
	sValue      syntax.Symbol
	sSuccess    syntax.Symbol
	sFile       syntax.Symbol
	sLine       syntax.Symbol
	sColumn     syntax.Symbol
	sFunctor    syntax.Symbol
	sToString   syntax.Symbol
	sOverrides  syntax.Symbol
	sKey        syntax.Symbol
	sStartSet   syntax.Symbol
	sOperator   syntax.Symbol

	fileParseCache     map[string]syntax.Expr
	fileEvalCache      map[string]*Value
	searchPathResolved map[string]*string // nil entry: resolution failed
	resolvedPaths      map[string]string  // sandbox symlink cache
	allowedPaths       []string           // nil: unrestricted
	srcToStore         map[string]string

	callDepth   int
	tryLevel    int
	debugTraces []DebugTrace
	debugStop   bool
	debugQuit   bool
	inDebugger  bool

	stats         Stats
	primOpCalls   map[string]int64
	functionCalls map[*syntax.ExprLambda]int64

	startTime time.Time
}

// New constructs an evaluator over the given store and fetcher. The
// primop registry is read here, once: primops registered after this
// call do not appear in the returned evaluator.
func New(cfg Config, st store.Store, f fetcher.Fetcher) *EvalState {
	if cfg.MaxCallDepth == 0 {
		cfg.MaxCallDepth = DefaultMaxCallDepth
	}
	if cfg.CurrentSystem == "" {
		cfg.CurrentSystem = defaultSystem()
	}
	if f == nil {
		f = fetcher.Disabled{}
	}

	e := &EvalState{
		Symbols:            syntax.NewSymbolTable(),
		Positions:          syntax.NewPosTable(),
		cfg:                cfg,
		store:              st,
		fetch:              f,
		fileParseCache:     make(map[string]syntax.Expr),
		fileEvalCache:      make(map[string]*Value),
		searchPathResolved: make(map[string]*string),
		resolvedPaths:      make(map[string]string),
		srcToStore:         make(map[string]string),
		primOpCalls:        make(map[string]int64),
		functionCalls:      make(map[*syntax.ExprLambda]int64),
		startTime:          time.Now(),
	}
	e.parser = &syntax.Parser{Symbols: e.Symbols, Positions: e.Positions}

	e.sOutPath = e.Symbols.Intern("outPath")
	e.sDrvPath = e.Symbols.Intern("drvPath")
	e.sType = e.Symbols.Intern("type")
	e.sName = e.Symbols.Intern("name")
	e.sValue = e.Symbols.Intern("value")
	e.sSuccess = e.Symbols.Intern("success")
	e.sFile = e.Symbols.Intern("file")
	e.sLine = e.Symbols.Intern("line")
	e.sColumn = e.Symbols.Intern("column")
	e.sFunctor = e.Symbols.Intern("__functor")
	e.sToString = e.Symbols.Intern("__toString")
	e.sOverrides = e.Symbols.Intern("__overrides")
	e.sKey = e.Symbols.Intern("key")
	e.sStartSet = e.Symbols.Intern("startSet")
	e.sOperator = e.Symbols.Intern("operator")

	// In restricted or pure mode only the resolvable search path
	// entries are readable.
	if cfg.RestrictEval || cfg.PureEval {
		e.allowedPaths = []string{}
		e.allowedPaths = append(e.allowedPaths, cfg.AllowedPaths...)
		for _, elem := range cfg.SearchPath {
			if resolved, ok := e.resolveSearchPathValue(elem.Value); ok {
				e.allowPath(resolved)
			}
		}
	}

	e.createBaseEnv()
	return e
}

// Store returns the content-addressed store the evaluator talks to.
func (st *EvalState) Store() store.Store { return st.store }

// Config returns the construction-time configuration.
func (st *EvalState) Config() Config { return st.cfg }

// StaticBaseEnv exposes the root static environment for parsing host
// expressions against the builtin scope.
func (st *EvalState) StaticBaseEnv() *syntax.StaticEnv { return st.staticBaseEnv }

// BaseEnv exposes the root dynamic environment.
func (st *EvalState) BaseEnv() *Env { return st.baseEnv }

// createBaseEnv builds the root environment: the builtins set at slot
// zero, every constant, and every registered primop, each installed
// under its canonical name and, for "__" names, the short alias inside
// builtins.
func (st *EvalState) createBaseEnv() {
	size := len(primOpRegistry) + 32
	st.baseEnv = st.allocEnv(size, nil)
	st.staticBaseEnv = syntax.NewStaticEnv(nil, nil, size)

	builtins := new(Value)
	builtins.MkAttrs(NewBindings(len(primOpRegistry) + 16))
	st.builtinsValue = builtins
	st.baseEnv.Values[0] = builtins
	st.baseEnvDispl = 1

	vTrue := new(Value)
	vTrue.MkBool(true)
	st.addConstant("true", vTrue)
	vFalse := new(Value)
	vFalse.MkBool(false)
	st.addConstant("false", vFalse)
	vNull := new(Value)
	vNull.MkNull()
	st.addConstant("null", vNull)

	vSystem := new(Value)
	vSystem.MkString(st.cfg.CurrentSystem, nil)
	st.addConstant("__currentSystem", vSystem)

	vLangVersion := new(Value)
	vLangVersion.MkInt(6)
	st.addConstant("__langVersion", vLangVersion)

	vVersion := new(Value)
	vVersion.MkString(Version, nil)
	st.addConstant("__nixVersion", vVersion)

	st.addConstant("__nixPath", st.mkSearchPathValue())

	for _, p := range primOpRegistry {
		if p.ImpureOnly && st.cfg.PureEval {
			continue
		}
		st.addPrimOp(p)
	}

	st.addConstant("builtins", builtins)
	builtins.attrs.Sort()
	st.staticBaseEnv.Seal()
}

// addConstant installs a value under name in the base environment and,
// stripped of a "__" prefix, inside the builtins set.
func (st *EvalState) addConstant(name string, v *Value) {
	short := name
	if len(name) > 2 && name[:2] == "__" {
		short = name[2:]
	}
	st.staticBaseEnv.Declare(st.Symbols.Intern(name), st.baseEnvDispl)
	st.baseEnv.Values[st.baseEnvDispl] = v
	st.baseEnvDispl++
	st.builtinsValue.attrs.Push(Attr{Name: st.Symbols.Intern(short), Value: v})
}

// addPrimOp installs a primop. The stored descriptor carries the short
// name, without the "__" prefix, which is what diagnostics show.
// Zero-arity primops become the application of a unary primop to
// itself, which gives the constant thunk semantics.
func (st *EvalState) addPrimOp(p *PrimOp) {
	envName := p.Name
	stored := *p
	if len(stored.Name) > 2 && stored.Name[:2] == "__" {
		stored.Name = stored.Name[2:]
	}
	if stored.Arity == 0 {
		stored.Arity = 1
		vPrimOp := new(Value)
		vPrimOp.MkPrimOp(&stored)
		vApp := new(Value)
		vApp.MkApp(vPrimOp, vPrimOp)
		st.addConstant(envName, vApp)
		return
	}
	v := new(Value)
	v.MkPrimOp(&stored)
	st.addConstant(envName, v)
}

// GetBuiltin returns the named builtin from the base environment.
func (st *EvalState) GetBuiltin(name string) (*Value, error) {
	sym, ok := st.Symbols.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown builtin '%s'", name)
	}
	a := st.builtinsValue.attrs.Get(sym)
	if a == nil {
		return nil, fmt.Errorf("unknown builtin '%s'", name)
	}
	return a.Value, nil
}

// CheckInterrupt polls the cooperative cancellation hook; builtins
// with unbounded loops call it per iteration.
func (st *EvalState) CheckInterrupt(pos syntax.PosIdx) error {
	return st.checkInterrupt(pos)
}

// checkInterrupt polls the cooperative cancellation hook.
func (st *EvalState) checkInterrupt(pos syntax.PosIdx) error {
	if st.cfg.Interrupt != nil && st.cfg.Interrupt() {
		return st.errorf(KindInterrupted, pos, "evaluation interrupted")
	}
	if st.debugQuit {
		return st.errorf(KindInterrupted, pos, "evaluation stopped from debugger")
	}
	return nil
}

// Warn emits a non-fatal diagnostic.
func (st *EvalState) Warn(format string, args ...any) {
	if st.cfg.Warn != nil {
		st.cfg.Warn(fmt.Sprintf(format, args...))
	}
}

// Parser returns the parser bound to this evaluator's tables.
func (st *EvalState) Parser() *syntax.Parser { return st.parser }

// ParseString parses src against the builtin scope, anchoring relative
// paths at basePath.
func (st *EvalState) ParseString(src, basePath string) (syntax.Expr, error) {
	return st.parser.ParseString(src, basePath, st.staticBaseEnv)
}

// ParseStdin parses an expression from standard input.
func (st *EvalState) ParseStdin() (syntax.Expr, error) {
	return st.parser.ParseStdin(st.staticBaseEnv)
}
