package eval

import (
	"encoding/json"

	"github.com/nixel-lang/nixel/syntax"
)

// Stats counts evaluator work. Counters are updated without
// synchronisation; each EvalState owns its own set and instances never
// share them.
type Stats struct {
	NrThunks        int64 `json:"nrThunks"`
	NrAvoided       int64 `json:"nrAvoided"`
	NrEnvs          int64 `json:"nrEnvs"`
	NrValuesInEnvs  int64 `json:"nrValuesInEnvs"`
	NrListElems     int64 `json:"nrListElems"`
	NrListConcats   int64 `json:"nrListConcats"`
	NrOpUpdates     int64 `json:"nrOpUpdates"`
	NrOpUpdateCopies int64 `json:"nrOpUpdateValuesCopied"`
	NrLookups       int64 `json:"nrLookups"`
	NrPrimOpCalls   int64 `json:"nrPrimOpCalls"`
	NrFunctionCalls int64 `json:"nrFunctionCalls"`
	NrAttrsets      int64 `json:"nrAttrsets"`
}

// FunctionCount is one per-function invocation counter, reported when
// call counting is enabled.
type FunctionCount struct {
	Name  string     `json:"name"`
	Pos   syntax.Pos `json:"-"`
	File  string     `json:"file,omitempty"`
	Line  uint32     `json:"line,omitempty"`
	Count int64      `json:"count"`
}

// StatsSnapshot is the host-visible statistics report.
type StatsSnapshot struct {
	Stats
	Symbols   int             `json:"symbols"`
	Positions int             `json:"positions"`
	PrimOps   map[string]int64 `json:"primops,omitempty"`
	Functions []FunctionCount `json:"functions,omitempty"`
}

// Statistics returns a snapshot of the evaluator's counters. Per-call
// maps are included only when countCalls was configured.
func (st *EvalState) Statistics() StatsSnapshot {
	snap := StatsSnapshot{
		Stats:     st.stats,
		Symbols:   st.Symbols.Size(),
		Positions: st.Positions.Size(),
	}
	if st.cfg.CountCalls {
		snap.PrimOps = make(map[string]int64, len(st.primOpCalls))
		for name, n := range st.primOpCalls {
			snap.PrimOps[name] = n
		}
		for fun, n := range st.functionCalls {
			fc := FunctionCount{Count: n}
			if fun.Name != 0 {
				fc.Name = st.Symbols.Name(fun.Name)
			}
			pos := st.Positions.Resolve(fun.Pos())
			fc.Pos = pos
			if pos.Origin.Kind == syntax.OriginPath {
				fc.File = pos.Origin.Path
				fc.Line = pos.Line
			}
			snap.Functions = append(snap.Functions, fc)
		}
	}
	return snap
}

// DumpStatistics renders the snapshot as indented JSON.
func (st *EvalState) DumpStatistics() ([]byte, error) {
	return json.MarshalIndent(st.Statistics(), "", "  ")
}
