package eval

import (
	"sort"

	"github.com/nixel-lang/nixel/syntax"
)

// Attr is one (name, value, position) triple inside a Bindings.
type Attr struct {
	Name  syntax.Symbol
	Value *Value
	Pos   syntax.PosIdx
}

// Bindings is the sorted attribute container behind every attribute
// set. It has two phases: building (Push in any order) and sealed
// (after Sort or an all-sorted Push sequence); lookups require the
// sealed phase.
type Bindings struct {
	attrs []Attr
	pos   syntax.PosIdx // position of the defining attrset literal
}

// NewBindings allocates a container with the given capacity.
func NewBindings(capacity int) *Bindings {
	return &Bindings{attrs: make([]Attr, 0, capacity)}
}

var emptyBindings = &Bindings{}

// EmptyBindings returns the shared empty container.
func EmptyBindings() *Bindings { return emptyBindings }

// Push appends an attribute. Callers either push in ascending symbol
// order or call Sort before the first lookup.
func (b *Bindings) Push(a Attr) { b.attrs = append(b.attrs, a) }

// Sort seals the container by sorting on symbol.
func (b *Bindings) Sort() {
	sort.Slice(b.attrs, func(i, j int) bool { return b.attrs[i].Name < b.attrs[j].Name })
}

// Get finds the attribute named sym by binary search.
func (b *Bindings) Get(sym syntax.Symbol) *Attr {
	lo, hi := 0, len(b.attrs)
	for lo < hi {
		mid := (lo + hi) / 2
		if b.attrs[mid].Name < sym {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(b.attrs) && b.attrs[lo].Name == sym {
		return &b.attrs[lo]
	}
	return nil
}

// Size returns the number of attributes.
func (b *Bindings) Size() int { return len(b.attrs) }

// Attrs exposes the underlying slice in symbol order; callers must not
// reorder it.
func (b *Bindings) Attrs() []Attr { return b.attrs }

// Set replaces the attribute at index i, for whole-attribute overlays.
func (b *Bindings) Set(i int, a Attr) { b.attrs[i] = a }

// Names returns all attribute names as strings, for diagnostics.
func (b *Bindings) Names(st *syntax.SymbolTable) []string {
	out := make([]string, 0, len(b.attrs))
	for _, a := range b.attrs {
		out = append(out, st.Name(a.Name))
	}
	return out
}
