package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixel-lang/nixel/syntax"
)

func TestBindingsSortAndGet(t *testing.T) {
	symbols := syntax.NewSymbolTable()
	a := symbols.Intern("a")
	b := symbols.Intern("b")
	c := symbols.Intern("c")

	bs := NewBindings(3)
	vb := new(Value)
	vb.MkInt(2)
	vc := new(Value)
	vc.MkInt(3)
	va := new(Value)
	va.MkInt(1)
	bs.Push(Attr{Name: b, Value: vb})
	bs.Push(Attr{Name: c, Value: vc})
	bs.Push(Attr{Name: a, Value: va})
	bs.Sort()

	require.Equal(t, 3, bs.Size())
	attrs := bs.Attrs()
	for i := 1; i < len(attrs); i++ {
		assert.Less(t, attrs[i-1].Name, attrs[i].Name)
	}

	got := bs.Get(b)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.Value.Int())

	assert.Nil(t, bs.Get(symbols.Intern("missing")))
}

func TestValueTagTransitions(t *testing.T) {
	var v Value
	assert.Equal(t, KindThunk, v.Kind())
	assert.False(t, v.Forced())

	v.MkInt(7)
	assert.Equal(t, KindInt, v.Kind())
	assert.True(t, v.Forced())

	v.MkString("s", []ContextElem{{Kind: ContextOpaque, Path: "/nix/store/x"}})
	assert.Equal(t, KindString, v.Kind())
	assert.Len(t, v.StrContext(), 1)

	// Remaking the value drops the old payload entirely.
	v.MkNull()
	assert.Equal(t, KindNull, v.Kind())
	assert.Empty(t, v.StrContext())
}

func TestContextSetSemantics(t *testing.T) {
	var ctx Context
	assert.True(t, ctx.Empty())

	e1 := ContextElem{Kind: ContextOpaque, Path: "/nix/store/a"}
	e2 := ContextElem{Kind: ContextBuilt, Path: "/nix/store/b.drv", Output: "out"}
	ctx.Add(e1)
	ctx.Add(e1)
	ctx.Add(e2)
	assert.Equal(t, 2, ctx.Size())

	elems := ctx.Elems()
	require.Len(t, elems, 2)
	// Deterministic order: by path.
	assert.Equal(t, "/nix/store/a", elems[0].Path)

	// Round trip through the serialised form.
	for _, e := range elems {
		parsed, err := ParseContextElem(e.String())
		require.NoError(t, err)
		assert.Equal(t, e, parsed)
	}
}

func TestParseContextElem(t *testing.T) {
	e, err := ParseContextElem("=/nix/store/x.drv")
	require.NoError(t, err)
	assert.Equal(t, ContextDrvDeep, e.Kind)

	e2, err := ParseContextElem("!out!/nix/store/x.drv")
	require.NoError(t, err)
	assert.Equal(t, ContextBuilt, e2.Kind)
	assert.Equal(t, "out", e2.Output)

	_, err = ParseContextElem("")
	require.Error(t, err)
}

func TestSuffixIfPrefixMatch(t *testing.T) {
	s, ok := suffixIfPrefixMatch("", "foo/bar")
	assert.True(t, ok)
	assert.Equal(t, "foo/bar", s)

	s, ok = suffixIfPrefixMatch("foo", "foo/bar")
	assert.True(t, ok)
	assert.Equal(t, "/bar", s)

	_, ok = suffixIfPrefixMatch("foo", "foobar/x")
	assert.False(t, ok)

	s, ok = suffixIfPrefixMatch("foo", "foo")
	assert.True(t, ok)
	assert.Equal(t, "", s)
}
