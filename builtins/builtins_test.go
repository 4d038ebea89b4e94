package builtins_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/nixel-lang/nixel/builtins"
	"github.com/nixel-lang/nixel/eval"
	"github.com/nixel-lang/nixel/store"
)

func newState(t *testing.T) *eval.EvalState {
	t.Helper()
	return eval.New(eval.Config{}, store.NewMemStore(), nil)
}

func run(t *testing.T, st *eval.EvalState, src string) *eval.Value {
	t.Helper()
	var v eval.Value
	require.NoError(t, st.EvalString(src, "/", &v), "evaluating %s", src)
	require.NoError(t, st.ForceDeep(&v))
	return &v
}

func runPrinted(t *testing.T, st *eval.EvalState, src string) string {
	t.Helper()
	return st.PrintValue(run(t, st, src), eval.PrintOptions{})
}

func TestTypePredicates(t *testing.T) {
	st := newState(t)
	tests := []struct {
		src  string
		want bool
	}{
		{"builtins.isNull null", true},
		{"builtins.isNull 1", false},
		{"builtins.isInt 1", true},
		{"builtins.isFloat 1.0", true},
		{"builtins.isBool true", true},
		{"builtins.isString \"\"", true},
		{"builtins.isPath /x", true},
		{"builtins.isList []", true},
		{"builtins.isAttrs {}", true},
		{"builtins.isFunction (x: x)", true},
		{"builtins.isFunction builtins.add", true},
		{"builtins.isFunction (builtins.add 1)", true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, run(t, st, tt.src).Bool())
		})
	}
}

func TestTypeOf(t *testing.T) {
	st := newState(t)
	tests := map[string]string{
		"builtins.typeOf 1":       "int",
		"builtins.typeOf 1.0":     "float",
		"builtins.typeOf \"\"":    "string",
		"builtins.typeOf null":    "null",
		"builtins.typeOf {}":      "set",
		"builtins.typeOf []":      "list",
		"builtins.typeOf (x: x)":  "lambda",
		"builtins.typeOf /x":      "path",
		"builtins.typeOf true":    "bool",
	}
	for src, want := range tests {
		assert.Equal(t, want, run(t, st, src).Str(), src)
	}
}

func TestListBuiltins(t *testing.T) {
	st := newState(t)
	assert.Equal(t, "[ 2 4 6 ]", runPrinted(t, st, "map (x: x * 2) [1 2 3]"))
	assert.Equal(t, "[ 1 3 ]", runPrinted(t, st, "builtins.filter (x: builtins.lessThan x 4) [1 5 3]"))
	assert.Equal(t, int64(3), run(t, st, "builtins.length [1 2 3]").Int())
	assert.Equal(t, int64(1), run(t, st, "builtins.head [1 2]").Int())
	assert.Equal(t, "[ 2 3 ]", runPrinted(t, st, "builtins.tail [1 2 3]"))
	assert.Equal(t, int64(2), run(t, st, "builtins.elemAt [1 2 3] 1").Int())
	assert.True(t, run(t, st, "builtins.elem 2 [1 2]").Bool())
	assert.Equal(t, "[ 1 2 3 ]", runPrinted(t, st, "builtins.concatLists [[1] [] [2 3]]"))
	assert.Equal(t, "[ 0 1 4 ]", runPrinted(t, st, "builtins.genList (i: i * i) 3"))
	assert.Equal(t, int64(6), run(t, st, "builtins.foldl' (a: b: a + b) 0 [1 2 3]").Int())
	assert.True(t, run(t, st, "builtins.any (x: x == 2) [1 2]").Bool())
	assert.False(t, run(t, st, "builtins.all (x: x == 2) [1 2]").Bool())
	assert.Equal(t, "[ 1 2 3 ]", runPrinted(t, st, "builtins.sort builtins.lessThan [3 1 2]"))

	var v eval.Value
	err := st.EvalString("builtins.head []", "/", &v)
	require.Error(t, err)
}

func TestAttrBuiltins(t *testing.T) {
	st := newState(t)
	assert.Equal(t, `[ "a" "b" ]`, runPrinted(t, st, "builtins.attrNames { b = 2; a = 1; }"))
	assert.Equal(t, "[ 1 2 ]", runPrinted(t, st, "builtins.attrValues { b = 2; a = 1; }"))
	assert.Equal(t, int64(2), run(t, st, "builtins.getAttr \"b\" { b = 2; }").Int())
	assert.True(t, run(t, st, "builtins.hasAttr \"b\" { b = 2; }").Bool())
	assert.False(t, run(t, st, "builtins.hasAttr \"c\" { b = 2; }").Bool())
	assert.Equal(t, "{ a = 1; }", runPrinted(t, st, "removeAttrs { a = 1; b = 2; } [\"b\"]"))
	assert.Equal(t, "{ a = 1; b = 2; }", runPrinted(t, st,
		"builtins.listToAttrs [ { name = \"a\"; value = 1; } { name = \"b\"; value = 2; } { name = \"a\"; value = 9; } ]"))
	assert.Equal(t, "{ b = 3; }", runPrinted(t, st, "builtins.intersectAttrs { b = 1; } { b = 3; c = 4; }"))
	assert.Equal(t, "{ a = \"a1\"; }", runPrinted(t, st, "builtins.mapAttrs (name: v: name + builtins.toString v) { a = 1; }"))

	err := run1Err(t, st, "builtins.getAttr \"zz\" { b = 2; }")
	assert.True(t, eval.IsKind(err, eval.KindAttributeMissing))
}

func run1Err(t *testing.T, st *eval.EvalState, src string) error {
	t.Helper()
	var v eval.Value
	err := st.EvalString(src, "/", &v)
	if err == nil {
		err = st.ForceDeep(&v)
	}
	require.Error(t, err, "evaluating %s", src)
	return err
}

func TestStringBuiltins(t *testing.T) {
	st := newState(t)
	assert.Equal(t, int64(5), run(t, st, "builtins.stringLength \"hello\"").Int())
	assert.Equal(t, "ell", run(t, st, "builtins.substring 1 3 \"hello\"").Str())
	assert.Equal(t, "lo", run(t, st, "builtins.substring 3 10 \"hello\"").Str())
	assert.Equal(t, "", run(t, st, "builtins.substring 9 1 \"hello\"").Str())
	assert.Equal(t, "a-b-c", run(t, st, "builtins.concatStringsSep \"-\" [\"a\" \"b\" \"c\"]").Str())
	assert.Equal(t, "fabir", run(t, st, "builtins.replaceStrings [\"o\" \"u\"] [\"a\" \"i\"] \"fobur\"").Str())
	assert.Equal(t, "bar.nix", run(t, st, "baseNameOf \"/foo/bar.nix\"").Str())
	assert.Equal(t, "/foo", run(t, st, "dirOf \"/foo/bar.nix\"").Str())
	assert.Equal(t, ".", run(t, st, "dirOf \"bar\"").Str())
}

func TestToStringCoercions(t *testing.T) {
	st := newState(t)
	tests := map[string]string{
		"toString 3":              "3",
		"toString true":           "1",
		"toString false":          "",
		"toString null":           "",
		"toString \"s\"":          "s",
		"toString [1 2]":          "1 2",
		"toString /foo/bar":       "/foo/bar",
		"toString { outPath = \"/nix/store/x\"; }": "/nix/store/x",
		"toString { __toString = self: \"v\" + self.tag; tag = \"1\"; }": "v1",
	}
	for src, want := range tests {
		assert.Equal(t, want, run(t, st, src).Str(), src)
	}

	err := run1Err(t, st, "toString { }")
	assert.True(t, eval.IsKind(err, eval.KindType))
}

func TestSeqAndDeepSeq(t *testing.T) {
	st := newState(t)
	assert.Equal(t, int64(2), run(t, st, "builtins.seq 1 2").Int())

	// seq forces only to weak head: the inner throw survives.
	var v eval.Value
	require.NoError(t, st.EvalString("builtins.seq { a = throw \"x\"; } 2", "/", &v))
	assert.Equal(t, int64(2), v.Int())

	err := run1Err(t, st, "builtins.deepSeq { a = throw \"x\"; } 2")
	assert.True(t, eval.IsKind(err, eval.KindThrown))

	err2 := run1Err(t, st, "builtins.seq (throw \"x\") 2")
	assert.True(t, eval.IsKind(err2, eval.KindThrown))
}

func TestFunctionArgs(t *testing.T) {
	st := newState(t)
	assert.Equal(t, "{ a = false; b = true; }", runPrinted(t, st, "builtins.functionArgs ({ a, b ? 1 }: a)"))
	assert.Equal(t, "{ }", runPrinted(t, st, "builtins.functionArgs (x: x)"))
}

func TestGenericClosure(t *testing.T) {
	st := newState(t)
	v := run(t, st, `builtins.genericClosure {
	  startSet = [ { key = 0; } ];
	  operator = item: if builtins.lessThan item.key 3 then [ { key = item.key + 1; } ] else [ ];
	}`)
	require.Equal(t, eval.KindList, v.Kind())
	assert.Len(t, v.List(), 4)
}

func TestVersionBuiltins(t *testing.T) {
	st := newState(t)
	assert.Equal(t, int64(-1), run(t, st, "builtins.compareVersions \"1.0\" \"2.3\"").Int())
	assert.Equal(t, int64(0), run(t, st, "builtins.compareVersions \"2.3\" \"2.3\"").Int())
	assert.Equal(t, int64(1), run(t, st, "builtins.compareVersions \"2.3.1\" \"2.3\"").Int())
	assert.Equal(t, int64(-1), run(t, st, "builtins.compareVersions \"2.3pre1\" \"2.3\"").Int())
	assert.Equal(t, int64(1), run(t, st, "builtins.compareVersions \"2.10\" \"2.9\"").Int())
	assert.Equal(t, `[ "1" "2" "3" ]`, runPrinted(t, st, "builtins.splitVersion \"1.2.3\""))
}

func TestBitwiseBuiltins(t *testing.T) {
	st := newState(t)
	assert.Equal(t, int64(4), run(t, st, "builtins.bitAnd 12 6").Int())
	assert.Equal(t, int64(14), run(t, st, "builtins.bitOr 12 6").Int())
	assert.Equal(t, int64(10), run(t, st, "builtins.bitXor 12 6").Int())
}

func TestDivision(t *testing.T) {
	st := newState(t)
	assert.Equal(t, int64(3), run(t, st, "builtins.div 7 2").Int())
	err := run1Err(t, st, "builtins.div 1 0")
	assert.Contains(t, err.Error(), "division by zero")
}

func TestStringContextBuiltins(t *testing.T) {
	st := newState(t)
	ms := store.NewMemStore()
	ms.AddObject("/nix/store/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-dep")
	st = eval.New(eval.Config{}, ms, nil)

	src := `builtins.hasContext (builtins.appendContext "s" {
	  "/nix/store/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-dep" = { path = true; };
	})`
	assert.True(t, run(t, st, src).Bool())

	assert.False(t, run(t, st, "builtins.hasContext \"plain\"").Bool())

	// Context survives concatenation and is dropped by the unsafe
	// discard.
	srcConcat := `let s = builtins.appendContext "a" {
	    "/nix/store/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-dep" = { path = true; };
	  };
	in builtins.hasContext ("x" + s + "y")`
	assert.True(t, run(t, st, srcConcat).Bool())

	srcDiscard := `let s = builtins.appendContext "a" {
	    "/nix/store/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-dep" = { path = true; };
	  };
	in builtins.hasContext (builtins.unsafeDiscardStringContext s)`
	assert.False(t, run(t, st, srcDiscard).Bool())

	// getContext reports the usage split.
	srcGet := `builtins.getContext (builtins.appendContext "s" {
	  "/nix/store/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-dep" = { path = true; outputs = ["out"]; };
	})`
	v := run(t, st, srcGet)
	require.Equal(t, eval.KindAttrs, v.Kind())
	require.Equal(t, 1, v.Attrs().Size())
}

func TestPlaceholder(t *testing.T) {
	st := newState(t)
	v1 := run(t, st, "placeholder \"out\"")
	v2 := run(t, st, "placeholder \"out\"")
	v3 := run(t, st, "placeholder \"dev\"")
	assert.Equal(t, v1.Str(), v2.Str())
	assert.NotEqual(t, v1.Str(), v3.Str())
	assert.Equal(t, byte('/'), v1.Str()[0])
}

func TestTraceEmitsWarning(t *testing.T) {
	var msgs []string
	st := eval.New(eval.Config{Warn: func(m string) { msgs = append(msgs, m) }}, store.NewMemStore(), nil)
	assert.Equal(t, int64(2), run(t, st, "builtins.trace \"hello\" 2").Int())
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "hello")
}

func TestGetEnvPureMode(t *testing.T) {
	t.Setenv("NIXEL_TEST_VAR", "value")

	impure := newState(t)
	assert.Equal(t, "value", run(t, impure, "builtins.getEnv \"NIXEL_TEST_VAR\"").Str())

	pure := eval.New(eval.Config{PureEval: true}, store.NewMemStore(), nil)
	assert.Equal(t, "", run(t, pure, "builtins.getEnv \"NIXEL_TEST_VAR\"").Str())
}

func TestCurrentTimeIsImpureOnly(t *testing.T) {
	impure := newState(t)
	v := run(t, impure, "builtins.currentTime")
	assert.Equal(t, eval.KindInt, v.Kind())
	assert.Positive(t, v.Int())

	pure := eval.New(eval.Config{PureEval: true}, store.NewMemStore(), nil)
	var v2 eval.Value
	err := pure.EvalString("builtins.currentTime", "/", &v2)
	require.Error(t, err)
}
