package eval

import (
	"strconv"
	"strings"

	"github.com/nixel-lang/nixel/store"
	"github.com/nixel-lang/nixel/syntax"
)

// CoerceOpts tunes CoerceToString.
type CoerceOpts struct {
	// ErrorCtx is attached to failures.
	ErrorCtx string
	// More also coerces null, Booleans, numbers, and lists.
	More bool
	// CopyToStore ingests paths into the store and yields the store
	// path string with an opaque context element.
	CopyToStore bool
	// CanonicalisePath lexically cleans bare path renderings.
	CanonicalisePath bool
}

// IsDerivation reports whether v is an attrset with type = "derivation".
func (st *EvalState) IsDerivation(v *Value) bool {
	if v.tag != tAttrs {
		return false
	}
	a := v.attrs.Get(st.sType)
	if a == nil {
		return false
	}
	if err := st.Force(a.Value, a.Pos); err != nil {
		return false
	}
	return a.Value.tag == tString && a.Value.str == "derivation"
}

// tryAttrsToString applies a __toString functor, if present, and
// re-coerces the result.
func (st *EvalState) tryAttrsToString(pos syntax.PosIdx, v *Value, ctx *Context, opts CoerceOpts) (string, bool, error) {
	toString := v.attrs.Get(st.sToString)
	if toString == nil {
		return "", false, nil
	}
	res := new(Value)
	if err := st.callFunction(toString.Value, []*Value{v}, res, pos); err != nil {
		return "", false, err
	}
	opts2 := opts
	opts2.ErrorCtx = "while evaluating the result of the `__toString` attribute"
	s, err := st.CoerceToString(pos, res, ctx, opts2)
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

// CoerceToString converts v to a string, merging any context v carries
// into ctx. Paths are ingested into the store or rendered as absolute
// paths; attrsets coerce through __toString or their outPath; the More
// option additionally renders null, Booleans, numbers, and lists.
func (st *EvalState) CoerceToString(pos syntax.PosIdx, v *Value, ctx *Context, opts CoerceOpts) (string, error) {
	if err := st.Force(v, pos); err != nil {
		return "", st.addErrorTrace(err, pos, "%s", opts.ErrorCtx)
	}

	switch v.tag {
	case tString:
		ctx.AddAll(v.context)
		return v.str, nil

	case tPath:
		switch {
		case opts.CopyToStore:
			return st.CopyPathToStore(pos, ctx, v.str)
		case opts.CanonicalisePath:
			return cleanPath(v.str), nil
		default:
			return v.str, nil
		}

	case tAttrs:
		s, ok, err := st.tryAttrsToString(pos, v, ctx, opts)
		if err != nil {
			return "", err
		}
		if ok {
			return s, nil
		}
		if outPath := v.attrs.Get(st.sOutPath); outPath != nil {
			return st.CoerceToString(pos, outPath.Value, ctx, opts)
		}
		return "", st.addErrorTrace(
			st.errorf(KindType, pos, "cannot coerce %s to a string: %s", st.ShowTypeOf(v), st.AbbrevValue(v)),
			pos, "%s", opts.ErrorCtx)

	case tExternal:
		s, err := v.ext.CoerceToString(st, pos, ctx, opts.More, opts.CopyToStore)
		if err != nil {
			return "", st.addErrorTrace(err, pos, "%s", opts.ErrorCtx)
		}
		return s, nil
	}

	if opts.More {
		// False and null render as empty strings for shell-script
		// convenience.
		switch v.tag {
		case tBool:
			if v.num != 0 {
				return "1", nil
			}
			return "", nil
		case tNull:
			return "", nil
		case tInt:
			return strconv.FormatInt(v.num, 10), nil
		case tFloat:
			return formatFloat(v.fpoint), nil
		case tList:
			var sb strings.Builder
			for i, el := range v.list {
				s, err := st.CoerceToString(pos, el, ctx, CoerceOpts{
					ErrorCtx:         "while evaluating one element of the list",
					More:             true,
					CopyToStore:      opts.CopyToStore,
					CanonicalisePath: opts.CanonicalisePath,
				})
				if err != nil {
					return "", st.addErrorTrace(err, pos, "%s", opts.ErrorCtx)
				}
				sb.WriteString(s)
				if i < len(v.list)-1 {
					if el.tag != tList || len(el.list) != 0 {
						sb.WriteByte(' ')
					}
				}
			}
			return sb.String(), nil
		}
	}

	return "", st.addErrorTrace(
		st.errorf(KindType, pos, "cannot coerce %s to a string: %s", st.ShowTypeOf(v), st.AbbrevValue(v)),
		pos, "%s", opts.ErrorCtx)
}

// CopyPathToStore ingests path and returns the printed store path,
// adding an opaque element to ctx. Ingestion is memoised per source
// path.
func (st *EvalState) CopyPathToStore(pos syntax.PosIdx, ctx *Context, path string) (string, error) {
	if strings.HasSuffix(path, ".drv") {
		return "", st.errorf(KindEval, pos, "file names are not allowed to end in '.drv'")
	}

	dstPath, ok := st.srcToStore[path]
	if !ok {
		var err error
		dstPath, err = st.store.IngestPath(path, baseNameOf(path), store.IngestRecursive)
		if err != nil {
			return "", st.errorf(KindEval, pos, "cannot copy '%s' to the store: %v", path, err)
		}
		st.allowPath(dstPath)
		st.srcToStore[path] = dstPath
	}

	ctx.Add(ContextElem{Kind: ContextOpaque, Path: dstPath})
	return dstPath, nil
}

// CoerceToPath converts v to an absolute path.
func (st *EvalState) CoerceToPath(pos syntax.PosIdx, v *Value, ctx *Context, errorCtx string) (string, error) {
	s, err := st.CoerceToString(pos, v, ctx, CoerceOpts{ErrorCtx: errorCtx, CanonicalisePath: true})
	if err != nil {
		return "", err
	}
	if s == "" || s[0] != '/' {
		return "", st.addErrorTrace(
			st.errorf(KindEval, pos, "string '%s' doesn't represent an absolute path", s),
			pos, "%s", errorCtx)
	}
	return s, nil
}

// CoerceToStorePath converts v to a path inside the store.
func (st *EvalState) CoerceToStorePath(pos syntax.PosIdx, v *Value, ctx *Context, errorCtx string) (string, error) {
	s, err := st.CoerceToString(pos, v, ctx, CoerceOpts{ErrorCtx: errorCtx, CanonicalisePath: true})
	if err != nil {
		return "", err
	}
	if _, err := st.store.ParseStorePath(s); err != nil {
		return "", st.addErrorTrace(
			st.errorf(KindEval, pos, "path '%s' is not in the store", s),
			pos, "%s", errorCtx)
	}
	return s, nil
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 6, 64)
	return s
}

func baseNameOf(path string) string {
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
