package gen

import (
	"fmt"
	"strings"

	"crossbind/internal/decl"
	"crossbind/internal/ir"
)

// ccGlueEmitter writes the flat C++ translation unit that implements the
// extern "C" thunks declared by the Rust wrapper and pins the layout
// contract with static assertions. It compiles against the origin headers
// only; generated wrapper types never appear here.
type ccGlueEmitter struct {
	p   *plan
	buf strings.Builder
}

func emitCCGlue(p *plan, headers []string) string {
	e := &ccGlueEmitter{p: p}
	e.preamble(headers)
	for _, id := range p.emit {
		it := p.mod.Items.Get(id)
		if it == nil {
			continue
		}
		switch {
		case it.Record != nil:
			e.record(it)
		case it.Func != nil:
			e.function(it)
		}
	}
	return e.buf.String()
}

func (e *ccGlueEmitter) preamble(headers []string) {
	fmt.Fprintf(&e.buf, "// Generated glue for module %q. Do not edit.\n\n", e.p.mod.Name)
	e.buf.WriteString("#include <cstddef>\n#include <cstdint>\n#include <memory>\n#include <new>\n#include <utility>\n\n")
	for _, h := range headers {
		fmt.Fprintf(&e.buf, "#include %q\n", h)
	}
	if len(headers) > 0 {
		e.buf.WriteString("\n")
	}
}

func (e *ccGlueEmitter) record(it *ir.Item) {
	rec := it.Record
	origin := originPathCC(e.p.mod, it)

	// Layout contract. Field offsets are asserted in bits so the same
	// encoding covers bitfield-adjacent layouts; bitfields themselves and
	// no-unique-address members cannot be asserted with offsetof.
	fmt.Fprintf(&e.buf, "static_assert(sizeof(%s) == %d);\n", origin, rec.Size)
	fmt.Fprintf(&e.buf, "static_assert(alignof(%s) == %d);\n", origin, rec.Align)
	for _, f := range rec.Fields {
		if f.IsBitfield() || f.NoUniqueAddress {
			continue
		}
		fmt.Fprintf(&e.buf, "static_assert(offsetof(%s, %s) * 8 == %d);\n", origin, f.Name, f.OffsetBits)
	}
	e.buf.WriteString("\n")

	e.specialThunks(it, origin)
	e.upcastThunks(it, origin)
}

func (e *ccGlueEmitter) specialThunks(it *ir.Item, origin string) {
	rec := it.Record

	if rec.Special(decl.SpecialDefaultCtor).State == ir.SpecialNonTrivial {
		fmt.Fprintf(&e.buf, "extern \"C\" void %s(%s* __this) {\n    ::new (__this) %s();\n}\n\n",
			specialThunkName(it.Mangled, decl.SpecialDefaultCtor), origin, origin)
	}
	if rec.Special(decl.SpecialCopyCtor).State == ir.SpecialNonTrivial {
		fmt.Fprintf(&e.buf, "extern \"C\" void %s(%s* __this, const %s* __param_0) {\n    ::new (__this) %s(*__param_0);\n}\n\n",
			specialThunkName(it.Mangled, decl.SpecialCopyCtor), origin, origin, origin)
	}
	if rec.Special(decl.SpecialMoveCtor).State == ir.SpecialNonTrivial {
		fmt.Fprintf(&e.buf, "extern \"C\" void %s(%s* __this, %s* __param_0) {\n    ::new (__this) %s(static_cast<%s&&>(*__param_0));\n}\n\n",
			specialThunkName(it.Mangled, decl.SpecialMoveCtor), origin, origin, origin, origin)
	}
	if rec.Special(decl.SpecialDtor).State == ir.SpecialNonTrivial {
		fmt.Fprintf(&e.buf, "extern \"C\" void %s(%s* __this) {\n    std::destroy_at(__this);\n}\n\n",
			specialThunkName(it.Mangled, decl.SpecialDtor), origin)
	}
}

func (e *ccGlueEmitter) upcastThunks(it *ir.Item, origin string) {
	rec := it.Record
	if rec.NoSafeUpcast {
		return
	}
	for _, b := range rec.Bases {
		if !b.SafeUpcast {
			continue
		}
		base := e.p.mod.Items.Get(b.Item)
		if base == nil {
			continue
		}
		baseOrigin := originPathCC(e.p.mod, base)
		fmt.Fprintf(&e.buf, "extern \"C\" const %s* %s(const %s* __this) {\n    return static_cast<const %s*>(__this);\n}\n\n",
			baseOrigin, upcastThunkName(it.Mangled, base.Mangled), origin, baseOrigin)
	}
}

func (e *ccGlueEmitter) function(it *ir.Item) {
	fn := it.Func
	switch fn.Classify {
	case decl.FuncDtor:
		// Covered by the destructor special thunk.
		return
	case decl.FuncCtor:
		e.ctorThunk(it)
		return
	}
	if fn.IsMember() {
		e.methodThunk(it)
		return
	}

	params, args := e.paramList(fn)
	call := fmt.Sprintf("%s(%s)", originPathCC(e.p.mod, it), strings.Join(args, ", "))
	e.thunkDef(fn, thunkName(it.Mangled), params, call)
}

func (e *ccGlueEmitter) ctorThunk(it *ir.Item) {
	fn := it.Func
	owner := e.p.mod.Items.Get(fn.Member)
	if owner == nil {
		return
	}
	origin := originPathCC(e.p.mod, owner)
	params, args := e.paramList(fn)
	params = append([]string{fmt.Sprintf("%s* __this", origin)}, params...)
	fmt.Fprintf(&e.buf, "extern \"C\" void %s(%s) {\n    ::new (__this) %s(%s);\n}\n\n",
		thunkName(it.Mangled), strings.Join(params, ", "), origin, strings.Join(args, ", "))
}

func (e *ccGlueEmitter) methodThunk(it *ir.Item) {
	fn := it.Func
	owner := e.p.mod.Items.Get(fn.Member)
	if owner == nil {
		return
	}
	origin := originPathCC(e.p.mod, owner)
	thisTy := origin + "*"
	if fn.Const {
		thisTy = "const " + origin + "*"
	}
	params, args := e.paramList(fn)
	params = append([]string{thisTy + " __this"}, params...)
	call := fmt.Sprintf("__this->%s(%s)", it.Name, strings.Join(args, ", "))
	e.thunkDef(fn, thunkName(it.Mangled), params, call)
}

// paramList renders thunk parameters against the origin headers. Records that
// the target ABI passes indirectly arrive as pointers to wrapper-owned
// storage; the glue moves out of them, leaving a valid shell for the caller
// to destroy.
func (e *ccGlueEmitter) paramList(fn *ir.Function) (params, args []string) {
	for _, prm := range fn.Params {
		if e.p.passIndirect(prm.Type) {
			params = append(params, fmt.Sprintf("%s* %s", e.p.originTypeCC(prm.Type), prm.Ident))
			args = append(args, fmt.Sprintf("std::move(*%s)", prm.Ident))
			continue
		}
		params = append(params, fmt.Sprintf("%s %s", e.p.originTypeCC(prm.Type), prm.Ident))
		args = append(args, prm.Ident)
	}
	return params, args
}

// thunkDef writes one extern "C" thunk. An indirectly-returned record is
// constructed in place into caller-provided storage through a leading
// out-parameter; everything else returns by value.
func (e *ccGlueEmitter) thunkDef(fn *ir.Function, thunk string, params []string, call string) {
	if e.p.passIndirect(fn.Return) {
		retTy := e.p.originTypeCC(fn.Return)
		params = append([]string{fmt.Sprintf("%s* __return", retTy)}, params...)
		fmt.Fprintf(&e.buf, "extern \"C\" void %s(%s) {\n    ::new (__return) %s(%s);\n}\n\n",
			thunk, strings.Join(params, ", "), retTy, call)
		return
	}
	fmt.Fprintf(&e.buf, "extern \"C\" %s %s(%s) {\n", e.p.originTypeCC(fn.Return), thunk, strings.Join(params, ", "))
	e.callBody(fn.Return, call)
	e.buf.WriteString("}\n\n")
}

func (e *ccGlueEmitter) callBody(ret ir.TypeID, call string) {
	if t, ok := e.p.mod.Types.Lookup(ret); ok && t.Kind == ir.TypeVoid {
		fmt.Fprintf(&e.buf, "    %s;\n", call)
		return
	}
	fmt.Fprintf(&e.buf, "    return %s;\n", call)
}
