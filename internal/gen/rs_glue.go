package gen

import (
	"fmt"
	"strings"

	"crossbind/internal/decl"
	"crossbind/internal/ir"
)

// rsGlueEmitter writes the Rust translation unit that exports the
// extern "C" thunks consumed by the C++ wrapper. It is compiled together
// with the origin crate, so it names origin paths directly and pins the
// layout contract with const assertions on the origin types.
type rsGlueEmitter struct {
	p   *plan
	buf strings.Builder
}

func emitRustGlue(p *plan, headers []string) string {
	e := &rsGlueEmitter{p: p}
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

func (e *rsGlueEmitter) preamble(headers []string) {
	fmt.Fprintf(&e.buf, "// Generated glue for module %q. Do not edit.\n", e.p.mod.Name)
	for _, h := range headers {
		fmt.Fprintf(&e.buf, "// Compiled with crate %q.\n", h)
	}
	e.buf.WriteString("\n#![allow(non_snake_case)]\n#![allow(dead_code)]\n\n")
}

func (e *rsGlueEmitter) record(it *ir.Item) {
	rec := it.Record
	origin := originPathRust(e.p.mod, it)

	fmt.Fprintf(&e.buf, "const _: () = assert!(::core::mem::size_of::<%s>() == %d);\n", origin, rec.Size)
	fmt.Fprintf(&e.buf, "const _: () = assert!(::core::mem::align_of::<%s>() == %d);\n", origin, rec.Align)
	for _, f := range rec.Fields {
		if f.IsBitfield() || f.NoUniqueAddress {
			continue
		}
		fmt.Fprintf(&e.buf, "const _: () = assert!(::core::mem::offset_of!(%s, %s) * 8 == %d);\n", origin, f.Name, f.OffsetBits)
	}
	e.buf.WriteString("\n")

	e.specialThunks(it, origin)
}

func (e *rsGlueEmitter) specialThunks(it *ir.Item, origin string) {
	rec := it.Record

	if rec.Special(decl.SpecialDefaultCtor).State == ir.SpecialNonTrivial {
		fmt.Fprintf(&e.buf, "#[no_mangle]\npub unsafe extern \"C\" fn %s(__this: *mut %s) {\n    __this.write(<%s as ::core::default::Default>::default());\n}\n\n",
			specialThunkName(it.Mangled, decl.SpecialDefaultCtor), origin, origin)
	}
	if rec.Special(decl.SpecialCopyCtor).State == ir.SpecialNonTrivial {
		fmt.Fprintf(&e.buf, "#[no_mangle]\npub unsafe extern \"C\" fn %s(__this: *mut %s, __param_0: *const %s) {\n    __this.write((&*__param_0).clone());\n}\n\n",
			specialThunkName(it.Mangled, decl.SpecialCopyCtor), origin, origin)
	}
	if rec.Special(decl.SpecialDtor).State == ir.SpecialNonTrivial {
		fmt.Fprintf(&e.buf, "#[no_mangle]\npub unsafe extern \"C\" fn %s(__this: *mut %s) {\n    ::core::ptr::drop_in_place(__this);\n}\n\n",
			specialThunkName(it.Mangled, decl.SpecialDtor), origin)
	}
}

func (e *rsGlueEmitter) function(it *ir.Item) {
	fn := it.Func
	switch fn.Classify {
	case decl.FuncDtor:
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
	ret := e.retSuffix(fn.Return)
	fmt.Fprintf(&e.buf, "#[no_mangle]\npub extern \"C\" fn %s(%s)%s {\n    %s(%s)\n}\n\n",
		thunkName(it.Mangled), strings.Join(params, ", "), ret,
		originPathRust(e.p.mod, it), strings.Join(args, ", "))
}

// ctorThunk exports an associated constructor function as a write into
// caller-provided storage, which is how the C++ wrapper constructs values.
func (e *rsGlueEmitter) ctorThunk(it *ir.Item) {
	fn := it.Func
	owner := e.p.mod.Items.Get(fn.Member)
	if owner == nil {
		return
	}
	origin := originPathRust(e.p.mod, owner)
	params, args := e.paramList(fn)
	params = append([]string{fmt.Sprintf("__this: *mut %s", origin)}, params...)
	fmt.Fprintf(&e.buf, "#[no_mangle]\npub unsafe extern \"C\" fn %s(%s) {\n    __this.write(%s::%s(%s));\n}\n\n",
		thunkName(it.Mangled), strings.Join(params, ", "), origin, it.Name, strings.Join(args, ", "))
}

func (e *rsGlueEmitter) methodThunk(it *ir.Item) {
	fn := it.Func
	owner := e.p.mod.Items.Get(fn.Member)
	if owner == nil {
		return
	}
	origin := originPathRust(e.p.mod, owner)
	recv := fmt.Sprintf("__this: *mut %s", origin)
	deref := "(&mut *__this)"
	if fn.Const {
		recv = fmt.Sprintf("__this: *const %s", origin)
		deref = "(&*__this)"
	}
	params, args := e.paramList(fn)
	params = append([]string{recv}, params...)
	ret := e.retSuffix(fn.Return)
	fmt.Fprintf(&e.buf, "#[no_mangle]\npub unsafe extern \"C\" fn %s(%s)%s {\n    %s.%s(%s)\n}\n\n",
		thunkName(it.Mangled), strings.Join(params, ", "), ret, deref, it.Name, strings.Join(args, ", "))
}

func (e *rsGlueEmitter) paramList(fn *ir.Function) (params, args []string) {
	for _, prm := range fn.Params {
		params = append(params, fmt.Sprintf("%s: %s", prm.Ident, e.p.originTypeRust(prm.Type)))
		args = append(args, prm.Ident)
	}
	return params, args
}

func (e *rsGlueEmitter) retSuffix(ret ir.TypeID) string {
	if t, ok := e.p.mod.Types.Lookup(ret); ok && t.Kind == ir.TypeVoid {
		return ""
	}
	return " -> " + e.p.originTypeRust(ret)
}
