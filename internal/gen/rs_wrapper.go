package gen

import (
	"fmt"
	"strings"

	"crossbind/internal/decl"
	"crossbind/internal/ir"
)

// rustEmitter writes the Rust-side wrapper for a C++-like origin. One
// emitter per run; all state is local so repeated runs over the same plan
// produce identical bytes.
type rustEmitter struct {
	p   *plan
	buf strings.Builder
	// thunks collects extern "C" declarations for the trailing detail
	// module, in generation order.
	thunks []string
	// impls collects impl blocks emitted after the namespace tree.
	impls []string
	// asserts pins the wrapper-side layout contract; the glue can only
	// assert the origin type, so mismatches in the generated struct would
	// otherwise go unnoticed until memory corrupts.
	asserts []string
}

func emitRustWrapper(p *plan) string {
	e := &rustEmitter{p: p}
	e.preamble()
	e.scope(nsTree(p), 0)
	for _, block := range e.impls {
		e.buf.WriteString(block)
	}
	for _, a := range e.asserts {
		e.buf.WriteString(a)
	}
	if len(e.asserts) > 0 {
		e.buf.WriteString("\n")
	}
	e.skippedComments()
	e.detailModule()
	return e.buf.String()
}

func (e *rustEmitter) preamble() {
	fmt.Fprintf(&e.buf, "// Generated bindings for module %q. Do not edit.\n", e.p.mod.Name)
	e.buf.WriteString("\n#![allow(non_camel_case_types)]\n#![allow(non_snake_case)]\n#![allow(dead_code)]\n\n")
}

func (e *rustEmitter) scope(node *nsNode, depth int) {
	ind := strings.Repeat("    ", depth)
	for _, id := range node.items {
		it := e.p.mod.Items.Get(id)
		if it == nil {
			continue
		}
		switch {
		case it.Record != nil:
			e.record(it, ind)
		case it.Func != nil:
			e.function(it, ind)
		case it.Enum != nil:
			e.enum(it, ind)
		case it.Alias != nil:
			fmt.Fprintf(&e.buf, "%spub type %s = %s;\n\n", ind, it.Ident, e.p.rustType(it.Alias.Target))
		}
	}
	for _, c := range node.children {
		ns := e.p.mod.Items.Get(c.id)
		if ns == nil {
			continue
		}
		fmt.Fprintf(&e.buf, "%spub mod %s {\n", ind, ns.Ident)
		e.scope(c, depth+1)
		fmt.Fprintf(&e.buf, "%s}\n\n", ind)
	}
}

func (e *rustEmitter) record(it *ir.Item, ind string) {
	rec := it.Record
	if isOpaque(e.p, it.ID) {
		fmt.Fprintf(&e.buf, "%s/// Incomplete type; usable only behind pointers.\n", ind)
		fmt.Fprintf(&e.buf, "%s#[repr(C)]\n%spub struct %s {\n%s    _opaque: [u8; 0],\n%s}\n\n",
			ind, ind, it.Ident, ind, ind)
		return
	}

	if rec.TriviallyCopyable() && rec.TriviallyDestructible() {
		fmt.Fprintf(&e.buf, "%s#[derive(Clone, Copy)]\n", ind)
	}
	fmt.Fprintf(&e.buf, "%s#[repr(C, align(%d))]\n", ind, rec.Align)
	fmt.Fprintf(&e.buf, "%spub struct %s {\n", ind, it.Ident)
	e.fields(rec, ind)
	fmt.Fprintf(&e.buf, "%s}\n\n", ind)

	path := e.p.rustItemPath(it.ID)
	e.layoutAsserts(it, path)
	e.specialImpls(it, path)
	e.upcastImpls(it, path)
	e.ctorImpl(it, path)
}

// layoutAsserts pins the generated struct to the recorded layout. The glue's
// static_asserts cover the origin type only.
func (e *rustEmitter) layoutAsserts(it *ir.Item, path string) {
	rec := it.Record
	e.asserts = append(e.asserts, fmt.Sprintf("const _: () = assert!(::core::mem::size_of::<%s>() == %d);\n", path, rec.Size))
	e.asserts = append(e.asserts, fmt.Sprintf("const _: () = assert!(::core::mem::align_of::<%s>() == %d);\n", path, rec.Align))
	for _, f := range rec.Fields {
		if f.IsBitfield() || f.NoUniqueAddress {
			continue
		}
		e.asserts = append(e.asserts, fmt.Sprintf("const _: () = assert!(::core::mem::offset_of!(%s, %s) * 8 == %d);\n", path, f.Ident, f.OffsetBits))
	}
}

// fields renders data members. Storage that precedes the first member (base
// subobjects, vtable pointers, the whole object for empty records) is
// reserved as an opaque blob so the recorded offsets and size survive
// repr(C) packing. Consecutive bitfields collapse into one opaque byte blob;
// no-unique-address members keep a zero-size marker so the declaration is
// visible without affecting layout.
func (e *rustEmitter) fields(rec *ir.Record, ind string) {
	if lead := leadingBytes(rec); lead > 0 {
		fmt.Fprintf(&e.buf, "%s    __non_field_data: [u8; %d],\n", ind, lead)
	}
	i := 0
	blobIdx := 0
	for i < len(rec.Fields) {
		f := rec.Fields[i]
		switch {
		case f.IsBitfield():
			startBit := f.OffsetBits
			endBit := f.OffsetBits + f.BitWidth
			j := i + 1
			for j < len(rec.Fields) && rec.Fields[j].IsBitfield() {
				if end := rec.Fields[j].OffsetBits + rec.Fields[j].BitWidth; end > endBit {
					endBit = end
				}
				j++
			}
			alignedStart := startBit / 8 * 8
			bytes := (endBit - alignedStart + 7) / 8
			fmt.Fprintf(&e.buf, "%s    __bitfields%d: [u8; %d],\n", ind, blobIdx, bytes)
			blobIdx++
			i = j
		case f.NoUniqueAddress:
			fmt.Fprintf(&e.buf, "%s    // %q occupies no unique storage at offset %d.\n", ind, f.Name, f.OffsetBytes())
			fmt.Fprintf(&e.buf, "%s    pub %s: [u8; 0],\n", ind, f.Ident)
			i++
		default:
			fmt.Fprintf(&e.buf, "%s    pub %s: %s,\n", ind, f.Ident, e.p.rustType(f.Type))
			i++
		}
	}
}

func (e *rustEmitter) specialImpls(it *ir.Item, path string) {
	rec := it.Record

	switch dc := rec.Special(decl.SpecialDefaultCtor); dc.State {
	case ir.SpecialNonTrivial:
		thunk := specialThunkName(it.Mangled, decl.SpecialDefaultCtor)
		e.declareThunk(fmt.Sprintf("pub(crate) fn %s(__this: *mut %s);", thunk, path))
		e.impls = append(e.impls, fmt.Sprintf(
			"impl Default for %s {\n    #[inline(always)]\n    fn default() -> Self {\n        let mut tmp = ::core::mem::MaybeUninit::<Self>::zeroed();\n        unsafe {\n            crate::detail::%s(tmp.as_mut_ptr());\n            tmp.assume_init()\n        }\n    }\n}\n\n",
			path, thunk))
	case ir.SpecialTrivial:
		e.impls = append(e.impls, fmt.Sprintf(
			"impl Default for %s {\n    #[inline(always)]\n    fn default() -> Self {\n        unsafe { ::core::mem::zeroed() }\n    }\n}\n\n",
			path))
	}

	if cc := rec.Special(decl.SpecialCopyCtor); cc.State == ir.SpecialNonTrivial {
		thunk := specialThunkName(it.Mangled, decl.SpecialCopyCtor)
		e.declareThunk(fmt.Sprintf("pub(crate) fn %s(__this: *mut %s, __param_0: *const %s);", thunk, path, path))
		e.impls = append(e.impls, fmt.Sprintf(
			"impl Clone for %s {\n    #[inline(always)]\n    fn clone(&self) -> Self {\n        let mut tmp = ::core::mem::MaybeUninit::<Self>::zeroed();\n        unsafe {\n            crate::detail::%s(tmp.as_mut_ptr(), self);\n            tmp.assume_init()\n        }\n    }\n}\n\n",
			path, thunk))
	}

	if dt := rec.Special(decl.SpecialDtor); dt.State == ir.SpecialNonTrivial {
		thunk := specialThunkName(it.Mangled, decl.SpecialDtor)
		e.declareThunk(fmt.Sprintf("pub(crate) fn %s(__this: *mut %s);", thunk, path))
		e.impls = append(e.impls, fmt.Sprintf(
			"impl Drop for %s {\n    #[inline(always)]\n    fn drop(&mut self) {\n        unsafe { crate::detail::%s(self) }\n    }\n}\n\n",
			path, thunk))
	}
}

func (e *rustEmitter) upcastImpls(it *ir.Item, path string) {
	rec := it.Record
	if rec.NoSafeUpcast {
		// Address-arithmetic upcasts are not exposed for records with
		// virtual or ambiguous bases; construction by value still works.
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
		basePath := e.p.rustItemPath(b.Item)
		thunk := upcastThunkName(it.Mangled, base.Mangled)
		e.declareThunk(fmt.Sprintf("pub(crate) fn %s(__this: *const %s) -> *const %s;", thunk, path, basePath))
		e.impls = append(e.impls, fmt.Sprintf(
			"impl %s {\n    #[inline(always)]\n    pub fn as_%s(&self) -> &%s {\n        unsafe { &*crate::detail::%s(self) }\n    }\n}\n\n",
			path, base.Ident, basePath, thunk))
	}
}

// ctorImpl exposes the single non-special constructor, when there is exactly
// one, as an associated fn new. Multiple candidates are ambiguous and were
// already excluded during planning.
func (e *rustEmitter) ctorImpl(it *ir.Item, path string) {
	ctor := singleCtor(e.p, it)
	if ctor == nil {
		return
	}
	fn := ctor.Func
	thunk := thunkName(ctor.Mangled)
	prmSig, prmDecl, prmArgs := e.rustParams(fn)
	declParams := append([]string{fmt.Sprintf("__this: *mut %s", path)}, prmDecl...)
	sigParams := prmSig
	callArgs := append([]string{"tmp.as_mut_ptr()"}, prmArgs...)
	e.declareThunk(fmt.Sprintf("pub(crate) fn %s(%s);", thunk, strings.Join(declParams, ", ")))
	e.impls = append(e.impls, fmt.Sprintf(
		"impl %s {\n    #[inline(always)]\n    pub fn new(%s) -> Self {\n        let mut tmp = ::core::mem::MaybeUninit::<Self>::zeroed();\n        unsafe {\n            crate::detail::%s(%s);\n            tmp.assume_init()\n        }\n    }\n}\n\n",
		path, strings.Join(sigParams, ", "), thunk, strings.Join(callArgs, ", ")))
}

// rustParams renders one function's wrapper signature, thunk declaration
// parameters and call arguments. A parameter whose type must cross the thunk
// boundary indirectly is still taken by value: the wrapper owns it, hands
// its address to the glue (which moves out of it), and drops the shell.
func (e *rustEmitter) rustParams(fn *ir.Function) (sigParams, declParams, callArgs []string) {
	for _, prm := range fn.Params {
		ty := e.p.rustType(prm.Type)
		if e.p.passIndirect(prm.Type) {
			sigParams = append(sigParams, fmt.Sprintf("mut %s: %s", prm.Ident, ty))
			declParams = append(declParams, fmt.Sprintf("%s: *mut %s", prm.Ident, ty))
			callArgs = append(callArgs, "&mut "+prm.Ident)
			continue
		}
		sigParams = append(sigParams, fmt.Sprintf("%s: %s", prm.Ident, ty))
		declParams = append(declParams, fmt.Sprintf("%s: %s", prm.Ident, ty))
		callArgs = append(callArgs, prm.Ident)
	}
	return sigParams, declParams, callArgs
}

// callBody renders the wrapper body around one thunk call, routing an
// indirectly-returned record through caller-provided storage.
func (e *rustEmitter) callBody(fn *ir.Function, thunk string, callArgs []string, ind string) {
	if e.p.passIndirect(fn.Return) {
		retTy := e.p.rustType(fn.Return)
		args := append([]string{"__return.as_mut_ptr()"}, callArgs...)
		fmt.Fprintf(&e.buf, "%s    let mut __return = ::core::mem::MaybeUninit::<%s>::uninit();\n", ind, retTy)
		fmt.Fprintf(&e.buf, "%s    unsafe {\n", ind)
		fmt.Fprintf(&e.buf, "%s        crate::detail::%s(%s);\n", ind, thunk, strings.Join(args, ", "))
		fmt.Fprintf(&e.buf, "%s        __return.assume_init()\n", ind)
		fmt.Fprintf(&e.buf, "%s    }\n", ind)
		return
	}
	fmt.Fprintf(&e.buf, "%s    unsafe { crate::detail::%s(%s) }\n", ind, thunk, strings.Join(callArgs, ", "))
}

// thunkDecl declares one extern thunk, prepending the out-parameter when the
// return value travels indirectly.
func (e *rustEmitter) thunkDecl(fn *ir.Function, thunk string, declParams []string) {
	if e.p.passIndirect(fn.Return) {
		retTy := e.p.rustType(fn.Return)
		declParams = append([]string{fmt.Sprintf("__return: *mut %s", retTy)}, declParams...)
		e.declareThunk(fmt.Sprintf("pub(crate) fn %s(%s);", thunk, strings.Join(declParams, ", ")))
		return
	}
	e.declareThunk(fmt.Sprintf("pub(crate) fn %s(%s)%s;", thunk, strings.Join(declParams, ", "), e.retSuffix(fn.Return)))
}

func (e *rustEmitter) function(it *ir.Item, ind string) {
	fn := it.Func
	switch fn.Classify {
	case decl.FuncCtor, decl.FuncDtor:
		// Folded into the owning record's impls and specials.
		return
	}
	if fn.IsMember() {
		e.method(it)
		return
	}

	thunk := thunkName(it.Mangled)
	sigParams, declParams, callArgs := e.rustParams(fn)
	e.thunkDecl(fn, thunk, declParams)

	fmt.Fprintf(&e.buf, "%s#[inline(always)]\n", ind)
	fmt.Fprintf(&e.buf, "%spub fn %s(%s)%s {\n", ind, it.Ident, strings.Join(sigParams, ", "), e.retSuffix(fn.Return))
	e.callBody(fn, thunk, callArgs, ind)
	fmt.Fprintf(&e.buf, "%s}\n\n", ind)
}

func (e *rustEmitter) method(it *ir.Item) {
	fn := it.Func
	recPath := e.p.rustItemPath(fn.Member)
	thunk := thunkName(it.Mangled)

	recv := "&mut self"
	thisTy := fmt.Sprintf("*mut %s", recPath)
	thisArg := "self"
	if fn.Const {
		recv = "&self"
		thisTy = fmt.Sprintf("*const %s", recPath)
	}

	prmSig, prmDecl, prmArgs := e.rustParams(fn)
	declParams := append([]string{fmt.Sprintf("__this: %s", thisTy)}, prmDecl...)
	sigParams := append([]string{recv}, prmSig...)
	callArgs := append([]string{thisArg}, prmArgs...)
	ret := e.retSuffix(fn.Return)
	e.thunkDecl(fn, thunk, declParams)
	e.impls = append(e.impls, fmt.Sprintf(
		"impl %s {\n    #[inline(always)]\n    pub fn %s(%s)%s {\n%s    }\n}\n\n",
		recPath, it.Ident, strings.Join(sigParams, ", "), ret, e.methodBody(fn, thunk, callArgs)))
}

// methodBody is callBody rendered into a string for impl blocks.
func (e *rustEmitter) methodBody(fn *ir.Function, thunk string, callArgs []string) string {
	var b strings.Builder
	if e.p.passIndirect(fn.Return) {
		retTy := e.p.rustType(fn.Return)
		args := append([]string{"__return.as_mut_ptr()"}, callArgs...)
		fmt.Fprintf(&b, "        let mut __return = ::core::mem::MaybeUninit::<%s>::uninit();\n", retTy)
		b.WriteString("        unsafe {\n")
		fmt.Fprintf(&b, "            crate::detail::%s(%s);\n", thunk, strings.Join(args, ", "))
		b.WriteString("            __return.assume_init()\n")
		b.WriteString("        }\n")
		return b.String()
	}
	fmt.Fprintf(&b, "        unsafe { crate::detail::%s(%s) }\n", thunk, strings.Join(callArgs, ", "))
	return b.String()
}

func (e *rustEmitter) enum(it *ir.Item, ind string) {
	en := it.Enum
	under := e.p.rustType(en.Underlying)
	fmt.Fprintf(&e.buf, "%s#[repr(transparent)]\n%s#[derive(Clone, Copy, PartialEq, Eq)]\n", ind, ind)
	fmt.Fprintf(&e.buf, "%spub struct %s(pub %s);\n\n", ind, it.Ident, under)
	fmt.Fprintf(&e.buf, "%simpl %s {\n", ind, it.Ident)
	for _, c := range en.Enumerators {
		fmt.Fprintf(&e.buf, "%s    pub const %s: %s = %s(%d);\n", ind, c.Ident, it.Ident, it.Ident, c.Value)
	}
	fmt.Fprintf(&e.buf, "%s}\n\n", ind)
}

func (e *rustEmitter) retSuffix(ret ir.TypeID) string {
	if t, ok := e.p.mod.Types.Lookup(ret); ok && t.Kind == ir.TypeVoid {
		return ""
	}
	return " -> " + e.p.rustType(ret)
}

func (e *rustEmitter) declareThunk(line string) {
	e.thunks = append(e.thunks, line)
}

// skippedComments documents items without bindings: import-time exclusions
// and planning-time cascades, with their causal chains.
func (e *rustEmitter) skippedComments() {
	emitOne := func(it *ir.Item, reason string, chain []string) {
		fmt.Fprintf(&e.buf, "// Error while generating bindings for item '%s':\n", it.QualifiedName(e.p.mod.Items))
		fmt.Fprintf(&e.buf, "// %s\n", reason)
		for _, c := range chain {
			fmt.Fprintf(&e.buf, "//   caused by: %s\n", c)
		}
		e.buf.WriteString("\n")
	}
	for _, id := range e.p.mod.Items.All() {
		it := e.p.mod.Items.Get(id)
		if it == nil || it.Module != "" || it.Kind == ir.ItemNamespace {
			continue
		}
		if info, ok := e.p.skipped[it.ID]; ok {
			emitOne(it, info.reason, info.chain)
			continue
		}
		if it.ExcludedReason != "" {
			emitOne(it, it.ExcludedReason, nil)
		}
	}
}

func (e *rustEmitter) detailModule() {
	if len(e.thunks) == 0 {
		return
	}
	e.buf.WriteString("mod detail {\n    #[allow(unused_imports)]\n    use super::*;\n\n    extern \"C\" {\n")
	for _, t := range e.thunks {
		fmt.Fprintf(&e.buf, "        %s\n", t)
	}
	e.buf.WriteString("    }\n}\n")
}

// isOpaque reports whether the record only gets an opaque stand-in.
func isOpaque(p *plan, id ir.ItemID) bool {
	for _, o := range p.opaque {
		if o == id {
			return true
		}
	}
	return false
}

// ctorCandidates lists the bound non-special constructors of a record.
func ctorCandidates(p *plan, rec *ir.Item) []*ir.Item {
	var found []*ir.Item
	for _, id := range p.emit {
		it := p.mod.Items.Get(id)
		if it == nil || it.Func == nil || it.Func.Classify != decl.FuncCtor || it.Func.Member != rec.ID {
			continue
		}
		if isSpecialCtor(rec, it.Mangled) {
			continue
		}
		found = append(found, it)
	}
	return found
}

// singleCtor returns the unique non-special constructor item of a record, if
// exactly one bound candidate exists.
func singleCtor(p *plan, rec *ir.Item) *ir.Item {
	if cands := ctorCandidates(p, rec); len(cands) == 1 {
		return cands[0]
	}
	return nil
}

// isSpecialCtor reports whether the constructor's symbol matches one of the
// record's resolved special members (those are handled separately).
func isSpecialCtor(rec *ir.Item, mangled string) bool {
	if rec.Record == nil || mangled == "" {
		return false
	}
	for kind := decl.SpecialKind(0); kind < decl.SpecialCount; kind++ {
		if rec.Record.Specials[kind].Mangled == mangled {
			return true
		}
	}
	return false
}
