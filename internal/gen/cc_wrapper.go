package gen

import (
	"fmt"
	"strings"

	"crossbind/internal/decl"
	"crossbind/internal/ir"
)

// ccEmitter writes the C++-side wrapper header for a Rust-like origin.
// Layout is fixed: namespaced type definitions first, then the extern "C"
// thunk declarations, then out-of-line inline function bodies, then the
// layout assertions. The split lets thunk signatures and bodies name any
// wrapper type regardless of declaration order.
type ccEmitter struct {
	p   *plan
	buf strings.Builder

	thunks  []string
	inlines []string
	asserts []string
}

func emitCCWrapper(p *plan) string {
	e := &ccEmitter{p: p}
	e.preamble()

	fmt.Fprintf(&e.buf, "namespace %s {\n\n", crateName(p.mod.Name))
	e.scope(nsTree(p), 0)
	fmt.Fprintf(&e.buf, "}  // namespace %s\n\n", crateName(p.mod.Name))

	e.detailBlock()
	for _, def := range e.inlines {
		e.buf.WriteString(def)
	}
	for _, a := range e.asserts {
		e.buf.WriteString(a)
	}
	e.skippedComments()
	return e.buf.String()
}

func (e *ccEmitter) preamble() {
	fmt.Fprintf(&e.buf, "// Generated bindings for module %q. Do not edit.\n\n", e.p.mod.Name)
	e.buf.WriteString("#pragma once\n\n#include <cstddef>\n#include <cstdint>\n#include <memory>\n#include <utility>\n\n")
}

func (e *ccEmitter) scope(node *nsNode, depth int) {
	ind := strings.Repeat("  ", depth)
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
			fmt.Fprintf(&e.buf, "%susing %s = %s;\n\n", ind, it.Ident, e.p.ccType(it.Alias.Target))
		}
	}
	for _, c := range node.children {
		ns := e.p.mod.Items.Get(c.id)
		if ns == nil {
			continue
		}
		fmt.Fprintf(&e.buf, "%snamespace %s {\n\n", ind, ns.Ident)
		e.scope(c, depth+1)
		fmt.Fprintf(&e.buf, "%s}  // namespace %s\n\n", ind, ns.Ident)
	}
}

func (e *ccEmitter) record(it *ir.Item, ind string) {
	rec := it.Record
	if isOpaque(e.p, it.ID) {
		fmt.Fprintf(&e.buf, "%s// Incomplete type; usable only behind pointers.\n", ind)
		fmt.Fprintf(&e.buf, "%sstruct %s;\n\n", ind, it.Ident)
		return
	}

	path := e.p.ccItemPath(it.ID)
	fmt.Fprintf(&e.buf, "%sstruct alignas(%d) %s final {\n", ind, rec.Align, it.Ident)
	e.specialDecls(it, path, ind)
	e.memberDecls(it, ind)
	e.fields(rec, ind)
	fmt.Fprintf(&e.buf, "%s};\n\n", ind)

	e.layoutAsserts(it, path)
}

// specialDecls declares the special members inside the struct and queues
// their out-of-line bodies where a thunk call is needed.
func (e *ccEmitter) specialDecls(it *ir.Item, path, ind string) {
	rec := it.Record
	in := ind + "  "

	switch rec.Special(decl.SpecialDefaultCtor).State {
	case ir.SpecialTrivial:
		fmt.Fprintf(&e.buf, "%s%s() = default;\n", in, it.Ident)
	case ir.SpecialNonTrivial:
		fmt.Fprintf(&e.buf, "%s%s();\n", in, it.Ident)
		thunk := specialThunkName(it.Mangled, decl.SpecialDefaultCtor)
		e.declareThunk(fmt.Sprintf("void %s(%s* __this);", thunk, path))
		e.inlines = append(e.inlines, fmt.Sprintf("inline %s::%s() {\n  %sdetail::%s(this);\n}\n\n", path, it.Ident, e.detailNS(), thunk))
	default:
		fmt.Fprintf(&e.buf, "%s%s() = delete;\n", in, it.Ident)
	}

	switch rec.Special(decl.SpecialCopyCtor).State {
	case ir.SpecialTrivial:
		fmt.Fprintf(&e.buf, "%s%s(const %s&) = default;\n", in, it.Ident, it.Ident)
	case ir.SpecialNonTrivial:
		fmt.Fprintf(&e.buf, "%s%s(const %s&);\n", in, it.Ident, it.Ident)
		thunk := specialThunkName(it.Mangled, decl.SpecialCopyCtor)
		e.declareThunk(fmt.Sprintf("void %s(%s* __this, const %s* __param_0);", thunk, path, path))
		e.inlines = append(e.inlines, fmt.Sprintf("inline %s::%s(const %s& other) {\n  %sdetail::%s(this, &other);\n}\n\n",
			path, it.Ident, it.Ident, e.detailNS(), thunk))
	default:
		fmt.Fprintf(&e.buf, "%s%s(const %s&) = delete;\n", in, it.Ident, it.Ident)
	}

	switch rec.Special(decl.SpecialDtor).State {
	case ir.SpecialTrivial:
		fmt.Fprintf(&e.buf, "%s~%s() = default;\n", in, it.Ident)
	case ir.SpecialNonTrivial:
		fmt.Fprintf(&e.buf, "%s~%s();\n", in, it.Ident)
		thunk := specialThunkName(it.Mangled, decl.SpecialDtor)
		e.declareThunk(fmt.Sprintf("void %s(%s* __this);", thunk, path))
		e.inlines = append(e.inlines, fmt.Sprintf("inline %s::~%s() {\n  %sdetail::%s(this);\n}\n\n", path, it.Ident, e.detailNS(), thunk))
	default:
		fmt.Fprintf(&e.buf, "%s~%s() = delete;\n", in, it.Ident)
	}
	e.buf.WriteString("\n")
}

// memberDecls declares bound methods and constructors inside the struct;
// bodies go out of line after the thunk block.
func (e *ccEmitter) memberDecls(it *ir.Item, ind string) {
	in := ind + "  "
	path := e.p.ccItemPath(it.ID)
	declared := false
	for _, fid := range e.p.emit {
		fn := e.p.mod.Items.Get(fid)
		if fn == nil || fn.Func == nil || fn.Func.Member != it.ID {
			continue
		}
		switch fn.Func.Classify {
		case decl.FuncDtor:
			continue
		case decl.FuncCtor:
			if isSpecialCtor(it, fn.Mangled) {
				continue
			}
			e.ctorMember(it, fn, path, in)
		default:
			e.methodMember(fn, path, in)
		}
		declared = true
	}
	if declared {
		e.buf.WriteString("\n")
	}
}

func (e *ccEmitter) ctorMember(rec, it *ir.Item, path, in string) {
	fn := it.Func
	params, args := e.wrapperParams(fn)
	fmt.Fprintf(&e.buf, "%sexplicit %s(%s);\n", in, rec.Ident, strings.Join(params, ", "))

	thunkParams := append([]string{fmt.Sprintf("%s* __this", path)}, params...)
	thunkArgs := append([]string{"this"}, args...)
	thunk := thunkName(it.Mangled)
	e.declareThunk(fmt.Sprintf("void %s(%s);", thunk, strings.Join(thunkParams, ", ")))
	e.inlines = append(e.inlines, fmt.Sprintf("inline %s::%s(%s) {\n  %sdetail::%s(%s);\n}\n\n",
		path, rec.Ident, strings.Join(params, ", "), e.detailNS(), thunk, strings.Join(thunkArgs, ", ")))
}

func (e *ccEmitter) methodMember(it *ir.Item, path, in string) {
	fn := it.Func
	params, args := e.wrapperParams(fn)
	ret := e.p.ccType(fn.Return)
	qual := ""
	thisTy := path + "*"
	if fn.Const {
		qual = " const"
		thisTy = "const " + path + "*"
	}
	fmt.Fprintf(&e.buf, "%s%s %s(%s)%s;\n", in, ret, it.Ident, strings.Join(params, ", "), qual)

	thunkParams := append([]string{thisTy + " __this"}, params...)
	thunkArgs := append([]string{"this"}, args...)
	thunk := thunkName(it.Mangled)
	e.declareThunk(fmt.Sprintf("%s %s(%s);", ret, thunk, strings.Join(thunkParams, ", ")))
	body := fmt.Sprintf("%sdetail::%s(%s)", e.detailNS(), thunk, strings.Join(thunkArgs, ", "))
	e.inlines = append(e.inlines, fmt.Sprintf("inline %s %s::%s(%s)%s {\n  %s;\n}\n\n",
		ret, path, it.Ident, strings.Join(params, ", "), qual, e.returnExpr(fn.Return, body)))
}

// fields renders data members. Storage preceding the first member (the whole
// object for field-less records) is reserved as an opaque blob so the struct
// keeps the recorded size and offsets.
func (e *ccEmitter) fields(rec *ir.Record, ind string) {
	in := ind + "  "
	if lead := leadingBytes(rec); lead > 0 {
		fmt.Fprintf(&e.buf, "%sunsigned char __non_field_data[%d];\n", in, lead)
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
			fmt.Fprintf(&e.buf, "%sunsigned char __bitfields%d[%d];\n", in, blobIdx, bytes)
			blobIdx++
			i = j
		case f.NoUniqueAddress:
			fmt.Fprintf(&e.buf, "%s// %q occupies no unique storage at offset %d.\n", in, f.Name, f.OffsetBytes())
			i++
		default:
			fmt.Fprintf(&e.buf, "%s%s %s;\n", in, e.p.ccType(f.Type), f.Ident)
			i++
		}
	}
}

func (e *ccEmitter) layoutAsserts(it *ir.Item, path string) {
	rec := it.Record
	e.asserts = append(e.asserts, fmt.Sprintf("static_assert(sizeof(%s) == %d);\n", path, rec.Size))
	e.asserts = append(e.asserts, fmt.Sprintf("static_assert(alignof(%s) == %d);\n", path, rec.Align))
	for _, f := range rec.Fields {
		if f.IsBitfield() || f.NoUniqueAddress {
			continue
		}
		e.asserts = append(e.asserts, fmt.Sprintf("static_assert(offsetof(%s, %s) * 8 == %d);\n", path, f.Ident, f.OffsetBits))
	}
}

func (e *ccEmitter) function(it *ir.Item, ind string) {
	fn := it.Func
	if fn.IsMember() {
		// Declared inside the owning record.
		return
	}
	params, args := e.wrapperParams(fn)
	ret := e.p.ccType(fn.Return)
	thunk := thunkName(it.Mangled)
	e.declareThunk(fmt.Sprintf("%s %s(%s);", ret, thunk, strings.Join(params, ", ")))

	fmt.Fprintf(&e.buf, "%s%s %s(%s);\n\n", ind, ret, it.Ident, strings.Join(params, ", "))
	body := fmt.Sprintf("%sdetail::%s(%s)", e.detailNS(), thunk, strings.Join(args, ", "))
	e.inlines = append(e.inlines, fmt.Sprintf("inline %s %s(%s) {\n  %s;\n}\n\n",
		ret, e.p.ccItemPath(it.ID), strings.Join(params, ", "), e.returnExpr(fn.Return, body)))
}

func (e *ccEmitter) enum(it *ir.Item, ind string) {
	en := it.Enum
	fmt.Fprintf(&e.buf, "%senum class %s : %s {\n", ind, it.Ident, e.p.ccType(en.Underlying))
	for _, c := range en.Enumerators {
		fmt.Fprintf(&e.buf, "%s  %s = %d,\n", ind, c.Ident, c.Value)
	}
	fmt.Fprintf(&e.buf, "%s};\n\n", ind)
}

func (e *ccEmitter) wrapperParams(fn *ir.Function) (params, args []string) {
	for _, prm := range fn.Params {
		params = append(params, fmt.Sprintf("%s %s", e.p.ccType(prm.Type), prm.Ident))
		args = append(args, prm.Ident)
	}
	return params, args
}

func (e *ccEmitter) returnExpr(ret ir.TypeID, call string) string {
	if t, ok := e.p.mod.Types.Lookup(ret); ok && t.Kind == ir.TypeVoid {
		return call
	}
	return "return " + call
}

func (e *ccEmitter) declareThunk(line string) {
	e.thunks = append(e.thunks, line)
}

// detailNS qualifies the thunk namespace for out-of-line bodies, which live
// at global scope.
func (e *ccEmitter) detailNS() string {
	return "::" + crateName(e.p.mod.Name) + "::"
}

func (e *ccEmitter) detailBlock() {
	if len(e.thunks) == 0 {
		return
	}
	fmt.Fprintf(&e.buf, "namespace %s::detail {\n\nextern \"C\" {\n", crateName(e.p.mod.Name))
	for _, t := range e.thunks {
		fmt.Fprintf(&e.buf, "%s\n", t)
	}
	e.buf.WriteString("}\n\n}  // namespace detail\n\n")
}

func (e *ccEmitter) skippedComments() {
	for _, id := range e.p.mod.Items.All() {
		it := e.p.mod.Items.Get(id)
		if it == nil || it.Module != "" || it.Kind == ir.ItemNamespace {
			continue
		}
		if info, ok := e.p.skipped[id]; ok {
			e.errorComment(it, info.reason, info.chain)
			continue
		}
		if it.ExcludedReason != "" {
			e.errorComment(it, it.ExcludedReason, nil)
		}
	}
}

func (e *ccEmitter) errorComment(it *ir.Item, reason string, chain []string) {
	fmt.Fprintf(&e.buf, "// Error while generating bindings for item '%s':\n", it.QualifiedName(e.p.mod.Items))
	fmt.Fprintf(&e.buf, "// %s\n", reason)
	for _, c := range chain {
		fmt.Fprintf(&e.buf, "//   caused by: %s\n", c)
	}
	e.buf.WriteString("\n")
}
