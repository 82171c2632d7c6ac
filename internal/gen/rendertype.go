package gen

import (
	"fmt"
	"strings"

	"crossbind/internal/ir"
)

// Primitive spellings are language-neutral in the declaration graph
// ("i32", "u64", "f32", "bool", "char", "usize", ...); each renderer maps
// them to its own syntax.
var ccPrims = map[string]string{
	"bool":  "bool",
	"char":  "char",
	"i8":    "std::int8_t",
	"u8":    "std::uint8_t",
	"i16":   "std::int16_t",
	"u16":   "std::uint16_t",
	"i32":   "std::int32_t",
	"u32":   "std::uint32_t",
	"i64":   "std::int64_t",
	"u64":   "std::uint64_t",
	"isize": "std::ptrdiff_t",
	"usize": "std::size_t",
	"f32":   "float",
	"f64":   "double",
}

// rustType renders a type for the Rust-side artifact. local resolves a local
// record item to a Rust path; external items use their binding key wrapper
// path verbatim.
func (p *plan) rustType(tid ir.TypeID) string {
	t, ok := p.mod.Types.Lookup(tid)
	if !ok {
		return "()"
	}
	switch t.Kind {
	case ir.TypeVoid:
		return "()"
	case ir.TypePrimitive:
		return t.Prim
	case ir.TypePointer:
		if t.Mut {
			return "*mut " + p.rustType(t.Pointee)
		}
		return "*const " + p.rustType(t.Pointee)
	case ir.TypeReference:
		if t.Mut {
			return "&mut " + p.rustType(t.Pointee)
		}
		return "&" + p.rustType(t.Pointee)
	case ir.TypeRecordRef:
		return p.rustItemPath(t.Item)
	case ir.TypeFuncPtr:
		params := make([]string, 0, len(t.Params))
		for _, prm := range t.Params {
			params = append(params, p.rustType(prm))
		}
		sig := fmt.Sprintf("extern \"C\" fn(%s)", strings.Join(params, ", "))
		if ret, ok := p.mod.Types.Lookup(t.Return); !ok || ret.Kind != ir.TypeVoid {
			sig += " -> " + p.rustType(t.Return)
		}
		return sig
	default:
		return "()"
	}
}

// rustItemPath is the crate-absolute Rust path for a referenced item.
func (p *plan) rustItemPath(id ir.ItemID) string {
	it := p.mod.Items.Get(id)
	if it == nil {
		return "()"
	}
	if it.Module != "" {
		if entry, ok := p.externalEntry(id); ok {
			return entry.Wrapper
		}
		return "()"
	}
	parts := append([]string{"crate"}, nsChain(p.mod, it)...)
	parts = append(parts, it.Ident)
	return strings.Join(parts, "::")
}

// ccType renders a type for the C++-side artifact in wrapper (target)
// position: record references resolve to generated wrapper paths.
func (p *plan) ccType(tid ir.TypeID) string {
	t, ok := p.mod.Types.Lookup(tid)
	if !ok {
		return "void"
	}
	switch t.Kind {
	case ir.TypeVoid:
		return "void"
	case ir.TypePrimitive:
		if cc, ok := ccPrims[t.Prim]; ok {
			return cc
		}
		return t.Prim
	case ir.TypePointer:
		return p.ccPointee(t) + "*"
	case ir.TypeReference:
		return p.ccPointee(t) + "&"
	case ir.TypeRecordRef:
		return p.ccItemPath(t.Item)
	case ir.TypeFuncPtr:
		params := make([]string, 0, len(t.Params))
		for _, prm := range t.Params {
			params = append(params, p.ccType(prm))
		}
		return fmt.Sprintf("%s (*)(%s)", p.ccType(t.Return), strings.Join(params, ", "))
	default:
		return "void"
	}
}

func (p *plan) ccPointee(t ir.Type) string {
	inner := p.ccType(t.Pointee)
	if !t.Mut {
		return "const " + inner
	}
	return inner
}

// ccItemPath is the qualified C++ path of a referenced item's wrapper.
func (p *plan) ccItemPath(id ir.ItemID) string {
	it := p.mod.Items.Get(id)
	if it == nil {
		return "void"
	}
	if it.Module != "" {
		if entry, ok := p.externalEntry(id); ok {
			return entry.Wrapper
		}
		return "void"
	}
	parts := append([]string{"", crateName(p.mod.Name)}, nsChain(p.mod, it)...)
	parts = append(parts, it.Ident)
	return strings.Join(parts, "::")
}

// originType renders a type in the origin C++ source for glue thunks, using
// original unescaped names.
func (p *plan) originTypeCC(tid ir.TypeID) string {
	t, ok := p.mod.Types.Lookup(tid)
	if !ok {
		return "void"
	}
	switch t.Kind {
	case ir.TypeVoid:
		return "void"
	case ir.TypePrimitive:
		if cc, ok := ccPrims[t.Prim]; ok {
			return cc
		}
		return t.Prim
	case ir.TypePointer:
		inner := p.originTypeCC(t.Pointee)
		if !t.Mut {
			inner = "const " + inner
		}
		return inner + "*"
	case ir.TypeReference:
		inner := p.originTypeCC(t.Pointee)
		if !t.Mut {
			inner = "const " + inner
		}
		return inner + "&"
	case ir.TypeRecordRef:
		it := p.mod.Items.Get(t.Item)
		if it == nil {
			return "void"
		}
		return originPathCC(p.mod, it)
	case ir.TypeFuncPtr:
		params := make([]string, 0, len(t.Params))
		for _, prm := range t.Params {
			params = append(params, p.originTypeCC(prm))
		}
		return fmt.Sprintf("%s (*)(%s)", p.originTypeCC(t.Return), strings.Join(params, ", "))
	default:
		return "void"
	}
}

// originTypeRust renders a type in origin Rust source for rs glue thunks.
func (p *plan) originTypeRust(tid ir.TypeID) string {
	t, ok := p.mod.Types.Lookup(tid)
	if !ok {
		return "()"
	}
	switch t.Kind {
	case ir.TypeRecordRef:
		it := p.mod.Items.Get(t.Item)
		if it == nil {
			return "()"
		}
		if it.Module != "" {
			// Origin-side code refers to the dependency crate directly.
			return "::" + crateName(it.Module) + "::" + it.Name
		}
		return originPathRust(p.mod, it)
	case ir.TypePointer:
		if t.Mut {
			return "*mut " + p.originTypeRust(t.Pointee)
		}
		return "*const " + p.originTypeRust(t.Pointee)
	case ir.TypeReference:
		if t.Mut {
			return "&mut " + p.originTypeRust(t.Pointee)
		}
		return "&" + p.originTypeRust(t.Pointee)
	default:
		return p.rustType(tid)
	}
}
