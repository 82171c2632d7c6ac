package gen

import (
	"strings"

	"crossbind/internal/decl"
	"crossbind/internal/ir"
	"crossbind/internal/keys"
)

const thunkPrefix = "__crossbind_thunk_"
const upcastPrefix = "__crossbind_upcast_"

// thunkName is the flat, mangling-independent entry point for one function.
func thunkName(mangled string) string {
	return thunkPrefix + mangled
}

var specialSuffix = [decl.SpecialCount]string{
	decl.SpecialDefaultCtor: "_ctor",
	decl.SpecialCopyCtor:    "_copy",
	decl.SpecialMoveCtor:    "_move",
	decl.SpecialCopyAssign:  "_assign",
	decl.SpecialMoveAssign:  "_move_assign",
	decl.SpecialDtor:        "_dtor",
}

// specialThunkName names the glue thunk for one non-trivial special member.
func specialThunkName(recordMangled string, kind decl.SpecialKind) string {
	return thunkPrefix + recordMangled + specialSuffix[kind]
}

// upcastThunkName names the address-conversion helper from derived to base.
func upcastThunkName(derivedMangled, baseMangled string) string {
	return upcastPrefix + derivedMangled + "_to_" + baseMangled
}

// leadingBytes is the storage that precedes the first data member: base
// subobjects, vtable pointers, or the whole object for records with no
// members at all. The wrapper reserves it as an opaque blob.
func leadingBytes(rec *ir.Record) int {
	for _, f := range rec.Fields {
		if f.NoUniqueAddress {
			continue
		}
		return f.OffsetBits / 8
	}
	return rec.Size
}

// crateName sanitizes a module name into a target-language crate/namespace
// identifier.
func crateName(module string) string {
	return strings.NewReplacer("-", "_", ".", "_", "/", "_").Replace(module)
}

// nsChain returns the namespace idents enclosing an item, outermost first.
// Record owners (for members) are skipped; only namespaces scope paths.
func nsChain(mod *ir.Module, it *ir.Item) []string {
	var rev []string
	for owner := mod.Items.Get(it.Owner); owner != nil; owner = mod.Items.Get(owner.Owner) {
		if owner.Kind == ir.ItemNamespace {
			rev = append(rev, owner.Ident)
		}
	}
	out := make([]string, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}

// wrapperPath is the fully-qualified target-language path of an item's
// generated wrapper; it is what goes into the binding key table.
func wrapperPath(mod *ir.Module, it *ir.Item) string {
	parts := append([]string{crateName(mod.Name)}, nsChain(mod, it)...)
	parts = append(parts, it.Ident)
	return "::" + strings.Join(parts, "::")
}

// originPathCC is the origin-language qualified name for glue code, using
// original (unescaped) names.
func originPathCC(mod *ir.Module, it *ir.Item) string {
	var rev []string
	for owner := mod.Items.Get(it.Owner); owner != nil; owner = mod.Items.Get(owner.Owner) {
		rev = append(rev, owner.Name)
	}
	var b strings.Builder
	b.WriteString("::")
	for i := len(rev) - 1; i >= 0; i-- {
		b.WriteString(rev[i])
		b.WriteString("::")
	}
	b.WriteString(it.Name)
	return b.String()
}

// originPathRust is the origin crate path for rs glue code.
func originPathRust(mod *ir.Module, it *ir.Item) string {
	parts := append([]string{"", crateName(mod.Name)}, nsChain(mod, it)...)
	parts = append(parts, it.Name)
	return strings.Join(parts, "::")
}

// exportKeys builds the module's binding key table from the emitted items.
func exportKeys(p *plan) *keys.Table {
	table := keys.NewTable(p.mod.Name)
	for _, id := range p.emit {
		it := p.mod.Items.Get(id)
		if it == nil || it.Mangled == "" {
			continue
		}
		entry := keys.Entry{
			Kind:    it.Kind.String(),
			Wrapper: wrapperPath(p.mod, it),
		}
		switch {
		case it.Func != nil:
			entry.Thunks = map[string]string{"call": thunkName(it.Mangled)}
		case it.Record != nil:
			entry.Size = it.Record.Size
			entry.Align = it.Record.Align
			thunks := make(map[string]string)
			for kind := decl.SpecialKind(0); kind < decl.SpecialCount; kind++ {
				if it.Record.Specials[kind].State == ir.SpecialNonTrivial {
					thunks[kind.String()] = specialThunkName(it.Mangled, kind)
				}
			}
			if !it.Record.NoSafeUpcast {
				for _, b := range it.Record.Bases {
					if !b.SafeUpcast {
						continue
					}
					if base := p.mod.Items.Get(b.Item); base != nil {
						thunks["upcast:"+base.Mangled] = upcastThunkName(it.Mangled, base.Mangled)
					}
				}
			}
			if len(thunks) > 0 {
				entry.Thunks = thunks
			}
		}
		table.Add(it.Mangled, entry)
	}
	return table
}
