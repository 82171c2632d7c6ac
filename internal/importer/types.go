package importer

import (
	"fmt"

	"crossbind/internal/decl"
	"crossbind/internal/ir"
)

// lowerType interns the IR form of a serialized type expression. Lowering is
// total: unclassifiable inputs become TypeUnsupported values, and the use
// sites decide whether that excludes the surrounding item.
func (imp *Importer) lowerType(t decl.TypeExpr) ir.TypeID {
	types := imp.mod.Types
	switch t.Kind {
	case decl.TypeVoid:
		return types.Void()
	case decl.TypePrimitive:
		return types.Intern(ir.Type{Kind: ir.TypePrimitive, Prim: t.Prim})
	case decl.TypePointer, decl.TypeReference:
		if t.Pointee == nil {
			return types.Intern(ir.Type{Kind: ir.TypeUnsupported, Reason: "pointer without pointee"})
		}
		kind := ir.TypePointer
		if t.Kind == decl.TypeReference {
			kind = ir.TypeReference
		}
		return types.Intern(ir.Type{
			Kind:     kind,
			Pointee:  imp.lowerType(*t.Pointee),
			Nullable: t.Nullable && t.Kind == decl.TypePointer,
			Mut:      t.Mut,
		})
	case decl.TypeNamed:
		item, ok := imp.byDecl[t.Decl]
		if !ok {
			return types.Intern(ir.Type{Kind: ir.TypeUnsupported,
				Reason: fmt.Sprintf("reference to unknown declaration %d", t.Decl)})
		}
		args := make([]ir.TypeID, 0, len(t.Args))
		for _, a := range t.Args {
			args = append(args, imp.lowerType(a))
		}
		return types.Intern(ir.Type{Kind: ir.TypeRecordRef, Item: item, Args: args})
	case decl.TypeFuncPtr:
		params := make([]ir.TypeID, 0, len(t.Params))
		for _, p := range t.Params {
			params = append(params, imp.lowerType(p))
		}
		ret := types.Void()
		if t.Return != nil {
			ret = imp.lowerType(*t.Return)
		}
		return types.Intern(ir.Type{Kind: ir.TypeFuncPtr, Params: params, Return: ret})
	case decl.TypeUnsupported:
		return types.Intern(ir.Type{Kind: ir.TypeUnsupported, Reason: t.Reason})
	default:
		return types.Intern(ir.Type{Kind: ir.TypeUnsupported, Reason: "unclassified type"})
	}
}

// unsupportedReason returns the reason when the type (at any depth) is
// unsupported, "" otherwise.
func (imp *Importer) unsupportedReason(id ir.TypeID) string {
	t, ok := imp.mod.Types.Lookup(id)
	if !ok {
		return "unresolved type"
	}
	switch t.Kind {
	case ir.TypeUnsupported:
		return t.Reason
	case ir.TypePointer, ir.TypeReference:
		return imp.unsupportedReason(t.Pointee)
	case ir.TypeFuncPtr:
		if r := imp.unsupportedReason(t.Return); r != "" {
			return r
		}
		for _, p := range t.Params {
			if r := imp.unsupportedReason(p); r != "" {
				return r
			}
		}
		return ""
	case ir.TypeRecordRef:
		for _, a := range t.Args {
			if r := imp.unsupportedReason(a); r != "" {
				return r
			}
		}
		return ""
	default:
		return ""
	}
}

// incompleteByValue reports whether using this type by value requires a
// definition that is not available: a forward-declared record, or a template
// definition rather than an instantiation. Pointer/reference indirection
// resets the requirement.
func (imp *Importer) incompleteByValue(id ir.TypeID) (string, bool) {
	t, ok := imp.mod.Types.Lookup(id)
	if !ok || t.Kind != ir.TypeRecordRef {
		return "", false
	}
	item := imp.mod.Items.Get(t.Item)
	if item == nil || item.Kind != ir.ItemRecord || item.Record == nil {
		return "", false
	}
	if item.DefinedElsewhere || !item.Record.Complete {
		return fmt.Sprintf("incomplete type %q passed by value", item.Name), true
	}
	if item.Record.IsTemplate() {
		return fmt.Sprintf("template %q passed by value without instantiation", item.Name), true
	}
	return "", false
}
