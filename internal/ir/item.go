package ir

import (
	"crossbind/internal/decl"
	"crossbind/internal/source"
)

// ItemKind discriminates the closed set of item variants.
type ItemKind uint8

const (
	ItemInvalid ItemKind = iota
	ItemFunc
	ItemRecord
	ItemEnum
	ItemTypeAlias
	ItemNamespace
)

func (k ItemKind) String() string {
	switch k {
	case ItemFunc:
		return "func"
	case ItemRecord:
		return "record"
	case ItemEnum:
		return "enum"
	case ItemTypeAlias:
		return "type-alias"
	case ItemNamespace:
		return "namespace"
	}
	return "invalid"
}

// Item is one top-level declaration in the graph. Exactly one payload
// pointer matching Kind is non-nil.
type Item struct {
	ID   ItemID
	Kind ItemKind

	// Name is the original source name; Ident is the deterministic
	// identifier-safe re-encoding used in emitted code. They differ only
	// when the source name is not a legal target identifier.
	Name    string
	Ident   string
	Mangled string

	// Module is the defining module, empty for the module being processed.
	Module string
	// Owner is the enclosing namespace (or record, for members surfaced as
	// items), NoItemID for top level.
	Owner ItemID
	Span  source.Span
	// SourceDecl links back to the frontend declaration for diagnostics.
	SourceDecl decl.DeclID

	// Eligible records the resolved binding policy for the item.
	Eligible bool
	// ExcludedReason is non-empty when the item was excluded with a
	// diagnostic; cascading exclusions chain through it.
	ExcludedReason string
	// DefinedElsewhere marks forward-declared-only records whose
	// definition lives in another translation unit. Such items may only
	// be used behind pointers/references.
	DefinedElsewhere bool

	Record    *Record
	Func      *Function
	Enum      *Enum
	Alias     *Alias
	Namespace *Namespace
}

// QualifiedName joins the owner chain with "::". Items is consulted for
// owner names; a nil arena returns just the item name.
func (it *Item) QualifiedName(items *Items) string {
	if it == nil {
		return ""
	}
	name := it.Name
	if items == nil {
		return name
	}
	for owner := items.Get(it.Owner); owner != nil; owner = items.Get(owner.Owner) {
		name = owner.Name + "::" + name
	}
	return name
}

// Enum is a bound enumeration with its underlying primitive type.
type Enum struct {
	Underlying  TypeID
	Enumerators []Enumerator
}

// Enumerator is one named constant of an enum.
type Enumerator struct {
	Name  string
	Ident string
	Value int64
}

// Alias is a bound type alias.
type Alias struct {
	Target TypeID
}

// Namespace groups items purely for scoping in emitted code; it carries no
// semantics of its own.
type Namespace struct {
	Members []ItemID
}
