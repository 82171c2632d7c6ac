package ir

import (
	"fmt"
	"strings"
)

// TypeKind enumerates the closed type-reference sum.
type TypeKind uint8

const (
	TypeInvalid TypeKind = iota
	TypeVoid
	TypePrimitive
	TypePointer
	TypeReference
	TypeRecordRef
	TypeFuncPtr
	TypeUnsupported
)

func (k TypeKind) String() string {
	switch k {
	case TypeVoid:
		return "void"
	case TypePrimitive:
		return "primitive"
	case TypePointer:
		return "pointer"
	case TypeReference:
		return "reference"
	case TypeRecordRef:
		return "record-ref"
	case TypeFuncPtr:
		return "func-ptr"
	case TypeUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("TypeKind(%d)", k)
	}
}

// Type is one interned type reference. Nested types are TypeIDs, never
// embedded values, so recursive and mutually referential types are plain
// graph edges.
type Type struct {
	Kind TypeKind

	// Primitive name ("i32", "f64", "bool", ...).
	Prim string

	// Pointer/Reference payload.
	Pointee  TypeID
	Nullable bool
	Mut      bool

	// Record/enum/alias reference with template arguments.
	Item ItemID
	Args []TypeID

	// Function pointer payload.
	Params []TypeID
	Return TypeID

	// Unsupported reason.
	Reason string
}

func (t Type) key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%s:%d:%t:%t:%d:%d", t.Kind, t.Prim, t.Pointee, t.Nullable, t.Mut, t.Item, t.Return)
	for _, a := range t.Args {
		fmt.Fprintf(&b, ":a%d", a)
	}
	for _, p := range t.Params {
		fmt.Fprintf(&b, ":p%d", p)
	}
	if t.Reason != "" {
		b.WriteString(":r")
		b.WriteString(t.Reason)
	}
	return b.String()
}

// TypeInterner provides stable TypeIDs by hashing structural descriptors.
type TypeInterner struct {
	types []Type
	index map[string]TypeID

	void TypeID
}

// NewTypeInterner constructs an interner with index 0 reserved as invalid.
func NewTypeInterner() *TypeInterner {
	in := &TypeInterner{
		types: make([]Type, 1, 64), // index 0 reserved for NoTypeID
		index: make(map[string]TypeID, 64),
	}
	in.void = in.Intern(Type{Kind: TypeVoid})
	return in
}

// Void returns the unit/void type.
func (in *TypeInterner) Void() TypeID { return in.void }

// Intern ensures the descriptor has a stable TypeID.
func (in *TypeInterner) Intern(t Type) TypeID {
	if t.Kind == TypeInvalid {
		return NoTypeID
	}
	key := t.key()
	if id, ok := in.index[key]; ok {
		return id
	}
	id := TypeID(len(in.types))
	in.types = append(in.types, t)
	in.index[key] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *TypeInterner) Lookup(id TypeID) (Type, bool) {
	if !id.IsValid() || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics on an invalid TypeID.
func (in *TypeInterner) MustLookup(id TypeID) Type {
	t, ok := in.Lookup(id)
	if !ok {
		panic("ir: invalid TypeID")
	}
	return t
}

// Len reports the number of interned types, excluding the sentinel.
func (in *TypeInterner) Len() int { return len(in.types) - 1 }
