package decl

// TypeKind discriminates serialized type expressions.
type TypeKind uint8

const (
	TypeInvalid TypeKind = iota
	// TypePrimitive is a builtin scalar named by Prim ("i32", "f64", ...).
	TypePrimitive
	// TypePointer and TypeReference both point at Pointee; references are
	// non-null by construction, pointers carry Nullable.
	TypePointer
	TypeReference
	// TypeNamed references a record/enum/alias declaration, with template
	// arguments for instantiations.
	TypeNamed
	// TypeFuncPtr is a function pointer with Params/Return.
	TypeFuncPtr
	// TypeUnsupported is a type the frontend could not classify; Reason
	// explains why.
	TypeUnsupported
	// TypeVoid is the unit return type.
	TypeVoid
)

// TypeExpr is the recursive serialized form of a type reference.
type TypeExpr struct {
	Kind TypeKind `msgpack:"kind"`

	Prim     string    `msgpack:"prim,omitempty"`
	Pointee  *TypeExpr `msgpack:"pointee,omitempty"`
	Nullable bool      `msgpack:"nullable,omitempty"`
	Mut      bool      `msgpack:"mut,omitempty"`

	Decl DeclID     `msgpack:"decl,omitempty"`
	Args []TypeExpr `msgpack:"args,omitempty"`

	Params []TypeExpr `msgpack:"params,omitempty"`
	Return *TypeExpr  `msgpack:"return,omitempty"`

	Reason string `msgpack:"reason,omitempty"`
}

// Void returns the unit type expression.
func Void() TypeExpr { return TypeExpr{Kind: TypeVoid} }

// Primitive returns a builtin scalar type expression.
func Primitive(name string) TypeExpr {
	return TypeExpr{Kind: TypePrimitive, Prim: name}
}

// Named returns a reference to a declared type.
func Named(id DeclID, args ...TypeExpr) TypeExpr {
	return TypeExpr{Kind: TypeNamed, Decl: id, Args: args}
}

// PointerTo returns a pointer type expression.
func PointerTo(pointee TypeExpr, nullable, mut bool) TypeExpr {
	return TypeExpr{Kind: TypePointer, Pointee: &pointee, Nullable: nullable, Mut: mut}
}

// ReferenceTo returns a reference type expression.
func ReferenceTo(pointee TypeExpr, mut bool) TypeExpr {
	return TypeExpr{Kind: TypeReference, Pointee: &pointee, Mut: mut}
}

// Unsupported returns an unclassifiable type expression.
func Unsupported(reason string) TypeExpr {
	return TypeExpr{Kind: TypeUnsupported, Reason: reason}
}
