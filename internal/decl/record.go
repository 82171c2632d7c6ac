package decl

// SpecialKind indexes the six special member operations of a record.
type SpecialKind uint8

const (
	SpecialDefaultCtor SpecialKind = iota
	SpecialCopyCtor
	SpecialMoveCtor
	SpecialCopyAssign
	SpecialMoveAssign
	SpecialDtor
	// SpecialCount is the number of special member kinds.
	SpecialCount
)

func (k SpecialKind) String() string {
	switch k {
	case SpecialDefaultCtor:
		return "default-constructor"
	case SpecialCopyCtor:
		return "copy-constructor"
	case SpecialMoveCtor:
		return "move-constructor"
	case SpecialCopyAssign:
		return "copy-assignment"
	case SpecialMoveAssign:
		return "move-assignment"
	case SpecialDtor:
		return "destructor"
	}
	return "invalid"
}

// SpecialAvail is how the user declared (or did not declare) one special
// member. Final triviality is derived by the importer from this plus
// base/field propagation.
type SpecialAvail uint8

const (
	// SpecialNotDeclared means the frontend saw no declaration; implicit
	// rules apply.
	SpecialNotDeclared SpecialAvail = iota
	// SpecialDefaulted means an explicitly defaulted declaration.
	SpecialDefaulted
	// SpecialUserDefined means a user-provided body exists.
	SpecialUserDefined
	// SpecialDeleted means an explicitly deleted declaration.
	SpecialDeleted
	// SpecialSuppressed means the implicit operation is suppressed by
	// other declarations (e.g. a user-declared constructor suppressing the
	// implicit default constructor); the operation simply does not exist.
	SpecialSuppressed
)

// SpecialDecl is the frontend's record of one special member declaration.
type SpecialDecl struct {
	Avail   SpecialAvail `msgpack:"avail"`
	Mangled string       `msgpack:"mangled"`
	// Trivial is the frontend oracle's own triviality claim. The importer
	// re-derives triviality from subobject propagation and treats any
	// disagreement as an internal consistency failure.
	Trivial bool `msgpack:"trivial"`
}

// Field is one data member, with layout already computed by the frontend's
// ABI oracle. Offsets are bit-precise so bitfields share the encoding.
type Field struct {
	Name       string   `msgpack:"name"`
	Type       TypeExpr `msgpack:"type"`
	OffsetBits int      `msgpack:"offset_bits"`
	// BitWidth is nonzero only for bitfield members.
	BitWidth int `msgpack:"bit_width"`
	// NoUniqueAddress marks empty members allowed to overlap other storage.
	NoUniqueAddress bool `msgpack:"no_unique_address"`
}

// OffsetBytes returns the byte offset for non-bitfield members.
func (f Field) OffsetBytes() int { return f.OffsetBits / 8 }

// Base is one direct base class relationship.
type Base struct {
	Record      DeclID `msgpack:"record"`
	OffsetBytes int    `msgpack:"offset_bytes"`
	// Virtual bases and bases reached ambiguously through multiple paths
	// do not admit address-arithmetic upcasts.
	Virtual   bool `msgpack:"virtual"`
	Ambiguous bool `msgpack:"ambiguous"`
}

// RecordDecl is a struct/class/union definition, or a forward declaration
// when Complete is false (all layout fields are then meaningless).
type RecordDecl struct {
	Complete bool `msgpack:"complete"`
	IsUnion  bool `msgpack:"is_union"`

	SizeBytes  int `msgpack:"size_bytes"`
	AlignBytes int `msgpack:"align_bytes"`
	// PassInRegisters is the frontend's ABI classification for by-value
	// passing; it decides whether thunks take the record directly or
	// through a hidden pointer.
	PassInRegisters bool `msgpack:"pass_in_registers"`

	Fields   []Field                   `msgpack:"fields"`
	Bases    []Base                    `msgpack:"bases"`
	Specials [SpecialCount]SpecialDecl `msgpack:"specials"`

	// TemplateParams is non-empty for a template definition; such records
	// are never emitted directly, only their instantiations are.
	TemplateParams []string `msgpack:"template_params"`
	// TemplateOf links an instantiation back to its template definition.
	TemplateOf   DeclID     `msgpack:"template_of"`
	TemplateArgs []TypeExpr `msgpack:"template_args"`
	// PartialSpecialization marks instantiations the frontend resolved
	// through a partial specialization; argument deduction for these is
	// not modeled and they stay unsupported.
	PartialSpecialization bool `msgpack:"partial_specialization"`
}

// IsTemplate reports whether the record is a template definition.
func (r *RecordDecl) IsTemplate() bool {
	return r != nil && len(r.TemplateParams) > 0
}

// IsInstantiation reports whether the record is a template instantiation.
func (r *RecordDecl) IsInstantiation() bool {
	return r != nil && r.TemplateOf.IsValid()
}
