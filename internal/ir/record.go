package ir

import (
	"crossbind/internal/decl"
)

// SpecialState is the resolved classification of one special member after
// combining the user's declarations with base/field propagation.
type SpecialState uint8

const (
	// SpecialUnavailable means the operation does not exist (never
	// declared and not implicitly generatable).
	SpecialUnavailable SpecialState = iota
	// SpecialTrivial means the target language's own default semantics
	// apply; no thunk is generated.
	SpecialTrivial
	// SpecialNonTrivial means a glue thunk must call the origin
	// implementation.
	SpecialNonTrivial
	// SpecialDeleted means the operation is explicitly unavailable and the
	// wrapper must not synthesize a default either.
	SpecialDeleted
)

func (s SpecialState) String() string {
	switch s {
	case SpecialUnavailable:
		return "unavailable"
	case SpecialTrivial:
		return "trivial"
	case SpecialNonTrivial:
		return "non-trivial"
	case SpecialDeleted:
		return "deleted"
	}
	return "invalid"
}

// SpecialMember is one resolved special member operation.
type SpecialMember struct {
	State SpecialState
	// Mangled is the origin symbol for user-defined operations; empty for
	// trivial/implicit ones (the glue thunk then uses placement defaults).
	Mangled string
}

// Callable reports whether generated code may invoke the operation.
func (m SpecialMember) Callable() bool {
	return m.State == SpecialTrivial || m.State == SpecialNonTrivial
}

// Field is one record data member with frontend-computed layout.
type Field struct {
	Name  string
	Ident string
	Type  TypeID
	// OffsetBits is bit-precise so bitfields share the encoding.
	OffsetBits int
	BitWidth   int
	// NoUniqueAddress fields occupy a valid offset but are excluded from
	// generated offset/size assertions.
	NoUniqueAddress bool
}

// OffsetBytes returns the byte offset for non-bitfield members.
func (f Field) OffsetBytes() int { return f.OffsetBits / 8 }

// IsBitfield reports whether the field is a bitfield member.
func (f Field) IsBitfield() bool { return f.BitWidth != 0 }

// Base is one direct base class edge.
type Base struct {
	Item   ItemID
	Offset int
	// SafeUpcast permits address-arithmetic upcasts to this base. Virtual
	// and ambiguous bases never qualify.
	SafeUpcast bool
}

// TemplateInfo exists on template definitions only. Instantiations lists the
// concrete records observed in use by reachable eligible items; nothing else
// is ever monomorphized.
type TemplateInfo struct {
	Params         []string
	Instantiations []ItemID
}

// Record is a struct/class/union item.
type Record struct {
	Complete bool
	IsUnion  bool

	Size  int
	Align int
	// PassInRegisters mirrors the frontend's ABI classification for
	// by-value passing.
	PassInRegisters bool

	Fields   []Field
	Bases    []Base
	Specials [decl.SpecialCount]SpecialMember

	// NoSafeUpcast is set when any base relationship has non-trivial
	// layout (virtual or ambiguous); no address-conversion helpers are
	// generated for such records.
	NoSafeUpcast bool

	Template        *TemplateInfo
	InstantiationOf ItemID
	TemplateArgs    []TypeID
}

// IsTemplate reports whether the record is a template definition.
func (r *Record) IsTemplate() bool { return r != nil && r.Template != nil }

// Special returns the resolved special member of the given kind.
func (r *Record) Special(kind decl.SpecialKind) SpecialMember {
	if r == nil || kind >= decl.SpecialCount {
		return SpecialMember{}
	}
	return r.Specials[kind]
}

// TriviallyDestructible reports whether destruction needs no thunk.
func (r *Record) TriviallyDestructible() bool {
	return r.Special(decl.SpecialDtor).State == SpecialTrivial
}

// TriviallyCopyable reports whether copy construction needs no thunk.
func (r *Record) TriviallyCopyable() bool {
	return r.Special(decl.SpecialCopyCtor).State == SpecialTrivial
}

// TriviallyMovable reports whether move construction needs no thunk.
func (r *Record) TriviallyMovable() bool {
	return r.Special(decl.SpecialMoveCtor).State == SpecialTrivial
}
