// Package decl defines the serialized declaration graph the compiler
// frontend hands to the bindings pipeline. The graph is already fully
// type-checked and laid out by the frontend; nothing here re-derives
// semantic information, the schema only carries it.
package decl

// DeclID identifies a declaration inside one graph.
type DeclID uint32

// NoDeclID marks the absence of a declaration reference.
const NoDeclID DeclID = 0

// IsValid reports whether the ID refers to a declaration in the graph.
func (id DeclID) IsValid() bool { return id != NoDeclID }

// Kind discriminates the closed set of declaration variants. The importer
// matches over this enumeration directly; there is deliberately no open
// visitor surface.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindFunc
	KindRecord
	KindEnum
	KindTypeAlias
	KindNamespace
)

func (k Kind) String() string {
	switch k {
	case KindFunc:
		return "func"
	case KindRecord:
		return "record"
	case KindEnum:
		return "enum"
	case KindTypeAlias:
		return "type-alias"
	case KindNamespace:
		return "namespace"
	}
	return "invalid"
}

// BindMode is the per-declaration eligibility annotation propagated from
// source attributes.
type BindMode uint8

const (
	// BindDefault follows the module-level policy.
	BindDefault BindMode = iota
	// BindAllow explicitly opts the declaration in.
	BindAllow
	// BindDeny explicitly opts the declaration out.
	BindDeny
)

// Decl is one declaration in the frontend graph. Exactly one of the payload
// pointers matching Kind is non-nil.
type Decl struct {
	ID      DeclID `msgpack:"id"`
	Kind    Kind   `msgpack:"kind"`
	Name    string `msgpack:"name"`
	Mangled string `msgpack:"mangled"`
	// Owner is the enclosing namespace or record, NoDeclID for top level.
	Owner DeclID `msgpack:"owner"`
	// Module is the defining module for declarations imported from a
	// dependency; empty means the graph's own module.
	Module    string   `msgpack:"module"`
	File      uint32   `msgpack:"file"`
	SpanStart uint32   `msgpack:"span_start"`
	SpanEnd   uint32   `msgpack:"span_end"`
	Public    bool     `msgpack:"public"`
	Bind      BindMode `msgpack:"bind"`
	// Experimental marks declarations the frontend accepted only under
	// experimental features; binding them requires the matching flag.
	Experimental bool `msgpack:"experimental"`

	Record    *RecordDecl    `msgpack:"record,omitempty"`
	Func      *FuncDecl      `msgpack:"func,omitempty"`
	Enum      *EnumDecl      `msgpack:"enum,omitempty"`
	Alias     *AliasDecl     `msgpack:"alias,omitempty"`
	Namespace *NamespaceDecl `msgpack:"namespace,omitempty"`
}

// EnumDecl carries the underlying type and the enumerator list.
type EnumDecl struct {
	Underlying  TypeExpr     `msgpack:"underlying"`
	Enumerators []Enumerator `msgpack:"enumerators"`
}

// Enumerator is one named enum constant.
type Enumerator struct {
	Name  string `msgpack:"name"`
	Value int64  `msgpack:"value"`
}

// AliasDecl carries the aliased type.
type AliasDecl struct {
	Target TypeExpr `msgpack:"target"`
}

// NamespaceDecl has no payload of its own; members point at it via Owner.
type NamespaceDecl struct{}
