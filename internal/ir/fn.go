package ir

import (
	"crossbind/internal/decl"
)

// Param is one bound function parameter. Unnamed parameters get positional
// idents during import.
type Param struct {
	Name    string
	Ident   string
	Type    TypeID
	ByValue bool
}

// Function is a bound callable.
type Function struct {
	Params   []Param
	Return   TypeID
	CallConv decl.CallConv
	// Member is the owning record item for methods/ctors/dtors/operators.
	Member   ItemID
	Classify decl.FuncClass
	// Const marks methods with a read-only receiver.
	Const bool
	// Inline functions have no linkable origin symbol; the glue thunk is
	// the only entry point.
	Inline bool
}

// IsMember reports whether the function belongs to a record.
func (f *Function) IsMember() bool { return f != nil && f.Member.IsValid() }
