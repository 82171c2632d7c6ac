package decl

// CallConv is the frontend-reported calling convention tag.
type CallConv uint8

const (
	CallConvC CallConv = iota
	CallConvThis
	CallConvFast
	CallConvVector
	CallConvOther
)

func (c CallConv) String() string {
	switch c {
	case CallConvC:
		return "c"
	case CallConvThis:
		return "thiscall"
	case CallConvFast:
		return "fastcall"
	case CallConvVector:
		return "vectorcall"
	}
	return "other"
}

// FuncClass distinguishes the member-function flavors that need different
// thunk shapes.
type FuncClass uint8

const (
	FuncFree FuncClass = iota
	FuncMethod
	FuncCtor
	FuncDtor
	FuncOperator
)

func (c FuncClass) String() string {
	switch c {
	case FuncFree:
		return "free"
	case FuncMethod:
		return "method"
	case FuncCtor:
		return "constructor"
	case FuncDtor:
		return "destructor"
	case FuncOperator:
		return "operator"
	}
	return "invalid"
}

// Param is one function parameter. Name may be empty.
type Param struct {
	Name    string   `msgpack:"name"`
	Type    TypeExpr `msgpack:"type"`
	ByValue bool     `msgpack:"by_value"`
}

// FuncDecl describes a callable declaration.
type FuncDecl struct {
	Params   []Param  `msgpack:"params"`
	Return   TypeExpr `msgpack:"return"`
	CallConv CallConv `msgpack:"call_conv"`
	// Member is the owning record for methods/ctors/dtors/operators.
	Member   DeclID    `msgpack:"member"`
	Classify FuncClass `msgpack:"classify"`
	// Const marks methods with a read-only receiver.
	Const bool `msgpack:"const"`
	// Inline marks header-defined functions, which have no linkable symbol
	// of their own and always need a glue thunk.
	Inline bool `msgpack:"inline"`
	// AmbiguousOverload marks overloads the frontend could not uniquely
	// resolve for binding purposes.
	AmbiguousOverload bool `msgpack:"ambiguous_overload"`
}
