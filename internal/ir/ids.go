// Package ir is the language-neutral declaration graph the pipeline works
// on. Items live in a flat arena and reference each other only through
// ItemIDs, so cyclic type graphs are ordinary edges rather than
// self-referential values.
package ir

// ItemID identifies an item inside one module's arena.
type ItemID uint32

// NoItemID marks the absence of an item reference.
const NoItemID ItemID = 0

// IsValid reports whether the ID refers to an allocated item.
func (id ItemID) IsValid() bool { return id != NoItemID }

// TypeID identifies an interned type reference.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// IsValid reports whether the ID refers to an interned type.
func (id TypeID) IsValid() bool { return id != NoTypeID }
