package ir

import (
	"crossbind/internal/source"
)

// Module is one translation unit's populated declaration graph: the item
// arena, the type interner, and the file table for diagnostics. It is the
// unit the orderer and the code generator operate on.
type Module struct {
	Name  string
	Items *Items
	Types *TypeInterner
	Files *source.FileTable
}

// NewModule creates an empty module graph.
func NewModule(name string) *Module {
	return &Module{
		Name:  name,
		Items: NewItems(0),
		Types: NewTypeInterner(),
		Files: source.NewFileTable(),
	}
}

// EligibleItems returns IDs of items that survived import and policy checks,
// in declaration order.
func (m *Module) EligibleItems() []ItemID {
	var out []ItemID
	for _, id := range m.Items.All() {
		if it := m.Items.Get(id); it != nil && it.Eligible {
			out = append(out, id)
		}
	}
	return out
}
