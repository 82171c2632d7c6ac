package ir

import (
	"fmt"

	"fortio.org/safecast"
)

// Items stores all allocated items in a compact slice-based arena.
type Items struct {
	data []Item
}

// NewItems creates an arena with optional capacity hint.
func NewItems(capacity uint32) *Items {
	if capacity == 0 {
		capacity = 64
	}
	return &Items{
		data: make([]Item, 1, capacity+1), // index 0 reserved for NoItemID
	}
}

// New allocates an item in the arena and returns its ID.
func (s *Items) New(it *Item) ItemID {
	if it == nil {
		panic("ir: nil item")
	}
	value, err := safecast.Conv[uint32](len(s.data))
	if err != nil {
		panic(fmt.Errorf("item arena overflow: %w", err))
	}
	id := ItemID(value)
	it.ID = id
	s.data = append(s.data, *it)
	return id
}

// Get returns the item pointer or nil for an invalid ID.
func (s *Items) Get(id ItemID) *Item {
	if s == nil || !id.IsValid() || int(id) >= len(s.data) {
		return nil
	}
	return &s.data[id]
}

// Len reports the total number of items excluding the sentinel.
func (s *Items) Len() int { return len(s.data) - 1 }

// All returns item IDs in allocation order, which the importer guarantees
// matches original declaration order.
func (s *Items) All() []ItemID {
	ids := make([]ItemID, 0, s.Len())
	for i := 1; i < len(s.data); i++ {
		ids = append(ids, ItemID(i)) //nolint:gosec // bounded by arena growth checks
	}
	return ids
}
