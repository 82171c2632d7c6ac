package keys

import (
	"sort"
)

// Set is the union of a module's direct dependencies' key tables. Transitive
// dependencies are deliberately absent: a module's public signatures can
// only mention types it imports directly.
type Set struct {
	tables map[string]*Table
}

// NewSet creates an empty dependency set.
func NewSet() *Set {
	return &Set{tables: make(map[string]*Table)}
}

// Add registers one direct dependency's table under its module name.
func (s *Set) Add(t *Table) {
	if s == nil || t == nil {
		return
	}
	s.tables[t.Module] = t
}

// Lookup searches all direct dependencies for a mangled name. Module names
// are visited in sorted order so collisions resolve deterministically.
func (s *Set) Lookup(mangled string) (module string, e Entry, ok bool) {
	if s == nil {
		return "", Entry{}, false
	}
	names := make([]string, 0, len(s.tables))
	for n := range s.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if entry, found := s.tables[n].Lookup(mangled); found {
			return n, entry, true
		}
	}
	return "", Entry{}, false
}

// Module returns the table for one dependency by name.
func (s *Set) Module(name string) (*Table, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.tables[name]
	return t, ok
}

// Len reports the number of dependency tables.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tables)
}
