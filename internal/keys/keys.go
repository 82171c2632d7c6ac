// Package keys persists per-module binding key tables: the mapping from an
// exported item's ABI identity to the symbols of its generated wrapper.
// Dependent modules consume these tables instead of re-deriving anything
// about upstream types.
package keys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the Table format changes.
const TableSchemaVersion uint16 = 1

// ErrSchemaMismatch indicates a key table written by an incompatible
// generator version. Consumers must treat referenced items as unsupported
// rather than guess at the layout of an unknown format.
var ErrSchemaMismatch = errors.New("binding key table schema mismatch")

// Entry records the generated wrapper identity of one exported item.
type Entry struct {
	// Kind is the item kind string ("record", "func", "enum", "type-alias").
	Kind string `msgpack:"kind"`
	// Wrapper is the fully-qualified wrapper path in the target language.
	Wrapper string `msgpack:"wrapper"`
	// Thunks maps operation names ("call", "default-constructor", ...) to
	// generated glue symbols.
	Thunks map[string]string `msgpack:"thunks,omitempty"`
	// Size/Align are recorded for records so dependents can emit their own
	// layout assertions without the upstream declaration graph.
	Size  int `msgpack:"size,omitempty"`
	Align int `msgpack:"align,omitempty"`
}

// Table is one module's exported binding keys, keyed by origin mangled name.
type Table struct {
	Schema  uint16           `msgpack:"schema"`
	Module  string           `msgpack:"module"`
	Entries map[string]Entry `msgpack:"entries"`
}

// NewTable creates an empty table for a module.
func NewTable(module string) *Table {
	return &Table{
		Schema:  TableSchemaVersion,
		Module:  module,
		Entries: make(map[string]Entry),
	}
}

// Add registers an exported item under its mangled name.
func (t *Table) Add(mangled string, e Entry) {
	if t == nil || mangled == "" {
		return
	}
	t.Entries[mangled] = e
}

// Lookup returns the entry for a mangled name.
func (t *Table) Lookup(mangled string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.Entries[mangled]
	return e, ok
}

// Mangled returns all keys in sorted order, for deterministic iteration.
func (t *Table) Mangled() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.Entries))
	for k := range t.Entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Load reads a key table from disk.
func Load(path string) (*Table, error) {
	// #nosec G304 -- path comes from the module manifest
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var t Table
	if err := msgpack.NewDecoder(f).Decode(&t); err != nil {
		return nil, fmt.Errorf("%s: decode key table: %w", path, err)
	}
	if t.Schema != TableSchemaVersion {
		return nil, fmt.Errorf("%s: got schema %d, want %d: %w",
			path, t.Schema, TableSchemaVersion, ErrSchemaMismatch)
	}
	return &t, nil
}

// Save writes the table through a temp file and renames it into place so a
// dependent build never observes a partial table.
func Save(path string, t *Table) error {
	f, err := os.CreateTemp(filepath.Dir(path), "bindkeys-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(t); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
