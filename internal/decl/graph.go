package decl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the Graph format changes.
const GraphSchemaVersion uint16 = 1

// ErrSchemaMismatch indicates a graph file written by an incompatible
// frontend version.
var ErrSchemaMismatch = errors.New("declaration graph schema mismatch")

// Graph is one translation unit's declaration graph as serialized by the
// frontend. Decls preserves original declaration order; Decls[i].ID is
// always DeclID(i+1), with 0 reserved for NoDeclID.
type Graph struct {
	Schema uint16   `msgpack:"schema"`
	Module string   `msgpack:"module"`
	Files  []string `msgpack:"files"`
	Decls  []Decl   `msgpack:"decls"`
}

// NewGraph creates an empty graph for the given module name.
func NewGraph(module string) *Graph {
	return &Graph{Schema: GraphSchemaVersion, Module: module}
}

// Add appends a declaration, assigning its ID. The payload pointer matching
// d.Kind must already be set by the caller.
func (g *Graph) Add(d Decl) DeclID {
	d.ID = DeclID(len(g.Decls) + 1)
	g.Decls = append(g.Decls, d)
	return d.ID
}

// Get returns the declaration for an ID, or nil for an invalid one.
func (g *Graph) Get(id DeclID) *Decl {
	if g == nil || !id.IsValid() || int(id) > len(g.Decls) {
		return nil
	}
	return &g.Decls[id-1]
}

// AddFile registers a file path and returns its index.
func (g *Graph) AddFile(path string) uint32 {
	for i, p := range g.Files {
		if p == path {
			return uint32(i)
		}
	}
	g.Files = append(g.Files, path)
	return uint32(len(g.Files) - 1)
}

// Validate checks internal referential integrity: IDs are dense, owners and
// type references resolve, payloads match kinds. The frontend guarantees all
// of this; validation exists to fail fast on corrupted or hand-rolled input.
func (g *Graph) Validate() error {
	for i := range g.Decls {
		d := &g.Decls[i]
		if d.ID != DeclID(i+1) {
			return fmt.Errorf("decl %d: non-dense id %d", i, d.ID)
		}
		if d.Owner.IsValid() && g.Get(d.Owner) == nil {
			return fmt.Errorf("decl %q: dangling owner %d", d.Name, d.Owner)
		}
		switch d.Kind {
		case KindFunc:
			if d.Func == nil {
				return fmt.Errorf("decl %q: func kind without payload", d.Name)
			}
		case KindRecord:
			if d.Record == nil {
				return fmt.Errorf("decl %q: record kind without payload", d.Name)
			}
			for _, b := range d.Record.Bases {
				base := g.Get(b.Record)
				if base == nil || base.Kind != KindRecord {
					return fmt.Errorf("decl %q: dangling base %d", d.Name, b.Record)
				}
			}
		case KindEnum:
			if d.Enum == nil {
				return fmt.Errorf("decl %q: enum kind without payload", d.Name)
			}
		case KindTypeAlias:
			if d.Alias == nil {
				return fmt.Errorf("decl %q: alias kind without payload", d.Name)
			}
		case KindNamespace:
			if d.Namespace == nil {
				return fmt.Errorf("decl %q: namespace kind without payload", d.Name)
			}
		default:
			return fmt.Errorf("decl %q: invalid kind", d.Name)
		}
	}
	return nil
}

// Load reads and decodes a graph file written by the frontend.
func Load(path string) (*Graph, error) {
	// #nosec G304 -- path is provided by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var g Graph
	if err := msgpack.NewDecoder(f).Decode(&g); err != nil {
		return nil, fmt.Errorf("%s: decode declaration graph: %w", path, err)
	}
	if g.Schema != GraphSchemaVersion {
		return nil, fmt.Errorf("%s: got schema %d, want %d: %w",
			path, g.Schema, GraphSchemaVersion, ErrSchemaMismatch)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid declaration graph: %w", path, err)
	}
	return &g, nil
}

// Save encodes the graph to path, writing through a temp file and renaming
// so readers never observe a partial file.
func Save(path string, g *Graph) error {
	f, err := os.CreateTemp(filepath.Dir(path), "declgraph-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(g); err != nil {
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
