// Package toporder computes the emission order for a module's items: every
// item follows the items its layout structurally depends on. Only layout
// edges (fields, bases, by-value alias targets) participate; pointer and
// reference edges are legal cycles broken by forward declarations in the
// emitted code.
package toporder

import (
	"fmt"
	"strings"

	"crossbind/internal/ir"
)

// CycleError reports a dependency cycle in layout edges. Well-formed source
// cannot produce one (the source compiler would have rejected it), so a
// cycle always means the importer's model broke: callers must fail the run.
type CycleError struct {
	Cycle []ir.ItemID
	Names []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("layout dependency cycle: %s", strings.Join(e.Names, " -> "))
}

// Order returns all eligible items in a deterministic linear order where
// layout dependencies precede their dependents. Items with no ordering
// constraint between them keep original declaration order, for output
// determinism and diff-friendliness.
func Order(mod *ir.Module) ([]ir.ItemID, error) {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[ir.ItemID]uint8, mod.Items.Len())
	var out []ir.ItemID
	var stack []ir.ItemID

	var visit func(id ir.ItemID) *CycleError
	visit = func(id ir.ItemID) *CycleError {
		switch color[id] {
		case black:
			return nil
		case grey:
			cycle := cycleFrom(stack, id)
			names := make([]string, 0, len(cycle))
			for _, cid := range cycle {
				if it := mod.Items.Get(cid); it != nil {
					names = append(names, it.QualifiedName(mod.Items))
				}
			}
			return &CycleError{Cycle: cycle, Names: names}
		}
		color[id] = grey
		stack = append(stack, id)
		for _, dep := range layoutDeps(mod, id) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		if it := mod.Items.Get(id); it != nil && it.Eligible {
			out = append(out, id)
		}
		return nil
	}

	for _, id := range mod.EligibleItems() {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func cycleFrom(stack []ir.ItemID, start ir.ItemID) []ir.ItemID {
	for i, id := range stack {
		if id == start {
			cycle := append([]ir.ItemID(nil), stack[i:]...)
			return append(cycle, start)
		}
	}
	return []ir.ItemID{start}
}

// layoutDeps lists the items whose definitions must precede id in emitted
// code. Pointer/reference targets are deliberately absent.
func layoutDeps(mod *ir.Module, id ir.ItemID) []ir.ItemID {
	it := mod.Items.Get(id)
	if it == nil {
		return nil
	}
	var deps []ir.ItemID
	addNamed := func(tid ir.TypeID) {
		t, ok := mod.Types.Lookup(tid)
		if !ok || t.Kind != ir.TypeRecordRef {
			return
		}
		deps = append(deps, t.Item)
	}
	switch {
	case it.Record != nil:
		for _, b := range it.Record.Bases {
			deps = append(deps, b.Item)
		}
		for _, f := range it.Record.Fields {
			addNamed(f.Type)
		}
	case it.Alias != nil:
		addNamed(it.Alias.Target)
	}
	return deps
}
