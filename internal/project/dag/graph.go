// Package dag orders workspace members so every module is generated after
// the dependencies whose key tables it consumes. Only workspace-internal
// dependencies become edges; deps pointing at pre-built key tables on disk
// are resolved by the pipeline directly.
package dag

import (
	"fmt"
	"slices"
	"strings"

	"crossbind/internal/diag"
	"crossbind/internal/project"
	"crossbind/internal/source"
)

// Graph holds edges from a dependency to its dependents, so Kahn's
// algorithm yields dependencies first.
type Graph struct {
	Edges   [][]ModuleID // Edges[dep] = dependents
	Indeg   []int
	Present []bool
}

// BuildGraph indexes the members and wires workspace-internal dependency
// edges. Duplicate member names are reported and the later member dropped.
func BuildGraph(members []*project.Module, r diag.Reporter) (Graph, ModuleIndex, []*project.Module) {
	idx := BuildIndex(members)
	n := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]ModuleID, n),
		Indeg:   make([]int, n),
		Present: make([]bool, n),
	}
	slots := make([]*project.Module, n)

	for _, m := range members {
		id, ok := idx.NameToID[m.Name]
		if !ok {
			continue
		}
		if slots[id] != nil {
			if r != nil {
				r.Report(diag.NewError(diag.ProjDuplicateModule, m.Name, source.Span{},
					fmt.Sprintf("duplicate module %q in workspace (defined in %q and %q)",
						m.Name, slots[id].Dir, m.Dir)))
			}
			continue
		}
		slots[id] = m
		g.Present[id] = true
	}

	for _, m := range slots {
		if m == nil {
			continue
		}
		to := idx.NameToID[m.Name]
		seen := make(map[ModuleID]struct{}, len(m.Manifest.Deps))
		for _, dep := range m.DepNames() {
			from, internal := idx.NameToID[dep]
			if !internal {
				// External dependency: its key table must exist on disk.
				continue
			}
			if from == to {
				if r != nil {
					r.Report(diag.NewError(diag.ProjDepCycle, m.Name, source.Span{},
						fmt.Sprintf("module %q depends on itself", m.Name)))
				}
				continue
			}
			if _, dup := seen[from]; dup {
				continue
			}
			seen[from] = struct{}{}
			g.Edges[from] = append(g.Edges[from], to)
			g.Indeg[to]++
		}
	}
	for i := range g.Edges {
		if len(g.Edges[i]) > 1 {
			slices.Sort(g.Edges[i])
		}
	}

	return g, idx, slots
}

// ReportCycles reports every member stuck in a dependency cycle.
func ReportCycles(idx ModuleIndex, topo *Topo, r diag.Reporter) {
	if r == nil || !topo.Cyclic {
		return
	}
	names := make([]string, 0, len(topo.Cycles))
	for _, id := range topo.Cycles {
		names = append(names, idx.IDToName[int(id)])
	}
	summary := strings.Join(names, " -> ")
	for _, id := range topo.Cycles {
		name := idx.IDToName[int(id)]
		r.Report(diag.NewError(diag.ProjDepCycle, name, source.Span{},
			fmt.Sprintf("module %q participates in a dependency cycle: %s", name, summary)))
	}
}
