package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"crossbind/internal/diag"
	"crossbind/internal/keys"
	"crossbind/internal/project"
	"crossbind/internal/project/dag"
	"crossbind/internal/source"
)

// WorkspaceResult aggregates per-module results plus workspace-level
// diagnostics (duplicate members, dependency cycles, broken dependencies).
type WorkspaceResult struct {
	Results []*Result
	Bag     *diag.Bag
}

// Failed reports whether any module run failed.
func (w *WorkspaceResult) Failed() bool {
	if w.Bag.HasErrors() {
		return true
	}
	for _, r := range w.Results {
		if r.Failed() {
			return true
		}
	}
	return false
}

// RunWorkspace generates every member in dependency order. Members of one
// batch share no edges and run concurrently; key tables produced by earlier
// batches feed later ones without a disk round trip. A failed member skips
// its dependents with a diagnostic instead of aborting the others.
func RunWorkspace(ctx context.Context, ws *project.Workspace, maxDiags uint16) (*WorkspaceResult, error) {
	if maxDiags == 0 {
		maxDiags = DefaultMaxDiagnostics
	}
	wsBag := diag.NewBag(int(maxDiags))
	reporter := diag.BagReporter{Bag: wsBag}
	out := &WorkspaceResult{Bag: wsBag}

	graph, idx, slots := dag.BuildGraph(ws.Members, reporter)
	topo := dag.ToposortKahn(graph)
	if topo.Cyclic {
		dag.ReportCycles(idx, topo, reporter)
		return out, fmt.Errorf("dependency cycle between workspace modules")
	}

	ordered := make([]*project.Module, 0, len(topo.Order))
	for _, id := range topo.Order {
		if m := slots[int(id)]; m != nil {
			ordered = append(ordered, m)
		}
	}
	ws.ComputeHashes(ordered)

	var mu sync.Mutex
	shared := make(map[string]*keys.Table, len(ordered))
	broken := make(map[string]bool)
	byName := make(map[string]*Result, len(ordered))

	for _, batch := range topo.Batches {
		g, _ := errgroup.WithContext(ctx)
		for _, id := range batch {
			m := slots[int(id)]
			if m == nil {
				continue
			}
			// Goroutines of this batch write broken under the mutex, so
			// the scheduling read takes it too.
			mu.Lock()
			dep, bad := brokenDep(m, broken)
			if bad {
				broken[m.Name] = true
			}
			mu.Unlock()
			if bad {
				reporter.Report(diag.NewError(diag.ProjDepFailed, m.Name, source.Span{},
					fmt.Sprintf("dependency module %q failed; skipping %q", dep, m.Name)))
				continue
			}
			g.Go(func() error {
				res, err := RunModule(m, snapshot(&mu, shared), maxDiags)
				mu.Lock()
				defer mu.Unlock()
				byName[m.Name] = res
				if err != nil || res.Failed() {
					broken[m.Name] = true
					return nil // keep independent members running
				}
				shared[m.Name] = res.Keys
				return nil
			})
		}
		// Group goroutines never return errors; Wait only joins them.
		_ = g.Wait()
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out.Results = append(out.Results, byName[name])
	}
	return out, nil
}

func brokenDep(m *project.Module, broken map[string]bool) (string, bool) {
	for _, dep := range m.DepNames() {
		if broken[dep] {
			return dep, true
		}
	}
	return "", false
}

func snapshot(mu *sync.Mutex, shared map[string]*keys.Table) map[string]*keys.Table {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]*keys.Table, len(shared))
	for k, v := range shared {
		out[k] = v
	}
	return out
}
