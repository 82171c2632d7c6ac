// Package pipeline wires the phases together: load a declaration graph,
// import it, order the items, generate both artifacts and the key table,
// and persist everything atomically. A run either produces the complete
// artifact set or nothing at all.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"crossbind/internal/decl"
	"crossbind/internal/diag"
	"crossbind/internal/gen"
	"crossbind/internal/importer"
	"crossbind/internal/keys"
	"crossbind/internal/observ"
	"crossbind/internal/project"
	"crossbind/internal/source"
	"crossbind/internal/toporder"
)

// DefaultMaxDiagnostics bounds the bag when the caller does not say.
const DefaultMaxDiagnostics uint16 = 256

// Result is one module run's outcome. Bag carries every diagnostic; the
// output paths are set only when the run produced artifacts.
type Result struct {
	Module      string
	WrapperPath string
	GluePath    string
	KeysPath    string
	Keys        *keys.Table
	Bag         *diag.Bag
	Files       *source.FileTable
	Timings     observ.Report
}

// Failed reports whether the run aborted without output.
func (r *Result) Failed() bool {
	return r == nil || r.Bag.HasFatal() || r.KeysPath == ""
}

// RunModule executes the full pipeline for one module. shared maps
// workspace-internal dependency names to freshly generated key tables;
// remaining deps load from the paths the manifest names. Only internal
// consistency failures (or I/O) return an error; per-item problems land in
// the result's bag.
func RunModule(m *project.Module, shared map[string]*keys.Table, maxDiags uint16) (*Result, error) {
	if maxDiags == 0 {
		maxDiags = DefaultMaxDiagnostics
	}
	bag := diag.NewBag(int(maxDiags))
	r := diag.BagReporter{Bag: bag}
	res := &Result{Module: m.Name, Bag: bag, Files: source.NewFileTable()}
	timer := observ.NewTimer()
	defer func() { res.Timings = timer.Report() }()

	ph := timer.Begin("load")
	g, err := decl.Load(m.DeclgraphPath)
	if err != nil {
		return res, fmt.Errorf("load declaration graph: %w", err)
	}

	direction, err := gen.ParseDirection(m.Manifest.Module.Direction)
	if err != nil {
		return res, err
	}

	deps := loadDeps(m, shared, r)
	timer.End(ph, fmt.Sprintf("%d deps", deps.Len()))

	ph = timer.Begin("import")
	mod, err := importer.Import(g, policyFromManifest(m.Manifest), r)
	if err != nil {
		return res, err
	}
	res.Files = mod.Files
	timer.End(ph, "")

	ph = timer.Begin("order")
	order, err := toporder.Order(mod)
	if err != nil {
		var cyc *toporder.CycleError
		if errors.As(err, &cyc) {
			r.Report(diag.NewError(diag.InternalLayoutCycle, "", source.Span{}, cyc.Error()))
		}
		return res, err
	}
	timer.End(ph, fmt.Sprintf("%d items", len(order)))

	ph = timer.Begin("generate")
	out, err := gen.Generate(mod, order, deps, gen.Options{
		Direction: direction,
		Headers:   m.Manifest.Module.Headers,
	}, r)
	if err != nil {
		return res, err
	}
	if bag.HasFatal() {
		return res, errors.New("fatal diagnostics; no output written")
	}
	timer.End(ph, "")

	ph = timer.Begin("write")
	if err := writeArtifacts(m, direction, out, res); err != nil {
		return res, err
	}
	timer.End(ph, "")
	res.Keys = out.Keys
	return res, nil
}

// policyFromManifest translates the [bindings] and [features] sections.
func policyFromManifest(m project.Manifest) importer.Policy {
	p := importer.DefaultPolicy()
	p.Experimental = m.Features.Experimental
	if len(m.Bindings.Allow) > 0 {
		p.Allow = make(map[string]bool, len(m.Bindings.Allow))
		for _, name := range m.Bindings.Allow {
			p.Allow[name] = true
		}
	}
	if len(m.Bindings.Deny) > 0 {
		p.Deny = make(map[string]bool, len(m.Bindings.Deny))
		for _, name := range m.Bindings.Deny {
			p.Deny[name] = true
		}
	}
	if m.Bindings.PublicByDefault != nil {
		p.BindPublicByDefault = *m.Bindings.PublicByDefault
	}
	return p
}

// loadDeps assembles the direct-dependency key set. A missing or stale
// table is a per-dependency diagnostic: every item referencing it then
// fails at its own use site instead of crashing the run.
func loadDeps(m *project.Module, shared map[string]*keys.Table, r diag.Reporter) *keys.Set {
	set := keys.NewSet()
	for _, name := range m.DepNames() {
		if t, ok := shared[name]; ok {
			set.Add(t)
			continue
		}
		path := m.DepKeyPath(name)
		t, err := keys.Load(path)
		switch {
		case err == nil:
			set.Add(t)
		case errors.Is(err, keys.ErrSchemaMismatch):
			r.Report(diag.New(diag.SevWarning, diag.LinkStaleSchema, name, source.Span{},
				fmt.Sprintf("key table %q was written by an incompatible version; items from %q will be unsupported", path, name)).
				WithNote(source.Span{}, "regenerate the dependency's key table with this version"))
		case errors.Is(err, os.ErrNotExist):
			r.Report(diag.New(diag.SevWarning, diag.ProjMissingDep, name, source.Span{},
				fmt.Sprintf("key table %q for dependency %q does not exist", path, name)))
		default:
			r.Report(diag.New(diag.SevWarning, diag.ProjMissingDep, name, source.Span{},
				fmt.Sprintf("key table %q for dependency %q is unreadable: %v", path, name, err)))
		}
	}
	return set
}

// writeArtifacts persists the wrapper, the glue and the key table. Text
// artifacts go through temp files renamed into place after both succeed, so
// a crash mid-write never leaves a half-updated artifact pair behind.
func writeArtifacts(m *project.Module, direction gen.Direction, out gen.Result, res *Result) error {
	if err := os.MkdirAll(m.OutDir, 0o750); err != nil {
		return err
	}
	wrapperName, glueName := ArtifactNames(m.Name, direction)
	wrapperPath := filepath.Join(m.OutDir, wrapperName)
	gluePath := filepath.Join(m.OutDir, glueName)
	keysPath := filepath.Join(m.OutDir, m.Name+".keys")

	wrapperTmp, err := writeTemp(m.OutDir, []byte(out.Wrapper))
	if err != nil {
		return err
	}
	glueTmp, err := writeTemp(m.OutDir, []byte(out.Glue))
	if err != nil {
		_ = os.Remove(wrapperTmp)
		return err
	}
	if err := os.Rename(wrapperTmp, wrapperPath); err != nil {
		_ = os.Remove(wrapperTmp)
		_ = os.Remove(glueTmp)
		return err
	}
	if err := os.Rename(glueTmp, gluePath); err != nil {
		_ = os.Remove(glueTmp)
		return err
	}
	if err := keys.Save(keysPath, out.Keys); err != nil {
		return err
	}

	res.WrapperPath = wrapperPath
	res.GluePath = gluePath
	res.KeysPath = keysPath
	return nil
}

// ArtifactNames returns the wrapper and glue file names for a module.
func ArtifactNames(module string, direction gen.Direction) (wrapper, glue string) {
	if direction == gen.DirRSToCC {
		return module + ".h", module + "_glue.rs"
	}
	return module + ".rs", module + "_glue.cc"
}

func writeTemp(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "crossbind-*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}
