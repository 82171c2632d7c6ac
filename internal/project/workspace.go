package project

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Module is one resolved workspace member: its manifest plus the absolute
// paths derived from it.
type Module struct {
	Name     string
	Dir      string
	Manifest Manifest

	// DeclgraphPath and OutDir are absolute.
	DeclgraphPath string
	OutDir        string

	// ContentHash digests the declaration graph file; ModuleHash folds in
	// the hashes of workspace-internal dependencies, so it changes whenever
	// anything a module's output depends on changes.
	ContentHash Digest
	ModuleHash  Digest
}

// DepNames returns the module's dependency names in sorted order.
func (m *Module) DepNames() []string {
	out := make([]string, 0, len(m.Manifest.Deps))
	for name := range m.Manifest.Deps {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DepKeyPath resolves a dependency's key table path relative to the module
// directory.
func (m *Module) DepKeyPath(dep string) string {
	p := m.Manifest.Deps[dep]
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// Workspace is the set of modules one invocation operates on. A standalone
// module manifest yields a single-member workspace.
type Workspace struct {
	Root    string
	Members []*Module
}

// LoadWorkspace resolves the manifest at path into a workspace. Workspace
// root manifests pull in every member; plain module manifests become their
// own single member.
func LoadWorkspace(manifestPath string) (*Workspace, error) {
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, err
	}
	root, err := LoadManifest(abs)
	if err != nil {
		return nil, err
	}
	ws := &Workspace{Root: filepath.Dir(abs)}

	addModule := func(dir string, m Manifest) {
		mod := &Module{
			Name:          m.Module.Name,
			Dir:           dir,
			Manifest:      m,
			DeclgraphPath: filepath.Join(dir, m.Module.Declgraph),
			OutDir:        dir,
		}
		if m.Module.Out != "" {
			mod.OutDir = filepath.Join(dir, m.Module.Out)
		}
		ws.Members = append(ws.Members, mod)
	}

	if root.HasModule() {
		addModule(ws.Root, root)
	}
	for _, member := range root.Workspace.Members {
		dir := filepath.Join(ws.Root, member)
		m, err := LoadManifest(filepath.Join(dir, ManifestName))
		if err != nil {
			return nil, err
		}
		if !m.HasModule() {
			return nil, fmt.Errorf("%s: workspace member %q has no [module] section", manifestPath, member)
		}
		addModule(dir, m)
	}
	if len(ws.Members) == 0 {
		return nil, fmt.Errorf("%s: no modules to process", manifestPath)
	}
	return ws, nil
}

// Member returns a workspace module by name.
func (ws *Workspace) Member(name string) (*Module, bool) {
	for _, m := range ws.Members {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// ComputeHashes fills in content and module hashes for every member, in
// dependency order. Missing declaration graphs hash as zero; the pipeline
// reports the real error when it tries to load them.
func (ws *Workspace) ComputeHashes(order []*Module) {
	done := make(map[string]Digest, len(order))
	for _, m := range order {
		if h, err := HashFile(m.DeclgraphPath); err == nil {
			m.ContentHash = h
		}
		deps := make([]Digest, 0, len(m.Manifest.Deps))
		for _, name := range m.DepNames() {
			if h, ok := done[name]; ok {
				deps = append(deps, h)
			}
		}
		m.ModuleHash = Combine(m.ContentHash, deps...)
		done[m.Name] = m.ModuleHash
	}
}
