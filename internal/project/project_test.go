package project

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

const validManifest = `
[module]
name = "geometry"
direction = "cc-to-rs"
declgraph = "geometry.declgraph"
headers = ["geometry.h"]
out = "bindings"

[deps]
core = "../core/core.keys"

[features]
experimental = true

[bindings]
allow = ["geo::Point"]
deny = ["geo::Detail"]
public_by_default = false
`

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestName)
	writeFile(t, path, validManifest)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if m.Module.Name != "geometry" || m.Module.Direction != "cc-to-rs" {
		t.Errorf("module section = %+v", m.Module)
	}
	if m.Deps["core"] != "../core/core.keys" {
		t.Errorf("deps = %v", m.Deps)
	}
	if !m.Features.Experimental {
		t.Error("experimental flag lost")
	}
	if m.Bindings.PublicByDefault == nil || *m.Bindings.PublicByDefault {
		t.Error("public_by_default = false should be preserved")
	}
	if m.IsWorkspace() || !m.HasModule() {
		t.Error("plain module manifest misclassified")
	}
}

func TestLoadManifestRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no module section", `[deps]` + "\n"},
		{"bad name", "[module]\nname = \"9lives\"\ndirection = \"cc-to-rs\"\ndeclgraph = \"g\"\n"},
		{"bad direction", "[module]\nname = \"m\"\ndirection = \"sideways\"\ndeclgraph = \"g\"\n"},
		{"missing direction", "[module]\nname = \"m\"\ndeclgraph = \"g\"\n"},
		{"missing declgraph", "[module]\nname = \"m\"\ndirection = \"cc-to-rs\"\n"},
		{"not toml", "}{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ManifestName)
			writeFile(t, path, tt.content)
			if _, err := LoadManifest(path); err == nil {
				t.Error("LoadManifest() should fail")
			}
		})
	}
}

func TestWorkspaceOnlyManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestName)
	writeFile(t, path, "[workspace]\nmembers = [\"a\", \"b\"]\n")

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if !m.IsWorkspace() || m.HasModule() {
		t.Errorf("workspace-only manifest misclassified: %+v", m)
	}
}

func TestIsValidModuleName(t *testing.T) {
	valid := []string{"m", "geometry", "geo-core", "geo_core2", "_hidden"}
	invalid := []string{"", "9lives", "-lead", "gé0", "a b"}
	for _, n := range valid {
		if !IsValidModuleName(n) {
			t.Errorf("IsValidModuleName(%q) = false, want true", n)
		}
	}
	for _, n := range invalid {
		if IsValidModuleName(n) {
			t.Errorf("IsValidModuleName(%q) = true, want false", n)
		}
	}
}

func TestFindManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestName), "[workspace]\nmembers = [\"a\"]\n")
	nested := filepath.Join(root, "a", "src", "deep")
	if err := os.MkdirAll(nested, 0o750); err != nil {
		t.Fatal(err)
	}

	path, ok, err := FindManifest(nested)
	if err != nil || !ok {
		t.Fatalf("FindManifest() = %q, %t, %v", path, ok, err)
	}
	if path != filepath.Join(root, ManifestName) {
		t.Errorf("path = %q, want manifest at workspace root", path)
	}

	dir, ok, err := FindRoot(nested)
	if err != nil || !ok || dir != root {
		t.Errorf("FindRoot() = %q, %t, %v", dir, ok, err)
	}

	if _, ok, err := FindManifest(t.TempDir()); err != nil || ok {
		t.Errorf("FindManifest in an empty tree = %t, %v, want not found", ok, err)
	}
}

func TestLoadWorkspace(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestName), "[workspace]\nmembers = [\"core\", \"app\"]\n")
	writeFile(t, filepath.Join(root, "core", ManifestName),
		"[module]\nname = \"core\"\ndirection = \"cc-to-rs\"\ndeclgraph = \"core.declgraph\"\n")
	writeFile(t, filepath.Join(root, "app", ManifestName),
		"[module]\nname = \"app\"\ndirection = \"cc-to-rs\"\ndeclgraph = \"app.declgraph\"\nout = \"gen\"\n\n[deps]\ncore = \"../core/core.keys\"\n")

	ws, err := LoadWorkspace(filepath.Join(root, ManifestName))
	if err != nil {
		t.Fatalf("LoadWorkspace() error = %v", err)
	}
	if len(ws.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(ws.Members))
	}

	app, ok := ws.Member("app")
	if !ok {
		t.Fatal("member app not found")
	}
	if app.DeclgraphPath != filepath.Join(root, "app", "app.declgraph") {
		t.Errorf("DeclgraphPath = %q", app.DeclgraphPath)
	}
	if app.OutDir != filepath.Join(root, "app", "gen") {
		t.Errorf("OutDir = %q", app.OutDir)
	}
	if got := app.DepKeyPath("core"); got != filepath.Join(root, "app", "../core/core.keys") {
		t.Errorf("DepKeyPath = %q", got)
	}
	if names := app.DepNames(); len(names) != 1 || names[0] != "core" {
		t.Errorf("DepNames = %v", names)
	}

	core, _ := ws.Member("core")
	if core.OutDir != filepath.Join(root, "core") {
		t.Errorf("default OutDir = %q, want module dir", core.OutDir)
	}
}

func TestLoadWorkspaceSingleModule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ManifestName),
		"[module]\nname = \"solo\"\ndirection = \"rs-to-cc\"\ndeclgraph = \"solo.declgraph\"\n")

	ws, err := LoadWorkspace(filepath.Join(dir, ManifestName))
	if err != nil {
		t.Fatalf("LoadWorkspace() error = %v", err)
	}
	if len(ws.Members) != 1 || ws.Members[0].Name != "solo" {
		t.Fatalf("members = %+v", ws.Members)
	}
}

func TestComputeHashes(t *testing.T) {
	root := t.TempDir()
	coreGraph := filepath.Join(root, "core.declgraph")
	appGraph := filepath.Join(root, "app.declgraph")
	writeFile(t, coreGraph, "core-bytes")
	writeFile(t, appGraph, "app-bytes")

	core := &Module{Name: "core", DeclgraphPath: coreGraph}
	app := &Module{
		Name: "app", DeclgraphPath: appGraph,
		Manifest: Manifest{Deps: map[string]string{"core": "core.keys"}},
	}
	ws := &Workspace{Root: root, Members: []*Module{core, app}}

	ws.ComputeHashes([]*Module{core, app})
	if core.ContentHash == (Digest{}) || app.ContentHash == (Digest{}) {
		t.Fatal("content hashes not computed")
	}
	if app.ModuleHash == app.ContentHash {
		t.Error("module hash must fold in dependency hashes")
	}
	before := app.ModuleHash

	// Changing the dependency's bytes must ripple into the dependent.
	writeFile(t, coreGraph, "core-bytes-v2")
	ws.ComputeHashes([]*Module{core, app})
	if app.ModuleHash == before {
		t.Error("dependent hash unchanged after dependency edit")
	}
}
