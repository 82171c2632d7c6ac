package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crossbind/internal/decl"
	"crossbind/internal/diag"
	"crossbind/internal/gen"
	"crossbind/internal/keys"
	"crossbind/internal/project"
)

func trivialSpecials() [decl.SpecialCount]decl.SpecialDecl {
	var s [decl.SpecialCount]decl.SpecialDecl
	for k := range s {
		s[k] = decl.SpecialDecl{Avail: decl.SpecialNotDeclared, Trivial: true}
	}
	return s
}

func addScalarRecord(g *decl.Graph, name, mangled string) decl.DeclID {
	return g.Add(decl.Decl{
		Kind: decl.KindRecord, Name: name, Mangled: mangled, Public: true,
		Record: &decl.RecordDecl{
			Complete: true, SizeBytes: 4, AlignBytes: 4,
			Fields:   []decl.Field{{Name: "v", Type: decl.Primitive("i32")}},
			Specials: trivialSpecials(),
		},
	})
}

func saveGraph(t *testing.T, dir string, g *decl.Graph) string {
	t.Helper()
	path := filepath.Join(dir, g.Module+".declgraph")
	if err := decl.Save(path, g); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return path
}

func testModule(name, dir, graphPath string) *project.Module {
	return &project.Module{
		Name: name,
		Dir:  dir,
		Manifest: project.Manifest{
			Module: project.ModuleSection{
				Name:      name,
				Direction: "cc-to-rs",
				Declgraph: filepath.Base(graphPath),
				Headers:   []string{name + ".h"},
			},
		},
		DeclgraphPath: graphPath,
		OutDir:        filepath.Join(dir, "out"),
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) // #nosec G304 -- test artifact
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestRunModuleEndToEnd(t *testing.T) {
	dir := t.TempDir()
	g := decl.NewGraph("geometry")
	g.AddFile("geometry.h")
	addScalarRecord(g, "Point", "_Z5Point")
	g.Add(decl.Decl{
		Kind: decl.KindFunc, Name: "origin", Mangled: "_Z6origin", Public: true,
		Func: &decl.FuncDecl{Return: decl.Void(), CallConv: decl.CallConvC},
	})
	graphPath := saveGraph(t, dir, g)

	m := testModule("geometry", dir, graphPath)
	res, err := RunModule(m, nil, 0)
	if err != nil {
		t.Fatalf("RunModule() error = %v", err)
	}
	if res.Failed() {
		t.Fatalf("run failed: %v", res.Bag.Items())
	}

	if res.WrapperPath != filepath.Join(m.OutDir, "geometry.rs") {
		t.Errorf("WrapperPath = %q", res.WrapperPath)
	}
	if res.GluePath != filepath.Join(m.OutDir, "geometry_glue.cc") {
		t.Errorf("GluePath = %q", res.GluePath)
	}

	wrapper := readFile(t, res.WrapperPath)
	if !strings.Contains(wrapper, "pub struct Point {") {
		t.Errorf("wrapper missing record:\n%s", wrapper)
	}
	glue := readFile(t, res.GluePath)
	if !strings.Contains(glue, "#include \"geometry.h\"") {
		t.Errorf("glue missing header include:\n%s", glue)
	}

	table, err := keys.Load(res.KeysPath)
	if err != nil {
		t.Fatalf("key table unreadable: %v", err)
	}
	if _, ok := table.Lookup("_Z5Point"); !ok {
		t.Error("record missing from persisted key table")
	}
	if _, ok := table.Lookup("_Z6origin"); !ok {
		t.Error("function missing from persisted key table")
	}
}

func TestRunModuleFatalWritesNothing(t *testing.T) {
	dir := t.TempDir()
	g := decl.NewGraph("broken")
	innerID := g.Add(decl.Decl{
		Kind: decl.KindRecord, Name: "Inner", Mangled: "_ZInner", Public: true,
		Record: &decl.RecordDecl{
			Complete: true, SizeBytes: 4, AlignBytes: 4,
			Specials: func() [decl.SpecialCount]decl.SpecialDecl {
				s := trivialSpecials()
				s[decl.SpecialCopyCtor] = decl.SpecialDecl{Avail: decl.SpecialUserDefined, Mangled: "_ZInnerC2"}
				return s
			}(),
		},
	})
	// Claims a trivial copy over a non-trivial member.
	g.Add(decl.Decl{
		Kind: decl.KindRecord, Name: "Liar", Mangled: "_ZLiar", Public: true,
		Record: &decl.RecordDecl{
			Complete: true, SizeBytes: 4, AlignBytes: 4,
			Fields:   []decl.Field{{Name: "inner", Type: decl.Named(innerID)}},
			Specials: trivialSpecials(),
		},
	})
	graphPath := saveGraph(t, dir, g)

	m := testModule("broken", dir, graphPath)
	res, err := RunModule(m, nil, 0)
	if err == nil {
		t.Fatal("RunModule() should fail on an internal consistency violation")
	}
	if !res.Failed() {
		t.Error("result should report failure")
	}
	if _, statErr := os.Stat(m.OutDir); !os.IsNotExist(statErr) {
		t.Error("failed runs must not create output")
	}
}

func TestRunModuleMissingDependencyTable(t *testing.T) {
	dir := t.TempDir()
	g := decl.NewGraph("app")
	addScalarRecord(g, "Local", "_Z5Local")
	graphPath := saveGraph(t, dir, g)

	m := testModule("app", dir, graphPath)
	m.Manifest.Deps = map[string]string{"core": filepath.Join(dir, "nope.keys")}

	res, err := RunModule(m, nil, 0)
	if err != nil {
		t.Fatalf("RunModule() error = %v", err)
	}
	if res.Failed() {
		t.Fatal("missing dependency table degrades per item, never the run")
	}
	var saw bool
	for _, d := range res.Bag.Items() {
		if d.Code == diag.ProjMissingDep {
			saw = true
		}
	}
	if !saw {
		t.Error("expected a missing-dependency diagnostic")
	}
}

func TestRunModuleStaleDependencySchema(t *testing.T) {
	dir := t.TempDir()
	stale := keys.NewTable("core")
	stale.Schema = keys.TableSchemaVersion + 1
	stalePath := filepath.Join(dir, "core.keys")
	if err := keys.Save(stalePath, stale); err != nil {
		t.Fatal(err)
	}

	g := decl.NewGraph("app")
	addScalarRecord(g, "Local", "_Z5Local")
	graphPath := saveGraph(t, dir, g)
	m := testModule("app", dir, graphPath)
	m.Manifest.Deps = map[string]string{"core": stalePath}

	res, err := RunModule(m, nil, 0)
	if err != nil {
		t.Fatalf("RunModule() error = %v", err)
	}
	var saw bool
	for _, d := range res.Bag.Items() {
		if d.Code == diag.LinkStaleSchema {
			saw = true
		}
	}
	if !saw {
		t.Error("expected a stale-key-schema diagnostic")
	}
}

func TestRunWorkspaceSharesKeyTables(t *testing.T) {
	root := t.TempDir()
	coreDir := filepath.Join(root, "core")
	appDir := filepath.Join(root, "app")
	for _, d := range []string{coreDir, appDir} {
		if err := os.MkdirAll(d, 0o750); err != nil {
			t.Fatal(err)
		}
	}

	coreGraph := decl.NewGraph("core")
	addScalarRecord(coreGraph, "Dep", "_Z3Dep")
	core := testModule("core", coreDir, saveGraph(t, coreDir, coreGraph))

	appGraph := decl.NewGraph("app")
	depID := appGraph.Add(decl.Decl{
		Kind: decl.KindRecord, Name: "Dep", Mangled: "_Z3Dep", Module: "core", Public: true,
		Record: &decl.RecordDecl{
			Complete: true, SizeBytes: 4, AlignBytes: 4,
			Specials: trivialSpecials(),
		},
	})
	appGraph.Add(decl.Decl{
		Kind: decl.KindRecord, Name: "Holder", Mangled: "_Z6Holder", Public: true,
		Record: &decl.RecordDecl{
			Complete: true, SizeBytes: 4, AlignBytes: 4,
			Fields:   []decl.Field{{Name: "dep", Type: decl.Named(depID)}},
			Specials: trivialSpecials(),
		},
	})
	app := testModule("app", appDir, saveGraph(t, appDir, appGraph))
	// The key table path never exists on disk; the fresh in-memory table
	// from the core run must be used instead.
	app.Manifest.Deps = map[string]string{"core": filepath.Join(coreDir, "out", "core.keys")}

	ws := &project.Workspace{Root: root, Members: []*project.Module{app, core}}
	out, err := RunWorkspace(context.Background(), ws, 0)
	if err != nil {
		t.Fatalf("RunWorkspace() error = %v", err)
	}
	if out.Failed() {
		t.Fatalf("workspace run failed: ws=%v", out.Bag.Items())
	}
	if len(out.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(out.Results))
	}
	// Results come back sorted by module name.
	if out.Results[0].Module != "app" || out.Results[1].Module != "core" {
		t.Errorf("result order = [%s %s]", out.Results[0].Module, out.Results[1].Module)
	}

	wrapper := readFile(t, out.Results[0].WrapperPath)
	if !strings.Contains(wrapper, "pub dep: ::core::Dep,") {
		t.Errorf("app wrapper does not reference the dependency wrapper:\n%s", wrapper)
	}
	if core.ModuleHash == (project.Digest{}) {
		t.Error("workspace run should compute module hashes")
	}
}

func TestRunWorkspaceSkipsDependentsOfFailedModule(t *testing.T) {
	root := t.TempDir()
	coreDir := filepath.Join(root, "core")
	appDir := filepath.Join(root, "app")
	for _, d := range []string{coreDir, appDir} {
		if err := os.MkdirAll(d, 0o750); err != nil {
			t.Fatal(err)
		}
	}

	// core has no declaration graph on disk, so its run fails outright.
	core := testModule("core", coreDir, filepath.Join(coreDir, "core.declgraph"))

	appGraph := decl.NewGraph("app")
	addScalarRecord(appGraph, "Local", "_Z5Local")
	app := testModule("app", appDir, saveGraph(t, appDir, appGraph))
	app.Manifest.Deps = map[string]string{"core": filepath.Join(coreDir, "out", "core.keys")}

	ws := &project.Workspace{Root: root, Members: []*project.Module{core, app}}
	out, err := RunWorkspace(context.Background(), ws, 0)
	if err != nil {
		t.Fatalf("RunWorkspace() error = %v", err)
	}
	if !out.Failed() {
		t.Error("workspace with a failed member must report failure")
	}

	var skipped bool
	for _, d := range out.Bag.Items() {
		if d.Code == diag.ProjDepFailed && d.Item == "app" {
			skipped = true
		}
	}
	if !skipped {
		t.Error("dependent of a failed module should be skipped with a diagnostic")
	}
	for _, r := range out.Results {
		if r.Module == "app" {
			t.Error("skipped module must not produce a result")
		}
	}
}

// A wide batch runs concurrently while the scheduler decides fates for the
// rest of the batch; run under the race detector this covers the shared
// broken-module bookkeeping.
func TestRunWorkspaceWideBatch(t *testing.T) {
	root := t.TempDir()
	mk := func(name string, graph bool) *project.Module {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatal(err)
		}
		if !graph {
			// No declaration graph on disk: the run fails outright.
			return testModule(name, dir, filepath.Join(dir, name+".declgraph"))
		}
		g := decl.NewGraph(name)
		addScalarRecord(g, "R", "_Z1R"+name)
		return testModule(name, dir, saveGraph(t, dir, g))
	}

	bad := mk("bad", false)
	members := []*project.Module{bad}
	for _, name := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8"} {
		members = append(members, mk(name, true))
	}
	dependent := mk("dependent", true)
	dependent.Manifest.Deps = map[string]string{"bad": filepath.Join(root, "bad", "out", "bad.keys")}
	members = append(members, dependent)

	ws := &project.Workspace{Root: root, Members: members}
	out, err := RunWorkspace(context.Background(), ws, 0)
	if err != nil {
		t.Fatalf("RunWorkspace() error = %v", err)
	}
	if !out.Failed() {
		t.Error("workspace with a failed member must report failure")
	}

	var skipped bool
	for _, d := range out.Bag.Items() {
		if d.Code == diag.ProjDepFailed && d.Item == "dependent" {
			skipped = true
		}
	}
	if !skipped {
		t.Error("dependent of the failed module should be skipped with a diagnostic")
	}
	var succeeded int
	for _, r := range out.Results {
		if r.Module == "dependent" {
			t.Error("skipped module must not produce a result")
		}
		if strings.HasPrefix(r.Module, "m") && !r.Failed() {
			succeeded++
		}
	}
	if succeeded != 8 {
		t.Errorf("independent members succeeded = %d, want 8", succeeded)
	}
}

func TestRunWorkspaceCycleFails(t *testing.T) {
	root := t.TempDir()
	mk := func(name string, dep string) *project.Module {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatal(err)
		}
		g := decl.NewGraph(name)
		addScalarRecord(g, "R", "_Z1R"+name)
		m := testModule(name, dir, saveGraph(t, dir, g))
		m.Manifest.Deps = map[string]string{dep: dep + ".keys"}
		return m
	}
	ws := &project.Workspace{Root: root, Members: []*project.Module{mk("a", "b"), mk("b", "a")}}

	if _, err := RunWorkspace(context.Background(), ws, 0); err == nil {
		t.Fatal("RunWorkspace() should fail on a dependency cycle")
	}
}

func TestArtifactNames(t *testing.T) {
	if w, g := ArtifactNames("m", gen.DirCCToRS); w != "m.rs" || g != "m_glue.cc" {
		t.Errorf("cc-to-rs names = %q %q", w, g)
	}
	if w, g := ArtifactNames("m", gen.DirRSToCC); w != "m.h" || g != "m_glue.rs" {
		t.Errorf("rs-to-cc names = %q %q", w, g)
	}
}
