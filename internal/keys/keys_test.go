package keys

import (
	"errors"
	"path/filepath"
	"testing"
)

func sampleTable() *Table {
	t := NewTable("geometry")
	t.Add("_Z5Point", Entry{
		Kind:    "record",
		Wrapper: "::geometry::Point",
		Size:    8,
		Align:   4,
	})
	t.Add("_Z3add", Entry{
		Kind:    "func",
		Wrapper: "::geometry::add",
		Thunks:  map[string]string{"call": "__crossbind_thunk__Z3add"},
	})
	return t
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geometry.keys")
	want := sampleTable()
	if err := Save(path, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Module != "geometry" || got.Schema != TableSchemaVersion {
		t.Errorf("table header = %q/%d", got.Module, got.Schema)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(got.Entries))
	}
	rec, ok := got.Lookup("_Z5Point")
	if !ok || rec.Wrapper != "::geometry::Point" || rec.Size != 8 || rec.Align != 4 {
		t.Errorf("record entry = %+v", rec)
	}
	fn, ok := got.Lookup("_Z3add")
	if !ok || fn.Thunks["call"] != "__crossbind_thunk__Z3add" {
		t.Errorf("func entry = %+v", fn)
	}
}

func TestLoadRejectsWrongSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.keys")
	tab := sampleTable()
	tab.Schema = TableSchemaVersion + 1
	if err := Save(path, tab); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("Load() error = %v, want ErrSchemaMismatch", err)
	}
}

func TestMangledSorted(t *testing.T) {
	tab := NewTable("m")
	tab.Add("zzz", Entry{Kind: "func"})
	tab.Add("aaa", Entry{Kind: "func"})
	tab.Add("mmm", Entry{Kind: "func"})

	got := tab.Mangled()
	want := []string{"aaa", "mmm", "zzz"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Mangled() = %v, want %v", got, want)
		}
	}
}

func TestSetLookupDeterministic(t *testing.T) {
	a := NewTable("alpha")
	a.Add("_Zdup", Entry{Wrapper: "::alpha::Dup"})
	b := NewTable("beta")
	b.Add("_Zdup", Entry{Wrapper: "::beta::Dup"})
	b.Add("_Zonly", Entry{Wrapper: "::beta::Only"})

	set := NewSet()
	set.Add(b)
	set.Add(a)

	// A collision resolves to the lexically first module name, regardless
	// of insertion order.
	module, e, ok := set.Lookup("_Zdup")
	if !ok || module != "alpha" || e.Wrapper != "::alpha::Dup" {
		t.Errorf("Lookup(_Zdup) = %q %+v %t", module, e, ok)
	}
	if _, _, ok := set.Lookup("_Zmissing"); ok {
		t.Error("Lookup of unknown name should fail")
	}
	if set.Len() != 2 {
		t.Errorf("Len() = %d, want 2", set.Len())
	}
	if tab, ok := set.Module("beta"); !ok || tab.Module != "beta" {
		t.Error("Module(beta) should return the beta table")
	}
}
