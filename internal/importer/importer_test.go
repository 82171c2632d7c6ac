package importer

import (
	"errors"
	"testing"

	"crossbind/internal/decl"
	"crossbind/internal/diag"
	"crossbind/internal/ir"
)

func trivialSpecials() [decl.SpecialCount]decl.SpecialDecl {
	var s [decl.SpecialCount]decl.SpecialDecl
	for k := range s {
		s[k] = decl.SpecialDecl{Avail: decl.SpecialNotDeclared, Trivial: true}
	}
	return s
}

func scalarRecord(name string, size int) decl.Decl {
	return decl.Decl{
		Kind:    decl.KindRecord,
		Name:    name,
		Mangled: "_Z" + name,
		Public:  true,
		Record: &decl.RecordDecl{
			Complete:   true,
			SizeBytes:  size,
			AlignBytes: size,
			Fields: []decl.Field{
				{Name: "value", Type: decl.Primitive("i32"), OffsetBits: 0},
			},
			Specials: trivialSpecials(),
		},
	}
}

func freeFunc(name string, params []decl.Param, ret decl.TypeExpr) decl.Decl {
	return decl.Decl{
		Kind:    decl.KindFunc,
		Name:    name,
		Mangled: "_Z" + name,
		Public:  true,
		Func: &decl.FuncDecl{
			Params:   params,
			Return:   ret,
			CallConv: decl.CallConvC,
			Classify: decl.FuncFree,
		},
	}
}

func importGraph(t *testing.T, g *decl.Graph) (*ir.Module, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(64)
	mod, err := Import(g, DefaultPolicy(), diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	return mod, bag
}

func itemByName(t *testing.T, mod *ir.Module, name string) *ir.Item {
	t.Helper()
	for _, id := range mod.Items.All() {
		if it := mod.Items.Get(id); it != nil && it.Name == name {
			return it
		}
	}
	t.Fatalf("item %q not found", name)
	return nil
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestImportTrivialRecord(t *testing.T) {
	g := decl.NewGraph("m")
	g.Add(scalarRecord("Point", 4))

	mod, bag := importGraph(t, g)
	it := itemByName(t, mod, "Point")
	if !it.Eligible {
		t.Fatalf("Point should be eligible, excluded: %q", it.ExcludedReason)
	}
	if it.Record.Size != 4 || it.Record.Align != 4 {
		t.Errorf("layout = %d/%d, want 4/4", it.Record.Size, it.Record.Align)
	}
	if !it.Record.TriviallyCopyable() || !it.Record.TriviallyDestructible() {
		t.Error("all-scalar record should have trivial copy and dtor")
	}
	if bag.HasErrors() {
		t.Errorf("unexpected errors: %v", bag.Items())
	}
}

func TestSpecialMemberPropagation(t *testing.T) {
	tests := []struct {
		name      string
		innerCopy decl.SpecialDecl
		want      ir.SpecialState
	}{
		{
			name:      "user defined copy makes holder non-trivial",
			innerCopy: decl.SpecialDecl{Avail: decl.SpecialUserDefined, Mangled: "_ZInnerC2"},
			want:      ir.SpecialNonTrivial,
		},
		{
			name:      "deleted copy deletes holder copy",
			innerCopy: decl.SpecialDecl{Avail: decl.SpecialDeleted},
			want:      ir.SpecialDeleted,
		},
		{
			name:      "trivial copy stays trivial",
			innerCopy: decl.SpecialDecl{Avail: decl.SpecialNotDeclared, Trivial: true},
			want:      ir.SpecialTrivial,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := decl.NewGraph("m")
			inner := scalarRecord("Inner", 4)
			inner.Record.Specials[decl.SpecialCopyCtor] = tt.innerCopy
			innerID := g.Add(inner)

			outerSpecials := trivialSpecials()
			// The oracle agrees with whatever propagation derives.
			outerSpecials[decl.SpecialCopyCtor].Trivial = tt.want == ir.SpecialTrivial
			g.Add(decl.Decl{
				Kind: decl.KindRecord, Name: "Outer", Mangled: "_ZOuter", Public: true,
				Record: &decl.RecordDecl{
					Complete: true, SizeBytes: 4, AlignBytes: 4,
					Fields:   []decl.Field{{Name: "inner", Type: decl.Named(innerID)}},
					Specials: outerSpecials,
				},
			})

			mod, _ := importGraph(t, g)
			outer := itemByName(t, mod, "Outer")
			got := outer.Record.Special(decl.SpecialCopyCtor).State
			if got != tt.want {
				t.Errorf("Outer copy state = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBasePropagation(t *testing.T) {
	g := decl.NewGraph("m")
	base := scalarRecord("Base", 4)
	base.Record.Specials[decl.SpecialDtor] = decl.SpecialDecl{
		Avail: decl.SpecialUserDefined, Mangled: "_ZBaseD2",
	}
	baseID := g.Add(base)

	derivedSpecials := trivialSpecials()
	derivedSpecials[decl.SpecialDtor].Trivial = false
	g.Add(decl.Decl{
		Kind: decl.KindRecord, Name: "Derived", Mangled: "_ZDerived", Public: true,
		Record: &decl.RecordDecl{
			Complete: true, SizeBytes: 4, AlignBytes: 4,
			Bases:    []decl.Base{{Record: baseID}},
			Specials: derivedSpecials,
		},
	})

	mod, _ := importGraph(t, g)
	derived := itemByName(t, mod, "Derived")
	if got := derived.Record.Special(decl.SpecialDtor).State; got != ir.SpecialNonTrivial {
		t.Errorf("Derived dtor state = %v, want non-trivial", got)
	}
	if derived.Record.NoSafeUpcast {
		t.Error("plain single inheritance should admit safe upcasts")
	}
	if len(derived.Record.Bases) != 1 || !derived.Record.Bases[0].SafeUpcast {
		t.Error("base edge should be marked safe for upcast")
	}
}

func TestVirtualBaseNoSafeUpcast(t *testing.T) {
	g := decl.NewGraph("m")
	baseID := g.Add(scalarRecord("VBase", 4))
	g.Add(decl.Decl{
		Kind: decl.KindRecord, Name: "Virt", Mangled: "_ZVirt", Public: true,
		Record: &decl.RecordDecl{
			Complete: true, SizeBytes: 8, AlignBytes: 8,
			Bases:    []decl.Base{{Record: baseID, Virtual: true}},
			Specials: trivialSpecials(),
		},
	})

	mod, _ := importGraph(t, g)
	virt := itemByName(t, mod, "Virt")
	if !virt.Record.NoSafeUpcast {
		t.Error("virtual base must disable safe upcasts")
	}
	if virt.Record.Bases[0].SafeUpcast {
		t.Error("virtual base edge must not be marked safe")
	}
}

func TestTrivialityConflictIsFatal(t *testing.T) {
	g := decl.NewGraph("m")
	inner := scalarRecord("Inner", 4)
	inner.Record.Specials[decl.SpecialCopyCtor] = decl.SpecialDecl{
		Avail: decl.SpecialUserDefined, Mangled: "_ZInnerC2",
	}
	innerID := g.Add(inner)

	// Oracle claims trivial copy despite the non-trivial member.
	g.Add(decl.Decl{
		Kind: decl.KindRecord, Name: "Liar", Mangled: "_ZLiar", Public: true,
		Record: &decl.RecordDecl{
			Complete: true, SizeBytes: 4, AlignBytes: 4,
			Fields:   []decl.Field{{Name: "inner", Type: decl.Named(innerID)}},
			Specials: trivialSpecials(),
		},
	})

	bag := diag.NewBag(16)
	_, err := Import(g, DefaultPolicy(), diag.BagReporter{Bag: bag})
	if !errors.Is(err, ErrInternalConsistency) {
		t.Fatalf("Import() error = %v, want ErrInternalConsistency", err)
	}
	if !hasCode(bag, diag.InternalTrivialityConflict) {
		t.Error("expected an internal-triviality-conflict diagnostic")
	}
}

func TestDanglingBaseIsFatal(t *testing.T) {
	g := decl.NewGraph("m")
	g.Add(decl.Decl{
		Kind: decl.KindRecord, Name: "Orphan", Mangled: "_ZOrphan", Public: true,
		Record: &decl.RecordDecl{
			Complete: true, SizeBytes: 8, AlignBytes: 4,
			// No declaration with this ID exists in the graph.
			Bases:    []decl.Base{{Record: decl.DeclID(99)}},
			Specials: trivialSpecials(),
		},
	})

	bag := diag.NewBag(16)
	_, err := Import(g, DefaultPolicy(), diag.BagReporter{Bag: bag})
	if !errors.Is(err, ErrInternalConsistency) {
		t.Fatalf("Import() error = %v, want ErrInternalConsistency", err)
	}
	if !hasCode(bag, diag.InternalDanglingItem) {
		t.Error("expected an internal-dangling-item diagnostic")
	}
}

func TestOracleNonTrivialClaimWins(t *testing.T) {
	g := decl.NewGraph("m")
	rec := scalarRecord("AbiOddity", 4)
	// All-scalar, but the oracle says the copy is non-trivial (e.g. an ABI
	// rule invisible to subobject propagation).
	rec.Record.Specials[decl.SpecialCopyCtor] = decl.SpecialDecl{
		Avail: decl.SpecialNotDeclared, Trivial: false, Mangled: "_ZOddC2",
	}
	g.Add(rec)

	mod, _ := importGraph(t, g)
	it := itemByName(t, mod, "AbiOddity")
	got := it.Record.Special(decl.SpecialCopyCtor)
	if got.State != ir.SpecialNonTrivial {
		t.Errorf("copy state = %v, want non-trivial", got.State)
	}
	if got.Mangled != "_ZOddC2" {
		t.Errorf("copy mangled = %q, want oracle symbol", got.Mangled)
	}
}

func TestLayoutCycleIsFatal(t *testing.T) {
	g := decl.NewGraph("m")
	// IDs are sequential, so the mutual references are known up front.
	aID, bID := decl.DeclID(1), decl.DeclID(2)
	a := scalarRecord("A", 4)
	a.Record.Fields = []decl.Field{{Name: "b", Type: decl.Named(bID)}}
	b := scalarRecord("B", 4)
	b.Record.Fields = []decl.Field{{Name: "a", Type: decl.Named(aID)}}
	g.Add(a)
	g.Add(b)

	bag := diag.NewBag(16)
	_, err := Import(g, DefaultPolicy(), diag.BagReporter{Bag: bag})
	if !errors.Is(err, ErrInternalConsistency) {
		t.Fatalf("Import() error = %v, want ErrInternalConsistency", err)
	}
	if !hasCode(bag, diag.InternalLayoutCycle) {
		t.Error("expected an internal-layout-cycle diagnostic")
	}
}

func TestForwardDeclaredByValueExcluded(t *testing.T) {
	g := decl.NewGraph("m")
	fwdID := g.Add(decl.Decl{
		Kind: decl.KindRecord, Name: "Fwd", Mangled: "_ZFwd", Public: true,
		Record: &decl.RecordDecl{Complete: false},
	})
	g.Add(freeFunc("takesValue",
		[]decl.Param{{Name: "f", Type: decl.Named(fwdID), ByValue: true}}, decl.Void()))
	g.Add(freeFunc("takesPointer",
		[]decl.Param{{Name: "f", Type: decl.PointerTo(decl.Named(fwdID), true, false)}}, decl.Void()))

	mod, bag := importGraph(t, g)

	fwd := itemByName(t, mod, "Fwd")
	if !fwd.DefinedElsewhere {
		t.Error("incomplete record should be marked defined elsewhere")
	}
	if byValue := itemByName(t, mod, "takesValue"); byValue.Eligible {
		t.Error("by-value use of an incomplete type must be excluded")
	}
	if byPtr := itemByName(t, mod, "takesPointer"); !byPtr.Eligible {
		t.Errorf("pointer use of an incomplete type must stay bound, excluded: %q", byPtr.ExcludedReason)
	}
	if !hasCode(bag, diag.ImpIncompleteByValue) {
		t.Error("expected an incomplete-type-by-value diagnostic")
	}
}

func TestPolicy(t *testing.T) {
	newGraph := func() *decl.Graph {
		g := decl.NewGraph("m")
		g.Add(scalarRecord("Pub", 4))
		private := scalarRecord("Priv", 4)
		private.Public = false
		g.Add(private)
		denied := scalarRecord("Denied", 4)
		denied.Bind = decl.BindDeny
		g.Add(denied)
		exp := scalarRecord("Exp", 4)
		exp.Experimental = true
		g.Add(exp)
		return g
	}

	t.Run("defaults", func(t *testing.T) {
		mod, bag := importGraph(t, newGraph())
		if !itemByName(t, mod, "Pub").Eligible {
			t.Error("public item should be bound by default")
		}
		if itemByName(t, mod, "Priv").Eligible {
			t.Error("private item should not be bound by default")
		}
		if itemByName(t, mod, "Denied").Eligible {
			t.Error("denied item must not be bound")
		}
		if itemByName(t, mod, "Exp").Eligible {
			t.Error("experimental item must stay locked by default")
		}
		if !hasCode(bag, diag.ImpExperimentalLocked) {
			t.Error("expected a requires-experimental diagnostic")
		}
	})

	t.Run("experimental unlocked", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.Experimental = true
		mod, err := Import(newGraph(), policy, nil)
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if !itemByName(t, mod, "Exp").Eligible {
			t.Error("experimental item should bind once unlocked")
		}
	})

	t.Run("deny wins over allow", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.Allow = map[string]bool{"Denied": true}
		policy.Deny = map[string]bool{"Pub": true}
		mod, err := Import(newGraph(), policy, nil)
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if itemByName(t, mod, "Pub").Eligible {
			t.Error("denied-by-name item must not be bound")
		}
		if itemByName(t, mod, "Denied").Eligible {
			t.Error("source-level deny must win over policy allow")
		}
	})
}

func TestAmbiguousOverloadExcluded(t *testing.T) {
	g := decl.NewGraph("m")
	fn := freeFunc("overloaded", nil, decl.Void())
	fn.Func.AmbiguousOverload = true
	g.Add(fn)

	mod, bag := importGraph(t, g)
	if itemByName(t, mod, "overloaded").Eligible {
		t.Error("ambiguous overload must be excluded")
	}
	if !hasCode(bag, diag.ImpAmbiguousOverload) {
		t.Error("expected an ambiguous-overload diagnostic")
	}
}

func TestCallingConventions(t *testing.T) {
	tests := []struct {
		conv         decl.CallConv
		experimental bool
		wantBound    bool
	}{
		{decl.CallConvC, false, true},
		{decl.CallConvThis, false, true},
		{decl.CallConvFast, false, false},
		{decl.CallConvFast, true, true},
		{decl.CallConvVector, false, false},
		{decl.CallConvOther, true, false},
	}
	for _, tt := range tests {
		g := decl.NewGraph("m")
		fn := freeFunc("f", nil, decl.Void())
		fn.Func.CallConv = tt.conv
		g.Add(fn)

		policy := DefaultPolicy()
		policy.Experimental = tt.experimental
		mod, err := Import(g, policy, nil)
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if got := itemByName(t, mod, "f").Eligible; got != tt.wantBound {
			t.Errorf("conv=%v experimental=%t: bound=%t, want %t",
				tt.conv, tt.experimental, got, tt.wantBound)
		}
	}
}

func TestInstantiationCollection(t *testing.T) {
	g := decl.NewGraph("m")
	tmplID := g.Add(decl.Decl{
		Kind: decl.KindRecord, Name: "Vec", Mangled: "_ZVec", Public: true,
		Record: &decl.RecordDecl{
			Complete: true, SizeBytes: 8, AlignBytes: 8,
			Specials:       trivialSpecials(),
			TemplateParams: []string{"T"},
		},
	})
	used := scalarRecord("VecI32", 8)
	used.Record.TemplateOf = tmplID
	used.Record.TemplateArgs = []decl.TypeExpr{decl.Primitive("i32")}
	usedID := g.Add(used)

	unused := scalarRecord("VecU8", 8)
	unused.Record.TemplateOf = tmplID
	unused.Record.TemplateArgs = []decl.TypeExpr{decl.Primitive("u8")}
	g.Add(unused)

	// Pointer use still counts as an observation.
	g.Add(freeFunc("use",
		[]decl.Param{{Name: "v", Type: decl.PointerTo(decl.Named(usedID), true, false)}}, decl.Void()))

	mod, _ := importGraph(t, g)

	if itemByName(t, mod, "Vec").Eligible {
		t.Error("template definition must never be emitted directly")
	}
	usedItem := itemByName(t, mod, "VecI32")
	if !usedItem.Eligible {
		t.Error("observed instantiation must become eligible")
	}
	if itemByName(t, mod, "VecU8").Eligible {
		t.Error("unobserved instantiation must stay unemitted")
	}
	tmpl := itemByName(t, mod, "Vec")
	insts := tmpl.Record.Template.Instantiations
	if len(insts) != 1 || insts[0] != usedItem.ID {
		t.Errorf("template instantiation list = %v, want [%d]", insts, usedItem.ID)
	}
}

func TestPartialSpecializationExcluded(t *testing.T) {
	g := decl.NewGraph("m")
	tmplID := g.Add(decl.Decl{
		Kind: decl.KindRecord, Name: "Opt", Mangled: "_ZOpt", Public: true,
		Record: &decl.RecordDecl{
			Complete: true, SizeBytes: 8, AlignBytes: 8,
			Specials:       trivialSpecials(),
			TemplateParams: []string{"T"},
		},
	})
	spec := scalarRecord("OptPtr", 8)
	spec.Record.TemplateOf = tmplID
	spec.Record.PartialSpecialization = true
	specID := g.Add(spec)
	g.Add(freeFunc("use",
		[]decl.Param{{Name: "o", Type: decl.PointerTo(decl.Named(specID), true, false)}}, decl.Void()))

	mod, bag := importGraph(t, g)
	if itemByName(t, mod, "OptPtr").Eligible {
		t.Error("partial specialization must stay excluded even when observed")
	}
	if !hasCode(bag, diag.ImpPartialSpecialization) {
		t.Error("expected a partial-specialization diagnostic")
	}
}

func TestUnsupportedTypeExcludes(t *testing.T) {
	g := decl.NewGraph("m")
	g.Add(freeFunc("bad",
		[]decl.Param{{Name: "x", Type: decl.Unsupported("rvalue reference")}}, decl.Void()))
	rec := scalarRecord("Holder", 8)
	rec.Record.Fields = append(rec.Record.Fields, decl.Field{
		Name: "weird", Type: decl.Unsupported("member pointer"), OffsetBits: 32,
	})
	g.Add(rec)

	mod, bag := importGraph(t, g)
	if itemByName(t, mod, "bad").Eligible {
		t.Error("function with an unsupported parameter must be excluded")
	}
	if itemByName(t, mod, "Holder").Eligible {
		t.Error("record with an unsupported field must be excluded")
	}
	if !hasCode(bag, diag.ImpUnsupportedType) {
		t.Error("expected unsupported-type diagnostics")
	}
}

func TestEscapeIdent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"_leading", "_leading"},
		{"1abc", "_1abc"},
		{"operator+", "operator_u002b"},
		{"with-dash", "with_u002ddash"},
		{"", "_"},
		{"a b", "a_u0020b"},
	}
	for _, tt := range tests {
		if got := escapeIdent(tt.in); got != tt.want {
			t.Errorf("escapeIdent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	// Same text in two normal forms escapes identically.
	if escapeIdent("café") != escapeIdent("café") {
		t.Error("NFC normalization should unify equivalent spellings")
	}
}

func TestParamIdent(t *testing.T) {
	if got := paramIdent("", 2); got != "__param_2" {
		t.Errorf("paramIdent(\"\", 2) = %q, want __param_2", got)
	}
	if got := paramIdent("n", 0); got != "n" {
		t.Errorf("paramIdent(\"n\", 0) = %q, want n", got)
	}
}

func TestNamespaceOwnership(t *testing.T) {
	g := decl.NewGraph("m")
	nsID := g.Add(decl.Decl{
		Kind: decl.KindNamespace, Name: "geo", Public: true,
		Namespace: &decl.NamespaceDecl{},
	})
	inner := scalarRecord("Point", 4)
	inner.Owner = nsID
	g.Add(inner)

	mod, _ := importGraph(t, g)
	pt := itemByName(t, mod, "Point")
	ns := itemByName(t, mod, "geo")
	if pt.Owner != ns.ID {
		t.Errorf("Point owner = %d, want namespace %d", pt.Owner, ns.ID)
	}
	if pt.QualifiedName(mod.Items) != "geo::Point" {
		t.Errorf("qualified name = %q, want geo::Point", pt.QualifiedName(mod.Items))
	}
	if len(ns.Namespace.Members) != 1 || ns.Namespace.Members[0] != pt.ID {
		t.Errorf("namespace members = %v, want [%d]", ns.Namespace.Members, pt.ID)
	}
}
