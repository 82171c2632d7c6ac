package importer

import (
	"fmt"

	"crossbind/internal/decl"
	"crossbind/internal/diag"
	"crossbind/internal/ir"
)

const (
	specUntouched uint8 = iota
	specInProgress
	specDone
)

func (imp *Importer) populateRecord(d *decl.Decl, it *ir.Item) {
	imp.resolveRecord(d)
	if imp.fatal != nil {
		return
	}
	rec := it.Record
	if rec == nil {
		return
	}

	if !rec.Complete {
		// Forward-declared only: usable behind pointers, never by value.
		it.DefinedElsewhere = true
		return
	}

	if d.Record.PartialSpecialization && it.Eligible {
		imp.exclude(d, diag.ImpPartialSpecialization, diag.SevWarning,
			"instantiated through a partial specialization; argument deduction is not supported, use the unsugared form")
		return
	}

	// Template definitions are never emitted directly; only observed
	// instantiations are. No diagnostic: this is not an exclusion.
	if rec.IsTemplate() || rec.InstantiationOf.IsValid() {
		it.Eligible = false
	}

	if !it.Eligible {
		return
	}
	for _, f := range rec.Fields {
		if reason := imp.unsupportedReason(f.Type); reason != "" {
			imp.exclude(d, diag.ImpUnsupportedType, diag.SevWarning,
				fmt.Sprintf("field %q has unsupported type: %s", f.Name, reason))
			return
		}
	}
}

// resolveRecord fills the ir.Record payload, resolving base and field
// records first so special-member propagation sees final subobject states.
// A by-value cycle here means the source compiler's own invariants were
// violated; it is a fatal internal failure, never silently truncated.
func (imp *Importer) resolveRecord(d *decl.Decl) {
	switch imp.specState[d.ID] {
	case specDone:
		return
	case specInProgress:
		imp.internalFailure(d, diag.InternalLayoutCycle,
			"record layout depends on itself by value")
		return
	}
	imp.specState[d.ID] = specInProgress
	defer func() { imp.specState[d.ID] = specDone }()

	it := imp.item(d.ID)
	rd := d.Record
	rec := &ir.Record{
		Complete:        rd.Complete,
		IsUnion:         rd.IsUnion,
		Size:            rd.SizeBytes,
		Align:           rd.AlignBytes,
		PassInRegisters: rd.PassInRegisters,
	}
	it.Record = rec
	if !rd.Complete {
		return
	}

	for _, b := range rd.Bases {
		baseDecl := imp.graph.Get(b.Record)
		if baseDecl != nil {
			imp.resolveRecord(baseDecl)
			if imp.fatal != nil {
				return
			}
		}
		baseItem, ok := imp.byDecl[b.Record]
		if !ok {
			// The frontend listed a base that never reached the decl graph;
			// layout and special-member propagation would silently miss it.
			imp.internalFailure(d, diag.InternalDanglingItem,
				fmt.Sprintf("base class of %q refers to a declaration that was never imported", d.Name))
			return
		}
		unsafeLayout := b.Virtual || b.Ambiguous
		if unsafeLayout {
			rec.NoSafeUpcast = true
		}
		rec.Bases = append(rec.Bases, ir.Base{
			Item:       baseItem,
			Offset:     b.OffsetBytes,
			SafeUpcast: !unsafeLayout,
		})
	}

	for _, f := range rd.Fields {
		ft := imp.lowerType(f.Type)
		imp.resolveFieldRecord(ft)
		if imp.fatal != nil {
			return
		}
		rec.Fields = append(rec.Fields, ir.Field{
			Name:            f.Name,
			Ident:           escapeIdent(f.Name),
			Type:            ft,
			OffsetBits:      f.OffsetBits,
			BitWidth:        f.BitWidth,
			NoUniqueAddress: f.NoUniqueAddress,
		})
	}

	imp.resolveSpecials(d, rec)

	if rd.IsTemplate() {
		rec.Template = &ir.TemplateInfo{Params: rd.TemplateParams}
	}
	if rd.IsInstantiation() {
		rec.InstantiationOf = imp.byDecl[rd.TemplateOf]
		for _, a := range rd.TemplateArgs {
			rec.TemplateArgs = append(rec.TemplateArgs, imp.lowerType(a))
		}
		if tmpl := imp.mod.Items.Get(rec.InstantiationOf); tmpl != nil && tmpl.Record != nil {
			if tmpl.Record.Template == nil {
				tmplDecl := imp.graph.Get(rd.TemplateOf)
				if tmplDecl != nil {
					imp.resolveRecord(tmplDecl)
				}
			}
		}
	}
}

// resolveFieldRecord resolves the record behind a by-value field type, if
// any, so its special members are final before propagation reads them.
func (imp *Importer) resolveFieldRecord(id ir.TypeID) {
	t, ok := imp.mod.Types.Lookup(id)
	if !ok || t.Kind != ir.TypeRecordRef {
		return
	}
	item := imp.mod.Items.Get(t.Item)
	if item == nil || item.Kind != ir.ItemRecord {
		return
	}
	if fieldDecl := imp.graph.Get(item.SourceDecl); fieldDecl != nil && fieldDecl.Kind == decl.KindRecord {
		imp.resolveRecord(fieldDecl)
	}
}

// resolveSpecials combines the user's declarations with implicit rules and
// deletion propagation from bases and fields.
func (imp *Importer) resolveSpecials(d *decl.Decl, rec *ir.Record) {
	for kind := decl.SpecialKind(0); kind < decl.SpecialCount; kind++ {
		sd := d.Record.Specials[kind]
		var resolved ir.SpecialMember
		switch sd.Avail {
		case decl.SpecialUserDefined:
			resolved = ir.SpecialMember{State: ir.SpecialNonTrivial, Mangled: sd.Mangled}
		case decl.SpecialDeleted:
			resolved = ir.SpecialMember{State: ir.SpecialDeleted}
		case decl.SpecialSuppressed:
			resolved = ir.SpecialMember{State: ir.SpecialUnavailable}
		case decl.SpecialDefaulted, decl.SpecialNotDeclared:
			resolved = imp.propagateSpecial(rec, kind)
			if resolved.State == ir.SpecialNonTrivial {
				resolved.Mangled = sd.Mangled
			}
			// The frontend's oracle claim cross-checks propagation. A
			// claimed-trivial operation we derived as non-trivial would
			// make generated code skip a required thunk: fatal. The
			// reverse direction trusts the oracle (ABI rules may make an
			// operation non-trivial for reasons invisible to subobject
			// propagation).
			if sd.Trivial && resolved.State == ir.SpecialNonTrivial {
				imp.internalFailure(d, diag.InternalTrivialityConflict,
					fmt.Sprintf("%s claimed trivial but a base or field makes it non-trivial", kind))
				return
			}
			if !sd.Trivial && resolved.State == ir.SpecialTrivial {
				resolved = ir.SpecialMember{State: ir.SpecialNonTrivial, Mangled: sd.Mangled}
			}
		}
		rec.Specials[kind] = resolved
	}
}

// propagateSpecial derives the implicit state of one operation from the
// record's bases and fields: any deleted or unavailable subobject operation
// deletes it, any non-trivial subobject operation makes it non-trivial,
// otherwise it is trivial.
func (imp *Importer) propagateSpecial(rec *ir.Record, kind decl.SpecialKind) ir.SpecialMember {
	state := ir.SpecialTrivial
	consider := func(sub ir.SpecialMember) {
		switch sub.State {
		case ir.SpecialDeleted, ir.SpecialUnavailable:
			state = ir.SpecialDeleted
		case ir.SpecialNonTrivial:
			if state == ir.SpecialTrivial {
				state = ir.SpecialNonTrivial
			}
		}
	}
	for _, b := range rec.Bases {
		if base := imp.mod.Items.Get(b.Item); base != nil && base.Record != nil {
			consider(base.Record.Special(kind))
		}
	}
	for _, f := range rec.Fields {
		consider(imp.typeSpecial(f.Type, kind))
	}
	return ir.SpecialMember{State: state}
}

// typeSpecial returns the special-member state contributed by a field type.
// Scalars, pointers and function pointers are always trivial.
func (imp *Importer) typeSpecial(id ir.TypeID, kind decl.SpecialKind) ir.SpecialMember {
	t, ok := imp.mod.Types.Lookup(id)
	if !ok {
		return ir.SpecialMember{State: ir.SpecialTrivial}
	}
	switch t.Kind {
	case ir.TypeRecordRef:
		item := imp.mod.Items.Get(t.Item)
		if item == nil || item.Record == nil {
			return ir.SpecialMember{State: ir.SpecialTrivial}
		}
		if !item.Record.Complete {
			// A by-value field of an incomplete type cannot exist in
			// well-formed source; treat as deleted so the record is
			// excluded rather than miscompiled.
			return ir.SpecialMember{State: ir.SpecialDeleted}
		}
		return item.Record.Special(kind)
	default:
		return ir.SpecialMember{State: ir.SpecialTrivial}
	}
}
