package importer

import (
	"sort"

	"crossbind/internal/ir"
)

// collectInstantiations is the explicit collection pass over the whole
// graph: template instantiations are marked for emission only when observed
// in use by some reachable, eligible item. There is no lazy
// instantiation-on-use during codegen; this worklist is the complete set.
func (imp *Importer) collectInstantiations() {
	seen := make(map[ir.ItemID]bool)
	var work []ir.ItemID

	// Seed with every directly eligible item. Instantiation records are
	// never directly eligible at this point, populate cleared them.
	for _, id := range imp.mod.Items.All() {
		it := imp.mod.Items.Get(id)
		if it != nil && it.Eligible {
			work = append(work, id)
		}
	}

	for len(work) > 0 {
		id := work[0]
		work = work[1:]
		it := imp.mod.Items.Get(id)
		if it == nil {
			continue
		}
		for _, ref := range imp.referencedRecords(it) {
			inst := imp.mod.Items.Get(ref)
			if inst == nil || inst.Record == nil || seen[ref] {
				continue
			}
			if !inst.Record.InstantiationOf.IsValid() {
				continue
			}
			seen[ref] = true
			// Instantiations excluded with a diagnostic (e.g. partial
			// specializations) stay excluded; users cascade at codegen.
			if inst.ExcludedReason != "" || !inst.Record.Complete {
				continue
			}
			inst.Eligible = true
			if tmpl := imp.mod.Items.Get(inst.Record.InstantiationOf); tmpl != nil &&
				tmpl.Record != nil && tmpl.Record.Template != nil {
				tmpl.Record.Template.Instantiations =
					append(tmpl.Record.Template.Instantiations, ref)
			}
			work = append(work, ref)
		}
	}

	// Keep per-template lists in declaration order for deterministic
	// emission regardless of observation order.
	for _, id := range imp.mod.Items.All() {
		it := imp.mod.Items.Get(id)
		if it == nil || it.Record == nil || it.Record.Template == nil {
			continue
		}
		insts := it.Record.Template.Instantiations
		sort.Slice(insts, func(i, j int) bool { return insts[i] < insts[j] })
	}
}

// referencedRecords returns every record item referenced by the item's
// structural surface: fields, bases, template arguments, signatures, alias
// targets. Pointer and reference indirection still counts as a use for
// instantiation purposes (the wrapper type must exist to be pointed at).
func (imp *Importer) referencedRecords(it *ir.Item) []ir.ItemID {
	var types []ir.TypeID
	switch {
	case it.Record != nil:
		for _, f := range it.Record.Fields {
			types = append(types, f.Type)
		}
		types = append(types, it.Record.TemplateArgs...)
	case it.Func != nil:
		types = append(types, it.Func.Return)
		for _, p := range it.Func.Params {
			types = append(types, p.Type)
		}
	case it.Alias != nil:
		types = append(types, it.Alias.Target)
	case it.Enum != nil:
		types = append(types, it.Enum.Underlying)
	}

	var out []ir.ItemID
	var walk func(id ir.TypeID)
	visited := make(map[ir.TypeID]bool)
	walk = func(id ir.TypeID) {
		if visited[id] {
			return
		}
		visited[id] = true
		t, ok := imp.mod.Types.Lookup(id)
		if !ok {
			return
		}
		switch t.Kind {
		case ir.TypeRecordRef:
			out = append(out, t.Item)
			for _, a := range t.Args {
				walk(a)
			}
		case ir.TypePointer, ir.TypeReference:
			walk(t.Pointee)
		case ir.TypeFuncPtr:
			walk(t.Return)
			for _, p := range t.Params {
				walk(p)
			}
		}
	}
	for _, tid := range types {
		walk(tid)
	}
	if it.Record != nil {
		for _, b := range it.Record.Bases {
			out = append(out, b.Item)
		}
	}
	return out
}
