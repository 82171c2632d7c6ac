package gen

import (
	"fmt"
	"sort"

	"crossbind/internal/diag"
	"crossbind/internal/ir"
	"crossbind/internal/keys"
)

// skipInfo remembers why an item dropped out during planning, with the
// causal chain for cascaded exclusions.
type skipInfo struct {
	reason string
	chain  []string
}

// plan is the resolved emission set: which items emit, which external items
// resolve to which upstream wrappers, and which records only get an opaque
// forward declaration because they are referenced behind pointers without a
// usable definition.
type plan struct {
	mod   *ir.Module
	deps  *keys.Set
	order []ir.ItemID
	dir   Direction

	emit        []ir.ItemID
	external    map[ir.ItemID]keys.Entry
	opaque      []ir.ItemID
	skipped     map[ir.ItemID]skipInfo
	extResolved map[ir.ItemID]bool
}

func buildPlan(mod *ir.Module, order []ir.ItemID, deps *keys.Set, dir Direction, r diag.Reporter) (*plan, error) {
	p := &plan{
		mod:         mod,
		deps:        deps,
		order:       order,
		dir:         dir,
		external:    make(map[ir.ItemID]keys.Entry),
		skipped:     make(map[ir.ItemID]skipInfo),
		extResolved: make(map[ir.ItemID]bool),
	}

	// Resolve every externally-defined item against the dependency key
	// tables first, so cascade checks see complete linkage information.
	for _, id := range order {
		if it := mod.Items.Get(id); it != nil && it.Module != "" {
			p.resolveExternal(it, r)
		}
	}

	// Decide fates in two passes: records first (cascades between records
	// follow the topological order), then everything else once the fate of
	// every record is known. Emission order is the original topological
	// order regardless of which pass decided an item.
	decided := make(map[ir.ItemID]bool, len(order))
	for _, pass := range []func(*ir.Item) bool{
		func(it *ir.Item) bool { return it.Kind == ir.ItemRecord },
		func(it *ir.Item) bool { return it.Kind != ir.ItemRecord },
	} {
		for _, id := range order {
			it := mod.Items.Get(id)
			if it == nil || !pass(it) || it.Kind == ir.ItemNamespace {
				continue
			}
			if p.planItem(it, r) {
				decided[id] = true
			}
		}
	}
	for _, id := range order {
		if decided[id] {
			p.emit = append(p.emit, id)
		}
	}

	p.collectOpaque()
	p.reportCtorAmbiguity(r)
	return p, nil
}

// reportCtorAmbiguity notes records whose multiple bound constructors keep
// the Rust wrapper from exposing an associated new. The record and every
// constructor still bind; only the sugared entry point is withheld.
func (p *plan) reportCtorAmbiguity(r diag.Reporter) {
	if p.dir != DirCCToRS {
		return
	}
	for _, id := range p.emit {
		it := p.mod.Items.Get(id)
		if it == nil || it.Record == nil || isOpaque(p, id) {
			continue
		}
		if len(ctorCandidates(p, it)) > 1 {
			r.Report(diag.New(diag.SevInfo, diag.GenAmbiguousSpecial,
				it.QualifiedName(p.mod.Items), it.Span,
				"multiple constructors are bound; no associated new() is generated"))
		}
	}
}

// planItem decides one item's fate; true means it will be emitted.
func (p *plan) planItem(it *ir.Item, r diag.Reporter) bool {
	if it.Module != "" {
		// Defined in a dependency: resolve its binding key, never re-emit.
		p.resolveExternal(it, r)
		return false
	}
	if it.DefinedElsewhere {
		// Forward-declared only: handled by collectOpaque.
		return false
	}
	if reason, bad := p.byValueProblem(it); bad {
		p.skipped[it.ID] = skipInfo{reason: reason}
		r.Report(diag.New(diag.SevWarning, diag.ImpUnsupportedConstruct,
			it.QualifiedName(p.mod.Items), it.Span, reason))
		return false
	}
	if cause, chain, bad := p.structuralProblem(it); bad {
		p.skip(it, r, cause, chain)
		return false
	}
	return true
}

// byValueProblem rejects functions that move a non-trivially-relocatable
// record across the thunk boundary in the rs-to-cc direction. The C++
// wrapper cannot relinquish ownership of a by-value parameter, so such
// signatures bind behind a reference or not at all.
func (p *plan) byValueProblem(it *ir.Item) (string, bool) {
	if p.dir != DirRSToCC || it.Func == nil {
		return "", false
	}
	fn := it.Func
	if p.passIndirect(fn.Return) {
		return "returns a non-trivially-relocatable record by value, which is not supported in this direction", true
	}
	for _, prm := range fn.Params {
		if p.passIndirect(prm.Type) {
			return fmt.Sprintf("passes parameter %q by value, but its type is not trivially relocatable in this direction; bind it behind a reference", prm.Ident), true
		}
	}
	return "", false
}

// passIndirect reports whether a by-value occurrence of the type must cross
// the thunk boundary behind a pointer. The frontend's classification decides
// for local records; dependency records do not export one and always pass
// indirectly.
func (p *plan) passIndirect(tid ir.TypeID) bool {
	t, ok := p.mod.Types.Lookup(tid)
	if !ok || t.Kind != ir.TypeRecordRef {
		return false
	}
	it := p.mod.Items.Get(t.Item)
	if it == nil {
		return false
	}
	if it.Module != "" || it.Record == nil {
		return true
	}
	return !it.Record.PassInRegisters
}

// skip records a cascaded exclusion with its causal chain.
func (p *plan) skip(it *ir.Item, r diag.Reporter, reason string, chain []string) {
	p.skipped[it.ID] = skipInfo{reason: reason, chain: chain}
	r.Report(diag.New(diag.SevWarning, diag.GenCascade,
		it.QualifiedName(p.mod.Items), it.Span, reason).WithChain(chain...))
}

// resolveExternal maps an item defined in a dependency to its exported
// binding key. The union covers direct dependencies only; anything missing
// makes every referencing item unsupported, it never crashes the run.
func (p *plan) resolveExternal(it *ir.Item, r diag.Reporter) {
	if p.extResolved[it.ID] {
		return
	}
	p.extResolved[it.ID] = true
	if _, entry, ok := p.deps.Lookup(it.Mangled); ok {
		p.external[it.ID] = entry
		return
	}
	r.Report(diag.New(diag.SevWarning, diag.LinkMissingKey, it.QualifiedName(p.mod.Items), it.Span,
		fmt.Sprintf("no binding key for %q in any direct dependency", it.Name)))
}

// externalEntry returns the resolved key for an external item.
func (p *plan) externalEntry(id ir.ItemID) (keys.Entry, bool) {
	e, ok := p.external[id]
	return e, ok
}

// missingExternal walks a type expression looking for any reference to a
// dependency item with no binding key, at any depth. Local items can fall
// back to opaque stand-ins behind pointers; external items cannot, because
// the wrapper has no path to name them with.
func (p *plan) missingExternal(tid ir.TypeID) (ir.ItemID, bool) {
	t, ok := p.mod.Types.Lookup(tid)
	if !ok {
		return ir.NoItemID, false
	}
	switch t.Kind {
	case ir.TypePointer, ir.TypeReference:
		return p.missingExternal(t.Pointee)
	case ir.TypeFuncPtr:
		if id, bad := p.missingExternal(t.Return); bad {
			return id, true
		}
		for _, prm := range t.Params {
			if id, bad := p.missingExternal(prm); bad {
				return id, true
			}
		}
	case ir.TypeRecordRef:
		dep := p.mod.Items.Get(t.Item)
		if dep != nil && dep.Module != "" {
			if _, ok := p.externalEntry(t.Item); !ok {
				return t.Item, true
			}
		}
		for _, a := range t.Args {
			if id, bad := p.missingExternal(a); bad {
				return id, true
			}
		}
	}
	return ir.NoItemID, false
}

// structuralProblem decides whether the item must cascade: it structurally
// requires (by value) an item that was excluded, skipped, or forward-declared
// only, or it references (even behind pointers) an external item with no
// binding key.
func (p *plan) structuralProblem(it *ir.Item) (string, []string, bool) {
	for _, tid := range p.itemTypes(it) {
		if id, bad := p.missingExternal(tid); bad {
			dep := p.mod.Items.Get(id)
			depName := dep.QualifiedName(p.mod.Items)
			return fmt.Sprintf("references %q, which has no binding key from a direct dependency", depName),
				[]string{fmt.Sprintf("no binding key for %q in any direct dependency", dep.Name)}, true
		}
	}
	check := func(id ir.ItemID, role string) (string, []string, bool) {
		dep := p.mod.Items.Get(id)
		if dep == nil {
			return "", nil, false
		}
		depName := dep.QualifiedName(p.mod.Items)
		if dep.Module != "" {
			if _, ok := p.externalEntry(id); !ok {
				return fmt.Sprintf("%s %q has no binding key from a direct dependency", role, depName), nil, true
			}
			return "", nil, false
		}
		if prior, ok := p.skipped[id]; ok {
			chain := append([]string{fmt.Sprintf("%s %q was skipped: %s", role, depName, prior.reason)}, prior.chain...)
			return fmt.Sprintf("%s %q was skipped", role, depName), chain, true
		}
		if dep.ExcludedReason != "" || !dep.Eligible {
			reason := dep.ExcludedReason
			if reason == "" {
				reason = "not eligible for binding"
			}
			return fmt.Sprintf("%s %q was excluded: %s", role, depName, reason),
				[]string{fmt.Sprintf("%q: %s", depName, reason)}, true
		}
		if dep.DefinedElsewhere {
			return fmt.Sprintf("%s %q has no definition in this translation unit", role, depName), nil, true
		}
		return "", nil, false
	}

	byValueRecord := func(tid ir.TypeID) (ir.ItemID, bool) {
		t, ok := p.mod.Types.Lookup(tid)
		if !ok || t.Kind != ir.TypeRecordRef {
			return ir.NoItemID, false
		}
		return t.Item, true
	}

	switch {
	case it.Record != nil:
		for _, b := range it.Record.Bases {
			if msg, chain, bad := check(b.Item, "base"); bad {
				return msg, chain, true
			}
		}
		for _, f := range it.Record.Fields {
			if id, ok := byValueRecord(f.Type); ok {
				if msg, chain, bad := check(id, fmt.Sprintf("field %q of type", f.Name)); bad {
					return msg, chain, true
				}
			}
		}
	case it.Func != nil:
		if it.Func.IsMember() {
			if msg, chain, bad := check(it.Func.Member, "owning record"); bad {
				return msg, chain, true
			}
		}
		if id, ok := byValueRecord(it.Func.Return); ok {
			if msg, chain, bad := check(id, "by-value return type"); bad {
				return msg, chain, true
			}
		}
		for _, prm := range it.Func.Params {
			if !prm.ByValue {
				continue
			}
			if id, ok := byValueRecord(prm.Type); ok {
				if msg, chain, bad := check(id, fmt.Sprintf("by-value parameter %q of type", prm.Ident)); bad {
					return msg, chain, true
				}
			}
		}
	case it.Alias != nil:
		if id, ok := byValueRecord(it.Alias.Target); ok {
			if msg, chain, bad := check(id, "aliased type"); bad {
				return msg, chain, true
			}
		}
	}
	return "", nil, false
}

// itemTypes lists every type expression the item's signature or layout
// mentions.
func (p *plan) itemTypes(it *ir.Item) []ir.TypeID {
	var out []ir.TypeID
	switch {
	case it.Record != nil:
		for _, f := range it.Record.Fields {
			out = append(out, f.Type)
		}
	case it.Func != nil:
		out = append(out, it.Func.Return)
		for _, prm := range it.Func.Params {
			out = append(out, prm.Type)
		}
	case it.Alias != nil:
		out = append(out, it.Alias.Target)
	}
	return out
}

// collectOpaque finds local records that are referenced behind pointers by
// emitted items but have no emitted definition: forward-declared records and
// excluded ones. They get opaque stand-in declarations so pointer-typed
// signatures still name a real type.
func (p *plan) collectOpaque() {
	emitted := make(map[ir.ItemID]bool, len(p.emit))
	for _, id := range p.emit {
		emitted[id] = true
	}
	need := make(map[ir.ItemID]bool)

	var walkType func(tid ir.TypeID, behindPtr bool)
	walkType = func(tid ir.TypeID, behindPtr bool) {
		t, ok := p.mod.Types.Lookup(tid)
		if !ok {
			return
		}
		switch t.Kind {
		case ir.TypePointer, ir.TypeReference:
			walkType(t.Pointee, true)
		case ir.TypeFuncPtr:
			walkType(t.Return, true)
			for _, prm := range t.Params {
				walkType(prm, true)
			}
		case ir.TypeRecordRef:
			dep := p.mod.Items.Get(t.Item)
			if dep == nil || dep.Module != "" {
				return
			}
			if behindPtr && !emitted[t.Item] && dep.Kind == ir.ItemRecord {
				need[t.Item] = true
			}
			for _, a := range t.Args {
				walkType(a, behindPtr)
			}
		}
	}

	for _, id := range p.emit {
		it := p.mod.Items.Get(id)
		if it == nil {
			continue
		}
		switch {
		case it.Record != nil:
			for _, f := range it.Record.Fields {
				walkType(f.Type, false)
			}
		case it.Func != nil:
			walkType(it.Func.Return, false)
			for _, prm := range it.Func.Params {
				walkType(prm.Type, false)
			}
		case it.Alias != nil:
			walkType(it.Alias.Target, false)
		}
	}

	for id := range need {
		p.opaque = append(p.opaque, id)
	}
	sort.Slice(p.opaque, func(i, j int) bool { return p.opaque[i] < p.opaque[j] })
}
