// Package importer populates the IR from a frontend declaration graph. One
// broken declaration excludes just that item, never the whole graph; the
// complete set of exclusions is reported through the diagnostics bag.
package importer

import (
	"errors"
	"fmt"

	"crossbind/internal/decl"
	"crossbind/internal/diag"
	"crossbind/internal/ir"
	"crossbind/internal/source"
)

// ErrInternalConsistency is returned when the graph violates invariants the
// source compiler itself should have enforced. Continuing past it risks
// emitting ABI-incorrect code, so the run fails with no output.
var ErrInternalConsistency = errors.New("internal consistency failure")

// Importer walks a frontend declaration graph and builds the IR module. All
// state is explicit; there are no global caches. The byDecl side table is
// the memoization surface, keyed by stable declaration identity.
type Importer struct {
	graph    *decl.Graph
	mod      *ir.Module
	policy   Policy
	reporter diag.Reporter

	byDecl map[decl.DeclID]ir.ItemID

	// specials resolution bookkeeping: 0 untouched, 1 in progress, 2 done.
	specState map[decl.DeclID]uint8

	fatal error
}

// Import builds an IR module from the graph. Per-item failures land in the
// reporter and mark the item ineligible; the returned error is non-nil only
// for internal consistency failures, which invalidate the whole run.
func Import(g *decl.Graph, policy Policy, r diag.Reporter) (*ir.Module, error) {
	if r == nil {
		r = diag.NopReporter{}
	}
	imp := &Importer{
		graph:     g,
		mod:       ir.NewModule(g.Module),
		policy:    policy,
		reporter:  r,
		byDecl:    make(map[decl.DeclID]ir.ItemID, len(g.Decls)),
		specState: make(map[decl.DeclID]uint8),
	}
	for _, path := range g.Files {
		imp.mod.Files.Add(path)
	}

	// Pass 1: allocate an item stub per declaration so type references
	// resolve even across forward references and cycles.
	for i := range g.Decls {
		imp.allocate(&g.Decls[i])
	}

	// Pass 2: fill payloads and decide eligibility.
	for i := range g.Decls {
		imp.populate(&g.Decls[i])
		if imp.fatal != nil {
			return nil, imp.fatal
		}
	}

	// Pass 3: collect observed template instantiations. Only instantiations
	// reachable from bound, eligible items are marked for emission.
	imp.collectInstantiations()
	if imp.fatal != nil {
		return nil, imp.fatal
	}
	return imp.mod, nil
}

func (imp *Importer) span(d *decl.Decl) source.Span {
	return source.Span{File: source.FileID(d.File), Start: d.SpanStart, End: d.SpanEnd}
}

func (imp *Importer) item(id decl.DeclID) *ir.Item {
	return imp.mod.Items.Get(imp.byDecl[id])
}

func (imp *Importer) qualified(d *decl.Decl) string {
	name := d.Name
	for owner := imp.graph.Get(d.Owner); owner != nil; owner = imp.graph.Get(owner.Owner) {
		name = owner.Name + "::" + name
	}
	return name
}

// exclude marks the item ineligible and reports why.
func (imp *Importer) exclude(d *decl.Decl, code diag.Code, sev diag.Severity, msg string) {
	if it := imp.item(d.ID); it != nil {
		it.Eligible = false
		it.ExcludedReason = msg
	}
	imp.reporter.Report(diag.New(sev, code, imp.qualified(d), imp.span(d), msg))
}

// internalFailure records a fatal consistency violation. The diagnostic is
// still reported so the cause survives in machine output.
func (imp *Importer) internalFailure(d *decl.Decl, code diag.Code, msg string) {
	imp.reporter.Report(diag.NewError(code, imp.qualified(d), imp.span(d), msg))
	if imp.fatal == nil {
		imp.fatal = fmt.Errorf("%s: %s: %w", imp.qualified(d), msg, ErrInternalConsistency)
	}
}

func (imp *Importer) allocate(d *decl.Decl) {
	kind := ir.ItemInvalid
	switch d.Kind {
	case decl.KindFunc:
		kind = ir.ItemFunc
	case decl.KindRecord:
		kind = ir.ItemRecord
	case decl.KindEnum:
		kind = ir.ItemEnum
	case decl.KindTypeAlias:
		kind = ir.ItemTypeAlias
	case decl.KindNamespace:
		kind = ir.ItemNamespace
	}
	it := &ir.Item{
		Kind:       kind,
		Name:       d.Name,
		Ident:      escapeIdent(d.Name),
		Mangled:    d.Mangled,
		Module:     d.Module,
		Span:       imp.span(d),
		SourceDecl: d.ID,
	}
	id := imp.mod.Items.New(it)
	imp.byDecl[d.ID] = id
}

func (imp *Importer) populate(d *decl.Decl) {
	it := imp.item(d.ID)
	if it == nil {
		return
	}
	it.Owner = imp.byDecl[d.Owner]

	switch imp.policy.decide(d, imp.qualified(d)) {
	case decideSkipPolicy:
		it.Eligible = false
		if d.Bind == decl.BindDeny {
			imp.reporter.Report(diag.New(diag.SevInfo, diag.ImpDeniedByPolicy,
				imp.qualified(d), imp.span(d), "item explicitly opted out of binding generation"))
		}
	case decideSkipExperimental:
		imp.exclude(d, diag.ImpExperimentalLocked, diag.SevWarning,
			"item requires experimental features, which are not enabled")
	case decideBind:
		it.Eligible = true
	}

	switch d.Kind {
	case decl.KindRecord:
		imp.populateRecord(d, it)
	case decl.KindFunc:
		imp.populateFunc(d, it)
	case decl.KindEnum:
		imp.populateEnum(d, it)
	case decl.KindTypeAlias:
		imp.populateAlias(d, it)
	case decl.KindNamespace:
		it.Namespace = &ir.Namespace{}
		if owner := imp.item(d.Owner); owner != nil && owner.Namespace != nil {
			owner.Namespace.Members = append(owner.Namespace.Members, it.ID)
		}
	}

	// Namespace membership for non-namespace items too.
	if d.Kind != decl.KindNamespace {
		if owner := imp.item(d.Owner); owner != nil && owner.Namespace != nil {
			owner.Namespace.Members = append(owner.Namespace.Members, it.ID)
		}
	}
}

func (imp *Importer) populateEnum(d *decl.Decl, it *ir.Item) {
	underlying := imp.lowerType(d.Enum.Underlying)
	e := &ir.Enum{Underlying: underlying}
	for _, en := range d.Enum.Enumerators {
		e.Enumerators = append(e.Enumerators, ir.Enumerator{
			Name:  en.Name,
			Ident: escapeIdent(en.Name),
			Value: en.Value,
		})
	}
	it.Enum = e
	if reason := imp.unsupportedReason(underlying); reason != "" && it.Eligible {
		imp.exclude(d, diag.ImpUnsupportedType, diag.SevWarning,
			fmt.Sprintf("underlying type is not supported: %s", reason))
	}
}

func (imp *Importer) populateAlias(d *decl.Decl, it *ir.Item) {
	target := imp.lowerType(d.Alias.Target)
	it.Alias = &ir.Alias{Target: target}
	if reason := imp.unsupportedReason(target); reason != "" && it.Eligible {
		imp.exclude(d, diag.ImpUnsupportedType, diag.SevWarning,
			fmt.Sprintf("aliased type is not supported: %s", reason))
	}
}
