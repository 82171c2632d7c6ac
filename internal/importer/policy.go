package importer

import (
	"crossbind/internal/decl"
)

// Policy is the per-run eligibility configuration consulted during import.
type Policy struct {
	// Experimental unlocks otherwise-unsupported constructs at the cost of
	// stability guarantees.
	Experimental bool
	// Allow/Deny are explicit per-item overrides keyed by qualified name.
	// Deny wins over Allow.
	Allow map[string]bool
	Deny  map[string]bool
	// BindPublicByDefault binds every public item unless opted out. When
	// false only explicitly allowed items are bound.
	BindPublicByDefault bool
}

// DefaultPolicy binds all public items with experimental features locked.
func DefaultPolicy() Policy {
	return Policy{BindPublicByDefault: true}
}

// decision is the resolved eligibility for one declaration.
type decision uint8

const (
	decideBind decision = iota
	decideSkipPolicy
	decideSkipExperimental
)

func (p Policy) decide(d *decl.Decl, qualified string) decision {
	if p.Deny[qualified] || d.Bind == decl.BindDeny {
		return decideSkipPolicy
	}
	if d.Experimental && !p.Experimental {
		return decideSkipExperimental
	}
	if p.Allow[qualified] || d.Bind == decl.BindAllow {
		return decideBind
	}
	if p.BindPublicByDefault && d.Public {
		return decideBind
	}
	return decideSkipPolicy
}
