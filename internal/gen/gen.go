// Package gen turns an ordered IR module into two source artifacts: an
// idiomatic wrapper in the target language and a flat glue file compiled
// back into the origin language. Output is a pure function of the module,
// the emission order and the dependency key tables: byte-for-byte identical
// across runs.
package gen

import (
	"fmt"

	"crossbind/internal/diag"
	"crossbind/internal/ir"
	"crossbind/internal/keys"
)

// Direction selects which language is the origin and which is the target.
type Direction uint8

const (
	// DirCCToRS binds a C++-like origin for a Rust-like target.
	DirCCToRS Direction = iota
	// DirRSToCC binds a Rust-like origin for a C++-like target.
	DirRSToCC
)

func (d Direction) String() string {
	switch d {
	case DirCCToRS:
		return "cc-to-rs"
	case DirRSToCC:
		return "rs-to-cc"
	}
	return "invalid"
}

// ParseDirection parses the manifest spelling of a direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "cc-to-rs":
		return DirCCToRS, nil
	case "rs-to-cc":
		return DirRSToCC, nil
	}
	return 0, fmt.Errorf("unknown binding direction %q", s)
}

// Options configures one generation run.
type Options struct {
	Direction Direction
	// Headers are the origin source files the glue must include (cc-to-rs)
	// or the origin crate name (rs-to-cc, single element).
	Headers []string
}

// Result is the complete output of one run. A Result is only produced when
// generation succeeds as a whole; there is no partial output.
type Result struct {
	Wrapper string
	Glue    string
	Keys    *keys.Table
}

// Generate emits wrapper and glue source for the ordered items. Per-item
// failures (cascades, missing binding keys) are reported and skip just that
// item; only internal inconsistencies return an error.
func Generate(mod *ir.Module, order []ir.ItemID, deps *keys.Set, opts Options, r diag.Reporter) (Result, error) {
	if r == nil {
		r = diag.NopReporter{}
	}
	plan, err := buildPlan(mod, order, deps, opts.Direction, r)
	if err != nil {
		return Result{}, err
	}

	var wrapper, glue string
	switch opts.Direction {
	case DirCCToRS:
		wrapper = emitRustWrapper(plan)
		glue = emitCCGlue(plan, opts.Headers)
	case DirRSToCC:
		wrapper = emitCCWrapper(plan)
		glue = emitRustGlue(plan, opts.Headers)
	default:
		return Result{}, fmt.Errorf("gen: invalid direction %d", opts.Direction)
	}

	return Result{
		Wrapper: wrapper,
		Glue:    glue,
		Keys:    exportKeys(plan),
	}, nil
}
