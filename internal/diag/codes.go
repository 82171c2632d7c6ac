package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Import-time exclusions. Each excludes one item, never the whole graph.
	ImpUnsupportedType       Code = 1001
	ImpAmbiguousOverload     Code = 1002
	ImpBadCallConv           Code = 1003
	ImpIncompleteByValue     Code = 1004
	ImpDeniedByPolicy        Code = 1005
	ImpExperimentalLocked    Code = 1006
	ImpUnsupportedConstruct  Code = 1007
	ImpPartialSpecialization Code = 1008

	// Cross-module linkage.
	LinkMissingKey  Code = 2001
	LinkStaleSchema Code = 2002

	// Generation-time exclusions.
	GenCascade          Code = 3001
	GenAmbiguousSpecial Code = 3002

	// Project/workspace level problems.
	ProjBadManifest     Code = 4001
	ProjDuplicateModule Code = 4002
	ProjMissingDep      Code = 4003
	ProjDepCycle        Code = 4004
	ProjDepFailed       Code = 4005

	// Internal consistency violations. Always fatal to the run.
	InternalLayoutCycle        Code = 9001
	InternalTrivialityConflict Code = 9002
	InternalDanglingItem       Code = 9003
)

var codeNames = map[Code]string{
	UnknownCode:                "unknown",
	ImpUnsupportedType:         "unsupported-type",
	ImpAmbiguousOverload:       "ambiguous-overload",
	ImpBadCallConv:             "unsupported-calling-convention",
	ImpIncompleteByValue:       "incomplete-type-by-value",
	ImpDeniedByPolicy:          "denied-by-policy",
	ImpExperimentalLocked:      "requires-experimental",
	ImpUnsupportedConstruct:    "unsupported-construct",
	ImpPartialSpecialization:   "partial-specialization",
	LinkMissingKey:             "missing-binding-key",
	LinkStaleSchema:            "stale-key-schema",
	GenCascade:                 "cascaded-exclusion",
	GenAmbiguousSpecial:        "ambiguous-special-member",
	ProjBadManifest:            "bad-manifest",
	ProjDuplicateModule:        "duplicate-module",
	ProjMissingDep:             "missing-dependency",
	ProjDepCycle:               "dependency-cycle",
	ProjDepFailed:              "dependency-failed",
	InternalLayoutCycle:        "internal-layout-cycle",
	InternalTrivialityConflict: "internal-triviality-conflict",
	InternalDanglingItem:       "internal-dangling-item",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return fmt.Sprintf("XB%04d(%s)", uint16(c), name)
	}
	return fmt.Sprintf("XB%04d", uint16(c))
}

// Fatal reports whether a diagnostic with this code must abort the run.
// Internal-consistency violations mean the importer's model of the source
// no longer holds; emitting code past them risks ABI-incorrect output.
func (c Code) Fatal() bool {
	return c >= InternalLayoutCycle
}
