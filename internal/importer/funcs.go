package importer

import (
	"fmt"

	"crossbind/internal/decl"
	"crossbind/internal/diag"
	"crossbind/internal/ir"
)

func (imp *Importer) populateFunc(d *decl.Decl, it *ir.Item) {
	fd := d.Func
	fn := &ir.Function{
		Return:   imp.lowerType(fd.Return),
		CallConv: fd.CallConv,
		Member:   imp.byDecl[fd.Member],
		Classify: fd.Classify,
		Const:    fd.Const,
		Inline:   fd.Inline,
	}
	for i, p := range fd.Params {
		fn.Params = append(fn.Params, ir.Param{
			Name:    p.Name,
			Ident:   paramIdent(p.Name, i),
			Type:    imp.lowerType(p.Type),
			ByValue: p.ByValue,
		})
	}
	it.Func = fn

	if !it.Eligible {
		return
	}

	if fd.AmbiguousOverload {
		imp.exclude(d, diag.ImpAmbiguousOverload, diag.SevWarning,
			"overload set cannot be uniquely resolved for binding")
		return
	}

	switch fd.CallConv {
	case decl.CallConvC, decl.CallConvThis:
		// Representable on every supported target.
	case decl.CallConvFast, decl.CallConvVector:
		if !imp.policy.Experimental {
			imp.exclude(d, diag.ImpBadCallConv, diag.SevWarning,
				fmt.Sprintf("calling convention %q requires experimental features", fd.CallConv))
			return
		}
	default:
		imp.exclude(d, diag.ImpBadCallConv, diag.SevWarning,
			fmt.Sprintf("calling convention %q is not representable", fd.CallConv))
		return
	}

	if reason := imp.unsupportedReason(fn.Return); reason != "" {
		imp.exclude(d, diag.ImpUnsupportedType, diag.SevWarning,
			fmt.Sprintf("return type is not supported: %s", reason))
		return
	}
	if reason, bad := imp.incompleteByValue(fn.Return); bad {
		imp.exclude(d, diag.ImpIncompleteByValue, diag.SevWarning,
			fmt.Sprintf("return: %s", reason))
		return
	}
	for _, p := range fn.Params {
		if reason := imp.unsupportedReason(p.Type); reason != "" {
			imp.exclude(d, diag.ImpUnsupportedType, diag.SevWarning,
				fmt.Sprintf("parameter %q has unsupported type: %s", p.Ident, reason))
			return
		}
		if !p.ByValue {
			continue
		}
		if reason, bad := imp.incompleteByValue(p.Type); bad {
			imp.exclude(d, diag.ImpIncompleteByValue, diag.SevWarning,
				fmt.Sprintf("parameter %q: %s", p.Ident, reason))
			return
		}
	}
}
