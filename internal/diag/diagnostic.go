package diag

import (
	"crossbind/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic describes one excluded or suspect item. Item carries the
// qualified name of the declaration the diagnostic is about; Chain carries
// the causal path for cascaded exclusions, outermost cause last.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Item     string
	Message  string
	Primary  source.Span
	Notes    []Note
	Chain    []string
}

func New(sev Severity, code Code, item string, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Item:     item,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, item string, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, item, primary, msg)
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

// WithChain records the exclusion path that led to this diagnostic.
func (d Diagnostic) WithChain(chain ...string) Diagnostic {
	d.Chain = append(d.Chain, chain...)
	return d
}
