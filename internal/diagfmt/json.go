package diagfmt

import (
	"encoding/json"
	"io"

	"crossbind/internal/diag"
	"crossbind/internal/source"
)

// LocationJSON is a file/byte-range location in JSON output.
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
}

// NoteJSON is an attached note in JSON output.
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// DiagnosticJSON is one diagnostic in JSON output.
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Item     string       `json:"item,omitempty"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
	Chain    []string     `json:"chain,omitempty"`
}

// DiagnosticsOutput is the root structure of JSON output.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

func makeLocation(span source.Span, files *source.FileTable) LocationJSON {
	return LocationJSON{
		File:      files.Path(span.File),
		StartByte: span.Start,
		EndByte:   span.End,
	}
}

// JSON writes the bag as a single machine-readable JSON document. The bag is
// expected to be sorted already; output order follows bag order.
func JSON(w io.Writer, bag *diag.Bag, files *source.FileTable) error {
	out := DiagnosticsOutput{
		Diagnostics: make([]DiagnosticJSON, 0, bag.Len()),
		Count:       bag.Len(),
	}
	for _, d := range bag.Items() {
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.String(),
			Item:     d.Item,
			Message:  d.Message,
			Location: makeLocation(d.Primary, files),
			Chain:    d.Chain,
		}
		for _, n := range d.Notes {
			dj.Notes = append(dj.Notes, NoteJSON{
				Message:  n.Msg,
				Location: makeLocation(n.Span, files),
			})
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
