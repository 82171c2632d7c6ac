package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"crossbind/internal/diag"
	"crossbind/internal/source"
)

func sampleBag(files *source.FileTable) *diag.Bag {
	fid := files.Add("src/geometry.h")
	bag := diag.NewBag(8)
	bag.Add(diag.New(diag.SevWarning, diag.ImpUnsupportedType, "geo::Detail",
		source.Span{File: fid, Start: 12, End: 30},
		"field \"raw\" has unsupported type: member pointer"))
	bag.Add(diag.NewError(diag.GenCascade, "geo::Holder",
		source.Span{File: fid, Start: 40, End: 55},
		"field \"d\" of type \"geo::Detail\" was excluded").
		WithChain(`"geo::Detail": unsupported type`).
		WithNote(source.Span{File: fid, Start: 12, End: 30}, "declared here"))
	return bag
}

func TestJSONOutput(t *testing.T) {
	files := source.NewFileTable()
	bag := sampleBag(files)

	var buf bytes.Buffer
	if err := JSON(&buf, bag, files); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}

	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if out.Count != 2 || len(out.Diagnostics) != 2 {
		t.Fatalf("count = %d diags = %d", out.Count, len(out.Diagnostics))
	}
	first := out.Diagnostics[0]
	if first.Severity != "WARNING" || first.Code != "XB1001(unsupported-type)" {
		t.Errorf("first = %+v", first)
	}
	if first.Location.File != "src/geometry.h" || first.Location.StartByte != 12 {
		t.Errorf("location = %+v", first.Location)
	}
	second := out.Diagnostics[1]
	if len(second.Chain) != 1 || len(second.Notes) != 1 {
		t.Errorf("chain/notes = %d/%d", len(second.Chain), len(second.Notes))
	}
}

// Cascades travel from reporter to renderer as whole diagnostics; the chain
// must survive collection and appear in machine-readable output.
func TestJSONKeepsReportedChain(t *testing.T) {
	files := source.NewFileTable()
	fid := files.Add("src/dep.h")
	bag := diag.NewBag(8)
	var r diag.Reporter = diag.BagReporter{Bag: bag}
	r.Report(diag.New(diag.SevWarning, diag.GenCascade, "m::User",
		source.Span{File: fid, Start: 3, End: 9},
		"field \"d\" of type \"m::Dep\" was skipped").
		WithChain(`no binding key for "Dep" in any direct dependency`))

	var buf bytes.Buffer
	if err := JSON(&buf, bag, files); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(out.Diagnostics) != 1 {
		t.Fatalf("diags = %d, want 1", len(out.Diagnostics))
	}
	chain := out.Diagnostics[0].Chain
	if len(chain) != 1 || !strings.Contains(chain[0], "no binding key") {
		t.Errorf("chain = %v, want the missing-key cause", chain)
	}
}

func TestPrettyOutput(t *testing.T) {
	files := source.NewFileTable()
	bag := sampleBag(files)

	var buf bytes.Buffer
	Pretty(&buf, bag, files, PrettyOpts{Color: false})
	text := buf.String()

	for _, want := range []string{
		"src/geometry.h:12-30: WARNING XB1001(unsupported-type): geo::Detail:",
		"src/geometry.h:40-55: ERROR XB3001(cascaded-exclusion): geo::Holder:",
		"  note: declared here",
		"  cause: \"geo::Detail\": unsupported type",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("pretty output missing %q\n----\n%s", want, text)
		}
	}
	if strings.Contains(text, "\x1b[") {
		t.Error("color disabled but escape codes present")
	}
}

func TestPrettyUnknownFile(t *testing.T) {
	files := source.NewFileTable()
	bag := diag.NewBag(2)
	bag.Add(diag.New(diag.SevInfo, diag.ImpDeniedByPolicy, "x", source.Span{}, "opted out"))

	var buf bytes.Buffer
	Pretty(&buf, bag, files, PrettyOpts{})
	if !strings.Contains(buf.String(), "<unknown>:0-0: INFO") {
		t.Errorf("output = %q", buf.String())
	}
}
