package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"crossbind/internal/diag"
	"crossbind/internal/source"
)

// PrettyOpts controls human-readable diagnostic rendering.
type PrettyOpts struct {
	Color bool
}

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
	itemColor = color.New(color.Bold)
)

// Pretty renders diagnostics one per block:
//
//	<path>:<start>-<end>: <SEV> <CODE>: <item>: <message>
//	  note: ...
//	  cause: ...
//
// Callers are expected to bag.Sort() first.
func Pretty(w io.Writer, bag *diag.Bag, files *source.FileTable, opts PrettyOpts) {
	prevNoColor := color.NoColor
	color.NoColor = !opts.Color
	defer func() { color.NoColor = prevNoColor }()

	for _, d := range bag.Items() {
		path := files.Path(d.Primary.File)
		if path == "" {
			path = "<unknown>"
		}
		sev := sevPrinter(d.Severity).Sprint(d.Severity.String())
		item := ""
		if d.Item != "" {
			item = itemColor.Sprint(d.Item) + ": "
		}
		fmt.Fprintf(w, "%s:%d-%d: %s %s: %s%s\n",
			path, d.Primary.Start, d.Primary.End, sev, d.Code, item, d.Message)
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  note: %s\n", n.Msg)
		}
		for _, c := range d.Chain {
			fmt.Fprintf(w, "  cause: %s\n", c)
		}
	}
}

func sevPrinter(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return errColor
	case diag.SevWarning:
		return warnColor
	default:
		return infoColor
	}
}
