package diag

// Reporter is the minimal contract phases use to hand off diagnostics.
// Whole Diagnostic values cross it so causal chains and notes survive into
// structured output. Implementations: BagReporter (appends to a Bag),
// NopReporter.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter writes every report into a *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Report(Diagnostic) {}
