package source

import "testing"

func TestSpanBasics(t *testing.T) {
	s := Span{File: 1, Start: 10, End: 14}
	if s.Empty() || s.Len() != 4 {
		t.Errorf("span = %+v, Empty=%t Len=%d", s, s.Empty(), s.Len())
	}
	if (Span{File: 1, Start: 3, End: 3}).Empty() != true {
		t.Error("zero-length span should be empty")
	}
	if s.String() != "1:10-14" {
		t.Errorf("String() = %q", s.String())
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 14}
	b := Span{File: 1, Start: 4, End: 12}
	got := a.Cover(b)
	if got.Start != 4 || got.End != 14 {
		t.Errorf("Cover = %+v", got)
	}
	other := Span{File: 2, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Errorf("cross-file Cover = %+v, want unchanged", got)
	}
}
