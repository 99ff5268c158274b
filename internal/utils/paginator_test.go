package utils

import "testing"

func TestPaginatorNumPages(t *testing.T) {
	cases := []struct {
		count int64
		per   int
		want  int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 5, 5},
	}
	for _, c := range cases {
		if got := NewPaginator(c.count, c.per).NumPages(); got != c.want {
			t.Fatalf("NumPages(%d,%d)=%d want %d", c.count, c.per, got, c.want)
		}
	}
}

func TestPaginatorPageClamps(t *testing.T) {
	p := NewPaginator(23, 10)
	cases := map[string]int{
		"":    1,
		"abc": 1,
		"1.5": 1,
		"2":   2,
		" 3 ": 3,
		"4":   3,
		"0":   3,
		"-1":  3,
	}
	for raw, want := range cases {
		if got := p.Page(raw).Number; got != want {
			t.Fatalf("Page(%q)=%d want %d", raw, got, want)
		}
	}
	pg := p.Page("3")
	if pg.Offset != 20 || pg.Limit != 10 {
		t.Fatalf("unexpected window %+v", pg)
	}
}

func TestPaginatorGuardsPerPage(t *testing.T) {
	p := NewPaginator(3, 0)
	if p.PerPage != 1 || p.NumPages() != 3 {
		t.Fatalf("per page not clamped: %+v", p)
	}
}
