package main

import (
	"strings"
	"testing"
)

func TestNewBoardView(t *testing.T) {
	b, _ := NewBoard([]Category{
		{ID: "1", Title: "Math", Clues: []Clue{{Question: "2+2", Answer: "4"}, {Question: "3+3", Answer: "6"}}},
		{ID: "2", Title: "straße", Clues: []Clue{{Question: "Q", Answer: "A"}, {Question: "Q2", Answer: "A2"}}},
	}, 2)
	b.SetRevealState(Coord{Column: 0, Row: 1}, Question)
	b.SetRevealState(Coord{Column: 1, Row: 0}, Answer)

	v := NewBoardView(b)

	if len(v.Headers) != 2 || v.Headers[0].Title != "MATH" || v.Headers[1].Title != "STRASSE" {
		t.Fatalf("unexpected headers %+v", v.Headers)
	}
	if len(v.Rows) != 2 || len(v.Rows[0]) != 2 {
		t.Fatalf("expected 2 rows of 2 cells, got %d rows", len(v.Rows))
	}

	hidden := v.Rows[0][0]
	if hidden.Text != hiddenGlyph || hidden.ID != "cell-0-0" || hidden.Highlighted {
		t.Fatalf("unexpected hidden cell %+v", hidden)
	}
	if q := v.Rows[1][0]; q.Text != "3+3" || q.State != "question" || q.Column != 0 || q.Row != 1 {
		t.Fatalf("unexpected question cell %+v", q)
	}
	if a := v.Rows[0][1]; a.Text != "A" || !a.Highlighted || a.ID != "cell-1-0" {
		t.Fatalf("unexpected answer cell %+v", a)
	}
}

func TestPlaceholderHeader(t *testing.T) {
	b, _ := NewBoard([]Category{placeholderCategory("9", 1)}, 1)
	v := NewBoardView(b)
	if !v.Headers[0].Placeholder || v.Headers[0].Title != "FAILED TO LOAD" {
		t.Fatalf("unexpected placeholder header %+v", v.Headers[0])
	}
}

func TestWriteBoardText(t *testing.T) {
	b, _ := NewBoard([]Category{
		newTestCategory("1", "Math", 1),
		newTestCategory("2", "Lit", 1),
	}, 1)

	var sb strings.Builder
	if err := WriteBoardText(&sb, NewBoardView(b)); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", sb.String())
	}
	if strings.Join(strings.Fields(lines[0]), " ") != "MATH LIT" {
		t.Fatalf("unexpected header line %q", lines[0])
	}
	if strings.Join(strings.Fields(lines[1]), " ") != "? ?" {
		t.Fatalf("unexpected row line %q", lines[1])
	}
}
