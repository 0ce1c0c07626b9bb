package main

import (
	"errors"
	"testing"
)

// sessionWithBoard returns a session holding a board built from cats.
func sessionWithBoard(t *testing.T, clues int, cats ...Category) *Session {
	t.Helper()
	b, err := NewBoard(cats, clues)
	if err != nil {
		t.Fatalf("new board: %v", err)
	}
	s := NewSession()
	s.mu.Lock()
	s.replaceBoard(b)
	s.mu.Unlock()
	return s
}

func TestRevealScenario(t *testing.T) {
	s := sessionWithBoard(t, 1,
		Category{ID: "1", Title: "Math", Clues: []Clue{{Question: "2+2", Answer: "4"}}},
		Category{ID: "2", Title: "Lit", Clues: []Clue{{Question: "Hamlet author", Answer: "Shakespeare"}}},
	)

	cell, changed, err := s.Reveal(0, 0)
	if err != nil {
		t.Fatalf("first click: %v", err)
	}
	if !changed || cell.Text != "2+2" || cell.State != "question" || cell.Highlighted {
		t.Fatalf("first click: unexpected cell %+v (changed=%v)", cell, changed)
	}

	cell, changed, err = s.Reveal(0, 0)
	if err != nil {
		t.Fatalf("second click: %v", err)
	}
	if !changed || cell.Text != "4" || cell.State != "answer" || !cell.Highlighted {
		t.Fatalf("second click: unexpected cell %+v (changed=%v)", cell, changed)
	}

	again, changed, err := s.Reveal(0, 0)
	if err != nil {
		t.Fatalf("third click: %v", err)
	}
	if changed || again != cell {
		t.Fatalf("third click should be a no-op, got %+v (changed=%v)", again, changed)
	}
}

func TestRevealLeavesSiblingsAlone(t *testing.T) {
	s := sessionWithBoard(t, 2,
		newTestCategory("1", "Math", 2),
		newTestCategory("2", "Lit", 2),
	)

	if _, _, err := s.Reveal(1, 1); err != nil {
		t.Fatalf("reveal: %v", err)
	}

	b := s.Board()
	for col := range b.Width() {
		for row := range b.Height() {
			clue, _ := b.Clue(Coord{Column: col, Row: row})
			want := Hidden
			if col == 1 && row == 1 {
				want = Question
			}
			if clue.State != want {
				t.Errorf("cell (%d,%d): expected %s, got %s", col, row, want, clue.State)
			}
		}
	}
}

func TestRevealErrors(t *testing.T) {
	if _, _, err := NewSession().Reveal(0, 0); !errors.Is(err, ErrNoBoard) {
		t.Fatalf("expected ErrNoBoard, got %v", err)
	}

	s := sessionWithBoard(t, 1, newTestCategory("1", "Math", 1))
	if _, _, err := s.Reveal(1, 0); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	if _, _, err := s.Reveal(0, -1); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestRevealOnlyAdvances(t *testing.T) {
	s := sessionWithBoard(t, 1, newTestCategory("1", "Math", 1))

	prev := Hidden
	for i := range 5 {
		if _, _, err := s.Reveal(0, 0); err != nil {
			t.Fatalf("click %d: %v", i+1, err)
		}
		clue, _ := s.Board().Clue(Coord{})
		if clue.State < prev {
			t.Fatalf("click %d: state went back from %s to %s", i+1, prev, clue.State)
		}
		prev = clue.State
	}
	if prev != Answer {
		t.Fatalf("expected Answer after repeated clicks, got %s", prev)
	}
}
