package main

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds       = errors.New("coordinate out of bounds")
	ErrRevealRegression  = errors.New("reveal state cannot move backwards")
	ErrNotRectangular    = errors.New("categories have different clue counts")
	ErrDuplicateCategory = errors.New("duplicate category")
	ErrNoBoard           = errors.New("no board dealt")
)

// RevealState tracks what a clue cell currently shows.
type RevealState int

const (
	Hidden RevealState = iota
	Question
	Answer
)

func (s RevealState) String() string {
	switch s {
	case Question:
		return "question"
	case Answer:
		return "answer"
	default:
		return "hidden"
	}
}

// Next returns the state a click moves to. Answer is terminal.
func (s RevealState) Next() RevealState {
	if s >= Answer {
		return Answer
	}
	return s + 1
}

// CategoryID is an opaque provider identifier.
type CategoryID string

// Clue is one question/answer pair on the board.
type Clue struct {
	Question string      `json:"question"`
	Answer   string      `json:"answer"`
	State    RevealState `json:"state"`
}

// Category is one board column.
type Category struct {
	ID          CategoryID `json:"id"`
	Title       string     `json:"title"`
	Clues       []Clue     `json:"clues"`
	Placeholder bool       `json:"placeholder,omitempty"` // stands in for a category that failed to load
}

// Coord addresses a body cell: Column is the category index, Row the clue
// index inside that category.
type Coord struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

// CellID is the identifier rendered on the cell and parsed back on click.
func (c Coord) CellID() string {
	return fmt.Sprintf("cell-%d-%d", c.Column, c.Row)
}

// Board is the full grid for one game.
type Board struct {
	categories []Category
	clues      int
}

// NewBoard validates that every category carries exactly cluesPerCategory
// clues and that ids are unique. Clue states are reset to Hidden.
func NewBoard(categories []Category, cluesPerCategory int) (*Board, error) {
	seen := make(map[CategoryID]bool, len(categories))
	cats := make([]Category, len(categories))
	for i, c := range categories {
		if len(c.Clues) != cluesPerCategory {
			return nil, fmt.Errorf("%w: %q has %d clues, want %d", ErrNotRectangular, c.Title, len(c.Clues), cluesPerCategory)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCategory, c.ID)
		}
		seen[c.ID] = true

		clues := make([]Clue, len(c.Clues))
		for j, cl := range c.Clues {
			cl.State = Hidden
			clues[j] = cl
		}
		c.Clues = clues
		cats[i] = c
	}
	return &Board{categories: cats, clues: cluesPerCategory}, nil
}

// Width is the number of categories (columns).
func (b *Board) Width() int { return len(b.categories) }

// Height is the number of clues per category (rows).
func (b *Board) Height() int { return b.clues }

// Coord builds a validated coordinate.
func (b *Board) Coord(column, row int) (Coord, error) {
	if column < 0 || column >= b.Width() || row < 0 || row >= b.Height() {
		return Coord{}, fmt.Errorf("%w: column %d row %d on %dx%d board", ErrOutOfBounds, column, row, b.Width(), b.Height())
	}
	return Coord{Column: column, Row: row}, nil
}

// Clue returns a copy of the clue at c.
func (b *Board) Clue(c Coord) (Clue, error) {
	if _, err := b.Coord(c.Column, c.Row); err != nil {
		return Clue{}, err
	}
	return b.categories[c.Column].Clues[c.Row], nil
}

// SetRevealState writes the state of the clue at c. Writes that would move a
// clue backwards are rejected.
func (b *Board) SetRevealState(c Coord, s RevealState) error {
	if _, err := b.Coord(c.Column, c.Row); err != nil {
		return err
	}
	clue := &b.categories[c.Column].Clues[c.Row]
	if s < clue.State {
		return fmt.Errorf("%w: %s to %s", ErrRevealRegression, clue.State, s)
	}
	clue.State = s
	return nil
}

// Categories returns a deep copy of the board's categories.
func (b *Board) Categories() []Category {
	cp := make([]Category, len(b.categories))
	for i, c := range b.categories {
		c.Clues = append([]Clue(nil), c.Clues...)
		cp[i] = c
	}
	return cp
}

// IDs returns the category ids in column order.
func (b *Board) IDs() []CategoryID {
	ids := make([]CategoryID, len(b.categories))
	for i, c := range b.categories {
		ids[i] = c.ID
	}
	return ids
}
