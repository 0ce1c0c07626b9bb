package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// hiddenGlyph is shown on cells whose clue has not been revealed.
const hiddenGlyph = "?"

// HeaderView is one category title cell.
type HeaderView struct {
	Title       string `json:"title"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// CellView is what a body cell displays.
type CellView struct {
	ID          string `json:"id"`
	Column      int    `json:"column"`
	Row         int    `json:"row"`
	Text        string `json:"text"`
	State       string `json:"state"`
	Highlighted bool   `json:"highlighted"`
}

// BoardView is the rendered grid: Rows[row][column].
type BoardView struct {
	Headers []HeaderView `json:"headers"`
	Rows    [][]CellView `json:"rows"`
}

// GameView is a session as shown to the player.
type GameView struct {
	ID      string     `json:"id"`
	Status  Status     `json:"status"`
	Started bool       `json:"started"`
	Error   string     `json:"error,omitempty"`
	Board   *BoardView `json:"board,omitempty"`
}

// NewBoardView renders b. Cell (column, row) shows
// categories[column].clues[row].
func NewBoardView(b *Board) BoardView {
	upper := cases.Upper(language.English)

	v := BoardView{
		Headers: make([]HeaderView, b.Width()),
		Rows:    make([][]CellView, b.Height()),
	}
	for col, c := range b.categories {
		v.Headers[col] = HeaderView{Title: upper.String(c.Title), Placeholder: c.Placeholder}
	}
	for row := range v.Rows {
		v.Rows[row] = make([]CellView, b.Width())
		for col := range b.categories {
			c := Coord{Column: col, Row: row}
			v.Rows[row][col] = newCellView(c, b.categories[col].Clues[row])
		}
	}
	return v
}

func newCellView(c Coord, clue Clue) CellView {
	v := CellView{ID: c.CellID(), Column: c.Column, Row: c.Row, State: clue.State.String()}
	switch clue.State {
	case Question:
		v.Text = clue.Question
	case Answer:
		v.Text = clue.Answer
		v.Highlighted = true
	default:
		v.Text = hiddenGlyph
	}
	return v
}

// NewGameView renders the current state of s.
func NewGameView(s *Session) GameView {
	snap := s.snapshot()
	v := GameView{ID: snap.id, Status: snap.status, Started: snap.started}
	if snap.err != nil {
		v.Error = snap.err.Error()
	}
	if snap.board != nil {
		bv := NewBoardView(snap.board)
		v.Board = &bv
	}
	return v
}

// WriteBoardText writes v as an aligned plain-text table.
func WriteBoardText(w io.Writer, v BoardView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	titles := make([]string, len(v.Headers))
	for i, h := range v.Headers {
		titles[i] = h.Title
	}
	fmt.Fprintln(tw, strings.Join(titles, "\t"))

	for _, row := range v.Rows {
		texts := make([]string, len(row))
		for i, c := range row {
			texts[i] = c.Text
		}
		fmt.Fprintln(tw, strings.Join(texts, "\t"))
	}
	return tw.Flush()
}

// Loading reports whether a deal is in flight.
func (v GameView) Loading() bool { return v.Status == StatusLoading }

// Failed reports whether the last deal failed.
func (v GameView) Failed() bool { return v.Status == StatusFailed }
