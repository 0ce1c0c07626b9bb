package main

import "time"

// Reveal handles a click on the cell at (column, row): Hidden shows the
// question, Question shows the answer, Answer ignores the click. changed
// reports whether the clue moved to a new state.
func (s *Session) Reveal(column, row int) (cell CellView, changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.board == nil {
		return CellView{}, false, ErrNoBoard
	}
	s.lastSeen = time.Now()

	c, err := s.board.Coord(column, row)
	if err != nil {
		return CellView{}, false, err
	}
	clue, err := s.board.Clue(c)
	if err != nil {
		return CellView{}, false, err
	}

	next := clue.State.Next()
	if next != clue.State {
		if err := s.board.SetRevealState(c, next); err != nil {
			return CellView{}, false, err
		}
		clue.State = next
		changed = true
	}
	return newCellView(c, clue), changed, nil
}
