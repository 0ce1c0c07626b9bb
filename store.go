package main

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSuperseded is returned by Restart when a newer restart began while the
// deal was in flight. The stale board is dropped.
var ErrSuperseded = errors.New("superseded by a newer deal")

// Status is the loading state of a session's board.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Session owns one player's board. The board and its category ids are one
// unit, replaced together on every restart.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	mu         sync.Mutex
	board      *Board
	status     Status
	loadErr    error
	started    bool
	generation uint64
	lastSeen   time.Time
}

// NewSession creates a session with no board.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		status:    StatusIdle,
		lastSeen:  now,
	}
}

// Restart starts or restarts the game: the previous board is discarded, a new
// one is dealt and installed. On failure no board is installed.
func (s *Session) Restart(ctx context.Context, d *Dealer, progress func(loaded, total int)) error {
	gen := s.begin()

	board, err := d.Deal(ctx, progress)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return ErrSuperseded
	}
	if err != nil {
		s.status = StatusFailed
		s.loadErr = err
		return err
	}
	s.replaceBoard(board)
	return nil
}

func (s *Session) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.board = nil
	s.status = StatusLoading
	s.loadErr = nil
	s.started = true
	s.lastSeen = time.Now()
	return s.generation
}

// replaceBoard installs b. Caller holds s.mu.
func (s *Session) replaceBoard(b *Board) {
	s.board = b
	s.status = StatusReady
	s.loadErr = nil
}

// Status returns the loading state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Board returns a copy of the current board, or nil.
func (s *Session) Board() *Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return nil
	}
	return s.board.clone()
}

type sessionSnapshot struct {
	id      string
	status  Status
	started bool
	err     error
	board   *Board
}

func (s *Session) snapshot() sessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = time.Now()
	snap := sessionSnapshot{id: s.ID, status: s.status, started: s.started, err: s.loadErr}
	if s.board != nil {
		snap.board = s.board.clone()
	}
	return snap
}

func (s *Session) lastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (b *Board) clone() *Board {
	return &Board{categories: b.Categories(), clues: b.clues}
}

// Store holds all sessions in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// CreateSession registers a new session.
func (s *Store) CreateSession() *Session {
	sess := NewSession()

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess
}

// GetSession returns a session by ID, or nil if not found.
func (s *Store) GetSession(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// ListSessions returns all sessions, most recent first.
func (s *Store) ListSessions() []*Session {
	s.mu.RLock()
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.mu.RUnlock()

	slices.SortFunc(list, func(a, b *Session) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return list
}

// Sweep drops sessions idle for longer than ttl and returns how many went.
func (s *Store) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if sess.lastActive().Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}
