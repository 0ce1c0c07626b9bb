package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestCreateAndGetSession(t *testing.T) {
	s := NewStore()
	sess := s.CreateSession()

	if sess.ID == "" {
		t.Fatal("expected session to have an ID")
	}
	if got := s.GetSession(sess.ID); got != sess {
		t.Fatal("expected to find created session")
	}
	if got := s.GetSession("nonexistent"); got != nil {
		t.Fatal("expected nil for unknown ID")
	}
	if sess.Status() != StatusIdle || sess.Board() != nil {
		t.Fatal("new session should be idle without a board")
	}
}

func TestListSessions(t *testing.T) {
	s := NewStore()
	s.CreateSession()
	time.Sleep(time.Millisecond)
	s.CreateSession()

	list := s.ListSessions()
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
	// Most recent first.
	if list[0].CreatedAt.Before(list[1].CreatedAt) {
		t.Fatal("expected sessions sorted by descending creation time")
	}
}

func TestSweep(t *testing.T) {
	s := NewStore()
	old := s.CreateSession()
	fresh := s.CreateSession()

	old.mu.Lock()
	old.lastSeen = time.Now().Add(-3 * time.Hour)
	old.mu.Unlock()

	if n := s.Sweep(time.Hour); n != 1 {
		t.Fatalf("expected 1 swept session, got %d", n)
	}
	if s.GetSession(old.ID) != nil {
		t.Fatal("idle session should be gone")
	}
	if s.GetSession(fresh.ID) == nil {
		t.Fatal("active session should survive")
	}
}

func TestRestartInstallsBoard(t *testing.T) {
	d := NewDealer(newFakeSourceN(6, 5), testBoardConfig(6, 5), zaptest.NewLogger(t))
	sess := NewSession()

	if err := sess.Restart(context.Background(), d, nil); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if sess.Status() != StatusReady {
		t.Fatalf("expected ready, got %s", sess.Status())
	}
	b := sess.Board()
	if b == nil || b.Width() != 6 || b.Height() != 5 {
		t.Fatal("expected a 6x5 board")
	}
	if v := NewGameView(sess); !v.Started {
		t.Fatal("session should be marked started after the first deal")
	}
}

func TestRestartDiscardsRevealStates(t *testing.T) {
	d := NewDealer(newFakeSourceN(2, 2), testBoardConfig(2, 2), zaptest.NewLogger(t))
	sess := NewSession()
	if err := sess.Restart(context.Background(), d, nil); err != nil {
		t.Fatalf("restart: %v", err)
	}

	for col := range 2 {
		for row := range 2 {
			sess.Reveal(col, row)
			sess.Reveal(col, row)
		}
	}

	if err := sess.Restart(context.Background(), d, nil); err != nil {
		t.Fatalf("second restart: %v", err)
	}
	for _, c := range sess.Board().Categories() {
		for _, cl := range c.Clues {
			if cl.State != Hidden {
				t.Fatalf("category %s: expected Hidden after restart, got %s", c.ID, cl.State)
			}
		}
	}
}

func TestRestartFailureLeavesNoBoard(t *testing.T) {
	good := NewDealer(newFakeSourceN(2, 1), testBoardConfig(2, 1), zaptest.NewLogger(t))
	src := newFakeSourceN(2, 1)
	src.idsErr = &NetworkError{Op: "fetch categories", Err: errors.New("down")}
	bad := NewDealer(src, testBoardConfig(2, 1), zaptest.NewLogger(t))

	sess := NewSession()
	if err := sess.Restart(context.Background(), good, nil); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := sess.Restart(context.Background(), bad, nil); err == nil {
		t.Fatal("expected restart to fail")
	}
	if sess.Status() != StatusFailed {
		t.Fatalf("expected failed, got %s", sess.Status())
	}
	if sess.Board() != nil {
		t.Fatal("a failed restart must not leave the previous board installed")
	}
	if v := NewGameView(sess); v.Error == "" {
		t.Fatal("failed view should carry the error")
	}
}

func TestRestartSupersededDealIsDropped(t *testing.T) {
	slowSrc := newFakeSourceN(1, 1)
	slowSrc.entered = make(chan struct{}, 1)
	slowSrc.release = make(chan struct{})
	slow := NewDealer(slowSrc, testBoardConfig(1, 1), zaptest.NewLogger(t))

	fastSrc := newFakeSource(newTestCategory("fast", "Fast", 1))
	fast := NewDealer(fastSrc, testBoardConfig(1, 1), zaptest.NewLogger(t))

	sess := NewSession()
	errCh := make(chan error, 1)
	go func() { errCh <- sess.Restart(context.Background(), slow, nil) }()
	<-slowSrc.entered

	if err := sess.Restart(context.Background(), fast, nil); err != nil {
		t.Fatalf("fast restart: %v", err)
	}
	close(slowSrc.release)

	if err := <-errCh; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	ids := sess.Board().IDs()
	if len(ids) != 1 || ids[0] != "fast" {
		t.Fatalf("expected the newer board to stay installed, got %v", ids)
	}
}

func TestConcurrentReveals(t *testing.T) {
	d := NewDealer(newFakeSourceN(6, 5), testBoardConfig(6, 5), zaptest.NewLogger(t))
	sess := NewSession()
	if err := sess.Restart(context.Background(), d, nil); err != nil {
		t.Fatalf("restart: %v", err)
	}

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess.Reveal(i%6, i%5)
			NewGameView(sess)
		}(i)
	}
	wg.Wait()
}
