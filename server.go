package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

//go:embed frontend
var frontendFS embed.FS

const defaultDealTimeout = 30 * time.Second

// rateLimiter is a simple per-IP token bucket rate limiter.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*bucket
	rate     int           // tokens per interval
	interval time.Duration // refill interval
}

type bucket struct {
	tokens   int
	lastSeen time.Time
}

func newRateLimiter(rate int, interval time.Duration) *rateLimiter {
	return &rateLimiter{
		visitors: make(map[string]*bucket),
		rate:     rate,
		interval: interval,
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.visitors[ip]
	if !ok {
		rl.visitors[ip] = &bucket{tokens: rl.rate - 1, lastSeen: time.Now()}
		return true
	}

	// Refill tokens based on elapsed time.
	elapsed := time.Since(b.lastSeen)
	refill := int(elapsed / rl.interval)
	if refill > 0 {
		b.tokens = min(b.tokens+refill*rl.rate, rl.rate)
		b.lastSeen = time.Now()
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// forget drops buckets idle for longer than idle.
func (rl *rateLimiter) forget(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, b := range rl.visitors {
		if time.Since(b.lastSeen) > idle {
			delete(rl.visitors, ip)
		}
	}
}

// Server is the main HTTP server.
type Server struct {
	mux         *http.ServeMux
	store       *Store
	dealer      *Dealer
	sse         *Broadcaster
	pages       *template.Template
	startRL     *rateLimiter
	log         *zap.Logger
	dealTimeout time.Duration
	deals       sync.WaitGroup // background deals started from pages
}

// NewServer creates a configured HTTP server. startsPerMinute bounds game
// starts and restarts per client IP.
func NewServer(store *Store, dealer *Dealer, startsPerMinute int, log *zap.Logger) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		store:       store,
		dealer:      dealer,
		sse:         NewBroadcaster(),
		pages:       template.Must(template.ParseFS(frontendFS, "frontend/*.html")),
		startRL:     newRateLimiter(startsPerMinute, time.Minute),
		log:         log,
		dealTimeout: defaultDealTimeout,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// Game API
	s.mux.HandleFunc("POST /api/games", s.handleCreateGame)
	s.mux.HandleFunc("GET /api/games", s.handleListGames)
	s.mux.HandleFunc("GET /api/games/{id}", s.handleGetGame)
	s.mux.HandleFunc("POST /api/games/{id}/restart", s.handleRestartGame)
	s.mux.HandleFunc("POST /api/games/{id}/reveal", s.handleReveal)
	s.mux.HandleFunc("GET /api/games/{id}/events", s.handleGameEvents)

	// Pages
	staticDir, _ := fs.Sub(frontendFS, "frontend/static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticDir))))
	s.mux.HandleFunc("GET /{$}", s.handleIndexPage)
	s.mux.HandleFunc("POST /games", s.handleStartPage)
	s.mux.HandleFunc("GET /game/{id}", s.handleGamePage)
	s.mux.HandleFunc("POST /game/{id}/restart", s.handleRestartPage)
	s.mux.HandleFunc("POST /game/{id}/cells/{col}/{row}", s.handleRevealPage)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self'; script-src 'self'; connect-src 'self'")
	s.mux.ServeHTTP(w, r)
}

// Wait blocks until background deals have finished.
func (s *Server) Wait() {
	s.deals.Wait()
}

// RunSweeper drops idle sessions and rate limiter buckets on the cron
// schedule until ctx is done.
func (s *Server) RunSweeper(ctx context.Context, schedule string, ttl time.Duration) error {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(schedule, func() {
		s.startRL.forget(5 * time.Minute)
		if n := s.store.Sweep(ttl); n > 0 {
			s.log.Info("swept idle sessions", zap.Int("count", n), zap.Duration("ttl", ttl))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}

	c.Start()
	s.log.Info("session sweeper started", zap.String("schedule", schedule))

	<-ctx.Done()

	<-c.Stop().Done()
	s.log.Info("session sweeper stopped")
	return nil
}

// restart deals a new board for sess and publishes its progress.
func (s *Server) restart(ctx context.Context, sess *Session) error {
	total := s.dealer.Width()
	s.sse.Broadcast(sess.ID, Event{Type: EventLoading, Data: map[string]int{"loaded": 0, "total": total}})

	err := sess.Restart(ctx, s.dealer, func(loaded, total int) {
		s.sse.Broadcast(sess.ID, Event{Type: EventLoading, Data: map[string]int{"loaded": loaded, "total": total}})
	})
	switch {
	case errors.Is(err, ErrSuperseded):
		s.log.Info("dropped superseded deal", zap.String("game_id", sess.ID))
		return err
	case err != nil:
		s.log.Error("deal failed", zap.String("game_id", sess.ID), zap.Error(err))
		s.sse.Broadcast(sess.ID, Event{Type: EventLoadFailed, Data: map[string]string{"error": err.Error()}})
		return err
	}

	s.log.Info("board dealt", zap.String("game_id", sess.ID))
	s.sse.Broadcast(sess.ID, Event{Type: EventBoardReady, Data: NewGameView(sess)})
	return nil
}

// restartAsync deals in the background so the page can render its loading
// view right away.
func (s *Server) restartAsync(sess *Session) {
	s.deals.Add(1)
	go func() {
		defer s.deals.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.dealTimeout)
		defer cancel()
		_ = s.restart(ctx, sess)
	}()
}

// reveal applies a click and publishes the change.
func (s *Server) reveal(sess *Session, col, row int) (CellView, error) {
	cell, changed, err := sess.Reveal(col, row)
	if err != nil {
		return CellView{}, err
	}
	if changed {
		s.sse.Broadcast(sess.ID, Event{Type: EventClueRevealed, Data: cell})
	}
	return cell, nil
}

// --- Game API handlers ---

// POST /api/games — create a game and deal its board.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	if !s.startRL.allow(clientIP(r)) {
		jsonError(w, "too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	sess := s.store.CreateSession()
	if err := s.restart(r.Context(), sess); err != nil {
		dealError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(NewGameView(sess))
}

// GET /api/games — list all games.
func (s *Server) handleListGames(w http.ResponseWriter, _ *http.Request) {
	type summary struct {
		ID        string    `json:"id"`
		Status    Status    `json:"status"`
		CreatedAt time.Time `json:"created_at"`
	}
	sessions := s.store.ListSessions()
	list := make([]summary, 0, len(sessions))
	for _, sess := range sessions {
		list = append(list, summary{ID: sess.ID, Status: sess.Status(), CreatedAt: sess.CreatedAt})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// GET /api/games/{id} — current game state.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sess := s.store.GetSession(r.PathValue("id"))
	if sess == nil {
		jsonError(w, "game not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(NewGameView(sess))
}

// POST /api/games/{id}/restart — discard the board and deal a new one.
func (s *Server) handleRestartGame(w http.ResponseWriter, r *http.Request) {
	if !s.startRL.allow(clientIP(r)) {
		jsonError(w, "too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	sess := s.store.GetSession(r.PathValue("id"))
	if sess == nil {
		jsonError(w, "game not found", http.StatusNotFound)
		return
	}
	if err := s.restart(r.Context(), sess); err != nil {
		dealError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(NewGameView(sess))
}

// POST /api/games/{id}/reveal — click a cell.
func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	sess := s.store.GetSession(r.PathValue("id"))
	if sess == nil {
		jsonError(w, "game not found", http.StatusNotFound)
		return
	}

	var req Coord
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}

	cell, err := s.reveal(sess, req.Column, req.Row)
	if err != nil {
		revealError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cell)
}

// GET /api/games/{id}/events — SSE stream.
func (s *Server) handleGameEvents(w http.ResponseWriter, r *http.Request) {
	sess := s.store.GetSession(r.PathValue("id"))
	if sess == nil {
		jsonError(w, "game not found", http.StatusNotFound)
		return
	}

	s.sse.ServeSSE(w, r, sess.ID, func(c *client) {
		c.ch <- Event{Type: EventGameState, Data: NewGameView(sess)}
	})
}

// --- Page handlers ---

type pageData struct {
	Game *GameView
}

// GET / — start page.
func (s *Server) handleIndexPage(w http.ResponseWriter, _ *http.Request) {
	s.renderPage(w, http.StatusOK, pageData{})
}

// POST /games — start button.
func (s *Server) handleStartPage(w http.ResponseWriter, r *http.Request) {
	if !s.startRL.allow(clientIP(r)) {
		http.Error(w, "too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	sess := s.store.CreateSession()
	s.restartAsync(sess)
	http.Redirect(w, r, "/game/"+sess.ID, http.StatusSeeOther)
}

// GET /game/{id} — board page.
func (s *Server) handleGamePage(w http.ResponseWriter, r *http.Request) {
	sess := s.store.GetSession(r.PathValue("id"))
	if sess == nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	v := NewGameView(sess)
	s.renderPage(w, http.StatusOK, pageData{Game: &v})
}

// POST /game/{id}/restart — restart button.
func (s *Server) handleRestartPage(w http.ResponseWriter, r *http.Request) {
	if !s.startRL.allow(clientIP(r)) {
		http.Error(w, "too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	sess := s.store.GetSession(r.PathValue("id"))
	if sess == nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	s.restartAsync(sess)
	http.Redirect(w, r, "/game/"+sess.ID, http.StatusSeeOther)
}

// POST /game/{id}/cells/{col}/{row} — cell click without script.
func (s *Server) handleRevealPage(w http.ResponseWriter, r *http.Request) {
	sess := s.store.GetSession(r.PathValue("id"))
	if sess == nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	col, errCol := strconv.Atoi(r.PathValue("col"))
	row, errRow := strconv.Atoi(r.PathValue("row"))
	if errCol != nil || errRow != nil {
		http.Error(w, "invalid cell", http.StatusBadRequest)
		return
	}

	cell, err := s.reveal(sess, col, row)
	switch {
	case errors.Is(err, ErrOutOfBounds):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, ErrNoBoard):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+sess.ID+"#"+cell.ID, http.StatusSeeOther)
}

func (s *Server) renderPage(w http.ResponseWriter, code int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := s.pages.ExecuteTemplate(w, "index.html", data); err != nil {
		s.log.Error("render page", zap.Error(err))
	}
}

// --- Helpers ---

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func dealError(w http.ResponseWriter, err error) {
	var netErr *NetworkError
	switch {
	case errors.Is(err, ErrSuperseded):
		jsonError(w, "a newer deal replaced this one", http.StatusConflict)
	case errors.As(err, &netErr), errors.Is(err, ErrPoolTooSmall), errors.Is(err, ErrTooFewClues):
		jsonError(w, "failed to load board: "+err.Error(), http.StatusBadGateway)
	case errors.Is(err, context.DeadlineExceeded):
		jsonError(w, "failed to load board: timed out", http.StatusGatewayTimeout)
	default:
		jsonError(w, "failed to load board: "+err.Error(), http.StatusInternalServerError)
	}
}

func revealError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOutOfBounds):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNoBoard):
		jsonError(w, err.Error(), http.StatusConflict)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
