package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"tinytactics/internal/metrics"
	"tinytactics/internal/session"
)

// Options configures a Hub.
type Options struct {
	// IdleTTL is how long an unwatched game lives without requests.
	IdleTTL time.Duration
	// SweepInterval is how often idle games are collected. Zero disables
	// the background sweep.
	SweepInterval time.Duration
	Now           func() time.Time
	Logger        *slog.Logger
}

// NewHub returns an empty hub. Call Start to run its background jobs.
func NewHub(opts Options) (*Hub, error) {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	h := &Hub{
		Games: make(map[string]*Game),
		ttl:   opts.IdleTTL,
		now:   opts.Now,
		log:   opts.Logger.With("component", "hub"),
		sched: gocron.NewScheduler(time.UTC),
	}
	h.sched.SingletonModeAll()
	if opts.SweepInterval > 0 {
		if err := h.Schedule(opts.SweepInterval, func() { h.Sweep() }); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Schedule runs fn every interval once the hub is started.
func (h *Hub) Schedule(every time.Duration, fn func()) error {
	if _, err := h.sched.Every(every).Do(fn); err != nil {
		return fmt.Errorf("schedule job: %w", err)
	}
	return nil
}

// Start runs the scheduled jobs in the background.
func (h *Hub) Start() { h.sched.StartAsync() }

// Stop halts the jobs and stops every live session so resumable progress
// is saved.
func (h *Hub) Stop(ctx context.Context) {
	h.sched.Stop()
	h.Mu.Lock()
	games := h.Games
	h.Games = make(map[string]*Game)
	h.Mu.Unlock()
	for _, g := range games {
		h.drop(ctx, g)
	}
	metrics.ActiveSessions.Set(0)
}

// Create starts a session described by opts and registers it. The game
// becomes the session's presenter.
func (h *Hub) Create(ctx context.Context, opts session.Options) (*Game, error) {
	g := &Game{
		Watchers: make(map[chan []byte]struct{}),
		LastSeen: h.now(),
		now:      h.now,
		done:     make(chan struct{}),
	}
	opts.Presenter = g
	s, err := session.New(opts)
	if err != nil {
		return nil, err
	}
	g.s = s
	if err := s.Start(ctx); err != nil {
		s.Close()
		return nil, err
	}

	h.Mu.Lock()
	h.Games[s.ID().String()] = g
	n := len(h.Games)
	h.Mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	h.log.Info("session created", "session", s.ID().String(), "source", s.Source().Name)
	return g, nil
}

// Get returns the live game with id.
func (h *Hub) Get(id string) (*Game, bool) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	g, ok := h.Games[id]
	return g, ok
}

// Len returns the number of live games.
func (h *Hub) Len() int {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return len(h.Games)
}

// Remove stops and drops the game with id.
func (h *Hub) Remove(ctx context.Context, id string) bool {
	h.Mu.Lock()
	g, ok := h.Games[id]
	delete(h.Games, id)
	n := len(h.Games)
	h.Mu.Unlock()
	if !ok {
		return false
	}
	metrics.ActiveSessions.Set(float64(n))
	h.drop(ctx, g)
	return true
}

// Sweep drops games nobody used for the idle TTL and returns how many.
func (h *Hub) Sweep() int {
	var stale []*Game
	h.Mu.Lock()
	for id, g := range h.Games {
		if g.idle(h.ttl) {
			stale = append(stale, g)
			delete(h.Games, id)
		}
	}
	n := len(h.Games)
	h.Mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	for _, g := range stale {
		h.drop(context.Background(), g)
	}
	if len(stale) > 0 {
		h.log.Info("idle sessions swept", "count", len(stale), "live", n)
	}
	return len(stale)
}

func (h *Hub) drop(ctx context.Context, g *Game) {
	if err := g.s.Stop(ctx); err != nil && !errors.Is(err, session.ErrSessionEnded) {
		h.log.Warn("stop session", "session", g.s.ID().String(), "error", err)
	}
	g.s.Close()
	close(g.done)
}
