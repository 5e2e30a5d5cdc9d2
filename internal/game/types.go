package game

import (
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"tinytactics/internal/session"
)

// Hub holds the live training sessions keyed by id.
type Hub struct {
	Mu    sync.Mutex
	Games map[string]*Game

	ttl   time.Duration
	now   func() time.Time
	log   *slog.Logger
	sched *gocron.Scheduler
}

// Game is one live session and the streams watching it.
type Game struct {
	Mu       sync.Mutex
	s        *session.Session
	Watchers map[chan []byte]struct{}
	LastSeen time.Time

	now  func() time.Time
	done chan struct{}
}

// NewRequest starts a session on a puzzle file.
type NewRequest struct {
	File   string `json:"file"`
	Mode   string `json:"mode"`
	Resume bool   `json:"resume"`
}

// MoveRequest carries a move in SAN or UCI.
type MoveRequest struct {
	Move string `json:"move"`
}

// ModeRequest switches the mode of a running session.
type ModeRequest struct {
	Mode    string `json:"mode"`
	Confirm bool   `json:"confirm"`
}

// HintPayload is the response to a hint request.
type HintPayload struct {
	UCI   string           `json:"uci"`
	State session.Snapshot `json:"state"`
}
