// Package storage provides the key-value backends progress is saved to and
// the session history used for the stats page.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a key or record does not exist.
var ErrNotFound = errors.New("not found")

// KV is a flat byte store keyed by string.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Recorder keeps a row per played session.
type Recorder interface {
	CreateSession(ctx context.Context, rec SessionRecord) error
	CompleteSession(ctx context.Context, id uuid.UUID, res SessionResult) error
	FetchStats(ctx context.Context) (Stats, error)
}

// Backend is a store that handles both progress blobs and session history.
type Backend interface {
	KV
	Recorder
}

// SessionRecord is a played session.
type SessionRecord struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	SourceID      uuid.UUID  `json:"sourceId" gorm:"type:uuid;index"`
	Source        string     `json:"source"`
	Mode          string     `json:"mode" gorm:"index"`
	Active        bool       `json:"active" gorm:"index"`
	Reason        string     `json:"reason,omitempty"`
	Solved        int        `json:"solved"`
	Errors        int        `json:"errors"`
	Level         int        `json:"level"`
	ElapsedMillis int64      `json:"elapsedMillis"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// SessionResult is the outcome written when a session ends.
type SessionResult struct {
	Reason        string
	Solved        int
	Errors        int
	Level         int
	ElapsedMillis int64
	CompletedAt   time.Time
}

func (r *SessionRecord) apply(res SessionResult) {
	at := res.CompletedAt
	r.Active = false
	r.Reason = res.Reason
	r.Solved = res.Solved
	r.Errors = res.Errors
	r.Level = res.Level
	r.ElapsedMillis = res.ElapsedMillis
	r.CompletedAt = &at
	r.UpdatedAt = at
}

// Stats represents aggregate counts for sessions.
type Stats struct {
	Started   int64 `json:"started"`
	Completed int64 `json:"completed"`
	Active    int64 `json:"active"`
	Solved    int64 `json:"solved"`
}

func (s *Stats) add(r SessionRecord) {
	s.Started++
	if r.Active {
		s.Active++
	}
	if r.CompletedAt != nil {
		s.Completed++
	}
	s.Solved += int64(r.Solved)
}
