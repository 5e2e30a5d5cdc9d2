package session

import (
	"context"

	"tinytactics/internal/progress"
	"tinytactics/internal/srs"
)

// Arbiter judges moves on a board.
type Arbiter interface {
	Load(fen string) error
	Apply(notation string) (string, error)
	Undo() error
	Turn() string
	History() []string
	FEN() string
	Checkmate() bool
	UCI(san string) (string, bool)
}

// Presenter shows session updates to a player.
type Presenter interface {
	Present(s Snapshot)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(Snapshot)

func (f PresenterFunc) Present(s Snapshot) { f(s) }

// Progress persists what a player achieved on a source.
type Progress interface {
	LoadResume(ctx context.Context, source string) (progress.Resume, bool, error)
	SaveResume(ctx context.Context, source string, res progress.Resume) error
	DeleteResume(ctx context.Context, source string) error
	LoadCards(ctx context.Context, source string) (map[int]srs.Card, error)
	SaveCards(ctx context.Context, source string, cards map[int]srs.Card) error
	LoadSetStart(ctx context.Context, source string) (int, bool, error)
	SaveSetStart(ctx context.Context, source string, n int) error
	HasProgress(ctx context.Context, source string) bool
	Clear(ctx context.Context, source string) error
}
