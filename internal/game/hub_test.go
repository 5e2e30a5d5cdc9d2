package game

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinytactics/internal/mode"
	"tinytactics/internal/progress"
	"tinytactics/internal/puzzle"
	"tinytactics/internal/session"
	"tinytactics/internal/storage"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testSource() *puzzle.Source {
	return &puzzle.Source{
		ID:   puzzle.SourceID("hub.pgn"),
		Name: "hub.pgn",
		Puzzles: []puzzle.Puzzle{
			{Name: "one", FEN: "6k1/5ppp/8/8/8/8/5PPP/3R2K1 w - - 0 1", Moves: []string{"Rd8#"}},
			{Name: "two", FEN: "6k1/5ppp/8/8/8/8/5PPP/3R2K1 w - - 0 1", Moves: []string{"Rd8#"}},
		},
	}
}

func newTestHub(t *testing.T, clock *fakeClock) *Hub {
	t.Helper()
	h, err := NewHub(Options{IdleTTL: time.Hour, Now: clock.Now})
	require.NoError(t, err)
	t.Cleanup(func() { h.Stop(context.Background()) })
	return h
}

func TestCreateAndGet(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	h := newTestHub(t, clock)

	g, err := h.Create(context.Background(), session.Options{Source: testSource(), Mode: mode.Standard})
	require.NoError(t, err)

	got, ok := h.Get(g.Session().ID().String())
	require.True(t, ok)
	assert.Same(t, g, got)
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, "one", g.Session().State().PuzzleName)
}

func TestCreateRejectsEmptySource(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	h := newTestHub(t, clock)

	_, err := h.Create(context.Background(), session.Options{Source: &puzzle.Source{Name: "empty.pgn"}})
	require.ErrorIs(t, err, session.ErrNoPuzzles)
	assert.Zero(t, h.Len())
}

func TestSweepDropsIdleGames(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	h := newTestHub(t, clock)
	ctx := context.Background()

	idle, err := h.Create(ctx, session.Options{Source: testSource()})
	require.NoError(t, err)
	watched, err := h.Create(ctx, session.Options{Source: testSource()})
	require.NoError(t, err)
	watched.AddWatcher(make(chan []byte, 1))

	clock.Add(59 * time.Minute)
	assert.Zero(t, h.Sweep())

	clock.Add(2 * time.Minute)
	assert.Equal(t, 1, h.Sweep())

	_, ok := h.Get(idle.Session().ID().String())
	assert.False(t, ok)
	_, ok = h.Get(watched.Session().ID().String())
	assert.True(t, ok)

	select {
	case <-idle.Done():
	default:
		t.Fatal("swept game should be done")
	}
}

func TestTouchKeepsGameAlive(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	h := newTestHub(t, clock)

	g, err := h.Create(context.Background(), session.Options{Source: testSource()})
	require.NoError(t, err)

	clock.Add(50 * time.Minute)
	g.Touch()
	clock.Add(50 * time.Minute)
	assert.Zero(t, h.Sweep())
}

func TestRemoveSavesResume(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	h := newTestHub(t, clock)
	ctx := context.Background()
	repo := progress.New(storage.NewMemory(), nil)
	src := testSource()

	g, err := h.Create(ctx, session.Options{Source: src, Progress: repo})
	require.NoError(t, err)
	_, err = g.Session().Move(ctx, "Rd8#")
	require.NoError(t, err)

	require.True(t, h.Remove(ctx, g.Session().ID().String()))
	assert.False(t, h.Remove(ctx, g.Session().ID().String()))

	res, ok, err := repo.LoadResume(ctx, src.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, res.Solved)
	assert.Equal(t, 1, res.Cursor)
}

func TestWatchersReceiveSnapshots(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	h := newTestHub(t, clock)
	ctx := context.Background()

	g, err := h.Create(ctx, session.Options{Source: testSource()})
	require.NoError(t, err)
	ch := make(chan []byte, 8)
	g.AddWatcher(ch)

	_, err = g.Session().Move(ctx, "Rd8#")
	require.NoError(t, err)

	var snap session.Snapshot
	select {
	case msg := <-ch:
		require.NoError(t, json.Unmarshal(msg, &snap))
	case <-time.After(time.Second):
		t.Fatal("no snapshot broadcast")
	}
	assert.Equal(t, g.Session().ID().String(), snap.ID)
	assert.Equal(t, 1, snap.State.TotalSolved)
}

func TestBroadcastSkipsFullWatchers(t *testing.T) {
	g := &Game{Watchers: make(map[chan []byte]struct{}), now: time.Now, done: make(chan struct{})}
	full := make(chan []byte)
	ready := make(chan []byte, 1)
	g.AddWatcher(full)
	g.AddWatcher(ready)

	g.Broadcast([]byte("x"))
	assert.Equal(t, []byte("x"), <-ready)

	g.RemoveWatcher(full)
	assert.Equal(t, 1, g.WatcherCount())
}

func TestScheduledSweep(t *testing.T) {
	h, err := NewHub(Options{IdleTTL: time.Millisecond, SweepInterval: 50 * time.Millisecond})
	require.NoError(t, err)
	defer h.Stop(context.Background())

	_, err = h.Create(context.Background(), session.Options{Source: testSource()})
	require.NoError(t, err)
	h.Start()

	assert.Eventually(t, func() bool { return h.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
