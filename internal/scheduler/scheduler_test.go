package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinytactics/internal/mode"
	"tinytactics/internal/srs"
)

var clock = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func fixed() time.Time { return clock }

func next() mode.Verdict { return mode.Verdict{Action: mode.ActionNext} }

func TestBuildIdentity(t *testing.T) {
	s := New(Options{})
	require.NoError(t, s.Build(4))
	assert.Equal(t, []int{0, 1, 2, 3}, s.Order())

	p, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, 0, p)
}

func TestBuildEmpty(t *testing.T) {
	s := New(Options{})
	assert.ErrorIs(t, s.Build(0), ErrEmpty)
	assert.ErrorIs(t, s.BuildAdaptive(0, nil), ErrEmpty)
	_, err := s.Advance(next())
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestShuffleIsPermutation(t *testing.T) {
	s := New(Options{Shuffle: true, Seed: 42})
	require.NoError(t, s.Build(20))
	assert.ElementsMatch(t, identity(20), s.Order())

	again := New(Options{Shuffle: true, Seed: 42})
	require.NoError(t, again.Build(20))
	assert.Equal(t, s.Order(), again.Order())
}

func TestAdvanceToEnd(t *testing.T) {
	s := New(Options{})
	require.NoError(t, s.Build(2))

	p, err := s.Advance(next())
	require.NoError(t, err)
	assert.Equal(t, 1, p)

	_, err = s.Advance(next())
	assert.ErrorIs(t, err, ErrDone)
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestLoopReshufflesWithoutRepeat(t *testing.T) {
	s := New(Options{Loop: true, Shuffle: true, Seed: 7})
	require.NoError(t, s.Build(3))

	prev, _ := s.Current()
	for i := 0; i < 50; i++ {
		p, err := s.Advance(next())
		require.NoError(t, err)
		require.NotEqual(t, prev, p, "step %d", i)
		prev = p
	}
}

func TestLoopSinglePuzzle(t *testing.T) {
	s := New(Options{Loop: true})
	require.NoError(t, s.Build(1))
	p, err := s.Advance(next())
	require.NoError(t, err)
	assert.Equal(t, 0, p)
}

func TestRewind(t *testing.T) {
	s := New(Options{})
	require.NoError(t, s.Build(5))
	_, _ = s.Advance(next())
	_, _ = s.Advance(next())

	p, err := s.Advance(mode.Verdict{Action: mode.ActionRewind, To: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, p)
	assert.Equal(t, 0, s.Position())

	_, err = s.Advance(mode.Verdict{Action: mode.ActionRewind, To: 9})
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, 0, s.Position())
}

func TestStop(t *testing.T) {
	s := New(Options{})
	require.NoError(t, s.Build(3))
	_, err := s.Advance(mode.Verdict{Action: mode.ActionStop})
	assert.ErrorIs(t, err, ErrDone)
}

func TestAdaptiveOrderFreshIsFileOrder(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, AdaptiveOrder(3, nil, clock))
}

func TestAdaptiveOrderBuckets(t *testing.T) {
	day := 24 * time.Hour
	cards := map[int]srs.Card{
		0: {DueAt: clock.Add(3 * day).UnixMilli()},
		1: {DueAt: clock.Add(-2 * day).UnixMilli()},
		3: {DueAt: clock.Add(-5 * day).UnixMilli()},
		4: {DueAt: clock.Add(1 * day).UnixMilli()},
		5: {DueAt: clock.Add(-2 * day).UnixMilli()},
	}
	got := AdaptiveOrder(7, cards, clock)
	assert.Equal(t, []int{3, 1, 5, 2, 6, 4, 0}, got)
}

func TestAdaptiveOrderIdempotent(t *testing.T) {
	cards := map[int]srs.Card{2: {DueAt: 0}, 0: {DueAt: clock.Add(time.Hour).UnixMilli()}}
	a := AdaptiveOrder(4, cards, clock)
	b := AdaptiveOrder(4, cards, clock)
	assert.Equal(t, a, b)
}

func TestFailedPuzzleLeadsNextRebuild(t *testing.T) {
	deck := srs.NewDeck(srs.DefaultConfig(), nil)
	s := New(Options{Now: fixed})
	require.NoError(t, s.BuildAdaptive(3, deck))
	assert.Equal(t, []int{0, 1, 2}, s.Order())

	deck.Review(1, srs.QualityFor(1, 0), clock)
	_, err := s.Advance(mode.Verdict{Action: mode.ActionRebuild, Last: 1})
	require.NoError(t, err)

	order := s.Order()
	assert.Equal(t, 1, order[0])
	// the failed puzzle is not served twice in a row
	p, ok := s.Current()
	require.True(t, ok)
	assert.NotEqual(t, 1, p)

	// after another puzzle it comes straight back
	deck.Review(p, srs.QualityPerfect, clock)
	back, err := s.Advance(mode.Verdict{Action: mode.ActionRebuild, Last: p})
	require.NoError(t, err)
	assert.Equal(t, 1, back)
}

func TestRebuildSinglePuzzle(t *testing.T) {
	deck := srs.NewDeck(srs.DefaultConfig(), nil)
	s := New(Options{Now: fixed})
	require.NoError(t, s.BuildAdaptive(1, deck))
	deck.Review(0, srs.QualityPerfect, clock)
	p, err := s.Advance(mode.Verdict{Action: mode.ActionRebuild, Last: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, p)
}

func TestRestore(t *testing.T) {
	s := New(Options{})
	require.NoError(t, s.Restore(3, []int{2, 0, 1}, 1))
	p, _ := s.Current()
	assert.Equal(t, 0, p)

	assert.ErrorIs(t, s.Restore(3, []int{2, 0}, 0), ErrOutOfRange)
	assert.ErrorIs(t, s.Restore(3, []int{2, 2, 1}, 0), ErrOutOfRange)
	assert.ErrorIs(t, s.Restore(3, []int{2, 0, 1}, 3), ErrOutOfRange)
	// a rejected restore leaves the previous order in place
	assert.Equal(t, []int{2, 0, 1}, s.Order())
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
