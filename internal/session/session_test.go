package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinytactics/internal/arbiter"
	"tinytactics/internal/mode"
	"tinytactics/internal/progress"
	"tinytactics/internal/puzzle"
	"tinytactics/internal/storage"
)

const (
	backRankFEN = "2r4k/6pp/8/8/8/8/4R1PP/4R1K1 w - - 0 1"
	mateInOne   = "6k1/5ppp/8/8/8/8/5PPP/3R2K1 w - - 0 1"
	twoMates    = "7k/6pp/8/8/8/8/6PP/RR4K1 w - - 0 1"
)

var clock = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func backRank(name string) puzzle.Puzzle {
	return puzzle.Puzzle{Name: name, FEN: backRankFEN, Moves: []string{"Re8+", "Rxe8", "Rxe8#"}}
}

func oneMover(name string) puzzle.Puzzle {
	return puzzle.Puzzle{Name: name, FEN: mateInOne, Moves: []string{"Rd8#"}}
}

func source(ps ...puzzle.Puzzle) *puzzle.Source {
	return &puzzle.Source{ID: puzzle.SourceID("test.pgn"), Name: "test.pgn", Puzzles: ps}
}

type recorder struct {
	mu    sync.Mutex
	kinds []string
}

func (r *recorder) Present(s Snapshot) {
	r.mu.Lock()
	r.kinds = append(r.kinds, s.Kind)
	r.mu.Unlock()
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.kinds) == 0 {
		return ""
	}
	return r.kinds[len(r.kinds)-1]
}

type fixture struct {
	s     *Session
	store *storage.Memory
	repo  *progress.Repository
	view  *recorder
}

func start(t *testing.T, id mode.ID, src *puzzle.Source, tweak ...func(*Options)) fixture {
	t.Helper()
	store := storage.NewMemory()
	f := fixture{store: store, repo: progress.New(store, nil), view: &recorder{}}
	opts := Options{
		Source:    src,
		Mode:      id,
		Presenter: f.view,
		Progress:  f.repo,
		Recorder:  store,
		Seed:      1,
		Now:       func() time.Time { return clock },
	}
	for _, fn := range tweak {
		fn(&opts)
	}
	s, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Close)
	f.s = s
	return f
}

func move(t *testing.T, s *Session, notation string) MoveResult {
	t.Helper()
	res, err := s.Move(context.Background(), notation)
	require.NoError(t, err, notation)
	return res
}

func TestNewRejectsEmptySource(t *testing.T) {
	_, err := New(Options{Source: source()})
	assert.ErrorIs(t, err, ErrNoPuzzles)

	_, err = New(Options{Source: source(oneMover("a")), Mode: "nope"})
	assert.ErrorIs(t, err, mode.ErrUnknownMode)
}

func TestSolveLineWithAutoReply(t *testing.T) {
	f := start(t, mode.Standard, source(backRank("first"), oneMover("second")))
	s := f.s
	assert.Equal(t, KindPuzzle, f.view.last())
	assert.Equal(t, "white", s.State().Turn)
	assert.Equal(t, 2, s.State().Remaining)

	res := move(t, s, "Re8+")
	assert.Equal(t, OutcomeCorrect, res.Outcome)
	assert.Equal(t, "Rxe8", res.Reply)
	assert.False(t, res.PuzzleComplete)
	assert.Equal(t, 1, res.State.Remaining)

	res = move(t, s, "e1e8")
	assert.True(t, res.PuzzleComplete)
	assert.Equal(t, 1, res.State.Puzzle)
	assert.Equal(t, mateInOne, res.State.FEN)
	assert.Equal(t, 1, res.State.State.TotalSolved)
	assert.Equal(t, 2, res.State.State.CorrectMoves)

	res = move(t, s, "Rd8")
	assert.True(t, res.Ended)
	assert.Equal(t, mode.ReasonExhausted, res.State.EndReason)
	assert.Equal(t, KindEnded, f.view.last())

	_, err := s.Move(context.Background(), "Rd8")
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestWrongMoveSnapsBack(t *testing.T) {
	f := start(t, mode.Standard, source(backRank("p")))
	before := f.s.State().FEN

	res := move(t, f.s, "h3")
	assert.Equal(t, OutcomeWrong, res.Outcome)
	assert.Equal(t, before, res.State.FEN)
	assert.Equal(t, 1, res.State.Errors)
	assert.Equal(t, 1, res.State.State.TotalErrors)
	assert.Empty(t, res.State.Played)
	assert.Equal(t, KindWrong, f.view.last())
}

func TestIllegalMoveIsNotScored(t *testing.T) {
	f := start(t, mode.Three, source(backRank("p")))
	res, err := f.s.Move(context.Background(), "Ke3")
	assert.ErrorIs(t, err, arbiter.ErrIllegalMove)
	assert.Equal(t, OutcomeIllegal, res.Outcome)
	assert.Equal(t, 0, res.State.State.TotalErrors)
	assert.Equal(t, 3, res.State.State.Lives)
	assert.Equal(t, backRankFEN, res.State.FEN)
}

func TestAlternativeMateIsAccepted(t *testing.T) {
	p := puzzle.Puzzle{Name: "either rook", FEN: twoMates, Moves: []string{"Ra8#"}}
	f := start(t, mode.Standard, source(p, oneMover("next")))
	res := move(t, f.s, "Rb8")
	assert.Equal(t, OutcomeCorrect, res.Outcome)
	assert.True(t, res.PuzzleComplete)
}

func TestLivesEndTheRun(t *testing.T) {
	f := start(t, mode.Three, source(oneMover("a"), oneMover("b")))
	for i := 0; i < 2; i++ {
		res := move(t, f.s, "h3")
		assert.False(t, res.Ended)
	}
	res := move(t, f.s, "h3")
	assert.True(t, res.Ended)
	assert.Equal(t, mode.ReasonNoLives, res.State.EndReason)
	assert.Equal(t, mode.StatusEnded, res.State.State.Status)
	assert.Equal(t, KindEnded, f.view.last())

	st, err := f.store.FetchStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Completed)
	assert.Equal(t, int64(0), st.Active)
}

func TestStaleTicksAreIgnored(t *testing.T) {
	f := start(t, mode.Haste, source(oneMover("a"), oneMover("b"), oneMover("c")))
	s := f.s
	gen := s.TimerGeneration()

	s.Tick(gen, 10*time.Second)
	assert.Equal(t, 50*time.Second, s.State().State.TimeRemaining)

	// solving loads the next puzzle and restarts the timer
	move(t, s, "Rd8")
	assert.Equal(t, 55*time.Second, s.State().State.TimeRemaining)
	require.NotEqual(t, gen, s.TimerGeneration())

	s.Tick(gen, 10*time.Second)
	assert.Equal(t, 55*time.Second, s.State().State.TimeRemaining)

	s.Tick(s.TimerGeneration(), 5*time.Second)
	assert.Equal(t, 50*time.Second, s.State().State.TimeRemaining)
}

func TestClockRunsOut(t *testing.T) {
	f := start(t, mode.Haste, source(oneMover("a"), oneMover("b")))
	f.s.Tick(f.s.TimerGeneration(), 2*time.Minute)
	st := f.s.State()
	assert.True(t, st.Ended)
	assert.Equal(t, mode.ReasonTimeUp, st.EndReason)
	assert.Equal(t, KindEnded, f.view.last())
}

func TestTimerDeliversTicks(t *testing.T) {
	f := start(t, mode.Speedrun, source(oneMover("a")), func(o *Options) { o.TickInterval = 5 * time.Millisecond })
	require.Eventually(t, func() bool {
		return f.s.State().State.Elapsed > 0
	}, time.Second, 5*time.Millisecond)
}

func TestLevelGateThroughSession(t *testing.T) {
	reg, err := mode.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, reg.Tune(mode.Tuning{PuzzlesPerLevel: 2}))

	f := start(t, mode.Repetition, source(oneMover("p0"), oneMover("p1"), oneMover("p2")),
		func(o *Options) { o.Registry = reg })
	s := f.s

	move(t, s, "h3")
	move(t, s, "Rd8")
	res := move(t, s, "Rd8")
	assert.True(t, res.PuzzleComplete)
	assert.Equal(t, 0, res.State.Position)
	assert.Equal(t, 0, res.State.State.LevelProgress)
	assert.Equal(t, mode.PhaseBlockDirty, res.State.State.Phase)

	move(t, s, "Rd8")
	res = move(t, s, "Rd8")
	assert.Equal(t, 2, res.State.Position)
	assert.Equal(t, 2, res.State.State.Level)

	n, ok, err := f.repo.LoadSetStart(context.Background(), s.Source().ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, n)
}

func TestResumedBlockKeepsItsErrors(t *testing.T) {
	ctx := context.Background()
	reg, err := mode.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, reg.Tune(mode.Tuning{PuzzlesPerLevel: 2}))
	src := source(oneMover("p0"), oneMover("p1"), oneMover("p2"))

	resume := func(t *testing.T, f fixture) *Session {
		t.Helper()
		require.NoError(t, f.s.Stop(ctx))
		s, err := New(Options{Source: src, Registry: reg, Mode: mode.Repetition, Progress: f.repo, Resume: true})
		require.NoError(t, err)
		require.NoError(t, s.Start(ctx))
		t.Cleanup(s.Close)
		return s
	}

	t.Run("stopped after a dirty solve", func(t *testing.T) {
		f := start(t, mode.Repetition, src, func(o *Options) { o.Registry = reg })
		move(t, f.s, "h3")
		move(t, f.s, "Rd8")

		s := resume(t, f)
		st := s.State()
		assert.Equal(t, 1, st.Position)
		assert.Equal(t, 1, st.State.LevelErrors)

		res := move(t, s, "Rd8")
		assert.Equal(t, 0, res.State.Position)
		assert.Equal(t, mode.PhaseBlockDirty, res.State.State.Phase)
		assert.Equal(t, 1, res.State.State.Level)
	})

	t.Run("stopped inside a puzzle", func(t *testing.T) {
		f := start(t, mode.Repetition, src, func(o *Options) { o.Registry = reg })
		move(t, f.s, "h3")

		s := resume(t, f)
		assert.Equal(t, 0, s.State().Position)
		assert.Equal(t, 1, s.State().State.LevelErrors)

		move(t, s, "Rd8")
		res := move(t, s, "Rd8")
		assert.Equal(t, 0, res.State.Position)
		assert.Equal(t, mode.PhaseBlockDirty, res.State.State.Phase)
	})

	t.Run("clean block still opens the next one", func(t *testing.T) {
		f := start(t, mode.Repetition, src, func(o *Options) { o.Registry = reg })
		move(t, f.s, "Rd8")

		s := resume(t, f)
		assert.Equal(t, 1, s.State().State.LevelProgress)
		res := move(t, s, "Rd8")
		assert.Equal(t, 2, res.State.Position)
		assert.Equal(t, mode.PhaseBlockClean, res.State.State.Phase)
	})
}

func TestBackwardRounds(t *testing.T) {
	f := start(t, mode.Backward, source(backRank("p"), oneMover("next")))
	s := f.s
	// the first round starts at the final solver move
	assert.Equal(t, []string{"Re8+", "Rxe8"}, s.State().Played)

	res := move(t, s, "Rxe8#")
	assert.True(t, res.RoundComplete)
	assert.False(t, res.PuzzleComplete)
	assert.Equal(t, backRankFEN, res.State.FEN)

	move(t, s, "Re8+")
	res = move(t, s, "Rxe8#")
	assert.True(t, res.PuzzleComplete)
	assert.Equal(t, 1, res.State.Puzzle)
}

func TestHints(t *testing.T) {
	f := start(t, mode.Three, source(backRank("p")))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		h, err := f.s.Hint(ctx)
		require.NoError(t, err)
		assert.Equal(t, "e2e8", h)
	}
	_, err := f.s.Hint(ctx)
	assert.ErrorIs(t, err, ErrNoHints)
	assert.Equal(t, 3, f.s.State().Hints)
}

func TestSwitchModeNeedsConfirmation(t *testing.T) {
	f := start(t, mode.Standard, source(backRank("p"), oneMover("q")))
	s := f.s
	ctx := context.Background()

	// nothing played yet: no confirmation needed
	require.NoError(t, s.SwitchMode(ctx, mode.Speedrun, false))
	assert.Equal(t, mode.Speedrun, s.State().Mode)

	move(t, s, "h3")
	before := s.State()
	assert.ErrorIs(t, s.SwitchMode(ctx, mode.Three, false), ErrConfirmRequired)
	assert.Equal(t, before, s.State())

	assert.ErrorIs(t, s.SwitchMode(ctx, "nope", true), mode.ErrUnknownMode)

	require.NoError(t, s.SwitchMode(ctx, mode.Three, true))
	st := s.State()
	assert.Equal(t, mode.Three, st.Mode)
	assert.Equal(t, 0, st.State.TotalErrors)
	assert.Equal(t, 3, st.State.Lives)
	assert.Equal(t, KindMode, f.view.last())
}

func TestResetIsIdempotent(t *testing.T) {
	f := start(t, mode.Standard, source(backRank("p"), oneMover("q")))
	s := f.s
	ctx := context.Background()
	move(t, s, "h3")

	require.NoError(t, s.Reset(ctx))
	first := s.State()
	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, first, s.State())
	assert.Equal(t, 0, first.State.TotalErrors)
	assert.Equal(t, backRankFEN, first.FEN)
}

func TestStopAndResume(t *testing.T) {
	ctx := context.Background()
	src := source(oneMover("a"), oneMover("b"), oneMover("c"))
	f := start(t, mode.Standard, src)
	move(t, f.s, "Rd8")
	require.NoError(t, f.s.Stop(ctx))
	assert.ErrorIs(t, f.s.Stop(ctx), ErrSessionEnded)

	s, err := New(Options{Source: src, Mode: mode.Standard, Progress: f.repo, Resume: true})
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx))
	defer s.Close()
	st := s.State()
	assert.Equal(t, 1, st.Position)
	assert.Equal(t, 1, st.Puzzle)
	assert.Equal(t, 1, st.State.TotalSolved)

	// a different mode starts fresh
	other, err := New(Options{Source: src, Mode: mode.Repetition, Progress: f.repo, Resume: true})
	require.NoError(t, err)
	require.NoError(t, other.Start(ctx))
	defer other.Close()
	assert.Equal(t, 0, other.State().Position)
}

func TestFinishedRunDropsResume(t *testing.T) {
	ctx := context.Background()
	f := start(t, mode.Standard, source(oneMover("a"), oneMover("b")))
	move(t, f.s, "Rd8")
	_, ok, err := f.repo.LoadResume(ctx, f.s.Source().ID)
	require.NoError(t, err)
	require.True(t, ok)

	move(t, f.s, "Rd8")
	_, ok, err = f.repo.LoadResume(ctx, f.s.Source().ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdaptiveServesFailedPuzzleSoon(t *testing.T) {
	ctx := context.Background()
	f := start(t, mode.Spaced, source(oneMover("a"), oneMover("b"), oneMover("c")))
	s := f.s
	assert.Equal(t, 0, s.State().Puzzle)

	move(t, s, "Rd8")
	assert.Equal(t, 1, s.State().Puzzle)

	move(t, s, "h3")
	res := move(t, s, "Rd8")
	// puzzle 1 leads the order again but is not served twice in a row
	assert.Equal(t, 2, res.State.Puzzle)
	assert.Equal(t, 1, res.State.Position)

	cards, err := f.repo.LoadCards(ctx, s.Source().ID)
	require.NoError(t, err)
	require.Contains(t, cards, 1)
	assert.Equal(t, 1, cards[1].Lapses)

	move(t, s, "Rd8")
	assert.Equal(t, 1, s.State().Puzzle)
}

func TestClearProgress(t *testing.T) {
	ctx := context.Background()
	f := start(t, mode.Standard, source(oneMover("a"), oneMover("b")))
	move(t, f.s, "Rd8")
	require.True(t, f.repo.HasProgress(ctx, f.s.Source().ID))

	require.NoError(t, f.s.ClearProgress(ctx))
	assert.False(t, f.repo.HasProgress(ctx, f.s.Source().ID))
	st := f.s.State()
	assert.Equal(t, 0, st.Puzzle)
	assert.False(t, st.Ended)
}
