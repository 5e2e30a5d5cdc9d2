// Package session runs one player's training session: it owns the active
// mode, the puzzle order and the board, and routes every gesture through
// them in a fixed order.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tinytactics/internal/arbiter"
	"tinytactics/internal/metrics"
	"tinytactics/internal/mode"
	"tinytactics/internal/progress"
	"tinytactics/internal/puzzle"
	"tinytactics/internal/scheduler"
	"tinytactics/internal/srs"
	"tinytactics/internal/storage"
)

var (
	// ErrNoPuzzles is returned when a session is created for an empty source.
	ErrNoPuzzles = errors.New("session: source has no puzzles")
	// ErrConfirmRequired is returned when a mode switch would discard progress.
	ErrConfirmRequired = errors.New("session: switching modes discards progress")
	// ErrSessionEnded is returned for gestures on a run that is not running.
	ErrSessionEnded = errors.New("session: run is not active")
	// ErrNoHints is returned when the hint budget is spent.
	ErrNoHints = errors.New("session: no hints left")
)

// Options configures a Session.
type Options struct {
	ID       uuid.UUID
	Source   *puzzle.Source
	Registry *mode.Registry
	Mode     mode.ID
	// Resume continues from saved progress when it matches the mode.
	Resume bool

	Arbiter   Arbiter
	Presenter Presenter
	Progress  Progress
	Recorder  storage.Recorder

	SRS          srs.Config
	Seed         uint64
	TickInterval time.Duration
	Now          func() time.Time
	Logger       *slog.Logger
}

// Session is safe for concurrent use. Gestures and timer ticks are
// serialised by one mutex.
type Session struct {
	mu sync.Mutex

	id    uuid.UUID
	src   *puzzle.Source
	reg   *mode.Registry
	def   mode.Definition
	opts  Options
	log   *slog.Logger
	now   func() time.Time
	board Arbiter
	timer *Timer

	m     mode.Mode
	sched *scheduler.Scheduler
	deck  *srs.Deck
	runID uuid.UUID

	current    int
	ply        int
	roundStart int
	errors     int
	hints      int
	loadedAt   time.Time
	started    bool
	ended      bool
	kind       string
}

// New validates opts and returns an idle session.
func New(opts Options) (*Session, error) {
	if opts.Source.Len() == 0 {
		return nil, ErrNoPuzzles
	}
	if opts.Registry == nil {
		reg, err := mode.NewRegistry()
		if err != nil {
			return nil, err
		}
		opts.Registry = reg
	}
	if opts.Mode == "" {
		opts.Mode = mode.Standard
	}
	if _, ok := opts.Registry.Lookup(opts.Mode); !ok {
		return nil, fmt.Errorf("%w: %s", mode.ErrUnknownMode, opts.Mode)
	}
	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}
	if opts.Arbiter == nil {
		opts.Arbiter = arbiter.NewBoard()
	}
	if opts.SRS == (srs.Config{}) {
		opts.SRS = srs.DefaultConfig()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Session{
		id:    opts.ID,
		src:   opts.Source,
		reg:   opts.Registry,
		def:   opts.Registry.Get(opts.Mode),
		opts:  opts,
		log:   opts.Logger.With("session", opts.ID.String(), "source", opts.Source.Name),
		now:   opts.Now,
		board: opts.Arbiter,
		timer: NewTimer(opts.TickInterval),
		kind:  KindIdle,
	}
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID { return s.id }

// Source returns the puzzle source the session plays.
func (s *Session) Source() *puzzle.Source { return s.src }

// Start begins the first run: it builds the mode and the order, restoring
// saved progress when asked to, and loads the first puzzle.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if err := s.begin(ctx, s.opts.Resume); err != nil {
		return err
	}
	s.present(KindPuzzle)
	return nil
}

// begin replaces the run wholesale. Callers hold the lock.
func (s *Session) begin(ctx context.Context, resume bool) error {
	s.timer.Stop()
	n := s.src.Len()

	var (
		saved   progress.Resume
		haveRes bool
		carry   mode.Carry
	)
	if resume && s.opts.Progress != nil && resumable(s.def) {
		res, ok, err := s.opts.Progress.LoadResume(ctx, s.src.ID)
		if err != nil {
			s.log.Warn("load resume", "error", err)
		}
		if ok && res.Mode == string(s.def.ID) {
			saved, haveRes = res, true
			carry = mode.Carry{
				Solved:  res.Solved,
				Errors:  res.Errors,
				Level:   res.Level,
				Elapsed: time.Duration(res.ElapsedMillis) * time.Millisecond,

				LevelErrors:   res.LevelErrors,
				LevelProgress: res.LevelProgress,
			}
		}
	}

	s.deck = nil
	if s.def.Family == mode.FamilyAdaptive {
		cards := map[int]srs.Card{}
		if s.opts.Progress != nil {
			var err error
			if cards, err = s.opts.Progress.LoadCards(ctx, s.src.ID); err != nil {
				s.log.Warn("load cards", "error", err)
			}
		}
		s.deck = srs.NewDeck(s.opts.SRS, cards)
	}

	setStart := 0
	if s.def.Family == mode.FamilyLevel {
		if haveRes {
			setStart = saved.SetStart
		} else if resume && s.opts.Progress != nil {
			if v, ok, err := s.opts.Progress.LoadSetStart(ctx, s.src.ID); err != nil {
				s.log.Warn("load set start", "error", err)
			} else if ok {
				setStart = v
			}
		}
		if setStart < 0 || setStart >= n {
			setStart = 0
		}
	}

	s.m = mode.New(s.def, mode.Options{Deck: s.deck, SetStart: setStart, Carry: carry})
	s.sched = scheduler.New(scheduler.Options{
		Loop:    s.def.Loop,
		Shuffle: s.def.Shuffle,
		Seed:    s.opts.Seed,
		Now:     s.now,
	})
	var err error
	if s.deck != nil {
		err = s.sched.BuildAdaptive(n, s.deck)
	} else {
		err = s.sched.Build(n)
	}
	if err != nil {
		return err
	}

	switch {
	case haveRes:
		if err := s.sched.Restore(n, saved.Order, saved.Cursor); err != nil {
			s.log.Warn("discarding resume state", "error", err)
		}
	case setStart > 0:
		if _, err := s.sched.Advance(mode.Verdict{Action: mode.ActionRewind, To: setStart}); err != nil {
			s.log.Warn("restore set start", "error", err)
		}
	}

	s.started = true
	s.ended = false
	s.m.Begin()
	s.record(ctx)

	p, ok := s.sched.Current()
	if !ok {
		return scheduler.ErrEmpty
	}
	return s.load(p)
}

// resumable reports whether a saved run of def can be continued. Count
// down runs cannot; their clock is not persisted.
func resumable(def mode.Definition) bool {
	return !def.HasTimer || def.CountUp
}

func (s *Session) record(ctx context.Context) {
	s.runID = uuid.New()
	if s.opts.Recorder == nil {
		return
	}
	rec := storage.SessionRecord{
		ID:        s.runID,
		Source:    s.src.Name,
		Mode:      string(s.def.ID),
		Active:    true,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	if id, err := uuid.Parse(s.src.ID); err == nil {
		rec.SourceID = id
	}
	if err := s.opts.Recorder.CreateSession(ctx, rec); err != nil {
		s.log.Warn("record session", "error", err)
	}
}

// load puts puzzle idx on the board and restarts the clock.
func (s *Session) load(idx int) error {
	p := s.src.Puzzles[idx]
	s.current = idx
	s.errors, s.hints = 0, 0
	s.ply, s.roundStart = 0, 0
	s.loadedAt = s.now()
	if s.def.Backward {
		s.roundStart = lastPlayerPly(p)
	}
	if err := s.setup(p, s.roundStart); err != nil {
		return err
	}
	if s.def.HasTimer {
		s.timer.Restart(s.Tick)
	}
	return nil
}

// setup loads the puzzle start and replays the line up to ply.
func (s *Session) setup(p puzzle.Puzzle, ply int) error {
	if err := s.board.Load(p.FEN); err != nil {
		return fmt.Errorf("load puzzle %q: %w", p.Name, err)
	}
	for i := 0; i < ply && i < len(p.Moves); i++ {
		if _, err := s.board.Apply(p.Moves[i]); err != nil {
			return fmt.Errorf("replay puzzle %q: %w", p.Name, err)
		}
	}
	s.ply = ply
	return nil
}

// lastPlayerPly is the index of the solver's final move in the line.
func lastPlayerPly(p puzzle.Puzzle) int {
	if len(p.Moves) == 0 {
		return 0
	}
	return ((len(p.Moves) - 1) / 2) * 2
}

// Move plays notation for the solver.
func (s *Session) Move(ctx context.Context, notation string) (MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running() {
		return MoveResult{Outcome: OutcomeRejected, State: s.snapshot()}, ErrSessionEnded
	}
	modeLabel := string(s.def.ID)
	p := s.src.Puzzles[s.current]
	if s.ply >= len(p.Moves) {
		return MoveResult{Outcome: OutcomeRejected, State: s.snapshot()}, ErrSessionEnded
	}
	expected := p.Moves[s.ply]
	last := s.ply == len(p.Moves)-1

	san, err := s.board.Apply(notation)
	if err != nil {
		metrics.MovesTotal.WithLabelValues(modeLabel, string(OutcomeIllegal)).Inc()
		s.present(KindIllegal)
		return MoveResult{Outcome: OutcomeIllegal, State: s.snapshot()}, err
	}

	if arbiter.Strip(san) != arbiter.Strip(expected) && !(last && s.board.Checkmate()) {
		if err := s.board.Undo(); err != nil {
			return MoveResult{}, fmt.Errorf("take back wrong move: %w", err)
		}
		s.errors++
		metrics.MovesTotal.WithLabelValues(modeLabel, string(OutcomeWrong)).Inc()
		s.m.OnIncorrectMove()
		res := MoveResult{Outcome: OutcomeWrong, SAN: san}
		if !s.m.State().Active() {
			s.finish(ctx, s.m.State().EndReason)
		} else {
			s.present(KindWrong)
		}
		res.State = s.snapshot()
		res.Ended = s.ended
		return res, nil
	}

	metrics.MovesTotal.WithLabelValues(modeLabel, string(OutcomeCorrect)).Inc()
	s.m.OnCorrectMove()
	s.ply++
	res := MoveResult{Outcome: OutcomeCorrect, SAN: san}

	if s.ply < len(p.Moves) {
		reply, err := s.board.Apply(p.Moves[s.ply])
		if err != nil {
			s.log.Warn("solution reply does not replay", "puzzle", p.Name, "move", p.Moves[s.ply], "error", err)
			s.ply = len(p.Moves)
		} else {
			res.Reply = reply
			s.ply++
		}
	}

	if s.ply < len(p.Moves) {
		s.present(KindMove)
		res.State = s.snapshot()
		return res, nil
	}

	if s.def.Backward && s.roundStart > 0 {
		s.roundStart -= 2
		if err := s.setup(p, s.roundStart); err != nil {
			return res, err
		}
		res.RoundComplete = true
		s.present(KindRound)
		res.State = s.snapshot()
		return res, nil
	}

	res.PuzzleComplete = true
	if err := s.complete(ctx); err != nil {
		return res, err
	}
	res.State = s.snapshot()
	res.Ended = s.ended
	return res, nil
}

// complete runs the end-of-puzzle pipeline: score, verdict, advance.
func (s *Session) complete(ctx context.Context) error {
	c := mode.Completion{Puzzle: s.current, Errors: s.errors, Hints: s.hints, At: s.now()}
	modeLabel := string(s.def.ID)
	metrics.PuzzlesSolved.WithLabelValues(modeLabel, metrics.CleanLabel(c.Clean())).Inc()
	metrics.SolveSeconds.WithLabelValues(modeLabel).Observe(c.At.Sub(s.loadedAt).Seconds())

	s.m.OnPuzzleComplete(c)
	v := s.m.ShouldAdvance(s.sched.Cursor())
	s.saveCards(ctx)

	if !v.Advance() {
		s.finish(ctx, v.Reason)
		return nil
	}
	next, err := s.sched.Advance(v)
	if errors.Is(err, scheduler.ErrDone) {
		s.finish(ctx, mode.ReasonExhausted)
		return nil
	}
	if err != nil {
		s.log.Error("advance", "action", v.Action.String(), "error", err)
		s.finish(ctx, mode.ReasonStopped)
		return err
	}
	if s.def.Family == mode.FamilyLevel && s.opts.Progress != nil {
		if err := s.opts.Progress.SaveSetStart(ctx, s.src.ID, s.m.State().SetStart); err != nil {
			s.log.Warn("save set start", "error", err)
		}
	}
	if err := s.load(next); err != nil {
		return err
	}
	s.saveResume(ctx)
	s.present(KindPuzzle)
	return nil
}

// finish is the single exit of a run: it stops the clock, settles
// progress, closes the history row and tells the presenter.
func (s *Session) finish(ctx context.Context, reason mode.EndReason) {
	if s.ended {
		return
	}
	if reason == mode.ReasonNone {
		reason = mode.ReasonStopped
	}
	s.m.End(reason)
	if r := s.m.State().EndReason; r != mode.ReasonNone {
		reason = r
	}
	s.ended = true
	s.timer.Stop()

	if reason == mode.ReasonStopped {
		s.saveResume(ctx)
	} else if s.opts.Progress != nil {
		if err := s.opts.Progress.DeleteResume(ctx, s.src.ID); err != nil {
			s.log.Warn("drop resume", "error", err)
		}
	}
	s.saveCards(ctx)

	st := s.m.State()
	if s.opts.Recorder != nil {
		err := s.opts.Recorder.CompleteSession(ctx, s.runID, storage.SessionResult{
			Reason:        string(reason),
			Solved:        st.TotalSolved,
			Errors:        st.TotalErrors,
			Level:         st.Level,
			ElapsedMillis: st.Elapsed.Milliseconds(),
			CompletedAt:   s.now(),
		})
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("complete session record", "error", err)
		}
	}
	metrics.SessionsEnded.WithLabelValues(string(s.def.ID), string(reason)).Inc()
	s.log.Info("run ended", "mode", s.def.ID, "reason", reason, "solved", st.TotalSolved, "errors", st.TotalErrors)
	s.present(KindEnded)
}

func (s *Session) saveResume(ctx context.Context) {
	if s.opts.Progress == nil || !resumable(s.def) {
		return
	}
	st := s.m.State()
	pos := s.sched.Position()
	if pos >= s.sched.Len() {
		return
	}
	res := progress.Resume{
		File:          s.src.Name,
		Mode:          string(s.def.ID),
		Order:         s.sched.Order(),
		Cursor:        pos,
		Errors:        st.TotalErrors,
		Solved:        st.TotalSolved,
		ElapsedMillis: st.Elapsed.Milliseconds(),
		SetStart:      st.SetStart,
		Level:         st.Level,
		LevelErrors:   st.LevelErrors,
		LevelProgress: st.LevelProgress,
		SavedAt:       s.now(),
	}
	if err := s.opts.Progress.SaveResume(ctx, s.src.ID, res); err != nil {
		s.log.Warn("save resume", "error", err)
	}
}

func (s *Session) saveCards(ctx context.Context) {
	if s.deck == nil || s.opts.Progress == nil {
		return
	}
	if err := s.opts.Progress.SaveCards(ctx, s.src.ID, s.deck.Cards()); err != nil {
		s.log.Warn("save cards", "error", err)
	}
}

// Hint returns the expected move in UCI notation.
func (s *Session) Hint(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running() {
		return "", ErrSessionEnded
	}
	p := s.src.Puzzles[s.current]
	if s.ply >= len(p.Moves) {
		return "", ErrSessionEnded
	}
	if !s.m.UseHint() {
		return "", ErrNoHints
	}
	s.hints++
	metrics.HintsUsed.WithLabelValues(string(s.def.ID)).Inc()
	move := p.Moves[s.ply]
	if uci, ok := s.board.UCI(move); ok {
		move = uci
	}
	s.present(KindHint)
	return move, nil
}

// SwitchMode replaces the run with a fresh one in mode id. Without confirm
// it refuses when the current run has progress.
func (s *Session) SwitchMode(ctx context.Context, id mode.ID, confirm bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.reg.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", mode.ErrUnknownMode, id)
	}
	if !confirm && s.hasProgress() {
		return ErrConfirmRequired
	}
	s.closeRun(ctx)
	s.def = def
	if err := s.begin(ctx, false); err != nil {
		return err
	}
	s.present(KindMode)
	return nil
}

func (s *Session) hasProgress() bool {
	if s.m == nil || s.ended {
		return false
	}
	st := s.m.State()
	return st.TotalSolved > 0 || st.TotalErrors > 0 || st.CorrectMoves > 0 || s.errors > 0 || s.hints > 0
}

// closeRun ends a running run before it is replaced.
func (s *Session) closeRun(ctx context.Context) {
	if s.running() {
		s.finish(ctx, mode.ReasonStopped)
	}
}

// Reset starts the current mode over from the first puzzle. Calling it
// again yields the same fresh state.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeRun(ctx)
	if err := s.begin(ctx, false); err != nil {
		return err
	}
	s.present(KindPuzzle)
	return nil
}

// Stop ends the run. Progress of resumable modes is kept.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running() {
		return ErrSessionEnded
	}
	s.finish(ctx, mode.ReasonStopped)
	return nil
}

// ClearProgress deletes saved progress for the source and restarts the run.
func (s *Session) ClearProgress(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeRun(ctx)
	if s.opts.Progress != nil {
		if err := s.opts.Progress.Clear(ctx, s.src.ID); err != nil {
			return err
		}
	}
	if !s.started {
		return nil
	}
	if err := s.begin(ctx, false); err != nil {
		return err
	}
	s.present(KindPuzzle)
	return nil
}

// Tick advances the mode clock. Ticks from an older timer generation are
// dropped.
func (s *Session) Tick(gen uint64, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.timer.Generation() || !s.running() {
		return
	}
	s.m.Tick(d)
	if !s.m.State().Active() {
		s.finish(context.Background(), s.m.State().EndReason)
		return
	}
	s.present(KindTick)
}

// TimerGeneration returns the generation the next valid tick must carry.
func (s *Session) TimerGeneration() uint64 { return s.timer.Generation() }

// Close stops the clock without ending the run.
func (s *Session) Close() { s.timer.Stop() }

// State returns a snapshot of the session.
func (s *Session) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) running() bool {
	return s.started && !s.ended && s.m != nil && s.m.State().Active()
}

func (s *Session) present(kind string) {
	s.kind = kind
	if s.opts.Presenter == nil {
		return
	}
	s.opts.Presenter.Present(s.snapshot())
}
