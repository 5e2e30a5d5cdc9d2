// Package mode implements the per-mode state machines that score moves and
// decide how a session advances after each puzzle.
package mode

import (
	"time"

	"tinytactics/internal/srs"
)

// Mode is the capability interface every mode family implements. A session
// selects one variant when the mode is chosen and only talks to it through
// this interface.
type Mode interface {
	Definition() Definition
	State() State
	Begin()
	OnCorrectMove()
	OnIncorrectMove()
	OnPuzzleComplete(c Completion)
	ShouldAdvance(c Cursor) Verdict
	Tick(d time.Duration)
	UseHint() bool
	End(reason EndReason)
}

// Options carries collaborators some families need.
type Options struct {
	// Deck receives spaced-repetition reviews. Adaptive modes create an
	// empty deck when nil.
	Deck *srs.Deck
	// SetStart resumes a level-gated run at a saved block start.
	SetStart int
	// Carry restores counters of a resumed run.
	Carry Carry
}

// Carry holds the counters a resumed run continues from.
type Carry struct {
	Solved  int
	Errors  int
	Level   int
	Elapsed time.Duration
	// LevelErrors and LevelProgress restore the open block of a level run.
	LevelErrors   int
	LevelProgress int
}

// New returns the variant for def's family. Unknown families get the
// standard variant.
func New(def Definition, opts Options) Mode {
	b := newBase(def)
	b.st.TotalSolved = opts.Carry.Solved
	b.st.TotalErrors = opts.Carry.Errors
	b.st.Elapsed = opts.Carry.Elapsed
	b.st.Level = opts.Carry.Level
	switch def.Family {
	case FamilyTimed:
		return &timedMode{base: b, awarded: make(map[int]bool)}
	case FamilyLevel:
		m := &levelMode{base: b}
		m.st.LevelErrors = opts.Carry.LevelErrors
		m.st.LevelProgress = opts.Carry.LevelProgress
		if opts.SetStart > 0 {
			m.st.SetStart = opts.SetStart
			if m.st.Level == 0 && def.PuzzlesPerLevel > 0 {
				m.st.Level = opts.SetStart/def.PuzzlesPerLevel + 1
			}
		}
		return m
	case FamilyAdaptive:
		deck := opts.Deck
		if deck == nil {
			deck = srs.NewDeck(srs.DefaultConfig(), nil)
		}
		return &adaptiveMode{base: b, deck: deck}
	default:
		b.endStatus = StatusIdle
		return &standardMode{base: b}
	}
}

// base holds the state shared by every family.
type base struct {
	def       Definition
	st        State
	endStatus Status
	last      int
}

func newBase(def Definition) base {
	b := base{def: def, endStatus: StatusIdle, last: -1}
	if def.Family == FamilyTimed {
		b.endStatus = StatusEnded
	}
	b.st.Status = StatusIdle
	return b
}

func (b *base) Definition() Definition { return cloneDefinition(b.def) }

func (b *base) State() State { return b.st }

func (b *base) active() bool { return b.st.Status == StatusRunning }

// Begin moves an idle run to running and loads the budgets. It does nothing
// once the run has started or ended.
func (b *base) Begin() {
	if b.st.Status != StatusIdle || b.st.EndReason != ReasonNone {
		return
	}
	b.st.Status = StatusRunning
	if b.st.Level == 0 {
		b.st.Level = 1
	}
	if b.def.HasLevels {
		b.st.Phase = PhaseBlock
	}
	if b.def.HasTimer && !b.def.CountUp {
		b.st.TimeRemaining = b.def.TimeLimit
	}
	if b.def.HasLives {
		b.st.Lives = b.def.Lives
	}
	if b.def.HasHints {
		b.st.Hints = b.def.Hints
	}
}

// End freezes the run. Only the first reason is kept.
func (b *base) End(reason EndReason) {
	if !b.active() {
		return
	}
	if reason == ReasonNone {
		reason = ReasonStopped
	}
	b.st.Status = b.endStatus
	b.st.EndReason = reason
}

// Tick advances the clock by d.
func (b *base) Tick(d time.Duration) {
	if !b.active() || d <= 0 {
		return
	}
	b.st.Elapsed += d
	if !b.def.HasTimer || b.def.CountUp {
		return
	}
	b.st.TimeRemaining -= d
	if b.st.TimeRemaining <= 0 {
		b.st.TimeRemaining = 0
		b.End(ReasonTimeUp)
	}
}

// UseHint spends one hint from the budget.
func (b *base) UseHint() bool {
	if !b.active() || !b.def.HasHints {
		return false
	}
	if b.st.Hints == UnlimitedHints {
		return true
	}
	if b.st.Hints <= 0 {
		return false
	}
	b.st.Hints--
	return true
}

func (b *base) recordError() bool {
	if !b.active() {
		return false
	}
	b.st.TotalErrors++
	return true
}

func (b *base) recordSolve(c Completion) bool {
	if !b.active() {
		return false
	}
	b.st.TotalSolved++
	b.last = c.Puzzle
	return true
}

// linear is the default verdict: keep going while unvisited puzzles remain.
func (b *base) linear(c Cursor, exhausted EndReason) Verdict {
	if !b.active() {
		return Verdict{Action: ActionStop, Last: b.last, Reason: b.st.EndReason}
	}
	if b.def.Loop && c.Len > 0 {
		return Verdict{Action: ActionNext, Last: b.last}
	}
	if c.Pos+1 < c.Len {
		return Verdict{Action: ActionNext, Last: b.last}
	}
	b.End(exhausted)
	return Verdict{Action: ActionStop, Last: b.last, Reason: exhausted}
}
