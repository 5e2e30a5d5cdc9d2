package mode

import "time"

// Status is the coarse lifecycle of a mode run.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusEnded   Status = "ended"
)

// EndReason explains why a run stopped.
type EndReason string

const (
	ReasonNone      EndReason = ""
	ReasonStopped   EndReason = "stopped"
	ReasonExhausted EndReason = "exhausted"
	ReasonCompleted EndReason = "completed"
	ReasonTimeUp    EndReason = "time-up"
	ReasonNoLives   EndReason = "lives-exhausted"
)

// Phase is the level-gated sub state.
type Phase string

const (
	PhaseNone       Phase = ""
	PhaseBlock      Phase = "running-block"
	PhaseBlockClean Phase = "block-complete-clean"
	PhaseBlockDirty Phase = "block-complete-dirty"
)

// State is the mutable runtime state of the active mode.
type State struct {
	Status        Status        `json:"status"`
	EndReason     EndReason     `json:"endReason,omitempty"`
	Phase         Phase         `json:"phase,omitempty"`
	TimeRemaining time.Duration `json:"timeRemaining"`
	Elapsed       time.Duration `json:"elapsed"`
	Lives         int           `json:"lives"`
	Hints         int           `json:"hints"`
	Level         int           `json:"level"`
	LevelProgress int           `json:"levelProgress"`
	LevelErrors   int           `json:"levelErrors"`
	SetStart      int           `json:"setStart"`
	TotalSolved   int           `json:"totalSolved"`
	CorrectMoves  int           `json:"correctMoves"`
	TotalErrors   int           `json:"totalErrors"`
	Combo         int           `json:"combo"`
	MaxCombo      int           `json:"maxCombo"`
}

// Active reports whether the run accepts events.
func (s State) Active() bool { return s.Status == StatusRunning }

// Cursor is the scheduler position a verdict is computed against.
type Cursor struct {
	Pos int
	Len int
}

// Action is what the scheduler should do after a puzzle.
type Action int

const (
	ActionNext Action = iota
	ActionRewind
	ActionRebuild
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionNext:
		return "next"
	case ActionRewind:
		return "rewind"
	case ActionRebuild:
		return "rebuild"
	default:
		return "stop"
	}
}

// Verdict is the answer to "advance, and if so where".
type Verdict struct {
	Action Action
	// To is the order position to rewind to.
	To int
	// Last is the puzzle that was just completed.
	Last int
	// Reason is set when Action is ActionStop.
	Reason EndReason
}

// Advance reports whether the session continues.
func (v Verdict) Advance() bool { return v.Action != ActionStop }

// Completion describes a finished puzzle.
type Completion struct {
	Puzzle int
	Errors int
	Hints  int
	At     time.Time
}

// Clean reports whether the puzzle was solved without a wrong move.
func (c Completion) Clean() bool { return c.Errors == 0 }
