package mode

import "time"

// ID identifies a mode definition.
type ID string

// Built-in modes.
const (
	Standard   ID = "standard"
	Infinity   ID = "infinity"
	Backward   ID = "backward"
	Three      ID = "three"
	Haste      ID = "haste"
	Countdown  ID = "countdown"
	Speedrun   ID = "speedrun"
	Repetition ID = "repetition"
	Spaced     ID = "spaced"
)

// Family selects the state machine variant driving a mode.
type Family string

const (
	FamilyStandard Family = "standard"
	FamilyTimed    Family = "timed"
	FamilyLevel    Family = "level"
	FamilyAdaptive Family = "adaptive"
)

// RestartScope controls what a level-gated mode repeats after an error.
type RestartScope string

const (
	// RestartBlock repeats the whole block when any puzzle in it had an error.
	RestartBlock RestartScope = "block"
	// RestartPuzzle repeats only the failed puzzle before moving on.
	RestartPuzzle RestartScope = "puzzle"
)

// ComboThreshold awards Bonus once when the streak reaches Streak.
type ComboThreshold struct {
	Streak int           `json:"streak" yaml:"streak" validate:"gt=0"`
	Bonus  time.Duration `json:"bonus" yaml:"bonus" validate:"gte=0"`
}

// Definition is the static description of a mode.
type Definition struct {
	ID     ID     `json:"id" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Family Family `json:"family" validate:"oneof=standard timed level adaptive"`

	HasTimer  bool `json:"hasTimer"`
	HasLives  bool `json:"hasLives"`
	HasHints  bool `json:"hasHints"`
	HasLevels bool `json:"hasLevels"`
	HasCombo  bool `json:"hasCombo"`

	// ScoreByMove counts every correct move instead of only finished puzzles.
	ScoreByMove bool `json:"scoreByMove"`
	// Loop restarts the order after the last puzzle instead of ending.
	Loop     bool `json:"loop"`
	Shuffle  bool `json:"shuffle"`
	Backward bool `json:"backward"`
	// CountUp makes the timer measure elapsed time rather than count down.
	CountUp bool `json:"countUp"`

	TimeLimit       time.Duration    `json:"timeLimit" validate:"gte=0"`
	Lives           int              `json:"lives" validate:"gte=0"`
	Hints           int              `json:"hints" validate:"gte=-1"`
	PuzzlesPerLevel int              `json:"puzzlesPerLevel" validate:"gte=0"`
	Restart         RestartScope     `json:"restart,omitempty" validate:"omitempty,oneof=block puzzle"`
	TimeBonus       time.Duration    `json:"timeBonus" validate:"gte=0"`
	TimePenalty     time.Duration    `json:"timePenalty" validate:"gte=0"`
	Combo           []ComboThreshold `json:"combo,omitempty" validate:"dive"`
}

// UnlimitedHints marks a hint budget without limit.
const UnlimitedHints = -1

// DefaultCombo is the default streak bonus table.
func DefaultCombo() []ComboThreshold {
	return []ComboThreshold{
		{Streak: 2, Bonus: 3 * time.Second},
		{Streak: 5, Bonus: 5 * time.Second},
		{Streak: 10, Bonus: 8 * time.Second},
		{Streak: 20, Bonus: 12 * time.Second},
		{Streak: 30, Bonus: 15 * time.Second},
	}
}

// Defaults returns the built-in mode table.
func Defaults() []Definition {
	return []Definition{
		{
			ID: Standard, Name: "Standard", Family: FamilyStandard,
			HasHints: true, Hints: UnlimitedHints, ScoreByMove: true,
		},
		{
			ID: Infinity, Name: "Infinity", Family: FamilyStandard,
			HasHints: true, Hints: UnlimitedHints, ScoreByMove: true, Loop: true, Shuffle: true,
		},
		{
			ID: Backward, Name: "Backward", Family: FamilyStandard,
			HasHints: true, Hints: UnlimitedHints, ScoreByMove: true, Backward: true,
		},
		{
			ID: Three, Name: "Three", Family: FamilyTimed,
			HasTimer: true, HasLives: true, HasHints: true, ScoreByMove: true, Shuffle: true,
			TimeLimit: 3 * time.Minute, Lives: 3, Hints: 3,
		},
		{
			ID: Haste, Name: "Haste", Family: FamilyTimed,
			HasTimer: true, ScoreByMove: true, Shuffle: true,
			TimeLimit: time.Minute, TimeBonus: 5 * time.Second, TimePenalty: 10 * time.Second,
		},
		{
			ID: Countdown, Name: "Countdown", Family: FamilyTimed,
			HasTimer: true, HasCombo: true, Shuffle: true,
			TimeLimit: 5 * time.Minute, TimePenalty: 10 * time.Second, Combo: DefaultCombo(),
		},
		{
			ID: Speedrun, Name: "Speedrun", Family: FamilyTimed,
			HasTimer: true, CountUp: true, TimePenalty: 5 * time.Second,
		},
		{
			ID: Repetition, Name: "Repetition", Family: FamilyLevel,
			HasLevels: true, PuzzlesPerLevel: 10, Restart: RestartBlock,
		},
		{
			ID: Spaced, Name: "Spaced repetition", Family: FamilyAdaptive,
			HasHints: true, Hints: UnlimitedHints,
		},
	}
}
