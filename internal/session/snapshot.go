package session

import "tinytactics/internal/mode"

// Snapshot kinds name the gesture that produced an update.
const (
	KindIdle    = "idle"
	KindPuzzle  = "puzzle"
	KindMove    = "move"
	KindWrong   = "wrong"
	KindIllegal = "illegal"
	KindRound   = "round"
	KindHint    = "hint"
	KindTick    = "tick"
	KindMode    = "mode"
	KindEnded   = "ended"
)

// Outcome is how a move was judged.
type Outcome string

const (
	OutcomeCorrect  Outcome = "correct"
	OutcomeWrong    Outcome = "wrong"
	OutcomeIllegal  Outcome = "illegal"
	OutcomeRejected Outcome = "rejected"
)

// Snapshot is the presentable state of a session.
type Snapshot struct {
	Kind     string     `json:"kind"`
	ID       string     `json:"id"`
	Source   string     `json:"source"`
	Mode     mode.ID    `json:"mode"`
	ModeName string     `json:"modeName"`
	State    mode.State `json:"state"`

	Puzzle     int      `json:"puzzle"`
	PuzzleName string   `json:"puzzleName"`
	Position   int      `json:"position"`
	Total      int      `json:"total"`
	FEN        string   `json:"fen"`
	Turn       string   `json:"turn"`
	Played     []string `json:"played"`
	// Remaining is the number of solver moves left in the current round.
	Remaining int `json:"remaining"`
	Errors    int `json:"errors"`
	Hints     int `json:"hints"`

	Ended     bool           `json:"ended"`
	EndReason mode.EndReason `json:"endReason,omitempty"`
}

// MoveResult reports what a move did.
type MoveResult struct {
	Outcome Outcome `json:"outcome"`
	SAN     string  `json:"san,omitempty"`
	// Reply is the opponent move played automatically after a correct move.
	Reply          string   `json:"reply,omitempty"`
	RoundComplete  bool     `json:"roundComplete,omitempty"`
	PuzzleComplete bool     `json:"puzzleComplete,omitempty"`
	Ended          bool     `json:"ended,omitempty"`
	State          Snapshot `json:"state"`
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		Kind:     s.kind,
		ID:       s.id.String(),
		Source:   s.src.Name,
		Mode:     s.def.ID,
		ModeName: s.def.Name,
		Total:    s.src.Len(),
		Errors:   s.errors,
		Hints:    s.hints,
		Ended:    s.ended,
	}
	if s.m != nil {
		snap.State = s.m.State()
		snap.EndReason = snap.State.EndReason
	}
	if !s.started {
		return snap
	}
	p := s.src.Puzzles[s.current]
	snap.Puzzle = s.current
	snap.PuzzleName = p.Name
	snap.Position = s.sched.Position()
	snap.FEN = s.board.FEN()
	snap.Turn = s.board.Turn()
	snap.Played = s.board.History()
	if left := len(p.Moves) - s.ply; left > 0 {
		snap.Remaining = (left + 1) / 2
	}
	return snap
}
