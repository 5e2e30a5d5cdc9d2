package mode

import (
	"time"

	"tinytactics/internal/srs"
)

// adaptiveMode grades every finished puzzle into the deck and asks the
// scheduler to rebuild the order from the updated cards.
type adaptiveMode struct {
	base
	deck *srs.Deck
}

// Deck exposes the reviewed cards so they can be persisted.
func (m *adaptiveMode) Deck() *srs.Deck { return m.deck }

func (m *adaptiveMode) OnCorrectMove() {
	if m.active() {
		m.st.CorrectMoves++
	}
}

func (m *adaptiveMode) OnIncorrectMove() { m.recordError() }

func (m *adaptiveMode) OnPuzzleComplete(c Completion) {
	if !m.recordSolve(c) {
		return
	}
	at := c.At
	if at.IsZero() {
		at = time.Now()
	}
	m.deck.Review(c.Puzzle, srs.QualityFor(c.Errors, c.Hints), at)
}

func (m *adaptiveMode) ShouldAdvance(c Cursor) Verdict {
	if !m.active() {
		return Verdict{Action: ActionStop, Last: m.last, Reason: m.st.EndReason}
	}
	if c.Len <= 0 {
		m.End(ReasonExhausted)
		return Verdict{Action: ActionStop, Last: m.last, Reason: ReasonExhausted}
	}
	return Verdict{Action: ActionRebuild, Last: m.last}
}

// Decked is implemented by modes that keep spaced-repetition cards.
type Decked interface {
	Deck() *srs.Deck
}
