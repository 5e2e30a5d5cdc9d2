package mode

// standardMode covers free play, looping play and backward play. It never
// fails a run; it only stops when the order runs out.
type standardMode struct {
	base
}

func (m *standardMode) OnCorrectMove() {
	if m.active() {
		m.st.CorrectMoves++
	}
}

func (m *standardMode) OnIncorrectMove() { m.recordError() }

func (m *standardMode) OnPuzzleComplete(c Completion) { m.recordSolve(c) }

func (m *standardMode) ShouldAdvance(c Cursor) Verdict {
	return m.linear(c, ReasonExhausted)
}
