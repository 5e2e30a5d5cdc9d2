package mode

// levelMode gates progress on clean blocks of PuzzlesPerLevel puzzles. A
// block with any error is replayed from its first puzzle; a clean block
// raises the level and moves the block start forward.
type levelMode struct {
	base
	lastDirty bool
}

func (m *levelMode) OnCorrectMove() {
	if m.active() {
		m.st.CorrectMoves++
	}
}

func (m *levelMode) OnIncorrectMove() {
	if m.recordError() {
		m.st.LevelErrors++
	}
}

func (m *levelMode) OnPuzzleComplete(c Completion) {
	if !m.recordSolve(c) {
		return
	}
	// errors carried into a resumed puzzle count against it as well
	m.lastDirty = !c.Clean() || (m.def.Restart == RestartPuzzle && m.st.LevelErrors > 0)
	if c.Clean() {
		m.st.LevelProgress++
	}
}

// blockSize is the size of the block starting at SetStart. The last block
// of a source may be shorter than the configured size.
func (m *levelMode) blockSize(n int) int {
	size := m.def.PuzzlesPerLevel
	if size <= 0 {
		size = n
	}
	if rest := n - m.st.SetStart; rest < size {
		size = rest
	}
	return size
}

func (m *levelMode) ShouldAdvance(c Cursor) Verdict {
	if !m.active() {
		return Verdict{Action: ActionStop, Last: m.last, Reason: m.st.EndReason}
	}
	if c.Len <= 0 || m.st.SetStart >= c.Len {
		m.End(ReasonCompleted)
		return Verdict{Action: ActionStop, Last: m.last, Reason: ReasonCompleted}
	}

	if m.def.Restart == RestartPuzzle && m.lastDirty {
		m.lastDirty = false
		m.st.LevelErrors = 0
		m.st.Phase = PhaseBlock
		return Verdict{Action: ActionRewind, To: c.Pos, Last: m.last}
	}

	size := m.blockSize(c.Len)
	if c.Pos-m.st.SetStart+1 < size {
		m.st.Phase = PhaseBlock
		return Verdict{Action: ActionNext, Last: m.last}
	}

	if m.st.LevelErrors > 0 {
		m.st.Phase = PhaseBlockDirty
		m.st.LevelErrors = 0
		m.st.LevelProgress = 0
		m.lastDirty = false
		return Verdict{Action: ActionRewind, To: m.st.SetStart, Last: m.last}
	}

	m.st.Phase = PhaseBlockClean
	m.st.Level++
	m.st.SetStart += size
	m.st.LevelProgress = 0
	if m.st.SetStart >= c.Len {
		m.End(ReasonCompleted)
		return Verdict{Action: ActionStop, Last: m.last, Reason: ReasonCompleted}
	}
	return Verdict{Action: ActionNext, Last: m.last}
}
