package mode

import "time"

// timedMode drives every clocked mode: lives, per-move bonus and penalty,
// count-up and combo bonuses are switched on by the definition.
type timedMode struct {
	base
	// awarded remembers which combo thresholds already paid out.
	awarded map[int]bool
}

func (m *timedMode) OnCorrectMove() {
	if !m.active() {
		return
	}
	if m.def.ScoreByMove {
		m.st.CorrectMoves++
	}
	if m.def.TimeBonus > 0 {
		m.addTime(m.def.TimeBonus)
	}
}

func (m *timedMode) OnIncorrectMove() {
	if !m.recordError() {
		return
	}
	m.st.Combo = 0
	if m.def.HasLives {
		m.st.Lives--
		if m.st.Lives <= 0 {
			m.st.Lives = 0
			m.End(ReasonNoLives)
			return
		}
	}
	if m.def.TimePenalty > 0 {
		m.addTime(-m.def.TimePenalty)
	}
}

func (m *timedMode) OnPuzzleComplete(c Completion) {
	if !m.recordSolve(c) {
		return
	}
	if !m.def.HasCombo {
		return
	}
	if !c.Clean() {
		m.st.Combo = 0
		return
	}
	m.st.Combo++
	if m.st.Combo > m.st.MaxCombo {
		m.st.MaxCombo = m.st.Combo
	}
	for _, t := range m.def.Combo {
		if t.Streak == m.st.Combo && !m.awarded[t.Streak] {
			m.awarded[t.Streak] = true
			m.addTime(t.Bonus)
		}
	}
}

func (m *timedMode) ShouldAdvance(c Cursor) Verdict {
	return m.linear(c, ReasonCompleted)
}

// addTime moves the clock in the player's favour for positive d. A count-up
// clock grows on penalties and shrinks on bonuses.
func (m *timedMode) addTime(d time.Duration) {
	if m.def.CountUp {
		m.st.Elapsed -= d
		if m.st.Elapsed < 0 {
			m.st.Elapsed = 0
		}
		return
	}
	m.st.TimeRemaining += d
	if m.st.TimeRemaining <= 0 {
		m.st.TimeRemaining = 0
		m.End(ReasonTimeUp)
	}
}
