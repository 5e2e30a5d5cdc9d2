// Package srs schedules puzzle reviews with the SuperMemo-2 algorithm.
package srs

import (
	"math"
	"time"
)

// Quality is the SM-2 recall grade of a review.
type Quality int

const (
	// QualityBlackout means the puzzle was not solved at all.
	QualityBlackout Quality = 0
	// QualityIncorrect means the solution was found after at least one wrong move.
	QualityIncorrect Quality = 1
	// QualityIncorrectFamiliar is a failed review that felt close.
	QualityIncorrectFamiliar Quality = 2
	// QualityCorrectDifficult means solved without errors but with help.
	QualityCorrectDifficult Quality = 3
	// QualityCorrectHesitation means solved without errors after hesitation.
	QualityCorrectHesitation Quality = 4
	// QualityPerfect means solved cleanly.
	QualityPerfect Quality = 5
)

// PassThreshold is the lowest quality that counts as a successful review.
const PassThreshold = QualityCorrectDifficult

// Config holds SM-2 parameters.
type Config struct {
	InitialEase float64
	MinEase     float64
	// MaxIntervalDays caps intervals when positive. Zero leaves them
	// uncapped so every clean review lengthens the interval.
	MaxIntervalDays int
}

// DefaultConfig returns the classic SM-2 constants without an interval cap.
func DefaultConfig() Config {
	return Config{InitialEase: 2.5, MinEase: 1.3, MaxIntervalDays: 0}
}

// Card is the per-puzzle review record. DueAt is in unix milliseconds; zero
// means the card lapsed and is due before anything else.
type Card struct {
	Puzzle       int     `json:"puzzle"`
	IntervalDays int     `json:"intervalDays"`
	EaseFactor   float64 `json:"easeFactor"`
	Repetitions  int     `json:"repetitions"`
	DueAt        int64   `json:"dueAt"`
	LastReviewAt int64   `json:"lastReviewAt,omitempty"`
	Reviews      int     `json:"reviews"`
	Lapses       int     `json:"lapses"`
}

// NewCard returns an unreviewed card for a puzzle.
func NewCard(puzzle int, cfg Config) Card {
	return Card{Puzzle: puzzle, EaseFactor: cfg.InitialEase}
}

// Due reports whether the card should be reviewed at now.
func (c Card) Due(now time.Time) bool {
	return c.DueAt <= now.UnixMilli()
}

// Review applies one SM-2 step and returns the updated card. Failed reviews
// reset the repetition count and mark the card lapsed so it sorts first.
func Review(c Card, q Quality, now time.Time, cfg Config) Card {
	if q < QualityBlackout {
		q = QualityBlackout
	}
	if q > QualityPerfect {
		q = QualityPerfect
	}
	if c.EaseFactor == 0 {
		c.EaseFactor = cfg.InitialEase
	}

	d := float64(QualityPerfect - q)
	ef := c.EaseFactor + (0.1 - d*(0.08+d*0.02))
	if ef < cfg.MinEase {
		ef = cfg.MinEase
	}
	c.EaseFactor = ef
	c.Reviews++
	c.LastReviewAt = now.UnixMilli()

	if q < PassThreshold {
		c.Repetitions = 0
		c.IntervalDays = 1
		c.Lapses++
		c.DueAt = 0
		return c
	}

	c.Repetitions++
	switch c.Repetitions {
	case 1:
		c.IntervalDays = 1
	case 2:
		c.IntervalDays = 6
	default:
		c.IntervalDays = int(math.Round(float64(c.IntervalDays) * ef))
	}
	if cfg.MaxIntervalDays > 0 && c.IntervalDays > cfg.MaxIntervalDays {
		c.IntervalDays = cfg.MaxIntervalDays
	}
	c.DueAt = now.AddDate(0, 0, c.IntervalDays).UnixMilli()
	return c
}

// QualityFor grades a finished puzzle.
func QualityFor(errors, hints int) Quality {
	switch {
	case errors > 0:
		return QualityIncorrect
	case hints > 0:
		return QualityCorrectDifficult
	default:
		return QualityPerfect
	}
}
