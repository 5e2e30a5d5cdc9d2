// Package metrics registers the prometheus collectors of the trainer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MovesTotal counts judged moves by mode and result (correct, wrong, illegal).
	MovesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tinytactics_moves_total",
		Help: "Moves played by mode and result.",
	}, []string{"mode", "result"})

	// PuzzlesSolved counts finished puzzles by mode and whether they were clean.
	PuzzlesSolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tinytactics_puzzles_solved_total",
		Help: "Puzzles completed by mode and cleanliness.",
	}, []string{"mode", "clean"})

	// HintsUsed counts granted hints by mode.
	HintsUsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tinytactics_hints_total",
		Help: "Hints granted by mode.",
	}, []string{"mode"})

	// SessionsEnded counts sessions by mode and end reason.
	SessionsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tinytactics_sessions_ended_total",
		Help: "Sessions ended by mode and reason.",
	}, []string{"mode", "reason"})

	// ActiveSessions is the number of live sessions in the hub.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tinytactics_active_sessions",
		Help: "Live sessions held by the hub.",
	})

	// SolveSeconds observes how long puzzles take to solve.
	SolveSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tinytactics_solve_seconds",
		Help:    "Time from puzzle load to completion.",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"mode"})

	// ParseSkipped counts PGN games skipped while loading sources.
	ParseSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tinytactics_pgn_skipped_total",
		Help: "PGN games skipped because they could not be parsed.",
	})
)

// CleanLabel renders a completion's cleanliness as a label value.
func CleanLabel(clean bool) string {
	if clean {
		return "true"
	}
	return "false"
}
