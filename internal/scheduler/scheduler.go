// Package scheduler owns the puzzle order of a session and the cursor into it.
package scheduler

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"tinytactics/internal/mode"
	"tinytactics/internal/srs"
)

var (
	// ErrEmpty is returned when an order is built for zero puzzles.
	ErrEmpty = errors.New("scheduler: no puzzles")
	// ErrDone is returned when the order has been served completely or stopped.
	ErrDone = errors.New("scheduler: order exhausted")
	// ErrOutOfRange is returned for positions outside the current order.
	ErrOutOfRange = errors.New("scheduler: position out of range")
)

// Options configures a Scheduler.
type Options struct {
	// Loop starts over after the last puzzle instead of finishing.
	Loop    bool
	Shuffle bool
	// Seed makes shuffles reproducible. Zero picks a random seed.
	Seed uint64
	// Now is the clock used for adaptive ordering.
	Now func() time.Time
}

// Scheduler holds a permutation of puzzle indices and a cursor.
type Scheduler struct {
	opts  Options
	rng   *rand.Rand
	order []int
	pos   int
	deck  *srs.Deck
}

// New returns an empty scheduler.
func New(opts Options) *Scheduler {
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{opts: opts, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Build creates the identity order for count puzzles, shuffled when the
// scheduler was configured to shuffle.
func (s *Scheduler) Build(count int) error {
	if count <= 0 {
		return ErrEmpty
	}
	s.order = s.permutation(count)
	s.pos = 0
	s.deck = nil
	return nil
}

// BuildAdaptive orders count puzzles from the deck's review state.
func (s *Scheduler) BuildAdaptive(count int, deck *srs.Deck) error {
	if count <= 0 {
		return ErrEmpty
	}
	s.deck = deck
	s.order = AdaptiveOrder(count, deck.Cards(), s.opts.Now())
	s.pos = 0
	return nil
}

// Restore resumes a saved order at pos. The order must be a permutation of
// 0..count-1 and pos must point into it.
func (s *Scheduler) Restore(count int, order []int, pos int) error {
	if count <= 0 {
		return ErrEmpty
	}
	if len(order) != count {
		return fmt.Errorf("restore: order has %d entries for %d puzzles: %w", len(order), count, ErrOutOfRange)
	}
	seen := make([]bool, count)
	for _, p := range order {
		if p < 0 || p >= count || seen[p] {
			return fmt.Errorf("restore: bad entry %d: %w", p, ErrOutOfRange)
		}
		seen[p] = true
	}
	if pos < 0 || pos >= count {
		return fmt.Errorf("restore: cursor %d: %w", pos, ErrOutOfRange)
	}
	s.order = append([]int(nil), order...)
	s.pos = pos
	return nil
}

// Current returns the puzzle under the cursor.
func (s *Scheduler) Current() (int, bool) {
	if s.pos < 0 || s.pos >= len(s.order) {
		return 0, false
	}
	return s.order[s.pos], true
}

// Position returns the cursor.
func (s *Scheduler) Position() int { return s.pos }

// Len returns the size of the order.
func (s *Scheduler) Len() int { return len(s.order) }

// Cursor returns the position for a mode verdict.
func (s *Scheduler) Cursor() mode.Cursor { return mode.Cursor{Pos: s.pos, Len: len(s.order)} }

// Order returns a copy of the current order.
func (s *Scheduler) Order() []int { return append([]int(nil), s.order...) }

// Advance moves the cursor as the verdict says and returns the next puzzle.
func (s *Scheduler) Advance(v mode.Verdict) (int, error) {
	if len(s.order) == 0 {
		return 0, ErrEmpty
	}
	switch v.Action {
	case mode.ActionNext:
		if s.pos+1 < len(s.order) {
			s.pos++
			break
		}
		if !s.opts.Loop {
			s.pos = len(s.order)
			return 0, ErrDone
		}
		last := s.order[len(s.order)-1]
		s.order = s.permutation(len(s.order))
		s.pos = 0
		if len(s.order) > 1 && s.order[0] == last {
			s.order[0], s.order[1] = s.order[1], s.order[0]
		}
	case mode.ActionRewind:
		if v.To < 0 || v.To >= len(s.order) {
			return 0, fmt.Errorf("rewind to %d of %d: %w", v.To, len(s.order), ErrOutOfRange)
		}
		s.pos = v.To
	case mode.ActionRebuild:
		s.order = AdaptiveOrder(len(s.order), s.deck.Cards(), s.opts.Now())
		s.pos = 0
		s.skip(v.Last)
	default:
		s.pos = len(s.order)
		return 0, ErrDone
	}
	return s.order[s.pos], nil
}

// skip moves the cursor past the puzzle just played when it would be
// served again right away and another puzzle exists.
func (s *Scheduler) skip(last int) {
	if len(s.order) > 1 && s.order[s.pos] == last {
		s.pos++
	}
}

func (s *Scheduler) permutation(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if s.opts.Shuffle {
		s.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return order
}

// AdaptiveOrder sorts puzzles for review: overdue cards first, most overdue
// leading, then never seen puzzles in file order, then cards that are not
// due yet, soonest first. Ties keep file order.
func AdaptiveOrder(count int, cards map[int]srs.Card, now time.Time) []int {
	var overdue, fresh, later []int
	for i := 0; i < count; i++ {
		c, ok := cards[i]
		switch {
		case !ok:
			fresh = append(fresh, i)
		case c.Due(now):
			overdue = append(overdue, i)
		default:
			later = append(later, i)
		}
	}
	byDue := func(list []int) {
		sort.SliceStable(list, func(a, b int) bool {
			return cards[list[a]].DueAt < cards[list[b]].DueAt
		})
	}
	byDue(overdue)
	byDue(later)

	out := make([]int, 0, count)
	out = append(out, overdue...)
	out = append(out, fresh...)
	return append(out, later...)
}
