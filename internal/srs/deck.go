package srs

import "time"

// Deck holds the cards of one puzzle source. Cards are created lazily on
// the first review of a puzzle.
type Deck struct {
	cfg   Config
	cards map[int]Card
}

// NewDeck wraps previously persisted cards. A nil map starts an empty deck.
func NewDeck(cfg Config, cards map[int]Card) *Deck {
	d := &Deck{cfg: cfg, cards: make(map[int]Card, len(cards))}
	for k, c := range cards {
		c.Puzzle = k
		d.cards[k] = c
	}
	return d
}

// Card returns the card for a puzzle, if it has been reviewed.
func (d *Deck) Card(puzzle int) (Card, bool) {
	if d == nil {
		return Card{}, false
	}
	c, ok := d.cards[puzzle]
	return c, ok
}

// Review grades a puzzle and stores the updated card.
func (d *Deck) Review(puzzle int, q Quality, now time.Time) Card {
	c, ok := d.cards[puzzle]
	if !ok {
		c = NewCard(puzzle, d.cfg)
	}
	c = Review(c, q, now, d.cfg)
	d.cards[puzzle] = c
	return c
}

// Cards returns a copy of every card keyed by puzzle index.
func (d *Deck) Cards() map[int]Card {
	if d == nil {
		return map[int]Card{}
	}
	out := make(map[int]Card, len(d.cards))
	for k, c := range d.cards {
		out[k] = c
	}
	return out
}

// Len returns the number of reviewed puzzles.
func (d *Deck) Len() int {
	if d == nil {
		return 0
	}
	return len(d.cards)
}
