package puzzle

import (
	"github.com/google/uuid"
)

// namespace scopes source ids generated from file names.
var namespace = uuid.MustParse("8b0d5a33-64f7-4a5c-9d5e-6b1f0f2f7c11")

// Puzzle is a single tactical position and its expected solution line.
type Puzzle struct {
	Name  string            `json:"name"`
	FEN   string            `json:"fen,omitempty"`
	Moves []string          `json:"moves"`
	Tags  map[string]string `json:"tags,omitempty"`
}

// PlayerMoves returns the number of moves the solver has to find. The solver
// plays the side to move in the starting position, so every even ply is theirs.
func (p Puzzle) PlayerMoves() int {
	return (len(p.Moves) + 1) / 2
}

// Source is an ordered set of puzzles loaded from one file.
type Source struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Puzzles []Puzzle `json:"puzzles"`
}

// SourceID derives the stable identity of a puzzle file from its name.
func SourceID(name string) string {
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// Len returns the number of puzzles in the source.
func (s *Source) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Puzzles)
}
