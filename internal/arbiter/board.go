package arbiter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/corentings/chess/v2"
)

// ErrIllegalMove is returned when a notation does not match any legal move.
var ErrIllegalMove = errors.New("illegal move")

// Board is the move arbiter used by sessions. It wraps a chess.Game and
// keeps its own SAN history so undo can replay from the loaded position.
type Board struct {
	start   string
	g       *chess.Game
	history []string
}

// NewBoard returns a board in the standard starting position.
func NewBoard() *Board {
	return &Board{g: chess.NewGame()}
}

// Load resets the board to the given FEN. An empty FEN loads the standard
// starting position.
func (b *Board) Load(fen string) error {
	g, err := newGame(fen)
	if err != nil {
		return err
	}
	b.start = fen
	b.g = g
	b.history = b.history[:0]
	return nil
}

func newGame(fen string) (*chess.Game, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return chess.NewGame(), nil
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("load position %q: %w", fen, err)
	}
	return chess.NewGame(opt), nil
}

// Apply plays a move given in SAN ("Nf3", "exd8=Q+") or UCI ("g1f3").
// It returns the canonical SAN of the move that was played.
func (b *Board) Apply(notation string) (string, error) {
	san, ok := b.resolve(notation)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, notation)
	}
	if err := b.g.PushMove(san, nil); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrIllegalMove, notation, err)
	}
	b.history = append(b.history, san)
	return san, nil
}

// resolve maps a notation to the SAN of a legal move in the current position.
// A four character pawn move to the last rank is promoted to a queen.
func (b *Board) resolve(notation string) (string, bool) {
	in := strings.TrimSpace(notation)
	if in == "" {
		return "", false
	}
	pos := b.g.Position()
	var (
		san   = chess.AlgebraicNotation{}
		uci   = chess.UCINotation{}
		want  = Strip(in)
		lower = strings.ToLower(in)
		queen = ""
	)
	if isUCI(lower) && len(lower) == 4 {
		queen = lower + "q"
	}
	for _, mv := range pos.ValidMoves() {
		m := mv
		s := san.Encode(pos, &m)
		if Strip(s) == want {
			return s, true
		}
		if u := uci.Encode(pos, &m); u == lower || (queen != "" && u == queen) {
			return s, true
		}
	}
	return "", false
}

// Undo takes back the last move. It is a no-op on an empty history.
func (b *Board) Undo() error {
	if len(b.history) == 0 {
		return nil
	}
	keep := append([]string(nil), b.history[:len(b.history)-1]...)
	if err := b.Load(b.start); err != nil {
		return err
	}
	for _, san := range keep {
		if _, err := b.Apply(san); err != nil {
			return fmt.Errorf("undo replay: %w", err)
		}
	}
	return nil
}

// Turn returns "white" or "black".
func (b *Board) Turn() string {
	if b.g.Position().Turn() == chess.White {
		return "white"
	}
	return "black"
}

// History returns the SAN moves played since the last Load.
func (b *Board) History() []string {
	return append([]string(nil), b.history...)
}

// FEN returns the current position.
func (b *Board) FEN() string {
	return b.g.Position().String()
}

// Checkmate reports whether the side to move is mated.
func (b *Board) Checkmate() bool {
	return b.g.Method() == chess.Checkmate
}

// UCI converts a SAN move in the current position to UCI notation.
func (b *Board) UCI(san string) (string, bool) {
	pos := b.g.Position()
	want := Strip(san)
	for _, mv := range pos.ValidMoves() {
		m := mv
		if Strip(chess.AlgebraicNotation{}.Encode(pos, &m)) == want {
			return chess.UCINotation{}.Encode(pos, &m), true
		}
	}
	return "", false
}

// Strip removes check, mate and annotation decoration from a SAN move.
func Strip(san string) string {
	return strings.TrimRight(strings.TrimSpace(san), "+#!?")
}

func isUCI(s string) bool {
	if len(s) != 4 && len(s) != 5 {
		return false
	}
	if s[0] < 'a' || s[0] > 'h' || s[2] < 'a' || s[2] > 'h' {
		return false
	}
	if s[1] < '1' || s[1] > '8' || s[3] < '1' || s[3] > '8' {
		return false
	}
	return len(s) == 4 || strings.ContainsRune("qrbn", rune(s[4]))
}
