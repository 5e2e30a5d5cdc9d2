package puzzle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"tinytactics/internal/arbiter"
	"tinytactics/internal/metrics"
)

var (
	tagRe      = regexp.MustCompile(`^\[\s*(\w+)\s+"((?:[^"\\]|\\.)*)"\s*\]`)
	commentRe  = regexp.MustCompile(`\{[^}]*\}|;[^\n]*`)
	nagRe      = regexp.MustCompile(`\$\d+`)
	moveNumRe  = regexp.MustCompile(`\d+\.(\.\.)?`)
	resultRe   = regexp.MustCompile(`^(1-0|0-1|1/2-1/2|\*)$`)
	variantRe  = regexp.MustCompile(`\([^()]*\)`)
	annotateRe = regexp.MustCompile(`[!?]+$`)
)

// ParseError describes a game that could not be turned into a puzzle.
type ParseError struct {
	Game int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("game %d: %v", e.Game, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type rawGame struct {
	tags     map[string]string
	movetext strings.Builder
}

// Parse reads every game in r. Games that fail to replay are skipped and
// reported in the returned error slice; they never abort the batch.
func Parse(r io.Reader) ([]Puzzle, []error) {
	games, err := split(r)
	if err != nil {
		return nil, []error{err}
	}
	var (
		out  []Puzzle
		errs []error
	)
	for i, g := range games {
		p, err := build(g, i+1)
		if err != nil {
			errs = append(errs, &ParseError{Game: i + 1, Err: err})
			continue
		}
		out = append(out, p)
	}
	return out, errs
}

// LoadFile parses a PGN file into a Source. Skipped games are logged.
func LoadFile(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open puzzles: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	puzzles, errs := Parse(f)
	for _, e := range errs {
		slog.Warn("skipping puzzle", slog.String("file", name), slog.Any("err", e))
	}
	metrics.ParseSkipped.Add(float64(len(errs)))
	return &Source{ID: SourceID(name), Name: name, Puzzles: puzzles}, nil
}

func split(r io.Reader) ([]*rawGame, error) {
	var (
		games   []*rawGame
		cur     *rawGame
		inMoves bool
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		if m := tagRe.FindStringSubmatch(line); m != nil {
			if cur == nil || inMoves {
				cur = &rawGame{tags: map[string]string{}}
				games = append(games, cur)
				inMoves = false
			}
			cur.tags[m[1]] = strings.ReplaceAll(m[2], `\"`, `"`)
			continue
		}
		if cur == nil {
			cur = &rawGame{tags: map[string]string{}}
			games = append(games, cur)
		}
		inMoves = true
		cur.movetext.WriteString(line)
		cur.movetext.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read pgn: %w", err)
	}
	return games, nil
}

// tokens strips comments, variations, NAGs, move numbers and results from
// movetext and returns the remaining SAN tokens.
func tokens(movetext string) []string {
	s := commentRe.ReplaceAllString(movetext, " ")
	for variantRe.MatchString(s) {
		s = variantRe.ReplaceAllString(s, " ")
	}
	s = nagRe.ReplaceAllString(s, " ")
	s = moveNumRe.ReplaceAllString(s, " ")

	var out []string
	for _, f := range strings.Fields(s) {
		if resultRe.MatchString(f) {
			continue
		}
		f = annotateRe.ReplaceAllString(f, "")
		if f == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func build(g *rawGame, n int) (Puzzle, error) {
	moves := tokens(g.movetext.String())
	if len(moves) == 0 {
		return Puzzle{}, fmt.Errorf("no moves")
	}
	fen := g.tags["FEN"]

	b := arbiter.NewBoard()
	if err := b.Load(fen); err != nil {
		return Puzzle{}, err
	}
	canon := make([]string, 0, len(moves))
	for i, mv := range moves {
		san, err := b.Apply(mv)
		if err != nil {
			return Puzzle{}, fmt.Errorf("move %d %q: %w", i+1, mv, err)
		}
		canon = append(canon, san)
	}

	tags := make(map[string]string, len(g.tags))
	for k, v := range g.tags {
		tags[k] = v
	}
	return Puzzle{
		Name:  displayName(g.tags, n),
		FEN:   fen,
		Moves: canon,
		Tags:  tags,
	}, nil
}

func displayName(tags map[string]string, n int) string {
	if ev := strings.TrimSpace(tags["Event"]); ev != "" && ev != "?" {
		return ev
	}
	w, b := strings.TrimSpace(tags["White"]), strings.TrimSpace(tags["Black"])
	if w != "" && w != "?" && b != "" && b != "?" {
		return w + " - " + b
	}
	return fmt.Sprintf("Puzzle %d", n)
}
