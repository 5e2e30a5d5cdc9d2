package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"tinytactics/internal/arbiter"
	"tinytactics/internal/mode"
	"tinytactics/internal/session"
)

func newPlayCmd(opts *rootOptions) *cobra.Command {
	var (
		modeID string
		resume bool
	)
	cmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Train on a puzzle file in the terminal",
		Long: `Train on a puzzle file in the terminal.

Type moves in SAN or UCI. Other commands: hint, stop, reset,
mode <id> [!], state, quit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			src, err := a.library.Load(args[0])
			if err != nil {
				return err
			}
			t := &terminal{out: cmd.OutOrStdout()}
			s, err := session.New(session.Options{
				Source:       src,
				Registry:     a.registry,
				Mode:         mode.ID(modeID),
				Resume:       resume,
				Presenter:    t,
				Progress:     a.progress,
				Recorder:     a.backend,
				SRS:          a.srsConfig(),
				Seed:         a.cfg.Puzzles.Seed,
				TickInterval: a.cfg.Hub.TickInterval,
				Logger:       a.log,
			})
			if err != nil {
				return err
			}
			defer s.Close()
			return play(cmd.Context(), s, cmd.InOrStdin(), t)
		},
	}
	cmd.Flags().StringVarP(&modeID, "mode", "m", string(mode.Standard), "training mode")
	cmd.Flags().BoolVar(&resume, "resume", true, "continue saved progress")
	return cmd
}

// play reads commands until input ends, the player quits or the run ends.
func play(ctx context.Context, s *session.Session, in io.Reader, t *terminal) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		var err error
		switch strings.ToLower(fields[0]) {
		case "quit", "exit":
			return stopQuietly(ctx, s)
		case "stop":
			err = s.Stop(ctx)
		case "reset":
			err = s.Reset(ctx)
		case "state":
			t.Present(s.State())
		case "hint":
			var uci string
			if uci, err = s.Hint(ctx); err == nil {
				t.printf("hint: %s\n", uci)
			}
		case "mode":
			if len(fields) < 2 {
				t.printf("usage: mode <id> [!]\n")
				continue
			}
			confirm := len(fields) > 2 && fields[2] == "!"
			err = s.SwitchMode(ctx, mode.ID(fields[1]), confirm)
			if errors.Is(err, session.ErrConfirmRequired) {
				t.printf("switching discards this run, repeat with: mode %s !\n", fields[1])
				continue
			}
		default:
			var res session.MoveResult
			res, err = s.Move(ctx, line)
			if err == nil {
				t.move(res)
			}
		}
		if err != nil {
			if errors.Is(err, arbiter.ErrIllegalMove) {
				t.printf("illegal move: %s\n", line)
				continue
			}
			t.printf("error: %v\n", err)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return stopQuietly(ctx, s)
}

func stopQuietly(ctx context.Context, s *session.Session) error {
	if err := s.Stop(ctx); err != nil && !errors.Is(err, session.ErrSessionEnded) {
		return err
	}
	return nil
}

// terminal prints snapshots as plain text. Ticks come from the timer
// goroutine, so writes are serialised.
type terminal struct {
	mu  sync.Mutex
	out io.Writer
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *terminal) move(res session.MoveResult) {
	switch res.Outcome {
	case session.OutcomeWrong:
		t.printf("%s is not it, try again\n", res.SAN)
	case session.OutcomeCorrect:
		if res.Reply != "" {
			t.printf("%s, opponent plays %s\n", res.SAN, res.Reply)
		} else {
			t.printf("%s\n", res.SAN)
		}
	}
}

func (t *terminal) Present(s session.Snapshot) {
	st := s.State
	switch s.Kind {
	case session.KindPuzzle, session.KindMode:
		t.printf("\n[%s] %d/%d %s\n%s\n%s to move | solved %d errors %d%s\n",
			s.ModeName, s.Position+1, s.Total, s.PuzzleName, s.FEN, side(s.Turn),
			st.TotalSolved, st.TotalErrors, extras(st))
	case session.KindRound:
		t.printf("round done, now from %s\n", s.FEN)
	case session.KindTick:
		if st.TimeRemaining > 0 && st.TimeRemaining%(10*time.Second) < time.Second {
			t.printf("%s left\n", st.TimeRemaining.Round(time.Second))
		}
	case session.KindEnded:
		t.printf("\nrun ended (%s): solved %d, errors %d, best combo %d\n",
			s.EndReason, st.TotalSolved, st.TotalErrors, st.MaxCombo)
	}
}

func side(turn string) string {
	if turn == "b" {
		return "black"
	}
	return "white"
}

func extras(st mode.State) string {
	var b strings.Builder
	if st.Phase != mode.PhaseNone {
		fmt.Fprintf(&b, " | level %d", st.Level)
	}
	if st.Lives > 0 {
		fmt.Fprintf(&b, " | lives %d", st.Lives)
	}
	if st.TimeRemaining > 0 {
		fmt.Fprintf(&b, " | %s left", st.TimeRemaining.Round(time.Second))
	}
	if st.Combo > 1 {
		fmt.Fprintf(&b, " | combo %d", st.Combo)
	}
	return b.String()
}
