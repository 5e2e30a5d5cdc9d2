package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tinytactics/internal/mode"
	"tinytactics/internal/puzzle"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file]",
		Short: "List puzzle files, or the puzzles and saved progress of one file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if len(args) == 0 {
				names, err := a.library.List()
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "FILE\tPUZZLES\tPROGRESS")
				for _, name := range names {
					count := "?"
					if src, err := a.library.Load(name); err == nil {
						count = fmt.Sprint(src.Len())
					}
					fmt.Fprintf(w, "%s\t%s\t%v\n", name, count, a.progress.HasProgress(ctx, puzzle.SourceID(name)))
				}
				return nil
			}

			src, err := a.library.Load(args[0])
			if err != nil {
				return err
			}
			cards, err := a.progress.LoadCards(ctx, src.ID)
			if err != nil {
				return err
			}
			now := time.Now()
			fmt.Fprintln(w, "#\tNAME\tMOVES\tDUE\tINTERVAL")
			for i, p := range src.Puzzles {
				due, interval := "new", "-"
				if c, ok := cards[i]; ok {
					due = fmt.Sprint(c.Due(now))
					interval = fmt.Sprintf("%dd", c.IntervalDays)
				}
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", i+1, p.Name, p.PlayerMoves(), due, interval)
			}
			if res, ok, err := a.progress.LoadResume(ctx, src.ID); err == nil && ok {
				fmt.Fprintf(w, "\nresume:\t%s at %d/%d\tsolved %d\terrors %d\n",
					res.Mode, res.Cursor+1, len(res.Order), res.Solved, res.Errors)
			}
			if n, ok, err := a.progress.LoadSetStart(ctx, src.ID); err == nil && ok {
				fmt.Fprintf(w, "level set start:\t%d\n", n)
			}
			return nil
		},
	}
}

func newModesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List training modes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "ID\tNAME\tFAMILY\tFEATURES")
			for _, d := range a.registry.Definitions() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Family, features(d))
			}
			return nil
		},
	}
}

func features(d mode.Definition) string {
	var out []string
	if d.HasTimer {
		if d.CountUp {
			out = append(out, "stopwatch")
		} else {
			out = append(out, "clock "+d.TimeLimit.String())
		}
	}
	if d.HasLives {
		out = append(out, fmt.Sprintf("%d lives", d.Lives))
	}
	if d.HasHints {
		out = append(out, "hints")
	}
	if d.HasLevels {
		out = append(out, fmt.Sprintf("levels of %d", d.PuzzlesPerLevel))
	}
	if d.HasCombo {
		out = append(out, "combo")
	}
	if d.Loop {
		out = append(out, "loop")
	}
	if d.Shuffle {
		out = append(out, "shuffle")
	}
	if d.Backward {
		out = append(out, "backward")
	}
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, ", ")
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <file>",
		Short: "Delete saved progress for a puzzle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := puzzle.CheckName(args[0]); err != nil {
				return err
			}
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.progress.Clear(cmd.Context(), puzzle.SourceID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "progress for %s cleared\n", args[0])
			return nil
		},
	}
}
