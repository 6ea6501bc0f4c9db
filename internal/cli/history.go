package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/texbake/pkg/history"
)

// historyCommand creates the history command and its subcommands.
func (c *CLI) historyCommand() *cobra.Command {
	var (
		dbPath string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded bake runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(historyPath(dbPath), func(s *history.Store) error {
				return listRuns(cmd.Context(), s, limit)
			})
		},
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "history ledger path (default $XDG_DATA_HOME/texbake/history.db)")
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "number of runs to list")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and the files it produced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(historyPath(dbPath), func(s *history.Store) error {
				r, err := s.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printRun(r)
				return nil
			})
		},
	})

	var keep int
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(historyPath(dbPath), func(s *history.Store) error {
				n, err := s.Prune(cmd.Context(), keep)
				if err != nil {
					return err
				}
				c.Logger.Debug("pruned history", "removed", n, "kept", keep)
				printSuccess("Removed %d runs", n)
				return nil
			})
		},
	}
	prune.Flags().IntVar(&keep, "keep", defaultHistoryLimit, "number of runs to keep")
	cmd.AddCommand(prune)

	return cmd
}

func withStore(path string, fn func(*history.Store) error) error {
	s, err := history.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func listRuns(ctx context.Context, s *history.Store, limit int) error {
	runs, err := s.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printInfo("No runs recorded")
		return nil
	}
	fmt.Fprintln(out, runTable(runs).Render())
	for _, r := range runs {
		if r.Status == history.StatusFailed {
			printError("%s: %s", r.ID, r.Error)
		}
	}
	return nil
}

// runTable lays out runs one per row. Failed runs are drawn in red.
func runTable(runs []history.Run) *table.Table {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.ID,
			r.Started.Local().Format(time.DateTime),
			r.Mode,
			strings.Join(r.Objects, ", "),
			r.Duration.Round(time.Millisecond).String(),
			r.Status,
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cell := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Run", "Started", "Mode", "Objects", "Duration", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if row < 0 || row >= len(runs) {
				return cell
			}
			switch {
			case runs[row].Status == history.StatusFailed:
				return cell.Foreground(colorRed)
			case col == 0:
				return cell.Foreground(colorCyan)
			case col == 4:
				return cell.Foreground(colorDim)
			}
			return cell
		})
}

func printRun(r *history.Run) {
	fmt.Fprintln(out, StyleTitle.Render("Run "+r.ID))
	printKeyValue("Status", r.Status)
	printKeyValue("Started", r.Started.Local().Format(time.DateTime))
	printKeyValue("Duration", r.Duration.Round(time.Millisecond).String())
	printKeyValue("Config", r.ConfigPath)
	printKeyValue("Scene", r.SceneFile)
	printKeyValue("Mode", r.Mode)
	printKeyValue("Objects", strings.Join(r.Objects, ", "))
	if r.Error != "" {
		printKeyValue("Error", r.Error)
	}
	if len(r.Files) > 0 {
		printNewline()
		for _, f := range r.Files {
			printFile(f)
		}
	}
}
