package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/crate/internal/config"
	"github.com/jfmyers9/crate/internal/history"
)

var (
	historyLimit   int
	historyDataDir string
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List generated playlists",
	Long: `List recently generated playlists, newest first.

With a run id, print the tracks of that run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to list")
	historyCmd.Flags().StringVar(&historyDataDir, "data-dir", "", "Data directory for the history database (default: ~/.local/share/crate)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbPath, err := historyPath(cfg, historyDataDir)
	if err != nil {
		return err
	}
	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	if len(args) == 1 {
		run, err := store.GetRun(ctx, args[0])
		if errors.Is(err, history.ErrNotFound) {
			return fmt.Errorf("no run with id %s", args[0])
		}
		if err != nil {
			return err
		}
		printRun(os.Stdout, run)
		return nil
	}

	runs, err := store.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}
	printRuns(os.Stdout, runs)
	return nil
}

const promptColumnWidth = 40

func printRuns(w io.Writer, runs []history.Run) {
	for _, run := range runs {
		status := fmt.Sprintf("%d/%d", run.TrackCount, run.Target)
		if run.Partial {
			status += " partial"
		}
		fmt.Fprintf(w, "%s  %s  %s  %-14s %s\n",
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
			padToWidth(run.Prompt, promptColumnWidth),
			padToWidth(run.Mode, 13),
			status,
			run.ID,
		)
	}
}

func printRun(w io.Writer, run *history.Run) {
	fmt.Fprintf(w, "%s\n", run.Prompt)
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", min(runewidth.StringWidth(run.Prompt), 72)))
	fmt.Fprintf(w, "Mode:     %s\n", run.Mode)
	fmt.Fprintf(w, "Tracks:   %d of %d\n", run.TrackCount, run.Target)
	if run.Partial {
		fmt.Fprintf(w, "Partial:  %s\n", run.Reason)
	}
	fmt.Fprintf(w, "Duration: %s\n", run.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Created:  %s\n\n", run.CreatedAt.Local().Format(time.RFC1123))

	for i, t := range run.Tracks {
		fmt.Fprintf(w, "%3d. %s - %s\n", i+1, strings.Join(t.Artists, ", "), t.Title)
	}
}
