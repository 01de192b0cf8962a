/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/config"
	"github.com/jfmyers9/crate/internal/generator"
	"github.com/jfmyers9/crate/internal/history"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate a playlist from a prompt",
	Long: `Generate a playlist from a free-text prompt and print its tracks.

Progress is written to stderr, tracks to stdout, one per line. The line
format can be customized in ~/.config/crate/config.yaml using a Go
template. Available fields: .Index, .Title, .Artist, .Artists, .ID, .Popularity

Examples:
  crate generate "late night jazz" -n 30
  crate generate "Coachella 2024" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().IntP("tracks", "n", 0, "Number of tracks (0=configured default)")
	generateCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	generateCmd.Flags().IntP("width", "w", 0, "Fixed output width per line (0=disabled)")
	generateCmd.Flags().Bool("json", false, "Print the result as JSON")
	generateCmd.Flags().BoolP("quiet", "q", false, "Do not print progress")
	generateCmd.Flags().Bool("no-history", false, "Do not record the run")
}

// trackLine is the data available to the output template
type trackLine struct {
	Index      int
	Title      string
	Artist     string
	Artists    string
	ID         string
	Popularity int
}

// generateOutput is the --json representation of a run
type generateOutput struct {
	ID       string          `json:"id"`
	Prompt   string          `json:"prompt"`
	Mode     string          `json:"mode"`
	Target   int             `json:"target"`
	Partial  bool            `json:"partial"`
	Reason   string          `json:"reason,omitempty"`
	Duration int64           `json:"durationMs"`
	Tracks   []catalog.Track `json:"tracks"`
}

func runGenerate(cmd *cobra.Command, args []string) error {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		return fmt.Errorf("prompt is required")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	formatFlag, _ := cmd.Flags().GetString("format")
	if formatFlag != "" {
		cfg.OutputFormat = formatFlag
	}
	tmpl, err := template.New("output").Parse(cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}

	n, _ := cmd.Flags().GetInt("tracks")
	width, _ := cmd.Flags().GetInt("width")
	asJSON, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	logger := setupLogger(logFile, logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := buildComponents(ctx, cfg, "", logger)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	var em generator.Emitter = generator.EmitterFunc(func(ev generator.Event) {
		if line := describeEvent(ev); line != "" {
			fmt.Fprintln(os.Stderr, line)
		}
	})
	if quiet {
		em = nil
	}

	res, err := c.engine.Generate(ctx, generator.Request{
		Prompt:       prompt,
		TargetTracks: c.engine.Target(n),
	}, em)
	if err != nil {
		return fmt.Errorf("failed to generate playlist: %w", err)
	}

	if !noHistory {
		if err := c.history.SaveRun(context.Background(), history.Run{
			ID:       res.ID,
			Prompt:   res.Prompt,
			Mode:     string(res.Mode),
			Target:   res.Target,
			Partial:  res.Partial,
			Reason:   res.Reason,
			Duration: res.Duration,
			Tracks:   res.Tracks,
		}); err != nil {
			logger.Warn().Err(err).Msg("Failed to record run")
		}
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(generateOutput{
			ID:       res.ID,
			Prompt:   res.Prompt,
			Mode:     string(res.Mode),
			Target:   res.Target,
			Partial:  res.Partial,
			Reason:   res.Reason,
			Duration: res.Duration.Milliseconds(),
			Tracks:   res.Tracks,
		})
	}

	return renderTracks(os.Stdout, res.Tracks, tmpl, width)
}

// renderTracks writes one formatted line per track
func renderTracks(w io.Writer, tracks []catalog.Track, tmpl *template.Template, width int) error {
	for i, t := range tracks {
		line, err := formatTrack(tmpl, trackLine{
			Index:      i + 1,
			Title:      t.Title,
			Artist:     t.PrimaryArtist(),
			Artists:    strings.Join(t.Artists, ", "),
			ID:         t.ID,
			Popularity: t.Popularity,
		})
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		if _, err := fmt.Fprintln(w, padToWidth(line, width)); err != nil {
			return err
		}
	}
	return nil
}

// formatTrack applies the template to the track data
func formatTrack(tmpl *template.Template, line trackLine) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, line); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}
	return buf.String(), nil
}

// describeEvent renders a progress line for an event, or "" for events
// that are not worth printing.
func describeEvent(ev generator.Event) string {
	switch d := ev.Data.(type) {
	case generator.LLMStart:
		return d.Message
	case generator.LLMChunk:
		return fmt.Sprintf("  seeds: %d/%d (%d%%)", d.TotalSoFar, d.Target, d.Progress)
	case generator.SpotifyStart:
		return fmt.Sprintf("%s (attempt %d, %d remaining)", d.Message, d.Attempt, d.Remaining)
	case generator.SpotifyChunk:
		return fmt.Sprintf("  tracks: %d/%d (%d%%)", d.TotalSoFar, d.Target, d.Progress)
	case generator.Done:
		msg := fmt.Sprintf("Done: %d tracks in %s", d.TotalSoFar, (time.Duration(d.Duration) * time.Millisecond).Round(time.Millisecond))
		if d.Partial {
			msg += fmt.Sprintf(" (partial: %s)", d.Reason)
		}
		return msg
	case generator.ErrorData:
		return "Error: " + d.Error
	}
	return ""
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
// If text is shorter than width, pads with spaces.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text // no padding requested
	}

	currentWidth := runewidth.StringWidth(text)

	if currentWidth > width {
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			return runewidth.Truncate(ellipsis, width, "")
		}

		result := runewidth.Truncate(text, width-ellipsisWidth, "") + ellipsis

		// Wide runes can leave the result one column short
		if resultWidth := runewidth.StringWidth(result); resultWidth < width {
			return result + strings.Repeat(" ", width-resultWidth)
		}
		return result
	} else if currentWidth < width {
		return text + strings.Repeat(" ", width-currentWidth)
	}

	return text
}
