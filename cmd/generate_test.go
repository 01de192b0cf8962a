package cmd

import (
	"bytes"
	"strings"
	"testing"
	"text/template"

	"github.com/mattn/go-runewidth"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/generator"
)

func TestPadToWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{name: "disabled", input: "So What", width: 0, expected: "So What"},
		{name: "negative width", input: "So What", width: -4, expected: "So What"},
		{name: "pad", input: "Naima", width: 8, expected: "Naima   "},
		{name: "exact", input: "Naima", width: 5, expected: "Naima"},
		{name: "truncate", input: "Miles Davis - So What", width: 12, expected: "Miles Dav..."},
		{name: "tiny width", input: "Blue in Green", width: 2, expected: ".."},
		{name: "wide runes padded", input: "東京事変", width: 10, expected: "東京事変  "},
		{name: "wide runes truncated", input: "東京事変 - 群青日和", width: 10, expected: "東京事... "},
		{name: "empty", input: "", width: 3, expected: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := padToWidth(tt.input, tt.width)
			if result != tt.expected {
				t.Errorf("padToWidth(%q, %d) = %q, expected %q",
					tt.input, tt.width, result, tt.expected)
			}
			if tt.width > 0 {
				if w := runewidth.StringWidth(result); w != tt.width {
					t.Errorf("padToWidth(%q, %d) produced width %d", tt.input, tt.width, w)
				}
			}
		})
	}
}

func TestRenderTracks(t *testing.T) {
	tracks := []catalog.Track{
		{ID: "t1", Title: "Kill Bill", Artists: []string{"SZA"}, Popularity: 90},
		{ID: "t2", Title: "Rich Flex", Artists: []string{"Drake", "21 Savage"}},
	}

	tests := []struct {
		name   string
		format string
		width  int
		want   []string
	}{
		{
			name:   "default format",
			format: "{{.Artist}} - {{.Title}}",
			want:   []string{"SZA - Kill Bill", "Drake - Rich Flex"},
		},
		{
			name:   "index and all artists",
			format: "{{.Index}}. {{.Artists}} / {{.ID}}",
			want:   []string{"1. SZA / t1", "2. Drake, 21 Savage / t2"},
		},
		{
			name:   "fixed width",
			format: "{{.Title}}",
			width:  6,
			want:   []string{"Kil...", "Ric..."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := template.Must(template.New("output").Parse(tt.format))
			var buf bytes.Buffer
			if err := renderTracks(&buf, tracks, tmpl, tt.width); err != nil {
				t.Fatalf("renderTracks() error = %v", err)
			}
			got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("lines = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderTracksTemplateError(t *testing.T) {
	tmpl := template.Must(template.New("output").Parse("{{.Missing}}"))
	var buf bytes.Buffer
	err := renderTracks(&buf, []catalog.Track{{ID: "t1"}}, tmpl, 0)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestDescribeEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   generator.Event
		want string
	}{
		{
			name: "start",
			ev:   generator.Event{Name: generator.EventLLMStart, Data: generator.LLMStart{Message: "Interpreting prompt"}},
			want: "Interpreting prompt",
		},
		{
			name: "chunk",
			ev:   generator.Event{Name: generator.EventSpotifyChunk, Data: generator.SpotifyChunk{TotalSoFar: 10, Target: 40, Progress: 25}},
			want: "  tracks: 10/40 (25%)",
		},
		{
			name: "partial done",
			ev:   generator.Event{Name: generator.EventDone, Data: generator.Done{TotalSoFar: 12, Partial: true, Reason: "deadline_exceeded", Duration: 1500}},
			want: "Done: 12 tracks in 1.5s (partial: deadline_exceeded)",
		},
		{
			name: "error",
			ev:   generator.Event{Name: generator.EventError, Data: generator.ErrorData{Error: "No tracks found"}},
			want: "Error: No tracks found",
		},
		{
			name: "heartbeat is silent",
			ev:   generator.Event{Name: generator.EventHeartbeat, Data: generator.Heartbeat{Timestamp: 1}},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeEvent(tt.ev); got != tt.want {
				t.Errorf("describeEvent() = %q, want %q", got, tt.want)
			}
		})
	}
}
