package intent

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestDetectFestival(t *testing.T) {
	tests := []struct {
		prompt string
		want   Festival
		wantOK bool
	}{
		{"Coachella 2024", Festival{Name: "Coachella", Year: 2024}, true},
		{"best of lolla", Festival{Name: "Lollapalooza"}, true},
		{"Primavera Sound 2023 lineup", Festival{Name: "Primavera Sound", Year: 2023}, true},
		{"EDC Las Vegas", Festival{Name: "Electric Daisy Carnival"}, true},
		{"Rock in Rio 1985", Festival{Name: "Rock in Rio", Year: 1985}, true},
		{"jazz", Festival{}, false},
		{"top hits 2024", Festival{}, false},
		{"edcb", Festival{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			got, ok := DetectFestival(tt.prompt)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("DetectFestival(%q) = %+v, %v; want %+v, %v", tt.prompt, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestExtractYear(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"viral 2024", 2024},
		{"80s hits from 1985 and 1986", 1985},
		{"12345", 0},
		{"no year here", 0},
		{"track2024", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExtractYear(tt.in); got != tt.want {
				t.Errorf("ExtractYear(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalQuery(t *testing.T) {
	var nilCanon *Canonical
	if nilCanon.Query() != "" {
		t.Error("expected empty query for nil canonical")
	}
	if got := (&Canonical{BaseQuery: "coachella", Year: 2024}).Query(); got != "coachella 2024" {
		t.Errorf("unexpected query %q", got)
	}
	if got := (&Canonical{BaseQuery: "viral hits"}).Query(); got != "viral hits" {
		t.Errorf("unexpected query %q", got)
	}
}

func TestIntentClean(t *testing.T) {
	in := &Intent{
		ModeHint:        " festival ",
		Context:         " Underground ",
		SeedArtists:     []string{"Bad Bunny", " bad bunny ", "", "Rosalía"},
		PriorityArtists: []string{"Rosalia", "Rosalía"},
		SeedTracks: []SeedTrack{
			{Title: "Flowers", Artist: "Miley Cyrus"},
			{Title: " flowers ", Artist: "miley cyrus"},
			{Title: "", Artist: "Nobody"},
			{Title: "Flowers", Artist: "Lauren Spencer Smith"},
		},
		Exclusions: Exclusions{BannedTerms: []string{"Remix", "remix", " "}},
		Canonical:  &Canonical{BaseQuery: "  "},
	}
	in.Clean("Coachella 2024 please")

	if in.ModeHint != "festival" || in.Context != "underground" {
		t.Errorf("unexpected hint/context %q/%q", in.ModeHint, in.Context)
	}
	if want := []string{"Bad Bunny", "Rosalía"}; !reflect.DeepEqual(in.SeedArtists, want) {
		t.Errorf("SeedArtists = %v, want %v", in.SeedArtists, want)
	}
	if len(in.PriorityArtists) != 1 {
		t.Errorf("expected diacritic duplicates to collapse, got %v", in.PriorityArtists)
	}
	if len(in.SeedTracks) != 2 {
		t.Errorf("expected 2 seed tracks, got %+v", in.SeedTracks)
	}
	if want := []string{"Remix"}; !reflect.DeepEqual(in.Exclusions.BannedTerms, want) {
		t.Errorf("BannedTerms = %v, want %v", in.Exclusions.BannedTerms, want)
	}
	if in.Festival != "Coachella" {
		t.Errorf("expected festival to be detected, got %q", in.Festival)
	}
	if in.Canonical == nil || in.Canonical.Query() != "coachella 2024" {
		t.Errorf("expected canonical coachella 2024, got %+v", in.Canonical)
	}
}

func TestPromptResolver(t *testing.T) {
	tests := []struct {
		prompt   string
		priority []string
		only     []string
		banned   []string
		queries  []string
	}{
		{
			prompt:   "songs like Bad Bunny and Rosalía",
			priority: []string{"Bad Bunny", "Rosalía"},
			queries:  []string{"songs like Bad Bunny and Rosalía"},
		},
		{
			prompt:  "only Drake songs",
			only:    []string{"Drake"},
			queries: []string{"only Drake songs"},
		},
		{
			prompt:  "reggaeton without Bad Bunny, J Balvin",
			banned:  []string{"Bad Bunny", "J Balvin"},
			queries: []string{"reggaeton"},
		},
		{
			prompt:  "jazz",
			queries: []string{"jazz"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			in, err := PromptResolver{}.Resolve(context.Background(), tt.prompt, 30)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			check := func(field string, got, want []string) {
				t.Helper()
				if len(got) == 0 && len(want) == 0 {
					return
				}
				if !reflect.DeepEqual(got, want) {
					t.Errorf("%s = %v, want %v", field, got, want)
				}
			}
			check("PriorityArtists", in.PriorityArtists, tt.priority)
			check("OnlyArtists", in.OnlyArtists, tt.only)
			check("BannedArtists", in.Exclusions.BannedArtists, tt.banned)
			check("SearchQueries", in.SearchQueries, tt.queries)
		})
	}

	if _, err := (PromptResolver{}).Resolve(context.Background(), "   ", 10); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("expected ErrEmptyPrompt, got %v", err)
	}
}
