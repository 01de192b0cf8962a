package generator

import (
	"strings"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/intent"
)

// Mode selects the fill strategy for a request.
type Mode string

const (
	ModeNormal       Mode = "NORMAL"
	ModeViral        Mode = "VIRAL"
	ModeFestival     Mode = "FESTIVAL"
	ModeSingleArtist Mode = "SINGLE_ARTIST"
	ModeArtistStyle  Mode = "ARTIST_STYLE"
	ModeUnderground  Mode = "UNDERGROUND"
)

var modes = []Mode{ModeNormal, ModeViral, ModeFestival, ModeSingleArtist, ModeArtistStyle, ModeUnderground}

// ParseMode parses a mode name. Case, dashes and spaces are ignored, so
// "artist-style" and "ARTIST_STYLE" are the same mode.
func ParseMode(s string) (Mode, bool) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	for _, m := range modes {
		if string(m) == key {
			return m, true
		}
	}
	return "", false
}

var (
	undergroundKeywords = []string{"underground", "indie", "obscure", "hidden gems", "lesser known", "deep cuts", "unknown artists", "unsigned"}
	viralKeywords       = map[string]bool{"viral": true, "tiktok": true, "trending": true, "top": true, "chart": true, "charts": true, "hits": true}
	styleMarkers        = map[string]bool{"like": true, "style": true, "songs": true, "playlist": true, "mix": true}
	stylePhrases        = []string{"style of", "in the style", "similar to", "sounds like"}
)

// genericWords are genre, mood and occasion words. A short prompt made only
// of these describes a sound rather than naming an artist.
var genericWords = map[string]bool{
	"jazz": true, "rock": true, "pop": true, "hip": true, "hop": true, "rap": true, "indie": true,
	"classical": true, "country": true, "blues": true, "metal": true, "punk": true, "soul": true,
	"funk": true, "disco": true, "house": true, "techno": true, "edm": true, "reggaeton": true,
	"reggae": true, "latin": true, "kpop": true, "k": true, "lofi": true, "lo": true, "fi": true,
	"ambient": true, "chill": true, "study": true, "workout": true, "gym": true, "party": true,
	"sad": true, "happy": true, "romantic": true, "love": true, "focus": true, "sleep": true,
	"summer": true, "winter": true, "road": true, "trip": true, "music": true, "vibes": true,
	"beats": true, "tracks": true, "oldies": true, "throwback": true, "mood": true, "acoustic": true,
	"instrumental": true, "dance": true, "electronic": true, "folk": true, "gospel": true, "trap": true,
	"drill": true, "grunge": true, "emo": true, "r": true, "b": true, "rnb": true, "afrobeats": true,
	"salsa": true, "bachata": true, "cumbia": true, "tango": true, "christmas": true,
	"halloween": true, "morning": true, "night": true, "rainy": true, "day": true, "dinner": true,
	"coffee": true, "relaxing": true, "energetic": true, "upbeat": true, "mellow": true,
	"80s": true, "90s": true, "70s": true, "60s": true, "00s": true, "2000s": true, "new": true,
	"old": true, "school": true, "best": true, "of": true, "the": true, "and": true, "for": true,
	"soft": true, "hard": true, "heavy": true, "deep": true, "dark": true, "wave": true,
	"synthwave": true, "shoegaze": true, "grime": true, "garage": true, "dubstep": true,
	"trance": true, "opera": true, "underground": true, "obscure": true, "piano": true, "guitar": true, "cinematic": true, "epic": true,
}

// Classify maps a request to a generation mode. It is pure: the same
// intent and prompt always give the same mode. The first matching rule wins.
func Classify(in *intent.Intent, prompt string) Mode {
	if in == nil {
		in = &intent.Intent{}
	}
	norm := catalog.NormalizeName(prompt)
	padded := " " + norm + " "
	words := strings.Fields(norm)

	if m, ok := ParseMode(in.ModeHint); ok {
		return m
	}

	if in.Context == intent.ContextUnderground {
		if containsAny(padded, undergroundKeywords) || len(in.AllowedArtists) > 0 {
			return ModeUnderground
		}
	}

	_, festivalNamed := intent.DetectFestival(prompt)
	festivalNamed = festivalNamed || in.Festival != ""

	for _, w := range words {
		if viralKeywords[w] {
			return ModeViral
		}
	}
	if !festivalNamed && intent.ExtractYear(prompt) >= 2024 {
		return ModeViral
	}

	if festivalNamed {
		return ModeFestival
	}

	if isArtistName(words) {
		return ModeSingleArtist
	}

	for _, w := range words {
		if w == "like" || w == "as" {
			return ModeArtistStyle
		}
	}
	if containsAny(padded, stylePhrases) {
		return ModeArtistStyle
	}

	return ModeNormal
}

// isArtistName reports whether a prompt of one to three words reads as a
// bare artist name.
func isArtistName(words []string) bool {
	if len(words) == 0 || len(words) > 3 {
		return false
	}
	generic := 0
	for _, w := range words {
		if styleMarkers[w] {
			return false
		}
		if genericWords[w] || isNumber(w) {
			generic++
		}
	}
	return generic < len(words)
}

func containsAny(padded string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func isNumber(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
