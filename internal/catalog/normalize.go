package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jfmyers9/crate/pkg/spotify"
)

// NormalizeName folds s for comparison: diacritics removed, lower case,
// punctuation turned into spaces and whitespace collapsed.
//
//	NormalizeName("  Beyoncé & JAY-Z ") == "beyonce jay z"
func NormalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// minMatchLen is the shortest name allowed to match by containment.
const minMatchLen = 4

// NamesMatch compares two normalized artist names. Besides equality, one may
// contain the other on word boundaries, as long as the shorter one has at
// least minMatchLen characters. "bad bunny" matches "bad bunny jhay cortez"
// while "ana" never matches "anabel".
func NamesMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) < minMatchLen {
		return false
	}
	return strings.Contains(" "+long+" ", " "+short+" ")
}

// FromSpotify converts a Web API track into a Track. It reports false for
// local files and records without an id or title.
func FromSpotify(t spotify.Track) (Track, bool) {
	if t.ID == "" || t.IsLocal {
		return Track{}, false
	}
	title := strings.TrimSpace(t.Name)
	if title == "" {
		return Track{}, false
	}

	out := Track{
		ID:         t.ID,
		Title:      title,
		Artists:    make([]string, 0, len(t.Artists)),
		Popularity: t.Popularity,
	}
	ids := make([]string, 0, len(t.Artists))
	hasIDs := false
	for _, a := range t.Artists {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		out.Artists = append(out.Artists, name)
		ids = append(ids, a.ID)
		if a.ID != "" {
			hasIDs = true
		}
	}
	if hasIDs {
		out.ArtistIDs = ids
	}
	return out, true
}

// fromSpotifyAll converts and drops unusable records.
func fromSpotifyAll(in []spotify.Track) []Track {
	out := make([]Track, 0, len(in))
	for _, t := range in {
		if tr, ok := FromSpotify(t); ok {
			out = append(out, tr)
		}
	}
	return out
}
