package generator

import (
	"strings"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/intent"
)

// Exclusion rejects tracks by banned artists or with banned title terms.
// A nil *Exclusion allows everything.
type Exclusion struct {
	artists []string
	terms   []string
}

// NewExclusion builds an Exclusion from the intent's exclusion lists. It
// returns nil when both lists are empty.
func NewExclusion(ex intent.Exclusions) *Exclusion {
	e := &Exclusion{}
	for _, a := range ex.BannedArtists {
		if n := catalog.NormalizeName(a); n != "" {
			e.artists = append(e.artists, n)
		}
	}
	for _, t := range ex.BannedTerms {
		if n := catalog.NormalizeName(t); n != "" {
			e.terms = append(e.terms, n)
		}
	}
	if len(e.artists) == 0 && len(e.terms) == 0 {
		return nil
	}
	return e
}

// Allows reports whether track passes both the artist and the term check.
func (e *Exclusion) Allows(track catalog.Track) bool {
	return !e.BannedArtist(track) && !e.BannedTerm(track)
}

// BannedArtist reports whether any credited artist matches a banned artist.
func (e *Exclusion) BannedArtist(track catalog.Track) bool {
	if e == nil || len(e.artists) == 0 {
		return false
	}
	for _, name := range track.Artists {
		n := catalog.NormalizeName(name)
		for _, banned := range e.artists {
			if catalog.NamesMatch(n, banned) {
				return true
			}
		}
	}
	return false
}

// BannedTerm reports whether the title contains a banned term.
func (e *Exclusion) BannedTerm(track catalog.Track) bool {
	if e == nil || len(e.terms) == 0 {
		return false
	}
	title := catalog.NormalizeName(track.Title)
	for _, term := range e.terms {
		if strings.Contains(title, term) {
			return true
		}
	}
	return false
}

// BannedName reports whether a bare artist name is banned.
func (e *Exclusion) BannedName(name string) bool {
	return e.BannedArtist(catalog.Track{Artists: []string{name}})
}
