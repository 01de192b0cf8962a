package generator

import (
	"math"

	"github.com/jfmyers9/crate/internal/catalog"
)

// Unlimited marks a cap with no ceiling.
const Unlimited = -1

const (
	minNonPriorityCap = 5
	maxNonPriorityCap = 9

	// priorityFloor is the smallest per-artist allowance for a named artist.
	priorityFloor = 3
)

// Caps are the per-artist ceilings for one request. A cap of 0 rejects every
// track by that artist; Unlimited accepts any number.
type Caps struct {
	Priority    int // artists the user named
	NonPriority int // everyone else
	Only        int // artists on an "only these artists" list
}

// Special carries the directives that override the normal caps.
type Special struct {
	OnlyArtists []string // normalized names
	Exclusion   *Exclusion
}

// isOnly reports whether artist (normalized) is on the only-list.
func (s Special) isOnly(artist string) bool {
	for _, o := range s.OnlyArtists {
		if catalog.NamesMatch(artist, o) {
			return true
		}
	}
	return false
}

// Verdict is the outcome of an admission check.
type Verdict string

const (
	VerdictOK             Verdict = "ok"
	VerdictExcludedArtist Verdict = "excluded_artist"
	VerdictNotOnlyArtist  Verdict = "not_only_artist"
	VerdictCapZero        Verdict = "cap_zero"
	VerdictCapExceeded    Verdict = "cap_exceeded"

	VerdictDuplicate    Verdict = "duplicate"
	VerdictExcludedTerm Verdict = "excluded_term"
	VerdictNotCredited  Verdict = "not_credited"
	VerdictWrongArtist  Verdict = "wrong_artist"
	VerdictTargetFull   Verdict = "target_reached"
)

// ComputeCaps derives the caps for a request of target tracks with
// priorityCount named artists.
//
// The non-priority cap grows linearly from 5 at 50 tracks to 9 at 200.
// Priority artists get twice that, derated so that all of them together
// take at most half of the target (60% with more than three of them), but
// never less than three tracks each.
func ComputeCaps(target, priorityCount int, special Special) Caps {
	nonPriority := int(math.Round(5 + float64(target-50)*4/150))
	if nonPriority < minNonPriorityCap {
		nonPriority = minNonPriorityCap
	}
	if nonPriority > maxNonPriorityCap {
		nonPriority = maxNonPriorityCap
	}

	caps := Caps{
		Priority:    nonPriority,
		NonPriority: nonPriority,
	}

	if priorityCount > 0 {
		share := priorityShare(priorityCount)
		perArtist := int(math.Floor(float64(target) * share / float64(priorityCount)))
		if perArtist < priorityFloor {
			perArtist = priorityFloor
		}
		caps.Priority = nonPriority * 2
		if perArtist < caps.Priority {
			caps.Priority = perArtist
		}
	}

	if n := len(special.OnlyArtists); n > 0 {
		if n > 1 {
			caps.Only = int(math.Ceil(float64(target) / float64(n)))
		} else {
			caps.Only = Unlimited
		}
		caps.NonPriority = 0
	}

	return caps
}

// priorityShare is the fraction of the target reserved for named artists.
func priorityShare(count int) float64 {
	if count > 3 {
		return 0.6
	}
	return 0.5
}

// CheckCap decides whether track may be added given the current counters.
// Exclusion is checked before the only-list, so an artist on both lists is
// rejected. Counts are by primary artist.
func CheckCap(track catalog.Track, counters Counters, caps Caps, isPriority bool, special Special) Verdict {
	if special.Exclusion.BannedArtist(track) {
		return VerdictExcludedArtist
	}

	primary := catalog.NormalizeName(track.PrimaryArtist())

	var limit int
	switch {
	case len(special.OnlyArtists) > 0:
		if !special.isOnly(primary) {
			return VerdictNotOnlyArtist
		}
		limit = caps.Only
	case isPriority:
		limit = caps.Priority
	default:
		limit = caps.NonPriority
	}

	if limit == 0 {
		return VerdictCapZero
	}
	if limit != Unlimited && counters[primary] >= limit {
		return VerdictCapExceeded
	}
	return VerdictOK
}
