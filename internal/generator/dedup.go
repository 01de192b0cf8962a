package generator

import "github.com/jfmyers9/crate/internal/catalog"

// UsedSet holds the ids emitted in one request. It belongs to a single
// request and is never shared between requests.
type UsedSet map[string]struct{}

// Has reports whether id was already emitted.
func (u UsedSet) Has(id string) bool {
	_, ok := u[id]
	return ok
}

// Add marks id as emitted.
func (u UsedSet) Add(id string) {
	u[id] = struct{}{}
}

// DedupeByID keeps the first occurrence of every id, preserving order.
func DedupeByID(tracks []catalog.Track) []catalog.Track {
	seen := make(map[string]bool, len(tracks))
	out := make([]catalog.Track, 0, len(tracks))
	for _, t := range tracks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}

// DedupeAgainstUsed drops tracks whose id is already in used.
func DedupeAgainstUsed(tracks []catalog.Track, used UsedSet) []catalog.Track {
	out := make([]catalog.Track, 0, len(tracks))
	for _, t := range tracks {
		if !used.Has(t.ID) {
			out = append(out, t)
		}
	}
	return out
}
