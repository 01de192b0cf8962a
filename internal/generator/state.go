package generator

import (
	"context"
	"time"

	"github.com/jfmyers9/crate/internal/catalog"
)

// Counters maps a normalized primary artist name to the number of accepted
// tracks by that artist.
type Counters map[string]int

// Count returns the count for artist, normalizing the name first.
func (c Counters) Count(artist string) int {
	return c[catalog.NormalizeName(artist)]
}

// State is the mutable state of one request. It is owned by the goroutine
// running the request and never shared with another request.
type State struct {
	Target    int
	Tracks    []catalog.Track
	Used      UsedSet
	Counters  Counters
	Plan      *Plan
	Caps      Caps
	Special   Special
	StartedAt time.Time
	Deadline  time.Time

	// Rejections counts rejected candidates by verdict.
	Rejections map[Verdict]int

	priority map[string]bool // normalized names of named artists
	credit   string          // normalized artist every track must credit
	allowed  []string        // normalized primary artists, empty allows all
	pending  []catalog.Track
	onFlush  func([]catalog.Track)
}

// NewState creates the state for a request of target tracks.
func NewState(target int, caps Caps, special Special, startedAt, deadline time.Time) *State {
	return &State{
		Target:     target,
		Used:       make(UsedSet),
		Counters:   make(Counters),
		Caps:       caps,
		Special:    special,
		StartedAt:  startedAt,
		Deadline:   deadline,
		Rejections: make(map[Verdict]int),
		priority:   make(map[string]bool),
	}
}

// SetPriority marks artists as named artists, which use the priority cap.
func (s *State) SetPriority(artists ...string) {
	for _, a := range artists {
		if n := catalog.NormalizeName(a); n != "" {
			s.priority[n] = true
		}
	}
}

// RequireCredit restricts the whole request to tracks that credit artist in
// any position.
func (s *State) RequireCredit(artist string) {
	s.credit = catalog.NormalizeName(artist)
}

// RestrictTo limits the whole request to tracks whose primary artist is one
// of artists. Calling it with no usable names leaves the request open.
func (s *State) RestrictTo(artists ...string) {
	for _, a := range artists {
		if n := catalog.NormalizeName(a); n != "" {
			s.allowed = append(s.allowed, n)
		}
	}
}

// Allows reports whether the primary artist name passes the RestrictTo list.
func (s *State) Allows(name string) bool {
	if len(s.allowed) == 0 {
		return true
	}
	n := catalog.NormalizeName(name)
	for _, a := range s.allowed {
		if catalog.NamesMatch(n, a) {
			return true
		}
	}
	return false
}

// Remaining returns how many tracks are still missing.
func (s *State) Remaining() int {
	if n := s.Target - len(s.Tracks); n > 0 {
		return n
	}
	return 0
}

// Full reports whether the target is reached.
func (s *State) Full() bool {
	return len(s.Tracks) >= s.Target
}

// admitRule adjusts the cap check for one admission.
type admitRule struct {
	capOverride int  // when > 0, lowers the cap to this value
	ignoreCap   bool // accept over the cap; other checks still apply
	bucket      *Bucket
}

// Admit runs every check on track and accepts it when all pass.
func (s *State) Admit(track catalog.Track) Verdict {
	return s.admit(track, admitRule{})
}

// AdmitCapped admits track with the per-artist cap lowered to limit.
func (s *State) AdmitCapped(track catalog.Track, limit int) Verdict {
	return s.admit(track, admitRule{capOverride: limit})
}

// AdmitIgnoringCap admits track over its cap. Dedup, exclusions, the
// only-list, the RestrictTo list and credit requirements still apply.
func (s *State) AdmitIgnoringCap(track catalog.Track) Verdict {
	return s.admit(track, admitRule{ignoreCap: true})
}

// AdmitFor admits track on behalf of bucket b. The track must belong to b.
func (s *State) AdmitFor(track catalog.Track, b *Bucket) Verdict {
	if !BelongsTo(track, b) {
		s.Rejections[VerdictWrongArtist]++
		return VerdictWrongArtist
	}
	return s.admit(track, admitRule{bucket: b})
}

func (s *State) admit(track catalog.Track, rule admitRule) Verdict {
	v := s.check(track, rule)
	if v != VerdictOK {
		s.Rejections[v]++
		if v == VerdictCapExceeded {
			if b := s.Plan.BucketFor(track); b != nil {
				b.SkipsByCap++
			}
		}
		return v
	}

	s.Tracks = append(s.Tracks, track)
	s.Used.Add(track.ID)
	s.Counters[catalog.NormalizeName(track.PrimaryArtist())]++
	if b := s.Plan.BucketFor(track); b != nil {
		b.Current++
		if b == rule.bucket {
			b.Adds++
		}
	}
	s.pending = append(s.pending, track)
	return VerdictOK
}

func (s *State) check(track catalog.Track, rule admitRule) Verdict {
	if s.Full() {
		return VerdictTargetFull
	}
	if track.ID == "" || s.Used.Has(track.ID) {
		return VerdictDuplicate
	}
	if s.Special.Exclusion.BannedTerm(track) {
		return VerdictExcludedTerm
	}
	if s.Special.Exclusion.BannedArtist(track) {
		return VerdictExcludedArtist
	}
	if s.credit != "" && !s.credits(track) {
		return VerdictNotCredited
	}
	if !s.Allows(track.PrimaryArtist()) {
		return VerdictWrongArtist
	}

	caps := s.Caps
	if rule.capOverride > 0 {
		caps.Priority = lowerCap(caps.Priority, rule.capOverride)
		caps.NonPriority = lowerCap(caps.NonPriority, rule.capOverride)
		caps.Only = lowerCap(caps.Only, rule.capOverride)
	}

	v := CheckCap(track, s.Counters, caps, s.IsPriority(track), s.Special)
	if v == VerdictCapExceeded && rule.ignoreCap {
		return VerdictOK
	}
	return v
}

// IsPriority reports whether track's primary artist is a named artist.
func (s *State) IsPriority(track catalog.Track) bool {
	primary := catalog.NormalizeName(track.PrimaryArtist())
	if s.priority[primary] {
		return true
	}
	return s.Plan.BucketFor(track) != nil
}

func (s *State) credits(track catalog.Track) bool {
	for _, a := range track.Artists {
		if catalog.NamesMatch(catalog.NormalizeName(a), s.credit) {
			return true
		}
	}
	return false
}

// Flush hands the tracks accepted since the last flush to the flush hook.
func (s *State) Flush() {
	if len(s.pending) == 0 {
		return
	}
	batch := s.pending
	s.pending = nil
	if s.onFlush != nil {
		s.onFlush(batch)
	}
}

// setFlush installs the flush hook, flushing anything still pending to the
// previous hook first.
func (s *State) setFlush(fn func([]catalog.Track)) {
	s.Flush()
	s.onFlush = fn
}

// expired reports whether ctx is done.
func expired(ctx context.Context) bool {
	return ctx.Err() != nil
}

// lowerCap returns the smaller of c and limit. Unlimited counts as
// infinitely large and 0 stays 0.
func lowerCap(c, limit int) int {
	if c == 0 {
		return 0
	}
	if c == Unlimited || limit < c {
		return limit
	}
	return c
}
