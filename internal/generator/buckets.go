package generator

import (
	"math"

	"github.com/jfmyers9/crate/internal/catalog"
)

// rotationShare is the share of the target above which the buckets are
// filled round-robin instead of one after another.
const rotationShare = 0.6

// Bucket is the quota for one named artist.
type Bucket struct {
	ArtistID   string `json:"artistId,omitempty"`
	ArtistName string `json:"artistName"`
	Target     int    `json:"target"`
	Cap        int    `json:"cap"`
	Current    int    `json:"current"`    // accepted tracks by this artist
	Adds       int    `json:"adds"`       // accepted while filling this bucket
	SkipsByCap int    `json:"skipsByCap"` // candidates rejected by the cap

	norm string
}

// Full reports whether the bucket reached its target.
func (b *Bucket) Full() bool {
	return b.Current >= b.Target
}

// Short returns how many tracks the bucket still needs.
func (b *Bucket) Short() int {
	if b.Current >= b.Target {
		return 0
	}
	return b.Target - b.Current
}

// Plan is the set of buckets for a request, indexed by position.
type Plan struct {
	Buckets  []*Bucket
	Rotation bool
}

// PlanBuckets creates one bucket per named artist. Each bucket targets the
// smaller of the priority cap and an equal share of the priority portion of
// target, with a floor of three.
func PlanBuckets(target int, artists []catalog.ArtistRef, caps Caps) *Plan {
	plan := &Plan{}
	n := len(artists)
	if n == 0 {
		return plan
	}

	share := int(math.Floor(float64(target) * priorityShare(n) / float64(n)))
	if share < priorityFloor {
		share = priorityFloor
	}
	perBucket := share
	if caps.Priority != Unlimited && caps.Priority < perBucket {
		perBucket = caps.Priority
	}

	sum := 0
	for _, a := range artists {
		plan.Buckets = append(plan.Buckets, &Bucket{
			ArtistID:   a.ID,
			ArtistName: a.Name,
			Target:     perBucket,
			Cap:        caps.Priority,
			norm:       catalog.NormalizeName(a.Name),
		})
		sum += perBucket
	}

	plan.Rotation = n > 3 || float64(sum) > rotationShare*float64(target)
	return plan
}

// BucketFor returns the bucket track belongs to, or nil.
func (p *Plan) BucketFor(track catalog.Track) *Bucket {
	if p == nil {
		return nil
	}
	for _, b := range p.Buckets {
		if BelongsTo(track, b) {
			return b
		}
	}
	return nil
}

// Short returns the total number of tracks the buckets still need.
func (p *Plan) Short() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, b := range p.Buckets {
		n += b.Short()
	}
	return n
}

// Snapshot returns a copy of the buckets for reporting.
func (p *Plan) Snapshot() []Bucket {
	if p == nil {
		return nil
	}
	out := make([]Bucket, len(p.Buckets))
	for i, b := range p.Buckets {
		out[i] = *b
	}
	return out
}

// BelongsTo reports whether track's primary artist is the bucket's artist.
// Catalog ids decide when both sides have one; otherwise the normalized
// names must match under the minimum-length containment rule.
func BelongsTo(track catalog.Track, b *Bucket) bool {
	if b == nil {
		return false
	}
	if id := track.PrimaryArtistID(); id != "" && b.ArtistID != "" {
		return id == b.ArtistID
	}
	norm := b.norm
	if norm == "" {
		norm = catalog.NormalizeName(b.ArtistName)
	}
	return catalog.NamesMatch(catalog.NormalizeName(track.PrimaryArtist()), norm)
}
