package generator

import (
	"testing"

	"github.com/jfmyers9/crate/internal/catalog"
)

func refs(names ...string) []catalog.ArtistRef {
	out := make([]catalog.ArtistRef, len(names))
	for i, n := range names {
		out[i] = catalog.ArtistRef{ID: "ar-" + catalog.NormalizeName(n), Name: n}
	}
	return out
}

func TestPlanBuckets(t *testing.T) {
	tests := []struct {
		name         string
		target       int
		artists      []catalog.ArtistRef
		wantTarget   int
		wantRotation bool
	}{
		{
			name:         "two artists sequential",
			target:       40,
			artists:      refs("Drake", "SZA"),
			wantTarget:   10,
			wantRotation: false,
		},
		{
			name:         "one artist capped at priority cap",
			target:       100,
			artists:      refs("Drake"),
			wantTarget:   ComputeCaps(100, 1, Special{}).Priority,
			wantRotation: false,
		},
		{
			name:         "many artists rotate",
			target:       50,
			artists:      refs("A One", "B Two", "C Three", "D Four"),
			wantTarget:   7,
			wantRotation: true,
		},
		{
			name:         "floor of three",
			target:       20,
			artists:      refs("A One", "B Two", "C Three", "D Four", "E Five"),
			wantTarget:   3,
			wantRotation: true,
		},
		{
			name:         "large share rotates",
			target:       10,
			artists:      refs("A One", "B Two", "C Three"),
			wantTarget:   3,
			wantRotation: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := ComputeCaps(tt.target, len(tt.artists), Special{})
			plan := PlanBuckets(tt.target, tt.artists, caps)
			if len(plan.Buckets) != len(tt.artists) {
				t.Fatalf("got %d buckets, want %d", len(plan.Buckets), len(tt.artists))
			}
			for _, b := range plan.Buckets {
				if b.Target != tt.wantTarget {
					t.Errorf("bucket %s target = %d, want %d", b.ArtistName, b.Target, tt.wantTarget)
				}
				if b.Target > caps.Priority {
					t.Errorf("bucket %s target %d above cap %d", b.ArtistName, b.Target, caps.Priority)
				}
			}
			if plan.Rotation != tt.wantRotation {
				t.Errorf("Rotation = %v, want %v", plan.Rotation, tt.wantRotation)
			}
		})
	}
}

func TestPlanBucketsEmpty(t *testing.T) {
	plan := PlanBuckets(50, nil, Caps{Priority: 5})
	if len(plan.Buckets) != 0 || plan.Rotation {
		t.Errorf("PlanBuckets(nil) = %+v, want empty plan", plan)
	}
}

func TestBucketFloor(t *testing.T) {
	// With target >= 5 per artist every bucket gets at least min(3, cap).
	for n := 1; n <= 8; n++ {
		target := 5 * n
		caps := ComputeCaps(target, n, Special{})
		plan := PlanBuckets(target, refs(make([]string, n)...), caps)
		floor := 3
		if caps.Priority < floor {
			floor = caps.Priority
		}
		for _, b := range plan.Buckets {
			if b.Target < floor {
				t.Errorf("n=%d: bucket target %d below floor %d", n, b.Target, floor)
			}
		}
	}
}

func TestBelongsTo(t *testing.T) {
	b := &Bucket{ArtistID: "ar-1", ArtistName: "Ana"}
	nameOnly := &Bucket{ArtistName: "Bad Bunny"}

	tests := []struct {
		name   string
		track  catalog.Track
		bucket *Bucket
		want   bool
	}{
		{
			name:   "same id",
			track:  catalog.Track{Artists: []string{"Ana"}, ArtistIDs: []string{"ar-1"}},
			bucket: b,
			want:   true,
		},
		{
			name:   "different id same name",
			track:  catalog.Track{Artists: []string{"Ana"}, ArtistIDs: []string{"ar-2"}},
			bucket: b,
			want:   false,
		},
		{
			name:   "short name never matches by containment",
			track:  catalog.Track{Artists: []string{"Anabel"}},
			bucket: b,
			want:   false,
		},
		{
			name:   "name containment",
			track:  catalog.Track{Artists: []string{"Bad Bunny & Jhay Cortez"}},
			bucket: nameOnly,
			want:   true,
		},
		{
			name:   "featured only",
			track:  catalog.Track{Artists: []string{"Drake", "Bad Bunny"}},
			bucket: nameOnly,
			want:   false,
		},
		{
			name:   "nil bucket",
			track:  catalog.Track{Artists: []string{"Drake"}},
			bucket: nil,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BelongsTo(tt.track, tt.bucket); got != tt.want {
				t.Errorf("BelongsTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlanNilSafe(t *testing.T) {
	var p *Plan
	if p.BucketFor(catalog.Track{}) != nil {
		t.Error("BucketFor on nil plan returned a bucket")
	}
	if p.Short() != 0 {
		t.Error("Short on nil plan != 0")
	}
	if p.Snapshot() != nil {
		t.Error("Snapshot on nil plan != nil")
	}
}
