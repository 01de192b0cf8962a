package generator

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"time"

	"github.com/jfmyers9/crate/internal/catalog"
)

// WindowSeed derives a seed from query and the time window containing now.
// Requests for the same query within one window get the same seed; the next
// window gets a different one.
func WindowSeed(query string, now time.Time, window time.Duration) uint64 {
	var idx int64
	if window > 0 {
		idx = now.UnixNano() / int64(window)
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(catalog.NormalizeName(query)))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(idx))
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

// NewRand returns a PRNG seeded with seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// jitter returns a factor in [1-spread, 1+spread].
func jitter(r *rand.Rand, spread float64) float64 {
	return 1 + (r.Float64()*2-1)*spread
}
