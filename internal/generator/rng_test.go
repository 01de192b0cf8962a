package generator

import (
	"testing"
	"time"
)

func TestWindowSeed(t *testing.T) {
	window := 6 * time.Hour
	base := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	a := WindowSeed("Coachella 2024", base.Add(time.Hour), window)
	b := WindowSeed("coachella   2024!", base.Add(5*time.Hour), window)
	if a != b {
		t.Errorf("same query in one window gave %d and %d", a, b)
	}

	if c := WindowSeed("Coachella 2024", base.Add(7*time.Hour), window); c == a {
		t.Error("next window gave the same seed")
	}
	if d := WindowSeed("Lollapalooza 2024", base.Add(time.Hour), window); d == a {
		t.Error("different query gave the same seed")
	}
}

func TestNewRandIsReproducible(t *testing.T) {
	r1, r2 := NewRand(42), NewRand(42)
	for i := 0; i < 20; i++ {
		if x, y := r1.Uint64(), r2.Uint64(); x != y {
			t.Fatalf("draw %d: %d != %d", i, x, y)
		}
	}
}

func TestJitterRange(t *testing.T) {
	r := NewRand(7)
	for i := 0; i < 1000; i++ {
		if j := jitter(r, 0.05); j < 0.95 || j > 1.05 {
			t.Fatalf("jitter = %f, want within [0.95, 1.05]", j)
		}
	}
}
