package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQuota(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	quota := NewQuota(store, 2, "")

	u, err := quota.Check(ctx, "client-a")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if u.Used != 0 || u.Remaining != 2 || u.Limit != 2 || u.Plan != "free" {
		t.Errorf("initial usage = %+v", u)
	}

	for i := 1; i <= 2; i++ {
		u, err = quota.Reserve(ctx, "client-a")
		if err != nil {
			t.Fatalf("Reserve() error = %v", err)
		}
		if u.Used != i || u.Remaining != 2-i {
			t.Errorf("after %d: usage = %+v", i, u)
		}
	}

	if _, err := quota.Check(ctx, "client-a"); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("Check() error = %v, want ErrQuotaExceeded", err)
	}

	// Other clients are metered separately
	if _, err := quota.Check(ctx, "client-b"); err != nil {
		t.Errorf("Check(client-b) error = %v", err)
	}
}

func TestQuotaResetsDaily(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	day := time.Date(2026, 5, 1, 23, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return day }

	quota := NewQuota(store, 1, "free")
	if _, err := quota.Reserve(ctx, "c"); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if _, err := quota.Check(ctx, "c"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Check() error = %v, want ErrQuotaExceeded", err)
	}

	day = day.Add(2 * time.Hour)
	u, err := quota.Check(ctx, "c")
	if err != nil {
		t.Fatalf("next day Check() error = %v", err)
	}
	if u.Used != 0 || u.Remaining != 1 {
		t.Errorf("next day usage = %+v", u)
	}
}

func TestQuotaUnlimited(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	quota := NewQuota(store, 0, "")

	for i := 0; i < 5; i++ {
		if _, err := quota.Reserve(ctx, "c"); err != nil {
			t.Fatalf("Reserve() error = %v", err)
		}
	}
	u, err := quota.Check(ctx, "c")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !u.Unlimited || u.Used != 5 || u.Plan != "unlimited" {
		t.Errorf("usage = %+v", u)
	}
}

func TestQuotaReserveIsAtomic(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	quota := NewQuota(store, 3, "free")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		granted  int
		rejected int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := quota.Reserve(ctx, "c")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				granted++
			case errors.Is(err, ErrQuotaExceeded):
				rejected++
			default:
				t.Errorf("Reserve() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if granted != 3 || rejected != 9 {
		t.Errorf("granted %d, rejected %d, want 3 and 9", granted, rejected)
	}
	u, err := quota.Check(ctx, "c")
	if !errors.Is(err, ErrQuotaExceeded) || u.Used != 3 {
		t.Errorf("Check() = %+v, %v", u, err)
	}
}

func TestQuotaRelease(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	quota := NewQuota(store, 1, "free")

	// Releasing with nothing reserved never goes below zero
	if err := quota.Release(ctx, "c"); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	if _, err := quota.Reserve(ctx, "c"); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if _, err := quota.Reserve(ctx, "c"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Reserve() error = %v, want ErrQuotaExceeded", err)
	}
	if err := quota.Release(ctx, "c"); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	u, err := quota.Reserve(ctx, "c")
	if err != nil {
		t.Fatalf("Reserve() after release error = %v", err)
	}
	if u.Used != 1 || u.Remaining != 0 {
		t.Errorf("usage = %+v", u)
	}
}
