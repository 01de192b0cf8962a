package history

import (
	"context"
	"errors"
	"fmt"
)

const dayFormat = "2006-01-02"

// ErrQuotaExceeded is returned by Check and Reserve when a client used up
// its daily allowance.
var ErrQuotaExceeded = errors.New("history: daily quota exceeded")

// Usage is a client's standing for the current day.
type Usage struct {
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	Unlimited bool   `json:"unlimited"`
	Plan      string `json:"plan"`
}

// Quota meters generations per client per UTC day. A limit of 0 or less
// means unlimited.
type Quota struct {
	store *Store
	limit int
	plan  string
}

// NewQuota creates a daily quota backed by store.
func NewQuota(store *Store, limit int, plan string) *Quota {
	if plan == "" {
		plan = "free"
		if limit <= 0 {
			plan = "unlimited"
		}
	}
	return &Quota{store: store, limit: limit, plan: plan}
}

// Check returns the client's usage, or ErrQuotaExceeded with the usage when
// nothing is left.
func (q *Quota) Check(ctx context.Context, client string) (Usage, error) {
	used, err := q.used(ctx, client)
	if err != nil {
		return Usage{}, err
	}
	u := q.usage(used)
	if !u.Unlimited && u.Remaining == 0 {
		return u, ErrQuotaExceeded
	}
	return u, nil
}

// Reserve takes one generation from the client's allowance and returns the
// new usage. The check and the increment are a single statement, so
// concurrent callers can never take more than the limit. When nothing is
// left it returns ErrQuotaExceeded with the current usage.
func (q *Quota) Reserve(ctx context.Context, client string) (Usage, error) {
	res, err := q.store.db.ExecContext(ctx, `
		INSERT INTO usage (client, day, count) VALUES (?, ?, 1)
		ON CONFLICT (client, day) DO UPDATE SET count = count + 1
		WHERE ? <= 0 OR count < ?
	`, client, q.today(), q.limit, q.limit)
	if err != nil {
		return Usage{}, fmt.Errorf("failed to record usage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Usage{}, fmt.Errorf("failed to record usage: %w", err)
	}

	used, err := q.used(ctx, client)
	if err != nil {
		return Usage{}, err
	}
	u := q.usage(used)
	if n == 0 {
		return u, ErrQuotaExceeded
	}
	return u, nil
}

// Release gives back a generation taken by Reserve that produced nothing.
func (q *Quota) Release(ctx context.Context, client string) error {
	_, err := q.store.db.ExecContext(ctx,
		"UPDATE usage SET count = count - 1 WHERE client = ? AND day = ? AND count > 0",
		client, q.today(),
	)
	if err != nil {
		return fmt.Errorf("failed to release usage: %w", err)
	}
	return nil
}

func (q *Quota) used(ctx context.Context, client string) (int, error) {
	var used int
	err := q.store.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(count), 0) FROM usage WHERE client = ? AND day = ?",
		client, q.today(),
	).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("failed to query usage: %w", err)
	}
	return used, nil
}

func (q *Quota) usage(used int) Usage {
	u := Usage{Used: used, Limit: q.limit, Plan: q.plan}
	if q.limit <= 0 {
		u.Unlimited = true
		u.Limit = 0
		return u
	}
	u.Remaining = q.limit - used
	if u.Remaining < 0 {
		u.Remaining = 0
	}
	return u
}

func (q *Quota) today() string {
	return q.store.now().UTC().Format(dayFormat)
}
