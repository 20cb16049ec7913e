package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound         = errors.New("counter_not_found")
	ErrStoreUnavailable = errors.New("counter_store_unavailable")
)

// CounterSnapshot is a read-only view of a subject's active usage counter.
type CounterSnapshot struct {
	SubjectID   snowflake.ID
	Count       int64
	Limit       int64
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// FailureSnapshot is a read-only view of an account's failure record.
type FailureSnapshot struct {
	AccountID      snowflake.ID
	FailedAttempts int
	LockedUntil    *time.Time
}

// Store is the shared persistence contract for both guards. Increment and
// upsert operations must be atomic per key: two concurrent calls for the same
// key must never both observe "allowed" at the limit boundary.
type Store interface {
	// GetCounter returns the active counter for a subject. Read-only.
	GetCounter(ctx context.Context, subjectID snowflake.ID) (*CounterSnapshot, error)

	// IncrementIfAllowed atomically compares the current count against limit
	// and increments when below it. The unlimited sentinel always allows.
	// The returned count is the value after the operation either way.
	IncrementIfAllowed(ctx context.Context, subjectID snowflake.ID, limit int64) (allowed bool, newCount int64, err error)

	// ResetCounter zeroes the active counter and advances the billing period.
	// Idempotent for a given period.
	ResetCounter(ctx context.Context, subjectID snowflake.ID, periodStart, periodEnd time.Time) error

	// GetFailure returns the failure record for an account. Read-only.
	GetFailure(ctx context.Context, accountID snowflake.ID) (*FailureSnapshot, error)

	// UpsertFailure atomically adds delta to the failure count and, when the
	// result reaches threshold, arms the lock in the same operation. An
	// unexpired lock is never extended.
	UpsertFailure(ctx context.Context, accountID snowflake.ID, delta, threshold int, lockDuration time.Duration) (*FailureSnapshot, error)

	// ClearFailure zeroes the failure record. Idempotent; succeeds when no
	// record exists.
	ClearFailure(ctx context.Context, accountID snowflake.ID) error
}
