// Package domain defines the login lockout guard contract. The guard tracks
// consecutive authentication failures per account and refuses authentication
// while a timed lock is active.
package domain

import (
	"context"
	"errors"
	"time"
)

var ErrAccountLocked = errors.New("account_locked")

// Status is the lock view consumed by the sign-in flow before credential
// verification. Unknown identifiers produce the same shape as accounts with
// zero failures.
type Status struct {
	IsLocked          bool       `json:"isLocked"`
	Attempts          int        `json:"attempts"`
	RemainingAttempts int        `json:"remainingAttempts"`
	LockedUntil       *time.Time `json:"lockedUntil,omitempty"`
	RemainingMinutes  int        `json:"remainingMinutes,omitempty"`
	Message           string     `json:"message,omitempty"`
}

type Service interface {
	// GetStatus reports the lock state for a login identifier. Reading an
	// expired lock clears the failure record before reporting.
	GetStatus(ctx context.Context, identifier string) (Status, error)

	// RecordFailure counts one failed authentication attempt. Unresolved
	// identifiers succeed silently so callers cannot distinguish them.
	RecordFailure(ctx context.Context, identifier string) error

	// RecordSuccess clears the failure record. Idempotent.
	RecordSuccess(ctx context.Context, identifier string) error
}
