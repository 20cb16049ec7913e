package domain

import (
	"errors"

	lockoutdomain "github.com/brushworks/repaintly/internal/lockout/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
)

// LockedError carries the lock status so callers can surface the remaining
// lock duration without another round trip.
type LockedError struct {
	Status lockoutdomain.Status
}

func (e *LockedError) Error() string { return "account locked" }

func (e *LockedError) Unwrap() error { return lockoutdomain.ErrAccountLocked }
