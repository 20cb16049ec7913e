package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brushworks/repaintly/internal/clock"
	"github.com/brushworks/repaintly/internal/config"
	counterdomain "github.com/brushworks/repaintly/internal/counter/domain"
	identitydomain "github.com/brushworks/repaintly/internal/identity/domain"
	lockoutdomain "github.com/brushworks/repaintly/internal/lockout/domain"
	"github.com/brushworks/repaintly/internal/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Cfg      config.Config
	Log      *zap.Logger
	Store    counterdomain.Store
	Resolver identitydomain.Resolver
	Clock    clock.Clock
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	store    counterdomain.Store
	resolver identitydomain.Resolver
	clock    clock.Clock
	metrics  *metrics.Metrics

	maxAttempts  int
	lockDuration time.Duration
}

func NewService(p ServiceParam) lockoutdomain.Service {
	return &Service{
		log:          p.Log.Named("lockout.service"),
		store:        p.Store,
		resolver:     p.Resolver,
		clock:        p.Clock,
		metrics:      p.Metrics,
		maxAttempts:  p.Cfg.Security.LockoutMaxAttempts,
		lockDuration: p.Cfg.Security.LockoutDuration,
	}
}

func (s *Service) GetStatus(ctx context.Context, identifier string) (lockoutdomain.Status, error) {
	accountID, err := s.resolver.ResolveAccountID(ctx, identifier)
	if err != nil {
		if errors.Is(err, identitydomain.ErrNotFound) {
			// Never reveal whether an identifier is registered.
			return s.freshStatus(), nil
		}
		return lockoutdomain.Status{}, fmt.Errorf("%w: %v", counterdomain.ErrStoreUnavailable, err)
	}

	record, err := s.store.GetFailure(ctx, accountID)
	if err != nil {
		if errors.Is(err, counterdomain.ErrNotFound) {
			return s.freshStatus(), nil
		}
		// Fail closed: the sign-in flow must not proceed without a verdict.
		return lockoutdomain.Status{}, err
	}

	now := s.clock.Now()
	if record.LockedUntil != nil {
		if now.Before(*record.LockedUntil) {
			return s.lockedStatus(*record.LockedUntil, now), nil
		}
		// Lock expired: clear lazily so the next attempt starts from zero.
		if err := s.store.ClearFailure(ctx, accountID); err != nil {
			return lockoutdomain.Status{}, err
		}
		s.metrics.LockoutEvent("lock_expired")
		return s.freshStatus(), nil
	}

	return lockoutdomain.Status{
		IsLocked:          false,
		Attempts:          record.FailedAttempts,
		RemainingAttempts: s.remainingAttempts(record.FailedAttempts),
	}, nil
}

func (s *Service) RecordFailure(ctx context.Context, identifier string) error {
	accountID, err := s.resolver.ResolveAccountID(ctx, identifier)
	if err != nil {
		if errors.Is(err, identitydomain.ErrNotFound) {
			// Silent success keeps unresolved identifiers indistinguishable.
			return nil
		}
		return fmt.Errorf("%w: %v", counterdomain.ErrStoreUnavailable, err)
	}

	snap, err := s.store.UpsertFailure(ctx, accountID, 1, s.maxAttempts, s.lockDuration)
	if err != nil {
		return err
	}

	s.metrics.LockoutEvent("failure")
	if snap.LockedUntil != nil && snap.FailedAttempts == s.maxAttempts {
		s.metrics.LockoutEvent("locked")
		s.log.Warn("account locked after repeated authentication failures",
			zap.String("account_id", accountID.String()),
			zap.Int("attempts", snap.FailedAttempts),
			zap.Timep("locked_until", snap.LockedUntil),
		)
	}
	return nil
}

func (s *Service) RecordSuccess(ctx context.Context, identifier string) error {
	accountID, err := s.resolver.ResolveAccountID(ctx, identifier)
	if err != nil {
		if errors.Is(err, identitydomain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: %v", counterdomain.ErrStoreUnavailable, err)
	}

	if err := s.store.ClearFailure(ctx, accountID); err != nil {
		return err
	}
	s.metrics.LockoutEvent("cleared")
	return nil
}

func (s *Service) freshStatus() lockoutdomain.Status {
	return lockoutdomain.Status{
		IsLocked:          false,
		Attempts:          0,
		RemainingAttempts: s.maxAttempts,
	}
}

func (s *Service) lockedStatus(until time.Time, now time.Time) lockoutdomain.Status {
	minutes := int((until.Sub(now) + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	lockedUntil := until
	return lockoutdomain.Status{
		IsLocked:          true,
		RemainingAttempts: 0,
		LockedUntil:       &lockedUntil,
		RemainingMinutes:  minutes,
		Message:           fmt.Sprintf("Account is locked. Try again in %d minutes.", minutes),
	}
}

func (s *Service) remainingAttempts(attempts int) int {
	if left := s.maxAttempts - attempts; left > 0 {
		return left
	}
	return 0
}
