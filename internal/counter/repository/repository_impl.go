// Package repository implements the counter store against gorm. Every
// admission decision is a single conditional UPDATE so concurrent requests
// for the same key serialize on the row, not in application code.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/brushworks/repaintly/internal/clock"
	"github.com/brushworks/repaintly/internal/counter/domain"
	"github.com/brushworks/repaintly/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RepositoryParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type repository struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func Provide(p RepositoryParam) domain.Store {
	return &repository{
		db:    p.DB,
		log:   p.Log.Named("counter.repository"),
		clock: p.Clock,
	}
}

func (r *repository) GetCounter(ctx context.Context, subjectID snowflake.ID) (*domain.CounterSnapshot, error) {
	var row domain.UsageCounter
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND status = ?", subjectID, domain.CounterStatusActive).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr(err)
	}

	return &domain.CounterSnapshot{
		SubjectID:   row.SubjectID,
		Count:       row.Count,
		Limit:       row.GenerationLimit,
		PeriodStart: row.PeriodStart,
		PeriodEnd:   row.PeriodEnd,
	}, nil
}

func (r *repository) IncrementIfAllowed(ctx context.Context, subjectID snowflake.ID, limit int64) (bool, int64, error) {
	now := r.clock.Now()

	stmt := `UPDATE usage_counters
		 SET count = count + 1, updated_at = ?
		 WHERE subject_id = ? AND status = ?`
	args := []any{now, subjectID, domain.CounterStatusActive}
	if limit != domain.Unlimited {
		stmt += ` AND count < ?`
		args = append(args, limit)
	}

	res := r.db.WithContext(ctx).Exec(stmt, args...)
	if res.Error != nil {
		return false, 0, storeErr(res.Error)
	}

	snap, err := r.GetCounter(ctx, subjectID)
	if err != nil {
		return false, 0, err
	}
	return res.RowsAffected > 0, snap.Count, nil
}

func (r *repository) ResetCounter(ctx context.Context, subjectID snowflake.ID, periodStart, periodEnd time.Time) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE usage_counters
		 SET count = 0, period_start = ?, period_end = ?, updated_at = ?
		 WHERE subject_id = ? AND status = ?`,
		periodStart, periodEnd, r.clock.Now(), subjectID, domain.CounterStatusActive,
	)
	if res.Error != nil {
		return storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) GetFailure(ctx context.Context, accountID snowflake.ID) (*domain.FailureSnapshot, error) {
	var row domain.FailureRecord
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr(err)
	}
	return failureSnapshot(row), nil
}

func (r *repository) UpsertFailure(ctx context.Context, accountID snowflake.ID, delta, threshold int, lockDuration time.Duration) (*domain.FailureSnapshot, error) {
	now := r.clock.Now()
	lockUntil := now.Add(lockDuration)

	updated, err := r.applyFailureDelta(ctx, accountID, delta, threshold, now, lockUntil)
	if err != nil {
		return nil, err
	}

	if !updated {
		record := domain.FailureRecord{
			AccountID:      accountID,
			FailedAttempts: delta,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if delta >= threshold {
			record.LockedUntil = &lockUntil
		}
		if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
			if !db.IsDuplicateKeyErr(err) {
				return nil, storeErr(err)
			}
			// Lost the creation race; the row exists now, apply the delta to it.
			if _, err := r.applyFailureDelta(ctx, accountID, delta, threshold, now, lockUntil); err != nil {
				return nil, err
			}
		}
	}

	return r.GetFailure(ctx, accountID)
}

// applyFailureDelta is the atomic increment-and-maybe-lock. The CASE arms the
// lock only when the new count reaches the threshold and no unexpired lock is
// already present, so an active lock is never extended.
func (r *repository) applyFailureDelta(ctx context.Context, accountID snowflake.ID, delta, threshold int, now, lockUntil time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE user_security
		 SET failed_attempts = failed_attempts + ?,
		     locked_until = CASE
		       WHEN failed_attempts + ? >= ?
		        AND (locked_until IS NULL OR locked_until <= ?)
		       THEN ?
		       ELSE locked_until
		     END,
		     updated_at = ?
		 WHERE account_id = ?`,
		delta, delta, threshold, now, lockUntil, now, accountID,
	)
	if res.Error != nil {
		return false, storeErr(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ClearFailure(ctx context.Context, accountID snowflake.ID) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE user_security
		 SET failed_attempts = 0, locked_until = NULL, updated_at = ?
		 WHERE account_id = ?`,
		r.clock.Now(), accountID,
	)
	if res.Error != nil {
		return storeErr(res.Error)
	}
	return nil
}

func failureSnapshot(row domain.FailureRecord) *domain.FailureSnapshot {
	return &domain.FailureSnapshot{
		AccountID:      row.AccountID,
		FailedAttempts: row.FailedAttempts,
		LockedUntil:    row.LockedUntil,
	}
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
