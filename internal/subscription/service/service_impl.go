package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/brushworks/repaintly/internal/clock"
	counterdomain "github.com/brushworks/repaintly/internal/counter/domain"
	quotadomain "github.com/brushworks/repaintly/internal/quota/domain"
	subscriptiondomain "github.com/brushworks/repaintly/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Quota quotadomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	quota quotadomain.Service
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscription.service"),
		genID: p.GenID,
		clock: p.Clock,
		quota: p.Quota,
	}
}

func (s *Service) Activate(ctx context.Context, req subscriptiondomain.ActivateRequest) (*subscriptiondomain.Subscription, error) {
	if req.UserID == 0 {
		return nil, subscriptiondomain.ErrSubscriptionNotFound
	}
	if !req.PeriodEnd.After(req.PeriodStart) {
		return nil, subscriptiondomain.ErrInvalidPeriod
	}

	plan, err := s.findPlan(ctx, s.db, req.PlanCode)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sub := &subscriptiondomain.Subscription{
		ID:                 s.genID.Generate(),
		UserID:             req.UserID,
		PlanID:             plan.ID,
		Status:             subscriptiondomain.SubscriptionStatusActive,
		CurrentPeriodStart: req.PeriodStart,
		CurrentPeriodEnd:   req.PeriodEnd,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&subscriptiondomain.Subscription{}).
			Where("user_id = ? AND status = ?", req.UserID, subscriptiondomain.SubscriptionStatusActive).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return subscriptiondomain.ErrAlreadyActive
		}

		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		return tx.Create(&counterdomain.UsageCounter{
			ID:              s.genID.Generate(),
			SubjectID:       sub.ID,
			Count:           0,
			GenerationLimit: plan.GenerationLimit,
			PeriodStart:     req.PeriodStart,
			PeriodEnd:       req.PeriodEnd,
			Status:          counterdomain.CounterStatusActive,
			CreatedAt:       now,
			UpdatedAt:       now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription activated",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("plan", plan.Code),
		zap.Int64("generation_limit", plan.GenerationLimit),
	)
	return sub, nil
}

func (s *Service) RenewCycle(ctx context.Context, req subscriptiondomain.RenewCycleRequest) error {
	if !req.PeriodEnd.After(req.PeriodStart) {
		return subscriptiondomain.ErrInvalidPeriod
	}

	res := s.db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET current_period_start = ?, current_period_end = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		req.PeriodStart, req.PeriodEnd, s.clock.Now(),
		req.SubscriptionID, subscriptiondomain.SubscriptionStatusActive,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return subscriptiondomain.ErrSubscriptionNotFound
	}

	err := s.quota.ResetCycle(ctx, quotadomain.ResetCycleRequest{
		SubjectID:   req.SubscriptionID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
	})
	if err != nil && !errors.Is(err, quotadomain.ErrNoActivePlan) {
		return err
	}
	return nil
}

func (s *Service) ChangePlan(ctx context.Context, req subscriptiondomain.ChangePlanRequest) (*subscriptiondomain.Subscription, error) {
	plan, err := s.findPlan(ctx, s.db, req.PlanCode)
	if err != nil {
		return nil, err
	}

	var sub subscriptiondomain.Subscription
	now := s.clock.Now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND status = ?", req.SubscriptionID, subscriptiondomain.SubscriptionStatusActive).
			First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return subscriptiondomain.ErrSubscriptionNotFound
			}
			return err
		}

		if err := tx.Model(&subscriptiondomain.Subscription{}).
			Where("id = ?", sub.ID).
			Updates(map[string]any{"plan_id": plan.ID, "updated_at": now}).Error; err != nil {
			return err
		}

		// The old counter is superseded, never rewritten; usage restarts on
		// the new plan's allowance.
		if err := tx.Model(&counterdomain.UsageCounter{}).
			Where("subject_id = ? AND status = ?", sub.ID, counterdomain.CounterStatusActive).
			Updates(map[string]any{"status": counterdomain.CounterStatusSuperseded, "updated_at": now}).Error; err != nil {
			return err
		}
		return tx.Create(&counterdomain.UsageCounter{
			ID:              s.genID.Generate(),
			SubjectID:       sub.ID,
			Count:           0,
			GenerationLimit: plan.GenerationLimit,
			PeriodStart:     sub.CurrentPeriodStart,
			PeriodEnd:       sub.CurrentPeriodEnd,
			Status:          counterdomain.CounterStatusActive,
			CreatedAt:       now,
			UpdatedAt:       now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	sub.PlanID = plan.ID
	s.log.Info("subscription plan changed",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("plan", plan.Code),
	)
	return &sub, nil
}

func (s *Service) findPlan(ctx context.Context, tx *gorm.DB, code string) (*subscriptiondomain.Plan, error) {
	var plan subscriptiondomain.Plan
	err := tx.WithContext(ctx).Where("code = ?", code).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscriptiondomain.ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}
