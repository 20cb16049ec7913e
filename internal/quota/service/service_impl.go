package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/brushworks/repaintly/internal/config"
	counterdomain "github.com/brushworks/repaintly/internal/counter/domain"
	"github.com/brushworks/repaintly/internal/metrics"
	quotadomain "github.com/brushworks/repaintly/internal/quota/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Store   counterdomain.Store
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	store    counterdomain.Store
	failOpen bool
	metrics  *metrics.Metrics
}

func NewService(p ServiceParam) quotadomain.Service {
	return &Service{
		log:      p.Log.Named("quota.service"),
		store:    p.Store,
		failOpen: p.Cfg.Quota.FailOpen,
		metrics:  p.Metrics,
	}
}

func (s *Service) CheckQuota(ctx context.Context, subjectID snowflake.ID) (quotadomain.QuotaStatus, error) {
	if subjectID == 0 {
		return quotadomain.QuotaStatus{}, quotadomain.ErrInvalidSubject
	}

	snap, err := s.store.GetCounter(ctx, subjectID)
	if err != nil {
		if errors.Is(err, counterdomain.ErrNotFound) {
			s.metrics.QuotaDecision("no_plan")
			return quotadomain.QuotaStatus{
				CanProceed: false,
				Reason:     quotadomain.ReasonNoActivePlan,
			}, nil
		}
		if s.failOpen {
			s.logFailOpen(subjectID, "check_quota", err)
			return quotadomain.QuotaStatus{
				CanProceed: true,
				Used:       0,
				Limit:      counterdomain.Unlimited,
				Remaining:  counterdomain.Unlimited,
			}, nil
		}
		return quotadomain.QuotaStatus{}, err
	}

	status := quotadomain.QuotaStatus{
		Used:      snap.Count,
		Limit:     snap.Limit,
		Remaining: remaining(snap.Limit, snap.Count),
	}
	status.CanProceed = snap.Limit == counterdomain.Unlimited || snap.Count < snap.Limit
	if !status.CanProceed {
		status.Reason = quotadomain.ReasonLimitReached
	}
	return status, nil
}

func (s *Service) RecordUsage(ctx context.Context, subjectID snowflake.ID) (*quotadomain.UsageReceipt, error) {
	if subjectID == 0 {
		return nil, quotadomain.ErrInvalidSubject
	}

	snap, err := s.store.GetCounter(ctx, subjectID)
	if err != nil {
		if errors.Is(err, counterdomain.ErrNotFound) {
			s.metrics.QuotaDecision("no_plan")
			return nil, quotadomain.ErrNoActivePlan
		}
		return s.recordDegraded(subjectID, err)
	}

	allowed, newCount, err := s.store.IncrementIfAllowed(ctx, subjectID, snap.Limit)
	if err != nil {
		if errors.Is(err, counterdomain.ErrNotFound) {
			s.metrics.QuotaDecision("no_plan")
			return nil, quotadomain.ErrNoActivePlan
		}
		return s.recordDegraded(subjectID, err)
	}
	if !allowed {
		s.metrics.QuotaDecision("rejected")
		return nil, quotadomain.ErrQuotaExceeded
	}

	s.metrics.QuotaDecision("allowed")
	return &quotadomain.UsageReceipt{
		NewCount:  newCount,
		Remaining: remaining(snap.Limit, newCount),
	}, nil
}

func (s *Service) ResetCycle(ctx context.Context, req quotadomain.ResetCycleRequest) error {
	if req.SubjectID == 0 {
		return quotadomain.ErrInvalidSubject
	}

	err := s.store.ResetCounter(ctx, req.SubjectID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		if errors.Is(err, counterdomain.ErrNotFound) {
			return quotadomain.ErrNoActivePlan
		}
		return err
	}

	s.log.Info("usage counter reset",
		zap.String("subject_id", req.SubjectID.String()),
		zap.Time("period_start", req.PeriodStart),
		zap.Time("period_end", req.PeriodEnd),
	)
	return nil
}

// recordDegraded applies the configured store-failure policy. Fail closed
// surfaces the store error; fail open admits the generation and leaves an
// audit trail.
func (s *Service) recordDegraded(subjectID snowflake.ID, err error) (*quotadomain.UsageReceipt, error) {
	if !s.failOpen {
		return nil, err
	}
	s.logFailOpen(subjectID, "record_usage", err)
	return &quotadomain.UsageReceipt{
		NewCount:  0,
		Remaining: counterdomain.Unlimited,
		Degraded:  true,
	}, nil
}

func (s *Service) logFailOpen(subjectID snowflake.ID, op string, err error) {
	s.metrics.QuotaDecision("fail_open")
	s.log.Warn("quota gate failing open on unavailable store",
		zap.String("op", op),
		zap.String("subject_id", subjectID.String()),
		zap.Error(err),
	)
}

func remaining(limit, count int64) int64 {
	if limit == counterdomain.Unlimited {
		return counterdomain.Unlimited
	}
	if left := limit - count; left > 0 {
		return left
	}
	return 0
}
