package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/brushworks/repaintly/internal/clock"
	counterdomain "github.com/brushworks/repaintly/internal/counter/domain"
	quotadomain "github.com/brushworks/repaintly/internal/quota/domain"
	subscriptiondomain "github.com/brushworks/repaintly/internal/subscription/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type quotaStub struct {
	resetCalls int
	resetErr   error
	lastReset  quotadomain.ResetCycleRequest
}

func (q *quotaStub) CheckQuota(ctx context.Context, subjectID snowflake.ID) (quotadomain.QuotaStatus, error) {
	return quotadomain.QuotaStatus{}, nil
}

func (q *quotaStub) RecordUsage(ctx context.Context, subjectID snowflake.ID) (*quotadomain.UsageReceipt, error) {
	return nil, quotadomain.ErrNoActivePlan
}

func (q *quotaStub) ResetCycle(ctx context.Context, req quotadomain.ResetCycleRequest) error {
	q.resetCalls++
	q.lastReset = req
	return q.resetErr
}

func setupSubscriptions(t *testing.T, quota quotadomain.Service) (subscriptiondomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	ddl := []string{
		`CREATE TABLE plans (
			id INTEGER PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			generation_limit INTEGER NOT NULL,
			metadata TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE subscriptions (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			plan_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			current_period_start DATETIME NOT NULL,
			current_period_end DATETIME NOT NULL,
			metadata TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE usage_counters (
			id INTEGER PRIMARY KEY,
			subject_id INTEGER NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			generation_limit INTEGER NOT NULL,
			period_start DATETIME NOT NULL,
			period_end DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			metadata TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	}
	for _, stmt := range ddl {
		if err := gdb.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	fc := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fc,
		Quota: quota,
	})
	return svc, gdb, node
}

func seedPlan(t *testing.T, gdb *gorm.DB, node *snowflake.Node, code string, limit int64) {
	t.Helper()
	plan := subscriptiondomain.Plan{
		ID:              node.Generate(),
		Code:            code,
		Name:            code,
		GenerationLimit: limit,
	}
	if err := gdb.Create(&plan).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}
}

func activeCounter(t *testing.T, gdb *gorm.DB, subjectID snowflake.ID) counterdomain.UsageCounter {
	t.Helper()
	var row counterdomain.UsageCounter
	err := gdb.Where("subject_id = ? AND status = ?", subjectID, counterdomain.CounterStatusActive).First(&row).Error
	if err != nil {
		t.Fatalf("active counter: %v", err)
	}
	return row
}

func TestActivateCreatesCounter(t *testing.T) {
	svc, gdb, node := setupSubscriptions(t, &quotaStub{})
	seedPlan(t, gdb, node, "pro", 50)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sub, err := svc.Activate(context.Background(), subscriptiondomain.ActivateRequest{
		UserID:      node.Generate(),
		PlanCode:    "pro",
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}

	counter := activeCounter(t, gdb, sub.ID)
	if counter.Count != 0 {
		t.Fatalf("expected fresh counter, got count %d", counter.Count)
	}
	if counter.GenerationLimit != 50 {
		t.Fatalf("expected plan limit snapshot 50, got %d", counter.GenerationLimit)
	}

	// A second active subscription for the same user is refused.
	_, err = svc.Activate(context.Background(), subscriptiondomain.ActivateRequest{
		UserID:      sub.UserID,
		PlanCode:    "pro",
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, 0),
	})
	if !errors.Is(err, subscriptiondomain.ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
}

func TestActivateUnknownPlan(t *testing.T) {
	svc, _, node := setupSubscriptions(t, &quotaStub{})

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Activate(context.Background(), subscriptiondomain.ActivateRequest{
		UserID:      node.Generate(),
		PlanCode:    "missing",
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, 0),
	})
	if !errors.Is(err, subscriptiondomain.ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestActivateInvalidPeriod(t *testing.T) {
	svc, gdb, node := setupSubscriptions(t, &quotaStub{})
	seedPlan(t, gdb, node, "pro", 50)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Activate(context.Background(), subscriptiondomain.ActivateRequest{
		UserID:      node.Generate(),
		PlanCode:    "pro",
		PeriodStart: start,
		PeriodEnd:   start,
	})
	if !errors.Is(err, subscriptiondomain.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestRenewCycleResetsQuota(t *testing.T) {
	quota := &quotaStub{}
	svc, gdb, node := setupSubscriptions(t, quota)
	seedPlan(t, gdb, node, "pro", 50)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sub, err := svc.Activate(context.Background(), subscriptiondomain.ActivateRequest{
		UserID:      node.Generate(),
		PlanCode:    "pro",
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}

	nextStart := start.AddDate(0, 1, 0)
	nextEnd := nextStart.AddDate(0, 1, 0)
	if err := svc.RenewCycle(context.Background(), subscriptiondomain.RenewCycleRequest{
		SubscriptionID: sub.ID,
		PeriodStart:    nextStart,
		PeriodEnd:      nextEnd,
	}); err != nil {
		t.Fatalf("renew: %v", err)
	}

	if quota.resetCalls != 1 {
		t.Fatalf("expected one quota reset, got %d", quota.resetCalls)
	}
	if quota.lastReset.SubjectID != sub.ID {
		t.Fatalf("expected reset for %s, got %s", sub.ID, quota.lastReset.SubjectID)
	}

	var row subscriptiondomain.Subscription
	if err := gdb.First(&row, "id = ?", sub.ID).Error; err != nil {
		t.Fatalf("load subscription: %v", err)
	}
	if !row.CurrentPeriodStart.Equal(nextStart) || !row.CurrentPeriodEnd.Equal(nextEnd) {
		t.Fatalf("expected period advanced, got %v..%v", row.CurrentPeriodStart, row.CurrentPeriodEnd)
	}
}

func TestRenewCycleUnknownSubscription(t *testing.T) {
	svc, _, node := setupSubscriptions(t, &quotaStub{})

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	err := svc.RenewCycle(context.Background(), subscriptiondomain.RenewCycleRequest{
		SubscriptionID: node.Generate(),
		PeriodStart:    start,
		PeriodEnd:      start.AddDate(0, 1, 0),
	})
	if !errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound) {
		t.Fatalf("expected ErrSubscriptionNotFound, got %v", err)
	}
}

func TestChangePlanSupersedesCounter(t *testing.T) {
	svc, gdb, node := setupSubscriptions(t, &quotaStub{})
	seedPlan(t, gdb, node, "basic", 10)
	seedPlan(t, gdb, node, "pro", 50)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sub, err := svc.Activate(context.Background(), subscriptiondomain.ActivateRequest{
		UserID:      node.Generate(),
		PlanCode:    "basic",
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}

	// Consume a few generations on the old plan.
	if err := gdb.Exec(`UPDATE usage_counters SET count = 7 WHERE subject_id = ?`, sub.ID).Error; err != nil {
		t.Fatalf("seed usage: %v", err)
	}

	if _, err := svc.ChangePlan(context.Background(), subscriptiondomain.ChangePlanRequest{
		SubscriptionID: sub.ID,
		PlanCode:       "pro",
	}); err != nil {
		t.Fatalf("change plan: %v", err)
	}

	counter := activeCounter(t, gdb, sub.ID)
	if counter.GenerationLimit != 50 || counter.Count != 0 {
		t.Fatalf("expected fresh counter on new plan, got limit=%d count=%d", counter.GenerationLimit, counter.Count)
	}

	var superseded int64
	if err := gdb.Model(&counterdomain.UsageCounter{}).
		Where("subject_id = ? AND status = ?", sub.ID, counterdomain.CounterStatusSuperseded).
		Count(&superseded).Error; err != nil {
		t.Fatalf("count superseded: %v", err)
	}
	if superseded != 1 {
		t.Fatalf("expected 1 superseded counter, got %d", superseded)
	}
}
