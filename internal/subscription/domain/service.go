package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrPlanNotFound         = errors.New("plan_not_found")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrInvalidPeriod        = errors.New("invalid_period")
	ErrAlreadyActive        = errors.New("subscription_already_active")
)

type ActivateRequest struct {
	UserID      snowflake.ID
	PlanCode    string
	PeriodStart time.Time
	PeriodEnd   time.Time
}

type RenewCycleRequest struct {
	SubscriptionID snowflake.ID
	PeriodStart    time.Time
	PeriodEnd      time.Time
}

type ChangePlanRequest struct {
	SubscriptionID snowflake.ID
	PlanCode       string
}

type Service interface {
	// Activate opens a subscription and creates its usage counter.
	Activate(ctx context.Context, req ActivateRequest) (*Subscription, error)

	// RenewCycle advances the billing period and zeroes the usage counter.
	// Driven by the billing provider's recurring-payment event. Idempotent
	// for a given period.
	RenewCycle(ctx context.Context, req RenewCycleRequest) error

	// ChangePlan supersedes the usage counter with a fresh one carrying the
	// new plan's limit.
	ChangePlan(ctx context.Context, req ChangePlanRequest) (*Subscription, error)
}
