// Package domain defines the quota gate contract. The gate meters AI
// generations per subscription within a billing cycle.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNoActivePlan   = errors.New("no_active_plan")
	ErrQuotaExceeded  = errors.New("generation_limit_reached")
	ErrInvalidSubject = errors.New("invalid_subject")
)

// Reason explains a negative CheckQuota verdict.
type Reason string

const (
	ReasonNoActivePlan Reason = "no_active_plan"
	ReasonLimitReached Reason = "limit_reached"
)

// QuotaStatus is the advisory pre-flight view for UI purposes. It carries no
// admission guarantee; RecordUsage is the authoritative gate.
type QuotaStatus struct {
	CanProceed bool   `json:"canGenerate"`
	Used       int64  `json:"used"`
	Limit      int64  `json:"limit"`
	Remaining  int64  `json:"remaining"`
	Reason     Reason `json:"reason,omitempty"`
}

// UsageReceipt reports the outcome of an admitted generation.
type UsageReceipt struct {
	NewCount  int64 `json:"newCount"`
	Remaining int64 `json:"remaining"`
	// Degraded marks a fail-open admission taken while the counter store was
	// unreachable. The numbers are unknown in that case.
	Degraded bool `json:"-"`
}

// ResetCycleRequest advances a subject's counter into a new billing period.
type ResetCycleRequest struct {
	SubjectID   snowflake.ID
	PeriodStart time.Time
	PeriodEnd   time.Time
}

type Service interface {
	// CheckQuota is a side-effect-free read of the subject's quota position.
	CheckQuota(ctx context.Context, subjectID snowflake.ID) (QuotaStatus, error)

	// RecordUsage atomically re-verifies the limit and increments the counter.
	// Callers must treat ErrQuotaExceeded here as a post-hoc rejection of the
	// in-flight generation.
	RecordUsage(ctx context.Context, subjectID snowflake.ID) (*UsageReceipt, error)

	// ResetCycle zeroes the counter at billing-cycle rollover. Idempotent.
	ResetCycle(ctx context.Context, req ResetCycleRequest) error
}
