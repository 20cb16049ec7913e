// Package domain contains persistence models for the usage and security counters.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Unlimited is the sentinel limit meaning "no limit".
const Unlimited int64 = -1

// CounterStatus represents lifecycle states for a usage counter.
type CounterStatus string

const (
	CounterStatusActive     CounterStatus = "ACTIVE"
	CounterStatusSuperseded CounterStatus = "SUPERSEDED"
)

// UsageCounter stores one subject's generation consumption within one billing cycle.
// The row is superseded (new row, old row flagged) on plan change, never rewritten.
type UsageCounter struct {
	ID              snowflake.ID      `gorm:"primaryKey"`
	SubjectID       snowflake.ID      `gorm:"column:subject_id;not null;index"`
	Count           int64             `gorm:"column:count;not null;default:0"`
	GenerationLimit int64             `gorm:"column:generation_limit;not null"`
	PeriodStart     time.Time         `gorm:"column:period_start;not null"`
	PeriodEnd       time.Time         `gorm:"column:period_end;not null"`
	Status          CounterStatus     `gorm:"type:text;not null;default:'ACTIVE'"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UsageCounter) TableName() string { return "usage_counters" }

// FailureRecord tracks consecutive authentication failures for one account.
// Absence of a row means zero failures.
type FailureRecord struct {
	AccountID      snowflake.ID `gorm:"primaryKey;column:account_id"`
	FailedAttempts int          `gorm:"column:failed_attempts;not null;default:0"`
	LockedUntil    *time.Time   `gorm:"column:locked_until"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FailureRecord) TableName() string { return "user_security" }
