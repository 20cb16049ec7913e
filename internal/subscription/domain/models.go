// Package domain contains persistence models for plans and subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Plan defines a purchasable tier and its monthly generation allowance.
// A generation limit of -1 means unlimited.
type Plan struct {
	ID              snowflake.ID      `gorm:"primaryKey"`
	Code            string            `gorm:"type:text;not null;uniqueIndex"`
	Name            string            `gorm:"type:text;not null"`
	GenerationLimit int64             `gorm:"column:generation_limit;not null"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPastDue  SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
)

// Subscription ties a user to a plan for a billing period. Its id is the
// subject key for the usage counter.
type Subscription struct {
	ID                 snowflake.ID       `gorm:"primaryKey"`
	UserID             snowflake.ID       `gorm:"column:user_id;not null;index"`
	PlanID             snowflake.ID       `gorm:"column:plan_id;not null;index"`
	Status             SubscriptionStatus `gorm:"type:text;not null"`
	CurrentPeriodStart time.Time          `gorm:"column:current_period_start;not null"`
	CurrentPeriodEnd   time.Time          `gorm:"column:current_period_end;not null"`
	Metadata           datatypes.JSONMap  `gorm:"type:jsonb"`
	CreatedAt          time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }
