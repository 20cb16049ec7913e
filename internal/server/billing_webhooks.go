package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/brushworks/repaintly/internal/subscription/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type billingWebhookEvent struct {
	ID   string             `json:"id"`
	Type string             `json:"type"`
	Data billingWebhookData `json:"data"`
}

type billingWebhookData struct {
	UserID         string    `json:"user_id"`
	SubscriptionID string    `json:"subscription_id"`
	PlanCode       string    `json:"plan_code"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
}

// HandleBillingWebhook processes billing provider events. Recurring payment
// resets the generation counter for the new cycle; plan changes supersede it.
func (s *Server) HandleBillingWebhook(c *gin.Context) {
	var event billingWebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()

	if eventID := strings.TrimSpace(event.ID); eventID != "" && s.loginLimiter.Enabled() {
		token, ok, err := s.loginLimiter.TryLockWebhook(ctx, eventID)
		if err != nil {
			s.log.Warn("webhook lock unavailable", zap.String("event_id", eventID), zap.Error(err))
		} else if !ok {
			c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
			return
		} else {
			defer func() {
				if err := s.loginLimiter.ReleaseWebhook(ctx, eventID, token); err != nil {
					s.log.Warn("webhook lock release failed", zap.String("event_id", eventID), zap.Error(err))
				}
			}()
		}
	}

	switch event.Type {
	case "checkout.session.completed":
		userID, err := snowflake.ParseString(strings.TrimSpace(event.Data.UserID))
		if err != nil {
			AbortWithError(c, newValidationError("user_id", "invalid_user_id", "user_id is required"))
			return
		}
		_, err = s.subscriptionsvc.Activate(ctx, subscriptiondomain.ActivateRequest{
			UserID:      userID,
			PlanCode:    event.Data.PlanCode,
			PeriodStart: event.Data.PeriodStart,
			PeriodEnd:   event.Data.PeriodEnd,
		})
		if errors.Is(err, subscriptiondomain.ErrAlreadyActive) {
			// Providers retry on non-2xx; a replayed activation is a duplicate, not a failure.
			s.log.Info("activation replay acked",
				zap.String("event_id", event.ID),
				zap.String("user_id", event.Data.UserID),
			)
			c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
			return
		}
		if err != nil {
			AbortWithError(c, err)
			return
		}

	case "invoice.payment_succeeded":
		subID, err := snowflake.ParseString(strings.TrimSpace(event.Data.SubscriptionID))
		if err != nil {
			AbortWithError(c, newValidationError("subscription_id", "invalid_subscription_id", "subscription_id is required"))
			return
		}
		err = s.subscriptionsvc.RenewCycle(ctx, subscriptiondomain.RenewCycleRequest{
			SubscriptionID: subID,
			PeriodStart:    event.Data.PeriodStart,
			PeriodEnd:      event.Data.PeriodEnd,
		})
		if errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound) {
			// Ack unknown subscriptions so the provider stops retrying.
			s.log.Warn("renewal for unknown subscription",
				zap.String("event_id", event.ID),
				zap.String("subscription_id", event.Data.SubscriptionID),
			)
		} else if err != nil {
			AbortWithError(c, err)
			return
		}

	case "customer.subscription.updated":
		subID, err := snowflake.ParseString(strings.TrimSpace(event.Data.SubscriptionID))
		if err != nil {
			AbortWithError(c, newValidationError("subscription_id", "invalid_subscription_id", "subscription_id is required"))
			return
		}
		_, err = s.subscriptionsvc.ChangePlan(ctx, subscriptiondomain.ChangePlanRequest{
			SubscriptionID: subID,
			PlanCode:       event.Data.PlanCode,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}

	default:
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
