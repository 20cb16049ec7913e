package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brushworks/repaintly/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyLoginIdentifier = "auth:login:id:%s"
	keyWebhookLock     = "billing:webhook:lock:%s"
)

// LoginLimiter throttles credential attempts per identifier before they reach
// the lockout guard, and serializes webhook processing per event.
type LoginLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	loginRate  float64
	loginBurst int
	lockTTL    time.Duration
}

func NewLoginLimiter(cfg config.Config) (*LoginLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.LoginRate <= 0 || limitCfg.LoginBurst <= 0 {
		return nil, errors.New("login rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &LoginLimiter{
		enabled:    true,
		bucket:     NewTokenBucket(client),
		locker:     NewLocker(client),
		loginRate:  limitCfg.LoginRate,
		loginBurst: limitCfg.LoginBurst,
		lockTTL:    time.Duration(limitCfg.WebhookLockTTLSeconds) * time.Second,
	}, nil
}

func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowLogin reports whether another credential attempt for the identifier may
// proceed right now. A disabled limiter always allows.
func (l *LoginLimiter) AllowLogin(ctx context.Context, identifier string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyLoginIdentifier, strings.ToLower(strings.TrimSpace(identifier)))
	return l.bucket.Allow(ctx, key, l.loginRate, l.loginBurst)
}

// TryLockWebhook claims the processing lock for a billing event so replayed
// deliveries do not race each other.
func (l *LoginLimiter) TryLockWebhook(ctx context.Context, eventID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	key := fmt.Sprintf(keyWebhookLock, strings.TrimSpace(eventID))
	return l.locker.TryLock(ctx, key, l.lockTTL)
}

func (l *LoginLimiter) ReleaseWebhook(ctx context.Context, eventID, token string) error {
	if !l.Enabled() {
		return nil
	}
	key := fmt.Sprintf(keyWebhookLock, strings.TrimSpace(eventID))
	return l.locker.Release(ctx, key, token)
}
