package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/estateloyalty/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyRefreshSession = "estateloyalty:refresh:session:%s"

// Bucket is satisfied by *TokenBucket.
type Bucket interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error)
}

// RefreshLimiter throttles membership refreshes per session so a chatty
// client cannot hammer the spend API. A nil limiter allows everything.
type RefreshLimiter struct {
	bucket Bucket
	rate   float64
	burst  int
	log    *zap.Logger
}

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	Redis *redis.Client `optional:"true"`
}

// NewRefreshLimiter returns nil unless Redis and a positive refresh rate are configured.
func NewRefreshLimiter(p Params) *RefreshLimiter {
	limitCfg := p.Cfg.RefreshRateLimit
	if p.Redis == nil || limitCfg.Rate <= 0 {
		return nil
	}
	burst := limitCfg.Burst
	if burst <= 0 {
		burst = 1
	}

	log := p.Log.Named("ratelimit.refresh")
	log.Info("refresh rate limit enabled", zap.Float64("rate", limitCfg.Rate), zap.Int("burst", burst))
	return NewRefreshLimiterWith(NewTokenBucket(p.Redis), limitCfg.Rate, burst, log)
}

func NewRefreshLimiterWith(bucket Bucket, rate float64, burst int, log *zap.Logger) *RefreshLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RefreshLimiter{bucket: bucket, rate: rate, burst: burst, log: log}
}

func (l *RefreshLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowSession takes one token for sessionID. Redis failures let the request through.
func (l *RefreshLimiter) AllowSession(ctx context.Context, sessionID string) *RateLimitResult {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}
	}

	key := fmt.Sprintf(keyRefreshSession, strings.TrimSpace(sessionID))
	res, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		l.log.Warn("refresh rate limit check failed, allowing", zap.String("session_id", sessionID), zap.Error(err))
		return &RateLimitResult{Allowed: true, Limit: l.burst}
	}
	return res
}
