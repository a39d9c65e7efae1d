package spend

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/estateloyalty/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	Redis *redis.Client `optional:"true"`
}

// Provide builds the aggregator, wrapping it in the Redis cache only when
// both a Redis client and a positive SPEND_CACHE_TTL are configured.
func Provide(p Params) Aggregator {
	log := p.Log.Named("spend")
	client := NewClient(
		WithBaseURL(p.Cfg.SpendAPI.BaseURL),
		WithBearerToken(p.Cfg.SpendAPI.Token),
		WithTimeout(p.Cfg.SpendAPI.Timeout),
		WithLogger(log),
	)

	if p.Redis == nil || p.Cfg.SpendAPI.CacheTTL <= 0 {
		return client
	}
	log.Info("spend cache enabled", zap.Duration("ttl", p.Cfg.SpendAPI.CacheTTL))
	return NewCachedAggregator(client, p.Redis, p.Cfg.SpendAPI.CacheTTL, log)
}

var Module = fx.Module("spend.aggregator",
	fx.Provide(Provide),
)
