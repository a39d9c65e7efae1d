package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estateloyalty/internal/cache"
	"github.com/smallbiznis/estateloyalty/internal/clock"
	"github.com/smallbiznis/estateloyalty/internal/config"
	"github.com/smallbiznis/estateloyalty/internal/deal"
	"github.com/smallbiznis/estateloyalty/internal/membership"
	"github.com/smallbiznis/estateloyalty/internal/migration"
	"github.com/smallbiznis/estateloyalty/internal/observability"
	"github.com/smallbiznis/estateloyalty/internal/ratelimit"
	"github.com/smallbiznis/estateloyalty/internal/server"
	"github.com/smallbiznis/estateloyalty/internal/session"
	"github.com/smallbiznis/estateloyalty/internal/spend"
	"github.com/smallbiznis/estateloyalty/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		cache.Module,
		clock.Module,
		migration.Module,

		// Membership engine
		spend.Module,
		deal.Module,
		session.Module,
		membership.Module,
		ratelimit.Module,

		server.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.SnowflakeNodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.SnowflakeNodeID, err)
	}
	return node, nil
}
