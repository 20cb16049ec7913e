package main

import (
	"github.com/brushworks/repaintly/internal/auth"
	"github.com/brushworks/repaintly/internal/clock"
	"github.com/brushworks/repaintly/internal/config"
	"github.com/brushworks/repaintly/internal/counter"
	"github.com/brushworks/repaintly/internal/identity"
	"github.com/brushworks/repaintly/internal/lockout"
	"github.com/brushworks/repaintly/internal/logger"
	"github.com/brushworks/repaintly/internal/metrics"
	"github.com/brushworks/repaintly/internal/migration"
	"github.com/brushworks/repaintly/internal/quota"
	"github.com/brushworks/repaintly/internal/ratelimit"
	"github.com/brushworks/repaintly/internal/server"
	"github.com/brushworks/repaintly/internal/subscription"
	"github.com/brushworks/repaintly/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,
		migration.Module,

		counter.Module,
		identity.Module,
		lockout.Module,
		quota.Module,
		auth.Module,
		subscription.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
