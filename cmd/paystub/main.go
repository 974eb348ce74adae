package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/paystub/internal/clock"
	"github.com/smallbiznis/paystub/internal/config"
	"github.com/smallbiznis/paystub/internal/migration"
	"github.com/smallbiznis/paystub/internal/observability"
	"github.com/smallbiznis/paystub/internal/server"
	"github.com/smallbiznis/paystub/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface and the domain modules behind it
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
