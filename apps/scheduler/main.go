package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/ratebook/internal/bootstrap"
	"github.com/railzwaylabs/ratebook/internal/clock"
	"github.com/railzwaylabs/ratebook/internal/config"
	"github.com/railzwaylabs/ratebook/internal/observability"
	"github.com/railzwaylabs/ratebook/internal/ratetable"
	"github.com/railzwaylabs/ratebook/internal/ratetable/importer"
	"github.com/railzwaylabs/ratebook/internal/redis"
	"github.com/railzwaylabs/ratebook/internal/resolver"
	"github.com/railzwaylabs/ratebook/internal/scheduler"
	"github.com/railzwaylabs/ratebook/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		resolver.Module,
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),

		// Rate tables are the only domain the jobs touch
		ratetable.Module,

		// No server module!
		scheduler.Module,
		fx.Invoke(importer.StartWatcher),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
