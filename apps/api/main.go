// @title           Ratebook API
// @version         1.0
// @description     Insurance rating engine: rate scenarios, manage rate tables, read the audit trail
// @termsOfService  http://swagger.io/terms/

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @Schemes 	http https

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/ratebook/internal/bootstrap"
	"github.com/railzwaylabs/ratebook/internal/clock"
	"github.com/railzwaylabs/ratebook/internal/config"
	"github.com/railzwaylabs/ratebook/internal/observability"
	"github.com/railzwaylabs/ratebook/internal/rating"
	"github.com/railzwaylabs/ratebook/internal/ratetable"
	"github.com/railzwaylabs/ratebook/internal/ratingrun"
	"github.com/railzwaylabs/ratebook/internal/redis"
	"github.com/railzwaylabs/ratebook/internal/resolver"
	"github.com/railzwaylabs/ratebook/internal/scenario"
	"github.com/railzwaylabs/ratebook/internal/server"
	"github.com/railzwaylabs/ratebook/pkg/db"
	"go.uber.org/fx"
)

// The API binary serves HTTP only; cache warming and table expiry run in
// apps/scheduler.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),

		resolver.Module,
		scenario.Module,
		ratetable.Module,
		ratingrun.Module,
		rating.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
