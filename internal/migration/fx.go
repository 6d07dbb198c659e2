package migration

import (
	"context"

	"github.com/railzwaylabs/ratebook/internal/config"
	"github.com/railzwaylabs/ratebook/internal/resolver"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Cfg      config.Config
	Log      *zap.Logger
	Registry *resolver.Registry
}

var Module = fx.Module("migrations",
	fx.Invoke(Apply),
)

// Apply migrates the configured database: SQL migrations on postgres, model
// based auto-migration elsewhere.
func Apply(p Params) error {
	log := p.Log.Named("migration")
	products := p.Registry.List()

	if p.Cfg.Database.Driver != config.DriverPostgres {
		log.Info("auto-migrating schema", zap.String("driver", p.Cfg.Database.Driver))
		return AutoMigrate(context.Background(), p.DB, products)
	}

	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	if err := RunMigrations(sqlDB, products); err != nil {
		return err
	}
	manifest, err := BuildManifest(products)
	if err != nil {
		return err
	}
	log.Info("migrations applied",
		zap.Uint("schema_version", manifest.SchemaVersion),
		zap.String("engine_version", manifest.EngineVersion),
		zap.String("resolvers", manifest.ResolverSet),
	)
	return nil
}
