package bootstrap

import (
	"context"

	"github.com/railzwaylabs/ratebook/internal/config"
	"github.com/railzwaylabs/ratebook/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// EnsureSampleData publishes the bundled sample tables and scenarios on
// startup when explicitly enabled. Product types that already have a table
// are left alone.
func EnsureSampleData(lc fx.Lifecycle, cfg config.Config, seeder *seed.Seeder, log *zap.Logger) {
	if !cfg.Bootstrap.SeedSamples {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			summary, err := seeder.Run(ctx)
			if err != nil {
				return err
			}
			log.Info("sample data ensured",
				zap.Int("tables_published", summary.TablesPublished),
				zap.Int("tables_skipped", summary.TablesSkipped),
				zap.Int("scenarios", summary.Scenarios),
			)
			return nil
		},
	})
}
