package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// EnforceSchemaGate fails fast during startup when the schema was not
// activated by the migrator.
func EnforceSchemaGate(lc fx.Lifecycle, gate SchemaGate, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := gate.MustBeActive(ctx); err != nil {
				log.Error("schema gate rejected startup, run `ratebook migrate` first", zap.Error(err))
				return err
			}
			return nil
		},
	})
}
