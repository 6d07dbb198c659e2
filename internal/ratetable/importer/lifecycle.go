package importer

import (
	"context"
	"strings"
	"sync"

	"github.com/railzwaylabs/ratebook/internal/config"
	"github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// StartWatcher runs a directory watcher for the lifetime of the app when
// IMPORT_WATCH_DIR is set.
func StartWatcher(lc fx.Lifecycle, cfg config.Config, imp *Importer, log *zap.Logger) {
	dir := strings.TrimSpace(cfg.Import.WatchDir)
	if dir == "" {
		return
	}

	w := NewWatcher(imp, log, dir, cfg.Import.Debounce, domain.PublishOptions{
		Activate:  cfg.Import.Activate,
		Supersede: cfg.Import.Supersede,
	})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := w.Run(ctx); err != nil {
					log.Error("rate table watcher stopped", zap.String("dir", dir), zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			wg.Wait()
			return nil
		},
	})
}
