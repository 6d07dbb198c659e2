package ratetable

import (
	"github.com/railzwaylabs/ratebook/internal/ratetable/cache"
	"github.com/railzwaylabs/ratebook/internal/ratetable/importer"
	"github.com/railzwaylabs/ratebook/internal/ratetable/repository"
	"github.com/railzwaylabs/ratebook/internal/ratetable/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ratetable.service",
	fx.Provide(repository.Provide),
	fx.Provide(cache.New),
	fx.Provide(service.New),
	fx.Provide(importer.New),
)
