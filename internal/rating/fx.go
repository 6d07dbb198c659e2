package rating

import (
	"github.com/railzwaylabs/ratebook/internal/rating/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rating.service",
	fx.Provide(service.NewResultCache),
	fx.Provide(service.New),
)
