package scenario

import (
	"github.com/railzwaylabs/ratebook/internal/scenario/repository"
	"github.com/railzwaylabs/ratebook/internal/scenario/service"
	"go.uber.org/fx"
)

var Module = fx.Module("scenario.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
