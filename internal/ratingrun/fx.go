package ratingrun

import (
	"github.com/railzwaylabs/ratebook/internal/ratingrun/repository"
	"github.com/railzwaylabs/ratebook/internal/ratingrun/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ratingrun.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
