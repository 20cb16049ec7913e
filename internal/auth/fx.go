package auth

import (
	"github.com/brushworks/repaintly/internal/auth/repository"
	"github.com/brushworks/repaintly/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
