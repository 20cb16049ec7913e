package identity

import (
	"github.com/brushworks/repaintly/internal/identity/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.resolver",
	fx.Provide(repository.Provide),
)
