package lockout

import (
	"github.com/brushworks/repaintly/internal/lockout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lockout.service",
	fx.Provide(service.NewService),
)
