package counter

import (
	"github.com/brushworks/repaintly/internal/counter/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("counter.store",
	fx.Provide(repository.Provide),
)
