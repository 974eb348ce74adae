package simulation

import (
	"github.com/smallbiznis/paystub/internal/simulation/service"
	"github.com/smallbiznis/paystub/internal/simulation/store"
	"go.uber.org/fx"
)

var Module = fx.Module("simulation.service",
	fx.Provide(store.Provide),
	fx.Provide(service.New),
)
