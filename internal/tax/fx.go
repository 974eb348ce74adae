package tax

import (
	"github.com/smallbiznis/paystub/internal/config"
	taxdomain "github.com/smallbiznis/paystub/internal/tax/domain"
	"github.com/smallbiznis/paystub/internal/tax/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tax.service",
	fx.Provide(func(holder *config.TaxTableHolder) taxdomain.TableSource { return holder }),
	fx.Provide(service.New),
)
