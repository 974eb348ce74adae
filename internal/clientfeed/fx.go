package clientfeed

import (
	clientdomain "github.com/smallbiznis/paystub/internal/client/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("clientfeed",
	fx.Provide(NewHub),
	fx.Provide(NewFeed),
	fx.Provide(func(f *Feed) clientdomain.ChangeNotifier { return f }),
	fx.Invoke(func(lc fx.Lifecycle, f *Feed) {
		lc.Append(fx.Hook{
			OnStart: f.Start,
			OnStop:  f.Stop,
		})
	}),
)
