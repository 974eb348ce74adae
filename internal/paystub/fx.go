package paystub

import (
	"github.com/smallbiznis/paystub/internal/paystub/domain"
	"github.com/smallbiznis/paystub/internal/paystub/repository"
	"github.com/smallbiznis/paystub/internal/paystub/service"
	"github.com/smallbiznis/paystub/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("paystub.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(provideCommitLocker),
)

// provideCommitLocker yields a nil interface when Redis is not configured so
// commits run without a cross-replica lock.
func provideCommitLocker(locker *ratelimit.Locker) domain.CommitLocker {
	if locker == nil {
		return nil
	}
	return locker
}
