package store

import (
	"github.com/smallbiznis/paystub/internal/cache"
	"github.com/smallbiznis/paystub/internal/clock"
	"github.com/smallbiznis/paystub/internal/simulation/domain"
	"go.uber.org/zap"
)

// Provide picks the Redis store when Redis is configured.
func Provide(client *cache.Client, clk clock.Clock, log *zap.Logger) domain.Store {
	if raw := client.Raw(); raw != nil {
		log.Info("simulation sessions stored in redis")
		return NewRedisStore(raw)
	}
	return NewMemoryStore(clk)
}
