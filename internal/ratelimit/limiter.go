package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/paystub/internal/cache"
	"github.com/smallbiznis/paystub/internal/clock"
	"github.com/smallbiznis/paystub/internal/config"
	"go.uber.org/zap"
)

const (
	keyLoginIP      = "paystub:ratelimit:login:%s"
	keyDownloadUser = "paystub:ratelimit:download:%s"
)

// Bucket admits or rejects one request against a keyed bucket.
type Bucket interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error)
}

// Limits applies the login and download policies.
type Limits struct {
	bucket Bucket
	log    *zap.Logger

	loginRate     float64
	loginBurst    int
	downloadRate  float64
	downloadBurst int
}

// NewLimits uses the Redis bucket when Redis is configured, otherwise an
// in-process bucket.
func NewLimits(cfg config.Config, client *cache.Client, clk clock.Clock, log *zap.Logger) *Limits {
	var bucket Bucket = NewMemoryBucket(clk)
	if tb := NewTokenBucket(client); tb != nil {
		bucket = tb
	}
	return NewLimitsWith(cfg.RateLimit, bucket, log)
}

func NewLimitsWith(cfg config.RateLimitConfig, bucket Bucket, log *zap.Logger) *Limits {
	if log == nil {
		log = zap.NewNop()
	}

	loginBurst := cfg.LoginPerWindow
	if loginBurst <= 0 {
		loginBurst = 10
	}
	window := cfg.LoginWindow
	if window <= 0 {
		window = 10 * time.Minute
	}
	downloadRate := cfg.DownloadRate
	if downloadRate <= 0 {
		downloadRate = 1
	}
	downloadBurst := cfg.DownloadBurst
	if downloadBurst <= 0 {
		downloadBurst = 10
	}

	return &Limits{
		bucket:        bucket,
		log:           log.Named("ratelimit"),
		loginRate:     float64(loginBurst) / window.Seconds(),
		loginBurst:    loginBurst,
		downloadRate:  downloadRate,
		downloadBurst: downloadBurst,
	}
}

func (l *Limits) AllowLogin(ctx context.Context, ip string) (*RateLimitResult, error) {
	return l.allow(ctx, fmt.Sprintf(keyLoginIP, strings.TrimSpace(ip)), l.loginRate, l.loginBurst)
}

func (l *Limits) AllowDownload(ctx context.Context, userID string) (*RateLimitResult, error) {
	return l.allow(ctx, fmt.Sprintf(keyDownloadUser, strings.TrimSpace(userID)), l.downloadRate, l.downloadBurst)
}

// allow fails open when the backing store errors.
func (l *Limits) allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	if l == nil || l.bucket == nil {
		return &RateLimitResult{Allowed: true}, nil
	}
	res, err := l.bucket.Allow(ctx, key, rate, burst)
	if err != nil {
		l.log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
		return &RateLimitResult{Allowed: true}, err
	}
	return res, nil
}
