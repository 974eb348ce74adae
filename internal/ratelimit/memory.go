package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/smallbiznis/paystub/internal/clock"
)

// MemoryBucket is the single-process counterpart of TokenBucket.
type MemoryBucket struct {
	mu      sync.Mutex
	clock   clock.Clock
	buckets map[string]*bucketState
}

type bucketState struct {
	tokens  float64
	updated time.Time
}

func NewMemoryBucket(clk clock.Clock) *MemoryBucket {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &MemoryBucket{
		clock:   clk,
		buckets: make(map[string]*bucketState),
	}
}

func (m *MemoryBucket) Allow(_ context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	if err := validateBucket(key, rate, burst); err != nil {
		return &RateLimitResult{Allowed: false}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	state, ok := m.buckets[key]
	if !ok {
		state = &bucketState{tokens: float64(burst), updated: now}
		m.buckets[key] = state
	} else {
		elapsed := now.Sub(state.updated).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		state.tokens = math.Min(float64(burst), state.tokens+elapsed*rate)
		state.updated = now
	}

	allowed := false
	if state.tokens >= 1 {
		allowed = true
		state.tokens--
	}
	return buildResult(allowed, state.tokens, rate, burst), nil
}
