package store

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/paystub/internal/clock"
	"github.com/smallbiznis/paystub/internal/simulation/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryStoreExpiresSessions(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewMemoryStore(fake)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, domain.Session{ID: "a", OwnerID: 1}, time.Minute))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	got.OwnerID = 99
	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, again.OwnerID)

	fake.Advance(time.Minute)
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, domain.Session{ID: "b"}, time.Hour))
	require.NoError(t, s.Delete(ctx, "b"))
	_, err := s.Get(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestProvideFallsBackToMemory(t *testing.T) {
	assert.IsType(t, &MemoryStore{}, Provide(nil, nil, zap.NewNop()))
}
