package cache

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/paystub/internal/clock"
	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpires(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewTTLCacheWithClock[string, int](fake)

	c.Set("a", 1, time.Minute)
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, got)

	fake.Advance(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheSetSweepsAndDelete(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewTTLCacheWithClock[string, string](fake)

	c.Set("old", "x", time.Second)
	fake.Advance(2 * time.Second)
	c.Set("new", "y", time.Hour)
	assert.Equal(t, 1, c.Len())

	c.Delete("new")
	_, ok := c.Get("new")
	assert.False(t, ok)

	c.Set("zero", "z", 0)
	assert.Equal(t, 0, c.Len())
}

func TestNilClientHealthIsNoop(t *testing.T) {
	var c *Client
	assert.NoError(t, c.Health(context.Background()))
	assert.Nil(t, c.Raw())
}
