package clientfeed

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/paystub/internal/client/domain"
	clientrepository "github.com/smallbiznis/paystub/internal/client/repository"
	"github.com/smallbiznis/paystub/internal/clock"
	"github.com/smallbiznis/paystub/internal/migration"
	"github.com/smallbiznis/paystub/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubDeliversToOwnerOnly(t *testing.T) {
	hub := NewHub()

	mine, err := hub.Subscribe(1)
	require.NoError(t, err)
	defer mine.Close()
	theirs, err := hub.Subscribe(2)
	require.NoError(t, err)
	defer theirs.Close()

	hub.Publish(1, Event{Type: EventSnapshot})

	select {
	case ev := <-mine.Events():
		assert.Equal(t, EventSnapshot, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}
	select {
	case <-theirs.Events():
		t.Fatal("unexpected event for other owner")
	default:
	}
}

func TestHubKeepsNewestWhenBufferFull(t *testing.T) {
	hub := NewHub()
	sub, err := hub.Subscribe(1)
	require.NoError(t, err)
	defer sub.Close()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < DefaultSubscriberBuffer+3; i++ {
		hub.Publish(1, Event{Type: EventSnapshot, At: base.Add(time.Duration(i) * time.Second)})
	}

	var last Event
	for len(sub.Events()) > 0 {
		last = <-sub.Events()
	}
	assert.Equal(t, base.Add(time.Duration(DefaultSubscriberBuffer+2)*time.Second), last.At)
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	hub := NewHub()
	sub, err := hub.Subscribe(7)
	require.NoError(t, err)
	assert.True(t, hub.HasSubscribers(7))

	sub.Close()
	sub.Close()
	assert.False(t, hub.HasSubscribers(7))

	_, err = hub.Subscribe(0)
	assert.ErrorIs(t, err, ErrInvalidOwner)

	var nilHub *Hub
	_, err = nilHub.Subscribe(1)
	assert.ErrorIs(t, err, ErrHubUnavailable)
}

func TestFeedSnapshotsOnChange(t *testing.T) {
	conn, err := db.NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))

	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	repo := clientrepository.Provide()
	feed := NewFeed(Params{
		Hub:   NewHub(),
		DB:    conn,
		Repo:  repo,
		Log:   zap.NewNop(),
		Clock: fake,
	})

	ctx := context.Background()
	owner := snowflake.ID(5)

	sub, initial, err := feed.Subscribe(ctx, owner)
	require.NoError(t, err)
	defer sub.Close()
	assert.Equal(t, EventSnapshot, initial.Type)
	assert.Empty(t, initial.Clients)

	for i, name := range []string{"Zed", "Amy"} {
		require.NoError(t, repo.Insert(ctx, conn, &clientdomain.Client{
			ID:          snowflake.ID(100 + i),
			UserID:      owner,
			Name:        name,
			Region:      "TX",
			HourlyRate:  decimal.NewFromInt(10),
			CreatedAt:   fake.Now(),
			LastUpdated: fake.Now(),
		}))
	}
	feed.ClientsChanged(ctx, owner)

	select {
	case ev := <-sub.Events():
		require.Len(t, ev.Clients, 2)
		assert.Equal(t, "Amy", ev.Clients[0].Name)
		assert.Equal(t, "Zed", ev.Clients[1].Name)
	case <-time.After(time.Second):
		t.Fatal("expected snapshot after change")
	}

	assert.NoError(t, feed.Start(ctx))
	assert.NoError(t, feed.Stop(ctx))
}
