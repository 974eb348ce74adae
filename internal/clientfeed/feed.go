package clientfeed

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/paystub/internal/cache"
	clientdomain "github.com/smallbiznis/paystub/internal/client/domain"
	"github.com/smallbiznis/paystub/internal/clock"
	"github.com/smallbiznis/paystub/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChangesChannel is the Redis pub/sub channel carrying owner ids whose
// client list changed.
const ChangesChannel = "paystub:clients:changed"

type Params struct {
	fx.In

	Hub     *Hub
	DB      *gorm.DB
	Repo    clientdomain.Repository
	Log     *zap.Logger
	Clock   clock.Clock      `optional:"true"`
	Redis   *cache.Client    `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

// Feed keeps subscribers of the hub up to date with their client lists.
type Feed struct {
	hub     *Hub
	db      *gorm.DB
	repo    clientdomain.Repository
	log     *zap.Logger
	clock   clock.Clock
	redis   *cache.Client
	metrics *metrics.Metrics

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewFeed(p Params) *Feed {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Feed{
		hub:     p.Hub,
		db:      p.DB,
		repo:    p.Repo,
		log:     p.Log.Named("clientfeed"),
		clock:   clk,
		redis:   p.Redis,
		metrics: p.Metrics,
	}
}

// Subscribe attaches to ownerID's feed and returns the current snapshot.
func (f *Feed) Subscribe(ctx context.Context, ownerID snowflake.ID) (*Subscription, Event, error) {
	sub, err := f.hub.Subscribe(ownerID)
	if err != nil {
		return nil, Event{}, err
	}

	snapshot, err := f.Snapshot(ctx, ownerID)
	if err != nil {
		sub.Close()
		return nil, Event{}, err
	}

	f.metrics.FeedSubscribed(ctx, 1)
	sub.onClose = func() {
		f.metrics.FeedSubscribed(context.Background(), -1)
	}
	return sub, snapshot, nil
}

// Snapshot loads ownerID's clients ordered by name.
func (f *Feed) Snapshot(ctx context.Context, ownerID snowflake.ID) (Event, error) {
	items, err := f.repo.ListByUser(ctx, f.db, ownerID)
	if err != nil {
		return Event{}, err
	}
	clients := make([]clientdomain.Client, 0, len(items))
	for _, item := range items {
		if item != nil {
			clients = append(clients, *item)
		}
	}
	return Event{Type: EventSnapshot, Clients: clients, At: f.clock.Now()}, nil
}

// ClientsChanged implements clientdomain.ChangeNotifier. With Redis the
// change is broadcast so every replica refreshes its own subscribers.
func (f *Feed) ClientsChanged(ctx context.Context, userID snowflake.ID) {
	if userID == 0 {
		return
	}
	if raw := f.redis.Raw(); raw != nil {
		err := raw.Publish(ctx, ChangesChannel, userID.String()).Err()
		if err == nil {
			return
		}
		f.log.Warn("broadcast client change failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
	f.refresh(ctx, userID)
}

func (f *Feed) refresh(ctx context.Context, userID snowflake.ID) {
	if !f.hub.HasSubscribers(userID) {
		return
	}
	snapshot, err := f.Snapshot(context.WithoutCancel(ctx), userID)
	if err != nil {
		f.log.Warn("client snapshot failed", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	f.hub.Publish(userID, snapshot)
}

// Start listens for broadcast changes when Redis is configured.
func (f *Feed) Start(ctx context.Context) error {
	raw := f.redis.Raw()
	if raw == nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	pubsub := raw.Subscribe(ctx, ChangesChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return err
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-runCtx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				id, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil || id <= 0 {
					f.log.Debug("ignoring malformed client change", zap.String("payload", msg.Payload))
					continue
				}
				f.refresh(runCtx, snowflake.ID(id))
			}
		}
	}()

	f.log.Info("client feed bridged over redis", zap.String("channel", ChangesChannel))
	return nil
}

func (f *Feed) Stop(ctx context.Context) error {
	if f.cancel == nil {
		return nil
	}
	f.cancel()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
	return nil
}
