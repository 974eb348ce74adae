package clientfeed

import (
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/paystub/internal/client/domain"
)

const (
	EventSnapshot = "snapshot"

	DefaultSubscriberBuffer = 4
)

var (
	ErrHubUnavailable = errors.New("hub_unavailable")
	ErrInvalidOwner   = errors.New("invalid_owner")
)

// Event carries the full ordered client list of one owner.
type Event struct {
	Type    string                `json:"type"`
	Clients []clientdomain.Client `json:"clients"`
	At      time.Time             `json:"at"`
}

// Hub fans snapshots out to the subscribers of each owner.
type Hub struct {
	mu               sync.RWMutex
	streams          map[snowflake.ID]*stream
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	subs   map[uint64]chan Event
	nextID uint64
}

type Subscription struct {
	hub     *Hub
	ownerID snowflake.ID
	id      uint64
	ch      chan Event
	once    sync.Once
	onClose func()
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[snowflake.ID]*stream),
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

// Publish delivers event to every subscriber of ownerID. A subscriber whose
// buffer is full loses its oldest pending event; the newest snapshot always
// lands.
func (h *Hub) Publish(ownerID snowflake.ID, event Event) {
	if h == nil || ownerID == 0 {
		return
	}
	h.mu.RLock()
	stream := h.streams[ownerID]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	subs := make([]chan Event, 0, len(stream.subs))
	for _, ch := range stream.subs {
		subs = append(subs, ch)
	}
	stream.mu.Unlock()

	for _, ch := range subs {
		deliver(ch, event)
	}
}

func deliver(ch chan Event, event Event) {
	select {
	case ch <- event:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- event:
	default:
	}
}

func (h *Hub) Subscribe(ownerID snowflake.ID) (*Subscription, error) {
	if h == nil {
		return nil, ErrHubUnavailable
	}
	if ownerID == 0 {
		return nil, ErrInvalidOwner
	}

	h.mu.Lock()
	current := h.streams[ownerID]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan Event)}
		h.streams[ownerID] = current
	}
	current.mu.Lock()
	id := current.nextID
	current.nextID++
	ch := make(chan Event, h.subscriberBuffer)
	current.subs[id] = ch
	current.mu.Unlock()
	h.mu.Unlock()

	return &Subscription{
		hub:     h,
		ownerID: ownerID,
		id:      id,
		ch:      ch,
	}, nil
}

// HasSubscribers reports whether anyone listens for ownerID.
func (h *Hub) HasSubscribers(ownerID snowflake.ID) bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	stream := h.streams[ownerID]
	h.mu.RUnlock()
	if stream == nil {
		return false
	}
	stream.mu.Lock()
	defer stream.mu.Unlock()
	return len(stream.subs) > 0
}

func (h *Hub) unsubscribe(ownerID snowflake.ID, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stream := h.streams[ownerID]
	if stream == nil {
		return
	}
	stream.mu.Lock()
	delete(stream.subs, id)
	empty := len(stream.subs) == 0
	stream.mu.Unlock()
	if empty {
		delete(h.streams, ownerID)
	}
}

func (s *Subscription) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.ch
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.ownerID, s.id)
		if s.onClose != nil {
			s.onClose()
		}
	})
}
