package domain

import (
	"context"
	"time"
)

// Store persists sessions until they expire.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, session Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
