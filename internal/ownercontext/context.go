// Package ownercontext carries the signed-in user that owns the clients a
// request touches.
package ownercontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type ownerKey struct{}

// Owner identifies the signed-in user.
type Owner struct {
	UserID snowflake.ID
	Email  string
}

// WithOwner stores the owner in the context.
func WithOwner(ctx context.Context, owner Owner) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// FromContext returns the owner, if set and non-zero.
func FromContext(ctx context.Context) (Owner, bool) {
	if ctx == nil {
		return Owner{}, false
	}
	owner, ok := ctx.Value(ownerKey{}).(Owner)
	if !ok || owner.UserID == 0 {
		return Owner{}, false
	}
	return owner, true
}

// UserIDFromContext returns only the owner's user id.
func UserIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	owner, ok := FromContext(ctx)
	return owner.UserID, ok
}
