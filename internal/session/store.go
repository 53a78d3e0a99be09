// Package session issues the session cookie and caches token bindings.
package session

import (
	"context"
	"time"
)

// Binding maps a session token to the account that owns it. The account
// record stays authoritative; a binding only spares the lookup.
type Binding struct {
	Token     string    `json:"token"`
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store caches bindings. Get returns nil, nil on a miss.
type Store interface {
	Put(ctx context.Context, b Binding) error
	Get(ctx context.Context, token string) (*Binding, error)
	Delete(ctx context.Context, token string) error
}
