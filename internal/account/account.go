// Package account holds the user record and the stores that persist it.
package account

import (
	"context"
	"errors"
	"time"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/fingerprint"
)

var (
	ErrNotFound      = errors.New("account not found")
	ErrAccountExists = errors.New("account already exists")
)

// Account is the server-side user record. PasswordDigest holds the wrapped
// form produced by HashDigest, never the client digest itself.
type Account struct {
	ID             string
	Email          string
	Username       string
	PasswordDigest string
	SessionToken   string
	Fingerprints   fingerprint.Set
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone returns a copy that shares no slices with a.
func (a *Account) Clone() *Account {
	c := *a
	c.Fingerprints = a.Fingerprints.Clone()
	return &c
}

// Store is the keyed record store behind the auth flows. Lookups return
// ErrNotFound when no record matches.
type Store interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetBySessionToken(ctx context.Context, token string) (*Account, error)
	UpdateFingerprints(ctx context.Context, id string, set fingerprint.Set) error
	UpdateSessionToken(ctx context.Context, id string, token string) error
}
