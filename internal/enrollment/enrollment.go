// Package enrollment grows an account's set of known fingerprints.
package enrollment

import (
	"context"
	"fmt"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/account"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/fingerprint"
)

// Store is the slice of account.Store enrollment needs.
type Store interface {
	GetByID(ctx context.Context, id string) (*account.Account, error)
	UpdateFingerprints(ctx context.Context, id string, set fingerprint.Set) error
}

type Enroller struct {
	store Store
}

func New(store Store) *Enroller {
	return &Enroller{store: store}
}

// Enroll appends fp to the account's set unless an equal value is already
// enrolled. It reports whether the set changed. Entries are never removed or
// reordered. Concurrent enrollments are last-writer-wins.
func (e *Enroller) Enroll(ctx context.Context, accountID string, fp fingerprint.Fingerprint) (bool, error) {
	if fp.IsZero() {
		return false, fmt.Errorf("enrollment: %w", fingerprint.ErrInvalidFingerprint)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	a, err := e.store.GetByID(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("enrollment: load account: %w", err)
	}

	if a.Fingerprints.Contains(fp) {
		return false, nil
	}

	next := append(a.Fingerprints.Clone(), fp)
	if err := e.store.UpdateFingerprints(ctx, accountID, next); err != nil {
		return false, fmt.Errorf("enrollment: persist: %w", err)
	}
	return true, nil
}
