package account

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/fingerprint"
)

// MemoryStore keeps accounts in process. It backs the memory store driver
// and tests; records are copied in and out so callers never share state.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]*Account
	byEmail  map[string]string
	bySecret map[string]string
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]*Account),
		byEmail:  make(map[string]string),
		bySecret: make(map[string]string),
		now:      time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(a.Email)
	if _, ok := m.byEmail[email]; ok {
		return ErrAccountExists
	}
	if _, ok := m.byID[a.ID]; ok {
		return ErrAccountExists
	}

	now := m.now()
	a.CreatedAt, a.UpdatedAt = now, now

	m.byID[a.ID] = a.Clone()
	m.byEmail[email] = a.ID
	if a.SessionToken != "" {
		m.bySecret[a.SessionToken] = a.ID
	}
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.get(id)
}

func (m *MemoryStore) GetByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return m.get(id)
}

func (m *MemoryStore) GetBySessionToken(_ context.Context, token string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.bySecret[token]
	if !ok || token == "" {
		return nil, ErrNotFound
	}
	return m.get(id)
}

func (m *MemoryStore) UpdateFingerprints(_ context.Context, id string, set fingerprint.Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.Fingerprints = set.Clone()
	a.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) UpdateSessionToken(_ context.Context, id string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	if a.SessionToken != "" {
		delete(m.bySecret, a.SessionToken)
	}
	a.SessionToken = token
	a.UpdatedAt = m.now()
	if token != "" {
		m.bySecret[token] = id
	}
	return nil
}

func (m *MemoryStore) get(id string) (*Account, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}
