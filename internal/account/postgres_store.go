package account

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/fingerprint"
)

const uniqueViolation = "23505"

// Querier is the subset of *sql.DB the store needs.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PostgresStore struct {
	db Querier
}

func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectAccount = `
	SELECT id, email, username, password_hash, session_id, fingerprints, created_at, updated_at
	FROM users
`

func (s *PostgresStore) Create(ctx context.Context, a *Account) error {
	fps, err := encodeFingerprints(a.Fingerprints)
	if err != nil {
		return err
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, username, password_hash, session_id, fingerprints)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, a.ID, a.Email, a.Username, a.PasswordDigest, nullable(a.SessionToken), fps).
		Scan(&a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrAccountExists
		}
		return fmt.Errorf("account: create: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Account, error) {
	return s.getOne(ctx, selectAccount+` WHERE id = $1`, id)
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return s.getOne(ctx, selectAccount+` WHERE LOWER(email) = LOWER($1)`, email)
}

func (s *PostgresStore) GetBySessionToken(ctx context.Context, token string) (*Account, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.getOne(ctx, selectAccount+` WHERE session_id = $1`, token)
}

func (s *PostgresStore) UpdateFingerprints(ctx context.Context, id string, set fingerprint.Set) error {
	fps, err := encodeFingerprints(set)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET fingerprints = $2, updated_at = NOW()
		WHERE id = $1
	`, id, fps)
	if err != nil {
		return fmt.Errorf("account: update fingerprints: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) UpdateSessionToken(ctx context.Context, id string, token string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET session_id = $2, updated_at = NOW()
		WHERE id = $1
	`, id, nullable(token))
	if err != nil {
		return fmt.Errorf("account: update session: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) getOne(ctx context.Context, query string, arg string) (*Account, error) {
	var (
		a       Account
		session sql.NullString
		fps     []byte
	)

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.Username, &a.PasswordDigest, &session, &fps, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account: query: %w", err)
	}

	a.SessionToken = session.String
	if len(fps) > 0 {
		if err := json.Unmarshal(fps, &a.Fingerprints); err != nil {
			return nil, fmt.Errorf("account: decode fingerprints: %w", err)
		}
	}
	return &a, nil
}

func encodeFingerprints(set fingerprint.Set) ([]byte, error) {
	if set == nil {
		set = fingerprint.Set{}
	}
	b, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("account: encode fingerprints: %w", err)
	}
	return b, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("account: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
