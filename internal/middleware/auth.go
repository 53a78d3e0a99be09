package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/account"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/session"
)

// ErrUnauthenticated is what a resolver returns for a token no account owns.
var ErrUnauthenticated = errors.New("middleware: unauthenticated")

type accountContextKey struct{}

// AccountFromContext returns the account RequireAuth resolved.
func AccountFromContext(ctx context.Context) (*account.Account, bool) {
	a, ok := ctx.Value(accountContextKey{}).(*account.Account)
	return a, ok && a != nil
}

// SessionResolver maps a session token to its account.
type SessionResolver interface {
	Account(ctx context.Context, token string) (*account.Account, error)
}

type AuthMiddleware struct {
	Resolver SessionResolver
	// IsUnauthenticated classifies resolver errors; others answer 500.
	IsUnauthenticated func(error) bool
}

func NewAuthMiddleware(resolver SessionResolver, isUnauthenticated func(error) bool) *AuthMiddleware {
	return &AuthMiddleware{Resolver: resolver, IsUnauthenticated: isUnauthenticated}
}

func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := session.TokenFromRequest(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Invalid session")
			return
		}

		acct, err := a.Resolver.Account(r.Context(), token)
		if err != nil {
			if a.unauthenticated(err) {
				writeError(w, http.StatusUnauthorized, "Invalid session")
				return
			}
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), accountContextKey{}, acct)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *AuthMiddleware) unauthenticated(err error) bool {
	if errors.Is(err, ErrUnauthenticated) || errors.Is(err, account.ErrNotFound) {
		return true
	}
	return a.IsUnauthenticated != nil && a.IsUnauthenticated(err)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
