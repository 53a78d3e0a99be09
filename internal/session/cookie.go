package session

import (
	"net/http"
	"time"
)

const (
	CookieName = "sessionId"

	// DefaultMaxAge is the persistent cookie lifetime.
	DefaultMaxAge = 180 * 24 * time.Hour
)

// CookieOptions defines how session cookies are issued.
type CookieOptions struct {
	Path     string
	Domain   string
	MaxAge   time.Duration
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
}

// CookieOptionsFor returns the options the service issues cookies with;
// Secure is set only in production.
func CookieOptionsFor(production bool, maxAge time.Duration) CookieOptions {
	return CookieOptions{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
	}
}

func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	if !o.HttpOnly {
		o.HttpOnly = true
	}
	if o.MaxAge <= 0 {
		o.MaxAge = DefaultMaxAge
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// Cookie builds the session cookie carrying token.
func Cookie(token string, opts CookieOptions) *http.Cookie {
	opts = opts.normalize()

	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   int(opts.MaxAge / time.Second),
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	}
}

// ClearedCookie builds the cookie that removes the session cookie.
func ClearedCookie(opts CookieOptions) *http.Cookie {
	opts = opts.normalize()

	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   -1,
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	}
}

// TokenFromRequest returns the session token the request carries, or "".
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
