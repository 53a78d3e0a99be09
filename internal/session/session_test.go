package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	b := Binding{Token: "tok", AccountID: "acct-1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.Put(ctx, b))
	assert.True(t, mr.Exists("session:tok"))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL("session:tok").Seconds(), 2)

	got, err := s.Get(ctx, "tok")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "acct-1", got.AccountID)

	require.NoError(t, s.Delete(ctx, "tok"))
	got, err = s.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_Expires(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	require.NoError(t, s.Put(ctx, Binding{Token: "tok", AccountID: "a", ExpiresAt: time.Now().Add(time.Minute)}))
	mr.FastForward(2 * time.Minute)

	got, err := s.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_RejectsInvalidBinding(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	assert.Error(t, s.Put(ctx, Binding{AccountID: "a", ExpiresAt: time.Now().Add(time.Minute)}))
	assert.Error(t, s.Put(ctx, Binding{Token: "tok", AccountID: "a", ExpiresAt: time.Now().Add(-time.Minute)}))
}

func TestRedisStore_CorruptValue(t *testing.T) {
	s, mr := newRedisStore(t)
	require.NoError(t, mr.Set("session:bad", "{not json"))

	_, err := s.Get(context.Background(), "bad")
	assert.Error(t, err)
}

func TestCookie_Attributes(t *testing.T) {
	rec := httptest.NewRecorder()
	http.SetCookie(rec, Cookie("tok", CookieOptionsFor(true, DefaultMaxAge)))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 180*24*60*60, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestCookie_DevelopmentNotSecure(t *testing.T) {
	c := Cookie("tok", CookieOptionsFor(false, 0))
	assert.False(t, c.Secure)
	assert.Equal(t, int(DefaultMaxAge/time.Second), c.MaxAge)
}

func TestClearedCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	http.SetCookie(rec, ClearedCookie(CookieOptionsFor(false, DefaultMaxAge)))

	c := rec.Result().Cookies()[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Empty(t, c.Value)
	assert.Equal(t, -1, c.MaxAge)
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(req))

	req.AddCookie(&http.Cookie{Name: CookieName, Value: "tok"})
	assert.Equal(t, "tok", TokenFromRequest(req))
}

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}
