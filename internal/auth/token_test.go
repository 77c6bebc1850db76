package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphmail/internal/config"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type tokenServer struct {
	*httptest.Server
	calls     atomic.Int32
	expiresIn int
	lastForm  map[string]string
	mu        sync.Mutex
}

func newTokenServer(t *testing.T, expiresIn int) *tokenServer {
	t.Helper()
	ts := &tokenServer{expiresIn: expiresIn}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := ts.calls.Add(1)
		assert.NoError(t, r.ParseForm())
		ts.mu.Lock()
		ts.lastForm = map[string]string{
			"client_id":     r.PostForm.Get("client_id"),
			"client_secret": r.PostForm.Get("client_secret"),
			"scope":         r.PostForm.Get("scope"),
			"grant_type":    r.PostForm.Get("grant_type"),
		}
		ts.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "token-" + string(rune('0'+n)),
			"token_type":   "Bearer",
			"expires_in":   ts.expiresIn,
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestManager(ts *tokenServer, clock *fakeClock) *Manager {
	return NewManager(
		WithTokenURL(ts.URL),
		WithHTTPClient(ts.Client()),
		WithClock(clock.Now),
	)
}

func TestGetAccessToken_RequestsClientCredentials(t *testing.T) {
	ts := newTokenServer(t, 3600)
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(ts, clock)

	token, err := m.GetAccessToken(context.Background(), "client-1", "tenant-1", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	ts.mu.Lock()
	defer ts.mu.Unlock()
	assert.Equal(t, "client-1", ts.lastForm["client_id"])
	assert.Equal(t, "s3cret", ts.lastForm["client_secret"])
	assert.Equal(t, GraphScope, ts.lastForm["scope"])
	assert.Equal(t, "client_credentials", ts.lastForm["grant_type"])
}

func TestGetAccessToken_ServesCacheOutsideSkew(t *testing.T) {
	ts := newTokenServer(t, 3600)
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(ts, clock)
	ctx := context.Background()

	first, err := m.GetAccessToken(ctx, "client", "tenant", "secret")
	require.NoError(t, err)

	// 5m01s before expiry: still cached.
	clock.Advance(3600*time.Second - RefreshSkew - time.Second)
	second, err := m.GetAccessToken(ctx, "client", "tenant", "secret")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, ts.calls.Load())
}

func TestGetAccessToken_RefreshesInsideSkew(t *testing.T) {
	ts := newTokenServer(t, 3600)
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(ts, clock)
	ctx := context.Background()

	_, err := m.GetAccessToken(ctx, "client", "tenant", "secret")
	require.NoError(t, err)

	// 4m59s before expiry: must refresh.
	clock.Advance(3600*time.Second - RefreshSkew + time.Second)
	token, err := m.GetAccessToken(ctx, "client", "tenant", "secret")
	require.NoError(t, err)

	assert.Equal(t, "token-2", token)
	assert.EqualValues(t, 2, ts.calls.Load())
}

func TestGetAccessToken_ExactlyAtSkewRefreshes(t *testing.T) {
	ts := newTokenServer(t, 3600)
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(ts, clock)
	ctx := context.Background()

	_, err := m.GetAccessToken(ctx, "client", "tenant", "secret")
	require.NoError(t, err)

	clock.Advance(3600*time.Second - RefreshSkew)
	_, err = m.GetAccessToken(ctx, "client", "tenant", "secret")
	require.NoError(t, err)

	assert.EqualValues(t, 2, ts.calls.Load())
}

func TestGetAccessToken_ShortLivedTokenIsNotReused(t *testing.T) {
	ts := newTokenServer(t, 240)
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(ts, clock)
	ctx := context.Background()

	_, err := m.GetAccessToken(ctx, "client", "tenant", "secret")
	require.NoError(t, err)
	_, err = m.GetAccessToken(ctx, "client", "tenant", "secret")
	require.NoError(t, err)

	assert.EqualValues(t, 2, ts.calls.Load())
}

func TestGetAccessToken_CacheIsKeyedByTenantAndClient(t *testing.T) {
	ts := newTokenServer(t, 3600)
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(ts, clock)
	ctx := context.Background()

	_, err := m.GetAccessToken(ctx, "client-a", "tenant", "secret")
	require.NoError(t, err)
	_, err = m.GetAccessToken(ctx, "client-b", "tenant", "secret")
	require.NoError(t, err)
	_, err = m.GetAccessToken(ctx, "client-a", "other-tenant", "secret")
	require.NoError(t, err)
	_, err = m.GetAccessToken(ctx, "CLIENT-A", "TENANT", "secret")
	require.NoError(t, err)

	assert.EqualValues(t, 3, ts.calls.Load())

	expiry, ok := m.Expiry("client-a", "tenant")
	require.True(t, ok)
	assert.WithinDuration(t, clock.Now().Add(time.Hour), expiry, time.Second)

	m.Invalidate("client-a", "tenant")
	_, ok = m.Expiry("client-a", "tenant")
	assert.False(t, ok)
}

func TestGetAccessToken_RejectedCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client","error_description":"AADSTS7000215: Invalid client secret provided."}`))
	}))
	defer srv.Close()

	m := NewManager(WithTokenURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := m.GetAccessToken(context.Background(), "client", "tenant", "wrong")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Contains(t, authErr.Body, "AADSTS7000215")
	assert.Contains(t, err.Error(), "invalid_client")
}

func TestGetAccessToken_MissingSettingsFailFast(t *testing.T) {
	m := NewManager(WithTokenURL("http://127.0.0.1:0/never-called"))
	ctx := context.Background()

	_, err := m.GetAccessToken(ctx, "", "tenant", "secret")
	assert.ErrorIs(t, err, config.ErrConfiguration)
	_, err = m.GetAccessToken(ctx, "client", " ", "secret")
	assert.ErrorIs(t, err, config.ErrConfiguration)
	_, err = m.GetAccessToken(ctx, "client", "tenant", "")
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestTokenURL(t *testing.T) {
	assert.Equal(t,
		"https://login.microsoftonline.com/contoso/oauth2/v2.0/token",
		NewManager().TokenURL("contoso"))
	assert.Equal(t,
		"https://login.microsoftonline.us/contoso/oauth2/v2.0/token",
		NewManager(WithAuthority("https://login.microsoftonline.us/")).TokenURL("contoso"))
	assert.Equal(t,
		"http://localhost/token",
		NewManager(WithTokenURL("http://localhost/token")).TokenURL("contoso"))
}

func TestGetAccessToken_ConcurrentCallers(t *testing.T) {
	ts := newTokenServer(t, 3600)
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(ts, clock)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := m.GetAccessToken(context.Background(), "client", "tenant", "secret")
			assert.NoError(t, err)
			assert.NotEmpty(t, token)
		}()
	}
	wg.Wait()

	// Duplicate refreshes are tolerated, but once settled the cache answers.
	before := ts.calls.Load()
	_, err := m.GetAccessToken(context.Background(), "client", "tenant", "secret")
	require.NoError(t, err)
	assert.Equal(t, before, ts.calls.Load())
}
