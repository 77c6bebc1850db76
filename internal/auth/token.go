// Package auth acquires and caches OAuth client-credential tokens for
// Microsoft Graph.
//
// A Manager keeps one entry per (tenant, client) pair. A cached token is
// reused while its expiry is more than RefreshSkew away; after that the next
// caller requests a new one. The lock only guards the cache itself, so two
// callers may refresh the same entry at once and the last write wins.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"

	"graphmail/internal/config"
)

// GraphScope is the only scope requested; app permissions come from the
// app registration.
const GraphScope = "https://graph.microsoft.com/.default"

// RefreshSkew is how close to expiry a cached token may get before it is
// replaced.
const RefreshSkew = 5 * time.Minute

// ErrAuthentication is matched by every token endpoint rejection.
var ErrAuthentication = errors.New("authentication failed")

// AuthError carries the token endpoint's status and error body.
type AuthError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("token request failed: %v", e.Err)
	}
	return fmt.Sprintf("token request failed with status %d: %s", e.StatusCode, e.Body)
}

func (e *AuthError) Is(target error) bool { return target == ErrAuthentication }

func (e *AuthError) Unwrap() error { return e.Err }

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// Manager is safe for concurrent use. Construct one per process and share it
// between readers and senders.
type Manager struct {
	mu    sync.Mutex
	cache map[string]cachedToken

	httpClient *http.Client
	authority  string
	tokenURL   string
	now        func() time.Time
	logger     logrus.FieldLogger
}

type Option func(*Manager)

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithAuthority replaces login.microsoftonline.com, e.g. for national clouds.
func WithAuthority(host string) Option {
	return func(m *Manager) {
		m.authority = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(host), "https://"), "/")
	}
}

// WithTokenURL pins the token endpoint regardless of tenant.
func WithTokenURL(u string) Option {
	return func(m *Manager) { m.tokenURL = u }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		cache:      make(map[string]cachedToken),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		m.logger = l
	}
	return m
}

// GetAccessToken returns a bearer token for the app registration, serving it
// from the cache when possible.
func (m *Manager) GetAccessToken(ctx context.Context, clientID, tenantID, clientSecret string) (string, error) {
	clientID = strings.TrimSpace(clientID)
	tenantID = strings.TrimSpace(tenantID)
	switch {
	case clientID == "":
		return "", fmt.Errorf("%w: client id is required", config.ErrConfiguration)
	case tenantID == "":
		return "", fmt.Errorf("%w: tenant id is required", config.ErrConfiguration)
	case clientSecret == "":
		return "", fmt.Errorf("%w: client secret is required", config.ErrConfiguration)
	}

	key := cacheKey(tenantID, clientID)

	m.mu.Lock()
	entry, ok := m.cache[key]
	m.mu.Unlock()

	if ok && entry.expiresAt.Sub(m.now()) > RefreshSkew {
		return entry.token, nil
	}

	log := m.logger.WithFields(logrus.Fields{"tenant": tenantID, "client": clientID})
	log.Debug("requesting client credentials token")

	fresh, err := m.requestToken(ctx, clientID, tenantID, clientSecret)
	if err != nil {
		log.WithError(err).Debug("token request failed")
		return "", err
	}

	m.mu.Lock()
	m.cache[key] = fresh
	m.mu.Unlock()

	log.WithField("expires_at", fresh.expiresAt.Format(time.RFC3339)).Debug("cached token")
	return fresh.token, nil
}

// Expiry reports the cached expiry for a pair, if any.
func (m *Manager) Expiry(clientID, tenantID string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.cache[cacheKey(strings.TrimSpace(tenantID), strings.TrimSpace(clientID))]
	return entry.expiresAt, ok
}

// Invalidate drops the cached token for a pair so the next call refreshes.
func (m *Manager) Invalidate(clientID, tenantID string) {
	m.mu.Lock()
	delete(m.cache, cacheKey(strings.TrimSpace(tenantID), strings.TrimSpace(clientID)))
	m.mu.Unlock()
}

func (m *Manager) requestToken(ctx context.Context, clientID, tenantID, clientSecret string) (cachedToken, error) {
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     m.TokenURL(tenantID),
		Scopes:       []string{GraphScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	issuedAt := m.now()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	tok, err := cc.Token(ctx)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			status := 0
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			return cachedToken{}, &AuthError{StatusCode: status, Body: string(re.Body), Err: err}
		}
		return cachedToken{}, &AuthError{Err: err}
	}

	return cachedToken{token: tok.AccessToken, expiresAt: expiryOf(tok, issuedAt)}, nil
}

// TokenURL resolves the v2.0 token endpoint for a tenant.
func (m *Manager) TokenURL(tenantID string) string {
	if m.tokenURL != "" {
		return m.tokenURL
	}
	if m.authority != "" && m.authority != "login.microsoftonline.com" {
		return fmt.Sprintf("https://%s/%s/oauth2/v2.0/token", m.authority, tenantID)
	}
	return microsoft.AzureADEndpoint(tenantID).TokenURL
}

// expiryOf measures the server-declared lifetime against the manager's clock
// so an injected clock sees consistent expiries.
func expiryOf(tok *oauth2.Token, issuedAt time.Time) time.Time {
	if tok.ExpiresIn > 0 {
		return issuedAt.Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	if !tok.Expiry.IsZero() {
		return issuedAt.Add(time.Until(tok.Expiry))
	}
	return issuedAt
}

func cacheKey(tenantID, clientID string) string {
	return strings.ToLower(tenantID) + "|" + strings.ToLower(clientID)
}
