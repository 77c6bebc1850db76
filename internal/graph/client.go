// Package graph talks to the Microsoft Graph mail endpoints on behalf of a
// single mailbox, using app-only tokens.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"graphmail/internal/config"
)

// DefaultBaseURL is the Graph v1.0 root.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

const defaultTimeout = 30 * time.Second

// TokenProvider hands out bearer tokens. *auth.Manager implements it.
type TokenProvider interface {
	GetAccessToken(ctx context.Context, clientID, tenantID, clientSecret string) (string, error)
}

type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Client carries the plumbing shared by Reader and Sender: base URL, mailbox,
// token lookup, pacing and error classification.
type Client struct {
	baseURL    string
	mailbox    string
	creds      Credentials
	tokens     TokenProvider
	httpClient *http.Client
	limiter    *RateLimiter
	logger     logrus.FieldLogger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimSpace(u); u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRateLimiter(l *RateLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a client for one mailbox. The mailbox is a UPN, SMTP
// address or user id.
func NewClient(tokens TokenProvider, creds Credentials, mailbox string, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, fmt.Errorf("%w: token provider is required", config.ErrConfiguration)
	}
	mailbox = strings.TrimSpace(mailbox)
	if mailbox == "" {
		return nil, fmt.Errorf("%w: mailbox is required", config.ErrConfiguration)
	}

	c := &Client{
		baseURL:    DefaultBaseURL,
		mailbox:    mailbox,
		creds:      creds,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = NewRateLimiter(defaultRequestsPerSecond, defaultBurst)
	}
	if c.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.logger = l
	}
	return c, nil
}

// NewClientFromConfig wires a client from the graph section of the config.
func NewClientFromConfig(cfg config.GraphConfig, tokens TokenProvider, opts ...Option) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := []Option{
		WithBaseURL(cfg.BaseURL),
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithRateLimiter(NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst)),
	}
	creds := Credentials{
		TenantID:     cfg.TenantID,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}
	return NewClient(tokens, creds, cfg.Mailbox, append(base, opts...)...)
}

// Mailbox returns the mailbox the client acts on.
func (c *Client) Mailbox() string {
	return c.mailbox
}

// userPath prefixes a mailbox-relative path with users/{mailbox}.
func userPath(mailbox string, parts ...string) string {
	segs := make([]string, 0, len(parts)+2)
	segs = append(segs, "users", url.PathEscape(mailbox))
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return strings.Join(segs, "/")
}

func (c *Client) path(parts ...string) string {
	return userPath(c.mailbox, parts...)
}

// do performs one request and returns the response body. Non-2xx responses
// come back as *RequestError; a 429 also arms the limiter for the next call.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	token, err := c.tokens.GetAccessToken(ctx, c.creds.ClientID, c.creds.TenantID, c.creds.ClientSecret)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	endpoint := c.baseURL + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.logger.WithFields(logrus.Fields{"method": method, "path": path})
	started := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Debug("graph request failed")
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": time.Since(started).String()})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusTooManyRequests {
			if wait := c.limiter.RecordThrottle(resp.Header); wait > 0 {
				log = log.WithField("retry_after", wait.String())
			}
		}
		log.Debug("graph request rejected")
		return nil, &RequestError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	log.Debug("graph request")
	return data, nil
}
