// Package remote is the HTTP client for the notifications API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/colonyops/inbox/internal/core/logging"
	"github.com/colonyops/inbox/internal/core/notification"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
	userAgent      = "inbox-client"
)

// Config configures a Client.
type Config struct {
	BaseURL   string        `yaml:"base_url"   env:"BASE_URL"`
	Token     string        `yaml:"token"      env:"TOKEN"`
	Timeout   time.Duration `yaml:"timeout"    env:"TIMEOUT"`
	RateLimit float64       `yaml:"rate_limit" env:"RATE_LIMIT"`
	Burst     int           `yaml:"burst"      env:"BURST"`
}

// DefaultConfig returns the client defaults. BaseURL is left empty.
func DefaultConfig() Config {
	return Config{
		Timeout:   defaultTimeout,
		RateLimit: 0,
		Burst:     1,
	}
}

// ListParams are the query parameters of GET /notifications. Zero values are
// omitted.
type ListParams struct {
	Type   notification.Type
	IsRead *bool
	Page   int
	Limit  int
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Type != "" {
		q.Set("type", string(p.Type))
	}
	if p.IsRead != nil {
		q.Set("isRead", strconv.FormatBool(*p.IsRead))
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

// Client talks to the notifications API. It is safe for concurrent use.
type Client struct {
	base      *url.URL
	token     string
	timeout   time.Duration
	http      *http.Client
	limiter   *rate.Limiter
	logger    zerolog.Logger
	requestID func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRequestIDFunc overrides X-Request-ID generation.
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) { c.requestID = fn }
}

// New creates a client for cfg.BaseURL.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("remote: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("remote: unsupported scheme %q", base.Scheme)
	}

	c := &Client{
		base:      base,
		token:     cfg.Token,
		timeout:   cfg.Timeout,
		http:      &http.Client{},
		logger:    zerolog.Nop(),
		requestID: uuid.NewString,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// List fetches a page of notifications.
func (c *Client) List(ctx context.Context, params ListParams) (ListResponse, error) {
	var env listEnvelope
	if err := c.do(ctx, http.MethodGet, "/notifications", params.values(), nil, &env); err != nil {
		return ListResponse{}, err
	}
	switch {
	case env.Notifications == nil:
		return ListResponse{}, fmt.Errorf("list: %w: missing notifications", ErrMalformedEnvelope)
	case env.UnreadCount == nil:
		return ListResponse{}, fmt.Errorf("list: %w: missing unreadCount", ErrMalformedEnvelope)
	}

	out := ListResponse{
		Notifications: *env.Notifications,
		UnreadCount:   *env.UnreadCount,
		Pagination:    env.Pagination,
	}
	for i := range out.Notifications {
		out.Notifications[i].Synced = true
	}
	return out, nil
}

// UnreadCount fetches the server-side unread count.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out UnreadCountEnvelope
	if err := c.do(ctx, http.MethodGet, "/notifications/unread-count", nil, nil, &out); err != nil {
		return 0, err
	}
	if out.UnreadCount == nil {
		return 0, fmt.Errorf("unread count: %w: missing unreadCount", ErrMalformedEnvelope)
	}
	return *out.UnreadCount, nil
}

// MarkRead marks one notification read.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	var out MessageEnvelope
	return c.do(ctx, http.MethodPut, "/notifications/"+url.PathEscape(id)+"/read", nil, nil, &out)
}

// MarkAllRead marks every notification read and returns how many changed.
func (c *Client) MarkAllRead(ctx context.Context) (int, error) {
	var out MarkAllReadEnvelope
	if err := c.do(ctx, http.MethodPut, "/notifications/read-all", nil, nil, &out); err != nil {
		return 0, err
	}
	if out.MarkedCount == nil {
		return 0, fmt.Errorf("mark all read: %w: missing markedCount", ErrMalformedEnvelope)
	}
	return *out.MarkedCount, nil
}

// Delete removes one notification.
func (c *Client) Delete(ctx context.Context, id string) error {
	var out MessageEnvelope
	return c.do(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil, nil, &out)
}

// DeleteAll removes every notification and returns how many were removed.
func (c *Client) DeleteAll(ctx context.Context) (int, error) {
	var out DeleteAllEnvelope
	if err := c.do(ctx, http.MethodDelete, "/notifications/all", nil, nil, &out); err != nil {
		return 0, err
	}
	if out.DeletedCount == nil {
		return 0, fmt.Errorf("delete all: %w: missing deletedCount", ErrMalformedEnvelope)
	}
	return *out.DeletedCount, nil
}

// Preferences fetches the stored notification settings.
func (c *Client) Preferences(ctx context.Context) (notification.Preferences, error) {
	var out notification.Preferences
	if err := c.do(ctx, http.MethodGet, "/notifications/settings", nil, nil, &out); err != nil {
		return notification.Preferences{}, err
	}
	if out.Types == nil {
		return notification.Preferences{}, fmt.Errorf("preferences: %w: missing types", ErrMalformedEnvelope)
	}
	return out, nil
}

// UpdatePreferences applies patch on the server and returns the merged
// settings.
func (c *Client) UpdatePreferences(ctx context.Context, patch notification.PreferencesPatch) (notification.Preferences, error) {
	var out PreferencesEnvelope
	if err := c.do(ctx, http.MethodPut, "/notifications/settings", nil, patch, &out); err != nil {
		return notification.Preferences{}, err
	}
	if out.Preferences == nil || out.Preferences.Types == nil {
		return notification.Preferences{}, fmt.Errorf("update preferences: %w: missing preferences", ErrMalformedEnvelope)
	}
	return *out.Preferences, nil
}

// Create pushes a locally created record. Any 2xx response without a failure
// marker is success; the echoed record is not decoded.
func (c *Client) Create(ctx context.Context, rec notification.Record) error {
	return c.do(ctx, http.MethodPost, "/notifications", nil, rec, nil)
}

// Health pings the liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s %s: rate limit: %w", method, path, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("%s %s: create request: %w", method, path, err)
	}

	reqID := c.requestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logCtx := logging.WithRequestID(ctx, reqID)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Ctx(logCtx).Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("close response body")
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	c.logger.Debug().
		Ctx(logCtx).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			RequestID:  reqID,
		}
		var env MessageEnvelope
		if json.Unmarshal(data, &env) == nil {
			serr.Message = env.Error
			if serr.Message == "" {
				serr.Message = env.Message
			}
		}
		return serr
	}

	if err := checkFailureMarkers(data); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%s %s: %w: empty body", method, path, ErrMalformedEnvelope)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrMalformedEnvelope, err)
	}
	return nil
}

// checkFailureMarkers rejects a 2xx body that reports a failure through
// "success": false or a non-empty "error". Bodies that are not JSON objects
// are left to the caller's decode.
func checkFailureMarkers(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var env statusEnvelope
	if json.Unmarshal(trimmed, &env) != nil {
		return nil
	}
	switch {
	case env.Error != "":
		return fmt.Errorf("%w: %s", ErrMalformedEnvelope, env.Error)
	case env.Success != nil && !*env.Success:
		return fmt.Errorf("%w: success is false", ErrMalformedEnvelope)
	}
	return nil
}
