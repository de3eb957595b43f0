// Package statusclient provides a client for the gymsync status API.
//
// The base URL points at the status collection, matching the BACKEND_URL
// used by the desktop client:
//
//	client, err := statusclient.New("http://localhost:3000/api/v1/status",
//		statusclient.WithAPIKey(apiKey))
//	snap, err := client.Get(ctx, discordID)
//	if errors.Is(err, statusclient.ErrNotFound) {
//		// nothing is being tracked for this identity
//	}
package statusclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/nomis52/gymsync/status"
)

// ErrNotFound matches any APIError with a 404 status code.
var ErrNotFound = errors.New("not found")

// ErrMalformedSnapshot is returned by Get when the response decodes but does
// not describe a valid snapshot: a field of the wrong type, or a missing or
// negative time.
var ErrMalformedSnapshot = errors.New("malformed status snapshot")

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Message)
}

// Is reports whether target is ErrNotFound and the response was a 404.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to the status API.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the bearer token sent on mutating requests.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for the given status collection URL.
func New(rawURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", rawURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = strings.TrimSuffix(u.RawPath, "/")

	c := &Client{
		baseURL:    u,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the status collection URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

type identityRequest struct {
	DiscordID string `json:"discord_id"`
}

type startRequest struct {
	DiscordID string      `json:"discord_id"`
	Status    startStatus `json:"status"`
}

type startStatus struct {
	Activity string `json:"activity"`
}

// snapshotResponse keeps time optional so a missing field can be told apart
// from zero.
type snapshotResponse struct {
	Activity string `json:"activity"`
	Time     *int64 `json:"time"`
	Paused   bool   `json:"paused"`
}

// Get fetches the current snapshot for id.
func (c *Client) Get(ctx context.Context, id string) (status.Snapshot, error) {
	var resp snapshotResponse
	err := c.do(ctx, http.MethodGet, []string{id}, nil, &resp)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return status.Snapshot{}, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	if err != nil {
		return status.Snapshot{}, err
	}
	if resp.Time == nil {
		return status.Snapshot{}, fmt.Errorf("%w: time is missing", ErrMalformedSnapshot)
	}
	if *resp.Time < 0 {
		return status.Snapshot{}, fmt.Errorf("%w: negative time %d", ErrMalformedSnapshot, *resp.Time)
	}
	return status.Snapshot{Activity: resp.Activity, Time: *resp.Time, Paused: resp.Paused}, nil
}

// Start begins a new activity for id.
func (c *Client) Start(ctx context.Context, id, activity string) error {
	body := startRequest{DiscordID: id, Status: startStatus{Activity: activity}}
	return c.do(ctx, http.MethodPost, nil, body, nil)
}

// Pause pauses the running activity for id.
func (c *Client) Pause(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, []string{"pause"}, identityRequest{DiscordID: id}, nil)
}

// Resume resumes the paused activity for id.
func (c *Client) Resume(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, []string{"resume"}, identityRequest{DiscordID: id}, nil)
}

// Stop removes the activity for id.
func (c *Client) Stop(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, []string{"stop"}, identityRequest{DiscordID: id}, nil)
}

// buildURL appends path segments to the base URL, escaping each one.
func (c *Client) buildURL(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.baseURL.JoinPath(escaped...).String()
}

func (c *Client) do(ctx context.Context, method string, segments []string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	target := c.buildURL(segments...)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" && method != http.MethodGet {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("status api request", "method", method, "url", target)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
