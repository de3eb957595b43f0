// Package identity resolves the Discord user whose activity is mirrored.
//
// How the user authenticated (OAuth2 redirect, pasted token, config file) is
// not this package's concern. A Provider only answers "who is it right now",
// returning "" while nobody is authenticated.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// DiscordAPIURL is the endpoint returning the user owning an access token.
const DiscordAPIURL = "https://discord.com/api/users/@me"

// ErrUnauthorized is returned when Discord rejects the access token.
var ErrUnauthorized = errors.New("discord rejected the access token")

// Provider returns the identity key of the authenticated user.
type Provider interface {
	Identity(ctx context.Context) (string, error)
}

// Static is a fixed identity. The zero value means unauthenticated.
type Static string

// Identity returns the static id.
func (s Static) Identity(context.Context) (string, error) {
	return string(s), nil
}

// User is the subset of the Discord user object gymsync needs.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Discord resolves an OAuth2 access token to a Discord user id. The id is
// cached after the first successful lookup.
type Discord struct {
	token      string
	endpoint   string
	httpClient *http.Client

	mu   sync.Mutex
	user *User
}

// DiscordOption configures a Discord provider.
type DiscordOption func(*Discord)

// WithEndpoint overrides DiscordAPIURL.
func WithEndpoint(url string) DiscordOption {
	return func(d *Discord) {
		d.endpoint = url
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) DiscordOption {
	return func(d *Discord) {
		d.httpClient = hc
	}
}

// NewDiscord creates a provider for the given access token.
func NewDiscord(token string, opts ...DiscordOption) *Discord {
	d := &Discord{
		token:      token,
		endpoint:   DiscordAPIURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Identity returns the Discord user id for the token.
func (d *Discord) Identity(ctx context.Context) (string, error) {
	user, err := d.User(ctx)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// User returns the Discord user for the token, fetching it on first use.
func (d *Discord) User(ctx context.Context) (User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.user != nil {
		return *d.user, nil
	}
	if d.token == "" {
		return User{}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint, nil)
	if err != nil {
		return User{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.token)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("fetching discord user: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return User{}, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return User{}, fmt.Errorf("fetching discord user: unexpected status code: %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return User{}, fmt.Errorf("decoding discord user: %w", err)
	}
	if user.ID == "" {
		return User{}, errors.New("discord user has no id")
	}
	d.user = &user
	return user, nil
}
