// Package spotify reads artist profiles from the Spotify Web API using the
// client-credentials grant.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/sydlexius/liner/internal/provider"
	"github.com/sydlexius/liner/internal/version"
)

const (
	defaultBaseURL  = "https://api.spotify.com/v1"
	defaultTokenURL = "https://accounts.spotify.com/api/token"
)

// Artist is the subset of the Spotify artist object the engine uses.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// Adapter calls the Spotify Web API. It implements provider.Refresher so
// the resilience guard can force a new token after a 401.
type Adapter struct {
	client  *http.Client
	guard   *provider.Guard
	logger  *slog.Logger
	baseURL string
	creds   *clientcredentials.Config

	mu     sync.Mutex
	tokens oauth2.TokenSource
}

// New creates a Spotify adapter against the public endpoints.
func New(guard *provider.Guard, logger *slog.Logger, clientID, clientSecret string) *Adapter {
	return NewWithEndpoints(guard, logger, clientID, clientSecret, defaultBaseURL, defaultTokenURL)
}

// NewWithEndpoints creates a Spotify adapter with custom API and token
// URLs (for testing). The adapter registers itself as the guard's
// refresher for the spotify source.
func NewWithEndpoints(guard *provider.Guard, logger *slog.Logger, clientID, clientSecret, baseURL, tokenURL string) *Adapter {
	a := &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		guard:   guard,
		logger:  logger.With(slog.String("provider", "spotify")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	if clientID != "" && clientSecret != "" {
		a.creds = &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		a.tokens = a.newTokenSource()
	}
	guard.SetRefresher(provider.SourceSpotify, a)
	return a
}

// SetTimeout overrides the HTTP client timeout.
func (a *Adapter) SetTimeout(d time.Duration) {
	if d > 0 {
		a.client.Timeout = d
	}
}

// Configured reports whether client credentials are present.
func (a *Adapter) Configured() bool { return a.creds != nil }

// ForceRefresh discards the cached token and fetches a new one.
func (a *Adapter) ForceRefresh(_ context.Context) error {
	if a.creds == nil {
		return &provider.ErrAuthRequired{Source: provider.SourceSpotify}
	}
	a.mu.Lock()
	a.tokens = a.newTokenSource()
	ts := a.tokens
	a.mu.Unlock()

	if _, err := ts.Token(); err != nil {
		return fmt.Errorf("fetching token: %w", err)
	}
	a.logger.Debug("access token refreshed")
	return nil
}

// Artist fetches one artist by Spotify id.
func (a *Adapter) Artist(ctx context.Context, id string) (*Artist, error) {
	if a.creds == nil {
		return nil, &provider.ErrAuthRequired{Source: provider.SourceSpotify}
	}
	if id == "" {
		return nil, &provider.ErrNotFound{Source: provider.SourceSpotify, ID: id}
	}
	reqURL := a.baseURL + "/artists/" + url.PathEscape(id)

	var body []byte
	err := a.guard.Do(ctx, provider.SourceSpotify, func(ctx context.Context) error {
		token, err := a.token()
		if err != nil {
			return &provider.ErrSourceUnavailable{Source: provider.SourceSpotify, Cause: fmt.Errorf("fetching token: %w", err)}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", version.UserAgent())
		req.Header.Set("Accept", "application/json")
		token.SetAuthHeader(req)

		resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + escaped id
		if err != nil {
			return &provider.ErrSourceUnavailable{Source: provider.SourceSpotify, Cause: err}
		}
		body, err = provider.ReadResponse(provider.SourceSpotify, id, resp)
		return err
	})
	if err != nil {
		return nil, err
	}

	var artist Artist
	if err := json.Unmarshal(body, &artist); err != nil {
		return nil, &provider.ErrSourceUnavailable{
			Source: provider.SourceSpotify,
			Cause:  fmt.Errorf("parsing artist response: %w", err),
		}
	}
	return &artist, nil
}

func (a *Adapter) token() (*oauth2.Token, error) {
	a.mu.Lock()
	ts := a.tokens
	a.mu.Unlock()
	return ts.Token()
}

// newTokenSource builds a caching token source bound to the adapter's HTTP
// client. It deliberately uses a background context: the source outlives
// any single request.
func (a *Adapter) newTokenSource() oauth2.TokenSource {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, a.client)
	return a.creds.TokenSource(ctx)
}
