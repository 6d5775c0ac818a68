// Package flo looks up Korean artist names on the FLO streaming service's
// web search API. Results are low trust: the API is unofficial and matches
// loosely.
package flo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sydlexius/liner/internal/provider"
)

const (
	defaultBaseURL = "https://www.music-flo.com/api"
	webOrigin      = "https://www.music-flo.com"
	browserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Result is what FLO knows about an artist.
type Result struct {
	LocalizedName string
	Group         string
}

// Adapter queries the FLO integration search endpoint.
type Adapter struct {
	client  *http.Client
	guard   *provider.Guard
	logger  *slog.Logger
	baseURL string
}

// New creates a FLO adapter with the default base URL.
func New(guard *provider.Guard, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(guard, logger, defaultBaseURL)
}

// NewWithBaseURL creates a FLO adapter with a custom base URL (for testing).
func NewWithBaseURL(guard *provider.Guard, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		guard:   guard,
		logger:  logger.With(slog.String("provider", "flo")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SetTimeout overrides the HTTP client timeout.
func (a *Adapter) SetTimeout(d time.Duration) {
	if d > 0 {
		a.client.Timeout = d
	}
}

type searchResponse struct {
	Data struct {
		List []struct {
			Type string     `json:"type"`
			List []floEntry `json:"list"`
		} `json:"list"`
	} `json:"data"`
}

type floEntry struct {
	Name       string `json:"name"`
	ArtistName string `json:"artistName"`
	Title      string `json:"title"`
	TeamName   string `json:"teamName"`
}

// SearchByName returns the first artist hit for name. Field names have
// changed over time, so name, artistName and title are tried in order.
func (a *Adapter) SearchByName(ctx context.Context, name string) (*Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &provider.ErrNotFound{Source: provider.SourceFLO, ID: name}
	}
	reqURL := a.baseURL + "/search/v2/search/integration?keyword=" + url.QueryEscape(name)

	var body []byte
	err := a.guard.Do(ctx, provider.SourceFLO, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", browserAgent)
		req.Header.Set("Referer", webOrigin+"/")
		req.Header.Set("Origin", webOrigin)
		req.Header.Set("x-gm-app-name", "FLO_WEB")
		req.Header.Set("Accept", "application/json")

		resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + escaped keyword
		if err != nil {
			return &provider.ErrSourceUnavailable{Source: provider.SourceFLO, Cause: err}
		}
		body, err = provider.ReadResponse(provider.SourceFLO, name, resp)
		return err
	})
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ErrSourceUnavailable{
			Source: provider.SourceFLO,
			Cause:  fmt.Errorf("parsing search response: %w", err),
		}
	}

	for _, section := range resp.Data.List {
		if !strings.EqualFold(section.Type, "ARTIST") || len(section.List) == 0 {
			continue
		}
		first := section.List[0]
		localized := firstNonBlank(first.Name, first.ArtistName, first.Title)
		if localized == "" {
			break
		}
		a.logger.Debug("artist found",
			slog.String("query", name),
			slog.String("name", localized),
			slog.String("group", first.TeamName))
		return &Result{LocalizedName: localized, Group: strings.TrimSpace(first.TeamName)}, nil
	}
	return nil, &provider.ErrNotFound{Source: provider.SourceFLO, ID: name}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
