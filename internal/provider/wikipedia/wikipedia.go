// Package wikipedia fetches page summaries from the Wikipedia REST API.
package wikipedia

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
	"github.com/sydlexius/liner/internal/version"
)

// defaultBaseURL holds a {lang} placeholder for the wiki subdomain.
const defaultBaseURL = "https://{lang}.wikipedia.org/api/rest_v1"

// Summary is the lead section of a page.
type Summary struct {
	Lang    string
	Title   string
	Extract string
}

type summaryResponse struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

// Adapter queries the REST summary endpoint.
type Adapter struct {
	client  *http.Client
	guard   *provider.Guard
	logger  *slog.Logger
	baseURL string
}

// New creates a Wikipedia adapter with the default base URL.
func New(guard *provider.Guard, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(guard, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Wikipedia adapter with a custom base URL. The
// URL may contain a {lang} placeholder.
func NewWithBaseURL(guard *provider.Guard, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		guard:   guard,
		logger:  logger.With(slog.String("provider", "wikipedia")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SetTimeout overrides the HTTP client timeout.
func (a *Adapter) SetTimeout(d time.Duration) {
	if d > 0 {
		a.client.Timeout = d
	}
}

// Summary returns the plain-text lead of title on the lang wiki.
// Disambiguation pages are reported as not found.
func (a *Adapter) Summary(ctx context.Context, lang, title string) (*Summary, error) {
	title = strings.TrimSpace(title)
	if title == "" || lang == "" {
		return nil, &provider.ErrNotFound{Source: provider.SourceWikipedia, ID: title}
	}
	base := strings.ReplaceAll(a.baseURL, "{lang}", lang)
	reqURL := base + "/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))

	var body []byte
	err := a.guard.Do(ctx, provider.SourceWikipedia, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", version.UserAgent())
		req.Header.Set("Accept", "application/json")

		resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + escaped title
		if err != nil {
			return &provider.ErrSourceUnavailable{Source: provider.SourceWikipedia, Cause: err}
		}
		body, err = provider.ReadResponse(provider.SourceWikipedia, lang+":"+title, resp)
		return err
	})
	if err != nil {
		return nil, err
	}

	var resp summaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ErrSourceUnavailable{
			Source: provider.SourceWikipedia,
			Cause:  fmt.Errorf("parsing summary response: %w", err),
		}
	}
	if resp.Type == "disambiguation" || strings.TrimSpace(resp.Extract) == "" {
		return nil, &provider.ErrNotFound{Source: provider.SourceWikipedia, ID: lang + ":" + title}
	}
	return &Summary{Lang: lang, Title: resp.Title, Extract: strings.TrimSpace(resp.Extract)}, nil
}
