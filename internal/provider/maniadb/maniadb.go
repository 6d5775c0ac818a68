// Package maniadb scrapes real (legal) names from ManiaDB artist pages.
package maniadb

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sydlexius/liner/internal/provider"
)

const (
	defaultBaseURL = "http://www.maniadb.com"
	browserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

var labelSplit = regexp.MustCompile(`[:：]`)

// Adapter fetches ManiaDB search and artist pages.
type Adapter struct {
	client  *http.Client
	guard   *provider.Guard
	logger  *slog.Logger
	baseURL string
}

// New creates a ManiaDB adapter with the default base URL.
func New(guard *provider.Guard, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(guard, logger, defaultBaseURL)
}

// NewWithBaseURL creates a ManiaDB adapter with a custom base URL (for testing).
func NewWithBaseURL(guard *provider.Guard, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		guard:   guard,
		logger:  logger.With(slog.String("provider", "maniadb")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SetTimeout overrides the HTTP client timeout.
func (a *Adapter) SetTimeout(d time.Duration) {
	if d > 0 {
		a.client.Timeout = d
	}
}

// RealName searches for the artist (by localized name when known, else by
// display name) and reads the real-name field of the first result's page.
func (a *Adapter) RealName(ctx context.Context, name, localizedName string) (string, error) {
	query := strings.TrimSpace(localizedName)
	if query == "" {
		query = strings.TrimSpace(name)
	}
	if query == "" {
		return "", &provider.ErrNotFound{Source: provider.SourceManiaDB, ID: query}
	}

	searchURL := a.baseURL + "/search/" + url.PathEscape(query) + "/?sr=artist"
	doc, err := a.fetch(ctx, searchURL, query)
	if err != nil {
		return "", err
	}
	href := firstArtistLink(doc)
	if href == "" {
		return "", &provider.ErrNotFound{Source: provider.SourceManiaDB, ID: query}
	}
	artistURL := href
	if !strings.HasPrefix(href, "http") {
		artistURL = a.baseURL + href
	}

	page, err := a.fetch(ctx, artistURL, href)
	if err != nil {
		return "", err
	}
	realName := extractRealName(page)
	if realName == "" {
		a.logger.Debug("no real name on artist page", slog.String("url", artistURL))
		return "", &provider.ErrNotFound{Source: provider.SourceManiaDB, ID: href}
	}
	return realName, nil
}

func (a *Adapter) fetch(ctx context.Context, pageURL, id string) (*html.Node, error) {
	var body []byte
	err := a.guard.Do(ctx, provider.SourceManiaDB, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", browserAgent)

		resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base
		if err != nil {
			return &provider.ErrSourceUnavailable{Source: provider.SourceManiaDB, Cause: err}
		}
		body, err = provider.ReadResponse(provider.SourceManiaDB, id, resp)
		return err
	})
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &provider.ErrSourceUnavailable{
			Source: provider.SourceManiaDB,
			Cause:  fmt.Errorf("parsing page: %w", err),
		}
	}
	return doc, nil
}

// firstArtistLink returns the href of the first /artist/ link inside a
// search_result block.
func firstArtistLink(doc *html.Node) string {
	for block := range doc.Descendants() {
		if block.DataAtom != atom.Div || !hasClass(block, "search_result") {
			continue
		}
		for n := range block.Descendants() {
			if n.DataAtom == atom.A {
				if href := attr(n, "href"); strings.HasPrefix(href, "/artist/") {
					return href
				}
			}
		}
	}
	return ""
}

// extractRealName tries, in order: a <dt>/<dd> pair, a labelled span whose
// parent reads "본명: ...", and an info table row.
func extractRealName(doc *html.Node) string {
	for n := range doc.Descendants() {
		if n.DataAtom != atom.Dt || !isRealNameLabel(textOf(n)) {
			continue
		}
		if dd := nextElement(n); dd != nil && dd.DataAtom == atom.Dd {
			if v := cleanValue(textOf(dd)); v != "" {
				return v
			}
		}
	}

	for n := range doc.Descendants() {
		if n.DataAtom != atom.Span || !(hasClass(n, "label") || hasClass(n, "info_label")) {
			continue
		}
		if !isRealNameLabel(textOf(n)) || n.Parent == nil {
			continue
		}
		parts := labelSplit.Split(textOf(n.Parent), 2)
		if len(parts) > 1 {
			if v := cleanValue(parts[1]); v != "" {
				return v
			}
		}
	}

	for table := range doc.Descendants() {
		if table.DataAtom != atom.Table || !(hasClass(table, "info_table") || hasClass(table, "artist_info")) {
			continue
		}
		for row := range table.Descendants() {
			if row.DataAtom != atom.Tr {
				continue
			}
			var labelled bool
			var value string
			for cell := range row.ChildNodes() {
				switch cell.DataAtom {
				case atom.Th:
					labelled = labelled || isRealNameLabel(textOf(cell))
				case atom.Td:
					if value == "" {
						value = textOf(cell)
					}
				}
			}
			if labelled {
				if v := cleanValue(value); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

func isRealNameLabel(s string) bool {
	return strings.Contains(s, "본명") || strings.Contains(s, "실명")
}

func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "-" {
		return ""
	}
	return s
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for d := range n.Descendants() {
		if d.Type == html.TextNode {
			b.WriteString(d.Data)
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}
