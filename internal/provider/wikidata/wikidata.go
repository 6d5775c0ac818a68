package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sydlexius/liner/internal/provider"
	"github.com/sydlexius/liner/internal/version"
)

const (
	defaultSPARQLEndpoint = "https://query.wikidata.org/sparql"
	defaultAPIEndpoint    = "https://www.wikidata.org/w/api.php"

	// maxEntitiesPerRequest is the wbgetentities id limit for anonymous clients.
	maxEntitiesPerRequest = 50
)

var qidPattern = regexp.MustCompile(`^Q[0-9]+$`)

// Adapter queries the Wikidata SPARQL endpoint and the Wikibase API.
type Adapter struct {
	client    *http.Client
	guard     *provider.Guard
	logger    *slog.Logger
	sparqlURL string
	apiURL    string
}

// New creates a Wikidata adapter with the default endpoints.
func New(guard *provider.Guard, logger *slog.Logger) *Adapter {
	return NewWithEndpoints(guard, logger, defaultSPARQLEndpoint, defaultAPIEndpoint)
}

// NewWithEndpoints creates a Wikidata adapter with custom endpoints (for testing).
func NewWithEndpoints(guard *provider.Guard, logger *slog.Logger, sparqlURL, apiURL string) *Adapter {
	return &Adapter{
		client:    &http.Client{Timeout: 15 * time.Second},
		guard:     guard,
		logger:    logger.With(slog.String("provider", "wikidata")),
		sparqlURL: sparqlURL,
		apiURL:    apiURL,
	}
}

// SetTimeout overrides the HTTP client timeout.
func (a *Adapter) SetTimeout(d time.Duration) {
	if d > 0 {
		a.client.Timeout = d
	}
}

// FindIDsByExternalRef returns every item whose prop claim equals value.
// Ambiguous identifiers legitimately return several items.
func (a *Adapter) FindIDsByExternalRef(ctx context.Context, prop, value string) ([]string, error) {
	if !isPropertyID(prop) || value == "" {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT ?item WHERE { ?item wdt:%s "%s" . } LIMIT 10`, prop, escapeLiteral(value))
	resp, err := a.executeSPARQL(ctx, query)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var ids []string
	for _, b := range resp.Results.Bindings {
		qid := extractQID(b["item"].Value)
		if qidPattern.MatchString(qid) && !seen[qid] {
			seen[qid] = true
			ids = append(ids, qid)
		}
	}
	return ids, nil
}

// IsMusicalGroup asks whether id is an instance of a (subclass of) musical group.
func (a *Adapter) IsMusicalGroup(ctx context.Context, id string) (bool, error) {
	if !qidPattern.MatchString(id) {
		return false, nil
	}
	query := fmt.Sprintf(`ASK { wd:%s wdt:P31/wdt:P279* wd:%s . }`, id, ItemMusicalGroup)
	resp, err := a.executeSPARQL(ctx, query)
	if err != nil {
		return false, err
	}
	return resp.Boolean != nil && *resp.Boolean, nil
}

// GetEntity fetches one item with labels, descriptions, claims and sitelinks.
func (a *Adapter) GetEntity(ctx context.Context, id string) (*Entity, error) {
	entities, err := a.GetEntities(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	e, ok := entities[id]
	if !ok {
		return nil, &provider.ErrNotFound{Source: provider.SourceWikidata, ID: id}
	}
	return e, nil
}

// GetEntities fetches several items at once. Missing items are absent from
// the returned map.
func (a *Adapter) GetEntities(ctx context.Context, ids []string) (map[string]*Entity, error) {
	var valid []string
	for _, id := range ids {
		if qidPattern.MatchString(id) {
			valid = append(valid, id)
		}
	}
	out := make(map[string]*Entity, len(valid))

	for start := 0; start < len(valid); start += maxEntitiesPerRequest {
		end := min(start+maxEntitiesPerRequest, len(valid))
		params := url.Values{
			"action": {"wbgetentities"},
			"ids":    {strings.Join(valid[start:end], "|")},
			"props":  {"labels|descriptions|claims|sitelinks"},
			"format": {"json"},
		}
		body, err := a.doRequest(ctx, a.apiURL+"?"+params.Encode(), "application/json", params.Get("ids"))
		if err != nil {
			return nil, err
		}

		var resp entitiesResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, &provider.ErrSourceUnavailable{
				Source: provider.SourceWikidata,
				Cause:  fmt.Errorf("parsing entities response: %w", err),
			}
		}
		for id, raw := range resp.Entities {
			if raw.Missing != nil {
				continue
			}
			if raw.ID == "" {
				raw.ID = id
			}
			out[raw.ID] = raw.decode()
		}
	}
	return out, nil
}

// Labels resolves the lang label of each id, falling back to English.
// Ids without a usable label are omitted.
func (a *Adapter) Labels(ctx context.Context, ids []string, lang string) (map[string]string, error) {
	entities, err := a.GetEntities(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entities))
	for id, e := range entities {
		if l := e.Label(lang); l != "" {
			out[id] = l
		} else if l := e.Label("en"); l != "" {
			out[id] = l
		}
	}
	return out, nil
}

// SearchByName returns item ids whose label or alias matches name in lang,
// in relevance order.
func (a *Adapter) SearchByName(ctx context.Context, name, lang string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	params := url.Values{
		"action":   {"wbsearchentities"},
		"search":   {name},
		"language": {lang},
		"uselang":  {lang},
		"type":     {"item"},
		"limit":    {"10"},
		"format":   {"json"},
	}
	body, err := a.doRequest(ctx, a.apiURL+"?"+params.Encode(), "application/json", name)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ErrSourceUnavailable{
			Source: provider.SourceWikidata,
			Cause:  fmt.Errorf("parsing search response: %w", err),
		}
	}
	ids := make([]string, 0, len(resp.Search))
	for _, r := range resp.Search {
		if qidPattern.MatchString(r.ID) {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

// FindIDByName returns the best name-search hit, or ErrNotFound.
func (a *Adapter) FindIDByName(ctx context.Context, name, lang string) (string, error) {
	ids, err := a.SearchByName(ctx, name, lang)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", &provider.ErrNotFound{Source: provider.SourceWikidata, ID: name}
	}
	return ids[0], nil
}

func (a *Adapter) executeSPARQL(ctx context.Context, query string) (*SPARQLResponse, error) {
	params := url.Values{
		"query":  {query},
		"format": {"json"},
	}
	a.logger.Debug("executing SPARQL query")

	body, err := a.doRequest(ctx, a.sparqlURL+"?"+params.Encode(), "application/sparql-results+json", "sparql")
	if err != nil {
		return nil, err
	}

	var resp SPARQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ErrSourceUnavailable{
			Source: provider.SourceWikidata,
			Cause:  fmt.Errorf("parsing SPARQL response: %w", err),
		}
	}
	return &resp, nil
}

// doRequest executes an HTTP GET through the resilience guard.
func (a *Adapter) doRequest(ctx context.Context, reqURL, accept, id string) ([]byte, error) {
	var body []byte
	err := a.guard.Do(ctx, provider.SourceWikidata, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", version.UserAgent())
		req.Header.Set("Accept", accept)

		resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted endpoint
		if err != nil {
			return &provider.ErrSourceUnavailable{Source: provider.SourceWikidata, Cause: err}
		}
		body, err = provider.ReadResponse(provider.SourceWikidata, id, resp)
		return err
	})
	return body, err
}

// extractQID extracts the Q-item ID from a full Wikidata URI.
// e.g. "http://www.wikidata.org/entity/Q44190" -> "Q44190"
func extractQID(uri string) string {
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}

func isPropertyID(s string) bool {
	if len(s) < 2 || s[0] != 'P' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// escapeLiteral escapes a value for use inside a double-quoted SPARQL string.
func escapeLiteral(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
	return r.Replace(s)
}
