package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sydlexius/liner/internal/provider"
	"github.com/sydlexius/liner/internal/version"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"

// Adapter queries the MusicBrainz web service.
type Adapter struct {
	client  *http.Client
	guard   *provider.Guard
	logger  *slog.Logger
	baseURL string
}

// New creates a MusicBrainz adapter with the default base URL.
func New(guard *provider.Guard, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(guard, logger, defaultBaseURL)
}

// NewWithBaseURL creates a MusicBrainz adapter with a custom base URL (for testing).
func NewWithBaseURL(guard *provider.Guard, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		guard:   guard,
		logger:  logger.With(slog.String("provider", "musicbrainz")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SetTimeout overrides the HTTP client timeout.
func (a *Adapter) SetTimeout(d time.Duration) {
	if d > 0 {
		a.client.Timeout = d
	}
}

// SearchByName finds the registry artist best matching name and returns its
// full record. Several query forms are tried in turn; within one result set
// an exact normalized match wins, then a hyphen-insensitive match, then a
// name followed by a qualifier, then an alias match. When nothing matches
// that closely, the first non-excluded result of the first non-empty query
// is used.
func (a *Adapter) SearchByName(ctx context.Context, name string) (*ArtistInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &provider.ErrNotFound{Source: provider.SourceMusicBrainz, ID: name}
	}

	queries := []string{
		name,
		"artist:" + name,
		`"` + strings.ReplaceAll(name, `"`, ``) + `"`,
		"alias:" + name,
	}

	var fallback *MBArtist
	var lastErr error
	for _, q := range queries {
		artists, err := a.search(ctx, q, 5)
		if err != nil {
			// A failed query form is skipped; only rate limiting and auth
			// failures end the search.
			var unavailable *provider.ErrSourceUnavailable
			var nf *provider.ErrNotFound
			if errors.As(err, &unavailable) || errors.As(err, &nf) {
				a.logger.Debug("search query failed", slog.String("query", q), slog.Any("error", err))
				lastErr = err
				continue
			}
			return nil, err
		}
		if len(artists) == 0 {
			continue
		}
		if best := bestMatch(name, artists); best != nil {
			return a.GetByID(ctx, best.ID)
		}
		if fallback == nil {
			for i := range artists {
				if !IsExcludedEntity(artists[i].Name) {
					fallback = &artists[i]
					break
				}
			}
		}
	}

	if fallback == nil {
		var unavailable *provider.ErrSourceUnavailable
		if errors.As(lastErr, &unavailable) {
			return nil, lastErr
		}
		return nil, &provider.ErrNotFound{Source: provider.SourceMusicBrainz, ID: name}
	}
	a.logger.Debug("using loose search match",
		slog.String("query", name),
		slog.String("match", fallback.Name))
	return a.GetByID(ctx, fallback.ID)
}

// GetByID fetches an artist with aliases and artist relations.
func (a *Adapter) GetByID(ctx context.Context, mbid string) (*ArtistInfo, error) {
	params := url.Values{
		"inc": {"aliases+artist-rels"},
		"fmt": {"json"},
	}
	reqURL := a.baseURL + "/artist/" + url.PathEscape(mbid) + "?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL, mbid)
	if err != nil {
		return nil, err
	}

	var mb MBArtist
	if err := json.Unmarshal(body, &mb); err != nil {
		return nil, &provider.ErrSourceUnavailable{
			Source: provider.SourceMusicBrainz,
			Cause:  fmt.Errorf("parsing artist response: %w", err),
		}
	}
	return mapArtist(&mb), nil
}

// LookupBySpotifyID resolves the artist linked to a Spotify artist profile URL.
func (a *Adapter) LookupBySpotifyID(ctx context.Context, spotifyID string) (*ArtistInfo, error) {
	if spotifyID == "" {
		return nil, &provider.ErrNotFound{Source: provider.SourceMusicBrainz, ID: spotifyID}
	}
	resource := "https://open.spotify.com/artist/" + spotifyID
	params := url.Values{
		"resource": {resource},
		"inc":      {"artist-rels"},
		"fmt":      {"json"},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/url?"+params.Encode(), resource)
	if err != nil {
		return nil, err
	}

	var u MBURL
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, &provider.ErrSourceUnavailable{
			Source: provider.SourceMusicBrainz,
			Cause:  fmt.Errorf("parsing url response: %w", err),
		}
	}
	for _, rel := range u.Relations {
		if rel.Artist != nil && rel.Artist.ID != "" {
			return a.GetByID(ctx, rel.Artist.ID)
		}
	}
	return nil, &provider.ErrNotFound{Source: provider.SourceMusicBrainz, ID: resource}
}

// IsSubunitOrProject reports whether the artist is a sub-unit or a project
// group of another act.
func (a *Adapter) IsSubunitOrProject(ctx context.Context, mbid string) (bool, error) {
	info, err := a.GetByID(ctx, mbid)
	if err != nil {
		return false, err
	}
	return info.IsSubunitOrProject(), nil
}

// IsActivityEnded reports whether the artist's life span has ended.
func (a *Adapter) IsActivityEnded(ctx context.Context, mbid string) (bool, error) {
	info, err := a.GetByID(ctx, mbid)
	if err != nil {
		return false, err
	}
	return info.Ended, nil
}

// CollectNameAliases returns every alias recorded for the artist.
func (a *Adapter) CollectNameAliases(ctx context.Context, mbid string) ([]Alias, error) {
	info, err := a.GetByID(ctx, mbid)
	if err != nil {
		return nil, err
	}
	return info.Aliases, nil
}

// IsSubunitOrProject reports whether the disambiguation or relations mark
// the artist as a sub-unit or project group.
func (i *ArtistInfo) IsSubunitOrProject() bool {
	if i.Subgroup {
		return true
	}
	d := strings.ToLower(i.Disambiguation)
	for _, kw := range []string{"subunit", "sub-unit", "sub unit", "sub-group", "subgroup", "project group", "project", "part of"} {
		if strings.Contains(d, kw) {
			return true
		}
	}
	return false
}

// LegalName returns an alias recorded as the artist's legal or birth name.
func (i *ArtistInfo) LegalName() string {
	for _, al := range i.Aliases {
		switch strings.ToLower(al.Type) {
		case "legal name", "birth name":
			if strings.TrimSpace(al.Name) != "" {
				return al.Name
			}
		}
	}
	return ""
}

func (a *Adapter) search(ctx context.Context, query string, limit int) ([]MBArtist, error) {
	params := url.Values{
		"query": {query},
		"fmt":   {"json"},
		"limit": {fmt.Sprint(limit)},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/artist?"+params.Encode(), query)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ErrSourceUnavailable{
			Source: provider.SourceMusicBrainz,
			Cause:  fmt.Errorf("parsing search response: %w", err),
		}
	}
	return resp.Artists, nil
}

// doRequest executes an HTTP GET through the resilience guard.
func (a *Adapter) doRequest(ctx context.Context, reqURL, id string) ([]byte, error) {
	var body []byte
	err := a.guard.Do(ctx, provider.SourceMusicBrainz, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", version.UserAgent())
		req.Header.Set("Accept", "application/json")

		a.logger.Debug("requesting", slog.String("url", reqURL))

		resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + escaped id
		if err != nil {
			return &provider.ErrSourceUnavailable{Source: provider.SourceMusicBrainz, Cause: err}
		}
		body, err = provider.ReadResponse(provider.SourceMusicBrainz, id, resp)
		return err
	})
	return body, err
}

// bestMatch picks the closest result for name, or nil when none is close.
func bestMatch(name string, artists []MBArtist) *MBArtist {
	target := normalizeName(name)
	compact := stripHyphens(target)

	matchers := []func(a *MBArtist) bool{
		func(a *MBArtist) bool { return normalizeName(a.Name) == target },
		func(a *MBArtist) bool { return stripHyphens(normalizeName(a.Name)) == compact },
		func(a *MBArtist) bool {
			n := normalizeName(a.Name)
			return strings.HasPrefix(n, target+" ") || strings.HasPrefix(n, target+"(")
		},
		func(a *MBArtist) bool {
			for _, al := range a.Aliases {
				if normalizeName(al.Name) == target {
					return true
				}
			}
			return false
		},
	}
	for _, match := range matchers {
		for i := range artists {
			if IsExcludedEntity(artists[i].Name) {
				continue
			}
			if match(&artists[i]) {
				return &artists[i]
			}
		}
	}
	return nil
}

// mapArtist converts a MusicBrainz artist to ArtistInfo.
func mapArtist(mb *MBArtist) *ArtistInfo {
	info := &ArtistInfo{
		ID:             mb.ID,
		Name:           mb.Name,
		Type:           mb.Type,
		BeginDate:      mb.LifeSpan.Begin,
		Disambiguation: mb.Disambiguation,
		Ended:          mb.LifeSpan.Ended || mb.LifeSpan.End != "",
	}

	for _, al := range mb.Aliases {
		if al.Name == "" {
			continue
		}
		info.Aliases = append(info.Aliases, Alias{
			Name:    al.Name,
			Type:    al.Type,
			Locale:  al.Locale,
			Primary: al.Primary,
		})
	}
	info.LocalizedName = localizedAlias(mb)

	// Relations: current band membership first, then past ones.
	var pastGroup *MBArtist
	for _, rel := range mb.Relations {
		if rel.Artist == nil {
			continue
		}
		switch {
		case rel.Type == "member of band" && rel.Direction != "backward":
			if IsExcludedEntity(rel.Artist.Name) {
				continue
			}
			if !rel.Ended && info.Group == "" {
				info.Group = rel.Artist.Name
				info.GroupID = rel.Artist.ID
			} else if pastGroup == nil {
				pastGroup = rel.Artist
			}
		case rel.Type == "subgroup" && rel.Direction == "backward":
			info.Subgroup = true
		}
	}
	if info.Group == "" && pastGroup != nil {
		info.Group = pastGroup.Name
		info.GroupID = pastGroup.ID
	}
	return info
}

// localizedAlias prefers a primary ko alias, then any ko alias, then a
// Hangul name.
func localizedAlias(mb *MBArtist) string {
	var anyKo string
	for _, al := range mb.Aliases {
		if al.Locale != "ko" || al.Name == "" {
			continue
		}
		if al.Primary {
			return al.Name
		}
		if anyKo == "" {
			anyKo = al.Name
		}
	}
	if anyKo != "" {
		return anyKo
	}
	if containsHangul(mb.Name) {
		return mb.Name
	}
	return ""
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func stripHyphens(s string) string {
	return strings.NewReplacer("-", "", " ", "", "‐", "").Replace(s)
}
