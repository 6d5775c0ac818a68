package enrich

import (
	"context"
	"slices"

	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/provider"
	"github.com/sydlexius/liner/internal/provider/musicbrainz"
	"github.com/sydlexius/liner/internal/provider/wikidata"
)

// StepFunc computes one step's contribution from the artist and the state
// merged so far. It must not mutate either.
type StepFunc func(ctx context.Context, a *artist.Artist, s State) (Result, error)

// Step is a named entry in the fallback chain.
type Step struct {
	Name string
	Run  StepFunc
}

// Steps returns the localized-profile fallback chain in execution order.
func (e *Engine) Steps() []Step {
	return []Step{
		{Name: "registry-id", Run: e.stepRegistryID},
		{Name: "streaming-id", Run: e.stepStreamingID},
		{Name: "streaming-url", Run: e.stepStreamingURL},
		{Name: "localized-lookup", Run: e.stepLocalizedLookup},
		{Name: "localized-search", Run: e.stepLocalizedSearch},
		{Name: "group-retry", Run: e.stepGroupRetry},
	}
}

// stepRegistryID resolves the graph entity directly from a known registry
// id. No candidate scoring is needed: the id is an exact join key.
func (e *Engine) stepRegistryID(ctx context.Context, a *artist.Artist, s State) (Result, error) {
	if a.MusicBrainzID == "" {
		return Result{}, nil
	}
	ids, err := e.src.KnowledgeGraph.FindIDsByExternalRef(ctx, wikidata.PropMusicBrainzID, a.MusicBrainzID)
	if err != nil {
		return Result{}, err
	}
	if len(ids) == 0 {
		return Result{}, nil
	}
	slices.SortFunc(ids, compareQID)
	ent, err := e.src.KnowledgeGraph.GetEntity(ctx, ids[0])
	if err != nil {
		return Result{}, err
	}

	info, err := e.lookupRegistry(ctx, a.MusicBrainzID)
	if err != nil {
		return Result{}, err
	}
	return e.identityResult(ctx, a, s, ent, info)
}

// stepStreamingID scores every graph entity that claims the artist's
// streaming id and keeps the best one. It only runs when no registry id is
// known.
func (e *Engine) stepStreamingID(ctx context.Context, a *artist.Artist, s State) (Result, error) {
	if a.SpotifyID == "" || a.MusicBrainzID != "" {
		return Result{}, nil
	}
	ids, err := e.src.KnowledgeGraph.FindIDsByExternalRef(ctx, wikidata.PropSpotifyArtistID, a.SpotifyID)
	if err != nil {
		return Result{}, err
	}
	if len(ids) == 0 {
		return Result{}, nil
	}
	ents, err := e.src.KnowledgeGraph.GetEntities(ctx, ids)
	if err != nil {
		return Result{}, err
	}

	localized := firstNonEmpty(s.LocalizedName, a.LocalizedName)
	cands := make([]IdentityCandidate, 0, len(ents))
	for _, id := range ids {
		if ent, ok := ents[id]; ok {
			cands = append(cands, ScoreIdentity(ent, a.Name, localized))
		}
	}
	best, ok := BestIdentity(cands)
	if !ok {
		e.logger.Debug("no acceptable identity candidate",
			"artist_id", a.ID, "spotify_id", a.SpotifyID, "candidates", len(cands))
		return Result{}, nil
	}
	ent := ents[best.ID]
	e.logger.Debug("identity resolved", "artist_id", a.ID, "qid", best.ID, "score", best.Score)

	var info *musicbrainz.ArtistInfo
	if mbids := ent.Strings(wikidata.PropMusicBrainzID); len(mbids) > 0 {
		info, err = e.lookupRegistry(ctx, mbids[0])
		if err != nil {
			return Result{}, err
		}
	}
	return e.identityResult(ctx, a, s, ent, info)
}

// stepStreamingURL asks the registry which artist links to the streaming
// profile. It runs only when no graph identity has been resolved.
func (e *Engine) stepStreamingURL(ctx context.Context, a *artist.Artist, s State) (Result, error) {
	if a.SpotifyID == "" || a.MusicBrainzID != "" || s.Entity != nil {
		return Result{}, nil
	}
	info, err := e.src.Registry.LookupBySpotifyID(ctx, a.SpotifyID)
	if err != nil {
		if isNotFound(err) {
			return Result{}, nil
		}
		return Result{}, err
	}
	r := Result{Registry: info}
	r.Type = ResolveType(s.Type, artist.ParseType(info.Type))
	if r.Type != artist.TypeUnknown && s.Type == artist.TypeUnknown {
		r.TypeFrom = provider.SourceMusicBrainz
	}
	if r.Type == artist.TypeSolo && s.Group == "" {
		g, err := e.registryGroup(ctx, info)
		if err != nil {
			return Result{}, err
		}
		r.Group, r.GroupFrom = g, sourceIf(g, provider.SourceMusicBrainz)
	}
	return r, nil
}

// stepLocalizedLookup always runs: the supplementary lookup is the only
// source of localized display names.
func (e *Engine) stepLocalizedLookup(ctx context.Context, a *artist.Artist, _ State) (Result, error) {
	res, err := e.src.Localized.SearchByName(ctx, a.Name)
	if err != nil {
		if isNotFound(err) {
			return Result{}, nil
		}
		return Result{}, err
	}
	return Result{
		LocalizedName: res.LocalizedName,
		LocalizedFrom: sourceIf(res.LocalizedName, provider.SourceFLO),
		Group:         res.Group,
		GroupFrom:     sourceIf(res.Group, provider.SourceFLO),
	}, nil
}

// stepLocalizedSearch classifies the artist from a registry search on the
// localized name when nothing has classified it yet.
func (e *Engine) stepLocalizedSearch(ctx context.Context, _ *artist.Artist, s State) (Result, error) {
	if s.LocalizedName == "" || s.Type != artist.TypeUnknown {
		return Result{}, nil
	}
	info, err := e.src.Registry.SearchByName(ctx, s.LocalizedName)
	if err != nil {
		if isNotFound(err) {
			return Result{}, nil
		}
		return Result{}, err
	}
	t := artist.ParseType(info.Type)
	if t == artist.TypeUnknown {
		return Result{}, nil
	}
	return Result{Type: t, TypeFrom: provider.SourceMusicBrainz}, nil
}

// stepGroupRetry collects a group for artists classified SOLO late in the
// chain, after the identity steps had already skipped group resolution.
func (e *Engine) stepGroupRetry(ctx context.Context, a *artist.Artist, s State) (Result, error) {
	if s.Type != artist.TypeSolo || s.Group != "" {
		return Result{}, nil
	}
	if s.Entity != nil {
		g, err := e.graphGroup(ctx, s.Entity)
		if err != nil {
			return Result{}, err
		}
		if g != "" {
			return Result{Group: g, GroupFrom: provider.SourceWikidata}, nil
		}
	}
	info := s.Registry
	if info == nil {
		var err error
		info, err = e.src.Registry.SearchByName(ctx, firstNonEmpty(s.LocalizedName, a.Name))
		if err != nil {
			if isNotFound(err) {
				return Result{}, nil
			}
			return Result{}, err
		}
	}
	g, err := e.registryGroup(ctx, info)
	if err != nil {
		return Result{}, err
	}
	return Result{Group: g, GroupFrom: sourceIf(g, provider.SourceMusicBrainz)}, nil
}

// identityResult builds the contribution of a resolved graph entity and
// its registry record: type by consensus, then for solo artists the group,
// preferring the graph's membership claims over the registry's.
func (e *Engine) identityResult(ctx context.Context, a *artist.Artist, s State, ent *wikidata.Entity, info *musicbrainz.ArtistInfo) (Result, error) {
	r := Result{Entity: ent, Registry: info}

	graphType := InferType(ent)
	var registryType artist.Type
	if info != nil {
		registryType = artist.ParseType(info.Type)
	}
	r.Type = ResolveType(graphType, registryType)
	switch {
	case graphType != artist.TypeUnknown:
		r.TypeFrom = provider.SourceWikidata
	case registryType != artist.TypeUnknown:
		r.TypeFrom = provider.SourceMusicBrainz
	}
	if graphType != artist.TypeUnknown && registryType != artist.TypeUnknown && graphType != registryType {
		e.logger.Debug("type disagreement, keeping knowledge graph",
			"artist_id", a.ID, "graph", graphType, "registry", registryType)
	}

	if effective, _ := firstType(s.Type, "", r.Type, ""); effective != artist.TypeSolo || s.Group != "" {
		return r, nil
	}
	g, err := e.graphGroup(ctx, ent)
	if err != nil {
		return Result{}, err
	}
	if g != "" {
		r.Group, r.GroupFrom = g, provider.SourceWikidata
		return r, nil
	}
	g, err = e.registryGroup(ctx, info)
	if err != nil {
		return Result{}, err
	}
	r.Group, r.GroupFrom = g, sourceIf(g, provider.SourceMusicBrainz)
	return r, nil
}

// lookupRegistry fetches a registry record, treating a missing id as no
// record rather than a failure.
func (e *Engine) lookupRegistry(ctx context.Context, mbid string) (*musicbrainz.ArtistInfo, error) {
	info, err := e.src.Registry.GetByID(ctx, mbid)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return info, nil
}

func sourceIf(v string, src provider.SourceName) provider.SourceName {
	if v == "" {
		return ""
	}
	return src
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
