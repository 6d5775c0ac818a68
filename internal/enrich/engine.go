// Package enrich reconciles artist metadata from several external sources.
//
// An Engine holds the source adapters and knows how to fill one target
// field for one artist. A Runner drives an Engine over a bounded batch,
// persisting each artist as its own unit of work.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/config"
	"github.com/sydlexius/liner/internal/provider/wikidata"
)

// Processor fills one target field on a in place and reports whether the
// record gained any value. It never persists.
type Processor func(ctx context.Context, a *artist.Artist) (bool, error)

// Engine resolves artist fields from the configured sources.
type Engine struct {
	src               Sources
	logger            *slog.Logger
	biographyStrategy string
	now               func() time.Time
}

// NewEngine creates an Engine. An unknown biography strategy falls back to
// extracted text.
func NewEngine(src Sources, biographyStrategy string, logger *slog.Logger) *Engine {
	if biographyStrategy != config.BiographyTemplated {
		biographyStrategy = config.BiographyExtracted
	}
	return &Engine{
		src:               src,
		logger:            logger.With(slog.String("component", "enrich")),
		biographyStrategy: biographyStrategy,
		now:               time.Now,
	}
}

// Processor returns the processor for field.
func (e *Engine) Processor(field artist.Field) (Processor, error) {
	switch field {
	case artist.FieldLocalized:
		return e.EnrichProfile, nil
	case artist.FieldRealName:
		return e.EnrichRealName, nil
	case artist.FieldBiography:
		return e.EnrichBiography, nil
	case artist.FieldMBID:
		return e.BackfillMBID, nil
	default:
		return nil, fmt.Errorf("unknown field %q", field)
	}
}

// EnrichProfile runs the fallback chain and applies the localized name,
// classification and validated group affiliation to a.
func (e *Engine) EnrichProfile(ctx context.Context, a *artist.Artist) (bool, error) {
	s, err := e.Execute(ctx, a, e.Steps())
	if err != nil {
		return false, err
	}
	before := *a
	applyProfile(a, s)

	e.logger.Debug("profile resolved",
		"artist_id", a.ID,
		"localized", a.LocalizedName,
		"type", a.Type,
		"group", a.Group,
		"sources", s.Sources,
	)
	return profileChanged(&before, a), nil
}

// applyProfile copies merged state onto a. A group is only kept for solo
// or unclassified artists and only if it passes validation at the trust
// level of the source that supplied it.
func applyProfile(a *artist.Artist, s State) {
	if a.LocalizedName == "" {
		a.LocalizedName = s.LocalizedName
	}
	if s.Type != artist.TypeUnknown {
		a.Type = s.Type
	}
	if s.Entity != nil && a.WikidataID == "" {
		a.WikidataID = s.Entity.ID
	}
	if s.Registry != nil && a.MusicBrainzID == "" {
		a.MusicBrainzID = s.Registry.ID
	}
	if a.Type == artist.TypeGroup {
		a.Group = ""
		return
	}
	if g := ValidateGroup(s.Group, a.Name, a.LocalizedName, s.GroupTrust()); g != "" {
		a.Group = g
	}
}

func profileChanged(before, after *artist.Artist) bool {
	return before.LocalizedName != after.LocalizedName ||
		before.Type != after.Type ||
		before.Group != after.Group ||
		before.WikidataID != after.WikidataID ||
		before.MusicBrainzID != after.MusicBrainzID
}

// resolveEntity finds the artist's knowledge-graph entity: by registry id
// when known, else the best scoring candidate for the streaming id, else
// the top name-search hit. It returns nil when none yields an entity.
func (e *Engine) resolveEntity(ctx context.Context, a *artist.Artist) (*wikidata.Entity, error) {
	kg := e.src.KnowledgeGraph
	if a.WikidataID != "" {
		ent, err := kg.GetEntity(ctx, a.WikidataID)
		if err == nil {
			return ent, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	if a.MusicBrainzID != "" {
		ids, err := kg.FindIDsByExternalRef(ctx, wikidata.PropMusicBrainzID, a.MusicBrainzID)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			slices.SortFunc(ids, compareQID)
			return kg.GetEntity(ctx, ids[0])
		}
	}
	if a.SpotifyID != "" {
		ids, err := kg.FindIDsByExternalRef(ctx, wikidata.PropSpotifyArtistID, a.SpotifyID)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			ents, err := kg.GetEntities(ctx, ids)
			if err != nil {
				return nil, err
			}
			cands := make([]IdentityCandidate, 0, len(ents))
			for _, id := range ids {
				if ent, ok := ents[id]; ok {
					cands = append(cands, ScoreIdentity(ent, a.Name, a.LocalizedName))
				}
			}
			if best, ok := BestIdentity(cands); ok {
				return ents[best.ID], nil
			}
		}
	}
	return e.entityByName(ctx, a)
}

// entityByName takes the top name-search hit, keeping it only when it is a
// person or group whose label matches the artist's name.
func (e *Engine) entityByName(ctx context.Context, a *artist.Artist) (*wikidata.Entity, error) {
	name := firstNonEmpty(a.LocalizedName, a.Name)
	if name == "" {
		return nil, nil
	}
	kg := e.src.KnowledgeGraph
	id, err := kg.FindIDByName(ctx, name, langPrimary)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	ent, err := kg.GetEntity(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	c := ScoreIdentity(ent, a.Name, a.LocalizedName)
	if !c.TypeMatch || !(c.NameMatch || c.LocalizedMatch) {
		e.logger.Debug("name search hit rejected", "artist_id", a.ID, "qid", id, "score", c.Score)
		return nil, nil
	}
	return ent, nil
}
