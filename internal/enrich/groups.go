package enrich

import (
	"context"

	"github.com/sydlexius/liner/internal/provider/musicbrainz"
	"github.com/sydlexius/liner/internal/provider/wikidata"
)

// graphGroup picks the best named musical group among the entity's
// "member of" claims. It returns "" when none qualifies.
func (e *Engine) graphGroup(ctx context.Context, ent *wikidata.Entity) (string, error) {
	ids := ent.EntityIDs(wikidata.PropMemberOf)
	if len(ids) == 0 {
		return "", nil
	}
	groups, err := e.src.KnowledgeGraph.GetEntities(ctx, ids)
	if err != nil {
		return "", err
	}

	var cands []GroupCandidate
	for _, id := range ids {
		g, ok := groups[id]
		if !ok {
			continue
		}
		if !g.IsInstanceOf(musicalGroupItems...) {
			// Subclasses deeper than the common ones need the class
			// hierarchy, which only the query service can walk.
			isGroup, err := e.src.KnowledgeGraph.IsMusicalGroup(ctx, id)
			if err != nil {
				if isFatal(err) {
					return "", err
				}
				e.logger.Debug("group check failed", "qid", id, "error", err)
				continue
			}
			if !isGroup {
				e.logger.Debug("membership is not a musical group", "artist_qid", ent.ID, "qid", id)
				continue
			}
		}
		name, err := e.wikipediaName(ctx, g)
		if err != nil {
			return "", err
		}
		cands = append(cands, ScoreGroup(g, name))
	}

	best, ok := BestGroup(cands)
	if !ok {
		return "", nil
	}
	e.logger.Debug("group resolved", "artist_qid", ent.ID, "qid", best.ID, "group", best.Name, "score", best.Score)
	return best.Name, nil
}

// wikipediaName derives a Korean name for g from the title of its Korean
// Wikipedia page. Lookups are skipped when g already has a Korean label,
// since the label outranks anything the page could give.
func (e *Engine) wikipediaName(ctx context.Context, g *wikidata.Entity) (string, error) {
	title := g.Sitelink(sitePrimary)
	if e.src.Encyclopedia == nil || title == "" || g.Label(langPrimary) != "" {
		return "", nil
	}
	sum, err := e.src.Encyclopedia.Summary(ctx, langPrimary, title)
	if err != nil {
		if isFatal(err) {
			return "", err
		}
		return "", nil
	}
	name := stripQualifiers(sum.Title)
	if !hasHangul(name) {
		return "", nil
	}
	return name, nil
}

// registryGroup returns the registry's group for the artist unless that
// group is itself a sub-unit or project, or has disbanded.
func (e *Engine) registryGroup(ctx context.Context, info *musicbrainz.ArtistInfo) (string, error) {
	if info == nil || info.Group == "" {
		return "", nil
	}
	if info.GroupID == "" {
		return info.Group, nil
	}
	sub, err := e.src.Registry.IsSubunitOrProject(ctx, info.GroupID)
	if err != nil {
		if isFatal(err) {
			return "", err
		}
		e.logger.Debug("subunit check failed", "mbid", info.GroupID, "error", err)
		return "", nil
	}
	if sub {
		e.logger.Debug("registry group is a subunit or project", "group", info.Group)
		return "", nil
	}
	ended, err := e.src.Registry.IsActivityEnded(ctx, info.GroupID)
	if err != nil {
		if isFatal(err) {
			return "", err
		}
		e.logger.Debug("activity check failed", "mbid", info.GroupID, "error", err)
		return "", nil
	}
	if ended {
		e.logger.Debug("registry group has ended", "group", info.Group)
		return "", nil
	}
	return info.Group, nil
}
