package enrich

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/provider"
	"github.com/sydlexius/liner/internal/provider/musicbrainz"
	"github.com/sydlexius/liner/internal/provider/wikidata"
)

// EnrichRealName fills a.RealName from the first source that yields a
// usable legal name. An existing real name is never replaced.
func (e *Engine) EnrichRealName(ctx context.Context, a *artist.Artist) (bool, error) {
	if a.RealName != "" {
		return false, nil
	}
	name, src, err := e.resolveRealName(ctx, a)
	if err != nil {
		return false, err
	}
	if name == "" {
		e.logger.Debug("no real name found", "artist_id", a.ID)
		return false, nil
	}
	a.RealName = name
	e.logger.Debug("real name resolved", "artist_id", a.ID, "source", src)
	return true, nil
}

// resolveRealName tries, in order: the graph's Korean birth name, the
// graph's Korean family and given names, the ManiaDB profile, registry
// aliases, and finally the graph's English birth name.
func (e *Engine) resolveRealName(ctx context.Context, a *artist.Artist) (string, provider.SourceName, error) {
	ent, err := e.resolveEntity(ctx, a)
	if err != nil {
		if isFatal(err) {
			return "", "", err
		}
		e.logger.Debug("entity lookup failed", "artist_id", a.ID, "error", err)
	}

	if ent != nil {
		if n := cleanRealName(ent.MonolingualText(wikidata.PropBirthName, langPrimary), a); n != "" {
			return n, provider.SourceWikidata, nil
		}
		n, err := e.graphNameParts(ctx, ent)
		if err != nil {
			return "", "", err
		}
		if n = cleanRealName(n, a); n != "" {
			return n, provider.SourceWikidata, nil
		}
	}

	if e.src.RealName != nil {
		n, err := e.src.RealName.RealName(ctx, a.Name, a.LocalizedName)
		switch {
		case err == nil:
			if n = cleanRealName(n, a); n != "" {
				return n, provider.SourceManiaDB, nil
			}
		case isFatal(err):
			return "", "", err
		case !isNotFound(err):
			e.logger.Debug("maniadb lookup failed", "artist_id", a.ID, "error", err)
		}
	}

	aliases, err := e.registryAliases(ctx, a)
	if err != nil {
		return "", "", err
	}
	if n := cleanRealName(aliasRealName(aliases, a), a); n != "" {
		return n, provider.SourceMusicBrainz, nil
	}

	if ent != nil {
		if n := cleanRealName(ent.MonolingualText(wikidata.PropBirthName, langSecondary), a); n != "" {
			return n, provider.SourceWikidata, nil
		}
	}
	return "", "", nil
}

// graphNameParts joins the Korean labels of the entity's family and given
// name items. Hangul names are written without a separator.
func (e *Engine) graphNameParts(ctx context.Context, ent *wikidata.Entity) (string, error) {
	family := ent.EntityIDs(wikidata.PropFamilyName)
	given := ent.EntityIDs(wikidata.PropGivenName)
	if len(family) == 0 || len(given) == 0 {
		return "", nil
	}
	labels, err := e.src.KnowledgeGraph.Labels(ctx, []string{family[0], given[0]}, langPrimary)
	if err != nil {
		if isFatal(err) {
			return "", err
		}
		return "", nil
	}
	f, g := labels[family[0]], labels[given[0]]
	// Labels falls back to English; only Korean parts are usable here.
	if !hasHangul(f) || !hasHangul(g) {
		return "", nil
	}
	return f + g, nil
}

// registryAliases returns the registry aliases for the artist, located by
// registry id or by streaming profile URL.
func (e *Engine) registryAliases(ctx context.Context, a *artist.Artist) ([]musicbrainz.Alias, error) {
	reg := e.src.Registry
	if a.MusicBrainzID != "" {
		aliases, err := reg.CollectNameAliases(ctx, a.MusicBrainzID)
		if err != nil {
			if isFatal(err) {
				return nil, err
			}
			if !isNotFound(err) {
				e.logger.Debug("alias lookup failed", "artist_id", a.ID, "error", err)
			}
			return nil, nil
		}
		return aliases, nil
	}
	if a.SpotifyID == "" {
		return nil, nil
	}
	info, err := reg.LookupBySpotifyID(ctx, a.SpotifyID)
	if err != nil {
		if isFatal(err) {
			return nil, err
		}
		return nil, nil
	}
	return info.Aliases, nil
}

// aliasRealName prefers an alias typed as legal or birth name, then any
// Hangul alias that is not one of the artist's stage names.
func aliasRealName(aliases []musicbrainz.Alias, a *artist.Artist) string {
	for _, al := range aliases {
		switch strings.ToLower(al.Type) {
		case "legal name", "birth name":
			if strings.TrimSpace(al.Name) != "" {
				return al.Name
			}
		}
	}
	for _, al := range aliases {
		if hasHangul(al.Name) && !equalFolded(al.Name, a.Name) && !equalFolded(al.Name, a.LocalizedName) {
			return al.Name
		}
	}
	return ""
}

// cleanRealName strips qualifiers and rejects candidates that are too
// short or just repeat a stage name.
func cleanRealName(s string, a *artist.Artist) string {
	s = stripQualifiers(s)
	if utf8.RuneCountInString(s) < 2 {
		return ""
	}
	if equalFolded(s, a.Name) || equalFolded(s, a.LocalizedName) {
		return ""
	}
	return s
}
