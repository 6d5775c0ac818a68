package enrich

import (
	"context"

	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/provider/musicbrainz"
)

// BackfillMBID stores the artist's registry id. The streaming profile link
// is an exact key and is trusted as is; name searches are only accepted
// when the registry's name matches one of the artist's names.
func (e *Engine) BackfillMBID(ctx context.Context, a *artist.Artist) (bool, error) {
	if a.MusicBrainzID != "" {
		return false, nil
	}
	reg := e.src.Registry

	if a.SpotifyID != "" {
		info, err := reg.LookupBySpotifyID(ctx, a.SpotifyID)
		switch {
		case err == nil:
			a.MusicBrainzID = info.ID
			e.logger.Debug("mbid found by streaming link", "artist_id", a.ID, "mbid", info.ID)
			return true, nil
		case isFatal(err):
			return false, err
		case !isNotFound(err):
			e.logger.Debug("streaming link lookup failed", "artist_id", a.ID, "error", err)
		}
	}

	for _, name := range []string{a.LocalizedName, a.Name} {
		if name == "" {
			continue
		}
		info, err := reg.SearchByName(ctx, name)
		if err != nil {
			if isFatal(err) {
				return false, err
			}
			continue
		}
		if registryNameMatches(info, a) {
			a.MusicBrainzID = info.ID
			e.logger.Debug("mbid found by name", "artist_id", a.ID, "mbid", info.ID, "query", name)
			return true, nil
		}
		e.logger.Debug("registry match rejected", "artist_id", a.ID, "query", name, "registry_name", info.Name)
	}
	return false, nil
}

func registryNameMatches(info *musicbrainz.ArtistInfo, a *artist.Artist) bool {
	for _, candidate := range []string{info.Name, info.LocalizedName} {
		if equalFolded(candidate, a.Name) || equalFolded(candidate, a.LocalizedName) {
			return true
		}
	}
	return false
}
