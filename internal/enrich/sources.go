package enrich

import (
	"context"

	"github.com/sydlexius/liner/internal/provider/flo"
	"github.com/sydlexius/liner/internal/provider/musicbrainz"
	"github.com/sydlexius/liner/internal/provider/spotify"
	"github.com/sydlexius/liner/internal/provider/wikidata"
	"github.com/sydlexius/liner/internal/provider/wikipedia"
)

// KnowledgeGraph is the subset of the Wikidata adapter the engine uses.
type KnowledgeGraph interface {
	FindIDsByExternalRef(ctx context.Context, prop, value string) ([]string, error)
	GetEntity(ctx context.Context, id string) (*wikidata.Entity, error)
	GetEntities(ctx context.Context, ids []string) (map[string]*wikidata.Entity, error)
	Labels(ctx context.Context, ids []string, lang string) (map[string]string, error)
	SearchByName(ctx context.Context, name, lang string) ([]string, error)
	FindIDByName(ctx context.Context, name, lang string) (string, error)
	IsMusicalGroup(ctx context.Context, id string) (bool, error)
}

// Registry is the subset of the MusicBrainz adapter the engine uses.
type Registry interface {
	SearchByName(ctx context.Context, name string) (*musicbrainz.ArtistInfo, error)
	GetByID(ctx context.Context, mbid string) (*musicbrainz.ArtistInfo, error)
	LookupBySpotifyID(ctx context.Context, spotifyID string) (*musicbrainz.ArtistInfo, error)
	IsSubunitOrProject(ctx context.Context, mbid string) (bool, error)
	IsActivityEnded(ctx context.Context, mbid string) (bool, error)
	CollectNameAliases(ctx context.Context, mbid string) ([]musicbrainz.Alias, error)
}

// LocalizedLookup returns a localized name and group for a display name.
type LocalizedLookup interface {
	SearchByName(ctx context.Context, name string) (*flo.Result, error)
}

// RealNameLookup returns an artist's legal name from a name search.
type RealNameLookup interface {
	RealName(ctx context.Context, name, localizedName string) (string, error)
}

// Encyclopedia returns page summaries.
type Encyclopedia interface {
	Summary(ctx context.Context, lang, title string) (*wikipedia.Summary, error)
}

// Catalog returns streaming-catalog artist profiles.
type Catalog interface {
	Artist(ctx context.Context, id string) (*spotify.Artist, error)
}

// Sources bundles every adapter the engine may query. KnowledgeGraph,
// Registry and Localized are required; the rest may be nil, in which case
// the steps that need them are skipped.
type Sources struct {
	KnowledgeGraph KnowledgeGraph
	Registry       Registry
	Localized      LocalizedLookup
	RealName       RealNameLookup
	Encyclopedia   Encyclopedia
	Catalog        Catalog
}
