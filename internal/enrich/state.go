package enrich

import (
	"slices"

	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/provider"
	"github.com/sydlexius/liner/internal/provider/musicbrainz"
	"github.com/sydlexius/liner/internal/provider/wikidata"
)

// Result is what one step contributes. Every field is optional: an empty
// value means the step has no opinion on it. Each value carries the source
// that produced it.
type Result struct {
	LocalizedName string
	LocalizedFrom provider.SourceName
	Group         string
	GroupFrom     provider.SourceName
	Type          artist.Type
	TypeFrom      provider.SourceName

	// Entity and Registry are the identities a step resolved. Later steps
	// reuse them instead of asking again.
	Entity   *wikidata.Entity
	Registry *musicbrainz.ArtistInfo
}

// State is the merged view of every step run so far for one artist.
type State struct {
	Result
	// Sources lists each source that contributed at least one field, in
	// the order it first contributed.
	Sources []provider.SourceName
}

// Merge folds r into s. Each field keeps the first non-empty value it saw.
func (s State) Merge(r Result) State {
	s.LocalizedName, s.LocalizedFrom = firstString(s.LocalizedName, s.LocalizedFrom, r.LocalizedName, r.LocalizedFrom)
	s.Group, s.GroupFrom = firstString(s.Group, s.GroupFrom, r.Group, r.GroupFrom)
	s.Type, s.TypeFrom = firstType(s.Type, s.TypeFrom, r.Type, r.TypeFrom)
	if s.Entity == nil {
		s.Entity = r.Entity
	}
	if s.Registry == nil {
		s.Registry = r.Registry
	}
	s.Sources = slices.Clone(s.Sources)
	for _, src := range []provider.SourceName{s.LocalizedFrom, s.GroupFrom, s.TypeFrom} {
		if src != "" && !slices.Contains(s.Sources, src) {
			s.Sources = append(s.Sources, src)
		}
	}
	return s
}

// GroupTrust is the trust tier of whichever source supplied the group.
func (s State) GroupTrust() provider.Trust {
	return s.GroupFrom.Trust()
}

func firstString(cur string, curFrom provider.SourceName, v string, from provider.SourceName) (string, provider.SourceName) {
	if cur != "" || v == "" {
		return cur, curFrom
	}
	return v, from
}

func firstType(cur artist.Type, curFrom provider.SourceName, v artist.Type, from provider.SourceName) (artist.Type, provider.SourceName) {
	if cur != artist.TypeUnknown || v == artist.TypeUnknown {
		return cur, curFrom
	}
	return v, from
}
