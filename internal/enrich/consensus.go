package enrich

import (
	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/provider/wikidata"
)

// ResolveType picks one classification from the knowledge graph's inferred
// type and the registry's stated type. Agreement or a single value is
// accepted as is; on disagreement the knowledge graph wins.
func ResolveType(graph, registry artist.Type) artist.Type {
	if graph != artist.TypeUnknown {
		return graph
	}
	return registry
}

// InferType classifies an entity from its P31 claims. Group wins over
// human when both are present.
func InferType(e *wikidata.Entity) artist.Type {
	if e == nil {
		return artist.TypeUnknown
	}
	switch {
	case e.IsInstanceOf(musicalGroupItems...):
		return artist.TypeGroup
	case e.IsInstanceOf(wikidata.ItemHuman):
		return artist.TypeSolo
	default:
		return artist.TypeUnknown
	}
}
