package wikidata

import (
	"encoding/json"
	"slices"
	"strings"
)

// Property and item identifiers used by the enrichment engine.
const (
	PropInstanceOf      = "P31"
	PropCitizenship     = "P27"
	PropOccupation      = "P106"
	PropMemberOf        = "P463"
	PropMusicBrainzID   = "P434"
	PropSpotifyArtistID = "P1902"
	PropBirthName       = "P1477"
	PropGivenName       = "P735"
	PropFamilyName      = "P734"
	PropBirthDate       = "P569"
	PropInception       = "P571"

	ItemHuman        = "Q5"
	ItemMusicalGroup = "Q215380"
)

// Value is one claim value, decoded according to its datatype. Exactly one
// of the fields is set.
type Value struct {
	EntityID string // wikibase-entityid
	String   string // string, external-id
	Text     string // monolingualtext
	Language string // monolingualtext language
	Time     string // time, e.g. "+1993-05-16T00:00:00Z"
}

// Entity is a decoded knowledge-graph item.
type Entity struct {
	ID           string
	Labels       map[string]string
	Descriptions map[string]string
	// Sitelinks maps a site key (e.g. "kowiki") to the page title.
	Sitelinks map[string]string
	Claims    map[string][]Value
}

// Label returns the label in lang, or "".
func (e *Entity) Label(lang string) string { return e.Labels[lang] }

// Description returns the description in lang, or "".
func (e *Entity) Description(lang string) string { return e.Descriptions[lang] }

// Sitelink returns the page title on site, or "".
func (e *Entity) Sitelink(site string) string { return e.Sitelinks[site] }

// HasSitelinks reports whether the entity links to any encyclopedia page.
func (e *Entity) HasSitelinks() bool { return len(e.Sitelinks) > 0 }

// EntityIDs returns the item ids claimed for prop.
func (e *Entity) EntityIDs(prop string) []string {
	var ids []string
	for _, v := range e.Claims[prop] {
		if v.EntityID != "" {
			ids = append(ids, v.EntityID)
		}
	}
	return ids
}

// Strings returns the string and external-id values claimed for prop.
func (e *Entity) Strings(prop string) []string {
	var out []string
	for _, v := range e.Claims[prop] {
		if v.String != "" {
			out = append(out, v.String)
		}
	}
	return out
}

// HasClaim reports whether prop carries at least one value.
func (e *Entity) HasClaim(prop string) bool { return len(e.Claims[prop]) > 0 }

// MonolingualText returns the first monolingual text for prop in lang.
func (e *Entity) MonolingualText(prop, lang string) string {
	for _, v := range e.Claims[prop] {
		if v.Language == lang && v.Text != "" {
			return v.Text
		}
	}
	return ""
}

// Times returns the time values claimed for prop.
func (e *Entity) Times(prop string) []string {
	var out []string
	for _, v := range e.Claims[prop] {
		if v.Time != "" {
			out = append(out, v.Time)
		}
	}
	return out
}

// IsInstanceOf reports whether any P31 value is one of items.
func (e *Entity) IsInstanceOf(items ...string) bool {
	for _, id := range e.EntityIDs(PropInstanceOf) {
		if slices.Contains(items, id) {
			return true
		}
	}
	return false
}

// Year extracts the year from a Wikidata time value ("+1993-05-16T..." -> "1993").
func Year(t string) string {
	t = strings.TrimLeft(t, "+")
	if idx := strings.Index(t, "-"); idx > 0 {
		return t[:idx]
	}
	return t
}

// Wikidata API response types.

type entitiesResponse struct {
	Entities map[string]rawEntity `json:"entities"`
}

type rawEntity struct {
	ID           string                 `json:"id"`
	Missing      *string                `json:"missing,omitempty"`
	Labels       map[string]langValue   `json:"labels"`
	Descriptions map[string]langValue   `json:"descriptions"`
	Claims       map[string][]rawClaim  `json:"claims"`
	Sitelinks    map[string]rawSitelink `json:"sitelinks"`
}

type langValue struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

type rawClaim struct {
	Mainsnak rawSnak `json:"mainsnak"`
	Rank     string  `json:"rank"`
}

type rawSnak struct {
	SnakType  string        `json:"snaktype"`
	Datavalue *rawDatavalue `json:"datavalue,omitempty"`
}

type rawDatavalue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type rawSitelink struct {
	Site  string `json:"site"`
	Title string `json:"title"`
}

type searchResponse struct {
	Search []struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	} `json:"search"`
}

// SPARQL response types.

// SPARQLResponse is the top-level response from the SPARQL endpoint.
type SPARQLResponse struct {
	Head    struct{} `json:"head"`
	Boolean *bool    `json:"boolean,omitempty"`
	Results struct {
		Bindings []map[string]SPARQLValue `json:"bindings"`
	} `json:"results"`
}

// SPARQLValue represents a single SPARQL value.
type SPARQLValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// decode flattens the API representation. Deprecated-rank and novalue
// claims are dropped.
func (r rawEntity) decode() *Entity {
	e := &Entity{
		ID:           r.ID,
		Labels:       make(map[string]string, len(r.Labels)),
		Descriptions: make(map[string]string, len(r.Descriptions)),
		Sitelinks:    make(map[string]string, len(r.Sitelinks)),
		Claims:       make(map[string][]Value, len(r.Claims)),
	}
	for lang, v := range r.Labels {
		e.Labels[lang] = v.Value
	}
	for lang, v := range r.Descriptions {
		e.Descriptions[lang] = v.Value
	}
	for site, v := range r.Sitelinks {
		e.Sitelinks[site] = v.Title
	}
	for prop, claims := range r.Claims {
		for _, c := range claims {
			if c.Rank == "deprecated" || c.Mainsnak.SnakType != "value" || c.Mainsnak.Datavalue == nil {
				continue
			}
			if v, ok := decodeValue(c.Mainsnak.Datavalue); ok {
				e.Claims[prop] = append(e.Claims[prop], v)
			}
		}
	}
	return e
}

func decodeValue(dv *rawDatavalue) (Value, bool) {
	switch dv.Type {
	case "wikibase-entityid":
		var v struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(dv.Value, &v); err != nil || v.ID == "" {
			return Value{}, false
		}
		return Value{EntityID: v.ID}, true
	case "string":
		var s string
		if err := json.Unmarshal(dv.Value, &s); err != nil {
			return Value{}, false
		}
		return Value{String: s}, true
	case "monolingualtext":
		var v struct {
			Text     string `json:"text"`
			Language string `json:"language"`
		}
		if err := json.Unmarshal(dv.Value, &v); err != nil {
			return Value{}, false
		}
		return Value{Text: v.Text, Language: v.Language}, true
	case "time":
		var v struct {
			Time string `json:"time"`
		}
		if err := json.Unmarshal(dv.Value, &v); err != nil {
			return Value{}, false
		}
		return Value{Time: v.Time}, true
	default:
		return Value{}, false
	}
}
