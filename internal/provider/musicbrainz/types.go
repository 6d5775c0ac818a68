package musicbrainz

// MusicBrainz API response types.

// SearchResponse is the top-level response from the artist search endpoint.
type SearchResponse struct {
	Created string     `json:"created"`
	Count   int        `json:"count"`
	Offset  int        `json:"offset"`
	Artists []MBArtist `json:"artists"`
}

// MBArtist represents a MusicBrainz artist entity.
type MBArtist struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	SortName       string       `json:"sort-name"`
	Type           string       `json:"type"`
	Disambiguation string       `json:"disambiguation"`
	Country        string       `json:"country"`
	Score          int          `json:"score"`
	LifeSpan       MBLifeSpan   `json:"life-span"`
	Aliases        []MBAlias    `json:"aliases"`
	Relations      []MBRelation `json:"relations"`
}

// MBLifeSpan represents the begin/end dates of an artist.
type MBLifeSpan struct {
	Begin string `json:"begin"`
	End   string `json:"end"`
	Ended bool   `json:"ended"`
}

// MBAlias represents an alternative name for an artist.
type MBAlias struct {
	Name     string `json:"name"`
	SortName string `json:"sort-name"`
	Type     string `json:"type"`
	Locale   string `json:"locale"`
	Primary  bool   `json:"primary"`
}

// MBRelation represents a relationship between entities.
type MBRelation struct {
	Type       string    `json:"type"`
	TargetType string    `json:"target-type"`
	Direction  string    `json:"direction"`
	Begin      string    `json:"begin"`
	End        string    `json:"end"`
	Ended      bool      `json:"ended"`
	Artist     *MBArtist `json:"artist,omitempty"`
}

// MBURL is the response from the url lookup endpoint.
type MBURL struct {
	ID        string       `json:"id"`
	Resource  string       `json:"resource"`
	Relations []MBRelation `json:"relations"`
}

// Alias is a name variant collected from the registry.
type Alias struct {
	Name    string
	Type    string
	Locale  string
	Primary bool
}

// ArtistInfo is the registry's view of one artist.
type ArtistInfo struct {
	ID   string
	Name string
	// LocalizedName is the Korean-locale alias, or the name itself when it
	// is already written in Hangul.
	LocalizedName string
	// Group is the first band the artist is a member of that is not a
	// label, program or event entity.
	Group          string
	GroupID        string
	Type           string
	BeginDate      string
	Disambiguation string
	Ended          bool
	Aliases        []Alias
	// Subgroup is true when the entity is recorded as a subgroup of another.
	Subgroup bool
}
