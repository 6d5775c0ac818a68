package artist

import "time"

// Type classifies an artist as a solo performer or a group.
type Type string

// Artist types. TypeUnknown means no source has classified the artist yet.
const (
	TypeUnknown Type = ""
	TypeSolo    Type = "SOLO"
	TypeGroup   Type = "GROUP"
)

// ParseType maps loosely formatted type strings onto Type.
func ParseType(s string) Type {
	switch s {
	case "SOLO", "solo", "Person", "person":
		return TypeSolo
	case "GROUP", "group", "Group", "Orchestra", "Choir":
		return TypeGroup
	default:
		return TypeUnknown
	}
}

// Artist is a catalog record. Empty strings stand for NULL columns: an empty
// LocalizedName is what queues the artist for enrichment, and an empty
// RealName is the only state in which a real name may be written.
type Artist struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	SpotifyID     string    `json:"spotify_id,omitempty"`
	MusicBrainzID string    `json:"musicbrainz_id,omitempty"`
	WikidataID    string    `json:"wikidata_id,omitempty"`
	LocalizedName string    `json:"name_localized,omitempty"`
	RealName      string    `json:"real_name,omitempty"`
	Type          Type      `json:"artist_type,omitempty"`
	Group         string    `json:"artist_group,omitempty"`
	Biography     string    `json:"biography,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Normalize enforces record invariants before persistence.
func (a *Artist) Normalize() {
	if a.Type == TypeGroup {
		a.Group = ""
	}
}

// Field names an enrichment target. Each field has its own selection predicate.
type Field string

// Enrichment target fields.
const (
	FieldLocalized Field = "localized"
	FieldRealName  Field = "real_name"
	FieldBiography Field = "biography"
	FieldMBID      Field = "mbid"
)

// AllFields returns every enrichment target in scheduling order.
func AllFields() []Field {
	return []Field{FieldLocalized, FieldRealName, FieldBiography, FieldMBID}
}

// ParseField validates a field name.
func ParseField(s string) (Field, bool) {
	for _, f := range AllFields() {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// pendingPredicate returns the WHERE clause selecting rows still missing f.
func (f Field) pendingPredicate() string {
	switch f {
	case FieldRealName:
		return "real_name IS NULL AND (spotify_id IS NOT NULL OR musicbrainz_id IS NOT NULL)"
	case FieldBiography:
		return "biography IS NULL AND spotify_id IS NOT NULL"
	case FieldMBID:
		return "musicbrainz_id IS NULL"
	default:
		return "name_localized IS NULL"
	}
}

// assignments returns the SET clause and arguments for the columns f
// writes. Shared identifiers and the real name are fill-only.
func (f Field) assignments(a *Artist) (string, []any) {
	switch f {
	case FieldRealName:
		return "real_name = COALESCE(real_name, ?)", []any{nullString(a.RealName)}
	case FieldBiography:
		return "biography = COALESCE(?, biography)", []any{nullString(a.Biography)}
	case FieldMBID:
		return "musicbrainz_id = COALESCE(musicbrainz_id, ?)", []any{nullString(a.MusicBrainzID)}
	default:
		return `name_localized = COALESCE(?, name_localized),
			artist_type = COALESCE(?, artist_type),
			artist_group = CASE WHEN COALESCE(?, artist_type) = 'GROUP' THEN NULL ELSE ? END,
			wikidata_id = COALESCE(wikidata_id, ?),
			musicbrainz_id = COALESCE(musicbrainz_id, ?)`,
			[]any{
				nullString(a.LocalizedName),
				nullString(string(a.Type)),
				nullString(string(a.Type)), nullString(a.Group),
				nullString(a.WikidataID),
				nullString(a.MusicBrainzID),
			}
	}
}

