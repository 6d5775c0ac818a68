package provider

import (
	"fmt"
	"time"
)

// SourceName uniquely identifies an external metadata source.
type SourceName string

// Known source names.
const (
	SourceWikidata    SourceName = "wikidata"
	SourceMusicBrainz SourceName = "musicbrainz"
	SourceWikipedia   SourceName = "wikipedia"
	SourceFLO         SourceName = "flo"
	SourceManiaDB     SourceName = "maniadb"
	SourceSpotify     SourceName = "spotify"
)

// AllSourceNames returns all known source names in query priority order.
func AllSourceNames() []SourceName {
	return []SourceName{
		SourceWikidata,
		SourceMusicBrainz,
		SourceWikipedia,
		SourceFLO,
		SourceManiaDB,
		SourceSpotify,
	}
}

// DisplayName returns a human-readable name for the source.
func (n SourceName) DisplayName() string {
	switch n {
	case SourceWikidata:
		return "Wikidata"
	case SourceMusicBrainz:
		return "MusicBrainz"
	case SourceWikipedia:
		return "Wikipedia"
	case SourceFLO:
		return "FLO"
	case SourceManiaDB:
		return "ManiaDB"
	case SourceSpotify:
		return "Spotify"
	default:
		return string(n)
	}
}

// Trust is a coarse confidence tier for data contributed by a source.
type Trust int

// Trust tiers. The zero value is TrustLow so an unknown origin is never
// treated as authoritative.
const (
	TrustLow Trust = iota
	TrustHigh
)

func (t Trust) String() string {
	if t == TrustHigh {
		return "HIGH"
	}
	return "LOW"
}

// Trust returns the tier assigned to data coming from the source.
// The supplementary lookup services are always low trust.
func (n SourceName) Trust() Trust {
	switch n {
	case SourceWikidata, SourceMusicBrainz, SourceWikipedia, SourceSpotify:
		return TrustHigh
	default:
		return TrustLow
	}
}

// ErrSourceUnavailable indicates a transient failure (timeout, server error,
// malformed response). The source's contribution is skipped.
type ErrSourceUnavailable struct {
	Source SourceName
	Cause  error
}

func (e *ErrSourceUnavailable) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Cause)
}

func (e *ErrSourceUnavailable) Unwrap() error { return e.Cause }

// ErrRateLimited indicates the source rejected the call for exceeding its
// quota. RetryAfter is the delay the source advertised, zero when absent.
type ErrRateLimited struct {
	Source     SourceName
	RetryAfter time.Duration
}

func (e *ErrRateLimited) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("source %s rate limited (retry after %s)", e.Source, e.RetryAfter)
	}
	return fmt.Sprintf("source %s rate limited", e.Source)
}

// ErrAuthExpired indicates the source rejected the call's credentials.
type ErrAuthExpired struct {
	Source SourceName
}

func (e *ErrAuthExpired) Error() string {
	return fmt.Sprintf("source %s: authorization expired", e.Source)
}

// ErrNotFound indicates the source has no data for the requested ID.
type ErrNotFound struct {
	Source SourceName
	ID     string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("source %s: %s not found", e.Source, e.ID)
}

// ErrAuthRequired indicates the source needs credentials but none are configured.
type ErrAuthRequired struct {
	Source SourceName
}

func (e *ErrAuthRequired) Error() string {
	return fmt.Sprintf("source %s: credentials not configured", e.Source)
}
