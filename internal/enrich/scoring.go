package enrich

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/provider/wikidata"
)

// Identity scoring weights.
const (
	identityTypeMatch      = 50
	identityNameMatch      = 30
	identityLocalizedMatch = 30
	identityRegistryRef    = 20
	identitySitelink       = 10
)

// Group candidate weights.
const (
	groupLocalizedLabel = 100
	groupWikipediaName  = 90
	groupWikipediaTitle = 80
	groupForeignLabel   = 50
	groupRegistryRef    = 20
	groupSitelink       = 10
)

// Biography weights and thresholds.
const (
	bioSpotifyRef     = 100
	bioTypeMatch      = 50
	bioPreferredSite  = 30
	bioOtherSite      = 10
	bioLabelMatch     = 20
	bioTextPrimary    = 20
	bioTextSecondary  = 10
	bioTextOther      = 5
	bioMinScoreByRef  = 100
	bioMinScoreByName = 50
)

// Preferred languages, primary first, and their Wikipedia site keys.
const (
	langPrimary   = "ko"
	langSecondary = "en"
	sitePrimary   = "kowiki"
	siteSecondary = "enwiki"
)

// Subclasses of musical group that are often used directly as P31 values.
var musicalGroupItems = []string{
	wikidata.ItemMusicalGroup,
	"Q105543609", // boy band
	"Q105543608", // girl group
	"Q5741069",   // rock band
	"Q2088357",   // pop group
	"Q15975802",  // K-pop group
}

// Person or performer categories accepted for biography candidates.
var performerItems = []string{
	wikidata.ItemHuman,
	wikidata.ItemMusicalGroup,
	"Q639669",   // musician
	"Q177220",   // singer
	"Q488205",   // singer-songwriter
	"Q10861427", // idol
}

// IdentityCandidate is a knowledge-graph entity proposed as the match for
// an artist, with the evidence behind its score.
type IdentityCandidate struct {
	ID             string
	Score          int
	TypeMatch      bool
	NameMatch      bool
	LocalizedMatch bool
	RegistryRef    bool
	Sitelink       bool
}

// ScoreIdentity scores e as a match for an artist known by displayName and
// optionally localizedName. The score depends only on its inputs. Entities
// that are neither a person nor a musical group score zero whatever else
// they carry.
func ScoreIdentity(e *wikidata.Entity, displayName, localizedName string) IdentityCandidate {
	c := IdentityCandidate{ID: e.ID}
	if InferType(e) == artist.TypeUnknown {
		return c
	}
	c.TypeMatch = true
	c.Score += identityTypeMatch
	if displayName != "" &&
		(containsFolded(e.Label(langPrimary), displayName) || containsFolded(e.Label(langSecondary), displayName)) {
		c.NameMatch = true
		c.Score += identityNameMatch
	}
	if localizedName != "" && containsFolded(e.Label(langPrimary), localizedName) {
		c.LocalizedMatch = true
		c.Score += identityLocalizedMatch
	}
	if e.HasClaim(wikidata.PropMusicBrainzID) {
		c.RegistryRef = true
		c.Score += identityRegistryRef
	}
	if e.HasSitelinks() {
		c.Sitelink = true
		c.Score += identitySitelink
	}
	return c
}

// BestIdentity returns the highest scoring candidate above zero. Equal
// scores go to the lowest item number, i.e. the oldest entity.
func BestIdentity(cands []IdentityCandidate) (IdentityCandidate, bool) {
	var best IdentityCandidate
	found := false
	for _, c := range cands {
		if c.Score <= 0 {
			continue
		}
		if !found || c.Score > best.Score || (c.Score == best.Score && compareQID(c.ID, best.ID) < 0) {
			best = c
			found = true
		}
	}
	return best, found
}

// GroupCandidate is a named group entity with its score.
type GroupCandidate struct {
	ID    string
	Name  string
	Score int
}

// ScoreGroup scores a group entity. wikipediaName is the Korean name
// extracted from the entity's Korean Wikipedia page, if one was found.
// A candidate with no usable name has an empty Name.
func ScoreGroup(e *wikidata.Entity, wikipediaName string) GroupCandidate {
	c := GroupCandidate{ID: e.ID}
	switch {
	case e.Label(langPrimary) != "":
		c.Name = e.Label(langPrimary)
		c.Score = groupLocalizedLabel
	case wikipediaName != "":
		c.Name = wikipediaName
		c.Score = groupWikipediaName
	case e.Sitelink(sitePrimary) != "":
		c.Name = e.Sitelink(sitePrimary)
		c.Score = groupWikipediaTitle
	case e.Label(langSecondary) != "":
		c.Name = e.Label(langSecondary)
		c.Score = groupForeignLabel
	default:
		return c
	}
	if e.HasClaim(wikidata.PropMusicBrainzID) {
		c.Score += groupRegistryRef
	}
	if e.HasSitelinks() {
		c.Score += groupSitelink
	}
	return c
}

// BestGroup returns the highest scoring named candidate, ties going to the
// lowest item number.
func BestGroup(cands []GroupCandidate) (GroupCandidate, bool) {
	named := slices.DeleteFunc(slices.Clone(cands), func(c GroupCandidate) bool { return c.Name == "" })
	if len(named) == 0 {
		return GroupCandidate{}, false
	}
	slices.SortFunc(named, func(a, b GroupCandidate) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return compareQID(a.ID, b.ID)
	})
	return named[0], true
}

// BiographyCandidate is an entity description (or encyclopedia lead) that
// may become an artist's biography.
type BiographyCandidate struct {
	EntityID string
	Text     string
	Lang     string
	Score    int
}

// ScoreBiography scores e as the biography source for an artist. When
// requireRef is set the entity must carry spotifyID in P1902, otherwise it
// is discarded and ok is false. The text is the description in the first
// available language of ko, en, then any other.
func ScoreBiography(e *wikidata.Entity, spotifyID, displayName, localizedName string, requireRef bool) (BiographyCandidate, bool) {
	c := BiographyCandidate{EntityID: e.ID}
	if spotifyID != "" && slices.Contains(e.Strings(wikidata.PropSpotifyArtistID), spotifyID) {
		c.Score += bioSpotifyRef
	} else if requireRef {
		return c, false
	}
	if e.IsInstanceOf(performerItems...) || hasAny(e.EntityIDs(wikidata.PropOccupation), performerItems) {
		c.Score += bioTypeMatch
	}
	switch {
	case e.Sitelink(sitePrimary) != "" || e.Sitelink(siteSecondary) != "":
		c.Score += bioPreferredSite
	case e.HasSitelinks():
		c.Score += bioOtherSite
	}
	for _, label := range []string{e.Label(langPrimary), e.Label(langSecondary)} {
		if label != "" && (equalFolded(label, displayName) || equalFolded(label, localizedName)) {
			c.Score += bioLabelMatch
			break
		}
	}

	switch {
	case e.Description(langPrimary) != "":
		c.Text, c.Lang = e.Description(langPrimary), langPrimary
		c.Score += bioTextPrimary
	case e.Description(langSecondary) != "":
		c.Text, c.Lang = e.Description(langSecondary), langSecondary
		c.Score += bioTextSecondary
	default:
		langs := make([]string, 0, len(e.Descriptions))
		for lang, d := range e.Descriptions {
			if strings.TrimSpace(d) != "" {
				langs = append(langs, lang)
			}
		}
		if len(langs) > 0 {
			slices.Sort(langs)
			c.Text, c.Lang = e.Descriptions[langs[0]], langs[0]
			c.Score += bioTextOther
		}
	}
	return c, true
}

// BestBiography returns the highest scoring candidate at or above
// minScore, ties going to the lowest item number.
func BestBiography(cands []BiographyCandidate, minScore int) (BiographyCandidate, bool) {
	var best BiographyCandidate
	found := false
	for _, c := range cands {
		if c.Score < minScore {
			continue
		}
		if !found || c.Score > best.Score || (c.Score == best.Score && compareQID(c.EntityID, best.EntityID) < 0) {
			best = c
			found = true
		}
	}
	return best, found
}

// compareQID orders item ids by their numeric part, falling back to string
// order for anything that is not a canonical Q-number.
func compareQID(a, b string) int {
	na, errA := strconv.ParseInt(strings.TrimPrefix(a, "Q"), 10, 64)
	nb, errB := strconv.ParseInt(strings.TrimPrefix(b, "Q"), 10, 64)
	if errA == nil && errB == nil {
		return cmp.Compare(na, nb)
	}
	return strings.Compare(a, b)
}

func hasAny(values, set []string) bool {
	for _, v := range values {
		if slices.Contains(set, v) {
			return true
		}
	}
	return false
}
