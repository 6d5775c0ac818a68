package enrich

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/config"
	"github.com/sydlexius/liner/internal/provider/wikidata"
)

// Reasons a biography could not be produced. They are logged, not stored.
const (
	bioNoSpotifyID     = "no_spotify_id"
	bioNoCandidates    = "no_qid_candidates"
	bioEntityNotFound  = "entity_not_found"
	bioNoDescriptions  = "no_descriptions"
	bioLowConfidence   = "low_confidence"
	bioNameSearchFails = "name_search_failed"
)

// Fallback name searches consider at most this many hits.
const bioNameSearchLimit = 5

// Begin years this far in the past are treated as data errors.
const maxActiveYears = 50

// EnrichBiography fills a.Biography using the configured strategy.
func (e *Engine) EnrichBiography(ctx context.Context, a *artist.Artist) (bool, error) {
	if a.Biography != "" {
		return false, nil
	}
	if a.SpotifyID == "" {
		e.logger.Debug("biography skipped", "artist_id", a.ID, "reason", bioNoSpotifyID)
		return false, nil
	}

	var (
		text, reason string
		err          error
	)
	if e.biographyStrategy == config.BiographyTemplated {
		text, reason, err = e.templatedBiography(ctx, a)
	} else {
		text, reason, err = e.extractedBiography(ctx, a)
	}
	if err != nil {
		return false, err
	}
	if text == "" {
		e.logger.Debug("biography skipped", "artist_id", a.ID, "reason", reason)
		return false, nil
	}
	a.Biography = text
	return true, nil
}

// extractedBiography scores entities claiming the streaming id and takes
// the winner's text. Only when that lookup returns nothing does it fall
// back to a name search, with a lower acceptance threshold.
func (e *Engine) extractedBiography(ctx context.Context, a *artist.Artist) (string, string, error) {
	kg := e.src.KnowledgeGraph
	ids, err := kg.FindIDsByExternalRef(ctx, wikidata.PropSpotifyArtistID, a.SpotifyID)
	if err != nil {
		if isFatal(err) {
			return "", "", err
		}
		e.logger.Debug("streaming id lookup failed", "artist_id", a.ID, "error", err)
	}
	byRef := len(ids) > 0
	minScore := bioMinScoreByRef
	if !byRef {
		minScore = bioMinScoreByName
		ids, err = kg.SearchByName(ctx, firstNonEmpty(a.LocalizedName, a.Name), langPrimary)
		if err != nil {
			if isFatal(err) {
				return "", "", err
			}
			return "", bioNameSearchFails, nil
		}
		if len(ids) > bioNameSearchLimit {
			ids = ids[:bioNameSearchLimit]
		}
	}
	if len(ids) == 0 {
		return "", bioNoCandidates, nil
	}

	ents, err := kg.GetEntities(ctx, ids)
	if err != nil {
		if isFatal(err) {
			return "", "", err
		}
		return "", bioEntityNotFound, nil
	}
	if len(ents) == 0 {
		return "", bioEntityNotFound, nil
	}

	var cands []BiographyCandidate
	for _, id := range ids {
		ent, ok := ents[id]
		if !ok {
			continue
		}
		if c, ok := ScoreBiography(ent, a.SpotifyID, a.Name, a.LocalizedName, byRef); ok {
			cands = append(cands, c)
		}
	}
	best, ok := BestBiography(cands, minScore)
	if !ok {
		return "", bioLowConfidence, nil
	}

	text := best.Text
	if lead := e.encyclopediaLead(ctx, ents[best.EntityID]); lead != "" {
		text = lead
	}
	if strings.TrimSpace(text) == "" {
		return "", bioNoDescriptions, nil
	}
	e.logger.Debug("biography selected", "artist_id", a.ID, "qid", best.EntityID, "score", best.Score, "lang", best.Lang)
	return strings.TrimSpace(text), "", nil
}

// encyclopediaLead returns the Korean Wikipedia summary for ent, or "".
func (e *Engine) encyclopediaLead(ctx context.Context, ent *wikidata.Entity) string {
	title := ent.Sitelink(sitePrimary)
	if e.src.Encyclopedia == nil || title == "" {
		return ""
	}
	sum, err := e.src.Encyclopedia.Summary(ctx, langPrimary, title)
	if err != nil {
		e.logger.Debug("wikipedia summary unavailable", "title", title, "error", err)
		return ""
	}
	return sum.Extract
}

// templatedBiography composes a short Korean profile from structured
// facts: nationality, occupation, group and the year activity began.
func (e *Engine) templatedBiography(ctx context.Context, a *artist.Artist) (string, string, error) {
	ent, err := e.resolveEntity(ctx, a)
	if err != nil {
		if isFatal(err) {
			return "", "", err
		}
		e.logger.Debug("entity lookup failed", "artist_id", a.ID, "error", err)
	}
	if ent == nil {
		return "", bioEntityNotFound, nil
	}

	nationality := firstN(ent.EntityIDs(wikidata.PropCitizenship), 1)
	occupations := firstN(ent.EntityIDs(wikidata.PropOccupation), 2)
	groups := firstN(ent.EntityIDs(wikidata.PropMemberOf), 1)
	ids := slices.Concat(nationality, occupations, groups)

	labels := map[string]string{}
	if len(ids) > 0 {
		labels, err = e.src.KnowledgeGraph.Labels(ctx, ids, langPrimary)
		if err != nil {
			if isFatal(err) {
				return "", "", err
			}
			labels = map[string]string{}
		}
	}

	f := bioFacts{
		Nationality: labelOf(labels, nationality),
		Type:        InferType(ent),
	}
	for _, id := range occupations {
		if l := labels[id]; l != "" {
			f.Occupations = append(f.Occupations, l)
		}
	}
	if f.Type != artist.TypeGroup {
		f.Group = labelOf(labels, groups)
	}

	mbid := a.MusicBrainzID
	if mbid == "" {
		mbid = firstNonEmpty(ent.Strings(wikidata.PropMusicBrainzID)...)
	}
	if mbid != "" {
		info, err := e.lookupRegistry(ctx, mbid)
		if err != nil && isFatal(err) {
			return "", "", err
		}
		if info != nil {
			if f.Type == artist.TypeUnknown {
				f.Type = artist.ParseType(info.Type)
			}
			f.BeginYear = e.plausibleBeginYear(wikidata.Year(info.BeginDate), birthYear(ent))
		}
	}

	if len(f.Occupations) == 0 && e.src.Catalog != nil {
		sp, err := e.src.Catalog.Artist(ctx, a.SpotifyID)
		switch {
		case err == nil:
			f.Genres = firstN(sp.Genres, 2)
		case isFatal(err):
			return "", "", err
		}
	}

	text := f.sentence()
	if text == "" {
		return "", bioNoDescriptions, nil
	}
	return text, "", nil
}

// plausibleBeginYear drops begin years that are implausibly old or that
// sit within two years of the birth year, which usually means the
// registry recorded a birth date as the start of activity.
func (e *Engine) plausibleBeginYear(begin, born string) string {
	y, err := strconv.Atoi(begin)
	if err != nil || y <= 0 {
		return ""
	}
	if e.now().Year()-y > maxActiveYears {
		return ""
	}
	if b, err := strconv.Atoi(born); err == nil && b > 0 && y-b <= 2 && b-y <= 2 {
		return ""
	}
	return begin
}

func birthYear(ent *wikidata.Entity) string {
	if t := ent.Times(wikidata.PropBirthDate); len(t) > 0 {
		return wikidata.Year(t[0])
	}
	return ""
}

type bioFacts struct {
	Nationality string
	Occupations []string
	Genres      []string
	Group       string
	Type        artist.Type
	BeginYear   string
}

func (f bioFacts) sentence() string {
	subject := strings.Join(f.Occupations, ", ")
	switch {
	case subject != "":
	case len(f.Genres) > 0:
		subject = strings.Join(f.Genres, ", ") + " 아티스트"
	case f.Type == artist.TypeGroup:
		subject = "음악 그룹"
	case f.Type == artist.TypeSolo && (f.Nationality != "" || f.Group != ""):
		subject = "음악가"
	}

	var parts []string
	switch {
	case subject != "" && f.Nationality != "":
		parts = append(parts, fmt.Sprintf("%s의 %s입니다.", f.Nationality, subject))
	case subject != "":
		parts = append(parts, subject+"입니다.")
	}
	if f.Group != "" {
		parts = append(parts, fmt.Sprintf("%s의 멤버입니다.", f.Group))
	}
	if f.BeginYear != "" {
		parts = append(parts, fmt.Sprintf("%s년부터 활동했습니다.", f.BeginYear))
	}
	return strings.Join(parts, " ")
}

func labelOf(labels map[string]string, ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return labels[ids[0]]
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
