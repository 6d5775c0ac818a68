package enrich

import (
	"strings"
	"unicode/utf8"

	"github.com/sydlexius/liner/internal/provider"
)

// Keyword lists for entities that sources commonly report as a "group" but
// that are really broadcast programs, agencies or one-off stages.
var (
	programKeywords = []string{
		"produce", "show", "survival", "audition", "competition", "project",
		"queendom", "kingdom", "girls planet", "boys planet", "planet",
		"show me the money", "k-pop star", "kpop star", "superstar k",
		"the voice", "masked singer", "king of masked singer", "sugar man",
		"immortal songs", "fantastic duo", "hidden singer", "i can see your voice",
		"unpretty rapstar", "good girl", "music bank", "music core", "inkigayo",
		"show champion", "m countdown", "the show", "music show", "award",
		"festival", "concert", "special",
		"프로듀스", "쇼", "서바이벌", "오디션", "경쟁", "프로그램", "프로젝트",
		"퀸덤", "킹덤", "걸스플래닛", "보이즈플래닛", "플래닛", "쇼미더머니",
		"케이팝스타", "슈퍼스타K", "더보이스", "복면가왕", "슈가맨", "불후의명곡",
		"판타스틱듀오", "히든싱어", "너의목소리가보여", "언프리티랩스타", "굿걸",
		"뮤직뱅크", "뮤직코어", "인기가요", "쇼챔피언", "엠카운트다운", "더쇼",
		"뮤직쇼", "시상식", "페스티벌", "콘서트",
	}

	companyKeywords = []string{
		"sm entertainment", "yg entertainment", "jyp entertainment",
		"cube entertainment", "pledis entertainment", "starship entertainment",
		"fantagio", "woollim", "fnc entertainment", "rbw", "source music",
		"bighit", "big hit", "hybe", "wakeone", "cj enm", "mnet", "kbs", "mbc",
		"sbs", "loen entertainment", "loen", "kakao m", "genie music", "genie",
		"melon", "bugs", "flo", "vibe", "smtown", "sm", "yg", "jyp", "cube",
		"pledis", "starship", "fnc", "source",
		"엔터테인먼트", "엔터", "기획사", "소속사", "레이블", "스튜디오",
	}

	eventKeywords = []string{
		"collaboration", "collab", "special stage", "special unit",
		"project group", "temporary", "one-time", "event",
		"collaboration stage", "collab stage", "special collaboration",
		"합동", "콜라보", "스페셜", "특별", "임시", "일회성", "이벤트",
		"프로젝트 그룹", "특별 무대", "합동 무대", "콜라보 무대",
	}
)

// Minimum compacted length a candidate must exceed, per trust tier. Low
// trust sources cannot contribute three-letter acronyms.
const (
	minLenHighTrust = 2
	minLenLowTrust  = 3
)

// Latin keywords at least this long match anywhere inside a name.
const minSubstringKeyword = 4

// ValidateGroup returns candidate unchanged if it is a plausible group
// affiliation for the artist, or "" if it is rejected. It never calls out
// and keeps no state.
func ValidateGroup(candidate, displayName, localizedName string, trust provider.Trust) string {
	reason := rejectGroup(candidate, displayName, localizedName, trust)
	if reason != "" {
		return ""
	}
	return candidate
}

// rejectGroup names the first rule candidate fails, or "" if it passes.
func rejectGroup(candidate, displayName, localizedName string, trust provider.Trust) string {
	if strings.TrimSpace(candidate) == "" {
		return "blank"
	}
	key := compactKey(candidate)
	minLen := minLenLowTrust
	if trust == provider.TrustHigh {
		minLen = minLenHighTrust
	}
	if utf8.RuneCountInString(key) <= minLen {
		return "too_short"
	}
	if isNumeric(key) {
		return "numeric"
	}
	if overlapsName(key, displayName) || overlapsName(key, localizedName) {
		return "self_reference"
	}
	switch {
	case matchesKeyword(candidate, programKeywords):
		return "program"
	case matchesKeyword(candidate, companyKeywords):
		return "company"
	case matchesKeyword(candidate, eventKeywords):
		return "event"
	}
	return ""
}

// overlapsName reports whether the compacted group key equals, starts with,
// ends with, or is contained in the artist's own name.
func overlapsName(groupKey, name string) bool {
	nameKey := compactKey(name)
	if nameKey == "" {
		return false
	}
	if groupKey == nameKey {
		return true
	}
	if utf8.RuneCountInString(nameKey) >= 2 &&
		(strings.HasPrefix(groupKey, nameKey) || strings.HasSuffix(groupKey, nameKey)) {
		return true
	}
	return utf8.RuneCountInString(groupKey) >= 2 && strings.Contains(nameKey, groupKey)
}

// matchesKeyword reports whether any keyword occurs, case-insensitively, in
// the compacted candidate. Latin keywords shorter than four letters ("sm",
// "kbs") only match as whole words, so "SMASH" is not read as an agency.
func matchesKeyword(candidate string, keywords []string) bool {
	padded := " " + words(candidate) + " "
	compact := compactKey(candidate)
	for _, kw := range keywords {
		key := compactKey(kw)
		if isASCII(kw) && utf8.RuneCountInString(key) < minSubstringKeyword {
			if strings.Contains(padded, " "+words(kw)+" ") {
				return true
			}
			continue
		}
		if strings.Contains(compact, key) {
			return true
		}
	}
	return false
}
