package musicbrainz

import (
	"strings"
	"unicode"
)

// excludedEntityKeywords name labels, agencies, broadcasters, streaming
// services, programs and events that show up as "artists" in registry
// search results and "member of" relations.
var excludedEntityKeywords = []string{
	"smtown", "sm entertainment", "yg entertainment", "jyp entertainment", "jyp",
	"hybe", "big hit", "bighit", "cube entertainment", "cube", "fnc entertainment",
	"dsp media", "dsp", "starship entertainment", "rbw", "rainbow bridge world",
	"wm entertainment", "wm", "pledis entertainment", "source music", "wakeone",
	"cj enm", "mnet", "kbs", "mbc", "sbs", "loen entertainment", "kakao m",
	"genie music", "genie", "melon", "bugs", "flo", "vibe",
	"produce 101", "produce", "show me the money", "k-pop star", "kpop star",
	"superstar k", "the voice", "masked singer", "king of masked singer",
	"sugar man", "immortal songs", "fantastic duo", "hidden singer",
	"i can see your voice", "queendom", "kingdom", "girls planet", "boys planet",
	"unpretty rapstar", "good girl", "music bank", "music core", "inkigayo",
	"show champion", "m countdown", "the show", "music show",
	"award", "festival", "concert",
}

// IsExcludedEntity reports whether name looks like a label, program or
// event rather than a performing artist. A keyword matches the whole name
// or its leading word(s), so "Cube Entertainment" is excluded but
// "Cuberoom" is not. Purely numeric names are excluded too.
func IsExcludedEntity(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return true
	}
	if isNumeric(n) {
		return true
	}
	for _, kw := range excludedEntityKeywords {
		if n == kw ||
			strings.HasPrefix(n, kw+" ") ||
			strings.HasPrefix(n, kw+"(") ||
			strings.HasPrefix(n, kw+"-") {
			return true
		}
	}
	return false
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func containsHangul(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}
