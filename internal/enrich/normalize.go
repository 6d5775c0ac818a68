package enrich

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// fold applies NFKC and Unicode case folding, so full-width Latin and
// compatibility forms compare equal to their plain counterparts.
func fold(s string) string {
	// Casers carry state and must not be shared between goroutines.
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}

// compactKey folds s and drops whitespace, punctuation and symbols.
// "D.O." and "d o" both become "do".
func compactKey(s string) string {
	var b strings.Builder
	for _, r := range fold(s) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// words folds s and splits it on anything that is not a letter or digit,
// rejoining with single spaces. "K-Pop  Star" becomes "k pop star".
func words(s string) string {
	fields := strings.FieldsFunc(fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

func containsFolded(haystack, needle string) bool {
	n := fold(needle)
	if n == "" {
		return false
	}
	return strings.Contains(fold(haystack), n)
}

func equalFolded(a, b string) bool {
	return a != "" && b != "" && compactKey(a) == compactKey(b)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func hasHangul(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// stripQualifiers removes parenthesized and bracketed segments such as the
// "(가수)" in a Wikipedia title, then trims.
func stripQualifiers(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '(', '[', '（', '【':
			depth++
			continue
		case ')', ']', '）', '】':
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth == 0 {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
