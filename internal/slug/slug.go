package slug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	disallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace = regexp.MustCompile(`\s+`)
	hyphens    = regexp.MustCompile(`-+`)
)

// Generate turns a title into a URL-safe ASCII slug.
// Diacritics are stripped ("Ñ" -> "n"), everything outside [a-z0-9] is dropped,
// and whitespace runs (any Unicode space) become single hyphens. An
// all-symbol title yields "".
func Generate(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	s := strings.Map(func(r rune) rune {
		// \s below is ASCII-only
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, strings.ToLower(folded))
	s = disallowed.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = whitespace.ReplaceAllString(s, "-")
	s = hyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Candidate returns the slug tried on the given probe attempt: base, base-1, base-2, ...
func Candidate(base string, attempt int) string {
	if attempt <= 0 {
		return base
	}
	return base + "-" + strconv.Itoa(attempt)
}
