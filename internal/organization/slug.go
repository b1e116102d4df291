package organization

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/gosimple/slug"
)

// Norwegian letters have conventional ASCII spellings that differ from a
// plain transliteration, so they are replaced before folding.
var norwegianLetters = strings.NewReplacer("æ", "ae", "ø", "o", "å", "aa")

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slug returns the display slug for an organization name: lowercase ASCII
// letters and digits separated by single hyphens. Slug(Slug(s)) == Slug(s).
func Slug(name string) string {
	s := norwegianLetters.Replace(strings.ToLower(name))

	// Symbols become separators here; slug.Make would otherwise spell some
	// of them out ("&" -> "and").
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)

	s = slug.Make(s)
	s = nonSlugRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
