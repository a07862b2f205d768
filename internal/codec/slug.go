// Package codec implements the identifier codecs: deterministic slug
// generation for sauces and the reversible compact id for review composite
// keys.
package codec

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/saucelist/saucelist/internal/domain"
)

var titleCaser = cases.Title(language.English)

// NormalizeName maps a sauce name to its canonical title-cased form: first
// letter of each word upper, rest lower. Names that are empty after trimming
// fail closed.
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", domain.ErrValidation("You must supply a name")
	}
	return titleCaser.String(strings.ToLower(trimmed)), nil
}

// Slugify converts a name to its kebab-case form: lower-cased alphanumerics
// with every run of other characters collapsed to a single dash.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

// SlugForCount builds the unique slug for a name given the number of existing
// sauces sharing the same normalized name: the bare slug when count is zero,
// otherwise slug-(count+1). Callers must obtain count and insert within one
// transaction; see storage.
func SlugForCount(name string, count int) (string, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return "", err
	}
	slug := Slugify(normalized)
	if count == 0 {
		return slug, nil
	}
	return slug + "-" + strconv.Itoa(count+1), nil
}
