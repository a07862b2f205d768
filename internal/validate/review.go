// Package validate checks inbound payloads against fixed, ordered rule
// tables. Policy is fail-fast: the first violated rule produces the single
// error returned to the caller; nothing is aggregated. The declared order and
// the exact messages are part of the API compat surface and must not change.
package validate

import (
	"strings"
	"unicode/utf8"

	"github.com/saucelist/saucelist/internal/domain"
)

const (
	// MaxTextLength bounds every aspect's text, inclusive.
	MaxTextLength = 300

	// RatingMin and RatingMax bound every rating, inclusive. Zero is valid;
	// the storage CHECK constraint is the authoritative boundary.
	RatingMin = 0
	RatingMax = 5
)

// reviewRule is one entry of the review rule table. Rules run in declaration
// order: presence checks first, then length checks, then range checks.
type reviewRule struct {
	violated func(*domain.ReviewPayload) bool
	msg      string
}

var reviewRules = []reviewRule{
	// Presence.
	{
		violated: func(p *domain.ReviewPayload) bool { return p.Overall.Txt == "" },
		msg:      "You must supply a complete overall review",
	},
	{
		violated: func(p *domain.ReviewPayload) bool { return p.Sauce.Slug == "" },
		msg:      "You must tell us which sauce this is a review for",
	},
	// Lengths: overall, label, aroma, taste, heat, note.
	{
		violated: func(p *domain.ReviewPayload) bool { return tooLong(p.Overall.Txt) },
		msg:      "Length for overall is too long! Must be less than 300 charactors",
	},
	{
		violated: func(p *domain.ReviewPayload) bool { return tooLong(p.Label.Txt) },
		msg:      "Length for label is too long! Must be less than 300 charactors",
	},
	{
		violated: func(p *domain.ReviewPayload) bool { return tooLong(p.Aroma.Txt) },
		msg:      "Length for aroma is too long! Must be less than 300 charactors",
	},
	{
		violated: func(p *domain.ReviewPayload) bool { return tooLong(p.Taste.Txt) },
		msg:      "Length for taste is too long! Must be less than 300 charactors",
	},
	{
		violated: func(p *domain.ReviewPayload) bool { return tooLong(p.Heat.Txt) },
		msg:      "Length for heat is too long! Must be less than 300 charactors",
	},
	{
		violated: func(p *domain.ReviewPayload) bool { return tooLong(p.Note.Txt) },
		msg:      "Length for note is too long! Must be less than 300 charactors",
	},
	// Ranges: overall, label, aroma, taste, heat.
	{
		violated: func(p *domain.ReviewPayload) bool { return outOfRange(p.Overall.Rating) },
		msg:      "Rating for overall is too out of range! Must be between 1 and 5.",
	},
	{
		violated: func(p *domain.ReviewPayload) bool { return outOfRange(p.Label.Rating) },
		msg:      "Rating for label is too out of range! Must be between 1 and 5.",
	},
	{
		violated: func(p *domain.ReviewPayload) bool { return outOfRange(p.Aroma.Rating) },
		msg:      "Rating for aroma is too out of range! Must be between 1 and 5.",
	},
	{
		violated: func(p *domain.ReviewPayload) bool { return outOfRange(p.Taste.Rating) },
		msg:      "Rating for taste is too out of range! Must be between 1 and 5.",
	},
	{
		violated: func(p *domain.ReviewPayload) bool { return outOfRange(p.Heat.Rating) },
		msg:      "Rating for heat is too out of range! Must be between 1 and 5.",
	},
}

func tooLong(txt string) bool {
	return utf8.RuneCountInString(txt) > MaxTextLength
}

func outOfRange(rating int) bool {
	return rating < RatingMin || rating > RatingMax
}

// Review sanitizes a review payload in place and checks it against the rule
// table. All aspect texts and the sauce slug are trimmed before any rule
// runs. Returns the sanitized payload, or the first violated rule as a
// validation error.
func Review(p *domain.ReviewPayload) (*domain.ReviewPayload, error) {
	p.Sauce.Slug = strings.TrimSpace(p.Sauce.Slug)
	p.Overall.Txt = strings.TrimSpace(p.Overall.Txt)
	p.Label.Txt = strings.TrimSpace(p.Label.Txt)
	p.Aroma.Txt = strings.TrimSpace(p.Aroma.Txt)
	p.Taste.Txt = strings.TrimSpace(p.Taste.Txt)
	p.Heat.Txt = strings.TrimSpace(p.Heat.Txt)
	p.Note.Txt = strings.TrimSpace(p.Note.Txt)

	for _, rule := range reviewRules {
		if rule.violated(p) {
			return nil, domain.ErrValidation(rule.msg)
		}
	}
	return p, nil
}
