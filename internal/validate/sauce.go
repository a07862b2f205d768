package validate

import (
	"strings"

	"github.com/saucelist/saucelist/internal/domain"
)

type sauceRule struct {
	violated func(*domain.SaucePayload) bool
	msg      string
}

var sauceRules = []sauceRule{
	{
		violated: func(p *domain.SaucePayload) bool { return p.Name == "" },
		msg:      "You must supply a name",
	},
	{
		violated: func(p *domain.SaucePayload) bool { return p.Maker == "" },
		msg:      "You must supply a maker",
	},
	{
		violated: func(p *domain.SaucePayload) bool { return p.Description == "" },
		msg:      "You must supply a description.",
	},
}

// Sauce trims every string field of a sauce payload and checks the required
// fields in declared order. Returns the sanitized payload or the first
// violated rule as a validation error.
func Sauce(p *domain.SaucePayload) (*domain.SaucePayload, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Maker = strings.TrimSpace(p.Maker)
	p.Description = strings.TrimSpace(p.Description)
	p.Ingredients = strings.TrimSpace(p.Ingredients)
	p.SHU = strings.TrimSpace(p.SHU)
	p.Country = strings.TrimSpace(p.Country)
	p.State = strings.TrimSpace(p.State)
	p.City = strings.TrimSpace(p.City)
	p.Photo = strings.TrimSpace(p.Photo)
	for i, typ := range p.Types {
		p.Types[i] = strings.TrimSpace(typ)
	}

	for _, rule := range sauceRules {
		if rule.violated(p) {
			return nil, domain.ErrValidation(rule.msg)
		}
	}
	return p, nil
}
