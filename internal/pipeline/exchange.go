package pipeline

import (
	"net/url"

	"github.com/saucelist/saucelist/internal/domain"
	"github.com/saucelist/saucelist/internal/query"
)

// RequestContext is the typed per-request bag flowing down the chain. It is
// owned exclusively by one request and discarded at reply time. Once a field
// is set by an upstream stage, downstream stages may read and augment it but
// must not replace it with an incompatible shape.
type RequestContext struct {
	// UserID is the authenticated caller reference supplied upstream.
	// Zero means no identity was provided.
	UserID int64

	// UserName is the caller's display name, if the identity source
	// provided one.
	UserName string

	// Params are the raw query parameters of the request.
	Params url.Values

	// Slug is the sanitizer's pass-through slot for the sauce reference.
	Slug string

	// Sauce is the resolved sauce record, once a lookup stage set it.
	Sauce *domain.Sauce

	// Review is the sanitized review payload.
	Review *domain.ReviewPayload

	// SaucePayload is the sanitized sauce submission.
	SaucePayload *domain.SaucePayload

	// Query is the canonicalized listing configuration.
	Query *query.Options
}

// Accumulator collects the locals assembled across stages. The recognized
// keys are fixed by the typed setters below; merging is last-writer-wins per
// key and nothing leaks to the client before the terminal stage calls
// Payload.
type Accumulator struct {
	locals map[string]any
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{locals: make(map[string]any)}
}

// SetSlug records the looked-up slug.
func (a *Accumulator) SetSlug(slug string) { a.locals["slug"] = slug }

// SetQuery records the canonical query configuration under its four keys,
// matching the flat locals shape of the reply envelope.
func (a *Accumulator) SetQuery(opts query.Options) {
	a.locals["type"] = opts.Type
	a.locals["order"] = opts.Order
	a.locals["page"] = opts.Page
	a.locals["limit"] = opts.Limit
}

// SetSauce records the assembled sauce.
func (a *Accumulator) SetSauce(s *domain.Sauce) { a.locals["sauce"] = s }

// SetSauces records a sauce listing.
func (a *Accumulator) SetSauces(s []domain.Sauce) { a.locals["sauces"] = s }

// Sauces returns the recorded sauce listing, if any.
func (a *Accumulator) Sauces() []domain.Sauce {
	s, _ := a.locals["sauces"].([]domain.Sauce)
	return s
}

// SetNewestReviews records the newest-reviews listing.
func (a *Accumulator) SetNewestReviews(r []domain.NewestReview) {
	a.locals["saucesWithNewestReviews"] = r
}

// SetCount records the total sauce count.
func (a *Accumulator) SetCount(n int) { a.locals["count"] = n }

// Payload merges the locals into the terminal reply envelope. The isGood
// marker always wins.
func (a *Accumulator) Payload() map[string]any {
	out := make(map[string]any, len(a.locals)+1)
	for k, v := range a.locals {
		out[k] = v
	}
	out["isGood"] = true
	return out
}

// Exchange bundles the context, accumulator and configured chain handed to
// each stage. The chain is fixed before the first stage runs.
type Exchange struct {
	Ctx   *RequestContext
	Acc   *Accumulator
	Chain Chain
}

// NewExchange builds an exchange for one request.
func NewExchange(ctx *RequestContext, chain Chain) *Exchange {
	return &Exchange{Ctx: ctx, Acc: NewAccumulator(), Chain: chain}
}
