package stages

import (
	"context"

	"github.com/saucelist/saucelist/internal/domain"
	"github.com/saucelist/saucelist/internal/pipeline"
	"github.com/saucelist/saucelist/internal/query"
	"github.com/saucelist/saucelist/internal/storage"
	"github.com/saucelist/saucelist/internal/validate"
)

// ValidateSauce sanitizes and validates the inbound sauce payload.
type ValidateSauce struct{}

func (ValidateSauce) Name() string { return "validateSauce" }

func (ValidateSauce) Run(ctx context.Context, ex *pipeline.Exchange) (pipeline.Outcome, error) {
	if ex.Ctx.SaucePayload == nil {
		return pipeline.Outcome{}, domain.ErrPrecondition("Requires sauce object. Please try again.")
	}
	sanitized, err := validate.Sauce(ex.Ctx.SaucePayload)
	if err != nil {
		return pipeline.Outcome{}, err
	}
	ex.Ctx.SaucePayload = sanitized
	return pipeline.Forward(), nil
}

// AddSauce inserts the sauce, letting the store assign the unique slug
// transactionally, and replies with the new slug.
type AddSauce struct {
	Store storage.RecordStore
}

func (AddSauce) Name() string { return "addSauce" }

func (s AddSauce) Run(ctx context.Context, ex *pipeline.Exchange) (pipeline.Outcome, error) {
	if ex.Ctx.SaucePayload == nil {
		return pipeline.Outcome{}, domain.ErrPrecondition("Requires sauce object. Please try again.")
	}
	if ex.Ctx.UserID == 0 {
		return pipeline.Outcome{}, domain.ErrPrecondition("Requires user object. Please try again.")
	}

	fetchCtx, cancel := withDeadline(ctx)
	defer cancel()

	if err := s.Store.EnsureUser(fetchCtx, ex.Ctx.UserID, ex.Ctx.UserName); err != nil {
		return pipeline.Outcome{}, domain.AsAPIError(err, "There was an issue saving your sauce. Try again")
	}

	p := ex.Ctx.SaucePayload
	slug, err := s.Store.InsertSauce(fetchCtx, &storage.SauceRecord{
		UserID:      ex.Ctx.UserID,
		Name:        p.Name,
		Maker:       p.Maker,
		Description: p.Description,
		Ingredients: p.Ingredients,
		SHU:         p.SHU,
		Country:     p.Country,
		State:       p.State,
		City:        p.City,
		Photo:       p.Photo,
		IsPrivate:   p.IsPrivate,
		Types:       p.Types,
	})
	if err != nil {
		return pipeline.Outcome{}, domain.AsAPIError(err, "There was an issue saving your sauce. Try again")
	}

	return pipeline.Reply(200, map[string]any{
		"isGood": true,
		"sauce":  map[string]any{"slug": slug},
	}), nil
}

// ValidateSlugParam reads the `s` query parameter into the context and the
// accumulator.
type ValidateSlugParam struct{}

func (ValidateSlugParam) Name() string { return "validateSlugParam" }

func (ValidateSlugParam) Run(ctx context.Context, ex *pipeline.Exchange) (pipeline.Outcome, error) {
	slug := ex.Ctx.Params.Get("s")
	if slug == "" {
		return pipeline.Outcome{}, domain.ErrValidation("You must supply a sauce to look up.")
	}
	ex.Ctx.Slug = slug
	ex.Acc.SetSlug(slug)
	return pipeline.Forward(), nil
}

// ValidateQueryParams canonicalizes the listing query parameters against the
// store's type allow-list. Only an allow-list fetch failure errors;
// malformed parameters fall back to defaults.
type ValidateQueryParams struct {
	Store storage.RecordStore
}

func (ValidateQueryParams) Name() string { return "validateQueryParams" }

func (s ValidateQueryParams) Run(ctx context.Context, ex *pipeline.Exchange) (pipeline.Outcome, error) {
	fetchCtx, cancel := withDeadline(ctx)
	defer cancel()

	types, err := s.Store.ListTypes(fetchCtx)
	if err != nil {
		return pipeline.Outcome{}, domain.AsAPIError(err, "Unable to find any sauces")
	}

	opts := query.Canonicalize(ex.Ctx.Params, types)
	ex.Ctx.Query = &opts
	ex.Acc.SetQuery(opts)
	return pipeline.Forward(), nil
}

// GetSauceBySlug resolves the context slug to its sauce record.
type GetSauceBySlug struct {
	Store storage.RecordStore
}

func (GetSauceBySlug) Name() string { return "getSauceBySlug" }

func (s GetSauceBySlug) Run(ctx context.Context, ex *pipeline.Exchange) (pipeline.Outcome, error) {
	if ex.Ctx.Slug == "" {
		return pipeline.Outcome{}, domain.ErrPrecondition("Unable find your sauce. Please verify you provided a slug.")
	}

	fetchCtx, cancel := withDeadline(ctx)
	defer cancel()

	sauce, err := s.Store.FindSauceBySlug(fetchCtx, ex.Ctx.Slug)
	if err != nil || sauce == nil {
		return pipeline.Outcome{}, domain.ErrValidation("There was an issue finding this sauce. Please verify the provided slug is valid.")
	}

	ex.Ctx.Sauce = sauce
	return pipeline.Forward(), nil
}

// RelatedSauces attaches a short related-sauce listing to the context sauce.
type RelatedSauces struct {
	Store storage.RecordStore
}

func (RelatedSauces) Name() string { return "getRelatedSauces" }

func (s RelatedSauces) Run(ctx context.Context, ex *pipeline.Exchange) (pipeline.Outcome, error) {
	sauce := ex.Ctx.Sauce
	if sauce == nil || sauce.Slug == "" {
		return pipeline.Outcome{}, domain.ErrPrecondition("We couldn't find a slug to look up related sauces. Make sure it's in the right place")
	}

	fetchCtx, cancel := withDeadline(ctx)
	defer cancel()

	related, err := s.Store.FindRelatedSauces(fetchCtx, sauce.Slug)
	if err != nil {
		return pipeline.Outcome{}, domain.ErrValidation("Could not find any related sauces.")
	}

	sauce.Related = related
	ex.Acc.SetSauce(sauce)
	return pipeline.ReplyOrForward(ex, "getRelatedSauces"), nil
}

// NewestReviews attaches the newest reviews across all sauces.
type NewestReviews struct {
	Store storage.RecordStore
}

func (NewestReviews) Name() string { return "getSaucesWithNewestReviews" }

func (s NewestReviews) Run(ctx context.Context, ex *pipeline.Exchange) (pipeline.Outcome, error) {
	fetchCtx, cancel := withDeadline(ctx)
	defer cancel()

	newest, err := s.Store.FindSaucesWithNewestReviews(fetchCtx, newestReviewCount)
	if err != nil {
		return pipeline.Outcome{}, domain.ErrDependency("Error finding reviews. Make sure you have passed a legitimate slug and try again.")
	}

	ex.Acc.SetNewestReviews(newest)
	return pipeline.ReplyOrForward(ex, "getSaucesWithNewestReviews"), nil
}

// ByQuery attaches the sauce listing matching the canonical query options.
type ByQuery struct {
	Store storage.RecordStore
}

func (ByQuery) Name() string { return "getByQuery" }

func (s ByQuery) Run(ctx context.Context, ex *pipeline.Exchange) (pipeline.Outcome, error) {
	if ex.Ctx.Query == nil {
		return pipeline.Outcome{}, domain.ErrPrecondition("Requires query options. Please try again.")
	}

	fetchCtx, cancel := withDeadline(ctx)
	defer cancel()

	opts := ex.Ctx.Query
	sauces, err := s.Store.FindSaucesByQuery(fetchCtx, storage.QueryOptions{
		Type:  opts.Type,
		Order: opts.Order,
		Page:  opts.Page,
		Limit: opts.Limit,
	})
	if err != nil {
		return pipeline.Outcome{}, domain.ErrDependency("Unable to find any sauces")
	}

	ex.Acc.SetSauces(sauces)
	return pipeline.ReplyOrForward(ex, "getByQuery"), nil
}

// Total attaches the total active sauce count.
type Total struct {
	Store storage.RecordStore
}

func (Total) Name() string { return "getTotal" }

func (s Total) Run(ctx context.Context, ex *pipeline.Exchange) (pipeline.Outcome, error) {
	fetchCtx, cancel := withDeadline(ctx)
	defer cancel()

	count, err := s.Store.CountSauces(fetchCtx)
	if err != nil {
		return pipeline.Outcome{}, domain.ErrDependency("Unable to find any sauces")
	}

	ex.Acc.SetCount(count)
	return pipeline.ReplyOrForward(ex, "getTotal"), nil
}
