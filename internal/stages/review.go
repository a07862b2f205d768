package stages

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/saucelist/saucelist/internal/codec"
	"github.com/saucelist/saucelist/internal/domain"
	"github.com/saucelist/saucelist/internal/pipeline"
	"github.com/saucelist/saucelist/internal/storage"
	"github.com/saucelist/saucelist/internal/validate"
)

// ValidateReview sanitizes and validates the inbound review payload, then
// copies the sauce slug into the context's pass-through slot.
type ValidateReview struct{}

func (ValidateReview) Name() string { return "validateReview" }

func (ValidateReview) Run(ctx context.Context, ex *pipeline.Exchange) (pipeline.Outcome, error) {
	if ex.Ctx.Review == nil {
		return pipeline.Outcome{}, domain.ErrValidation("You must supply a complete overall review")
	}
	sanitized, err := validate.Review(ex.Ctx.Review)
	if err != nil {
		return pipeline.Outcome{}, err
	}
	ex.Ctx.Review = sanitized
	ex.Ctx.Slug = sanitized.Sauce.Slug
	return pipeline.Forward(), nil
}

// AddReview resolves the sauce id from the pass-through slug, inserts the
// review row, then computes and persists the compact id. A duplicate
// (sauce, author) pair is reported as a conflict, not a generic failure.
type AddReview struct {
	Store storage.RecordStore
	Codec *codec.ReviewIDCodec
}

func (AddReview) Name() string { return "addReview" }

func (s AddReview) Run(ctx context.Context, ex *pipeline.Exchange) (pipeline.Outcome, error) {
	if ex.Ctx.UserID == 0 {
		return pipeline.Outcome{}, domain.ErrPrecondition("Requires user object. Please try again.")
	}
	if ex.Ctx.Review == nil || ex.Ctx.Slug == "" {
		return pipeline.Outcome{}, domain.ErrPrecondition("We couldn't find a slug to look up the reviews. Make sure it's in the right place")
	}

	fetchCtx, cancel := withDeadline(ctx)
	defer cancel()

	sauceID, err := s.Store.FindSauceIDBySlug(fetchCtx, ex.Ctx.Slug)
	if err != nil {
		return pipeline.Outcome{}, domain.AsAPIError(err,
			"Could not save review. Make sure all fields are filled and try again.")
	}

	if err := s.Store.EnsureUser(fetchCtx, ex.Ctx.UserID, ex.Ctx.UserName); err != nil {
		return pipeline.Outcome{}, domain.AsAPIError(err,
			"Could not save review. Make sure all fields are filled and try again.")
	}

	review := ex.Ctx.Review
	rec := &storage.ReviewRecord{
		SauceID:       sauceID,
		UserID:        ex.Ctx.UserID,
		LabelRating:   review.Label.Rating,
		LabelTxt:      review.Label.Txt,
		AromaRating:   review.Aroma.Rating,
		AromaTxt:      review.Aroma.Txt,
		TasteRating:   review.Taste.Rating,
		TasteTxt:      review.Taste.Txt,
		HeatRating:    review.Heat.Rating,
		HeatTxt:       review.Heat.Txt,
		OverallRating: review.Overall.Rating,
		OverallTxt:    review.Overall.Txt,
		Note:          review.Note.Txt,
	}
	if err := s.Store.InsertReview(fetchCtx, rec); err != nil {
		return pipeline.Outcome{}, domain.AsAPIError(err,
			"Could save your review to the database.")
	}

	// The compact id is computed once from the just-inserted composite key
	// and persisted; it is never recomputed after this point.
	hashID, err := s.Codec.Encode(sauceID, ex.Ctx.UserID)
	if err != nil {
		return pipeline.Outcome{}, domain.AsAPIError(err, "Error saving review. Please try again.")
	}
	if err := s.Store.SetReviewHashID(fetchCtx, sauceID, ex.Ctx.UserID, hashID); err != nil {
		return pipeline.Outcome{}, domain.AsAPIError(err, "Error saving review. Please try again.")
	}

	return pipeline.Reply(200, map[string]any{"isGood": true}), nil
}

// AttachReviews fetches the active reviews for the context sauce's slug and
// grafts them, joined with author display names, onto the sauce.
type AttachReviews struct {
	Store storage.RecordStore
}

func (AttachReviews) Name() string { return "getReviewsBySauceSlug" }

func (s AttachReviews) Run(ctx context.Context, ex *pipeline.Exchange) (pipeline.Outcome, error) {
	sauce := ex.Ctx.Sauce
	if sauce == nil || sauce.Slug == "" {
		return pipeline.Outcome{}, domain.ErrPrecondition("We couldn't find a slug to look up the reviews. Make sure it's in the right place")
	}

	fetchCtx, cancel := withDeadline(ctx)
	defer cancel()

	sauceID, err := s.Store.FindSauceIDBySlug(fetchCtx, sauce.Slug)
	if err != nil {
		return pipeline.Outcome{}, domain.AsAPIError(err,
			"Error finding reviews. Make sure you have passed a legitimate slug and try again.")
	}
	reviews, err := s.Store.FindReviewsBySauceID(fetchCtx, sauceID)
	if err != nil {
		return pipeline.Outcome{}, domain.ErrDependency("Error finding reviews. Make sure you have passed a legitimate slug and try again.")
	}

	sauce.Reviews = reviews
	ex.Acc.SetSauce(sauce)
	return pipeline.ReplyOrForward(ex, "getReviewsBySauceSlug"), nil
}

// AttachReviewIDs fans out over the accumulated sauce listing and attaches
// each sauce's review compact ids. The fetches run concurrently but the
// stage fails as a whole if any single fetch fails; partial attachment never
// reaches the client.
type AttachReviewIDs struct {
	Store storage.RecordStore
}

func (AttachReviewIDs) Name() string { return "getReviewIDsBySauces" }

func (s AttachReviewIDs) Run(ctx context.Context, ex *pipeline.Exchange) (pipeline.Outcome, error) {
	sauces := ex.Acc.Sauces()
	if len(sauces) == 0 || sauces[0].ID == 0 {
		return pipeline.Outcome{}, domain.ErrPrecondition("Requires sauce object. Please try again.")
	}

	fetchCtx, cancel := withDeadline(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(fetchCtx)
	for i := range sauces {
		g.Go(func() error {
			ids, err := s.Store.FindReviewHashIDsBySauceID(gctx, sauces[i].ID)
			if err != nil {
				return err
			}
			sauces[i].ReviewIDs = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return pipeline.Outcome{}, domain.AsAPIError(err, "Unable to find any sauces")
	}

	ex.Acc.SetSauces(sauces)
	return pipeline.ReplyOrForward(ex, "getReviewIDsBySauces"), nil
}
