package stages

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"testing"

	"github.com/saucelist/saucelist/internal/codec"
	"github.com/saucelist/saucelist/internal/domain"
	"github.com/saucelist/saucelist/internal/pipeline"
	"github.com/saucelist/saucelist/internal/query"
	"github.com/saucelist/saucelist/internal/storage"
	"github.com/saucelist/saucelist/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCodec(t *testing.T) *codec.ReviewIDCodec {
	t.Helper()
	c, err := codec.NewReviewIDCodec("test-secret")
	if err != nil {
		t.Fatalf("NewReviewIDCodec() error = %v", err)
	}
	return c
}

func seedSauce(t *testing.T, store storage.RecordStore, name string) string {
	t.Helper()
	if err := store.EnsureUser(context.Background(), 1, "seeder"); err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}
	slug, err := store.InsertSauce(context.Background(), &storage.SauceRecord{
		UserID:      1,
		Name:        name,
		Maker:       "Test Maker",
		Description: "A test sauce",
		Types:       []string{"Hot Sauce"},
	})
	if err != nil {
		t.Fatalf("InsertSauce() error = %v", err)
	}
	return slug
}

func reviewPayload(slug string) *domain.ReviewPayload {
	return &domain.ReviewPayload{
		Sauce:   domain.SauceRef{Slug: slug},
		Overall: domain.RatedAspect{Rating: 4, Txt: "solid"},
		Label:   domain.RatedAspect{Rating: 3, Txt: "pretty"},
		Aroma:   domain.RatedAspect{Rating: 3, Txt: "fruity"},
		Taste:   domain.RatedAspect{Rating: 4, Txt: "bright"},
		Heat:    domain.RatedAspect{Rating: 2, Txt: "gentle"},
		Note:    domain.Note{Txt: ""},
	}
}

func runChain(t *testing.T, reqCtx *pipeline.RequestContext, sts ...pipeline.Stage) (int, map[string]any) {
	t.Helper()
	e := pipeline.NewExecutor(testLogger(), sts...)
	status, body := e.Run(context.Background(), pipeline.NewExchange(reqCtx, e.Chain()))
	payload, ok := body.(map[string]any)
	if !ok {
		t.Fatalf("body is %T, want map", body)
	}
	return status, payload
}

func TestAddReview_EndToEnd(t *testing.T) {
	store := memory.New()
	slug := seedSauce(t, store, "Hot Sauce")

	reqCtx := &pipeline.RequestContext{UserID: 7, UserName: "reviewer", Review: reviewPayload(slug)}
	status, payload := runChain(t, reqCtx,
		ValidateReview{},
		AddReview{Store: store, Codec: testCodec(t)},
	)

	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200 (payload %v)", status, payload)
	}
	if payload["isGood"] != true {
		t.Errorf("payload = %v", payload)
	}

	// Exactly one row, with its hash id persisted.
	sauceID, err := store.FindSauceIDBySlug(context.Background(), slug)
	if err != nil {
		t.Fatalf("FindSauceIDBySlug() error = %v", err)
	}
	reviews, err := store.FindReviewsBySauceID(context.Background(), sauceID)
	if err != nil {
		t.Fatalf("FindReviewsBySauceID() error = %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("review count = %d, want 1", len(reviews))
	}
	if len(reviews[0].HashID) < codec.HashLength {
		t.Errorf("hash id %q shorter than %d", reviews[0].HashID, codec.HashLength)
	}
	if reviews[0].Author.DisplayName != "reviewer" {
		t.Errorf("author = %q", reviews[0].Author.DisplayName)
	}
}

func TestAddReview_RatingOutOfRange(t *testing.T) {
	store := memory.New()
	slug := seedSauce(t, store, "Hot Sauce")

	p := reviewPayload(slug)
	p.Overall.Rating = 6

	reqCtx := &pipeline.RequestContext{UserID: 7, Review: p}
	status, payload := runChain(t, reqCtx,
		ValidateReview{},
		AddReview{Store: store, Codec: testCodec(t)},
	)

	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if payload["msg"] != "Rating for overall is too out of range! Must be between 1 and 5." {
		t.Errorf("msg = %v", payload["msg"])
	}
}

func TestAddReview_DuplicateIsConflict(t *testing.T) {
	store := memory.New()
	slug := seedSauce(t, store, "Hot Sauce")
	c := testCodec(t)

	reqCtx := &pipeline.RequestContext{UserID: 7, Review: reviewPayload(slug)}
	status, _ := runChain(t, reqCtx, ValidateReview{}, AddReview{Store: store, Codec: c})
	if status != http.StatusOK {
		t.Fatalf("first insert status = %d, want 200", status)
	}

	reqCtx = &pipeline.RequestContext{UserID: 7, Review: reviewPayload(slug)}
	status, payload := runChain(t, reqCtx, ValidateReview{}, AddReview{Store: store, Codec: c})
	if status != http.StatusBadRequest {
		t.Fatalf("duplicate status = %d, want 400", status)
	}
	if payload["msg"] != "You have already reviewed this sauce." {
		t.Errorf("msg = %v, want the conflict message", payload["msg"])
	}
}

func TestAddReview_MissingUser(t *testing.T) {
	store := memory.New()
	slug := seedSauce(t, store, "Hot Sauce")

	reqCtx := &pipeline.RequestContext{Review: reviewPayload(slug)}
	status, _ := runChain(t, reqCtx, ValidateReview{}, AddReview{Store: store, Codec: testCodec(t)})
	if status != http.StatusMultipleChoices {
		t.Errorf("status = %d, want 300", status)
	}
}

func TestAddReview_UnknownSlug(t *testing.T) {
	store := memory.New()

	reqCtx := &pipeline.RequestContext{UserID: 7, Review: reviewPayload("no-such-sauce")}
	status, _ := runChain(t, reqCtx, ValidateReview{}, AddReview{Store: store, Codec: testCodec(t)})
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestGetSauceBySlugChain(t *testing.T) {
	store := memory.New()
	slug := seedSauce(t, store, "Hot Sauce")
	seedSauce(t, store, "Other Sauce")

	reqCtx := &pipeline.RequestContext{Params: url.Values{"s": {slug}}}
	status, payload := runChain(t, reqCtx,
		ValidateSlugParam{},
		GetSauceBySlug{Store: store},
		AttachReviews{Store: store},
		RelatedSauces{Store: store},
	)

	if status != http.StatusOK {
		t.Fatalf("status = %d (payload %v)", status, payload)
	}
	sauce, ok := payload["sauce"].(*domain.Sauce)
	if !ok {
		t.Fatalf("payload sauce is %T", payload["sauce"])
	}
	if sauce.Slug != slug {
		t.Errorf("sauce slug = %q, want %q", sauce.Slug, slug)
	}
	if len(sauce.Related) == 0 {
		t.Error("expected related sauces attached")
	}
}

func TestGetSauceBySlug_MissingParam(t *testing.T) {
	store := memory.New()

	reqCtx := &pipeline.RequestContext{Params: url.Values{}}
	status, payload := runChain(t, reqCtx, ValidateSlugParam{}, GetSauceBySlug{Store: store})
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if payload["msg"] != "You must supply a sauce to look up." {
		t.Errorf("msg = %v", payload["msg"])
	}
}

func TestGetSauceBySlug_NotFound(t *testing.T) {
	store := memory.New()

	reqCtx := &pipeline.RequestContext{Params: url.Values{"s": {"missing"}}}
	status, _ := runChain(t, reqCtx, ValidateSlugParam{}, GetSauceBySlug{Store: store}, AttachReviews{Store: store})
	if status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", status)
	}
}

func TestAttachReviews_MissingPrerequisite(t *testing.T) {
	// A chain misconfigured to skip the lookup stage: the attach stage must
	// re-validate and reply 300 rather than dereference absent data.
	store := memory.New()

	reqCtx := &pipeline.RequestContext{}
	status, _ := runChain(t, reqCtx, AttachReviews{Store: store})
	if status != http.StatusMultipleChoices {
		t.Errorf("status = %d, want 300", status)
	}
}

func TestByQueryChain(t *testing.T) {
	store := memory.New()
	seedSauce(t, store, "Alpha Sauce")
	seedSauce(t, store, "Beta Sauce")

	reqCtx := &pipeline.RequestContext{Params: url.Values{"order": {"name"}, "limit": {"10"}}}
	status, payload := runChain(t, reqCtx,
		ValidateQueryParams{Store: store},
		ByQuery{Store: store},
		AttachReviewIDs{Store: store},
		Total{Store: store},
	)

	if status != http.StatusOK {
		t.Fatalf("status = %d (payload %v)", status, payload)
	}
	if payload["count"] != 2 {
		t.Errorf("count = %v, want 2", payload["count"])
	}
	sauces, ok := payload["sauces"].([]domain.Sauce)
	if !ok || len(sauces) != 2 {
		t.Fatalf("sauces = %v", payload["sauces"])
	}
	if sauces[0].Name != "Alpha Sauce" {
		t.Errorf("order by name broken: first = %q", sauces[0].Name)
	}
	if payload["order"] != "name" || payload["limit"] != 10 {
		t.Errorf("canonical params missing from payload: %v", payload)
	}
}

func TestByQuery_MidChainForwards(t *testing.T) {
	store := memory.New()
	seedSauce(t, store, "Alpha Sauce")

	opts := query.Canonicalize(url.Values{}, nil)
	chain := pipeline.Chain{"validateQueryParams", "getByQuery", "getTotal"}
	ex := pipeline.NewExchange(&pipeline.RequestContext{Query: &opts}, chain)

	out, err := (ByQuery{Store: store}).Run(context.Background(), ex)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.IsReply() {
		t.Error("mid-chain stage replied, want forward")
	}
	if len(ex.Acc.Sauces()) != 1 {
		t.Errorf("sauces accumulated = %d, want 1", len(ex.Acc.Sauces()))
	}
}

// hashIDFailingStore delegates to the inner store except for the hash-id
// fetch, which always fails. Lets the listing assemble normally up to the
// fan-out stage.
type hashIDFailingStore struct {
	storage.RecordStore
}

func (hashIDFailingStore) FindReviewHashIDsBySauceID(ctx context.Context, sauceID int64) ([]string, error) {
	return nil, errors.New("connection refused")
}

func TestAttachReviewIDs_FanOutFailureDropsListing(t *testing.T) {
	inner := memory.New()
	seedSauce(t, inner, "Alpha Sauce")
	seedSauce(t, inner, "Beta Sauce")
	store := hashIDFailingStore{RecordStore: inner}

	status, payload := runChain(t, &pipeline.RequestContext{Params: url.Values{}},
		ValidateQueryParams{Store: store},
		ByQuery{Store: store},
		AttachReviewIDs{Store: store},
		Total{Store: store},
	)

	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if payload["isGood"] != false {
		t.Errorf("payload = %v", payload)
	}
	// The whole stage fails; the partially assembled listing must not leak.
	if _, ok := payload["sauces"]; ok {
		t.Errorf("reply carries sauces after fan-out failure: %v", payload)
	}
}

func TestNewestReviews_Terminal(t *testing.T) {
	store := memory.New()
	slug := seedSauce(t, store, "Hot Sauce")

	reqCtx := &pipeline.RequestContext{UserID: 7, Review: reviewPayload(slug)}
	if status, _ := runChain(t, reqCtx, ValidateReview{}, AddReview{Store: store, Codec: testCodec(t)}); status != http.StatusOK {
		t.Fatal("seed review failed")
	}

	status, payload := runChain(t, &pipeline.RequestContext{}, NewestReviews{Store: store})
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	newest, ok := payload["saucesWithNewestReviews"].([]domain.NewestReview)
	if !ok || len(newest) != 1 {
		t.Fatalf("newest = %v", payload["saucesWithNewestReviews"])
	}
	if newest[0].SauceSlug != slug {
		t.Errorf("newest slug = %q, want %q", newest[0].SauceSlug, slug)
	}
}

func TestStoreFailureBecomesDependencyReply(t *testing.T) {
	store := memory.New()
	store.FailWith = errors.New("connection refused")

	status, payload := runChain(t, &pipeline.RequestContext{Params: url.Values{}}, ValidateQueryParams{Store: store}, ByQuery{Store: store})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if payload["isGood"] != false {
		t.Errorf("payload = %v", payload)
	}
}

func TestAddSauce_RepliesWithSlug(t *testing.T) {
	store := memory.New()

	reqCtx := &pipeline.RequestContext{
		UserID:       3,
		UserName:     "maker",
		SaucePayload: &domain.SaucePayload{Name: "hot sauce", Maker: "M", Description: "D"},
	}
	status, payload := runChain(t, reqCtx, ValidateSauce{}, AddSauce{Store: store})
	if status != http.StatusOK {
		t.Fatalf("status = %d (payload %v)", status, payload)
	}
	sauce := payload["sauce"].(map[string]any)
	if sauce["slug"] != "hot-sauce" {
		t.Errorf("slug = %v, want hot-sauce", sauce["slug"])
	}

	// Same normalized name gets the next suffix.
	reqCtx = &pipeline.RequestContext{
		UserID:       3,
		SaucePayload: &domain.SaucePayload{Name: "HOT SAUCE", Maker: "M", Description: "D"},
	}
	status, payload = runChain(t, reqCtx, ValidateSauce{}, AddSauce{Store: store})
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	sauce = payload["sauce"].(map[string]any)
	if sauce["slug"] != "hot-sauce-2" {
		t.Errorf("slug = %v, want hot-sauce-2", sauce["slug"])
	}
}

func TestAddSauce_MissingPayload(t *testing.T) {
	store := memory.New()

	status, _ := runChain(t, &pipeline.RequestContext{UserID: 3}, ValidateSauce{}, AddSauce{Store: store})
	if status != http.StatusMultipleChoices {
		t.Errorf("status = %d, want 300", status)
	}
}

func TestValidateSauce_BadPayload(t *testing.T) {
	store := memory.New()

	reqCtx := &pipeline.RequestContext{
		UserID:       3,
		SaucePayload: &domain.SaucePayload{Name: "", Maker: "M", Description: "D"},
	}
	status, payload := runChain(t, reqCtx, ValidateSauce{}, AddSauce{Store: store})
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if payload["msg"] != "You must supply a name" {
		t.Errorf("msg = %v", payload["msg"])
	}
}
