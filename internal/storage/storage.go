// Package storage defines the record-store port consumed by the assembly
// stages. Implementations live in the sqldb and memory subpackages.
package storage

import (
	"context"

	"github.com/saucelist/saucelist/internal/domain"
)

// SauceRecord is the flat insert shape for a sauce.
type SauceRecord struct {
	UserID      int64
	Name        string
	Maker       string
	Description string
	Ingredients string
	SHU         string
	Country     string
	State       string
	City        string
	Photo       string
	IsPrivate   bool
	Types       []string
}

// ReviewRecord is the flat insert shape for a review. The composite key
// (SauceID, UserID) uniquely identifies one review.
type ReviewRecord struct {
	SauceID       int64
	UserID        int64
	LabelRating   int
	LabelTxt      string
	AromaRating   int
	AromaTxt      string
	TasteRating   int
	TasteTxt      string
	HeatRating    int
	HeatTxt       string
	OverallRating int
	OverallTxt    string
	Note          string
}

// RecordStore is the narrow persistence port the pipeline consumes. Any call
// may fail with a dependency error; duplicate review inserts fail with a
// conflict error.
type RecordStore interface {
	// InsertSauce inserts a sauce, generating its unique slug inside the
	// same transaction as the name count so concurrent inserts of the same
	// name cannot race. Returns the assigned slug.
	InsertSauce(ctx context.Context, rec *SauceRecord) (string, error)

	// FindSauceBySlug returns the public sauce record, or nil when no
	// active sauce carries the slug.
	FindSauceBySlug(ctx context.Context, slug string) (*domain.Sauce, error)

	// FindSauceIDBySlug resolves a slug to the internal sauce id,
	// considering active sauces only.
	FindSauceIDBySlug(ctx context.Context, slug string) (int64, error)

	// CountSaucesByName counts sauces sharing the exact normalized name.
	CountSaucesByName(ctx context.Context, name string) (int, error)

	// FindSaucesByQuery lists active public sauces per the canonical
	// query configuration.
	FindSaucesByQuery(ctx context.Context, opts QueryOptions) ([]domain.Sauce, error)

	// FindRelatedSauces returns a short listing of sauces related to the
	// given slug.
	FindRelatedSauces(ctx context.Context, slug string) ([]domain.SauceSummary, error)

	// FindSaucesWithNewestReviews returns the most recent reviews joined
	// with their sauce, newest first.
	FindSaucesWithNewestReviews(ctx context.Context, limit int) ([]domain.NewestReview, error)

	// CountSauces returns the total number of active public sauces.
	CountSauces(ctx context.Context) (int, error)

	// EnsureUser makes sure a user row exists for the opaque caller
	// reference so review rows keep their author link.
	EnsureUser(ctx context.Context, userID int64, displayName string) error

	// InsertReview inserts a review row. A duplicate (SauceID, UserID)
	// pair fails with a conflict error.
	InsertReview(ctx context.Context, rec *ReviewRecord) error

	// SetReviewHashID persists the compact id computed after insertion.
	// The id is never recomputed afterwards.
	SetReviewHashID(ctx context.Context, sauceID, userID int64, hashID string) error

	// FindReviewsBySauceID returns the active reviews for a sauce joined
	// with each author's display name, in the nested client shape.
	FindReviewsBySauceID(ctx context.Context, sauceID int64) ([]domain.Review, error)

	// FindReviewHashIDsBySauceID returns only the compact ids of a
	// sauce's active reviews.
	FindReviewHashIDsBySauceID(ctx context.Context, sauceID int64) ([]string, error)

	// ListTypes returns the known sauce types (the allow-list).
	ListTypes(ctx context.Context) ([]string, error)

	// FindTypeIDsByValues resolves type values to their ids.
	FindTypeIDsByValues(ctx context.Context, values []string) ([]int64, error)

	// Close releases the store's resources.
	Close() error
}

// QueryOptions mirrors the canonical listing configuration at the storage
// boundary.
type QueryOptions struct {
	Type  string
	Order string
	Page  int
	Limit int
}
