// Package domain holds the entities shared across the review pipeline.
package domain

// RatedAspect is one independently rated facet of a review (label, aroma,
// taste, heat, overall). Ratings are inclusive 0-5, text at most 300 runes.
type RatedAspect struct {
	Rating int    `json:"rating"`
	Txt    string `json:"txt"`
}

// Note is the free-text addendum to a review.
type Note struct {
	Txt string `json:"txt"`
}

// SauceRef identifies a sauce by its slug inside a review submission.
type SauceRef struct {
	Slug string `json:"slug"`
}

// ReviewPayload is the inbound review submission shape.
type ReviewPayload struct {
	Sauce   SauceRef    `json:"sauce"`
	Overall RatedAspect `json:"overall"`
	Label   RatedAspect `json:"label"`
	Aroma   RatedAspect `json:"aroma"`
	Taste   RatedAspect `json:"taste"`
	Heat    RatedAspect `json:"heat"`
	Note    Note        `json:"note"`
}

// Author is the public view of a review's author.
type Author struct {
	DisplayName string `json:"displayName"`
	Created     int64  `json:"created"`
}

// Review is the nested client-facing review shape assembled from flat rows.
type Review struct {
	HashID  string      `json:"hashID"`
	Created int64       `json:"created"`
	Author  Author      `json:"author"`
	Label   RatedAspect `json:"label"`
	Aroma   RatedAspect `json:"aroma"`
	Taste   RatedAspect `json:"taste"`
	Heat    RatedAspect `json:"heat"`
	Overall RatedAspect `json:"overall"`
	Note    Note        `json:"note"`
}

// SaucePayload is the inbound sauce submission shape.
type SaucePayload struct {
	Name        string   `json:"name"`
	Maker       string   `json:"maker"`
	Description string   `json:"description"`
	Ingredients string   `json:"ingredients,omitempty"`
	SHU         string   `json:"shu,omitempty"`
	Country     string   `json:"country,omitempty"`
	State       string   `json:"state,omitempty"`
	City        string   `json:"city,omitempty"`
	Photo       string   `json:"photo,omitempty"`
	IsPrivate   bool     `json:"isPrivate,omitempty"`
	Types       []string `json:"types,omitempty"`
}

// Sauce is the public sauce record. ID is the internal key and never leaves
// the server; clients address sauces by slug only.
type Sauce struct {
	ID          int64          `json:"-"`
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Maker       string         `json:"maker"`
	Description string         `json:"description"`
	Ingredients string         `json:"ingredients,omitempty"`
	SHU         string         `json:"shu,omitempty"`
	Country     string         `json:"country,omitempty"`
	State       string         `json:"state,omitempty"`
	City        string         `json:"city,omitempty"`
	Photo       string         `json:"photo,omitempty"`
	Created     int64          `json:"created"`
	Reviews     []Review       `json:"reviews,omitempty"`
	ReviewIDs   []string       `json:"reviewIDs,omitempty"`
	Related     []SauceSummary `json:"_related,omitempty"`
}

// SauceSummary is the reduced sauce shape used for related-sauce listings.
type SauceSummary struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// NewestReview pairs a recent review with the sauce it belongs to.
type NewestReview struct {
	HashID     string `json:"hashID"`
	OverallTxt string `json:"txt"`
	SauceName  string `json:"name"`
	SauceSlug  string `json:"slug"`
}
