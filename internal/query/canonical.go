// Package query maps free-form query parameters to a canonical, bounded
// configuration. Malformed input never errors; every unrecognized or
// out-of-bounds value falls back to its default.
package query

import (
	"net/url"
	"strconv"
	"strings"
)

// Defaults for canonicalized query options.
const (
	DefaultType  = "all"
	DefaultOrder = "newest"
	DefaultPage  = 1
	DefaultLimit = 12
)

// validOrders is the fixed set of recognized sort orders.
var validOrders = map[string]struct{}{
	"name":           {},
	"newest":         {},
	"times_reviewed": {},
	"avg_rating":     {},
}

// Options is the canonical listing configuration.
type Options struct {
	Type  string `json:"type"`
	Order string `json:"order"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// Canonicalize maps raw query parameters against the supplied allow-list of
// known sauce types. The allow-list comparison is case-insensitive and the
// canonical value is lower-cased. Obtaining the allow-list is the caller's
// concern; its failure is a dependency error, not a canonicalization one.
func Canonicalize(params url.Values, knownTypes []string) Options {
	opts := Options{
		Type:  DefaultType,
		Order: DefaultOrder,
		Page:  DefaultPage,
		Limit: DefaultLimit,
	}

	if typ := strings.ToLower(params.Get("type")); typ != "" {
		for _, known := range knownTypes {
			if typ == strings.ToLower(known) {
				opts.Type = typ
				break
			}
		}
	}

	if order := strings.ToLower(params.Get("order")); order != "" {
		if _, ok := validOrders[order]; ok {
			opts.Order = order
		}
	}

	if page, err := strconv.Atoi(params.Get("page")); err == nil && page > 0 {
		opts.Page = page
	}

	if limit, err := strconv.Atoi(params.Get("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}

	return opts
}
