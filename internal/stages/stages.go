// Package stages holds the domain pipeline stages: sanitizers, validators
// and the review/sauce assembly stages built on the pipeline contract.
package stages

import (
	"context"
	"time"
)

// fetchTimeout bounds every store call issued from a stage. A deadline hit
// surfaces as a dependency failure on the surrounding stage.
const fetchTimeout = 5 * time.Second

// newestReviewCount is how many recent reviews the newest-reviews stage
// attaches.
const newestReviewCount = 6

func withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, fetchTimeout)
}
