// Package exclusion computes the set of band names to suppress from a
// recommendation request.
package exclusion

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dailyjams/dailyjams/internal/domain/preference"
	"github.com/dailyjams/dailyjams/internal/domain/taste"
)

// FeedbackReader is the ledger query surface the aggregator depends on.
type FeedbackReader interface {
	// RecentlySkippedBands returns band names the user skipped within
	// the given window.
	RecentlySkippedBands(ctx context.Context, userID int64, window time.Duration) ([]string, error)
	// AllRatedBands returns band names the user has ever given any
	// feedback on.
	AllRatedBands(ctx context.Context, userID int64) ([]string, error)
}

// Aggregator merges the three exclusion sources under a discovery-level
// policy: feedback history, taste-context known artists, and
// session-local exclusions.
type Aggregator struct {
	feedback FeedbackReader
	cooldown time.Duration
}

// NewAggregator creates a new Aggregator. cooldownDays bounds how long
// a skip suppresses a band before it can resurface.
func NewAggregator(feedback FeedbackReader, cooldownDays int) *Aggregator {
	return &Aggregator{
		feedback: feedback,
		cooldown: time.Duration(cooldownDays) * 24 * time.Hour,
	}
}

// Compute returns the deduplicated union of exclusion sources for one
// request. tasteCtx may be nil (no synced history). The result carries
// no ordering guarantee. Ledger errors propagate: exclusions cannot be
// silently dropped without breaking the no-repeat invariant.
func (a *Aggregator) Compute(
	ctx context.Context,
	userID int64,
	discoverNew bool,
	discoveryLevel int,
	sessionExclusions []string,
	tasteCtx *taste.Context,
) (map[string]struct{}, error) {
	excluded := make(map[string]struct{})

	// Base source: all-time rated is a strict superset of recent skips.
	var base []string
	var err error
	if discoverNew {
		base, err = a.feedback.AllRatedBands(ctx, userID)
	} else {
		base, err = a.feedback.RecentlySkippedBands(ctx, userID, a.cooldown)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load feedback exclusions")
	}
	for _, band := range base {
		excluded[band] = struct{}{}
	}

	// Discovery-level slice of known artists. KnownArtists order is the
	// taste fold's prominence order, so a prefix is "top N known".
	if tasteCtx != nil {
		policy := preference.ResolveDiscoveryLevel(discoveryLevel)
		switch {
		case policy.IncludeKnown:
			// Comfort zone: known artists feed the prompt as positive
			// hints instead of exclusions.
		case policy.ExcludeKnown == preference.ExcludeAllKnown:
			for _, name := range tasteCtx.KnownArtists {
				excluded[name] = struct{}{}
			}
		case policy.ExcludeKnown > 0:
			n := policy.ExcludeKnown
			if n > len(tasteCtx.KnownArtists) {
				n = len(tasteCtx.KnownArtists)
			}
			for _, name := range tasteCtx.KnownArtists[:n] {
				excluded[name] = struct{}{}
			}
		}
	}

	for _, band := range sessionExclusions {
		excluded[band] = struct{}{}
	}

	return excluded, nil
}
