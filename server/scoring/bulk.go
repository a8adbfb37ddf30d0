package scoring

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	scoringerrors "github.com/kctmenswear/bundle-engine/server/internal/errors"
)

// topShare is the fraction of bundles reported in each bulk summary bucket.
const topShare = 0.2

// ScoreBundles scores every bundle in the request with full parallel
// fan-out.
//
// Failure semantics are all-or-nothing: if any single bundle's scoring call
// returns an error, the entire bulk operation fails. Per-criterion fallbacks
// make that rare, but an orchestration-level error (for example an invalid
// bundle) aborts the batch.
func (e *Engine) ScoreBundles(ctx context.Context, request *BulkScoringRequest) (*BulkScoringResult, error) {
	if request == nil || len(request.Bundles) == 0 {
		return nil, scoringerrors.InvalidArgument("at least one bundle is required")
	}

	start := time.Now()
	results := make([]BundleScoreResult, len(request.Bundles))

	group, groupCtx := errgroup.WithContext(ctx)
	for i := range request.Bundles {
		group.Go(func() error {
			bundle := &request.Bundles[i]
			result, err := e.ScoreBundle(groupCtx, bundle, request.Criteria, request.Context)
			if err != nil {
				return err
			}
			results[i] = *result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, scoringerrors.BulkScoringFailed("bulk scoring aborted", err)
	}

	return summarize(results, time.Since(start)), nil
}

// summarize computes the bulk summary statistics over the scored results.
func summarize(results []BundleScoreResult, elapsed time.Duration) *BulkScoringResult {
	rankings := make([]BundleRanking, len(results))
	var total float64
	for i, result := range results {
		total += result.OverallScore
		rankings[i] = BundleRanking{BundleID: result.BundleID, OverallScore: result.OverallScore}
	}
	sort.Slice(rankings, func(i, j int) bool {
		return rankings[i].OverallScore > rankings[j].OverallScore
	})

	bucket := int(math.Ceil(float64(len(results)) * topShare))
	top := make([]BundleRanking, bucket)
	copy(top, rankings[:bucket])
	bottom := make([]BundleRanking, bucket)
	copy(bottom, rankings[len(rankings)-bucket:])
	// Worst first in the needs-optimization bucket.
	sort.Slice(bottom, func(i, j int) bool {
		return bottom[i].OverallScore < bottom[j].OverallScore
	})

	return &BulkScoringResult{
		Results:           results,
		TotalBundles:      len(results),
		AverageScore:      total / float64(len(results)),
		TopPerformers:     top,
		NeedsOptimization: bottom,
		ProcessingTimeMs:  elapsed.Milliseconds(),
	}
}
