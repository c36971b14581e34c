// Package bench times the recommendation query under both cap policies and
// reports latency statistics for the comparison.
package bench

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shelfmate/bookrec/pkg/recommend"
	"github.com/shelfmate/bookrec/pkg/store"
)

// Recommender is the query surface under test.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) ([]recommend.Recommendation, error)
}

// Options configures one benchmark session.
type Options struct {
	// BookID is the reference book every query runs against.
	BookID int64

	// Runs is the number of timed iterations per variant.
	Runs int

	// Limit is the recommendation cap passed to every query.
	Limit int

	// Delay is the pause between iterations.
	Delay time.Duration
}

// VariantResult holds the measurements for one cap policy.
type VariantResult struct {
	Name      string
	Stats     Stats
	TotalRows int
}

// Report is the outcome of a full session.
type Report struct {
	RunID  string
	BookID int64
	Runs   int
	Limit  int
	Capped VariantResult
	Ranked VariantResult
}

// Runner drives benchmark sessions.
type Runner struct {
	recommender Recommender
	logger      store.Logger
}

// New creates a runner. A nil logger disables logging.
func New(recommender Recommender, logger store.Logger) *Runner {
	if logger == nil {
		logger = store.NopLogger()
	}
	return &Runner{
		recommender: recommender,
		logger:      logger.With("component", "bench"),
	}
}

// Run benchmarks both cap policies against the same reference book. Any
// failing query aborts the session.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Runs <= 0 {
		return nil, fmt.Errorf("bench: runs must be positive, got %d", opts.Runs)
	}
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("bench: limit must be positive, got %d", opts.Limit)
	}

	report := &Report{
		RunID:  uuid.NewString(),
		BookID: opts.BookID,
		Runs:   opts.Runs,
		Limit:  opts.Limit,
	}
	r.logger.Info("benchmark started", "run_id", report.RunID, "book_id", opts.BookID, "runs", opts.Runs)

	var err error
	if report.Capped, err = r.runVariant(ctx, opts, "cap-then-rank", false); err != nil {
		return nil, err
	}
	if report.Ranked, err = r.runVariant(ctx, opts, "rank-then-cap", true); err != nil {
		return nil, err
	}

	r.logger.Info("benchmark finished", "run_id", report.RunID,
		"capped_avg_ms", report.Capped.Stats.Avg, "ranked_avg_ms", report.Ranked.Stats.Avg)
	return report, nil
}

func (r *Runner) runVariant(ctx context.Context, opts Options, name string, rankFirst bool) (VariantResult, error) {
	result := VariantResult{Name: name}
	times := make([]float64, 0, opts.Runs)

	for i := 0; i < opts.Runs; i++ {
		if i > 0 && opts.Delay > 0 {
			select {
			case <-time.After(opts.Delay):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}

		start := time.Now()
		recs, err := r.recommender.Recommend(ctx, recommend.Request{
			BookID:        opts.BookID,
			Limit:         opts.Limit,
			RankBeforeCap: rankFirst,
		})
		if err != nil {
			return result, fmt.Errorf("bench: %s run %d: %w", name, i+1, err)
		}

		elapsed := float64(time.Since(start).Microseconds()) / 1000.0
		times = append(times, elapsed)
		result.TotalRows += len(recs)
		r.logger.Debug("run complete", "variant", name, "run", i+1, "ms", elapsed, "rows", len(recs))
	}

	result.Stats = Compute(times)
	return result, nil
}

// Format renders the comparison table.
func (rep *Report) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Benchmark %s (book %d, %d runs, limit %d)\n\n", rep.RunID, rep.BookID, rep.Runs, rep.Limit)
	fmt.Fprintf(&b, "%-15s %10s %10s %10s %10s %10s %6s\n",
		"variant", "min ms", "max ms", "avg ms", "median", "stddev", "rows")
	for _, v := range []VariantResult{rep.Capped, rep.Ranked} {
		fmt.Fprintf(&b, "%-15s %10.2f %10.2f %10.2f %10.2f %10.2f %6d\n",
			v.Name, v.Stats.Min, v.Stats.Max, v.Stats.Avg, v.Stats.Median, v.Stats.StdDev, v.TotalRows)
	}

	if rep.Capped.Stats.Avg > 0 {
		delta := (rep.Ranked.Stats.Avg - rep.Capped.Stats.Avg) / rep.Capped.Stats.Avg * 100
		fmt.Fprintf(&b, "\nrank-then-cap average latency: %+.1f%% vs cap-then-rank\n", delta)
	}
	return b.String()
}
