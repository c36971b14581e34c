package bench

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/shelfmate/bookrec/pkg/recommend"
)

type countingRecommender struct {
	calls       int
	rankedCalls int
	err         error
}

func (c *countingRecommender) Recommend(_ context.Context, req recommend.Request) ([]recommend.Recommendation, error) {
	c.calls++
	if req.RankBeforeCap {
		c.rankedCalls++
	}
	if c.err != nil {
		return nil, c.err
	}
	return make([]recommend.Recommendation, req.Limit), nil
}

func TestRunBothVariants(t *testing.T) {
	rec := &countingRecommender{}
	report, err := New(rec, nil).Run(context.Background(), Options{BookID: 1, Runs: 4, Limit: 3})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if rec.calls != 8 {
		t.Errorf("total queries: got %d, want 8", rec.calls)
	}
	if rec.rankedCalls != 4 {
		t.Errorf("ranked queries: got %d, want 4", rec.rankedCalls)
	}
	if report.Capped.TotalRows != 12 || report.Ranked.TotalRows != 12 {
		t.Errorf("row totals: %d / %d", report.Capped.TotalRows, report.Ranked.TotalRows)
	}
	if report.RunID == "" {
		t.Error("missing run id")
	}
	if report.Capped.Stats.Min < 0 || report.Capped.Stats.Max < report.Capped.Stats.Min {
		t.Errorf("implausible stats: %+v", report.Capped.Stats)
	}
}

func TestRunAbortsOnQueryFailure(t *testing.T) {
	rec := &countingRecommender{err: errors.New("boom")}
	if _, err := New(rec, nil).Run(context.Background(), Options{BookID: 1, Runs: 3, Limit: 3}); err == nil {
		t.Fatal("failing query did not abort the session")
	}
	if rec.calls != 1 {
		t.Errorf("expected abort after first query, got %d calls", rec.calls)
	}
}

func TestRunValidatesOptions(t *testing.T) {
	r := New(&countingRecommender{}, nil)
	if _, err := r.Run(context.Background(), Options{BookID: 1, Runs: 0, Limit: 3}); err == nil {
		t.Error("zero runs accepted")
	}
	if _, err := r.Run(context.Background(), Options{BookID: 1, Runs: 3, Limit: 0}); err == nil {
		t.Error("zero limit accepted")
	}
}

func TestFormatContainsBothVariants(t *testing.T) {
	report, err := New(&countingRecommender{}, nil).Run(context.Background(), Options{BookID: 9, Runs: 2, Limit: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	out := report.Format()
	for _, want := range []string{"cap-then-rank", "rank-then-cap", report.RunID} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		times []float64
		want  Stats
	}{
		{
			name:  "odd series",
			times: []float64{3, 1, 2},
			want:  Stats{Min: 1, Max: 3, Avg: 2, Median: 2, StdDev: 1},
		},
		{
			name:  "even series",
			times: []float64{4, 1, 3, 2},
			want:  Stats{Min: 1, Max: 4, Avg: 2.5, Median: 2.5, StdDev: 1.2909944487},
		},
		{
			name:  "single sample",
			times: []float64{5},
			want:  Stats{Min: 5, Max: 5, Avg: 5, Median: 5, StdDev: 0},
		},
		{
			name:  "empty",
			times: nil,
			want:  Stats{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.times)
			fields := []struct {
				name      string
				got, want float64
			}{
				{"min", got.Min, tt.want.Min},
				{"max", got.Max, tt.want.Max},
				{"avg", got.Avg, tt.want.Avg},
				{"median", got.Median, tt.want.Median},
				{"stddev", got.StdDev, tt.want.StdDev},
			}
			for _, f := range fields {
				if math.Abs(f.got-f.want) > 1e-6 {
					t.Errorf("%s: got %v, want %v", f.name, f.got, f.want)
				}
			}
		})
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	times := []float64{3, 1, 2}
	Compute(times)
	if times[0] != 3 || times[1] != 1 || times[2] != 2 {
		t.Errorf("input reordered: %v", times)
	}
}
