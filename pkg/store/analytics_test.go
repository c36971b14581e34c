package store

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestRatingTrend(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertBook(ctx, "Dune", []float32{1, 0, 0})
	if err != nil {
		t.Fatalf("UpsertBook failed: %v", err)
	}

	now := time.Now().UTC()
	// Two ratings yesterday, one the day before.
	yesterday := now.AddDate(0, 0, -1)
	dayBefore := now.AddDate(0, 0, -2)
	_ = s.InsertRating(ctx, "reader-1", id, 5, yesterday)
	_ = s.InsertRating(ctx, "reader-2", id, 3, yesterday)
	_ = s.InsertRating(ctx, "reader-3", id, 2, dayBefore)
	// Outside the window: must not appear.
	_ = s.InsertRating(ctx, "reader-4", id, 1, now.AddDate(0, 0, -100))

	trend, err := s.RatingTrend(ctx, 30)
	if err != nil {
		t.Fatalf("RatingTrend failed: %v", err)
	}
	if len(trend) != 2 {
		t.Fatalf("expected 2 trend points, got %d", len(trend))
	}

	// Chronologically ascending.
	if !trend[0].Day.Before(trend[1].Day) {
		t.Errorf("trend not ascending: %v then %v", trend[0].Day, trend[1].Day)
	}
	if trend[0].Count != 1 || math.Abs(trend[0].AvgRating-2.0) > 1e-9 {
		t.Errorf("day-before point: %+v", trend[0])
	}
	if trend[1].Count != 2 || math.Abs(trend[1].AvgRating-4.0) > 1e-9 {
		t.Errorf("yesterday point: %+v", trend[1])
	}
}

func TestRatingTrendEmptyWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertBook(ctx, "Dune", []float32{1, 0, 0})
	if err != nil {
		t.Fatalf("UpsertBook failed: %v", err)
	}
	_ = s.InsertRating(ctx, "reader-1", id, 5, time.Now().AddDate(0, 0, -100))

	trend, err := s.RatingTrend(ctx, 30)
	if err != nil {
		t.Fatalf("RatingTrend on empty window errored: %v", err)
	}
	if len(trend) != 0 {
		t.Fatalf("expected empty trend, got %d points", len(trend))
	}
}

func TestTopRated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	rate := func(bookID int64, scores ...int) {
		for i, score := range scores {
			if err := s.InsertRating(ctx, "reader-1", bookID, score, now.Add(-time.Duration(i)*time.Minute)); err != nil {
				t.Fatalf("InsertRating failed: %v", err)
			}
		}
	}

	good, _ := s.UpsertBook(ctx, "Good", []float32{1, 0, 0})
	rate(good, 5, 4, 5) // avg 4.67, 3 ratings

	okay, _ := s.UpsertBook(ctx, "Okay", []float32{0, 1, 0})
	rate(okay, 3, 3, 3, 3) // avg 3.0, 4 ratings

	// Perfect average but below the minimum rating count.
	sparse, _ := s.UpsertBook(ctx, "Sparse", []float32{0, 0, 1})
	rate(sparse, 5, 5)

	top, err := s.TopRated(ctx, 3, 10)
	if err != nil {
		t.Fatalf("TopRated failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 leaderboard rows, got %d", len(top))
	}
	if top[0].Title != "Good" || top[1].Title != "Okay" {
		t.Errorf("order: got %q then %q", top[0].Title, top[1].Title)
	}
	for _, row := range top {
		if row.Title == "Sparse" {
			t.Error("book below the minimum rating count made the leaderboard")
		}
	}
	if math.Abs(top[1].AvgRating-3.0) > 1e-9 {
		t.Errorf("Okay average: got %v, want 3.0", top[1].AvgRating)
	}
}

func TestTopRatedEmpty(t *testing.T) {
	s := newTestStore(t)

	top, err := s.TopRated(context.Background(), 3, 10)
	if err != nil {
		t.Fatalf("TopRated on empty store errored: %v", err)
	}
	if len(top) != 0 {
		t.Fatalf("expected empty leaderboard, got %d rows", len(top))
	}
}
