package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shelfmate/bookrec/internal/encoding"
)

// TrendPoint is one calendar day of the rating trend.
type TrendPoint struct {
	Day       time.Time `json:"day"`
	AvgRating float64   `json:"avg_rating"`
	Count     int       `json:"count"`
}

// TopRatedBook is one leaderboard row.
type TopRatedBook struct {
	Title       string  `json:"title"`
	AvgRating   float64 `json:"avg_rating"`
	RatingCount int     `json:"rating_count"`
}

// Defaults for the analytics queries, matching the dashboard's fixed values.
const (
	DefaultTrendWindowDays = 30
	DefaultTopRatedMin     = 3
	DefaultTopRatedLimit   = 10
)

const dayLayout = "2006-01-02"

// RatingTrend returns the average rating and rating count per calendar day
// over a trailing window, ordered chronologically ascending. A window with
// no ratings returns an empty slice, not an error.
func (s *Store) RatingTrend(ctx context.Context, windowDays int) ([]TrendPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.isClosed() {
		return nil, wrapError("rating_trend", ErrStoreClosed)
	}
	if windowDays <= 0 {
		windowDays = DefaultTrendWindowDays
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date(ts) AS day, AVG(rating) AS avg_rating, COUNT(*) AS num_ratings
		FROM ratings
		WHERE ts >= datetime('now', ?)
		GROUP BY date(ts)
		ORDER BY day`,
		fmt.Sprintf("-%d days", windowDays))
	if err != nil {
		return nil, wrapError("rating_trend", fmt.Errorf("failed to query trend: %w", err))
	}
	defer func() { _ = rows.Close() }()

	trend := []TrendPoint{}
	for rows.Next() {
		var (
			day    string
			rawAvg any
			count  int
		)
		if err := rows.Scan(&day, &rawAvg, &count); err != nil {
			return nil, wrapError("rating_trend", fmt.Errorf("failed to scan trend row: %w", err))
		}

		parsed, err := time.Parse(dayLayout, day)
		if err != nil {
			return nil, wrapError("rating_trend", fmt.Errorf("bad day value %q: %w", day, err))
		}
		avg, ok := encoding.Float64(rawAvg)
		if !ok {
			return nil, wrapError("rating_trend", fmt.Errorf("non-numeric average for day %q", day))
		}

		trend = append(trend, TrendPoint{Day: parsed, AvgRating: avg, Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("rating_trend", fmt.Errorf("error iterating rows: %w", err))
	}

	return trend, nil
}

// TopRated returns books with at least minCount ratings, ordered by average
// rating descending then rating count descending, capped at limit.
func (s *Store) TopRated(ctx context.Context, minCount, limit int) ([]TopRatedBook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.isClosed() {
		return nil, wrapError("top_rated", ErrStoreClosed)
	}
	if minCount <= 0 {
		minCount = DefaultTopRatedMin
	}
	if limit <= 0 {
		limit = DefaultTopRatedLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.title, AVG(r.rating) AS avg_rating, COUNT(r.rating) AS num_ratings
		FROM books b
		JOIN ratings r ON b.id = r.book_id
		GROUP BY b.id, b.title
		HAVING COUNT(r.rating) >= ?
		ORDER BY avg_rating DESC, num_ratings DESC
		LIMIT ?`,
		minCount, limit)
	if err != nil {
		return nil, wrapError("top_rated", fmt.Errorf("failed to query leaderboard: %w", err))
	}
	defer func() { _ = rows.Close() }()

	top := []TopRatedBook{}
	for rows.Next() {
		var (
			b      TopRatedBook
			rawAvg any
		)
		if err := rows.Scan(&b.Title, &rawAvg, &b.RatingCount); err != nil {
			return nil, wrapError("top_rated", fmt.Errorf("failed to scan leaderboard row: %w", err))
		}
		avg, ok := encoding.Float64(rawAvg)
		if !ok {
			return nil, wrapError("top_rated", fmt.Errorf("non-numeric average for %q", b.Title))
		}
		b.AvgRating = avg
		top = append(top, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("top_rated", fmt.Errorf("error iterating rows: %w", err))
	}

	return top, nil
}
