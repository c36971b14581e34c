package store

import (
	"context"
	"fmt"

	"github.com/shelfmate/bookrec/internal/encoding"
)

// RatingSummary holds the aggregate rating for a single book. Avg is nil
// when the book has no ratings; Count is then 0.
type RatingSummary struct {
	Avg   *float64 `json:"avg_rating"`
	Count int      `json:"rating_count"`
}

// RatingSummary returns the average rating and rating count for a book.
// A book with zero ratings yields (nil, 0), not an error.
func (s *Store) RatingSummary(ctx context.Context, bookID int64) (RatingSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.isClosed() {
		return RatingSummary{}, wrapError("rating_summary", ErrStoreClosed)
	}

	var rawAvg any
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT AVG(rating), COUNT(rating) FROM ratings WHERE book_id = ?", bookID,
	).Scan(&rawAvg, &count)
	if err != nil {
		return RatingSummary{}, wrapError("rating_summary", fmt.Errorf("failed to query ratings: %w", err))
	}

	summary := RatingSummary{Count: count}
	if avg, ok := encoding.Float64(rawAvg); ok {
		summary.Avg = &avg
	}
	return summary, nil
}
