package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shelfmate/bookrec/internal/encoding"
)

// BookRef identifies a book for selection lists.
type BookRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Stats summarizes the whole catalog for the dashboard header.
type Stats struct {
	BookCount   int      `json:"book_count"`
	RatingCount int      `json:"rating_count"`
	AvgRating   *float64 `json:"avg_rating"`
}

// Books returns all books ordered by title.
func (s *Store) Books(ctx context.Context) ([]BookRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.isClosed() {
		return nil, wrapError("books", ErrStoreClosed)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, title FROM books ORDER BY title")
	if err != nil {
		return nil, wrapError("books", fmt.Errorf("failed to query books: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var books []BookRef
	for rows.Next() {
		var b BookRef
		if err := rows.Scan(&b.ID, &b.Title); err != nil {
			return nil, wrapError("books", fmt.Errorf("failed to scan book: %w", err))
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("books", fmt.Errorf("error iterating rows: %w", err))
	}

	return books, nil
}

// UpsertBook inserts a book with an optional embedding and returns its id.
// A nil vector stores a NULL embedding. The vector is validated against the
// configured dimensionality and stored in the binary encoding.
func (s *Store) UpsertBook(ctx context.Context, title string, vector []float32) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.isClosed() {
		return 0, wrapError("upsert_book", ErrStoreClosed)
	}
	if title == "" {
		return 0, wrapError("upsert_book", fmt.Errorf("title cannot be empty"))
	}

	var embedding any
	if vector != nil {
		if err := encoding.ValidateVector(vector); err != nil {
			return 0, wrapError("upsert_book", err)
		}
		if len(vector) != s.config.VectorDim {
			return 0, wrapError("upsert_book", fmt.Errorf(
				"embedding dimension mismatch: expected %d, got %d", s.config.VectorDim, len(vector)))
		}
		blob, err := encoding.EncodeVector(vector)
		if err != nil {
			return 0, wrapError("upsert_book", err)
		}
		embedding = blob
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO books (title, embedding) VALUES (?, ?)", title, embedding)
	if err != nil {
		return 0, wrapError("upsert_book", fmt.Errorf("failed to insert book: %w", err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, wrapError("upsert_book", err)
	}
	return id, nil
}

// InsertRating appends an immutable rating for a book. The score must be in
// the 1-5 range; ratings are never updated or deleted.
func (s *Store) InsertRating(ctx context.Context, userID string, bookID int64, rating int, ts time.Time) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.isClosed() {
		return wrapError("insert_rating", ErrStoreClosed)
	}
	if rating < 1 || rating > 5 {
		return wrapError("insert_rating", ErrInvalidRating)
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO ratings (user_id, book_id, rating, ts) VALUES (?, ?, ?, ?)",
		userID, bookID, rating, ts.UTC().Format(timeLayout))
	if err != nil {
		return wrapError("insert_rating", fmt.Errorf("failed to insert rating: %w", err))
	}
	return nil
}

// Stats returns catalog-wide counts and the global average rating. The
// average is nil when no ratings exist.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.isClosed() {
		return Stats{}, wrapError("stats", ErrStoreClosed)
	}

	var stats Stats
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books").Scan(&stats.BookCount); err != nil {
		return Stats{}, wrapError("stats", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ratings").Scan(&stats.RatingCount); err != nil {
		return Stats{}, wrapError("stats", err)
	}

	var rawAvg any
	if err := s.db.QueryRowContext(ctx, "SELECT AVG(rating) FROM ratings").Scan(&rawAvg); err != nil {
		return Stats{}, wrapError("stats", err)
	}
	if avg, ok := encoding.Float64(rawAvg); ok {
		stats.AvgRating = &avg
	}

	return stats, nil
}

// timeLayout is the DATETIME text layout SQLite's date functions understand.
const timeLayout = "2006-01-02 15:04:05"
