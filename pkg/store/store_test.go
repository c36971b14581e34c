package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/shelfmate/bookrec/internal/encoding"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := fmt.Sprintf("/tmp/test_bookrec_%d.db", time.Now().UnixNano())
	t.Cleanup(func() { _ = os.Remove(dbPath) })

	config := DefaultConfig(dbPath)
	config.VectorDim = 3

	s, err := NewWithConfig(config)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Failed to init store: %v", err)
	}
	return s
}

func TestBooksOrderedByTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"Neuromancer", "Dune", "Foundation"} {
		if _, err := s.UpsertBook(ctx, title, []float32{1, 0, 0}); err != nil {
			t.Fatalf("UpsertBook(%q) failed: %v", title, err)
		}
	}

	books, err := s.Books(ctx)
	if err != nil {
		t.Fatalf("Books failed: %v", err)
	}
	if len(books) != 3 {
		t.Fatalf("expected 3 books, got %d", len(books))
	}
	want := []string{"Dune", "Foundation", "Neuromancer"}
	for i, title := range want {
		if books[i].Title != title {
			t.Errorf("position %d: got %q, want %q", i, books[i].Title, title)
		}
	}
}

func TestUpsertBookValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertBook(ctx, "", []float32{1, 0, 0}); err == nil {
		t.Error("empty title accepted")
	}
	if _, err := s.UpsertBook(ctx, "Wrong Dim", []float32{1, 0}); err == nil {
		t.Error("dimension mismatch accepted")
	}
	// NULL embedding is allowed.
	if _, err := s.UpsertBook(ctx, "No Embedding", nil); err != nil {
		t.Errorf("nil embedding rejected: %v", err)
	}
}

func TestEmbeddingBinary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertBook(ctx, "Dune", []float32{0.5, -0.25, 1})
	if err != nil {
		t.Fatalf("UpsertBook failed: %v", err)
	}

	vec, err := s.Embedding(ctx, id)
	if err != nil {
		t.Fatalf("Embedding failed: %v", err)
	}
	want := []float32{0.5, -0.25, 1}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("element %d: got %v, want %v", i, vec[i], want[i])
		}
	}
}

func TestEmbeddingLegacyText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Older seed runs stored the bracketed text form; write one directly.
	result, err := s.DB().ExecContext(ctx,
		"INSERT INTO books (title, embedding) VALUES (?, ?)", "Legacy", "[0.1,0.2,0.3]")
	if err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}
	id, _ := result.LastInsertId()

	vec, err := s.Embedding(ctx, id)
	if err != nil {
		t.Fatalf("Embedding failed on text encoding: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(vec))
	}
	if math.Abs(float64(vec[1])-0.2) > 1e-6 {
		t.Errorf("element 1: got %v, want 0.2", vec[1])
	}
}

func TestEmbeddingNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Embedding(ctx, 9999); !errors.Is(err, ErrNoEmbedding) {
		t.Fatalf("expected ErrNoEmbedding for missing book, got %v", err)
	}

	id, err := s.UpsertBook(ctx, "No Vector", nil)
	if err != nil {
		t.Fatalf("UpsertBook failed: %v", err)
	}
	if _, err := s.Embedding(ctx, id); !errors.Is(err, ErrNoEmbedding) {
		t.Fatalf("expected ErrNoEmbedding for NULL embedding, got %v", err)
	}
}

func TestEmbeddingUnknownEncoding(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	result, err := s.DB().ExecContext(ctx,
		"INSERT INTO books (title, embedding) VALUES (?, ?)", "Corrupt", []byte{0xde, 0xad})
	if err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}
	id, _ := result.LastInsertId()

	_, err = s.Embedding(ctx, id)
	if !errors.Is(err, ErrNoEmbedding) {
		t.Fatalf("expected ErrNoEmbedding, got %v", err)
	}
	if !errors.Is(err, encoding.ErrUnknownFormat) {
		t.Fatalf("expected cause ErrUnknownFormat in chain, got %v", err)
	}
}

func TestRatingSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertBook(ctx, "Dune", []float32{1, 0, 0})
	if err != nil {
		t.Fatalf("UpsertBook failed: %v", err)
	}

	// Zero ratings: nil average, count 0, no error.
	summary, err := s.RatingSummary(ctx, id)
	if err != nil {
		t.Fatalf("RatingSummary failed: %v", err)
	}
	if summary.Avg != nil {
		t.Errorf("expected nil average for unrated book, got %v", *summary.Avg)
	}
	if summary.Count != 0 {
		t.Errorf("expected count 0, got %d", summary.Count)
	}

	now := time.Now()
	for _, r := range []int{4, 5, 3} {
		if err := s.InsertRating(ctx, "reader-1", id, r, now); err != nil {
			t.Fatalf("InsertRating failed: %v", err)
		}
	}

	summary, err = s.RatingSummary(ctx, id)
	if err != nil {
		t.Fatalf("RatingSummary failed: %v", err)
	}
	if summary.Count != 3 {
		t.Errorf("expected count 3, got %d", summary.Count)
	}
	if summary.Avg == nil || math.Abs(*summary.Avg-4.0) > 1e-9 {
		t.Errorf("expected average 4.0, got %v", summary.Avg)
	}
}

func TestInsertRatingBounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertBook(ctx, "Dune", []float32{1, 0, 0})
	if err != nil {
		t.Fatalf("UpsertBook failed: %v", err)
	}

	for _, bad := range []int{0, 6, -1} {
		if err := s.InsertRating(ctx, "reader-1", id, bad, time.Now()); !errors.Is(err, ErrInvalidRating) {
			t.Errorf("rating %d: expected ErrInvalidRating, got %v", bad, err)
		}
	}
}

func TestClosedStore(t *testing.T) {
	s := newTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ctx := context.Background()
	if _, err := s.Books(ctx); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Books on closed store: got %v", err)
	}
	if _, err := s.Embedding(ctx, 1); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Embedding on closed store: got %v", err)
	}
	// Close is idempotent.
	if err := s.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.BookCount != 0 || stats.RatingCount != 0 || stats.AvgRating != nil {
		t.Errorf("empty store stats: %+v", stats)
	}

	id, _ := s.UpsertBook(ctx, "Dune", []float32{1, 0, 0})
	_ = s.InsertRating(ctx, "reader-1", id, 4, time.Now())
	_ = s.InsertRating(ctx, "reader-2", id, 2, time.Now())

	stats, err = s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.BookCount != 1 || stats.RatingCount != 2 {
		t.Errorf("counts: %+v", stats)
	}
	if stats.AvgRating == nil || math.Abs(*stats.AvgRating-3.0) > 1e-9 {
		t.Errorf("expected global average 3.0, got %v", stats.AvgRating)
	}
}
