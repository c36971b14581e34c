// Package recommend turns the store's raw neighbor rows into a ranked
// "similar books" list: it verifies the reference embedding, converts
// cosine distance to a bounded similarity score and sorts by it.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shelfmate/bookrec/pkg/store"
)

// Source is the store surface the engine needs. *store.Store satisfies it;
// tests substitute their own.
type Source interface {
	// Embedding returns the reference book's embedding or
	// store.ErrNoEmbedding.
	Embedding(ctx context.Context, bookID int64) ([]float32, error)

	// Neighbors runs the similarity+aggregation query.
	Neighbors(ctx context.Context, q store.NeighborQuery) ([]store.Neighbor, error)
}

// Request describes one recommendation call.
type Request struct {
	// BookID is the reference book. It is also used as the exclusion id so
	// a book never appears in its own recommendations.
	BookID int64

	// Limit caps the result list. Must be positive; the engine places no
	// further restriction.
	Limit int

	// RankBeforeCap opts into the corrected rank-then-cap query variant.
	RankBeforeCap bool
}

// Recommendation is one ranked result. AvgRating is nil for books with no
// ratings; such books are kept, not dropped.
type Recommendation struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Similarity  float64  `json:"similarity_score"`
	AvgRating   *float64 `json:"avg_rating"`
	RatingCount int      `json:"rating_count"`
}

// Engine produces ranked recommendation lists from a Source.
type Engine struct {
	source Source
	logger store.Logger
}

// New creates an engine. A nil logger disables logging.
func New(source Source, logger store.Logger) *Engine {
	if logger == nil {
		logger = store.NopLogger()
	}
	return &Engine{
		source: source,
		logger: logger.With("component", "recommend"),
	}
}

// Similarity converts a cosine distance in [0, 2] to a similarity score in
// [0, 1]: max(0, 1 - distance). A distance of 0 maps to 1; any distance >= 1
// clamps to 0.
func Similarity(distance float64) float64 {
	sim := 1 - distance
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// Recommend returns up to req.Limit books similar to the reference, sorted
// by similarity descending (ties keep retrieval order). A reference without
// an embedding or a failing store query returns a nil list and the error;
// callers render that as "no recommendations" rather than aborting.
func (e *Engine) Recommend(ctx context.Context, req Request) ([]Recommendation, error) {
	if req.Limit <= 0 {
		return nil, fmt.Errorf("recommend: limit must be positive, got %d", req.Limit)
	}

	// Confirm the reference embedding exists before running the heavier
	// similarity query.
	if _, err := e.source.Embedding(ctx, req.BookID); err != nil {
		if errors.Is(err, store.ErrNoEmbedding) {
			e.logger.Warn("reference book has no embedding", "book_id", req.BookID)
		}
		return nil, err
	}

	neighbors, err := e.source.Neighbors(ctx, store.NeighborQuery{
		ReferenceID:   req.BookID,
		ExcludeID:     req.BookID,
		Limit:         req.Limit,
		RankBeforeCap: req.RankBeforeCap,
	})
	if err != nil {
		e.logger.Error("neighbor query failed", "book_id", req.BookID, "err", err)
		return nil, err
	}

	recs := make([]Recommendation, 0, len(neighbors))
	for _, n := range neighbors {
		recs = append(recs, Recommendation{
			ID:          n.ID,
			Title:       n.Title,
			Similarity:  Similarity(n.Distance),
			AvgRating:   n.AvgRating,
			RatingCount: n.RatingCount,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Similarity > recs[j].Similarity
	})

	e.logger.Debug("recommendations ready", "book_id", req.BookID, "count", len(recs))
	return recs, nil
}
