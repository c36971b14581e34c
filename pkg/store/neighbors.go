package store

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/shelfmate/bookrec/internal/encoding"
)

// MaxCosineDistance is the theoretical maximum of the cosine distance
// metric. As a neighbor-query cutoff it keeps every candidate with a
// defined distance while dropping degenerate ones (NaN fails the
// comparison), matching the original query's `< 2.0` guard.
const MaxCosineDistance = 2.0

// NeighborQuery describes one similarity+aggregation query.
type NeighborQuery struct {
	// ReferenceID is the book whose embedding anchors the search.
	ReferenceID int64

	// ExcludeID is removed from the candidate set. Normally equal to
	// ReferenceID so a book never recommends itself.
	ExcludeID int64

	// Limit caps the number of returned rows. Must be positive.
	Limit int

	// MaxDistance is the distance cutoff. Zero means MaxCosineDistance.
	MaxDistance float64

	// RankBeforeCap sorts candidates by distance before applying Limit.
	// The default (false) preserves the historical behavior of capping in
	// retrieval order, which can cut closer items when more than Limit
	// candidates pass the distance filter.
	RankBeforeCap bool
}

// Neighbor is one row of the similarity+aggregation query: a candidate book
// with its raw distance to the reference and its rating aggregate. Books
// with zero ratings are kept with a nil average (left-join semantics).
type Neighbor struct {
	ID          int64
	Title       string
	Distance    float64
	AvgRating   *float64
	RatingCount int
}

// Neighbors runs the nearest-neighbor query for a reference book: candidates
// with a non-NULL embedding and a defined distance below the cutoff, joined
// with their rating aggregates, capped at q.Limit. The reference book's
// embedding is resolved inside the query, so a reference without one yields
// ErrNoEmbedding.
func (s *Store) Neighbors(ctx context.Context, q NeighborQuery) ([]Neighbor, error) {
	if q.Limit <= 0 {
		return nil, wrapError("neighbors", fmt.Errorf("limit must be positive, got %d", q.Limit))
	}
	if q.MaxDistance == 0 {
		q.MaxDistance = MaxCosineDistance
	}

	reference, err := s.Embedding(ctx, q.ReferenceID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.isClosed() {
		return nil, wrapError("neighbors", ErrStoreClosed)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.title, b.embedding,
		       AVG(r.rating) AS avg_rating, COUNT(r.rating) AS rating_count
		FROM books b
		LEFT JOIN ratings r ON b.id = r.book_id
		WHERE b.embedding IS NOT NULL AND b.id != ?
		GROUP BY b.id, b.title, b.embedding`,
		q.ExcludeID)
	if err != nil {
		return nil, wrapError("neighbors", fmt.Errorf("failed to query candidates: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var neighbors []Neighbor
	for rows.Next() {
		var (
			n      Neighbor
			raw    []byte
			rawAvg any
		)
		if err := rows.Scan(&n.ID, &n.Title, &raw, &rawAvg, &n.RatingCount); err != nil {
			return nil, wrapError("neighbors", fmt.Errorf("failed to scan candidate: %w", err))
		}

		n.Distance = s.candidateDistance(reference, raw, n.ID)
		// NaN fails this comparison, so undecodable embeddings drop out here.
		if !(n.Distance < q.MaxDistance) {
			continue
		}

		if avg, ok := encoding.Float64(rawAvg); ok && n.RatingCount > 0 {
			n.AvgRating = &avg
		}

		neighbors = append(neighbors, n)
		if !q.RankBeforeCap && len(neighbors) >= q.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("neighbors", fmt.Errorf("error iterating rows: %w", err))
	}

	if q.RankBeforeCap {
		sort.SliceStable(neighbors, func(i, j int) bool {
			return neighbors[i].Distance < neighbors[j].Distance
		})
		if len(neighbors) > q.Limit {
			neighbors = neighbors[:q.Limit]
		}
	}

	return neighbors, nil
}

// candidateDistance decodes a stored embedding and measures its cosine
// distance to the reference. Any decode failure yields NaN so the caller's
// distance guard removes the candidate instead of aborting the query.
func (s *Store) candidateDistance(reference []float32, raw []byte, bookID int64) float64 {
	vector, _, err := encoding.DecodeVector(raw)
	if err != nil {
		s.logger.Warn("skipping candidate with undecodable embedding", "book_id", bookID, "err", err)
		return math.NaN()
	}
	return CosineDistance(reference, vector)
}
