package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shelfmate/bookrec/internal/encoding"
)

// Embedding returns the embedding vector for a book. The stored value may be
// in the binary encoding or the legacy bracketed-text encoding; both are
// normalized to []float32. A missing book, a NULL embedding and an
// unrecognized encoding all surface as ErrNoEmbedding so callers can treat
// them uniformly as "no embedding available".
func (s *Store) Embedding(ctx context.Context, bookID int64) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.isClosed() {
		return nil, wrapError("embedding", ErrStoreClosed)
	}

	var raw []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT embedding FROM books WHERE id = ? AND embedding IS NOT NULL", bookID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrapError("embedding", ErrNoEmbedding)
	}
	if err != nil {
		return nil, wrapError("embedding", fmt.Errorf("failed to query embedding: %w", err))
	}

	vector, format, err := encoding.DecodeVector(raw)
	if err != nil {
		// Decoding failure is recoverable: report it as "no embedding" but
		// keep the cause (raw length and prefix) in the chain.
		s.logger.Warn("undecodable embedding", "book_id", bookID, "err", err)
		return nil, wrapError("embedding", fmt.Errorf("%w: %w", ErrNoEmbedding, err))
	}

	s.logger.Debug("embedding decoded", "book_id", bookID, "format", format, "dim", len(vector))
	return vector, nil
}
