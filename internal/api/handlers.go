package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shelfmate/bookrec/pkg/recommend"
	"github.com/shelfmate/bookrec/pkg/store"
)

// defaultRecommendLimit applies when the query string omits limit.
const defaultRecommendLimit = 10

// maxRecommendLimit bounds what a single request may ask for.
const maxRecommendLimit = 50

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.provider.Stats(r.Context()); err != nil {
		respondError(w, s.logger, http.StatusServiceUnavailable, "store_unavailable", "store is not reachable")
		return
	}
	respondJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.provider.Books(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("listing books failed")
		respondError(w, s.logger, http.StatusInternalServerError, "internal", "failed to list books")
		return
	}
	respondJSON(w, s.logger, http.StatusOK, books)
}

type ratingResponse struct {
	BookID      int64    `json:"book_id"`
	AvgRating   *float64 `json:"avg_rating"`
	RatingCount int      `json:"rating_count"`
}

func (s *Server) handleRating(w http.ResponseWriter, r *http.Request) {
	id, ok := s.bookID(w, r)
	if !ok {
		return
	}

	summary, err := s.provider.RatingSummary(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Int64("book_id", id).Msg("rating summary failed")
		respondError(w, s.logger, http.StatusInternalServerError, "internal", "failed to load rating")
		return
	}
	respondJSON(w, s.logger, http.StatusOK, ratingResponse{
		BookID:      id,
		AvgRating:   summary.Avg,
		RatingCount: summary.Count,
	})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	id, ok := s.bookID(w, r)
	if !ok {
		return
	}

	limit := defaultRecommendLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxRecommendLimit {
			respondError(w, s.logger, http.StatusBadRequest, "bad_limit", "limit must be between 1 and 50")
			return
		}
		limit = parsed
	}

	recs, err := s.recommender.Recommend(r.Context(), recommend.Request{BookID: id, Limit: limit})
	if err != nil {
		if errors.Is(err, store.ErrNoEmbedding) {
			respondError(w, s.logger, http.StatusNotFound, "no_embedding", "book has no embedding")
			return
		}
		// The dashboard renders this as "no recommendations".
		s.logger.Error().Err(err).Int64("book_id", id).Msg("recommendation query failed")
		respondError(w, s.logger, http.StatusInternalServerError, "internal", "recommendation query failed")
		return
	}
	respondJSON(w, s.logger, http.StatusOK, recs)
}

type trendPointResponse struct {
	Day         string  `json:"day"`
	AvgRating   float64 `json:"avg_rating"`
	RatingCount int     `json:"rating_count"`
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	trend, err := s.provider.RatingTrend(r.Context(), store.DefaultTrendWindowDays)
	if err != nil {
		s.logger.Error().Err(err).Msg("rating trend failed")
		respondError(w, s.logger, http.StatusInternalServerError, "internal", "failed to load trend")
		return
	}

	points := make([]trendPointResponse, 0, len(trend))
	for _, p := range trend {
		points = append(points, trendPointResponse{
			Day:         p.Day.Format("2006-01-02"),
			AvgRating:   p.AvgRating,
			RatingCount: p.Count,
		})
	}
	respondJSON(w, s.logger, http.StatusOK, points)
}

func (s *Server) handleTopRated(w http.ResponseWriter, r *http.Request) {
	top, err := s.provider.TopRated(r.Context(), store.DefaultTopRatedMin, store.DefaultTopRatedLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("top rated failed")
		respondError(w, s.logger, http.StatusInternalServerError, "internal", "failed to load leaderboard")
		return
	}
	respondJSON(w, s.logger, http.StatusOK, top)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.provider.Stats(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("stats failed")
		respondError(w, s.logger, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	respondJSON(w, s.logger, http.StatusOK, stats)
}

// bookID parses the {id} route parameter; on failure it writes a 400 and
// returns ok=false.
func (s *Server) bookID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		respondError(w, s.logger, http.StatusBadRequest, "bad_book_id", "book id must be a positive integer")
		return 0, false
	}
	return id, true
}
