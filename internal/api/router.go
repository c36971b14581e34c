// Package api serves the JSON dashboard: book listing, per-book rating and
// recommendation endpoints, and the analytics views. Embeddings are never
// exposed over the wire.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/shelfmate/bookrec/pkg/recommend"
	"github.com/shelfmate/bookrec/pkg/store"
)

// Provider is the store surface the handlers read from. *store.Store
// satisfies it.
type Provider interface {
	Books(ctx context.Context) ([]store.BookRef, error)
	RatingSummary(ctx context.Context, bookID int64) (store.RatingSummary, error)
	RatingTrend(ctx context.Context, windowDays int) ([]store.TrendPoint, error)
	TopRated(ctx context.Context, minCount, limit int) ([]store.TopRatedBook, error)
	Stats(ctx context.Context) (store.Stats, error)
}

// Recommender produces the ranked similar-books list.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) ([]recommend.Recommendation, error)
}

// Server wires the HTTP surface over a Provider and a Recommender.
type Server struct {
	provider    Provider
	recommender Recommender
	logger      zerolog.Logger
	router      chi.Router
}

// NewServer builds the server and its routes.
func NewServer(provider Provider, recommender Recommender, logger zerolog.Logger) *Server {
	s := &Server{
		provider:    provider,
		recommender: recommender,
		logger:      logger.With().Str("component", "api").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/books", s.handleBooks)
		r.Get("/books/{id}/rating", s.handleRating)
		r.Get("/books/{id}/recommendations", s.handleRecommendations)
		r.Get("/analytics/trend", s.handleTrend)
		r.Get("/analytics/top", s.handleTopRated)
		r.Get("/stats", s.handleStats)
	})
	r.Get("/", s.handleDashboard)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger emits one structured line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
