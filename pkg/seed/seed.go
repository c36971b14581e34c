// Package seed populates a store with generated books and ratings so the
// dashboard and benchmark have realistic data to work against. Generation is
// deterministic for a fixed Params.Seed.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/shelfmate/bookrec/pkg/store"
)

// baseTitles is the pool the title generator draws from.
var baseTitles = []string{
	"The Great Gatsby", "To Kill a Mockingbird", "1984", "Pride and Prejudice",
	"The Catcher in the Rye", "Lord of the Flies", "Animal Farm", "Brave New World",
	"The Hobbit", "The Lord of the Rings", "Dune", "Foundation", "Neuromancer",
	"Snow Crash", "Blade Runner", "Ready Player One", "The Martian",
	"Project Hail Mary", "The Three-Body Problem", "The Dark Forest", "Death's End",
	"Leviathan Wakes", "Caliban's War", "Abaddon's Gate",
	"The Hunger Games", "Catching Fire", "Mockingjay", "Divergent",
	"The Maze Runner", "The Fault in Our Stars", "Looking for Alaska",
	"Paper Towns", "Eleanor & Park", "The Song of Achilles", "Circe",
	"The Silence of the Lambs", "Red Dragon", "Hannibal",
	"The Girl with the Dragon Tattoo", "Gone Girl", "Sharp Objects",
	"The Da Vinci Code", "Angels & Demons", "Inferno",
	"The Alchemist", "Veronika Decides to Die", "Eleven Minutes", "The Zahir",
}

var authors = []string{
	"F. Scott Fitzgerald", "Harper Lee", "George Orwell", "Jane Austen",
	"J.D. Salinger", "William Golding", "Aldous Huxley", "J.R.R. Tolkien",
	"Frank Herbert", "Isaac Asimov", "William Gibson", "Neal Stephenson",
	"Philip K. Dick", "Ernest Cline", "Andy Weir", "Liu Cixin",
	"James S.A. Corey", "Suzanne Collins", "Veronica Roth", "James Dashner",
	"John Green", "Rainbow Rowell", "Madeline Miller", "Thomas Harris",
	"Stieg Larsson", "Gillian Flynn", "Dan Brown", "Paulo Coelho",
}

// Params controls one seeding run. Zero values fall back to the defaults
// below via Normalize.
type Params struct {
	Books     int
	Ratings   int
	Readers   int
	VectorDim int

	// RatingWindowDays bounds how far back rating timestamps reach.
	RatingWindowDays int

	// Seed drives the generator. Runs with the same Params produce the
	// same data.
	Seed int64
}

// Defaults mirror the demo dataset shape.
const (
	DefaultBooks            = 100
	DefaultRatings          = 1000
	DefaultReaders          = 50
	DefaultRatingWindowDays = 730
)

// popularShare is the fraction of ratings funneled to the popular subset.
const popularShare = 0.7

// Normalize fills unset fields with defaults.
func (p Params) Normalize() Params {
	if p.Books <= 0 {
		p.Books = DefaultBooks
	}
	if p.Ratings <= 0 {
		p.Ratings = DefaultRatings
	}
	if p.Readers <= 0 {
		p.Readers = DefaultReaders
	}
	if p.VectorDim <= 0 {
		p.VectorDim = store.DefaultVectorDim
	}
	if p.RatingWindowDays <= 0 {
		p.RatingWindowDays = DefaultRatingWindowDays
	}
	return p
}

// Result summarizes what a run inserted.
type Result struct {
	Books   int
	Ratings int
}

// Seeder writes generated data through a Target.
type Seeder struct {
	target Target
	logger store.Logger
}

// Target is the store surface the seeder needs.
type Target interface {
	UpsertBook(ctx context.Context, title string, vector []float32) (int64, error)
	InsertRating(ctx context.Context, userID string, bookID int64, rating int, ts time.Time) error
}

// New creates a seeder. A nil logger disables logging.
func New(target Target, logger store.Logger) *Seeder {
	if logger == nil {
		logger = store.NopLogger()
	}
	return &Seeder{
		target: target,
		logger: logger.With("component", "seed"),
	}
}

// Run inserts p.Books generated books and p.Ratings ratings. About a third
// of the books are marked popular and receive 70% of the ratings; ratings
// are quality-weighted so popular books trend higher.
func (s *Seeder) Run(ctx context.Context, p Params) (Result, error) {
	p = p.Normalize()
	rng := rand.New(rand.NewSource(p.Seed))

	s.logger.Info("seeding started", "books", p.Books, "ratings", p.Ratings, "dim", p.VectorDim)

	bookIDs := make([]int64, 0, p.Books)
	for i := 0; i < p.Books; i++ {
		title := fmt.Sprintf("%s by %s", generateTitle(rng), authors[rng.Intn(len(authors))])
		id, err := s.target.UpsertBook(ctx, title, randomVector(rng, p.VectorDim))
		if err != nil {
			return Result{Books: i}, fmt.Errorf("seed book %d: %w", i, err)
		}
		bookIDs = append(bookIDs, id)
	}

	readers := make([]string, p.Readers)
	for i := range readers {
		u, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			return Result{Books: len(bookIDs)}, fmt.Errorf("seed reader id: %w", err)
		}
		readers[i] = u.String()
	}

	// A third of the catalog soaks up most of the ratings.
	popular := append([]int64(nil), bookIDs...)
	rng.Shuffle(len(popular), func(i, j int) { popular[i], popular[j] = popular[j], popular[i] })
	popular = popular[:len(popular)/3+1]

	now := time.Now()
	for i := 0; i < p.Ratings; i++ {
		bookID := bookIDs[rng.Intn(len(bookIDs))]
		if rng.Float64() < popularShare {
			bookID = popular[rng.Intn(len(popular))]
		}

		ts := now.AddDate(0, 0, -rng.Intn(p.RatingWindowDays))
		err := s.target.InsertRating(ctx, readers[rng.Intn(len(readers))], bookID, qualityRating(rng), ts)
		if err != nil {
			return Result{Books: len(bookIDs), Ratings: i}, fmt.Errorf("seed rating %d: %w", i, err)
		}
	}

	s.logger.Info("seeding finished", "books", len(bookIDs), "ratings", p.Ratings)
	return Result{Books: len(bookIDs), Ratings: p.Ratings}, nil
}

var titleVariants = []string{
	"%s", "The %s", "%s Returns", "%s Revisited", "Beyond %s",
	"%s Chronicles", "The %s Saga", "%s Trilogy",
}

func generateTitle(rng *rand.Rand) string {
	base := baseTitles[rng.Intn(len(baseTitles))]
	return fmt.Sprintf(titleVariants[rng.Intn(len(titleVariants))], base)
}

func randomVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = rng.Float32()
	}
	return v
}

// qualityRating draws a 1..5 star rating. A fifth of the draws use a
// "well-received book" distribution skewed high; the rest skew low.
func qualityRating(rng *rand.Rand) int {
	var weights [5]float64
	if rng.Float64() < 0.2 {
		weights = [5]float64{0.05, 0.1, 0.2, 0.4, 0.25}
	} else {
		weights = [5]float64{0.25, 0.35, 0.25, 0.12, 0.03}
	}

	r := rng.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return i + 1
		}
	}
	return 5
}
