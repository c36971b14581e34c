package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shelfmate/bookrec/internal/api"
	"github.com/shelfmate/bookrec/internal/bench"
	"github.com/shelfmate/bookrec/internal/config"
	"github.com/shelfmate/bookrec/pkg/recommend"
	"github.com/shelfmate/bookrec/pkg/seed"
	"github.com/shelfmate/bookrec/pkg/store"
)

var (
	configPath string
	dbPath     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "bookrec",
	Short: "Bookstore vector-similarity recommendations demo",
	Long: `bookrec pairs an embedded SQLite store with vector similarity search:
seed it with generated books and ratings, serve the recommendation
dashboard, or benchmark the similarity query.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the recommendation dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		s, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		engine := recommend.New(s, storeLogger())
		server := api.NewServer(s, engine, logger)

		httpServer := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           server,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.Addr()).Msg("dashboard listening")
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
		}

		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the store with generated books and ratings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		s, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		books, _ := cmd.Flags().GetInt("books")
		ratings, _ := cmd.Flags().GetInt("ratings")
		randSeed, _ := cmd.Flags().GetInt64("rand-seed")
		if books == 0 {
			books = cfg.Seed.Books
		}
		if ratings == 0 {
			ratings = cfg.Seed.Ratings
		}
		if randSeed == 0 {
			randSeed = cfg.Seed.Seed
		}

		result, err := seed.New(s, storeLogger()).Run(cmd.Context(), seed.Params{
			Books:     books,
			Ratings:   ratings,
			Readers:   cfg.Seed.Readers,
			VectorDim: cfg.Database.Dimensions,
			Seed:      randSeed,
		})
		if err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}

		logger.Info().Int("books", result.Books).Int("ratings", result.Ratings).Msg("store seeded")
		fmt.Printf("Seeded %d books and %d ratings into %s\n", result.Books, result.Ratings, cfg.Database.Path)
		return nil
	},
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark the recommendation query under both cap policies",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		s, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		bookID, _ := cmd.Flags().GetInt64("book")
		if bookID == 0 {
			bookID, err = pickReferenceBook(cmd.Context(), s)
			if err != nil {
				return err
			}
		}

		engine := recommend.New(s, storeLogger())
		report, err := bench.New(engine, storeLogger()).Run(cmd.Context(), bench.Options{
			BookID: bookID,
			Runs:   cfg.Bench.Runs,
			Limit:  cfg.Bench.Limit,
			Delay:  time.Duration(cfg.Bench.DelayMS) * time.Millisecond,
		})
		if err != nil {
			return fmt.Errorf("benchmark failed: %w", err)
		}

		fmt.Print(report.Format())
		return nil
	},
}

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List stored books",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		s, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		books, err := s.Books(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list books: %w", err)
		}
		for _, b := range books {
			fmt.Printf("%6d  %s\n", b.ID, b.Title)
		}
		fmt.Printf("%d books\n", len(books))
		return nil
	},
}

// loadConfig builds the effective configuration and the application logger,
// applying the global flag overrides.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()

	return cfg, logger, nil
}

// storeLogger returns the keyval logger injected into the store-facing
// components.
func storeLogger() store.Logger {
	level := store.LevelInfo
	if verbose {
		level = store.LevelDebug
	}
	return store.NewLogger(os.Stderr, level)
}

func openStore(cfg *config.Config) (*store.Store, error) {
	storeCfg := store.DefaultConfig(cfg.Database.Path)
	storeCfg.VectorDim = cfg.Database.Dimensions
	storeCfg.Logger = storeLogger()

	s, err := store.NewWithConfig(storeCfg)
	if err != nil {
		return nil, err
	}
	if err := s.Init(context.Background()); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// pickReferenceBook returns the first book that has an embedding.
func pickReferenceBook(ctx context.Context, s *store.Store) (int64, error) {
	books, err := s.Books(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list books: %w", err)
	}
	for _, b := range books {
		if _, err := s.Embedding(ctx, b.ID); err == nil {
			return b.ID, nil
		} else if !errors.Is(err, store.ErrNoEmbedding) {
			return 0, err
		}
	}
	return 0, fmt.Errorf("no book with an embedding found; run seed first")
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database file path (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	seedCmd.Flags().Int("books", 0, "Number of books to generate (0 uses config)")
	seedCmd.Flags().Int("ratings", 0, "Number of ratings to generate (0 uses config)")
	seedCmd.Flags().Int64("rand-seed", 0, "Generator seed (0 uses config)")

	benchCmd.Flags().Int64("book", 0, "Reference book id (0 picks the first embedded book)")

	rootCmd.AddCommand(
		serveCmd,
		seedCmd,
		benchCmd,
		booksCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
