// Package store implements the SQLite-backed book and rating store,
// including the similarity-join query the recommendation engine runs on.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// DefaultVectorDim is the embedding dimensionality used when none is
// configured. It matches the dimensionality the seeder generates.
const DefaultVectorDim = 1536

// Config holds store configuration.
type Config struct {
	// Path is the SQLite database file path.
	Path string

	// VectorDim is the expected embedding dimensionality. Embeddings of a
	// different length are rejected on write. Zero means DefaultVectorDim.
	VectorDim int

	// Logger receives store diagnostics. Nil means no logging.
	Logger Logger
}

// DefaultConfig returns a Config with default values for the given path.
func DefaultConfig(path string) Config {
	return Config{
		Path:      path,
		VectorDim: DefaultVectorDim,
	}
}

// Store provides read and seed access to books and ratings over a single
// SQLite database. One Store per logical session; the embedded *sql.DB pool
// makes concurrent sessions safe at the connection boundary.
type Store struct {
	db     *sql.DB
	config Config
	logger Logger
	mu     sync.RWMutex
	closed bool
}

// Open creates a store for the given database path with default settings.
func Open(path string) (*Store, error) {
	return NewWithConfig(DefaultConfig(path))
}

// NewWithConfig creates a store with custom configuration.
func NewWithConfig(config Config) (*Store, error) {
	if config.Path == "" {
		return nil, wrapError("init", fmt.Errorf("database path cannot be empty"))
	}
	if config.VectorDim < 0 {
		return nil, wrapError("init", fmt.Errorf("vector dimension must be non-negative"))
	}
	if config.VectorDim == 0 {
		config.VectorDim = DefaultVectorDim
	}
	if config.Logger == nil {
		config.Logger = NopLogger()
	}

	return &Store{
		config: config,
		logger: config.Logger.With("component", "store"),
	}, nil
}

// Init opens the database connection and creates the schema.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return wrapError("init", ErrStoreClosed)
	}

	// _journal_mode=WAL: better concurrency for the dashboard + bench case
	// _busy_timeout=5000: wait up to 5s for a lock instead of failing
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", s.config.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return wrapError("init", fmt.Errorf("failed to open database: %w", err))
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(2 * time.Hour)

	s.db = db

	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		return wrapError("init", fmt.Errorf("failed to enable foreign keys: %w", err))
	}

	if err := s.createTables(ctx); err != nil {
		return wrapError("init", err)
	}

	s.logger.Debug("store initialized", "path", s.config.Path, "dim", s.config.VectorDim)
	return nil
}

// createTables creates the necessary database tables.
func (s *Store) createTables(ctx context.Context) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		embedding BLOB,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS ratings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		book_id INTEGER NOT NULL,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		ts DATETIME NOT NULL,
		FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_ratings_book_id ON ratings(book_id);
	CREATE INDEX IF NOT EXISTS idx_ratings_ts ON ratings(ts);
	CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
	`

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// VectorDim returns the configured embedding dimensionality.
func (s *Store) VectorDim() int {
	return s.config.VectorDim
}

// DB exposes the underlying database handle for raw queries. Regular
// callers should stick to the typed methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection. The store cannot be reused after.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return wrapError("close", err)
		}
	}
	return nil
}

// isClosed reports whether Close has been called. Callers must hold mu.
func (s *Store) isClosed() bool {
	return s.closed
}
