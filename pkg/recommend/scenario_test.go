package recommend

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shelfmate/bookrec/pkg/store"
)

// scenarioStore is a real SQLite store seeded with the reference scenario:
// A and B share a unit vector (distance 0), B carries five ratings averaging
// 4.2, C is orthogonal to A (distance 1) with no ratings.
type scenarioStore struct {
	store   *store.Store
	a, b, c int64
}

func newScenarioStore(t *testing.T) *scenarioStore {
	t.Helper()

	dbPath := fmt.Sprintf("/tmp/test_recommend_%d.db", time.Now().UnixNano())
	t.Cleanup(func() { _ = os.Remove(dbPath) })

	config := store.DefaultConfig(dbPath)
	config.VectorDim = 3

	s, err := store.NewWithConfig(config)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("Failed to init store: %v", err)
	}

	sc := &scenarioStore{store: s}
	if sc.a, err = s.UpsertBook(ctx, "Book A", []float32{1, 0, 0}); err != nil {
		t.Fatalf("UpsertBook A failed: %v", err)
	}
	if sc.b, err = s.UpsertBook(ctx, "Book B", []float32{1, 0, 0}); err != nil {
		t.Fatalf("UpsertBook B failed: %v", err)
	}
	if sc.c, err = s.UpsertBook(ctx, "Book C", []float32{0, 1, 0}); err != nil {
		t.Fatalf("UpsertBook C failed: %v", err)
	}

	now := time.Now()
	for i, r := range []int{4, 4, 4, 4, 5} { // average 4.2
		if err := s.InsertRating(ctx, "reader-1", sc.b, r, now.Add(-time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("InsertRating failed: %v", err)
		}
	}
	return sc
}
