package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Vedant6800/ledgerly/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFetchMissingMonthIsEmpty(t *testing.T) {
	s := newTestStore(t)
	doc, err := s.FetchDocument(context.Background(), 2024, time.January)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(doc.Income) != 0 || len(doc.Expenses) != 0 {
		t.Fatalf("expected empty document, got %+v", doc)
	}
}

func TestSaveFetchAndOverwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := core.NewLedgerDocument()
	doc.Income = append(doc.Income, core.Transaction{
		ID:          "a",
		Date:        core.NewDate(2024, time.January, 5),
		Description: "Salary",
		Amount:      core.Money{Cents: 5000000},
	})
	if err := s.SaveDocument(ctx, 2024, time.January, doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.FetchDocument(ctx, 2024, time.January)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got.Income) != 1 || got.Income[0].Amount.Cents != 5000000 {
		t.Fatalf("unexpected document: %+v", got)
	}

	// Whole-document overwrite, last write wins.
	doc.Expenses = append(doc.Expenses, core.Transaction{
		ID:          "b",
		Date:        core.NewDate(2024, time.January, 10),
		Description: "Rent",
		Amount:      core.Money{Cents: 1500000},
	})
	if err := s.SaveDocument(ctx, 2024, time.January, doc); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err = s.FetchDocument(ctx, 2024, time.January)
	if err != nil {
		t.Fatalf("fetch after overwrite: %v", err)
	}
	if len(got.Income) != 1 || len(got.Expenses) != 1 {
		t.Fatalf("unexpected document after overwrite: %+v", got)
	}
}
