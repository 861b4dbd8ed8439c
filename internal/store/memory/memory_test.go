package memory

import (
	"context"
	"testing"
	"time"

	"github.com/Vedant6800/ledgerly/internal/core"
)

func TestFetchMissingMonthIsEmpty(t *testing.T) {
	s := New()
	doc, err := s.FetchDocument(context.Background(), 2024, time.January)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if len(doc.Income) != 0 || len(doc.Expenses) != 0 {
		t.Fatalf("expected empty document, got %+v", doc)
	}
	if doc.Income == nil || doc.Expenses == nil {
		t.Fatalf("expected non-nil lists")
	}
}

func TestSaveFetchRoundTrip(t *testing.T) {
	s := New()
	doc := core.NewLedgerDocument()
	doc.Income = append(doc.Income, core.Transaction{
		ID:          "a",
		Date:        core.NewDate(2024, time.January, 5),
		Description: "Salary",
		Amount:      core.Money{Cents: 5000000},
	})

	if err := s.SaveDocument(context.Background(), 2024, time.January, doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.FetchDocument(context.Background(), 2024, time.January)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got.Income) != 1 || got.Income[0].Description != "Salary" {
		t.Fatalf("unexpected document: %+v", got)
	}

	// Months do not bleed into each other.
	other, _ := s.FetchDocument(context.Background(), 2024, time.February)
	if len(other.Income) != 0 {
		t.Fatalf("expected empty february, got %+v", other)
	}
}

func TestStoreIsolatesCallers(t *testing.T) {
	s := New()
	doc := core.NewLedgerDocument()
	doc.Income = append(doc.Income, core.Transaction{
		ID:          "a",
		Date:        core.NewDate(2024, time.January, 5),
		Description: "Salary",
		Amount:      core.Money{Cents: 100},
	})
	_ = s.SaveDocument(context.Background(), 2024, time.January, doc)

	// Mutating the saved value or a fetched value must not change the store.
	doc.Income[0].Description = "changed"
	got, _ := s.FetchDocument(context.Background(), 2024, time.January)
	got.Income[0].Description = "also changed"

	again, _ := s.FetchDocument(context.Background(), 2024, time.January)
	if again.Income[0].Description != "Salary" {
		t.Fatalf("store state leaked: %+v", again.Income[0])
	}
}
