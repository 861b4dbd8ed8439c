// Package memory implements an in-process DocumentStore. It is the dev
// default and the test double for everything above the store boundary.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Vedant6800/ledgerly/internal/core"
	"github.com/Vedant6800/ledgerly/internal/store"
)

type Store struct {
	mu   sync.Mutex
	docs map[string]core.LedgerDocument
}

var _ store.DocumentStore = (*Store)(nil)

func New() *Store {
	return &Store{docs: make(map[string]core.LedgerDocument)}
}

// FetchDocument returns a copy of the stored document, or an empty document
// for a month that was never saved.
func (s *Store) FetchDocument(_ context.Context, year int, month time.Month) (core.LedgerDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[store.MonthKey(year, month)]
	if !ok {
		return core.NewLedgerDocument(), nil
	}
	return doc.Clone(), nil
}

// SaveDocument stores a copy of the document, so later mutations by the
// caller cannot reach the stored state.
func (s *Store) SaveDocument(_ context.Context, year int, month time.Month, doc core.LedgerDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[store.MonthKey(year, month)] = doc.Clone()
	return nil
}
