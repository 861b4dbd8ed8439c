// Package ledger owns the authoritative in-memory copy of the currently
// loaded month and exposes the CRUD and aggregation operations the
// presentation layer depends on. Every mutation round-trips through the
// document store before it is considered complete.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vedant6800/ledgerly/internal/core"
	"github.com/Vedant6800/ledgerly/internal/events"
	"github.com/Vedant6800/ledgerly/internal/store"
)

var (
	ErrNotLoaded           = errors.New("month not loaded")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// TransactionInput carries the caller-supplied fields of a new transaction.
type TransactionInput struct {
	Date        core.Date
	Description string
	Amount      core.Money
}

// TransactionUpdate carries the changeable fields of an update. Nil fields
// keep their current value. Category is not changeable.
type TransactionUpdate struct {
	Date        *core.Date
	Description *string
	Amount      *core.Money
}

// Manager serializes all operations on the loaded month, so overlapping
// callers cannot interleave a mutation with its persist.
type Manager struct {
	mu     sync.Mutex
	store  store.DocumentStore
	events *events.Client

	loaded bool
	year   int
	month  time.Month
	doc    core.LedgerDocument
}

func New(documentStore store.DocumentStore, eventsClient *events.Client) *Manager {
	return &Manager{
		store:  documentStore,
		events: eventsClient,
	}
}

// LoadMonth fetches the month's document and replaces the in-memory state.
// Reloading discards any state held for a previously loaded month; the
// remote document is the source of truth.
func (m *Manager) LoadMonth(ctx context.Context, year int, month time.Month) error {
	doc, err := m.store.FetchDocument(ctx, year, month)
	if err != nil {
		return fmt.Errorf("load month %s: %w", store.MonthKey(year, month), err)
	}
	doc.Normalize()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = true
	m.year = year
	m.month = month
	m.doc = doc

	slog.InfoContext(ctx, "Month loaded",
		"month", store.MonthKey(year, month),
		"income", len(doc.Income),
		"expenses", len(doc.Expenses))
	return nil
}

// Loaded reports which month is currently held, if any.
func (m *Manager) Loaded() (int, time.Month, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.year, m.month, m.loaded
}

// AddTransaction validates the input, assigns a fresh id, appends the
// transaction to the list for its category and persists the document.
// Validation failures are rejected before any remote call.
func (m *Manager) AddTransaction(ctx context.Context, input TransactionInput, category core.Category) (core.Transaction, error) {
	if err := category.Validate(); err != nil {
		return core.Transaction{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return core.Transaction{}, ErrNotLoaded
	}

	t := core.Transaction{
		ID:          uuid.NewString(),
		Date:        input.Date,
		Description: input.Description,
		Amount:      input.Amount,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if !t.Date.In(m.year, m.month) {
		return core.Transaction{}, core.ErrDateOutsideMonth
	}

	staged := m.doc.Clone()
	switch category {
	case core.Income:
		staged.Income = append(staged.Income, t)
	case core.Expense:
		staged.Expenses = append(staged.Expenses, t)
	}

	if err := m.persist(ctx, staged); err != nil {
		return core.Transaction{}, err
	}

	m.publishEvent(ctx, events.OpCreated, t.ID)
	return t, nil
}

// UpdateTransaction replaces the matched fields of the transaction with the
// given id, preserving its category and list position, then persists.
func (m *Manager) UpdateTransaction(ctx context.Context, id string, update TransactionUpdate) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return core.Transaction{}, ErrNotLoaded
	}

	staged := m.doc.Clone()
	target := locate(&staged, id)
	if target == nil {
		return core.Transaction{}, fmt.Errorf("update %s: %w", id, ErrTransactionNotFound)
	}

	if update.Date != nil {
		target.Date = *update.Date
	}
	if update.Description != nil {
		target.Description = *update.Description
	}
	if update.Amount != nil {
		target.Amount = *update.Amount
	}

	if err := target.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if !target.Date.In(m.year, m.month) {
		return core.Transaction{}, core.ErrDateOutsideMonth
	}

	if err := m.persist(ctx, staged); err != nil {
		return core.Transaction{}, err
	}

	m.publishEvent(ctx, events.OpUpdated, id)
	return *target, nil
}

// DeleteTransaction removes the transaction with the given id from its list
// and persists the document without it.
func (m *Manager) DeleteTransaction(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return ErrNotLoaded
	}

	staged := m.doc.Clone()
	removed := false
	staged.Income, removed = remove(staged.Income, id)
	if !removed {
		staged.Expenses, removed = remove(staged.Expenses, id)
	}
	if !removed {
		return fmt.Errorf("delete %s: %w", id, ErrTransactionNotFound)
	}

	if err := m.persist(ctx, staged); err != nil {
		return err
	}

	m.publishEvent(ctx, events.OpDeleted, id)
	return nil
}

// FindTransaction returns the transaction with the given id and its
// category. Pure read, no persistence side effect.
func (m *Manager) FindTransaction(id string) (core.Transaction, core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return core.Transaction{}, "", ErrNotLoaded
	}
	t, category, ok := m.doc.Find(id)
	if !ok {
		return core.Transaction{}, "", fmt.Errorf("find %s: %w", id, ErrTransactionNotFound)
	}
	return t, category, nil
}

// Summary computes the monthly totals for the currently loaded month.
func (m *Manager) Summary(year int, month time.Month) (core.MonthlySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded || m.year != year || m.month != month {
		return core.MonthlySummary{}, ErrNotLoaded
	}
	return m.doc.Summary(), nil
}

// Transactions returns the merged display sequence for the currently loaded
// month, ordered by date ascending with insertion order as tie-break.
func (m *Manager) Transactions(year int, month time.Month) ([]core.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded || m.year != year || m.month != month {
		return nil, ErrNotLoaded
	}
	return m.doc.Entries(), nil
}

// persist writes the staged document and commits it to memory only on
// success, so a failed round trip leaves the in-memory state unchanged.
// Callers hold the lock.
func (m *Manager) persist(ctx context.Context, staged core.LedgerDocument) error {
	if err := m.store.SaveDocument(ctx, m.year, m.month, staged); err != nil {
		return fmt.Errorf("persist month %s: %w", store.MonthKey(m.year, m.month), err)
	}
	m.doc = staged
	return nil
}

// publishEvent emits a ledger change notification. Best effort: failures
// are logged and never fail the mutation that triggered them.
func (m *Manager) publishEvent(ctx context.Context, op, transactionID string) {
	if m.events == nil {
		return
	}
	event := events.NewLedgerEvent(op, m.year, m.month, transactionID)
	if err := m.events.PublishLedgerEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"error", err,
			"op", op,
			"transaction_id", transactionID)
	}
}

func locate(doc *core.LedgerDocument, id string) *core.Transaction {
	for i := range doc.Income {
		if doc.Income[i].ID == id {
			return &doc.Income[i]
		}
	}
	for i := range doc.Expenses {
		if doc.Expenses[i].ID == id {
			return &doc.Expenses[i]
		}
	}
	return nil
}

func remove(list []core.Transaction, id string) ([]core.Transaction, bool) {
	for i := range list {
		if list[i].ID == id {
			return append(list[:i:i], list[i+1:]...), true
		}
	}
	return list, false
}
