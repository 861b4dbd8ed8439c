// Package worker mirrors ledger months from the primary document store
// into a local SQLite copy, driven by ledger change events.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vedant6800/ledgerly/internal/core"
	"github.com/Vedant6800/ledgerly/internal/events"
	"github.com/Vedant6800/ledgerly/internal/store"
)

// MirrorWorker copies whole month documents. Events only tell it which
// month changed; the source store stays the single source of truth.
type MirrorWorker struct {
	source store.DocumentStore
	dest   store.DocumentStore
}

func NewMirrorWorker(source, dest store.DocumentStore) *MirrorWorker {
	return &MirrorWorker{
		source: source,
		dest:   dest,
	}
}

// HandleLedgerEvent re-fetches the month named by the event and writes it
// to the mirror. Returning an error requeues the event.
func (w *MirrorWorker) HandleLedgerEvent(ctx context.Context, event *events.LedgerEvent) error {
	month := time.Month(event.Month)
	key := store.MonthKey(event.Year, month)

	mirrorCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	doc, err := w.source.FetchDocument(mirrorCtx, event.Year, month)
	if err != nil {
		return fmt.Errorf("mirror fetch %s: %w", key, err)
	}

	if err := w.dest.SaveDocument(mirrorCtx, event.Year, month, doc); err != nil {
		return fmt.Errorf("mirror save %s: %w", key, err)
	}

	slog.InfoContext(ctx, "Month mirrored",
		"month", key,
		"op", event.Op,
		"transaction_id", event.TransactionID,
		"income", len(doc.Income),
		"expenses", len(doc.Expenses))
	return nil
}

// MirrorMonth copies a single month outside of event handling, used for
// startup catch-up of the current month.
func (w *MirrorWorker) MirrorMonth(ctx context.Context, year int, month time.Month) (core.LedgerDocument, error) {
	doc, err := w.source.FetchDocument(ctx, year, month)
	if err != nil {
		return core.LedgerDocument{}, fmt.Errorf("fetch %s: %w", store.MonthKey(year, month), err)
	}
	if err := w.dest.SaveDocument(ctx, year, month, doc); err != nil {
		return core.LedgerDocument{}, fmt.Errorf("save %s: %w", store.MonthKey(year, month), err)
	}
	return doc, nil
}
