// Package store defines the outbound port for monthly ledger documents and
// the error kinds its adapters surface.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Vedant6800/ledgerly/internal/core"
)

var (
	// ErrAuth means the credential is missing or rejected. Fatal to all
	// operations until reconfigured.
	ErrAuth = errors.New("authentication failed")

	// ErrNetwork is a transport-level failure. Surfaced to the caller, no
	// automatic retry.
	ErrNetwork = errors.New("network failure")

	// ErrNotFound means the remote document does not exist. Reads treat it
	// as an empty document, it never reaches the caller on fetch.
	ErrNotFound = errors.New("document not found")
)

// DocumentStore reads and writes one whole ledger document per (year, month).
// Every call performs exactly one round trip, there is no batching.
type DocumentStore interface {
	// FetchDocument returns the parsed document for the month, or an empty
	// document when no remote document exists yet.
	FetchDocument(ctx context.Context, year int, month time.Month) (core.LedgerDocument, error)

	// SaveDocument serializes and overwrites the month's document.
	// Overwrite semantics are last write wins.
	SaveDocument(ctx context.Context, year int, month time.Month, doc core.LedgerDocument) error
}

// DocumentPath returns the repository path of a month's document.
func DocumentPath(year int, month time.Month) string {
	return fmt.Sprintf("data/%04d-%02d.json", year, month)
}

// MonthKey returns the canonical "YYYY-MM" key for a month.
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
