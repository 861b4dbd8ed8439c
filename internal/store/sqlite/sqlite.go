// Package sqlite implements the DocumentStore over a local database, one
// row per month document. Used as the offline backend and as the mirror
// target of the event worker.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Vedant6800/ledgerly/internal/core"
	"github.com/Vedant6800/ledgerly/internal/store"
)

type Store struct {
	db *sql.DB
}

var _ store.DocumentStore = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// FetchDocument implements store.DocumentStore. A month without a row reads
// as an empty document.
func (s *Store) FetchDocument(ctx context.Context, year int, month time.Month) (core.LedgerDocument, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM month_documents WHERE year = ? AND month = ?`,
		year, int(month),
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NewLedgerDocument(), nil
	}
	if err != nil {
		return core.LedgerDocument{}, fmt.Errorf("read month document %s: %w", store.MonthKey(year, month), err)
	}

	var doc core.LedgerDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return core.LedgerDocument{}, fmt.Errorf("parse month document %s: %w", store.MonthKey(year, month), err)
	}
	doc.Normalize()
	return doc, nil
}

// SaveDocument implements store.DocumentStore with an upsert.
func (s *Store) SaveDocument(ctx context.Context, year int, month time.Month, doc core.LedgerDocument) error {
	doc.Normalize()
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("serialize month document %s: %w", store.MonthKey(year, month), err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO month_documents (year, month, body, updated_at)
         VALUES (?, ?, ?, CURRENT_TIMESTAMP)
         ON CONFLICT (year, month) DO UPDATE
             SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`,
		year, int(month), body,
	)
	if err != nil {
		return fmt.Errorf("write month document %s: %w", store.MonthKey(year, month), err)
	}

	slog.DebugContext(ctx, "Month document saved to sqlite",
		"month", store.MonthKey(year, month),
		"bytes", len(body))
	return nil
}
