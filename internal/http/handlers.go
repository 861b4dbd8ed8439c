package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Vedant6800/ledgerly/internal/core"
	"github.com/Vedant6800/ledgerly/internal/ledger"
	"github.com/Vedant6800/ledgerly/internal/store"
)

type monthResponse struct {
	Month        string              `json:"month"`
	Transactions []core.Entry        `json:"transactions"`
	Summary      core.MonthlySummary `json:"summary"`
}

type createTransactionRequest struct {
	Date        core.Date  `json:"date"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
}

type updateTransactionRequest struct {
	Date        *core.Date  `json:"date"`
	Description *string     `json:"description"`
	Amount      *core.Money `json:"amount"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto HTTP status codes. Malformed request
// bodies are handled separately as 400s at decode time.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrNotLoaded):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrDateOutsideMonth):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrAuth), errors.Is(err, store.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "method", r.Method, "url", r.URL.Path)
	}
	writeError(w, status, err.Error())
}

func parseMonthPath(r *http.Request) (int, time.Month, error) {
	year, month, err := core.ParseMonth(r.PathValue("month"))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q: expected YYYY-MM", r.PathValue("month"))
	}
	return year, month, nil
}

// handleGetMonth loads the requested month from the backing store and
// returns its transactions and summary. A month that has never been saved
// comes back empty.
func (s *Server) handleGetMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.LoadMonth(r.Context(), year, month); err != nil {
		writeDomainError(w, r, err)
		return
	}

	entries, err := s.ledger.Transactions(year, month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	summary, err := s.ledger.Summary(year, month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	key := store.MonthKey(year, month)
	s.summaryCache.Set(key, summary)

	writeJSON(w, http.StatusOK, monthResponse{
		Month:        key,
		Transactions: entries,
		Summary:      summary,
	})
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The cache only speaks for the currently loaded month. Entries for
	// previously loaded months linger until eviction and must not be served.
	loadedYear, loadedMonth, loaded := s.ledger.Loaded()
	if !loaded || loadedYear != year || loadedMonth != month {
		writeDomainError(w, r, ledger.ErrNotLoaded)
		return
	}

	key := store.MonthKey(year, month)
	if summary, found := s.summaryCache.Get(key); found {
		slog.DebugContext(r.Context(), "Summary cache hit", "month", key)
		writeJSON(w, http.StatusOK, summary)
		return
	}

	summary, err := s.ledger.Summary(year, month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.summaryCache.Set(key, summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	loadedYear, loadedMonth, loaded := s.ledger.Loaded()
	if !loaded || loadedYear != year || loadedMonth != month {
		writeDomainError(w, r, ledger.ErrNotLoaded)
		return
	}

	category := core.Category(r.URL.Query().Get("category"))

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	t, err := s.ledger.AddTransaction(r.Context(), ledger.TransactionInput{
		Date:        req.Date,
		Description: req.Description,
		Amount:      req.Amount,
	}, category)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateSummary()
	writeJSON(w, http.StatusCreated, core.Entry{Transaction: t, Category: category})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	t, err := s.ledger.UpdateTransaction(r.Context(), id, ledger.TransactionUpdate{
		Date:        req.Date,
		Description: req.Description,
		Amount:      req.Amount,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	_, category, err := s.ledger.FindTransaction(id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateSummary()
	writeJSON(w, http.StatusOK, core.Entry{Transaction: t, Category: category})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateSummary()
	w.WriteHeader(http.StatusNoContent)
}

// invalidateSummary drops the cached summary for the currently loaded month.
func (s *Server) invalidateSummary() {
	year, month, loaded := s.ledger.Loaded()
	if !loaded {
		return
	}
	s.summaryCache.Delete(store.MonthKey(year, month))
}
