package core

import "sort"

type (
	// LedgerDocument is one month's worth of transactions, exactly as it is
	// persisted: two ordered lists, income and expenses. Sign is carried by
	// list membership, every stored amount is positive.
	LedgerDocument struct {
		Income   []Transaction `json:"income"`
		Expenses []Transaction `json:"expenses"`
	}

	// Entry is a transaction tagged with its category, used for display.
	Entry struct {
		Transaction
		Category Category `json:"category"`
	}

	// MonthlySummary is derived from a document on demand, never persisted.
	MonthlySummary struct {
		TotalIncome   Money `json:"totalIncome"`
		TotalExpenses Money `json:"totalExpenses"`
		Balance       Money `json:"balance"`
	}
)

// NewLedgerDocument returns an empty document with both lists present, so
// that serialization always produces the two named arrays.
func NewLedgerDocument() LedgerDocument {
	return LedgerDocument{Income: []Transaction{}, Expenses: []Transaction{}}
}

// Normalize replaces nil lists with empty ones after deserialization.
func (d *LedgerDocument) Normalize() {
	if d.Income == nil {
		d.Income = []Transaction{}
	}
	if d.Expenses == nil {
		d.Expenses = []Transaction{}
	}
}

// Clone returns a deep copy of the document. Mutations are staged on a clone
// and committed only after the store write succeeds.
func (d LedgerDocument) Clone() LedgerDocument {
	out := LedgerDocument{
		Income:   make([]Transaction, len(d.Income)),
		Expenses: make([]Transaction, len(d.Expenses)),
	}
	copy(out.Income, d.Income)
	copy(out.Expenses, d.Expenses)
	return out
}

// Validate checks the document invariant: every transaction is valid and
// carries a positive amount.
func (d LedgerDocument) Validate() error {
	for _, t := range d.Income {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	for _, t := range d.Expenses {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Find locates a transaction by id across both lists.
func (d LedgerDocument) Find(id string) (Transaction, Category, bool) {
	for _, t := range d.Income {
		if t.ID == id {
			return t, Income, true
		}
	}
	for _, t := range d.Expenses {
		if t.ID == id {
			return t, Expense, true
		}
	}
	return Transaction{}, "", false
}

// Summary computes the monthly totals by linear summation in insertion
// order, so rounding behavior is reproducible.
func (d LedgerDocument) Summary() MonthlySummary {
	var income, expenses int64
	for _, t := range d.Income {
		income += t.Amount.Cents
	}
	for _, t := range d.Expenses {
		expenses += t.Amount.Cents
	}
	return MonthlySummary{
		TotalIncome:   Money{Cents: income},
		TotalExpenses: Money{Cents: expenses},
		Balance:       Money{Cents: income - expenses},
	}
}

// Entries merges both lists into a single display sequence, ordered by date
// ascending with insertion order as tie-break.
func (d LedgerDocument) Entries() []Entry {
	out := make([]Entry, 0, len(d.Income)+len(d.Expenses))
	for _, t := range d.Income {
		out = append(out, Entry{Transaction: t, Category: Income})
	}
	for _, t := range d.Expenses {
		out = append(out, Entry{Transaction: t, Category: Expense})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date.Time)
	})
	return out
}
