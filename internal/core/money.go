// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents internally. On the wire they appear as
// plain JSON numbers (50000, 123.45) and must round-trip without loss, so
// conversion in both directions goes through decimal arithmetic rather than
// floating point.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a positive amount in cents for transactions. Derived values such
// as a monthly balance may hold negative cents.
type Money struct {
	Cents int64
}

var centsFactor = decimal.NewFromInt(100)

// ParseDecimalToCents converts a decimal string to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators; anything
// beyond two decimal places is rounded half-up. Only strictly positive
// amounts are accepted.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(centsFactor).Round(0)
	if !cents.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	v := cents.IntPart()
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the amount as a decimal value in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount in major units, e.g. "123.45" or "50000".
func (m Money) String() string {
	return m.Decimal().String()
}

// MarshalJSON implements the json.Marshaler interface.
// The amount is written as a plain JSON number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
// Accepts a JSON number (or a quoted number) in major units.
func (m *Money) UnmarshalJSON(data []byte) error {
	value := strings.Trim(string(data), `"`)
	if value == "" || value == "null" {
		return nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return ErrInvalidAmount
	}
	cents := d.Mul(centsFactor).Round(0)
	if !cents.BigInt().IsInt64() {
		return ErrInvalidAmount
	}
	m.Cents = cents.IntPart()
	return nil
}
