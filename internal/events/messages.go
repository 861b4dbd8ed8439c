package events

import (
	"encoding/json"
	"time"
)

const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// LedgerEvent announces that a month's document changed. Consumers re-fetch
// the document from the primary store, the event carries no transaction
// payload.
type LedgerEvent struct {
	Op            string    `json:"op"`
	Year          int       `json:"year"`
	Month         int       `json:"month"`
	TransactionID string    `json:"transactionId"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEvent(op string, year int, month time.Month, transactionID string) *LedgerEvent {
	return &LedgerEvent{
		Op:            op,
		Year:          year,
		Month:         int(month),
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON creates an event from JSON bytes.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
