package events

import "time"

// Event types
const (
	TransactionsSeeded = "transactions.seeded"
)

// Stream names
const (
	TransactionEventsStream = "transaction.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Transaction events
type TransactionsSeededEvent struct {
	BatchID     string `json:"batchId"`
	Source      string `json:"source"`
	Count       int    `json:"count"`
	RequestedBy string `json:"requestedBy,omitempty"`
}
