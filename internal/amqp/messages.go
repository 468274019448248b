package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried by ledger event messages.
const (
	EventRecorded = "recorded"
	EventUpdated  = "updated"
	EventDeleted  = "deleted"
)

// LedgerEventMessage is the lightweight notification published after a
// committed ledger mutation. It carries IDs only; the consumer re-reads the
// current rows, so a stale message can never overwrite newer data.
type LedgerEventMessage struct {
	TransactionID int64     `json:"transaction_id"`
	AccountID     int64     `json:"account_id,omitempty"`
	PeriodID      int64     `json:"period_id,omitempty"`
	Kind          string    `json:"kind"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(kind string, transactionID, accountID, periodID int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		TransactionID: transactionID,
		AccountID:     accountID,
		PeriodID:      periodID,
		Kind:          kind,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
