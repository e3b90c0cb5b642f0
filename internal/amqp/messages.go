package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangedMessage announces that a mutation was applied and a new
// snapshot revision persisted. It carries only the revision and light
// counts; consumers fetch the snapshot itself from the store.
type LedgerChangedMessage struct {
	Revision     uint64    `json:"revision"`
	Op           string    `json:"op"`
	Transactions int       `json:"transactions"`
	Accounts     int       `json:"accounts"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage creates a change event for the given revision.
func NewLedgerChangedMessage(revision uint64, op string, transactions, accounts int) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Revision:     revision,
		Op:           op,
		Transactions: transactions,
		Accounts:     accounts,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON creates a message from JSON bytes
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
