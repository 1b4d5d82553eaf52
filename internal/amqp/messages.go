package amqp

import (
	"encoding/json"
	"time"
)

// TransactionSyncMessage tells the sheet worker that a ledger row changed.
// It carries only the row's kind and id; the worker fetches the current row
// from the store, so a stale message can never export stale data.
type TransactionSyncMessage struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	Deleted   bool      `json:"deleted,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(kind, id string, deleted bool) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		Kind:      kind,
		ID:        id,
		Deleted:   deleted,
		Timestamp: time.Now(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
