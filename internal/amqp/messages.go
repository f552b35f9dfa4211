package amqp

import (
	"encoding/json"
	"time"
)

// LedgerSyncMessage announces a new ledger revision. It carries no rows: the
// worker reads the current ledger from the database.
type LedgerSyncMessage struct {
	Revision  int64     `json:"revision"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerSyncMessage(revision int64, op string) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		Revision:  revision,
		Op:        op,
		Timestamp: time.Now(),
	}
}

func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
