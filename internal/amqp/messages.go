package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// LedgerSyncMessage asks the ledger worker to mirror one ledger entry. It
// carries only the id; the worker reads the entry from storage.
type LedgerSyncMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerSyncMessage(entryID, userID string) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		ID:        entryID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerSyncMessageFromJSON decodes a message and rejects one without an id.
func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errors.New("ledger sync message without id")
	}
	return &msg, nil
}
