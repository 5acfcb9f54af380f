package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"finbot/internal/core"
)

var ErrInvalidMessage = errors.New("invalid message")

// TransactionAppendedMessage announces a row written to a ledger. It carries
// the stored record itself so consumers never read back from the source store.
type TransactionAppendedMessage struct {
	ID     uuid.UUID `json:"id"`
	Target string    `json:"target"`
	Title  string    `json:"title"`
	Record [4]string `json:"record"`
	RowRef string    `json:"row_ref,omitempty"`
	// CorrelationID is the request ID of the command that caused the append.
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionAppendedMessage(target, title string, tx core.Transaction, rowRef string) *TransactionAppendedMessage {
	msg := &TransactionAppendedMessage{
		ID:        uuid.New(),
		Target:    target,
		Title:     title,
		RowRef:    rowRef,
		Timestamp: time.Now(),
	}
	copy(msg.Record[:], tx.Record())
	return msg
}

// Transaction rebuilds the appended transaction from the record.
func (m *TransactionAppendedMessage) Transaction() (core.Transaction, error) {
	return core.ParseRecord(m.Record[:])
}

// ToJSON converts the message to JSON bytes
func (m *TransactionAppendedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionAppendedMessageFromJSON decodes and checks a message body.
func TransactionAppendedMessageFromJSON(data []byte) (*TransactionAppendedMessage, error) {
	var msg TransactionAppendedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	switch {
	case msg.ID == uuid.Nil:
		return nil, fmt.Errorf("%w: missing id", ErrInvalidMessage)
	case msg.Target == "":
		return nil, fmt.Errorf("%w: missing target", ErrInvalidMessage)
	case msg.Title == "":
		return nil, fmt.Errorf("%w: missing title", ErrInvalidMessage)
	}
	return &msg, nil
}
