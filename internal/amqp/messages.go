package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Op is the kind of change an ExpenseEvent reports.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

var ErrUnknownOp = errors.New("unknown expense event op")

// ExpenseEvent announces a change to one expense. Consumers re-read the store;
// the event only says which expense changed and when it happened. Updates also
// carry the date the expense had before the change.
type ExpenseEvent struct {
	ID                 int64      `json:"id"`
	Op                 Op         `json:"op"`
	OccurredAt         time.Time  `json:"occurred_at"`
	PreviousOccurredAt *time.Time `json:"previous_occurred_at,omitempty"`
	Timestamp          time.Time  `json:"timestamp"`
}

func NewExpenseEvent(id int64, op Op, occurredAt time.Time) *ExpenseEvent {
	return &ExpenseEvent{
		ID:         id,
		Op:         op,
		OccurredAt: occurredAt,
		Timestamp:  time.Now(),
	}
}

// NewExpenseUpdatedEvent is an OpUpdated event for an expense moved from
// previous to occurredAt.
func NewExpenseUpdatedEvent(id int64, occurredAt, previous time.Time) *ExpenseEvent {
	ev := NewExpenseEvent(id, OpUpdated, occurredAt)
	ev.PreviousOccurredAt = &previous
	return ev
}

func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes an event and rejects unknown ops.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Op {
	case OpCreated, OpUpdated, OpDeleted:
		return &msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, msg.Op)
	}
}
