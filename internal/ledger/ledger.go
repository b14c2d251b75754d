package ledger

import (
	"context"
	"errors"
	"fmt"

	"account-provisioner-go/internal/model"
)

// ErrNotFound is returned by Get when no record exists for the message.
var ErrNotFound = errors.New("processing record not found")

// Ledger is the durable per-message record of pipeline progress. It is the
// idempotency source of truth: once a record reaches a terminal state the
// message is never reprocessed.
type Ledger interface {
	// Get returns the record for a message, or ErrNotFound.
	Get(ctx context.Context, messageID string) (*model.ProcessingRecord, error)
	// Begin creates the RECEIVED record for a message if none exists and
	// returns the current record either way.
	Begin(ctx context.Context, msg model.Message) (*model.ProcessingRecord, error)
	// Transition advances the record to newState, stamping the transition
	// time. Illegal transitions are rejected.
	Transition(ctx context.Context, messageID string, newState model.State, detail string) error
	// SetUsername records the requested username once parsing succeeds.
	SetUsername(ctx context.Context, messageID, username string) error
	// MarkNotifyPending flags a record whose outcome notification failed and
	// needs manual follow-up.
	MarkNotifyPending(ctx context.Context, messageID string) error
	// List returns records ordered newest-first, with the total count.
	List(ctx context.Context, offset, limit int) ([]model.ProcessingRecord, int64, error)
}

// InvalidTransitionError reports an attempted state change the machine does
// not permit.
type InvalidTransitionError struct {
	MessageID string
	From      model.State
	To        model.State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s for message %s", e.From, e.To, e.MessageID)
}

// transitions is the per-message state machine. Terminal states have no
// outgoing edges.
var transitions = map[model.State][]model.State{
	model.StateReceived:    {model.StateParsed, model.StateParseFailed},
	model.StateParsed:      {model.StateAuthorized, model.StateDenied},
	model.StateAuthorized:  {model.StateProvisioned, model.StateProvisioningFailed},
	model.StateProvisioned: {model.StateNotified},
	model.StateNotified:    {model.StateFinalized},
}

func canTransition(from, to model.State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
