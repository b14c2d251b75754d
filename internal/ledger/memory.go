package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"account-provisioner-go/internal/model"
)

// MemoryLedger keeps records in memory. It enforces the same state machine
// as the database ledger but is not durable across restarts; it exists for
// tests and local development.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[string]*model.ProcessingRecord
	nextID  uint
}

// NewMemoryLedger creates an in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[string]*model.ProcessingRecord), nextID: 1}
}

// Get returns the record for a message, or ErrNotFound.
func (l *MemoryLedger) Get(ctx context.Context, messageID string) (*model.ProcessingRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[messageID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *record
	return &copied, nil
}

// Begin creates the RECEIVED record for a message if none exists.
func (l *MemoryLedger) Begin(ctx context.Context, msg model.Message) (*model.ProcessingRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if record, ok := l.records[msg.ID]; ok {
		copied := *record
		return &copied, nil
	}

	now := time.Now()
	record := &model.ProcessingRecord{
		ID:         l.nextID,
		MessageID:  msg.ID,
		Sender:     msg.From,
		State:      model.StateReceived,
		ReceivedAt: msg.ReceivedAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	l.nextID++
	l.records[msg.ID] = record

	copied := *record
	return &copied, nil
}

// Transition advances the record to newState after validating the move.
func (l *MemoryLedger) Transition(ctx context.Context, messageID string, newState model.State, detail string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[messageID]
	if !ok {
		return ErrNotFound
	}

	if !canTransition(record.State, newState) {
		return &InvalidTransitionError{MessageID: messageID, From: record.State, To: newState}
	}

	now := time.Now()
	record.State = newState
	record.Detail = detail
	record.UpdatedAt = now

	switch newState {
	case model.StateAuthorized, model.StateDenied, model.StateParseFailed:
		record.DecidedAt = &now
	case model.StateProvisioned, model.StateProvisioningFailed:
		record.ProvisionedAt = &now
	case model.StateFinalized:
		record.FinalizedAt = &now
	}
	return nil
}

// SetUsername records the requested username once parsing succeeds.
func (l *MemoryLedger) SetUsername(ctx context.Context, messageID, username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[messageID]
	if !ok {
		return ErrNotFound
	}
	record.Username = username
	return nil
}

// MarkNotifyPending flags a record whose notification needs follow-up.
func (l *MemoryLedger) MarkNotifyPending(ctx context.Context, messageID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[messageID]
	if !ok {
		return ErrNotFound
	}
	record.NotifyPending = true
	return nil
}

// List returns records ordered newest-first, with the total count.
func (l *MemoryLedger) List(ctx context.Context, offset, limit int) ([]model.ProcessingRecord, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all := make([]model.ProcessingRecord, 0, len(l.records))
	for _, record := range l.records {
		all = append(all, *record)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return []model.ProcessingRecord{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}
