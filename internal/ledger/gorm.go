package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"account-provisioner-go/internal/model"
)

// GormLedger stores processing records in the database. State only moves
// forward; rows are never deleted by the pipeline.
type GormLedger struct {
	db *gorm.DB
}

// NewGormLedger creates a database-backed ledger
func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

// Get returns the record for a message, or ErrNotFound.
func (l *GormLedger) Get(ctx context.Context, messageID string) (*model.ProcessingRecord, error) {
	var record model.ProcessingRecord
	result := l.db.WithContext(ctx).Where("message_id = ?", messageID).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load processing record: %w", result.Error)
	}
	return &record, nil
}

// Begin creates the RECEIVED record for a message if none exists.
func (l *GormLedger) Begin(ctx context.Context, msg model.Message) (*model.ProcessingRecord, error) {
	record, err := l.Get(ctx, msg.ID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	record = &model.ProcessingRecord{
		MessageID:  msg.ID,
		Sender:     msg.From,
		State:      model.StateReceived,
		ReceivedAt: msg.ReceivedAt,
	}

	result := l.db.WithContext(ctx).Create(record)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create processing record: %w", result.Error)
	}
	return record, nil
}

// Transition advances the record to newState after validating the move.
func (l *GormLedger) Transition(ctx context.Context, messageID string, newState model.State, detail string) error {
	record, err := l.Get(ctx, messageID)
	if err != nil {
		return err
	}

	if !canTransition(record.State, newState) {
		return &InvalidTransitionError{MessageID: messageID, From: record.State, To: newState}
	}

	now := time.Now()
	updates := map[string]interface{}{
		"state":  newState,
		"detail": detail,
	}

	switch newState {
	case model.StateAuthorized, model.StateDenied, model.StateParseFailed:
		updates["decided_at"] = now
	case model.StateProvisioned, model.StateProvisioningFailed:
		updates["provisioned_at"] = now
	case model.StateFinalized:
		updates["finalized_at"] = now
	}

	result := l.db.WithContext(ctx).Model(&model.ProcessingRecord{}).
		Where("message_id = ? AND state = ?", messageID, record.State).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to record transition: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Another run advanced this record first.
		return &InvalidTransitionError{MessageID: messageID, From: record.State, To: newState}
	}
	return nil
}

// SetUsername records the requested username once parsing succeeds.
func (l *GormLedger) SetUsername(ctx context.Context, messageID, username string) error {
	result := l.db.WithContext(ctx).Model(&model.ProcessingRecord{}).
		Where("message_id = ?", messageID).
		Update("username", username)
	if result.Error != nil {
		return fmt.Errorf("failed to record username: %w", result.Error)
	}
	return nil
}

// MarkNotifyPending flags a record whose notification needs follow-up.
func (l *GormLedger) MarkNotifyPending(ctx context.Context, messageID string) error {
	result := l.db.WithContext(ctx).Model(&model.ProcessingRecord{}).
		Where("message_id = ?", messageID).
		Update("notify_pending", true)
	if result.Error != nil {
		return fmt.Errorf("failed to flag pending notification: %w", result.Error)
	}
	return nil
}

// List returns records ordered newest-first, with the total count.
func (l *GormLedger) List(ctx context.Context, offset, limit int) ([]model.ProcessingRecord, int64, error) {
	var total int64
	if err := l.db.WithContext(ctx).Model(&model.ProcessingRecord{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	var records []model.ProcessingRecord
	if err := l.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch records: %w", err)
	}
	return records, total, nil
}
