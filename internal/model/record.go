package model

import (
	"time"

	"gorm.io/gorm"
)

// State is the processing state of a single inbound request message.
type State string

const (
	StateReceived           State = "RECEIVED"
	StateParsed             State = "PARSED"
	StateParseFailed        State = "PARSE_FAILED"
	StateAuthorized         State = "AUTHORIZED"
	StateDenied             State = "DENIED"
	StateProvisioned        State = "PROVISIONED"
	StateProvisioningFailed State = "PROVISIONING_FAILED"
	StateNotified           State = "NOTIFIED"
	StateFinalized          State = "FINALIZED"
)

// IsTerminal reports whether no further pipeline action may occur for a
// message in this state.
func (s State) IsTerminal() bool {
	switch s {
	case StateParseFailed, StateDenied, StateProvisioningFailed, StateFinalized:
		return true
	}
	return false
}

// ProcessingRecord tracks the outcome of one message across runs. The unique
// message_id index is what makes replayed runs idempotent.
type ProcessingRecord struct {
	ID            uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID     string         `json:"message_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	Sender        string         `json:"sender" gorm:"type:varchar(255)"`
	Username      string         `json:"username" gorm:"type:varchar(255)"`
	State         State          `json:"state" gorm:"type:varchar(50);not null"`
	Detail        string         `json:"detail" gorm:"type:text"`
	NotifyPending bool           `json:"notify_pending"`
	ReceivedAt    time.Time      `json:"received_at"`
	DecidedAt     *time.Time     `json:"decided_at"`
	ProvisionedAt *time.Time     `json:"provisioned_at"`
	FinalizedAt   *time.Time     `json:"finalized_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for ProcessingRecord
func (ProcessingRecord) TableName() string {
	return "processing_records"
}
