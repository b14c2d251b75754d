package model

import "time"

// Message represents a candidate request message fetched from the mailbox.
// It is immutable once fetched; From carries the raw envelope address, never
// a display name.
type Message struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// AccountRequest is a structured account creation request parsed from
// exactly one message body.
type AccountRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Username        string `json:"username"`
	Department      string `json:"department"`
	Title           string `json:"title"`
	SourceMessageID string `json:"source_message_id"`
}

// ProvisioningStatus is the outcome of one provisioning attempt.
type ProvisioningStatus string

const (
	ProvisioningCreated       ProvisioningStatus = "CREATED"
	ProvisioningAlreadyExists ProvisioningStatus = "ALREADY_EXISTS"
	ProvisioningFailed        ProvisioningStatus = "FAILED"
)

// ProvisioningResult is what the directory service produced for a request.
type ProvisioningResult struct {
	Status         ProvisioningStatus `json:"status"`
	PrimaryAddress string             `json:"primary_address"`
	TempPassword   string             `json:"-"`
	ProviderDetail string             `json:"provider_detail,omitempty"`
}

// RunSummary is returned by one full poll cycle.
type RunSummary struct {
	Fetched     int `json:"fetched"`
	Provisioned int `json:"provisioned"`
	Denied      int `json:"denied"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
}

// ProcessingRecordResponse is the API shape for a ledger record.
type ProcessingRecordResponse struct {
	ID            uint       `json:"id"`
	MessageID     string     `json:"message_id"`
	Sender        string     `json:"sender"`
	Username      string     `json:"username"`
	State         State      `json:"state"`
	Detail        string     `json:"detail"`
	NotifyPending bool       `json:"notify_pending"`
	ReceivedAt    time.Time  `json:"received_at"`
	FinalizedAt   *time.Time `json:"finalized_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database"`
	Metrics   map[string]string `json:"metrics,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
