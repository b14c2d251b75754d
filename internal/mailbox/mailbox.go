package mailbox

import (
	"context"
	"net/mail"
	"strings"

	"account-provisioner-go/internal/model"
)

// Mailbox is the contract against the external message store. Candidates are
// unread messages; marking a message processed is the mailbox-side signal
// that the pipeline finished with it.
type Mailbox interface {
	// ListCandidates returns unread messages ordered oldest-first.
	ListCandidates(ctx context.Context) ([]model.Message, error)
	// MarkProcessed flags a message so it is not returned by later runs.
	// It is idempotent.
	MarkProcessed(ctx context.Context, messageID string) error
	Close() error
}

// envelopeAddress reduces a From header to the raw address. Display names
// are stripped; they must never influence authorization.
func envelopeAddress(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		return addr.Address
	}
	return strings.TrimSpace(from)
}
