package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/sirupsen/logrus"

	"account-provisioner-go/internal/config"
	"account-provisioner-go/internal/model"
)

// GmailMailbox implements Mailbox over the Gmail API. Unread state is
// tracked with the UNREAD label.
type GmailMailbox struct {
	service   *gmail.Service
	userEmail string
}

// NewGmailMailbox creates a Gmail API mailbox client from an OAuth2 refresh
// token.
func NewGmailMailbox(cfg *config.MailboxConfig) (*GmailMailbox, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailModifyScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	service, err := gmail.NewService(ctx, option.WithTokenSource(oauth2Config.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailMailbox{
		service:   service,
		userEmail: cfg.UserEmail,
	}, nil
}

// ListCandidates fetches unread inbox messages, oldest first.
func (m *GmailMailbox) ListCandidates(ctx context.Context) ([]model.Message, error) {
	call := m.service.Users.Messages.List(m.userEmail).Q("is:unread in:inbox").Context(ctx)
	response, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var result []model.Message

	for _, msg := range response.Messages {
		full, err := m.service.Users.Messages.Get(m.userEmail, msg.Id).Format("full").Context(ctx).Do()
		if err != nil {
			logrus.Warnf("Failed to get message %s: %v", msg.Id, err)
			continue
		}

		parsed, err := m.parseMessage(full)
		if err != nil {
			logrus.Warnf("Failed to parse message %s: %v", msg.Id, err)
			continue
		}

		result = append(result, parsed)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ReceivedAt.Before(result[j].ReceivedAt) })

	return result, nil
}

// parseMessage converts a Gmail API message into the pipeline message shape.
func (m *GmailMailbox) parseMessage(msg *gmail.Message) (model.Message, error) {
	parsed := model.Message{
		ID:         msg.Id,
		ReceivedAt: time.UnixMilli(msg.InternalDate),
	}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "Subject":
			parsed.Subject = header.Value
		case "From":
			parsed.From = envelopeAddress(header.Value)
		}
	}

	body, err := m.extractPlainText(msg.Payload)
	if err != nil {
		return parsed, err
	}
	parsed.Body = body

	return parsed, nil
}

// extractPlainText recursively walks message parts for the text/plain body.
func (m *GmailMailbox) extractPlainText(part *gmail.MessagePart) (string, error) {
	if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return "", fmt.Errorf("failed to decode body data: %w", err)
		}
		return string(data), nil
	}

	for _, subPart := range part.Parts {
		body, err := m.extractPlainText(subPart)
		if err != nil {
			return "", err
		}
		if body != "" {
			return body, nil
		}
	}

	return "", nil
}

// MarkProcessed removes the UNREAD label from the message.
func (m *GmailMailbox) MarkProcessed(ctx context.Context, messageID string) error {
	request := &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}

	_, err := m.service.Users.Messages.Modify(m.userEmail, messageID, request).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to mark message as read: %w", err)
	}
	return nil
}

// Close closes the mailbox (no-op for the Gmail API).
func (m *GmailMailbox) Close() error {
	return nil
}
