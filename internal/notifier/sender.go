package notifier

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/sirupsen/logrus"

	"account-provisioner-go/internal/config"
)

// Sender sends a single outbound notification mail.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
	Close() error
}

// GmailSender implements Sender via the Gmail API.
type GmailSender struct {
	service     *gmail.Service
	userEmail   string
	fromAddress string
}

// NewGmailSender creates a Gmail API sender from an OAuth2 refresh token.
func NewGmailSender(mailboxCfg *config.MailboxConfig, notifyCfg *config.NotifyConfig) (*GmailSender, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     mailboxCfg.ClientID,
		ClientSecret: mailboxCfg.ClientSecret,
		Scopes:       []string{gmail.GmailSendScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: mailboxCfg.RefreshToken,
	}

	service, err := gmail.NewService(ctx, option.WithTokenSource(oauth2Config.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	fromAddress := notifyCfg.FromAddress
	if fromAddress == "" {
		fromAddress = mailboxCfg.UserEmail
	}

	return &GmailSender{
		service:     service,
		userEmail:   mailboxCfg.UserEmail,
		fromAddress: fromAddress,
	}, nil
}

// Send builds and sends a plain-text mail, retrying rate-limited attempts.
func (s *GmailSender) Send(ctx context.Context, to, subject, body string) error {
	raw := s.buildMessage(to, subject, body)
	encoded := base64.URLEncoding.EncodeToString([]byte(raw))

	message := &gmail.Message{
		Raw: encoded,
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := s.service.Users.Messages.Send(s.userEmail, message).Context(ctx).Do()
		if err == nil {
			logrus.Infof("Sent notification to %s", to)
			return nil
		}

		lastErr = err
		logrus.Warnf("Failed to send notification (attempt %d/%d): %v", attempt, 3, err)

		if strings.Contains(err.Error(), "quota") || strings.Contains(err.Error(), "rate") {
			waitTime := backoffDelay(attempt)
			logrus.Infof("Rate limited, waiting %v before retry", waitTime)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitTime):
			}
		} else {
			break
		}
	}

	return fmt.Errorf("failed to send notification to %s: %w", to, lastErr)
}

// backoffDelay doubles per attempt: 1s, 2s, 4s.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<(attempt-1)) * time.Second
}

// buildMessage assembles a plain-text RFC 2822 message.
func (s *GmailSender) buildMessage(to, subject, body string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("From: %s\r\n", s.fromAddress))
	b.WriteString(fmt.Sprintf("To: %s\r\n", to))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 7bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	return b.String()
}

// Close closes the sender (no-op for the Gmail API).
func (s *GmailSender) Close() error {
	return nil
}
