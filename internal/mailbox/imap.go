package mailbox

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/sirupsen/logrus"

	"account-provisioner-go/internal/config"
	"account-provisioner-go/internal/model"
)

// IMAPMailbox implements Mailbox over an IMAP connection. Unread state is
// tracked with the \Seen flag.
type IMAPMailbox struct {
	client *client.Client

	mu   sync.Mutex
	uids map[string]uint32
}

// NewIMAPMailbox connects and logs in to the IMAP server.
func NewIMAPMailbox(cfg *config.MailboxConfig) (*IMAPMailbox, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(cfg.IMAPUser, cfg.IMAPPassword); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	return &IMAPMailbox{
		client: c,
		uids:   make(map[string]uint32),
	}, nil
}

// ListCandidates fetches unread messages from INBOX, oldest first.
func (m *IMAPMailbox) ListCandidates(ctx context.Context) ([]model.Message, error) {
	_, err := m.client.Select("INBOX", false)
	if err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	if len(uids) == 0 {
		return []model.Message{}, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem(), imap.FetchUid}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- m.client.UidFetch(seqset, items, messages)
	}()

	var result []model.Message

	for msg := range messages {
		parsed, err := m.parseMessage(msg, section)
		if err != nil {
			logrus.Warnf("Failed to parse IMAP message %d: %v", msg.Uid, err)
			continue
		}

		m.mu.Lock()
		m.uids[parsed.ID] = msg.Uid
		m.mu.Unlock()

		result = append(result, parsed)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	// Requests are handled in receipt order.
	sort.Slice(result, func(i, j int) bool { return result[i].ReceivedAt.Before(result[j].ReceivedAt) })

	return result, nil
}

// parseMessage converts an IMAP message into the pipeline message shape.
func (m *IMAPMailbox) parseMessage(msg *imap.Message, section *imap.BodySectionName) (model.Message, error) {
	parsed := model.Message{
		ID: fmt.Sprintf("imap-%d", msg.Uid),
	}

	if msg.Envelope != nil {
		parsed.Subject = msg.Envelope.Subject
		parsed.ReceivedAt = msg.Envelope.Date
		if msg.Envelope.MessageId != "" {
			parsed.ID = msg.Envelope.MessageId
		}
		if len(msg.Envelope.From) > 0 {
			parsed.From = msg.Envelope.From[0].Address()
		}
	}

	body, err := m.parseBody(msg, section)
	if err != nil {
		return parsed, err
	}
	parsed.Body = body

	return parsed, nil
}

// parseBody extracts the text/plain part of the message.
func (m *IMAPMailbox) parseBody(msg *imap.Message, section *imap.BodySectionName) (string, error) {
	r := msg.GetBody(section)
	if r == nil {
		return "", fmt.Errorf("failed to get message body")
	}

	entity, err := message.Read(r)
	if err != nil {
		return "", fmt.Errorf("failed to read message: %w", err)
	}

	if mr := entity.MultipartReader(); mr != nil {
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", fmt.Errorf("failed to read part: %w", err)
			}

			contentType := p.Header.Get("Content-Type")
			if strings.Contains(contentType, "text/plain") {
				content, err := io.ReadAll(p.Body)
				if err != nil {
					return "", fmt.Errorf("failed to read part body: %w", err)
				}
				return string(content), nil
			}
		}
		return "", nil
	}

	content, err := io.ReadAll(entity.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read message body: %w", err)
	}
	return string(content), nil
}

// MarkProcessed sets the \Seen flag on the message.
func (m *IMAPMailbox) MarkProcessed(ctx context.Context, messageID string) error {
	m.mu.Lock()
	uid, ok := m.uids[messageID]
	m.mu.Unlock()

	if !ok {
		// Not fetched this run; a previous run may already have flagged it.
		logrus.Warnf("No IMAP UID known for message %s, skipping mark", messageID)
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := m.client.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("failed to mark message as seen: %w", err)
	}
	return nil
}

// Close closes the IMAP connection.
func (m *IMAPMailbox) Close() error {
	return m.client.Logout()
}
