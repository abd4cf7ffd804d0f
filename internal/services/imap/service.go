// -----------------------------------------------------------------------
// IMAP Service - reads replies from the report inbox so recipients can
// change the delivery cadence by mail
// -----------------------------------------------------------------------

package imap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/herald/internal/common"
)

// Email represents a fetched email message
type Email struct {
	ID      uint32
	From    string
	Subject string
	Body    string
	Date    time.Time
}

// Service reads the report inbox over IMAP.
type Service struct {
	config *common.IMAPConfig
	logger arbor.ILogger
}

// NewService creates a new IMAP service.
func NewService(config *common.IMAPConfig, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		logger: logger,
	}
}

// IsConfigured checks that the minimum required IMAP settings are present.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Username != "" && s.config.Password != ""
}

// connect dials, authenticates, and selects INBOX.
func (s *Service) connect() (*client.Client, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("IMAP not configured")
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var c *client.Client
	var err error
	if s.config.UseTLS {
		c, err = client.DialTLS(addr, nil)
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(s.config.Username, s.config.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}

	if _, err := c.Select("INBOX", false); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	return c, nil
}

// FetchUnread fetches every unseen message in the inbox. Messages whose
// body cannot be parsed are skipped with a warning rather than failing the
// whole fetch.
func (s *Service) FetchUnread(ctx context.Context) ([]Email, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := s.connect()
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search for unseen messages: %w", err)
	}

	if len(seqNums) == 0 {
		s.logger.Debug().Msg("No unseen messages")
		return []Email{}, nil
	}

	s.logger.Debug().Int("count", len(seqNums)).Msg("Found unseen messages")

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	messages := make(chan *imap.Message, len(seqNums))
	section := &imap.BodySectionName{}

	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, section.FetchItem()}, messages)
	}()

	var emails []Email
	for msg := range messages {
		if msg == nil {
			continue
		}

		body, err := parseMessageBody(msg, section)
		if err != nil {
			s.logger.Warn().Err(err).Int("seq", int(msg.SeqNum)).Msg("Failed to parse message body")
			continue
		}

		from := ""
		if len(msg.Envelope.From) > 0 {
			from = msg.Envelope.From[0].Address()
		}

		emails = append(emails, Email{
			ID:      msg.SeqNum,
			From:    from,
			Subject: msg.Envelope.Subject,
			Body:    body,
			Date:    msg.Envelope.Date,
		})
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return emails, nil
}

// MarkSeen marks a message as read so it is not processed again.
func (s *Service) MarkSeen(ctx context.Context, messageID uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c, err := s.connect()
	if err != nil {
		return err
	}
	defer c.Logout()

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(messageID)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}

	if err := c.Store(seqSet, item, flags, nil); err != nil {
		return fmt.Errorf("failed to mark message as read: %w", err)
	}

	s.logger.Debug().Int("message_id", int(messageID)).Msg("Marked message as read")
	return nil
}

// parseMessageBody extracts the text/plain part from an IMAP message.
func parseMessageBody(msg *imap.Message, section *imap.BodySectionName) (string, error) {
	if msg == nil {
		return "", fmt.Errorf("nil message")
	}

	r := msg.GetBody(section)
	if r == nil {
		return "", fmt.Errorf("no body section")
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to create mail reader: %w", err)
	}

	var body string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read next part: %w", err)
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			if strings.HasPrefix(contentType, "text/plain") {
				b, err := io.ReadAll(p.Body)
				if err != nil {
					return "", fmt.Errorf("failed to read body: %w", err)
				}
				body = string(b)
			}
		}
	}

	return strings.TrimSpace(body), nil
}
