// -----------------------------------------------------------------------
// Mailer Service - sends the HTML report over SMTP with inline chart
// images referenced from the body by Content-ID
// -----------------------------------------------------------------------

package mailer

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/herald/internal/common"
)

// InlineImage is an image embedded in the HTML body via cid: reference.
type InlineImage struct {
	Name      string // Filename, e.g. "pageviews.png"
	ContentID string // Referenced from the body as cid:<ContentID>
	Data      []byte // PNG bytes
}

// Service sends report emails using the configured SMTP account.
type Service struct {
	config *common.SMTPConfig
	logger arbor.ILogger
}

// NewService creates a new mailer service.
func NewService(config *common.SMTPConfig, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		logger: logger,
	}
}

// IsConfigured checks that the minimum required SMTP settings are present.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Username != "" && s.config.Password != "" && s.config.From != ""
}

// SendReport sends the rendered report. The HTML body and a plain-text
// fallback go in a multipart/alternative part; inline images sit beside it
// in the enclosing multipart/related part so mail clients resolve the
// body's cid: references.
func (s *Service) SendReport(ctx context.Context, to, subject, htmlBody, textBody string, images []InlineImage) error {
	if !s.IsConfigured() {
		return fmt.Errorf("SMTP not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := s.buildMessage(to, subject, htmlBody, textBody, images)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)

	var err error
	if s.config.UseTLS {
		err = s.sendWithTLS(addr, auth, s.config.From, to, msg)
	} else {
		err = smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg))
	}
	if err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}

	s.logger.Info().
		Str("to", to).
		Str("subject", subject).
		Int("images", len(images)).
		Msg("Report sent")

	return nil
}

// buildMessage assembles the full RFC 5322 message. Separated from sending
// so the MIME structure can be verified without a live server.
func (s *Service) buildMessage(to, subject, htmlBody, textBody string, images []InlineImage) string {
	relatedBoundary := generateBoundary()
	altBoundary := generateBoundary()

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", s.config.FromName, s.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/related; boundary=\"%s\"\r\n", relatedBoundary))
	msg.WriteString("\r\n")

	// Body part (multipart/alternative for HTML + text)
	msg.WriteString(fmt.Sprintf("--%s\r\n", relatedBoundary))
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", altBoundary))
	msg.WriteString("\r\n")

	// Plain text part - base64 encoded for safety with long lines
	if textBody != "" {
		msg.WriteString(fmt.Sprintf("--%s\r\n", altBoundary))
		msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(encodeBase64WithLineBreaks([]byte(textBody)))
		msg.WriteString("\r\n")
	}

	// HTML part
	// RFC 5322 limits line length to 998 chars; base64 ensures compliance
	msg.WriteString(fmt.Sprintf("--%s\r\n", altBoundary))
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("Content-Transfer-Encoding: base64\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(encodeBase64WithLineBreaks([]byte(htmlBody)))
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s--\r\n", altBoundary))

	// Inline images
	for _, img := range images {
		msg.WriteString(fmt.Sprintf("--%s\r\n", relatedBoundary))
		msg.WriteString(fmt.Sprintf("Content-Type: image/png; name=\"%s\"\r\n", img.Name))
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		msg.WriteString(fmt.Sprintf("Content-ID: <%s>\r\n", img.ContentID))
		msg.WriteString(fmt.Sprintf("Content-Disposition: inline; filename=\"%s\"\r\n", img.Name))
		msg.WriteString("\r\n")
		msg.WriteString(encodeBase64WithLineBreaks(img.Data))
		msg.WriteString("\r\n")
	}

	msg.WriteString(fmt.Sprintf("--%s--\r\n", relatedBoundary))

	return msg.String()
}

// sendWithTLS sends email over a direct TLS connection (required for Gmail).
func (s *Service) sendWithTLS(addr string, auth smtp.Auth, from, to, msg string) error {
	host := strings.Split(addr, ":")[0]

	conn, err := tls.Dial("tcp", addr, &tls.Config{
		ServerName: host,
	})
	if err != nil {
		// Fallback to STARTTLS if direct TLS fails
		return s.sendWithSTARTTLS(addr, auth, from, to, msg)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	return transmit(client, auth, from, to, msg)
}

// sendWithSTARTTLS sends email using a STARTTLS upgrade.
func (s *Service) sendWithSTARTTLS(addr string, auth smtp.Auth, from, to, msg string) error {
	host := strings.Split(addr, ":")[0]

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	return transmit(client, auth, from, to, msg)
}

// transmit runs the AUTH/MAIL/RCPT/DATA sequence on an established client.
func transmit(client *smtp.Client, auth smtp.Auth, from, to, msg string) error {
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set mail recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}

	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

// NewContentID returns a fresh Content-ID for an inline image.
func NewContentID() string {
	return uuid.New().String() + "@herald"
}

// generateBoundary creates a unique MIME boundary string.
// Random to avoid collisions with content.
func generateBoundary() string {
	return "herald_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// encodeBase64WithLineBreaks encodes content as base64 with 76-char line
// breaks per RFC 2045 for MIME content.
func encodeBase64WithLineBreaks(content []byte) string {
	encoded := base64.StdEncoding.EncodeToString(content)

	var result strings.Builder
	const lineLen = 76

	for i := 0; i < len(encoded); i += lineLen {
		end := i + lineLen
		if end > len(encoded) {
			end = len(encoded)
		}
		result.WriteString(encoded[i:end])
		if end < len(encoded) {
			result.WriteString("\r\n")
		}
	}

	return result.String()
}
