package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/avelazquez/remate/internal/notifications"
)

// SMTPSender delivers notifications over plain SMTP. Message bodies
// arrive pre-rendered; templating lives with whoever composes the
// Message.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPSender creates a new SMTP sender. auth may be nil for
// unauthenticated relays.
func NewSMTPSender(addr, from string, auth smtp.Auth) *SMTPSender {
	return &SMTPSender{
		addr: addr,
		from: from,
		auth: auth,
	}
}

// Send implements notifications.Sender.
func (s *SMTPSender) Send(_ context.Context, to *notifications.Recipient, msg notifications.Message) error {
	if to.Email == "" {
		return fmt.Errorf("recipient %s has no email address", to.ID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", to.Email)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)

	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to.Email}, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to.Email, err)
	}
	return nil
}
