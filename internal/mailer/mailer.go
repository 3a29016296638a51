// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
)

// Sender dispatches a single HTML email. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

// SMTPSender sends mail through a plain-auth SMTP relay.
type SMTPSender struct {
	host string
	port string
	user string
	pass string
	from string
}

func NewSMTPSender(host, port, user, pass, from string) *SMTPSender {
	return &SMTPSender{host: host, port: port, user: user, pass: pass, from: from}
}

func (s *SMTPSender) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = s.from
	e.To = to
	e.Subject = subject
	e.HTML = []byte(htmlBody)

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}
	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("failed to send email to %v: %w", to, err)
	}
	return nil
}
