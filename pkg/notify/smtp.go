package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"golang.org/x/time/rate"
)

// SMTPMailer sends plain-text mail through a single SMTP relay. A token
// bucket caps the outbound rate so a large sweep cannot flood the relay.
type SMTPMailer struct {
	addr    string // host:port
	from    string
	auth    smtp.Auth
	limiter *rate.Limiter
}

// NewSMTPMailer builds a mailer. username may be empty for an open relay.
func NewSMTPMailer(addr, from, username, password string, perMinute int) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", username, password, host)
	}
	if perMinute <= 0 {
		perMinute = 60
	}
	return &SMTPMailer{
		addr:    addr,
		from:    from,
		auth:    auth,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	}
}

// Send delivers one message, waiting on the rate limiter first.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("smtp rate limit: %w", err)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		m.from, to, subject, body)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
