package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/paylivhq/payliv-backend/pkg/config"
	mail "gopkg.in/mail.v2"
)

// Message is the outbound email shape the notification dispatcher produces.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender dispatches a single email, best effort.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTP sends mail through a plain SMTP relay.
type SMTP struct {
	dialer *mail.Dialer
	from   string
}

// NewSMTP builds an SMTP sender from configuration.
func NewSMTP(cfg config.SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	dialer := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.Timeout > 0 {
		dialer.Timeout = cfg.Timeout
	}
	return &SMTP{dialer: dialer, from: cfg.From}, nil
}

// Send delivers the message, honoring context cancellation.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("recipient is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	}
}
