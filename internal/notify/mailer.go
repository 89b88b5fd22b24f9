package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/victorgomez09/portal/internal/config"
)

// Mailer sends a plain-text message to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPMailer struct {
	client    *mail.Client
	fromEmail string
}

func NewSMTPMailer(cfg config.Mail) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(tlsPolicy(cfg.TLSPolicy)),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &SMTPMailer{
		client:    client,
		fromEmail: cfg.From,
	}, nil
}

func tlsPolicy(name string) mail.TLSPolicy {
	switch name {
	case "opportunistic":
		return mail.TLSOpportunistic
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSMandatory
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.fromEmail); err != nil {
		return fmt.Errorf("failed to set From address: %w", err)
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("failed to set To address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// NoopMailer implements Mailer but does nothing
type NoopMailer struct{}

func (NoopMailer) Send(context.Context, string, string, string) error {
	return nil
}

// NewMailer returns an SMTP mailer when mail is enabled and a NoopMailer otherwise.
func NewMailer(cfg config.Mail) (Mailer, error) {
	if !cfg.Enabled {
		return NoopMailer{}, nil
	}
	return NewSMTPMailer(cfg)
}
