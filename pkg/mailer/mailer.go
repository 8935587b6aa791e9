// Package mailer sends plain-text transactional email over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/resinart/storefront-api/pkg/config"
	"github.com/resinart/storefront-api/pkg/logger"
)

const sendTimeout = 15 * time.Second

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.New("recipient is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("subject is required")
	}
	return nil
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTP delivers messages through the configured relay.
type SMTP struct {
	cfg  config.MailConfig
	logg *logger.Logger
}

// New returns an SMTP sender, or a Noop sender that only logs when mail is disabled.
func New(cfg config.MailConfig, logg *logger.Logger) (Sender, error) {
	if !cfg.Enabled {
		return Noop{logg: logg}, nil
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required when mail is enabled")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("mail from address is required")
	}
	return &SMTP{cfg: cfg, logg: logg}, nil
}

func (s *SMTP) buildMessage(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

func (s *SMTP) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(sendTimeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return mail.NewClient(s.cfg.Host, opts...)
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	m, err := s.buildMessage(msg)
	if err != nil {
		return err
	}
	c, err := s.client()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"to": msg.To, "subject": msg.Subject}), "mail.sent")
	}
	return nil
}

// Noop drops messages after logging them. Used when SMTP is not configured.
type Noop struct {
	logg *logger.Logger
}

func (n Noop) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if n.logg != nil {
		n.logg.Debug(n.logg.WithFields(ctx, map[string]any{"to": msg.To, "subject": msg.Subject}), "mail.skipped")
	}
	return nil
}
