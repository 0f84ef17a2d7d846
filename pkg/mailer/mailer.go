package mailer

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/angelmondragon/wayfarer-backend/pkg/config"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

// Email is a single outbound message.
type Email struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// transport is satisfied by *gomail.Dialer.
type transport interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTP sends mail through an SMTP relay.
type SMTP struct {
	from      string
	transport transport
	logg      *logger.Logger
}

// NewSMTP builds an SMTP sender from config.
func NewSMTP(cfg config.SMTPConfig, logg *logger.Logger) (*SMTP, error) {
	if !cfg.Enabled() {
		return nil, errors.New("smtp host is required")
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, errors.New("smtp from address is invalid")
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &SMTP{from: cfg.From, transport: dialer, logg: logg}, nil
}

func (s *SMTP) Send(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(email); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email.To)
	m.SetHeader("Subject", email.Subject)
	switch {
	case email.HTMLBody != "" && email.TextBody != "":
		m.SetBody("text/plain", email.TextBody)
		m.AddAlternative("text/html", email.HTMLBody)
	case email.HTMLBody != "":
		m.SetBody("text/html", email.HTMLBody)
	default:
		m.SetBody("text/plain", email.TextBody)
	}

	if err := s.transport.DialAndSend(m); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Debug(s.logg.WithField(ctx, "subject", email.Subject), "email sent")
	}
	return nil
}

// Log is a Sender that only records messages in the log. Used when SMTP is not configured.
type Log struct {
	logg *logger.Logger
}

func NewLog(logg *logger.Logger) *Log {
	return &Log{logg: logg}
}

func (l *Log) Send(ctx context.Context, email Email) error {
	if err := validate(email); err != nil {
		return err
	}
	if l.logg != nil {
		l.logg.Info(l.logg.WithFields(ctx, map[string]any{
			"to":      email.To,
			"subject": email.Subject,
		}), "smtp disabled; email not sent")
	}
	return nil
}

// New returns an SMTP sender when configured and a Log sender otherwise.
func New(cfg config.SMTPConfig, logg *logger.Logger) (Sender, error) {
	if !cfg.Enabled() {
		return NewLog(logg), nil
	}
	return NewSMTP(cfg, logg)
}

// ValidAddress reports whether addr parses as a single RFC 5322 address.
func ValidAddress(addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false
	}
	parsed, err := mail.ParseAddress(addr)
	return err == nil && parsed.Address == addr
}

func validate(email Email) error {
	if !ValidAddress(email.To) {
		return errors.New("recipient address is invalid")
	}
	if strings.TrimSpace(email.Subject) == "" {
		return errors.New("subject is required")
	}
	return nil
}
