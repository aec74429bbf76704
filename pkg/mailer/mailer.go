package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/dekorekillian57-star/spendo/pkg/config"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
)

// Message is a single outbound email.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendFunc func(addr string, auth smtp.Auth, e *email.Email) error

// SMTPSender relays through a plain-auth SMTP server.
type SMTPSender struct {
	addr string
	host string
	auth smtp.Auth
	from string
	send sendFunc
}

func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("smtp host is required")
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", host, cfg.Port),
		host: host,
		auth: auth,
		from: cfg.From,
		send: func(addr string, a smtp.Auth, e *email.Email) error { return e.Send(addr, a) },
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("email recipient is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e := email.NewEmail()
	e.From = s.from
	e.To = msg.To
	e.Subject = msg.Subject
	if msg.Text != "" {
		e.Text = []byte(msg.Text)
	}
	if msg.HTML != "" {
		e.HTML = []byte(msg.HTML)
	}
	if err := s.send(s.addr, s.auth, e); err != nil {
		return fmt.Errorf("smtp send to %s: %w", strings.Join(msg.To, ","), err)
	}
	return nil
}

// LogSender only logs; used when no SMTP relay is configured.
type LogSender struct {
	logger *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logger: logg}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if s.logger == nil {
		return nil
	}
	ctx = s.logger.WithFields(ctx, map[string]any{
		"to":      strings.Join(msg.To, ","),
		"subject": msg.Subject,
	})
	s.logger.Info(ctx, "smtp disabled, email not sent")
	return nil
}

// New picks the SMTP sender when configured and the log sender otherwise.
func New(cfg config.SMTPConfig, logg *logger.Logger) (Sender, error) {
	if !cfg.Enabled() {
		return NewLogSender(logg), nil
	}
	return NewSMTPSender(cfg)
}
