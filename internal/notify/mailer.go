// Package notify delivers account notifications by email.
package notify

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/account-console/internal/config"
)

// Email represents an email message.
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// Sender delivers a single email.
type Sender interface {
	Send(email Email) error
}

// Mailer sends email through an SMTP dialer.
type Mailer struct {
	from string
	send func(msgs ...*gomail.Message) error
}

// NewSender returns an SMTP mailer, or a logging sender when SMTP is not configured.
func NewSender(cfg config.NotificationConfig, logger *zap.Logger) Sender {
	if !cfg.Enabled() {
		return &LogSender{logger: logger}
	}
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	return &Mailer{from: cfg.EmailFrom, send: dialer.DialAndSend}
}

// NewMailerWithSender builds a Mailer on top of any gomail sender.
func NewMailerWithSender(from string, sender gomail.Sender) *Mailer {
	return &Mailer{
		from: from,
		send: func(msgs ...*gomail.Message) error {
			return gomail.Send(sender, msgs...)
		},
	}
}

// Send sends a single email.
func (m *Mailer) Send(email Email) error {
	if len(email.To) == 0 {
		return errors.New("no recipients specified")
	}

	msg := gomail.NewMessage()
	m.setEmailMessage(msg, email)

	if err := m.send(msg); err != nil {
		return fmt.Errorf("send %q: %w", email.Subject, err)
	}
	return nil
}

func (m *Mailer) setEmailMessage(msg *gomail.Message, email Email) {
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email.To...)
	msg.SetHeader("Subject", email.Subject)

	if email.HTMLBody != "" {
		msg.SetBody("text/html", email.HTMLBody)
		if email.Body != "" {
			msg.AddAlternative("text/plain", email.Body)
		}
	} else {
		msg.SetBody("text/plain", email.Body)
	}
}

// LogSender only logs messages. Used when SMTP is disabled.
type LogSender struct {
	logger *zap.Logger
}

func (s *LogSender) Send(email Email) error {
	if s.logger != nil {
		s.logger.Info("email delivery disabled",
			zap.Strings("to", email.To),
			zap.String("subject", email.Subject))
	}
	return nil
}
