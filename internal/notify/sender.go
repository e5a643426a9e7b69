package notify

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// Sender delivers one email.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host        string
	Port        int
	User        string
	Pass        string
	FromAddress string
	FromName    string
}

// SMTPSender sends mail over plain SMTP.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers one message.
func (s *SMTPSender) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	}
	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.cfg.FromName, s.cfg.FromAddress, to, subject, body)
	return smtp.SendMail(addr, auth, s.cfg.FromAddress, []string{to}, []byte(msg))
}

// LogSender logs instead of sending; used when SMTP is not configured.
type LogSender struct {
	Logger *zap.Logger
}

// Send logs the message and reports success.
func (s *LogSender) Send(to, subject, _ string) error {
	s.Logger.Info("notification (smtp disabled)", zap.String("to", to), zap.String("subject", subject))
	return nil
}
