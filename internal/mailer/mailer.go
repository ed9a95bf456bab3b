package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"fizzy/internal/config"
	"fizzy/pkg/logger"
)

// Mailer sends rendered digest email. The SMTP implementation is the
// production path; tests substitute a recorder.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type smtpMailer struct {
	cfg config.SMTPConfig
	log *logger.Logger
}

func NewSMTPMailer(cfg config.SMTPConfig, log *logger.Logger) Mailer {
	return &smtpMailer{cfg: cfg, log: log}
}

func (m *smtpMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	var msg strings.Builder
	msg.WriteString("From: " + m.cfg.FromAddress + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.FromAddress, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	m.log.Infof("sent digest email to %s", to)
	return nil
}
