package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/fitkit/authserver/config"
)

// SMTPSender delivers reset-code emails directly over SMTP with STARTTLS
// as negotiated by the server (port 587 by default).
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) SendResetCode(ctx context.Context, email, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(s.cfg.From, email, resetSubject, resetBody(code))
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{email}, msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

func (s *SMTPSender) Close() error {
	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return []byte(b.String())
}
