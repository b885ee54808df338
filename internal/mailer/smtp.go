package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/userhub/apiserver/config"
)

// SMTPSender delivers mail jobs over SMTP. It runs in the worker process
// only; the API never blocks on an SMTP round-trip.
type SMTPSender struct {
	addr     string
	host     string
	username string
	password string
	from     string
}

// NewSMTPSender constructs a sender from mail config.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		addr:     fmt.Sprintf("%s:%d", cfg.SMTP.Host, cfg.SMTP.Port),
		host:     cfg.SMTP.Host,
		username: cfg.SMTP.Username,
		password: cfg.SMTP.Password,
		from:     cfg.From,
	}
}

// Deliver sends one mail job. Unknown kinds are an error so the queue can
// surface them instead of dropping silently.
func (s *SMTPSender) Deliver(job Job) error {
	subject, body, err := renderJob(job)
	if err != nil {
		return err
	}

	msg := buildMessage(s.from, job.To, subject, body)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	return smtp.SendMail(s.addr, auth, fromAddress(s.from), []string{job.To}, msg)
}

func renderJob(job Job) (subject, body string, err error) {
	firstName := job.Name
	if idx := strings.IndexByte(firstName, ' '); idx > 0 {
		firstName = firstName[:idx]
	}

	switch job.Kind {
	case KindWelcome:
		subject = "Welcome to the family!"
		body = fmt.Sprintf("Hi %s,\n\nWelcome aboard! Visit %s to complete your profile.\n", firstName, job.URL)
	case KindPasswordReset:
		subject = "Your password reset token (valid for only 10 minutes)"
		body = fmt.Sprintf("Hi %s,\n\nForgot your password? Submit a request with your new password to:\n%s\n\nIf you didn't forget your password, please ignore this email.\n", firstName, job.URL)
	default:
		return "", "", fmt.Errorf("unknown mail kind %q", job.Kind)
	}
	return subject, body, nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// fromAddress extracts the bare address from a "Name <addr>" header value.
func fromAddress(from string) string {
	if start := strings.IndexByte(from, '<'); start >= 0 {
		if end := strings.IndexByte(from[start:], '>'); end > 0 {
			return from[start+1 : start+end]
		}
	}
	return from
}
