package notify

import (
	"os"

	"gopkg.in/gomail.v2"
)

// Mailer is the outbound email transport. The SMTP implementation is used in
// production; tests substitute a fake.
type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct {
	From   string
	dialer *gomail.Dialer
}

func NewSMTPMailer() *SMTPMailer {
	return &SMTPMailer{
		From: os.Getenv("SMTP_SENDER"),
		dialer: gomail.NewDialer(
			os.Getenv("SMTP_HOST"),
			465,
			os.Getenv("SMTP_USER"),
			os.Getenv("SMTP_PASS"),
		),
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return m.dialer.DialAndSend(msg)
}
