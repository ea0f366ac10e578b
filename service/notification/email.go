package notification

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// Mailer sends a single email. Implemented over SMTP in production and
// stubbed in tests.
type Mailer interface {
	Send(to, subject, body string) error
}

type smtpMailer struct{}

func NewSMTPMailer() Mailer {
	return smtpMailer{}
}

func (smtpMailer) Send(to, subject, body string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %v", err)
	}
	d := gomail.NewDialer(smtpHost, port, smtpUser, smtpPass)

	return d.DialAndSend(m)
}
