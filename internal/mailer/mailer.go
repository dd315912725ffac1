package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/go-mail/mail/v2"
)

// PurchaseConfirmationTemplate is sent once a purchase is finalized.
const PurchaseConfirmationTemplate = "purchase_confirmation.tmpl"

//go:embed templates
var templateFS embed.FS

type Mailer interface {
	Send(recipient, templateFile string, data any) error
}

const (
	sendAttempts = 3
	retryDelay   = 500 * time.Millisecond
)

type dialer interface {
	DialAndSend(m ...*mail.Message) error
}

type SMTPMailer struct {
	dialer dialer
	sender string
	sleep  func(time.Duration)
}

func NewSMTPMailer(host string, port int, username, password, sender string) *SMTPMailer {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 5 * time.Second

	return &SMTPMailer{
		dialer: dialer,
		sender: sender,
		sleep:  time.Sleep,
	}
}

// Send renders the "subject", "plainBody" and "htmlBody" templates of templateFile with data
// and delivers the result, retrying up to three times.
func (m *SMTPMailer) Send(recipient, templateFile string, data any) error {
	tmpl, err := template.New("email").ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return err
	}

	subject, err := render(tmpl, "subject", data)
	if err != nil {
		return err
	}

	plainBody, err := render(tmpl, "plainBody", data)
	if err != nil {
		return err
	}

	htmlBody, err := render(tmpl, "htmlBody", data)
	if err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("To", recipient)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plainBody)
	msg.AddAlternative("text/html", htmlBody)

	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if attempt > 1 {
			m.sleep(retryDelay)
		}

		err = m.dialer.DialAndSend(msg)
		if err == nil {
			return nil
		}
	}

	return fmt.Errorf("failed to send email after %d attempts: %w", sendAttempts, err)
}

func render(tmpl *template.Template, name string, data any) (string, error) {
	var buf bytes.Buffer

	err := tmpl.ExecuteTemplate(&buf, name, data)
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}
