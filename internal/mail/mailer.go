package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// attachmentName is the fixed name the receipt is attached under,
// regardless of the stored file name.
const attachmentName = "Order.pdf"

// Dialer is the subset of *gomail.Dialer the mailer needs; tests substitute
// a fake transport.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends plain-text confirmation mail through an injected SMTP dialer.
// Transport errors are returned to the caller; the caller owns the decision
// to suppress them.
type Mailer struct {
	dialer Dialer
	from   string
}

func NewMailer(dialer Dialer, from string) *Mailer {
	return &Mailer{dialer: dialer, from: from}
}

func (m *Mailer) Send(to, subject, body string) error {
	msg := m.message(to, subject, body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}

	return nil
}

func (m *Mailer) SendWithAttachment(to, subject, body, attachmentPath string) error {
	msg := m.message(to, subject, body)
	msg.Attach(attachmentPath, gomail.Rename(attachmentName))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail with attachment to %s: %w", to, err)
	}

	return nil
}

func (m *Mailer) message(to, subject, body string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return msg
}
