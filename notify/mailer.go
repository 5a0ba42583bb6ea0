package notify

import (
	"fmt"
	"log/slog"

	"courier/errors"

	"github.com/wneessen/go-mail"
)

// Mailer sends verification emails over SMTP.
type Mailer struct {
	client  *mail.Client
	from    string
	baseURL string
	log     *slog.Logger
}

func NewMailer(host string, port int, username, password, from, baseURL string, log *slog.Logger) (*Mailer, error) {
	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(username),
		mail.WithPassword(password),
	)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, err, "configuring smtp client")
	}
	return &Mailer{client: client, from: from, baseURL: baseURL, log: log}, nil
}

func (m *Mailer) SendVerification(email, token string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(email); err != nil {
		return err
	}
	msg.Subject("Verify your account")
	msg.SetBodyString(mail.TypeTextHTML, fmt.Sprintf(
		`<h1>Verify your account</h1><p><a href="%s/api/auth/verify-email/%s">Verify</a></p>`,
		m.baseURL, token,
	))

	if err := m.client.DialAndSend(msg); err != nil {
		return err
	}
	m.log.Debug("verification email sent", "email", email)
	return nil
}
