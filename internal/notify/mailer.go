package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

const implicitTLSPort = 465

// Mailer is an SMTP Sender. TLS is always on: implicit TLS on port 465,
// mandatory STARTTLS on any other port.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	timeout  time.Duration
}

func NewMailer(host string, port int, username, password string, timeout time.Duration) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		timeout:  timeout,
	}
}

func (m *Mailer) options() []mail.Option {
	opts := []mail.Option{mail.WithPort(m.port)}
	if m.timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.timeout))
	}
	if m.port == implicitTLSPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if m.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password),
		)
	}
	return opts
}

func newMsg(msg Message) (*mail.Msg, error) {
	em := mail.NewMsg()
	if err := em.From(msg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := em.To(msg.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	em.Subject(msg.Subject)
	em.SetBodyString(mail.TypeTextPlain, msg.Body)
	return em, nil
}

// Send dials, authenticates and delivers msg. A fresh client is used per
// call because a go-mail client holds per-connection state.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	em, err := newMsg(msg)
	if err != nil {
		return err
	}
	client, err := mail.NewClient(m.host, m.options()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, em); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
