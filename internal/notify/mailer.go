// Package notify delivers host-arrival emails. Delivery is best-effort:
// the worker logs failures and never retries or surfaces them.
package notify

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// Mailer sends HTML mail over SMTP with STARTTLS when the server offers it.
type Mailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Configured reports whether credentials are present. An unconfigured
// mailer makes every send a logged no-op upstream.
func (m *Mailer) Configured() bool {
	return m.Username != "" && m.Password != ""
}

// Send delivers a single HTML message.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	if !m.Configured() {
		return fmt.Errorf("email credentials not configured (EMAIL_USERNAME / EMAIL_PASSWORD)")
	}

	addr := net.JoinHostPort(m.Host, m.Port)
	from := m.From
	if from == "" {
		from = m.Username
	}

	headers := map[string]string{
		"From":         fmt.Sprintf("%s<%s>", safeName(m.FromName), from),
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": `text/html; charset="UTF-8"`,
	}

	var msg strings.Builder
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err = client.Hello("localhost"); err != nil {
		return err
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err = client.StartTLS(&tls.Config{ServerName: m.Host}); err != nil {
			return err
		}
	}
	if ok, _ := client.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
		if err = client.Auth(auth); err != nil {
			return err
		}
	}
	if err = client.Mail(from); err != nil {
		return err
	}
	if err = client.Rcpt(to); err != nil {
		return err
	}
	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err = wc.Write([]byte(msg.String())); err != nil {
		return err
	}
	if err = wc.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func safeName(name string) string {
	return strings.ReplaceAll(name, "\n", " ")
}
