package email

import (
	"crypto/tls"

	mail "github.com/go-mail/mail"
)

// SMTPSender implements Sender over SMTP.
type SMTPSender struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
}

// NewSMTPSender builds a sender with TLS negotiation left to the dialer.
func NewSMTPSender(host string, port int, from, user, pass string) *SMTPSender {
	return &SMTPSender{
		Host:    host,
		Port:    port,
		From:    from,
		User:    user,
		Pass:    pass,
		TLSMode: "auto",
	}
}

// Send delivers a multipart (text + HTML) message.
func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify,
	}
	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify}
	default:
		// "auto"/"starttls": the dialer negotiates STARTTLS when offered.
	}
	return d.DialAndSend(m)
}
