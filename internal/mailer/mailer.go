package mailer

import (
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Sender delivers a single plain-text message. Delivery is synchronous and
// fire-and-forget: there is no retry, a failure propagates to the caller.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return s.dialer.DialAndSend(msg)
}

// LogSender writes messages to the log instead of delivering them. Used when
// no SMTP relay is configured, e.g. in local development.
type LogSender struct {
	logger *logrus.Logger
}

func NewLogSender(logger *logrus.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(to, subject, body string) error {
	s.logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Infof("mail: %s", body)
	return nil
}
