package email

import (
	"errors"
	"fmt"
	"net/mail"
	"time"

	gomail "gopkg.in/gomail.v2"
)

// ErrInvalidAddress marks a permanent failure: the recipient address can
// never be delivered to, so retrying is pointless.
var ErrInvalidAddress = errors.New("invalid recipient address")

// Message is a single outbound email
type Message struct {
	To             string
	Subject        string
	Body           string
	HTML           bool
	AttachmentPath string
}

// Mailer sends email messages. The dispatcher retries transient failures;
// implementations should return ErrInvalidAddress (wrapped) for
// unrecoverable recipient problems.
type Mailer interface {
	Send(msg *Message) error
}

// Config holds SMTP transport settings
type Config struct {
	SMTPHost    string
	SMTPPort    int
	Username    string
	Password    string
	FromName    string
	FromEmail   string
	SendTimeout time.Duration
}

// SMTPMailer sends mail through an SMTP relay using gomail
type SMTPMailer struct {
	cfg    Config
	dialer *gomail.Dialer
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(cfg Config) *SMTPMailer {
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password),
	}
}

// Send delivers a single message, bounded by the configured SendTimeout.
// Address validation happens before any network call so a bad recipient
// fails permanently, not transiently.
func (m *SMTPMailer) Send(msg *Message) error {
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, msg.To)
	}

	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", m.cfg.FromEmail, m.cfg.FromName)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	if msg.HTML {
		gm.SetBody("text/html", msg.Body)
	} else {
		gm.SetBody("text/plain", msg.Body)
	}
	if msg.AttachmentPath != "" {
		gm.Attach(msg.AttachmentPath)
	}

	// gomail's dialer has no deadline of its own, so run the send in a
	// goroutine and abandon it when the timeout fires. A stuck relay costs
	// one goroutine until its TCP connection dies, never a blocked worker.
	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(gm) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", msg.To, err)
		}
		return nil
	case <-time.After(m.cfg.SendTimeout):
		return fmt.Errorf("smtp send to %s: timed out after %s", msg.To, m.cfg.SendTimeout)
	}
}

// IsPermanent reports whether a send error should not be retried
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidAddress)
}
