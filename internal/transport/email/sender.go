// Package email delivers notifications over SMTP.
package email

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	mail "github.com/wneessen/go-mail"

	"github.com/ahmedoothman/expanders360-api/internal/usecase/notification"
)

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Sender implements notification.Sender over SMTP with opportunistic STARTTLS.
type Sender struct {
	cfg Config
	now func() time.Time
}

// NewSender creates an SMTP sender.
func NewSender(cfg Config) *Sender {
	return &Sender{cfg: cfg, now: time.Now}
}

// Send delivers msg over a fresh connection. The context bounds dialing and delivery.
func (s *Sender) Send(ctx context.Context, msg notification.Message) error {
	m, err := s.build(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions(ctx)...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send via %s: %w", addr, err)
	}
	return nil
}

func (s *Sender) clientOptions(ctx context.Context) []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 {
			opts = append(opts, mail.WithTimeout(d))
		}
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

// build renders msg as a quoted-printable HTML mail, so long bodies stay within line limits.
func (s *Sender) build(msg notification.Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("from %q: %w", s.cfg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("to %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(s.now())
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}
