// Package smtp delivers plain-text mail through an SMTP relay.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"os"
	"strconv"
	"time"

	"github.com/coder/quartz"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

// TLS modes.
const (
	TLSNone     = "none"
	TLSStartTLS = "starttls"
	TLSImplicit = "tls"
)

// Compile-time check: Mailer implements domain.Mailer.
var _ domain.Mailer = (*Mailer)(nil)

// Config describes the relay.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	TLS      string
	// Hello is the name sent with EHLO; defaults to the local hostname.
	Hello string
	// From is used when a message carries no sender.
	From string

	InsecureSkipVerify bool
}

// Mailer opens one SMTP session per message.
type Mailer struct {
	cfg   Config
	clock quartz.Clock
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithClock sets the clock used for the Date header.
func WithClock(c quartz.Clock) Option {
	return func(m *Mailer) { m.clock = c }
}

// New validates cfg and returns a mailer.
func New(cfg Config, opts ...Option) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, &domain.ConfigurationError{Field: "smtp.host", Reason: "required"}
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	switch cfg.TLS {
	case "":
		cfg.TLS = TLSStartTLS
	case TLSNone, TLSStartTLS, TLSImplicit:
	default:
		return nil, &domain.ConfigurationError{Field: "smtp.tls", Reason: fmt.Sprintf("unknown mode %q", cfg.TLS)}
	}
	if cfg.Hello == "" {
		cfg.Hello, _ = os.Hostname()
		if cfg.Hello == "" {
			cfg.Hello = "localhost"
		}
	}

	m := &Mailer{cfg: cfg, clock: quartz.NewReal()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Send delivers msg.
func (m *Mailer) Send(ctx context.Context, msg domain.Message) error {
	from := msg.From
	if from == "" {
		from = m.cfg.From
	}
	sender, err := mail.ParseAddress(from)
	if err != nil {
		return fmt.Errorf("'from' validation: %w", err)
	}
	rcpt, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("'to' validation: %w", err)
	}

	body, err := m.compose(sender, rcpt, msg)
	if err != nil {
		return err
	}

	c, err := m.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Hello(m.cfg.Hello); err != nil {
		return fmt.Errorf("server handshake: %w", err)
	}

	if m.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("server does not support AUTH")
		}
		if err := c.Auth(sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)); err != nil {
			return fmt.Errorf("plain auth: %w", err)
		}
	}

	if err := c.Mail(sender.Address, nil); err != nil {
		return fmt.Errorf("sender identification: %w", err)
	}
	if err := c.Rcpt(rcpt.Address, nil); err != nil {
		return fmt.Errorf("recipient designation: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("message transmission: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}

	return c.Quit()
}

func (m *Mailer) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	tlsConfig := &tls.Config{
		ServerName:         m.cfg.Host,
		InsecureSkipVerify: m.cfg.InsecureSkipVerify, //nolint:gosec // opt-in for test relays
		MinVersion:         tls.VersionTLS12,
	}

	var d net.Dialer
	switch m.cfg.TLS {
	case TLSImplicit:
		td := tls.Dialer{NetDialer: &d, Config: tlsConfig}
		conn, err := td.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("establish connection to server: %w", err)
		}
		return smtp.NewClient(conn), nil
	case TLSStartTLS:
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("establish connection to server: %w", err)
		}
		c, err := smtp.NewClientStartTLS(conn, tlsConfig)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("starttls: %w", err)
		}
		return c, nil
	default:
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("establish connection to server: %w", err)
		}
		return smtp.NewClient(conn), nil
	}
}

// compose renders the RFC 5322 message with a quoted-printable UTF-8 body.
func (m *Mailer) compose(sender, rcpt *mail.Address, msg domain.Message) ([]byte, error) {
	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "From: %s\r\n", sender.String())
	_, _ = fmt.Fprintf(&buf, "To: %s\r\n", rcpt.String())
	_, _ = fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	_, _ = fmt.Fprintf(&buf, "Date: %s\r\n", m.clock.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(&buf, "Message-Id: <%s@%s>\r\n", uuid.NewString(), m.cfg.Hello)
	_, _ = fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(&buf, "Content-Type: text/plain; charset=UTF-8\r\n")
	_, _ = fmt.Fprintf(&buf, "Content-Transfer-Encoding: quoted-printable\r\n\r\n")

	qw := quotedprintable.NewWriter(&buf)
	if _, err := qw.Write([]byte(msg.Body)); err != nil {
		return nil, fmt.Errorf("write text body: %w", err)
	}
	if err := qw.Close(); err != nil {
		return nil, fmt.Errorf("close text body: %w", err)
	}
	buf.WriteString("\r\n")
	return buf.Bytes(), nil
}
