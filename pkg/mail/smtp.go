package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	netmail "net/mail"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/FernandoVinha/TheManager/pkg/logger"
)

const defaultSMTPTimeout = 10 * time.Second

// SMTPSettings configure the SMTP mailer. UseTLS selects implicit TLS
// (port 465 style); otherwise STARTTLS is used when the server offers it.
type SMTPSettings struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
	Timeout  time.Duration
}

func (s SMTPSettings) validate() error {
	if !s.Enabled {
		return nil
	}
	switch {
	case strings.TrimSpace(s.Host) == "":
		return errors.New("smtp: host is required when enabled")
	case s.Port <= 0:
		return errors.New("smtp: port is required when enabled")
	}
	if s.From != "" {
		if _, err := netmail.ParseAddress(s.From); err != nil {
			return fmt.Errorf("smtp: invalid from address: %w", err)
		}
	}
	return nil
}

func (s SMTPSettings) address() string {
	return net.JoinHostPort(s.Host, fmt.Sprint(s.Port))
}

// session is the subset of *smtp.Client a delivery needs.
type session interface {
	Auth(smtp.Auth) error
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

type dialer func(ctx context.Context, cfg SMTPSettings) (session, error)

type smtpMailer struct {
	cfg  SMTPSettings
	dial dialer
	now  func() time.Time
	log  *zap.Logger
}

// NewSMTPMailer validates cfg and returns a Mailer. A disabled configuration
// yields a mailer whose Send always returns ErrSMTPDisabled.
func NewSMTPMailer(cfg SMTPSettings) (Mailer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	return &smtpMailer{
		cfg:  cfg,
		dial: dialSMTP,
		now:  time.Now,
		log:  logger.WithModule("mail"),
	}, nil
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled {
		return ErrSMTPDisabled
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = m.cfg.From
	}
	sender, err := netmail.ParseAddress(from)
	if err != nil {
		return fmt.Errorf("smtp: invalid from address: %w", err)
	}

	to := recipients(msg.To)
	if len(to) == 0 {
		return errors.New("smtp: at least one recipient is required")
	}
	for _, rcpt := range to {
		if _, err := netmail.ParseAddress(rcpt); err != nil {
			return fmt.Errorf("smtp: invalid recipient address %q: %w", rcpt, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	sess, err := m.dial(ctx, m.cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := m.transmit(sess, sender.Address, to, msg); err != nil {
		return err
	}

	m.log.Debug("mail sent", zap.Strings("to", to), zap.String("subject", msg.Subject))
	return nil
}

func (m *smtpMailer) transmit(sess session, from string, to []string, msg Message) error {
	if m.cfg.Username != "" {
		if err := sess.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}
	if err := sess.Mail(from); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := sess.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp: rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := sess.Data()
	if err != nil {
		return fmt.Errorf("smtp: data: %w", err)
	}
	domain := from[strings.LastIndex(from, "@")+1:]
	if _, err := io.WriteString(w, compose(from, to, msg, m.now(), domain)); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp: end data: %w", err)
	}
	return sess.Quit()
}

func dialSMTP(ctx context.Context, cfg SMTPSettings) (session, error) {
	d := &net.Dialer{Timeout: cfg.Timeout}
	tlsConfig := &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}

	var (
		conn net.Conn
		err  error
	)
	if cfg.UseTLS {
		conn, err = (&tls.Dialer{NetDialer: d, Config: tlsConfig}).DialContext(ctx, "tcp", cfg.address())
	} else {
		conn, err = d.DialContext(ctx, "tcp", cfg.address())
	}
	if err != nil {
		return nil, fmt.Errorf("smtp: dial %s: %w", cfg.address(), err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp: handshake: %w", err)
	}
	if !cfg.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("smtp: starttls: %w", err)
			}
		}
	}
	return client, nil
}
