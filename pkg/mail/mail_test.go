package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedSession struct {
	authed  bool
	from    string
	rcpts   []string
	data    bytes.Buffer
	quit    bool
	closed  bool
	rcptErr error
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func (s *recordedSession) Auth(smtp.Auth) error {
	s.authed = true
	return nil
}

func (s *recordedSession) Mail(from string) error {
	s.from = from
	return nil
}

func (s *recordedSession) Rcpt(to string) error {
	if s.rcptErr != nil {
		return s.rcptErr
	}
	s.rcpts = append(s.rcpts, to)
	return nil
}

func (s *recordedSession) Data() (io.WriteCloser, error) { return nopCloser{&s.data}, nil }

func (s *recordedSession) Quit() error {
	s.quit = true
	return nil
}

func (s *recordedSession) Close() error {
	s.closed = true
	return nil
}

func newTestMailer(t *testing.T, cfg SMTPSettings, sess *recordedSession) *smtpMailer {
	t.Helper()
	m, err := NewSMTPMailer(cfg)
	require.NoError(t, err)
	sm := m.(*smtpMailer)
	sm.dial = func(context.Context, SMTPSettings) (session, error) { return sess, nil }
	sm.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	sm.log = zap.NewNop()
	return sm
}

var enabled = SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 587, From: "TheManager <no-reply@example.com>"}

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	require.ErrorContains(t, err, "host is required")

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com"})
	require.ErrorContains(t, err, "port is required")

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 25, From: "nope"})
	require.ErrorContains(t, err, "invalid from address")

	m, err := NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 465})
	require.NoError(t, err)
	require.Equal(t, defaultSMTPTimeout, m.(*smtpMailer).cfg.Timeout)
}

func TestDisabledMailer(t *testing.T) {
	m, err := NewSMTPMailer(SMTPSettings{})
	require.NoError(t, err)
	err = m.Send(context.Background(), Message{To: []string{"a@example.com"}})
	require.ErrorIs(t, err, ErrSMTPDisabled)
}

func TestSendDeliversComposedMessage(t *testing.T) {
	sess := &recordedSession{}
	cfg := enabled
	cfg.Username = "mailer"
	m := newTestMailer(t, cfg, sess)

	err := m.Send(context.Background(), Message{
		To:      []string{"alice@example.com", " ALICE@example.com", "", "bob@example.com"},
		Subject: "Welcome\r\nBcc: mallory@example.com",
		Body:    "Set your password: https://app/invites/accept?token=abc",
	})
	require.NoError(t, err)

	require.True(t, sess.authed)
	require.Equal(t, "no-reply@example.com", sess.from)
	require.Equal(t, []string{"alice@example.com", "bob@example.com"}, sess.rcpts)
	require.True(t, sess.quit)
	require.True(t, sess.closed)

	doc := sess.data.String()
	require.Contains(t, doc, "Subject: Welcome Bcc: mallory@example.com\r\n")
	require.NotContains(t, doc, "\r\nBcc:")
	require.Contains(t, doc, "Date: Wed, 01 May 2024 09:30:00 +0000\r\n")
	require.Contains(t, doc, "@example.com>\r\n")
	require.True(t, strings.HasSuffix(doc, "\r\n\r\nSet your password: https://app/invites/accept?token=abc"))
}

func TestSendValidatesAddresses(t *testing.T) {
	sess := &recordedSession{}
	m := newTestMailer(t, enabled, sess)

	err := m.Send(context.Background(), Message{To: []string{" ", "\t"}})
	require.ErrorContains(t, err, "at least one recipient")

	err = m.Send(context.Background(), Message{From: "invalid-from", To: []string{"a@example.com"}})
	require.ErrorContains(t, err, "invalid from address")

	err = m.Send(context.Background(), Message{To: []string{"a@example.com", "bad-address"}})
	require.ErrorContains(t, err, "invalid recipient address")

	require.Empty(t, sess.from)
}

func TestSendSurfacesRecipientRejection(t *testing.T) {
	sess := &recordedSession{rcptErr: errors.New("550 mailbox unavailable")}
	m := newTestMailer(t, enabled, sess)

	err := m.Send(context.Background(), Message{To: []string{"a@example.com"}})
	require.ErrorContains(t, err, "rcpt to a@example.com")
	require.False(t, sess.authed)
	require.False(t, sess.quit)
	require.True(t, sess.closed)
}

func TestMailerFuncAdapter(t *testing.T) {
	var got Message
	var m Mailer = MailerFunc(func(_ context.Context, msg Message) error {
		got = msg
		return nil
	})
	require.NoError(t, m.Send(context.Background(), Message{Subject: "Invite"}))
	require.Equal(t, "Invite", got.Subject)
}
