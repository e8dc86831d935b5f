// Package mail delivers the plain-text notices the server sends, such as
// account invites and password resets.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrSMTPDisabled is returned by a mailer whose delivery is switched off.
// Callers treat it as "hand the link to the operator instead".
var ErrSMTPDisabled = errors.New("smtp: delivery disabled")

// Message is one outbound e-mail.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// MailerFunc adapts a function to Mailer.
type MailerFunc func(ctx context.Context, msg Message) error

func (f MailerFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// compose renders msg as an RFC 5322 document. Header values are folded to a
// single line so user-controlled subjects cannot inject headers.
func compose(from string, to []string, msg Message, now time.Time, domain string) string {
	var b strings.Builder
	header := func(name, value string) {
		fmt.Fprintf(&b, "%s: %s\r\n", name, singleLine(value))
	}
	header("From", from)
	header("To", strings.Join(to, ", "))
	header("Subject", msg.Subject)
	header("Date", now.Format(time.RFC1123Z))
	header("Message-ID", "<"+uuid.NewString()+"@"+domain+">")
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.String()
}

func singleLine(value string) string {
	return strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(value)
}

// recipients trims, drops empties and de-duplicates while keeping order.
func recipients(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	out := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}
