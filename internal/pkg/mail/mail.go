// Package mail sends email through a provider-neutral Mail interface. SMTP is
// the production transport; Log is a development stand-in that only records
// what would have been sent.
package mail

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/textproto"
)

// Message is a provider-neutral email.
type Message struct {
	// From overrides the transport default sender.
	From     string
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mail dispatches messages.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}

// IsTransient reports whether err is worth retrying: network failures and
// SMTP 4xx replies are; 5xx replies and input errors are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code >= 400 && tpErr.Code < 500
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// Log writes a line per message instead of delivering it.
type Log struct{}

func NewLog() *Log { return &Log{} }

// Send logs the envelope. Bodies are not logged because they carry secrets.
func (*Log) Send(ctx context.Context, msg Message) error {
	if len(msg.To)+len(msg.Cc)+len(msg.Bcc) == 0 {
		return ErrNoRecipients
	}

	slog.InfoContext(ctx, "mail not delivered, log transport in use", "to", msg.To, "subject", msg.Subject)
	return nil
}

func (*Log) Close() error { return nil }
