package email

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/clock"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"github.com/shandysiswandi/stockmaster/internal/pkg/mail"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Config struct {
	// From is the sender, e.g. "StockMaster <no-reply@stockmaster.io>".
	From string
	// MaxRetries bounds resends after a transient failure.
	MaxRetries uint64
	Backoff    time.Duration
}

// Mail delivers codes by email. It never returns an error: failures end up
// in the Delivery detail.
type Mail struct {
	client mail.Mail
	cfg    Config
	clock  clock.Clocker
	ins    instrument.Instrumentation
}

func New(client mail.Mail, cfg Config, clk clock.Clocker, ins instrument.Instrumentation) *Mail {
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}

	return &Mail{client: client, cfg: cfg, clock: clk, ins: ins}
}

func Subject(purpose entity.Purpose) string {
	return "Your " + purpose.Label() + " OTP - StockMaster"
}

func (m *Mail) render(code string, purpose entity.Purpose, ttl time.Duration) (mail.Message, error) {
	c := content{
		Label:   purpose.Label(),
		Code:    code,
		Minutes: int(ttl / time.Minute),
		Year:    m.clock.Now().Year(),
	}

	var html, text bytes.Buffer
	if err := htmlBody.Execute(&html, c); err != nil {
		return mail.Message{}, err
	}
	if err := textBody.Execute(&text, c); err != nil {
		return mail.Message{}, err
	}

	return mail.Message{
		From:     m.cfg.From,
		Subject:  Subject(purpose),
		HTMLBody: html.String(),
		TextBody: text.String(),
	}, nil
}

func (m *Mail) Send(ctx context.Context, identifier, code string, purpose entity.Purpose, ttl time.Duration) entity.Delivery {
	ctx, span := m.ins.Tracer("otp.outbound.email").Start(ctx, "Send")
	defer span.End()

	span.SetAttributes(attribute.String("purpose", purpose.String()))

	msg, err := m.render(code, purpose, ttl)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render otp email", "purpose", purpose, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return entity.Delivery{Detail: err.Error()}
	}
	msg.To = []string{identifier}

	attempts := 0
	b := retry.WithMaxRetries(m.cfg.MaxRetries, retry.NewExponential(m.cfg.Backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempts++
		if err := m.client.Send(ctx, msg); err != nil {
			if mail.IsTransient(err) {
				slog.WarnContext(ctx, "otp email send failed, retrying", "attempt", attempts, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	span.SetAttributes(attribute.Int("attempts", attempts))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return entity.Delivery{Detail: "delivery cancelled: " + err.Error()}
		}
		return entity.Delivery{Detail: err.Error()}
	}

	return entity.Delivery{Delivered: true}
}
