package email

import (
	"context"
	"errors"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/clock"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"github.com/shandysiswandi/stockmaster/internal/pkg/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMail struct {
	errs []error
	sent []mail.Message
	n    int
}

func (f *fakeMail) Send(_ context.Context, msg mail.Message) error {
	f.n++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (*fakeMail) Close() error { return nil }

func newMail(f *fakeMail) *Mail {
	return New(f, Config{From: "StockMaster <no-reply@x.com>", MaxRetries: 2, Backoff: time.Millisecond},
		clock.NewManual(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)), instrument.NewNoop())
}

func TestSend(t *testing.T) {
	f := &fakeMail{}

	d := newMail(f).Send(context.Background(), "user@x.com", "482913", entity.PurposePasswordReset, 10*time.Minute)
	require.True(t, d.Delivered)
	require.Len(t, f.sent, 1)

	msg := f.sent[0]
	assert.Equal(t, []string{"user@x.com"}, msg.To)
	assert.Equal(t, "StockMaster <no-reply@x.com>", msg.From)
	assert.Equal(t, "Your Password Reset OTP - StockMaster", msg.Subject)
	assert.Equal(t, "Your Password Reset OTP is: 482913\n\nThis OTP will expire in 10 minutes.\n\nDo not share this OTP with anyone.", msg.TextBody)
	assert.Contains(t, msg.HTMLBody, `<div class="otp">482913</div>`)
	assert.Contains(t, msg.HTMLBody, "<strong>10 minutes</strong>")
	assert.Contains(t, msg.HTMLBody, "&copy; 2026 StockMaster")
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Your Registration OTP - StockMaster", Subject(entity.PurposeRegistration))
	assert.Equal(t, "Your Email Verification OTP - StockMaster", Subject(entity.PurposeEmailVerification))
}

func TestSend_RetriesTransient(t *testing.T) {
	f := &fakeMail{errs: []error{&textproto.Error{Code: 421, Msg: "busy"}, nil}}

	d := newMail(f).Send(context.Background(), "user@x.com", "111111", entity.PurposeRegistration, 5*time.Minute)
	assert.True(t, d.Delivered)
	assert.Equal(t, 2, f.n)
	assert.True(t, strings.Contains(f.sent[0].TextBody, "5 minutes"))
}

func TestSend_Failures(t *testing.T) {
	t.Run("permanent", func(t *testing.T) {
		f := &fakeMail{errs: []error{&textproto.Error{Code: 550, Msg: "no such user"}}}

		d := newMail(f).Send(context.Background(), "user@x.com", "111111", entity.PurposeRegistration, time.Minute)
		assert.False(t, d.Delivered)
		assert.Contains(t, d.Detail, "no such user")
		assert.Equal(t, 1, f.n)
	})

	t.Run("transient exhausted", func(t *testing.T) {
		busy := &textproto.Error{Code: 451, Msg: "try later"}
		f := &fakeMail{errs: []error{busy, busy, busy, busy}}

		d := newMail(f).Send(context.Background(), "user@x.com", "111111", entity.PurposeRegistration, time.Minute)
		assert.False(t, d.Delivered)
		assert.Equal(t, 3, f.n)
	})

	t.Run("log transport", func(t *testing.T) {
		d := New(mail.NewLog(), Config{}, clock.New(), instrument.NewNoop()).Send(context.Background(), "user@x.com", "1", entity.PurposeRegistration, time.Minute)
		assert.True(t, d.Delivered)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		f := &fakeMail{errs: []error{errors.New("dial tcp: i/o timeout")}}

		d := newMail(f).Send(ctx, "user@x.com", "111111", entity.PurposeRegistration, time.Minute)
		assert.False(t, d.Delivered)
	})
}
