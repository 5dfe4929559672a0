package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
)

// ResendCode drops the current challenge and issues a new one. Inside the
// cooldown it answers RATE_LIMITED like RequestCode, unless
// ResendBypassCooldown is set.
func (s *Usecase) ResendCode(ctx context.Context, in RequestCodeInput) (out *entity.Outcome, err error) {
	ctx, span := s.startSpan(ctx, "ResendCode")
	defer span.End()

	in.Identifier = entity.NormalizeIdentifier(in.Identifier)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	purpose, err := parsePurpose(in.Purpose)
	if err != nil {
		return nil, err
	}
	defer func() { s.count(ctx, s.requests, purpose, out, err) }()

	return s.once(ctx, "resend:"+purpose.String()+":"+in.Identifier, in.IdempotencyKey, func(ctx context.Context) (*entity.Outcome, error) {
		if !s.cfg.ResendBypassCooldown {
			current, err := s.store.Find(ctx, in.Identifier, purpose)
			if err != nil && !errors.Is(err, goerror.ErrNotFound) {
				slog.ErrorContext(ctx, "failed to repo find otp challenge", "identifier", in.Identifier, "purpose", purpose, "error", err)
				return nil, goerror.NewServer(err)
			}
			now := s.clock.Now()
			if current != nil && !current.IsExpired(now) {
				if wait := current.CooldownLeft(now, s.cfg.Cooldown); wait > 0 {
					return outcome(entity.RateLimited(wait)), nil
				}
			}
		}

		if err := s.store.Delete(ctx, in.Identifier, purpose); err != nil && !errors.Is(err, goerror.ErrNotFound) {
			slog.ErrorContext(ctx, "failed to repo delete otp challenge", "identifier", in.Identifier, "purpose", purpose, "error", err)
			return nil, goerror.NewServer(err)
		}

		return s.issue(ctx, in.Identifier, purpose)
	})
}
