package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
)

type RequestCodeInput struct {
	Identifier string `validate:"required,email,max=254"`
	Purpose    string `validate:"required"`
	// IdempotencyKey, when set, makes repeated submissions share one outcome.
	IdempotencyKey string `validate:"omitempty,max=128"`
}

// RequestCode issues a new code for the pair unless a pending one is still
// inside its cooldown.
func (s *Usecase) RequestCode(ctx context.Context, in RequestCodeInput) (out *entity.Outcome, err error) {
	ctx, span := s.startSpan(ctx, "RequestCode")
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

	return s.once(ctx, "request:"+purpose.String()+":"+in.Identifier, in.IdempotencyKey, func(ctx context.Context) (*entity.Outcome, error) {
		return s.issue(ctx, in.Identifier, purpose)
	})
}

func (s *Usecase) issue(ctx context.Context, identifier string, purpose entity.Purpose) (*entity.Outcome, error) {
	now := s.clock.Now()

	current, err := s.store.Find(ctx, identifier, purpose)
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo find otp challenge", "identifier", identifier, "purpose", purpose, "error", err)
		return nil, goerror.NewServer(err)
	}
	if current != nil && !current.IsExpired(now) {
		if wait := current.CooldownLeft(now, s.cfg.Cooldown); wait > 0 {
			return outcome(entity.RateLimited(wait)), nil
		}
	}

	code, err := s.codes.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	codeHash, err := s.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	expiresAt := now.Add(s.cfg.Expiry)
	challenge := entity.Challenge{
		ID:          s.uuid.Generate(),
		Identifier:  identifier,
		Purpose:     purpose,
		CodeHash:    string(codeHash),
		MaxAttempts: s.cfg.MaxAttempts,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
		PurgeAt:     expiresAt.Add(s.cfg.Retention),
	}

	if err := s.store.Upsert(ctx, challenge); err != nil {
		slog.ErrorContext(ctx, "failed to repo upsert otp challenge", "identifier", identifier, "purpose", purpose, "error", err)
		return nil, goerror.NewServer(err)
	}

	delivery := s.notifier.Send(ctx, identifier, code, purpose, s.cfg.Expiry)
	if !delivery.Delivered {
		slog.WarnContext(ctx, "otp delivery failed", "identifier", identifier, "purpose", purpose, "detail", delivery.Detail)

		// only this challenge; a concurrent request may already have replaced it
		if err := s.store.DeleteByID(ctx, challenge.ID); err != nil && !errors.Is(err, goerror.ErrNotFound) {
			slog.ErrorContext(ctx, "failed to repo delete undelivered otp challenge", "challenge_id", challenge.ID, "error", err)
			return nil, goerror.NewServer(err)
		}

		return outcome(entity.DeliveryFailed(delivery.Detail)), nil
	}

	return outcome(entity.CodeSent(s.cfg.Expiry)), nil
}
