package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
)

type VerifyCodeInput struct {
	Identifier string `validate:"required,email,max=254"`
	Purpose    string `validate:"required"`
	Code       string `validate:"required,otpcode"`
}

// VerifyCode checks code against the pending challenge. Expired and exhausted
// challenges are deleted; a wrong code costs one attempt.
func (s *Usecase) VerifyCode(ctx context.Context, in VerifyCodeInput) (out *entity.Outcome, err error) {
	ctx, span := s.startSpan(ctx, "VerifyCode")
	defer span.End()

	in.Identifier = entity.NormalizeIdentifier(in.Identifier)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	purpose, err := parsePurpose(in.Purpose)
	if err != nil {
		return nil, err
	}
	defer func() { s.count(ctx, s.verifications, purpose, out, err) }()

	c, err := s.store.Find(ctx, in.Identifier, purpose)
	if errors.Is(err, goerror.ErrNotFound) {
		return outcome(entity.NotFound()), nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo find otp challenge", "identifier", in.Identifier, "purpose", purpose, "error", err)
		return nil, goerror.NewServer(err)
	}

	if c.IsExpired(s.clock.Now()) {
		if err := s.drop(ctx, c.ID); err != nil {
			return nil, err
		}
		return outcome(entity.Expired()), nil
	}

	if c.IsExhausted() {
		if err := s.drop(ctx, c.ID); err != nil {
			return nil, err
		}
		return outcome(entity.Exhausted()), nil
	}

	if c.Verified {
		return outcome(entity.NotFound()), nil
	}

	if !s.hmac.Verify(c.CodeHash, in.Code) {
		attempts, err := s.store.IncrementAttempts(ctx, c.ID)
		if errors.Is(err, goerror.ErrNotFound) {
			return s.settle(ctx, c)
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo increment otp attempts", "challenge_id", c.ID, "error", err)
			return nil, goerror.NewServer(err)
		}

		// the record stays so the next call reports exhaustion and deletes it
		if remaining := c.MaxAttempts - attempts; remaining > 0 {
			return outcome(entity.InvalidCode(remaining)), nil
		}
		return outcome(entity.Exhausted()), nil
	}

	err = s.store.MarkVerified(ctx, c.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return s.settle(ctx, c)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo mark otp verified", "challenge_id", c.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return outcome(entity.CodeVerified()), nil
}

// settle resolves a conditional write that matched nothing because another
// request changed the record first. It never reports success.
func (s *Usecase) settle(ctx context.Context, seen *entity.Challenge) (*entity.Outcome, error) {
	c, err := s.store.Find(ctx, seen.Identifier, seen.Purpose)
	if errors.Is(err, goerror.ErrNotFound) {
		return outcome(entity.NotFound()), nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo find otp challenge", "identifier", seen.Identifier, "purpose", seen.Purpose, "error", err)
		return nil, goerror.NewServer(err)
	}

	if c.ID == seen.ID && c.IsExhausted() {
		return outcome(entity.Exhausted()), nil
	}

	return outcome(entity.NotFound()), nil
}

func (s *Usecase) drop(ctx context.Context, id string) error {
	if err := s.store.DeleteByID(ctx, id); err != nil && !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo delete otp challenge", "challenge_id", id, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}

func outcome(o entity.Outcome) *entity.Outcome { return &o }
