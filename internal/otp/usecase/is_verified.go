package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
)

// IsVerified reports whether the pair holds a verified challenge that has not
// expired. Dependent flows call it before acting on the identifier.
func (s *Usecase) IsVerified(ctx context.Context, identifier string, purpose entity.Purpose) (bool, error) {
	ctx, span := s.startSpan(ctx, "IsVerified")
	defer span.End()

	identifier = entity.NormalizeIdentifier(identifier)

	c, err := s.store.Find(ctx, identifier, purpose)
	if errors.Is(err, goerror.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo find otp challenge", "identifier", identifier, "purpose", purpose, "error", err)
		return false, goerror.NewServer(err)
	}

	return c.Verified && !c.IsExpired(s.clock.Now()), nil
}

// Consume removes the challenge once the dependent flow has completed.
func (s *Usecase) Consume(ctx context.Context, identifier string, purpose entity.Purpose) error {
	ctx, span := s.startSpan(ctx, "Consume")
	defer span.End()

	identifier = entity.NormalizeIdentifier(identifier)

	if err := s.store.Delete(ctx, identifier, purpose); err != nil && !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo delete otp challenge", "identifier", identifier, "purpose", purpose, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
