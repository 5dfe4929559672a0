package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
)

// SweepExpired deletes challenges past their retention window and returns
// how many were removed.
func (s *Usecase) SweepExpired(ctx context.Context) (int64, error) {
	ctx, span := s.startSpan(ctx, "SweepExpired")
	defer span.End()

	n, err := s.store.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete expired otp challenges", "error", err)
		return 0, goerror.NewServer(err)
	}

	if n > 0 {
		slog.InfoContext(ctx, "expired otp challenges swept", "deleted", n)
	}

	return n, nil
}

// StartSweeper runs SweepExpired every interval on the goroutine manager
// until ctx is done. It reports whether the sweeper was started.
func (s *Usecase) StartSweeper(ctx context.Context, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}

	return s.goroutine.Go(ctx, func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				//nolint:errcheck // SweepExpired logs its failure; the next tick retries
				s.SweepExpired(ctx)
			}
		}
	})
}
