package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DB stores challenges in the otp_challenges table. The unique key on
// (identifier, purpose) keeps one record per pair.
type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{conn: conn, ins: ins}
}

func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return goerror.ErrConflict
	}

	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

const columns = `id::text, identifier, purpose, code_hash, verified, attempts, max_attempts, created_at, expires_at, purge_at`

func scanChallenge(row pgx.Row) (*entity.Challenge, error) {
	var (
		c       entity.Challenge
		purpose string
	)
	if err := row.Scan(&c.ID, &c.Identifier, &purpose, &c.CodeHash, &c.Verified, &c.Attempts,
		&c.MaxAttempts, &c.CreatedAt, &c.ExpiresAt, &c.PurgeAt); err != nil {
		return nil, err
	}
	c.Purpose = entity.Purpose(purpose)

	return &c, nil
}

func (s *DB) Find(ctx context.Context, identifier string, purpose entity.Purpose) (_ *entity.Challenge, err error) {
	ctx, span := s.startSpan(ctx, "Find")
	defer func() { s.endSpan(span, err) }()

	c, err := scanChallenge(s.conn.QueryRow(ctx,
		`SELECT `+columns+` FROM otp_challenges WHERE identifier = $1 AND purpose = $2`,
		identifier, purpose.String()))
	if err != nil {
		return nil, s.mapError(err)
	}

	return c, nil
}

// Upsert swaps the whole row in one statement, so a concurrent verify
// sees either the old challenge or the new one.
func (s *DB) Upsert(ctx context.Context, c entity.Challenge) (err error) {
	ctx, span := s.startSpan(ctx, "Upsert")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO otp_challenges (id, identifier, purpose, code_hash, verified, attempts, max_attempts, created_at, expires_at, purge_at)
		VALUES ($1::uuid, $2, $3, $4, FALSE, 0, $5, $6, $7, $8)
		ON CONFLICT (identifier, purpose) DO UPDATE SET
			id = EXCLUDED.id,
			code_hash = EXCLUDED.code_hash,
			verified = FALSE,
			attempts = 0,
			max_attempts = EXCLUDED.max_attempts,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at,
			purge_at = EXCLUDED.purge_at`,
		c.ID, c.Identifier, c.Purpose.String(), c.CodeHash, c.MaxAttempts,
		c.CreatedAt.UTC(), c.ExpiresAt.UTC(), c.PurgeAt.UTC())

	return s.mapError(err)
}

func (s *DB) IncrementAttempts(ctx context.Context, id string) (_ int, err error) {
	ctx, span := s.startSpan(ctx, "IncrementAttempts")
	defer func() { s.endSpan(span, err) }()

	var attempts int
	err = s.conn.QueryRow(ctx, `
		UPDATE otp_challenges SET attempts = attempts + 1
		WHERE id = $1::uuid AND attempts < max_attempts
		RETURNING attempts`, id).Scan(&attempts)
	if err != nil {
		return 0, s.mapError(err)
	}

	return attempts, nil
}

func (s *DB) MarkVerified(ctx context.Context, id string) (err error) {
	ctx, span := s.startSpan(ctx, "MarkVerified")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE otp_challenges SET verified = TRUE
		WHERE id = $1::uuid AND NOT verified AND attempts < max_attempts`, id)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

func (s *DB) Delete(ctx context.Context, identifier string, purpose entity.Purpose) (err error) {
	ctx, span := s.startSpan(ctx, "Delete")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM otp_challenges WHERE identifier = $1 AND purpose = $2`,
		identifier, purpose.String())
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

func (s *DB) DeleteByID(ctx context.Context, id string) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteByID")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM otp_challenges WHERE id = $1::uuid`, id)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

func (s *DB) DeleteExpired(ctx context.Context, now time.Time) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteExpired")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM otp_challenges WHERE purge_at <= $1`, now.UTC())
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}
