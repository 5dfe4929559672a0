package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/stockmaster/internal/notification/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{conn: conn, ins: ins}
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *DB) CreateNotification(ctx context.Context, n entity.Notification) (err error) {
	ctx, span := s.startSpan(ctx, "CreateNotification")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, entity_ref, level, read, read_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		n.ID, n.UserID, n.Type.String(), n.Title, n.Message, n.EntityRef, n.Level.String(),
		n.Read, n.ReadAt, n.CreatedAt, n.UpdatedAt,
	)

	return err
}

// ListNotifications returns the user's rows and the broadcast rows.
func (s *DB) ListNotifications(ctx context.Context, userID int64, limit int32) (_ []entity.Notification, err error) {
	ctx, span := s.startSpan(ctx, "ListNotifications")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT id, user_id, type, title, message, entity_ref, level, read, read_at, created_at, updated_at
		FROM notifications
		WHERE user_id = $1 OR user_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3`,
		userID, entity.BroadcastUserID, limit,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Notification, error) {
		var (
			n        entity.Notification
			typ, lvl string
		)
		err := row.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.EntityRef, &lvl,
			&n.Read, &n.ReadAt, &n.CreatedAt, &n.UpdatedAt)
		n.Type = entity.Type(typ)
		n.Level = entity.Level(lvl)
		return n, err
	})
}

func (s *DB) CountUnread(ctx context.Context, userID int64) (n int64, err error) {
	ctx, span := s.startSpan(ctx, "CountUnread")
	defer func() { s.endSpan(span, err) }()

	err = s.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID,
	).Scan(&n)

	return n, err
}

// MarkRead reports false when no row of the user has that id. Marking an
// already read row keeps its first read_at.
func (s *DB) MarkRead(ctx context.Context, userID, id int64) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "MarkRead")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE notifications
		SET read = TRUE, read_at = COALESCE(read_at, NOW()), updated_at = NOW()
		WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}
