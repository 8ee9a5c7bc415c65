package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/school-dashboard/internal/model"
	"github.com/sakif/school-dashboard/internal/repository"
)

var _ repository.LogRepository = (*LogStore)(nil)

// LogStore keeps the activity, error and login-attempt streams in the
// activity_logs table, separated by kind.
type LogStore struct {
	conn *sqlx.DB
}

func (s *LogStore) Append(ctx context.Context, e *model.LogEntry) error {
	e.ID = xid.New().String()
	e.CreatedAt = time.Now()
	if e.Details == nil {
		e.Details = model.JSONMap{}
	}

	_, err := s.conn.NamedExecContext(ctx,
		`INSERT INTO activity_logs (id, account_id, kind, description, context, details, created_at)
		 VALUES (:id, :account_id, :kind, :description, :context, :details, :created_at)`,
		e,
	)
	if err != nil {
		return fmt.Errorf("sqlite: appending %s log: %w", e.Kind, err)
	}
	return nil
}

// ListByAccount returns newest entries first. rowid breaks ties between
// entries written within the same timestamp.
func (s *LogStore) ListByAccount(ctx context.Context, accountID string, kind model.LogKind, opts repository.ListOptions) ([]model.LogEntry, error) {
	opts = opts.Normalize()

	entries := []model.LogEntry{}
	err := s.conn.SelectContext(ctx, &entries,
		`SELECT id, account_id, kind, description, context, details, created_at
		 FROM activity_logs
		 WHERE account_id = ? AND kind = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		accountID, kind, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s logs: %w", kind, err)
	}
	return entries, nil
}

// ClearByAccount deletes one stream of an account and returns how many
// entries were removed.
func (s *LogStore) ClearByAccount(ctx context.Context, accountID string, kind model.LogKind) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM activity_logs WHERE account_id = ? AND kind = ?`,
		accountID, kind,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: clearing %s logs: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: clearing %s logs: %w", kind, err)
	}
	return n, nil
}
