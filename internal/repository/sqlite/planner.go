package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/school-dashboard/internal/apperror"
	"github.com/sakif/school-dashboard/internal/model"
	"github.com/sakif/school-dashboard/internal/repository"
)

var (
	_ repository.NoteRepository          = (*NoteStore)(nil)
	_ repository.ImportantDateRepository = (*ImportantDateStore)(nil)
)

// NoteStore keeps one notes row per account.
type NoteStore struct {
	conn *sqlx.DB
}

func (s *NoteStore) GetNotes(ctx context.Context, accountID string) (*model.Notes, error) {
	var n model.Notes
	err := s.conn.GetContext(ctx, &n,
		`SELECT account_id, text_content, drawing_data, updated_at
		 FROM notes WHERE account_id = ?`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("notes", accountID)
		}
		return nil, fmt.Errorf("sqlite: getting notes for %s: %w", accountID, err)
	}
	return &n, nil
}

// SaveNotes replaces both fields; the dashboard always sends the whole pad.
func (s *NoteStore) SaveNotes(ctx context.Context, n *model.Notes) error {
	now := time.Now()
	n.UpdatedAt = &now

	_, err := s.conn.NamedExecContext(ctx,
		`INSERT INTO notes (account_id, text_content, drawing_data, updated_at)
		 VALUES (:account_id, :text_content, :drawing_data, :updated_at)
		 ON CONFLICT(account_id) DO UPDATE SET
		     text_content = excluded.text_content,
		     drawing_data = excluded.drawing_data,
		     updated_at   = excluded.updated_at`,
		n,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving notes for %s: %w", n.AccountID, err)
	}
	return nil
}

// DeleteNotes is a no-op for an account without notes.
func (s *NoteStore) DeleteNotes(ctx context.Context, accountID string) error {
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM notes WHERE account_id = ?`, accountID,
	); err != nil {
		return fmt.Errorf("sqlite: deleting notes for %s: %w", accountID, err)
	}
	return nil
}

// ImportantDateStore keeps the calendar events of every account.
type ImportantDateStore struct {
	conn *sqlx.DB
}

// AddImportantDate stores d with a new ID. Datetime is normalised to UTC.
func (s *ImportantDateStore) AddImportantDate(ctx context.Context, d *model.ImportantDate) error {
	d.ID = xid.New().String()
	d.Datetime = d.Datetime.UTC()
	d.CreatedAt = time.Now()

	_, err := s.conn.NamedExecContext(ctx,
		`INSERT INTO important_dates (id, account_id, event_at, event, created_at)
		 VALUES (:id, :account_id, :event_at, :event, :created_at)`,
		d,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding important date: %w", err)
	}
	return nil
}

func (s *ImportantDateStore) ListImportantDates(ctx context.Context, accountID string, opts repository.ListOptions) ([]model.ImportantDate, error) {
	opts = opts.Normalize()

	dates := []model.ImportantDate{}
	err := s.conn.SelectContext(ctx, &dates,
		`SELECT id, account_id, event_at, event, created_at
		 FROM important_dates
		 WHERE account_id = ?
		 ORDER BY event_at ASC, rowid ASC
		 LIMIT ? OFFSET ?`,
		accountID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing important dates: %w", err)
	}
	return dates, nil
}

func (s *ImportantDateStore) ClearImportantDates(ctx context.Context, accountID string) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM important_dates WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: clearing important dates: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: clearing important dates: %w", err)
	}
	return n, nil
}
