package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sakif/school-dashboard/internal/apperror"
	"github.com/sakif/school-dashboard/internal/model"
	"github.com/sakif/school-dashboard/internal/repository"
)

var _ repository.ContentRepository = (*ContentStore)(nil)

// ContentStore is the global key-value content table. Values are stored
// as JSON text.
type ContentStore struct {
	conn *sqlx.DB
}

type contentRow struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *ContentStore) GetContent(ctx context.Context, key string) (*model.ContentItem, error) {
	var row contentRow
	err := s.conn.GetContext(ctx, &row,
		`SELECT key, value, updated_at FROM global_content WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("content", key)
		}
		return nil, fmt.Errorf("sqlite: getting content %q: %w", key, err)
	}

	return &model.ContentItem{
		Key:       row.Key,
		Value:     json.RawMessage(row.Value),
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// PutContent inserts or replaces the value under item.Key.
func (s *ContentStore) PutContent(ctx context.Context, item *model.ContentItem) error {
	item.UpdatedAt = time.Now()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO global_content (key, value, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		item.Key, string(item.Value), item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: putting content %q: %w", item.Key, err)
	}
	return nil
}
