package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/school-dashboard/internal/apperror"
	"github.com/sakif/school-dashboard/internal/model"
	"github.com/sakif/school-dashboard/internal/repository"
)

// Compile-time check: AccountStore satisfies the repository interface.
var _ repository.AccountRepository = (*AccountStore)(nil)

// DuplicateAccountMessage is returned to clients when registration hits an
// existing username or display id.
const DuplicateAccountMessage = "User with that username or ID already exists"

const accountColumns = `id, username, display_id, name, secret_hash, role,
	failed_attempts, locked_until, settings, stats, click_count,
	created_at, updated_at`

// AccountStore is the credential store backed by the accounts table.
type AccountStore struct {
	conn *sqlx.DB
}

// Create inserts a new account. ID and timestamps are set on the passed
// struct. The unique indexes on username and display_id are the final
// arbiter of duplicates: a concurrent registration that slipped past the
// service's existence check still ends in apperror.ErrConflict.
func (s *AccountStore) Create(ctx context.Context, a *model.Account) error {
	a.ID = xid.New().String()

	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Role == "" {
		a.Role = model.DefaultRole
	}
	if a.Settings == nil {
		a.Settings = model.DefaultSettings()
	}
	if a.Stats == nil {
		a.Stats = model.DefaultStats()
	}

	_, err := s.conn.NamedExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES (:id, :username, :display_id, :name, :secret_hash, :role,
		         :failed_attempts, :locked_until, :settings, :stats, :click_count,
		         :created_at, :updated_at)`,
		a,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(DuplicateAccountMessage)
		}
		return fmt.Errorf("sqlite: creating account: %w", err)
	}

	return nil
}

func (s *AccountStore) ExistsByUsernameOrDisplayID(ctx context.Context, username, displayID string) (bool, error) {
	var exists bool
	err := s.conn.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE username = ? OR display_id = ?)`,
		username, displayID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking account existence: %w", err)
	}
	return exists, nil
}

// FindForLogin looks an account up by username OR display id. If the two
// identifiers belong to different accounts, the username match is returned.
func (s *AccountStore) FindForLogin(ctx context.Context, username, displayID string) (*model.Account, error) {
	var a model.Account
	err := s.conn.GetContext(ctx, &a,
		`SELECT `+accountColumns+`
		 FROM accounts
		 WHERE username = ? OR display_id = ?
		 ORDER BY CASE WHEN username = ? THEN 0 ELSE 1 END
		 LIMIT 1`,
		username, displayID, username,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", username)
		}
		return nil, fmt.Errorf("sqlite: finding account for login: %w", err)
	}
	return &a, nil
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (*model.Account, error) {
	var a model.Account
	err := s.conn.GetContext(ctx, &a,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", id)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", id, err)
	}
	return &a, nil
}

// loginState is the part of an account the login writes decide on.
type loginState struct {
	FailedAttempts int        `db:"failed_attempts"`
	LockedUntil    *time.Time `db:"locked_until"`
}

// lockedLoginState reads the counter and lock inside tx and fails with a
// *repository.LockedError when the lock is still active at now. The
// transaction is IMMEDIATE, so nothing can change the row between this read
// and the caller's write.
func lockedLoginState(ctx context.Context, tx *sqlx.Tx, id string, now time.Time) (loginState, error) {
	var st loginState
	err := tx.GetContext(ctx, &st,
		`SELECT failed_attempts, locked_until FROM accounts WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return st, apperror.NotFound("account", id)
		}
		return st, err
	}
	if st.LockedUntil != nil && st.LockedUntil.After(now) {
		return st, &repository.LockedError{Until: *st.LockedUntil}
	}
	return st, nil
}

// RecordFailedLogin increments failed_attempts and decides the lock under
// the write lock, so concurrent failures are serialized and none is lost.
// Once one of them locks the account the rest see the lock and write
// nothing.
//
// The counter is not reset when an earlier lock has expired: one more
// failure after expiry re-locks the account immediately.
func (s *AccountStore) RecordFailedLogin(ctx context.Context, id string, now time.Time, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
	var (
		attempts    int
		lockedUntil *time.Time
	)

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		st, err := lockedLoginState(ctx, tx, id, now)
		if err != nil {
			return err
		}

		attempts = st.FailedAttempts + 1
		next := st.LockedUntil
		if attempts >= maxAttempts {
			until := lockUntil
			next, lockedUntil = &until, &until
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE accounts
			 SET failed_attempts = ?, locked_until = ?, updated_at = ?
			 WHERE id = ?`,
			attempts, next, time.Now(), id,
		)
		return err
	})
	if err != nil {
		return 0, nil, wrapUnlessDomain(err, "sqlite: recording failed login for %s", id)
	}

	return attempts, lockedUntil, nil
}

// RecordSuccessfulLogin clears the failure counter and any expired lock.
// An active lock is left alone.
func (s *AccountStore) RecordSuccessfulLogin(ctx context.Context, id string, now time.Time) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := lockedLoginState(ctx, tx, id, now); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE accounts
			 SET failed_attempts = 0, locked_until = NULL, updated_at = ?
			 WHERE id = ?`,
			time.Now(), id,
		)
		return err
	})
	if err != nil {
		return wrapUnlessDomain(err, "sqlite: recording successful login for %s", id)
	}
	return nil
}

func (s *AccountStore) MergeSettings(ctx context.Context, id string, patch model.JSONMap) (model.JSONMap, error) {
	return s.mergeJSONColumn(ctx, id, "settings", patch)
}

func (s *AccountStore) MergeStats(ctx context.Context, id string, patch model.JSONMap) (model.JSONMap, error) {
	return s.mergeJSONColumn(ctx, id, "stats", patch)
}

// mergeJSONColumn shallow-merges patch into a JSON object column. The read
// and the write share one immediate transaction, so concurrent merges to
// the same account never drop each other's keys.
func (s *AccountStore) mergeJSONColumn(ctx context.Context, id, column string, patch model.JSONMap) (model.JSONMap, error) {
	var merged model.JSONMap

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var current model.JSONMap
		err := tx.GetContext(ctx, &current,
			`SELECT `+column+` FROM accounts WHERE id = ?`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("account", id)
			}
			return err
		}

		merged = current.Merge(patch)
		_, err = tx.ExecContext(ctx,
			`UPDATE accounts SET `+column+` = ?, updated_at = ? WHERE id = ?`,
			merged, time.Now(), id,
		)
		return err
	})
	if err != nil {
		return nil, wrapUnlessDomain(err, "sqlite: merging %s for %s", column, id)
	}

	return merged, nil
}

// IncrementClickCount adds one to click_count and returns the new value.
func (s *AccountStore) IncrementClickCount(ctx context.Context, id string) (int64, error) {
	var count int64
	err := s.conn.GetContext(ctx, &count,
		`UPDATE accounts
		 SET click_count = click_count + 1, updated_at = ?
		 WHERE id = ?
		 RETURNING click_count`,
		time.Now(), id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound("account", id)
		}
		return 0, fmt.Errorf("sqlite: incrementing click count for %s: %w", id, err)
	}
	return count, nil
}

func (s *AccountStore) ResetClickCount(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE accounts SET click_count = 0, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: resetting click count for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("account", id)
	}
	return nil
}

// withTx runs fn inside a transaction, committing on nil and rolling back
// otherwise. BEGIN is IMMEDIATE (see the DSN), so fn holds the write lock.
func (s *AccountStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is SQLite rejecting a row because
// of a UNIQUE index or PRIMARY KEY.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// primary result code only, when extended codes are off
		return strings.Contains(serr.Error(), "UNIQUE constraint failed")
	}
	return false
}

// wrapUnlessDomain passes *apperror.AppError and *repository.LockedError
// values through untouched so callers still see them, and wraps everything
// else.
func wrapUnlessDomain(err error, format string, args ...any) error {
	var (
		appErr    *apperror.AppError
		lockedErr *repository.LockedError
	)
	if errors.As(err, &appErr) || errors.As(err, &lockedErr) {
		return err
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
