// Package repository declares the storage interfaces the service layer
// depends on. internal/repository/sqlite provides the implementation.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/school-dashboard/internal/apperror"
	"github.com/sakif/school-dashboard/internal/model"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type ListOptions struct {
	Limit  int
	Offset int
}

// Normalize clamps the options to [1, MaxListLimit] and a non-negative
// offset.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// LockedError is returned by the login writes when the account is still
// locked at the caller's now. It matches apperror.ErrLocked.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format(time.RFC3339))
}

func (e *LockedError) Unwrap() error { return apperror.ErrLocked }

// AccountRepository is the credential store.
//
// RecordFailedLogin and RecordSuccessfulLogin check the lock and write in
// one atomic step per account. Two concurrent failures against an unlocked
// account always add two to FailedAttempts, and neither call ever changes
// an account whose lock is active at now.
type AccountRepository interface {
	// Create persists a new account, filling ID and timestamps. A duplicate
	// username or display id yields an apperror.ErrConflict.
	Create(ctx context.Context, account *model.Account) error
	ExistsByUsernameOrDisplayID(ctx context.Context, username, displayID string) (bool, error)
	// FindForLogin returns the account whose username OR display id
	// matches; when both match different accounts the username match wins.
	FindForLogin(ctx context.Context, username, displayID string) (*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)

	// RecordFailedLogin increments FailedAttempts and, when the new count
	// reaches maxAttempts, sets LockedUntil to lockUntil. It returns the new
	// count and the resulting lock (nil when not locked by this call), or a
	// *LockedError without writing when the account is locked at now.
	RecordFailedLogin(ctx context.Context, id string, now time.Time, maxAttempts int, lockUntil time.Time) (int, *time.Time, error)
	// RecordSuccessfulLogin clears the counter and any expired lock, or
	// returns a *LockedError without writing when the lock is active at now.
	RecordSuccessfulLogin(ctx context.Context, id string, now time.Time) error

	MergeSettings(ctx context.Context, id string, patch model.JSONMap) (model.JSONMap, error)
	MergeStats(ctx context.Context, id string, patch model.JSONMap) (model.JSONMap, error)
	IncrementClickCount(ctx context.Context, id string) (int64, error)
	ResetClickCount(ctx context.Context, id string) error
}

// LogRepository stores per-account dashboard log entries.
type LogRepository interface {
	Append(ctx context.Context, entry *model.LogEntry) error
	// ListByAccount returns entries of one kind, newest first.
	ListByAccount(ctx context.Context, accountID string, kind model.LogKind, opts ListOptions) ([]model.LogEntry, error)
	ClearByAccount(ctx context.Context, accountID string, kind model.LogKind) (int64, error)
}

// ContentRepository is the global key-value content store.
type ContentRepository interface {
	GetContent(ctx context.Context, key string) (*model.ContentItem, error)
	PutContent(ctx context.Context, item *model.ContentItem) error
}

// NoteRepository stores the single notes record of each account.
type NoteRepository interface {
	// GetNotes yields apperror.ErrNotFound when the account never saved any.
	GetNotes(ctx context.Context, accountID string) (*model.Notes, error)
	// SaveNotes inserts or replaces the account's notes.
	SaveNotes(ctx context.Context, notes *model.Notes) error
	DeleteNotes(ctx context.Context, accountID string) error
}

// ImportantDateRepository stores per-account calendar events.
type ImportantDateRepository interface {
	AddImportantDate(ctx context.Context, date *model.ImportantDate) error
	// ListImportantDates returns events in date order, earliest first.
	ListImportantDates(ctx context.Context, accountID string, opts ListOptions) ([]model.ImportantDate, error)
	ClearImportantDates(ctx context.Context, accountID string) (int64, error)
}
