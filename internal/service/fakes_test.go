package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/school-dashboard/internal/apperror"
	"github.com/sakif/school-dashboard/internal/model"
	"github.com/sakif/school-dashboard/internal/repository"
)

// =========================================================================
// FAKES
//
// In-memory implementations of the repository interfaces. Each one guards
// its state with a mutex so concurrency tests exercise the same
// "no lost increment" contract the SQLite store provides.
// =========================================================================

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
	nextID   int

	// set to simulate storage failures
	createErr error
	findErr   error

	// afterFind runs once FindForLogin has returned its copy, standing in
	// for other requests that write while the password is being checked.
	afterFind func(id string)
}

var _ repository.AccountRepository = (*fakeAccountRepo)(nil)

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*model.Account)}
}

func (f *fakeAccountRepo) Create(_ context.Context, a *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.accounts {
		if existing.Username == a.Username || existing.DisplayID == a.DisplayID {
			return apperror.Conflict("duplicate")
		}
	}

	f.nextID++
	a.ID = fmt.Sprintf("acct-%d", f.nextID)
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	stored := cloneAccount(a)
	f.accounts[a.ID] = stored
	return nil
}

func (f *fakeAccountRepo) ExistsByUsernameOrDisplayID(_ context.Context, username, displayID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Username == username || a.DisplayID == displayID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccountRepo) FindForLogin(_ context.Context, username, displayID string) (*model.Account, error) {
	f.mu.Lock()

	if f.findErr != nil {
		f.mu.Unlock()
		return nil, f.findErr
	}

	var found *model.Account
	for _, a := range f.accounts {
		if a.Username == username {
			found = a
			break
		}
		if a.DisplayID == displayID {
			found = a
		}
	}
	if found == nil {
		f.mu.Unlock()
		return nil, apperror.NotFound("account", username)
	}
	c := cloneAccount(found)
	hook := f.afterFind
	f.mu.Unlock()

	if hook != nil {
		hook(c.ID)
	}
	return c, nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperror.NotFound("account", id)
	}
	return cloneAccount(a), nil
}

func (f *fakeAccountRepo) RecordFailedLogin(_ context.Context, id string, now time.Time, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return 0, nil, apperror.NotFound("account", id)
	}
	if a.IsLocked(now) {
		return 0, nil, &repository.LockedError{Until: *a.LockedUntil}
	}
	a.FailedAttempts++
	if a.FailedAttempts >= maxAttempts {
		t := lockUntil
		a.LockedUntil = &t
		return a.FailedAttempts, &t, nil
	}
	return a.FailedAttempts, nil, nil
}

func (f *fakeAccountRepo) RecordSuccessfulLogin(_ context.Context, id string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return apperror.NotFound("account", id)
	}
	if a.IsLocked(now) {
		return &repository.LockedError{Until: *a.LockedUntil}
	}
	a.FailedAttempts = 0
	a.LockedUntil = nil
	return nil
}

func (f *fakeAccountRepo) MergeSettings(_ context.Context, id string, patch model.JSONMap) (model.JSONMap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperror.NotFound("account", id)
	}
	a.Settings = a.Settings.Merge(patch)
	return a.Settings.Merge(nil), nil
}

func (f *fakeAccountRepo) MergeStats(_ context.Context, id string, patch model.JSONMap) (model.JSONMap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperror.NotFound("account", id)
	}
	a.Stats = a.Stats.Merge(patch)
	return a.Stats.Merge(nil), nil
}

func (f *fakeAccountRepo) IncrementClickCount(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return 0, apperror.NotFound("account", id)
	}
	a.ClickCount++
	return a.ClickCount, nil
}

func (f *fakeAccountRepo) ResetClickCount(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return apperror.NotFound("account", id)
	}
	a.ClickCount = 0
	return nil
}

// stored returns the repository's current view of an account.
func (f *fakeAccountRepo) stored(id string) *model.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneAccount(f.accounts[id])
}

func cloneAccount(a *model.Account) *model.Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.LockedUntil != nil {
		t := *a.LockedUntil
		c.LockedUntil = &t
	}
	c.Settings = a.Settings.Merge(nil)
	c.Stats = a.Stats.Merge(nil)
	return &c
}

type fakeLogRepo struct {
	mu      sync.Mutex
	entries []model.LogEntry
	seq     int
}

var _ repository.LogRepository = (*fakeLogRepo)(nil)

func (f *fakeLogRepo) Append(_ context.Context, e *model.LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	e.ID = fmt.Sprintf("log-%d", f.seq)
	e.CreatedAt = time.Unix(int64(f.seq), 0)
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeLogRepo) ListByAccount(_ context.Context, accountID string, kind model.LogKind, opts repository.ListOptions) ([]model.LogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []model.LogEntry{}
	for _, e := range f.entries {
		if e.AccountID == accountID && e.Kind == kind {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	opts = opts.Normalize()
	if opts.Offset >= len(out) {
		return []model.LogEntry{}, nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeLogRepo) ClearByAccount(_ context.Context, accountID string, kind model.LogKind) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var kept []model.LogEntry
	var n int64
	for _, e := range f.entries {
		if e.AccountID == accountID && e.Kind == kind {
			n++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return n, nil
}

type fakeContentRepo struct {
	mu    sync.Mutex
	items map[string]model.ContentItem
}

var _ repository.ContentRepository = (*fakeContentRepo)(nil)

func newFakeContentRepo() *fakeContentRepo {
	return &fakeContentRepo{items: make(map[string]model.ContentItem)}
}

func (f *fakeContentRepo) GetContent(_ context.Context, key string) (*model.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[key]
	if !ok {
		return nil, apperror.NotFound("content", key)
	}
	return &item, nil
}

func (f *fakeContentRepo) PutContent(_ context.Context, item *model.ContentItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.UpdatedAt = time.Now()
	f.items[item.Key] = *item
	return nil
}

type fakeNoteRepo struct {
	mu    sync.Mutex
	notes map[string]model.Notes
}

var _ repository.NoteRepository = (*fakeNoteRepo)(nil)

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[string]model.Notes)}
}

func (f *fakeNoteRepo) GetNotes(_ context.Context, accountID string) (*model.Notes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[accountID]
	if !ok {
		return nil, apperror.NotFound("notes", accountID)
	}
	return &n, nil
}

func (f *fakeNoteRepo) SaveNotes(_ context.Context, n *model.Notes) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	n.UpdatedAt = &now
	f.notes[n.AccountID] = *n
	return nil
}

func (f *fakeNoteRepo) DeleteNotes(_ context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.notes, accountID)
	return nil
}

type fakeDateRepo struct {
	mu    sync.Mutex
	dates []model.ImportantDate
	seq   int
}

var _ repository.ImportantDateRepository = (*fakeDateRepo)(nil)

func (f *fakeDateRepo) AddImportantDate(_ context.Context, d *model.ImportantDate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	d.ID = fmt.Sprintf("date-%d", f.seq)
	d.CreatedAt = time.Now()
	f.dates = append(f.dates, *d)
	return nil
}

func (f *fakeDateRepo) ListImportantDates(_ context.Context, accountID string, opts repository.ListOptions) ([]model.ImportantDate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []model.ImportantDate{}
	for _, d := range f.dates {
		if d.AccountID == accountID {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Datetime.Before(out[j].Datetime) })

	opts = opts.Normalize()
	if opts.Offset >= len(out) {
		return []model.ImportantDate{}, nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeDateRepo) ClearImportantDates(_ context.Context, accountID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var kept []model.ImportantDate
	var n int64
	for _, d := range f.dates {
		if d.AccountID == accountID {
			n++
			continue
		}
		kept = append(kept, d)
	}
	f.dates = kept
	return n, nil
}

// =========================================================================
// HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is a settable time source for lockout tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
