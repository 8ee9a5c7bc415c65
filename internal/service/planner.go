package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/school-dashboard/internal/apperror"
	"github.com/sakif/school-dashboard/internal/model"
	"github.com/sakif/school-dashboard/internal/repository"
)

// NotesInput is the whole notes pad as the dashboard saves it. The drawing
// is a canvas export such as "data:image/png;base64,...".
type NotesInput struct {
	TextContent string `json:"text_content" validate:"max=20000"`
	DrawingData string `json:"drawing_data" validate:"omitempty,startswith=data:image/,max=3145728"`
}

// ImportantDateInput is one calendar event. Datetime is RFC 3339, or a
// zone-less "2006-01-02T15:04[:05]" / "2006-01-02" read as UTC.
type ImportantDateInput struct {
	Datetime string `json:"datetime" validate:"required"`
	Event    string `json:"event"    validate:"required,max=200"`
}

var importantDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// PlannerService owns the per-account notes pad and important dates.
type PlannerService struct {
	notes    repository.NoteRepository
	dates    repository.ImportantDateRepository
	validate *validator.Validate
	logger   *slog.Logger
}

func NewPlannerService(notes repository.NoteRepository, dates repository.ImportantDateRepository, logger *slog.Logger) *PlannerService {
	return &PlannerService{notes: notes, dates: dates, validate: newValidator(), logger: logger}
}

// Notes returns the saved pad, or an empty one if nothing was saved yet.
func (s *PlannerService) Notes(ctx context.Context, accountID string) (*model.Notes, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}

	n, err := s.notes.GetNotes(ctx, accountID)
	if errors.Is(err, apperror.ErrNotFound) {
		return &model.Notes{AccountID: accountID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting notes: %w", err)
	}
	return n, nil
}

func (s *PlannerService) SaveNotes(ctx context.Context, accountID string, in NotesInput) (*model.Notes, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err, "")
	}

	n := &model.Notes{
		AccountID:   accountID,
		TextContent: in.TextContent,
		DrawingData: in.DrawingData,
	}
	if err := s.notes.SaveNotes(ctx, n); err != nil {
		s.logger.Error("failed to save notes",
			slog.String("accountID", accountID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("saving notes: %w", err)
	}

	s.logger.Debug("notes saved",
		slog.String("accountID", accountID),
		slog.Int("textBytes", len(in.TextContent)),
		slog.Int("drawingBytes", len(in.DrawingData)),
	)
	return n, nil
}

func (s *PlannerService) ClearNotes(ctx context.Context, accountID string) error {
	if err := requireAccount(accountID); err != nil {
		return err
	}
	if err := s.notes.DeleteNotes(ctx, accountID); err != nil {
		return fmt.Errorf("clearing notes: %w", err)
	}
	return nil
}

// ImportantDates lists the account's events, earliest first.
func (s *PlannerService) ImportantDates(ctx context.Context, accountID string, limit, offset int) ([]model.ImportantDate, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}

	dates, err := s.dates.ListImportantDates(ctx, accountID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	}.Normalize())
	if err != nil {
		return nil, fmt.Errorf("listing important dates: %w", err)
	}
	return dates, nil
}

func (s *PlannerService) AddImportantDate(ctx context.Context, accountID string, in ImportantDateInput) (*model.ImportantDate, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	in.Event = strings.TrimSpace(in.Event)
	in.Datetime = strings.TrimSpace(in.Datetime)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err, "")
	}

	at, err := parseEventTime(in.Datetime)
	if err != nil {
		return nil, err
	}

	d := &model.ImportantDate{AccountID: accountID, Datetime: at, Event: in.Event}
	if err := s.dates.AddImportantDate(ctx, d); err != nil {
		s.logger.Error("failed to add important date",
			slog.String("accountID", accountID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("adding important date: %w", err)
	}
	return d, nil
}

func (s *PlannerService) ClearImportantDates(ctx context.Context, accountID string) (int64, error) {
	if err := requireAccount(accountID); err != nil {
		return 0, err
	}

	n, err := s.dates.ClearImportantDates(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("clearing important dates: %w", err)
	}

	s.logger.Info("important dates cleared",
		slog.String("accountID", accountID),
		slog.Int64("deleted", n),
	)
	return n, nil
}

func parseEventTime(v string) (time.Time, error) {
	for _, layout := range importantDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperror.ValidationFailed("datetime",
		"datetime must be an ISO 8601 date or date-time")
}

func requireAccount(accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return apperror.ValidationFailed("account", "account ID is required")
	}
	return nil
}
