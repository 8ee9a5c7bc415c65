package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/school-dashboard/internal/apperror"
	"github.com/sakif/school-dashboard/internal/model"
	"github.com/sakif/school-dashboard/internal/repository"
)

// ActivityInput is a dashboard action reported by the frontend.
type ActivityInput struct {
	Description string `json:"description" validate:"required,max=500"`
	Context     string `json:"context"     validate:"max=200"`
}

// ErrorInput is a client-side error reported by the frontend.
type ErrorInput struct {
	Message    string `json:"message"    validate:"required,max=1000"`
	Context    string `json:"context"    validate:"max=200"`
	StackTrace string `json:"stackTrace" validate:"max=10000"`
}

// LoginAttemptInput is a login outcome reported by the frontend. The auth
// core never writes these entries itself.
type LoginAttemptInput struct {
	Username     string `json:"username"       validate:"max=100"`
	DisplayID    string `json:"userID_display" validate:"max=100"`
	Success      bool   `json:"success"`
	Reason       string `json:"reason"         validate:"max=200"`
	AttemptsLeft *int   `json:"attempts_left"  validate:"omitempty,min=0"`
}

// ActivityService records and lists the per-account log streams.
type ActivityService struct {
	logs     repository.LogRepository
	validate *validator.Validate
	logger   *slog.Logger
}

func NewActivityService(logs repository.LogRepository, logger *slog.Logger) *ActivityService {
	return &ActivityService{logs: logs, validate: newValidator(), logger: logger}
}

func (s *ActivityService) RecordActivity(ctx context.Context, accountID string, in ActivityInput) (*model.LogEntry, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err, "")
	}

	return s.append(ctx, &model.LogEntry{
		AccountID:   accountID,
		Kind:        model.LogActivity,
		Description: in.Description,
		Context:     in.Context,
	})
}

func (s *ActivityService) RecordError(ctx context.Context, accountID string, in ErrorInput) (*model.LogEntry, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err, "")
	}

	details := model.JSONMap{}
	if in.StackTrace != "" {
		details["stackTrace"] = in.StackTrace
	}

	return s.append(ctx, &model.LogEntry{
		AccountID:   accountID,
		Kind:        model.LogError,
		Description: in.Message,
		Context:     in.Context,
		Details:     details,
	})
}

func (s *ActivityService) RecordLoginAttempt(ctx context.Context, accountID string, in LoginAttemptInput) (*model.LogEntry, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err, "")
	}

	description := "login failed"
	if in.Success {
		description = "login succeeded"
	}

	details := model.JSONMap{
		"username":       in.Username,
		"userID_display": in.DisplayID,
		"success":        in.Success,
	}
	if in.Reason != "" {
		details["reason"] = in.Reason
	}
	if in.AttemptsLeft != nil {
		details["attempts_left"] = float64(*in.AttemptsLeft)
	}

	return s.append(ctx, &model.LogEntry{
		AccountID:   accountID,
		Kind:        model.LogLoginAttempt,
		Description: description,
		Details:     details,
	})
}

// List returns one stream newest first. limit and offset are clamped the
// same way the repository clamps them.
func (s *ActivityService) List(ctx context.Context, accountID string, kind model.LogKind, limit, offset int) ([]model.LogEntry, error) {
	if !kind.IsValid() {
		return nil, apperror.ValidationFailed("kind", fmt.Sprintf("unknown log kind %q", kind))
	}

	entries, err := s.logs.ListByAccount(ctx, accountID, kind, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	}.Normalize())
	if err != nil {
		s.logger.Error("failed to list logs",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing %s logs: %w", kind, err)
	}
	return entries, nil
}

// Clear deletes one stream of the caller's entries and returns the count.
func (s *ActivityService) Clear(ctx context.Context, accountID string, kind model.LogKind) (int64, error) {
	if !kind.IsValid() {
		return 0, apperror.ValidationFailed("kind", fmt.Sprintf("unknown log kind %q", kind))
	}

	n, err := s.logs.ClearByAccount(ctx, accountID, kind)
	if err != nil {
		return 0, fmt.Errorf("clearing %s logs: %w", kind, err)
	}

	s.logger.Info("logs cleared",
		slog.String("accountID", accountID),
		slog.String("kind", string(kind)),
		slog.Int64("deleted", n),
	)
	return n, nil
}

func (s *ActivityService) append(ctx context.Context, e *model.LogEntry) (*model.LogEntry, error) {
	if e.AccountID == "" {
		return nil, apperror.ValidationFailed("account", "account ID is required")
	}
	if err := s.logs.Append(ctx, e); err != nil {
		s.logger.Error("failed to append log",
			slog.String("kind", string(e.Kind)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("appending %s log: %w", e.Kind, err)
	}
	return e, nil
}
