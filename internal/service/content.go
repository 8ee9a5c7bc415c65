package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/school-dashboard/internal/apperror"
	"github.com/sakif/school-dashboard/internal/model"
	"github.com/sakif/school-dashboard/internal/repository"
)

// MaxContentBytes bounds one stored content value.
const MaxContentBytes = 256 << 10

var contentKeyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-/]*$`)

type contentKey struct {
	Key string `json:"key" validate:"required,max=200,contentkey"`
}

// ContentService is the global dashboard content store: announcements,
// timetables, phone directories and the rest of the read-mostly pages.
// Any signed-in role may read; only editors may write.
type ContentService struct {
	content  repository.ContentRepository
	validate *validator.Validate
	logger   *slog.Logger
}

func NewContentService(content repository.ContentRepository, logger *slog.Logger) *ContentService {
	v := newValidator()
	// contentkey only fails on a non-empty string; "required" reports the
	// empty case.
	if err := v.RegisterValidation("contentkey", func(fl validator.FieldLevel) bool {
		return contentKeyPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("service: registering contentkey validation: %v", err))
	}
	return &ContentService{content: content, validate: v, logger: logger}
}

// CanEdit reports whether role may write global content.
func CanEdit(role model.Role) bool {
	return role == model.RoleAdmin || role == model.RoleModerator
}

func (s *ContentService) Get(ctx context.Context, key string) (*model.ContentItem, error) {
	key, err := s.normalizeKey(key)
	if err != nil {
		return nil, err
	}

	item, err := s.content.GetContent(ctx, key)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Put stores value under key on behalf of a caller holding role.
func (s *ContentService) Put(ctx context.Context, role model.Role, key string, value json.RawMessage) (*model.ContentItem, error) {
	if !CanEdit(role) {
		return nil, apperror.Forbidden("only admins and moderators may edit global content")
	}

	key, err := s.normalizeKey(key)
	if err != nil {
		return nil, err
	}
	if len(value) == 0 || !json.Valid(value) {
		return nil, apperror.ValidationFailed("value", "value must be valid JSON")
	}
	if len(value) > MaxContentBytes {
		return nil, apperror.ValidationFailed("value",
			fmt.Sprintf("value must be %d bytes or less", MaxContentBytes))
	}

	item := &model.ContentItem{Key: key, Value: value}
	if err := s.content.PutContent(ctx, item); err != nil {
		s.logger.Error("failed to store content",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("storing content %q: %w", key, err)
	}

	s.logger.Info("content updated",
		slog.String("key", key),
		slog.String("role", string(role)),
		slog.Int("bytes", len(value)),
	)
	return item, nil
}

// normalizeKey strips surrounding slashes so "/timetable/" and "timetable"
// address the same entry.
func (s *ContentService) normalizeKey(key string) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if err := s.validate.Struct(contentKey{Key: key}); err != nil {
		return "", validationError(err, "")
	}
	return key, nil
}
