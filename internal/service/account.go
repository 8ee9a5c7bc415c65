package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/school-dashboard/internal/apperror"
	"github.com/sakif/school-dashboard/internal/model"
	"github.com/sakif/school-dashboard/internal/repository"
)

// MaxPatchKeys bounds a single settings or stats update.
const MaxPatchKeys = 64

// AccountService serves the signed-in user's own profile, dashboard
// settings, usage stats and click counter.
type AccountService struct {
	accounts repository.AccountRepository
	logger   *slog.Logger
}

func NewAccountService(accounts repository.AccountRepository, logger *slog.Logger) *AccountService {
	return &AccountService{accounts: accounts, logger: logger}
}

// Profile returns the account behind an authenticated request.
func (s *AccountService) Profile(ctx context.Context, accountID string) (*model.Account, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, apperror.ValidationFailed("id", "account ID is required")
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// UpdateSettings shallow-merges patch into the stored settings. Keys the
// patch does not mention keep their values.
func (s *AccountService) UpdateSettings(ctx context.Context, accountID string, patch model.JSONMap) (model.JSONMap, error) {
	if err := checkPatch("settings", patch); err != nil {
		return nil, err
	}

	merged, err := s.accounts.MergeSettings(ctx, accountID, patch)
	if err != nil {
		return nil, fmt.Errorf("updating settings: %w", err)
	}

	s.logger.Debug("settings updated",
		slog.String("accountID", accountID),
		slog.Int("keys", len(patch)),
	)
	return merged, nil
}

// UpdateStats shallow-merges patch into the stored stats. Every value must
// be a number.
func (s *AccountService) UpdateStats(ctx context.Context, accountID string, patch model.JSONMap) (model.JSONMap, error) {
	if err := checkPatch("stats", patch); err != nil {
		return nil, err
	}
	for k, v := range patch {
		if _, ok := v.(float64); !ok {
			return nil, apperror.ValidationFailed(k, fmt.Sprintf("stats value %q must be a number", k))
		}
	}

	merged, err := s.accounts.MergeStats(ctx, accountID, patch)
	if err != nil {
		return nil, fmt.Errorf("updating stats: %w", err)
	}
	return merged, nil
}

func (s *AccountService) IncrementClickCount(ctx context.Context, accountID string) (int64, error) {
	n, err := s.accounts.IncrementClickCount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("incrementing click count: %w", err)
	}
	return n, nil
}

func (s *AccountService) ResetClickCount(ctx context.Context, accountID string) error {
	if err := s.accounts.ResetClickCount(ctx, accountID); err != nil {
		return fmt.Errorf("resetting click count: %w", err)
	}
	s.logger.Info("click count reset", slog.String("accountID", accountID))
	return nil
}

func checkPatch(field string, patch model.JSONMap) error {
	if len(patch) == 0 {
		return apperror.ValidationFailed(field, field+" update must be a non-empty JSON object")
	}
	if len(patch) > MaxPatchKeys {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("%s update must have %d keys or fewer", field, MaxPatchKeys))
	}
	for k := range patch {
		if strings.TrimSpace(k) == "" {
			return apperror.ValidationFailed(field, field+" keys must not be empty")
		}
	}
	return nil
}
