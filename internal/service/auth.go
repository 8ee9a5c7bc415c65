// Package service holds the business logic between handlers and repositories.
//
// AuthService sits between the HTTP handlers and the credential store:
//
//	AuthHandler (HTTP) → AuthService (rules) → AccountRepository (DB)
//	                   ↘ PasswordService (bcrypt), TokenService (JWT)
//
// LOGIN STATE MACHINE:
// Each attempt evaluates the account fresh. An account is LOCKED while
// now < LockedUntil and UNLOCKED otherwise; expiry is never swept in the
// background.
//
//	lookup ──none──→ 401 "Invalid credentials"           (no counters touched)
//	   │
//	LOCKED ───────→ 403 "Account locked. Try again in N minutes."  (no counters touched)
//	   │
//	verify secret AND exact display id
//	   ├─ both ok → reset counters, issue token → 200
//	   └─ else    → failed_attempts+1, lock at MaxLoginAttempts → 401
//
// bcrypt takes long enough for other attempts to lock the account after the
// lookup, so both writes re-check the lock under the store's write lock. A
// write that finds an active lock changes nothing and ends in the LOCKED
// response.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/school-dashboard/internal/apperror"
	"github.com/sakif/school-dashboard/internal/auth"
	"github.com/sakif/school-dashboard/internal/model"
	"github.com/sakif/school-dashboard/internal/repository"
)

const (
	// MaxLoginAttempts is the number of consecutive failures that locks an
	// account.
	MaxLoginAttempts = 5

	// LockoutDuration is how long a locked account rejects every login.
	LockoutDuration = 10 * time.Minute
)

// Client-facing messages. They never reveal which factor was wrong.
const (
	msgMissingFields      = "Please enter all fields"
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidRole        = "Invalid role"
	msgPasswordTooLong    = "Password must be 72 bytes or fewer"
	msgDuplicateAccount   = "User with that username or ID already exists"
)

// RegisterInput is the registration request after JSON decoding.
type RegisterInput struct {
	Username  string `json:"username"       validate:"required"`
	Password  string `json:"password"       validate:"required"`
	DisplayID string `json:"userID_display" validate:"required"`
	Name      string `json:"name"           validate:"required"`
	Role      string `json:"role"`
}

// LoginInput is the login request after JSON decoding.
type LoginInput struct {
	Username  string `json:"username"       validate:"required"`
	Password  string `json:"password"       validate:"required"`
	DisplayID string `json:"userID_display" validate:"required"`
}

// AuthResult bundles the account and its freshly issued token so the
// handler can respond in one step.
type AuthResult struct {
	Account *model.Account
	Token   string
}

// AuthService handles registration and login.
type AuthService struct {
	accounts  repository.AccountRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuthService creates an AuthService. The clock defaults to time.Now.
func NewAuthService(
	accounts repository.AccountRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		tokens:    tokens,
		passwords: passwords,
		validate:  newValidator(),
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for lock decisions. Tests use it to
// step past a lockout without sleeping.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Register creates an account and issues its first token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.DisplayID = strings.TrimSpace(in.DisplayID)
	in.Name = strings.TrimSpace(in.Name)

	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	role, ok := model.ParseRole(in.Role)
	if !ok {
		return nil, apperror.ValidationFailed("role", msgInvalidRole)
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password", msgPasswordTooLong)
	}

	exists, err := s.accounts.ExistsByUsernameOrDisplayID(ctx, in.Username, in.DisplayID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking existing account: %w", err)
	}
	if exists {
		return nil, apperror.Conflict(msgDuplicateAccount)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", msgPasswordTooLong)
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	account := &model.Account{
		Username:   in.Username,
		DisplayID:  in.DisplayID,
		Name:       in.Name,
		SecretHash: hash,
		Role:       role,
		Settings:   model.DefaultSettings(),
		Stats:      model.DefaultStats(),
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating account: %w", err)
	}

	token, err := s.tokens.Generate(account.ID, account.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", account.ID, err)
	}

	s.logger.Info("account registered",
		slog.String("accountID", account.ID),
		slog.String("username", account.Username),
		slog.String("role", string(account.Role)),
	)

	return &AuthResult{Account: account, Token: token}, nil
}

// Login authenticates by username or display id, then requires both the
// password and the exact display id to match the found account.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))

	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	account, err := s.accounts.FindForLogin(ctx, in.Username, in.DisplayID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("login rejected: no matching account")
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up account: %w", err)
	}

	now := s.now()
	if account.IsLocked(now) {
		return nil, s.lockedError(account.ID, now, *account.LockedUntil)
	}

	if !s.credentialsMatch(account, in) {
		return nil, s.recordFailure(ctx, account, now)
	}

	if err := s.accounts.RecordSuccessfulLogin(ctx, account.ID, now); err != nil {
		var lockedErr *repository.LockedError
		if errors.As(err, &lockedErr) {
			return nil, s.lockedError(account.ID, now, lockedErr.Until)
		}
		return nil, fmt.Errorf("service/auth: resetting login counters for %s: %w", account.ID, err)
	}
	account.FailedAttempts = 0
	account.LockedUntil = nil

	token, err := s.tokens.Generate(account.ID, account.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", account.ID, err)
	}

	s.logger.Info("login succeeded", slog.String("accountID", account.ID))

	return &AuthResult{Account: account, Token: token}, nil
}

// credentialsMatch runs both checks unconditionally so a wrong display id
// costs the same bcrypt time as a wrong password.
func (s *AuthService) credentialsMatch(account *model.Account, in LoginInput) bool {
	passwordErr := s.passwords.Verify(account.SecretHash, in.Password)
	if passwordErr != nil && !errors.Is(passwordErr, auth.ErrPasswordMismatch) {
		s.logger.Error("stored password hash is unusable",
			slog.String("accountID", account.ID),
			slog.String("error", passwordErr.Error()),
		)
	}
	displayIDMatch := account.DisplayID == in.DisplayID
	return passwordErr == nil && displayIDMatch
}

// recordFailure bumps the counter and builds the attempts-left error.
func (s *AuthService) recordFailure(ctx context.Context, account *model.Account, now time.Time) error {
	attempts, lockedUntil, err := s.accounts.RecordFailedLogin(ctx, account.ID, now, MaxLoginAttempts, now.Add(LockoutDuration))
	if err != nil {
		var lockedErr *repository.LockedError
		if errors.As(err, &lockedErr) {
			return s.lockedError(account.ID, now, lockedErr.Until)
		}
		return fmt.Errorf("service/auth: recording failed login for %s: %w", account.ID, err)
	}
	account.FailedAttempts = attempts
	if lockedUntil != nil {
		account.LockedUntil = lockedUntil
	}

	if attempts >= MaxLoginAttempts {
		s.logger.Warn("account locked after failed logins",
			slog.String("accountID", account.ID),
			slog.Int("failedAttempts", attempts),
		)
		return apperror.Unauthorized(fmt.Sprintf(
			"%s. Account locked for %d minutes due to too many failed attempts. Attempts left: 0",
			msgInvalidCredentials, int(LockoutDuration/time.Minute),
		))
	}

	s.logger.Info("login rejected: invalid credentials",
		slog.String("accountID", account.ID),
		slog.Int("failedAttempts", attempts),
	)
	return apperror.Unauthorized(fmt.Sprintf("%s. Attempts left: %d", msgInvalidCredentials, MaxLoginAttempts-attempts))
}

// lockedError is the response to any attempt made while the lock holds.
func (s *AuthService) lockedError(accountID string, now, until time.Time) error {
	minutes := minutesUntil(now, until)
	s.logger.Info("login rejected: account locked",
		slog.String("accountID", accountID),
		slog.Int("minutesLeft", minutes),
	)
	return apperror.Locked(fmt.Sprintf("Account locked. Try again in %d minutes.", minutes))
}

// validateInput maps validator failures to the single client message the
// dashboard expects for missing fields.
func (s *AuthService) validateInput(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return validationError(err, msgMissingFields)
	}
	return nil
}

// minutesUntil rounds the remaining lock time up to whole minutes.
func minutesUntil(now, until time.Time) int {
	return int(math.Ceil(until.Sub(now).Minutes()))
}
