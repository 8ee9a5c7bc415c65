package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/school-dashboard/internal/apperror"
	"github.com/sakif/school-dashboard/internal/auth"
	"github.com/sakif/school-dashboard/internal/model"
	"github.com/sakif/school-dashboard/internal/service"
)

// AccountHandler serves /api/users/me and its sub-resources. Every route
// sits behind auth.RequireAuth and acts on the caller's own account.
type AccountHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

type profileResponse struct {
	ID         string        `json:"_id"`
	Username   string        `json:"username"`
	DisplayID  string        `json:"userID_display"`
	Name       string        `json:"name"`
	Role       model.Role    `json:"role"`
	Settings   model.JSONMap `json:"settings"`
	Stats      model.JSONMap `json:"stats"`
	ClickCount int64         `json:"click_count"`
	CreatedAt  time.Time     `json:"createdAt"`
}

type clickCountResponse struct {
	ClickCount int64 `json:"click_count"`
}

// HandleMe handles GET /api/users/me.
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	a, ok := h.profile(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:         a.ID,
		Username:   a.Username,
		DisplayID:  a.DisplayID,
		Name:       a.Name,
		Role:       a.Role,
		Settings:   a.Settings,
		Stats:      a.Stats,
		ClickCount: a.ClickCount,
		CreatedAt:  a.CreatedAt,
	})
}

func (h *AccountHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	if a, ok := h.profile(w, r); ok {
		writeJSON(w, http.StatusOK, a.Settings)
	}
}

// HandleUpdateSettings handles PUT /api/users/me/settings. The body is a
// partial settings object; the response is the full merged object.
func (h *AccountHandler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	h.merge(w, r, h.accounts.UpdateSettings)
}

func (h *AccountHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	if a, ok := h.profile(w, r); ok {
		writeJSON(w, http.StatusOK, a.Stats)
	}
}

func (h *AccountHandler) HandleUpdateStats(w http.ResponseWriter, r *http.Request) {
	h.merge(w, r, h.accounts.UpdateStats)
}

func (h *AccountHandler) HandleGetClickCount(w http.ResponseWriter, r *http.Request) {
	if a, ok := h.profile(w, r); ok {
		writeJSON(w, http.StatusOK, clickCountResponse{ClickCount: a.ClickCount})
	}
}

func (h *AccountHandler) HandleIncrementClickCount(w http.ResponseWriter, r *http.Request) {
	claims, err := requireClaims(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	n, err := h.accounts.IncrementClickCount(r.Context(), claims.AccountID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, clickCountResponse{ClickCount: n})
}

func (h *AccountHandler) HandleResetClickCount(w http.ResponseWriter, r *http.Request) {
	claims, err := requireClaims(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.accounts.ResetClickCount(r.Context(), claims.AccountID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, clickCountResponse{ClickCount: 0})
}

// profile loads the caller's account, writing the error response itself
// when it cannot.
func (h *AccountHandler) profile(w http.ResponseWriter, r *http.Request) (*model.Account, bool) {
	claims, err := requireClaims(r)
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}

	a, err := h.accounts.Profile(r.Context(), claims.AccountID)
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}
	return a, true
}

// merge decodes a partial JSON object and hands it to update.
func (h *AccountHandler) merge(w http.ResponseWriter, r *http.Request,
	update func(ctx context.Context, accountID string, patch model.JSONMap) (model.JSONMap, error),
) {
	claims, err := requireClaims(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var patch model.JSONMap
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	merged, err := update(r.Context(), claims.AccountID, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

// requireClaims returns the authenticated caller. Routes are mounted behind
// auth.RequireAuth, so a miss here means a wiring mistake.
func requireClaims(r *http.Request) (*auth.Claims, error) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthorized("valid authentication required")
	}
	return claims, nil
}
