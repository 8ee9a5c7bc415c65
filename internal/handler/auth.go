package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/school-dashboard/internal/model"
	"github.com/sakif/school-dashboard/internal/service"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type registerResponse struct {
	ID        string     `json:"_id"`
	Username  string     `json:"username"`
	DisplayID string     `json:"userID_display"`
	Name      string     `json:"name"`
	Role      model.Role `json:"role"`
	Token     string     `json:"token"`
	Message   string     `json:"message"`
}

type loginResponse struct {
	ID         string        `json:"_id"`
	Username   string        `json:"username"`
	DisplayID  string        `json:"userID_display"`
	Name       string        `json:"name"`
	Role       model.Role    `json:"role"`
	Settings   model.JSONMap `json:"settings"`
	Stats      model.JSONMap `json:"stats"`
	ClickCount int64         `json:"click_count"`
	Token      string        `json:"token"`
}

// HandleRegister handles POST /api/auth/register.
//
//	201 {_id, username, userID_display, name, role, token, message}
//	400 missing fields, invalid role, duplicate username or display id
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	a := res.Account
	writeJSON(w, http.StatusCreated, registerResponse{
		ID:        a.ID,
		Username:  a.Username,
		DisplayID: a.DisplayID,
		Name:      a.Name,
		Role:      a.Role,
		Token:     res.Token,
		Message:   "User registered successfully",
	})
}

// HandleLogin handles POST /api/auth/login.
//
//	200 {_id, username, userID_display, name, role, settings, stats, click_count, token}
//	400 missing fields
//	401 invalid credentials, with attempts left
//	403 account locked, with minutes remaining
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.Login(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newLoginResponse(res.Account, res.Token))
}

func newLoginResponse(a *model.Account, token string) loginResponse {
	return loginResponse{
		ID:         a.ID,
		Username:   a.Username,
		DisplayID:  a.DisplayID,
		Name:       a.Name,
		Role:       a.Role,
		Settings:   a.Settings,
		Stats:      a.Stats,
		ClickCount: a.ClickCount,
		Token:      token,
	}
}
