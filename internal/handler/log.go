package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/school-dashboard/internal/model"
	"github.com/sakif/school-dashboard/internal/service"
)

// LogHandler serves the per-user activity, error and login-attempt
// streams. Entries are always attributed to the authenticated caller.
type LogHandler struct {
	activity *service.ActivityService
	logger   *slog.Logger
}

func NewLogHandler(activity *service.ActivityService, logger *slog.Logger) *LogHandler {
	return &LogHandler{activity: activity, logger: logger}
}

type logListResponse struct {
	Entries []model.LogEntry `json:"entries"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

type clearResponse struct {
	Deleted int64  `json:"deleted"`
	Message string `json:"message"`
}

// HandleActivity handles POST /api/log/activity.
func (h *LogHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	var in service.ActivityInput
	record(h, w, r, &in, func(accountID string) (*model.LogEntry, error) {
		return h.activity.RecordActivity(r.Context(), accountID, in)
	})
}

// HandleError handles POST /api/log/error.
func (h *LogHandler) HandleError(w http.ResponseWriter, r *http.Request) {
	var in service.ErrorInput
	record(h, w, r, &in, func(accountID string) (*model.LogEntry, error) {
		return h.activity.RecordError(r.Context(), accountID, in)
	})
}

// HandleLoginAttempt handles POST /api/log/login-attempt.
func (h *LogHandler) HandleLoginAttempt(w http.ResponseWriter, r *http.Request) {
	var in service.LoginAttemptInput
	record(h, w, r, &in, func(accountID string) (*model.LogEntry, error) {
		return h.activity.RecordLoginAttempt(r.Context(), accountID, in)
	})
}

func (h *LogHandler) HandleListActivity(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, model.LogActivity)
}

func (h *LogHandler) HandleListErrors(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, model.LogError)
}

func (h *LogHandler) HandleLoginHistory(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, model.LogLoginAttempt)
}

func (h *LogHandler) HandleClearActivity(w http.ResponseWriter, r *http.Request) {
	h.clear(w, r, model.LogActivity)
}

func (h *LogHandler) HandleClearErrors(w http.ResponseWriter, r *http.Request) {
	h.clear(w, r, model.LogError)
}

// record decodes the body into in, then stores it through save.
func record[T any](h *LogHandler, w http.ResponseWriter, r *http.Request, in *T, save func(accountID string) (*model.LogEntry, error)) {
	claims, err := requireClaims(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := decodeJSON(w, r, in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	entry, err := save(claims.AccountID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *LogHandler) list(w http.ResponseWriter, r *http.Request, kind model.LogKind) {
	claims, err := requireClaims(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	entries, err := h.activity.List(r.Context(), claims.AccountID, kind, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// echo the clamped values the store actually applied
	opts := pageOptions(limit, offset)
	writeJSON(w, http.StatusOK, logListResponse{Entries: entries, Limit: opts.Limit, Offset: opts.Offset})
}

func (h *LogHandler) clear(w http.ResponseWriter, r *http.Request, kind model.LogKind) {
	claims, err := requireClaims(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	n, err := h.activity.Clear(r.Context(), claims.AccountID, kind)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{Deleted: n, Message: "Logs cleared"})
}
