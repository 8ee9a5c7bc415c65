package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/school-dashboard/internal/model"
	"github.com/sakif/school-dashboard/internal/service"
)

// maxNotesBodyBytes leaves room for a base64 canvas export.
const maxNotesBodyBytes = 4 << 20

// PlannerHandler serves the caller's notes pad and important dates.
type PlannerHandler struct {
	planner *service.PlannerService
	logger  *slog.Logger
}

func NewPlannerHandler(planner *service.PlannerService, logger *slog.Logger) *PlannerHandler {
	return &PlannerHandler{planner: planner, logger: logger}
}

type importantDatesResponse struct {
	Dates  []model.ImportantDate `json:"dates"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// HandleGetNotes handles GET /api/users/me/notes.
func (h *PlannerHandler) HandleGetNotes(w http.ResponseWriter, r *http.Request) {
	claims, err := requireClaims(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	n, err := h.planner.Notes(r.Context(), claims.AccountID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// HandleSaveNotes handles PUT /api/users/me/notes.
func (h *PlannerHandler) HandleSaveNotes(w http.ResponseWriter, r *http.Request) {
	claims, err := requireClaims(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in service.NotesInput
	if err := decodeJSONLimit(w, r, &in, maxNotesBodyBytes); err != nil {
		writeError(w, h.logger, err)
		return
	}

	n, err := h.planner.SaveNotes(r.Context(), claims.AccountID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// HandleClearNotes handles DELETE /api/users/me/notes.
func (h *PlannerHandler) HandleClearNotes(w http.ResponseWriter, r *http.Request) {
	claims, err := requireClaims(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.planner.ClearNotes(r.Context(), claims.AccountID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Notes cleared"})
}

// HandleListImportantDates handles GET /api/users/me/important-dates.
func (h *PlannerHandler) HandleListImportantDates(w http.ResponseWriter, r *http.Request) {
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

	dates, err := h.planner.ImportantDates(r.Context(), claims.AccountID, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	opts := pageOptions(limit, offset)
	writeJSON(w, http.StatusOK, importantDatesResponse{Dates: dates, Limit: opts.Limit, Offset: opts.Offset})
}

// HandleAddImportantDate handles POST /api/users/me/important-dates.
func (h *PlannerHandler) HandleAddImportantDate(w http.ResponseWriter, r *http.Request) {
	claims, err := requireClaims(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var in service.ImportantDateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	d, err := h.planner.AddImportantDate(r.Context(), claims.AccountID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// HandleClearImportantDates handles DELETE /api/users/me/important-dates/clear.
func (h *PlannerHandler) HandleClearImportantDates(w http.ResponseWriter, r *http.Request) {
	claims, err := requireClaims(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	n, err := h.planner.ClearImportantDates(r.Context(), claims.AccountID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{Deleted: n, Message: "Important dates cleared"})
}
