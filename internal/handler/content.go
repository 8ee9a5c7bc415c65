package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/school-dashboard/internal/service"
)

// ContentHandler serves the global dashboard content under /api/global/*.
// The wildcard is the content key, so /api/global/school/phone-directory
// reads the "school/phone-directory" entry.
type ContentHandler struct {
	content *service.ContentService
	logger  *slog.Logger
}

func NewContentHandler(content *service.ContentService, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{content: content, logger: logger}
}

// HandleGet handles GET /api/global/*. The response body is the stored
// JSON value itself.
func (h *ContentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.content.Get(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item.Value)
}

// HandlePut handles PUT /api/global/*. Only admins and moderators may
// write; the service enforces it even if the route guard is missing.
func (h *ContentHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	claims, err := requireClaims(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var value json.RawMessage
	if err := decodeJSON(w, r, &value); err != nil {
		writeError(w, h.logger, err)
		return
	}

	item, err := h.content.Put(r.Context(), claims.Role, chi.URLParam(r, "*"), value)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
