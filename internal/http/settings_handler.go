package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/example/meeting-room-reservation/internal/application"
)

type settingsService interface {
	CompanyColor(ctx context.Context) (string, error)
	SetCompanyColor(ctx context.Context, principal application.Principal, color string) error
}

// SettingsHandler serves /api/company-color.
type SettingsHandler struct {
	service   settingsService
	responder responder
	logger    *slog.Logger
}

func NewSettingsHandler(service settingsService, logger *slog.Logger) *SettingsHandler {
	base := defaultLogger(logger)
	return &SettingsHandler{service: service, responder: newResponder(base), logger: base}
}

// CompanyColor handles GET /api/company-color.
func (h *SettingsHandler) CompanyColor(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	color, err := h.service.CompanyColor(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, colorPayload{Color: color})
}

// SetCompanyColor handles PUT /api/company-color.
func (h *SettingsHandler) SetCompanyColor(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req colorPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		handlerLogger(r.Context(), h.logger, "SettingsHandler", "SetCompanyColor", "error_kind", "bad_request").
			InfoContext(r.Context(), "failed to decode color request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeValidation, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.SetCompanyColor(r.Context(), principal, req.Color); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.CompanyColor(w, r, nil)
}

type colorPayload struct {
	Color string `json:"color"`
}
