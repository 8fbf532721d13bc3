package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/example/meeting-room-reservation/internal/application"
)

// CommandExecutor runs reservation commands.
type CommandExecutor interface {
	Execute(ctx context.Context, cmd application.Command) (application.Result, error)
}

// ReservationHandler serves /api/reservations.
type ReservationHandler struct {
	commands  CommandExecutor
	loc       *time.Location
	responder responder
	logger    *slog.Logger
}

// NewReservationHandler parses wire times in loc. A nil loc means time.Local.
func NewReservationHandler(commands CommandExecutor, loc *time.Location, logger *slog.Logger) *ReservationHandler {
	if loc == nil {
		loc = time.Local
	}
	base := defaultLogger(logger)
	return &ReservationHandler{commands: commands, loc: loc, responder: newResponder(base), logger: base}
}

// List handles GET /api/reservations.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())
	cmd, vErr := h.listCommand(r.URL.Query(), principal)
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	result, err := h.commands.Execute(r.Context(), cmd)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]reservationDTO, 0, len(result.Reservations))
	for _, view := range result.Reservations {
		out = append(out, toReservationDTO(view))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResponse{Reservations: out})
}

func (h *ReservationHandler) listCommand(query url.Values, principal application.Principal) (application.ListCommand, *application.ValidationError) {
	cmd := application.ListCommand{Principal: principal}
	startRaw := strings.TrimSpace(query.Get("start_date"))
	endRaw := strings.TrimSpace(query.Get("end_date"))

	if startRaw != "" && endRaw != "" {
		vErr := &application.ValidationError{}
		from, err := parseDate(startRaw, h.loc)
		if err != nil {
			addFieldError(vErr, "start_date", err.Error())
		}
		to, err := parseDate(endRaw, h.loc)
		if err != nil {
			addFieldError(vErr, "end_date", err.Error())
		}
		if len(vErr.FieldErrors) > 0 {
			return cmd, vErr
		}
		cmd.From, cmd.To = &from, &to
		return cmd, nil
	}

	if query.Get("view_type") == "list" {
		cmd.Upcoming = true
	}
	return cmd, nil
}

// Get handles GET /api/reservations/:id.
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := h.reservationID(w, r, ps)
	if !ok {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	result, err := h.commands.Execute(r.Context(), application.GetCommand{Principal: principal, ID: id})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(*result.Reservation)})
}

// Create handles POST /api/reservations.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	draft, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	result, err := h.commands.Execute(r.Context(), application.CreateCommand{Principal: principal, Draft: draft})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationResponse{
		Message:     "Reservation created successfully",
		Reservation: toReservationDTO(*result.Reservation),
	})
}

// Update handles PUT /api/reservations/:id. The reservation is loaded and
// authorized before the body is validated, so the body is decoded leniently
// and field problems travel with the command.
func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := h.reservationID(w, r, ps)
	if !ok {
		return
	}
	draft, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	result, err := h.commands.Execute(r.Context(), application.UpdateCommand{Principal: principal, ID: id, Draft: draft})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{
		Message:     "Reservation updated successfully",
		Reservation: toReservationDTO(*result.Reservation),
	})
}

// Delete handles DELETE /api/reservations/:id.
func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := h.reservationID(w, r, ps)
	if !ok {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	if _, err := h.commands.Execute(r.Context(), application.DeleteCommand{Principal: principal, ID: id}); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, messageResponse{Message: "Reservation deleted successfully"})
}

func (h *ReservationHandler) reservationID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (int64, bool) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil || id <= 0 {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeValidation, errInvalidReservation)
		return 0, false
	}
	return id, true
}

// decodeDraft parses the body. Malformed JSON is rejected here. Missing
// times are left zero and unparsable ones are carried in InputErrors, so the
// service reports both after its existence and authorization checks.
func (h *ReservationHandler) decodeDraft(w http.ResponseWriter, r *http.Request) (application.ReservationDraft, bool) {
	var req reservationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		handlerLogger(r.Context(), h.logger, "ReservationHandler", "decode", "error_kind", "bad_request").
			InfoContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeValidation, errBadRequestBody)
		return application.ReservationDraft{}, false
	}

	draft := application.ReservationDraft{
		Title:         req.Title,
		Description:   req.Description,
		IsCompanyWide: bool(req.IsCompanyWide),
	}
	if strings.TrimSpace(req.Date) != "" {
		date, err := parseDate(req.Date, h.loc)
		if err != nil {
			addInputError(&draft, "date", err.Error())
		}
		draft.Date = date
	}
	if strings.TrimSpace(req.StartDatetime) != "" {
		start, err := parseDateTime(req.StartDatetime, h.loc)
		if err != nil {
			addInputError(&draft, "start_datetime", err.Error())
		}
		draft.Start = start
	}
	if strings.TrimSpace(req.EndDatetime) != "" {
		end, err := parseDateTime(req.EndDatetime, h.loc)
		if err != nil {
			addInputError(&draft, "end_datetime", err.Error())
		}
		draft.End = end
	}
	return draft, true
}

func addInputError(draft *application.ReservationDraft, field, message string) {
	if draft.InputErrors == nil {
		draft.InputErrors = make(map[string]string)
	}
	draft.InputErrors[field] = message
}

func addFieldError(vErr *application.ValidationError, field, message string) {
	if vErr.FieldErrors == nil {
		vErr.FieldErrors = make(map[string]string)
	}
	if _, exists := vErr.FieldErrors[field]; exists {
		return
	}
	vErr.FieldErrors[field] = message
	if vErr.Message == "" {
		vErr.Message = message
	}
}

// flexBool accepts JSON booleans as well as 0/1 numbers and strings.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.Trim(data, `"`)) {
	case "true", "1":
		*b = true
	case "false", "0", "", "null":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

type reservationRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Date          string   `json:"date"`
	StartDatetime string   `json:"start_datetime"`
	EndDatetime   string   `json:"end_datetime"`
	IsCompanyWide flexBool `json:"is_company_wide"`
}

type reservationDTO struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"user_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Date           string `json:"date"`
	StartDatetime  string `json:"start_datetime"`
	EndDatetime    string `json:"end_datetime"`
	IsCompanyWide  bool   `json:"is_company_wide"`
	UserName       string `json:"user_name"`
	DepartmentName string `json:"department_name,omitempty"`
	DefaultColor   string `json:"default_color,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

func toReservationDTO(view application.ReservationView) reservationDTO {
	return reservationDTO{
		ID:             view.ID,
		UserID:         view.OwnerUserID,
		Title:          view.Title,
		Description:    view.Description,
		Date:           view.Date.Format(time.DateOnly),
		StartDatetime:  view.Start.Format(wireDateTime),
		EndDatetime:    view.End.Format(wireDateTime),
		IsCompanyWide:  view.IsCompanyWide,
		UserName:       view.UserName,
		DepartmentName: view.DepartmentName,
		DefaultColor:   view.DefaultColor,
		CreatedAt:      view.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      view.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type listResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type reservationResponse struct {
	Message     string         `json:"message,omitempty"`
	Reservation reservationDTO `json:"reservation"`
}

type messageResponse struct {
	Message string `json:"message"`
}
