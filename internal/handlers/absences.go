package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shiftline/shiftline/internal/auth"
	"github.com/shiftline/shiftline/internal/models"
	"github.com/shiftline/shiftline/internal/services"
	pkghttp "github.com/shiftline/shiftline/pkg/http"
)

// AbsenceHandler handles time-off requests.
type AbsenceHandler struct {
	service *services.AbsenceService
}

func NewAbsenceHandler(service *services.AbsenceService) *AbsenceHandler {
	return &AbsenceHandler{service: service}
}

// AbsenceRequest files a time-off request for the caller.
type AbsenceRequest struct {
	Type      string `json:"type" validate:"required,oneof=vacation sick other"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason" validate:"max=1024"`
}

// DecideAbsenceRequest approves or rejects a pending request.
type DecideAbsenceRequest struct {
	Approve bool `json:"approve"`
}

// Create files a request for the calling employee. Employees cannot
// file on behalf of others.
func (h *AbsenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	var req AbsenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid start_date")
		return
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid end_date")
		return
	}

	absence, err := h.service.Create(r.Context(), claims.CompanyID, claims.UserID, services.AbsenceInput{
		Type:      req.Type,
		StartDate: startDate,
		EndDate:   endDate,
		Reason:    req.Reason,
	})
	if err != nil {
		writeAbsenceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, absence)
}

// List returns the tenant's requests. Employees see only their own;
// managers and admins may filter by employee_id or see all.
func (h *AbsenceHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	employeeID := r.URL.Query().Get("employee_id")
	if claims.Role == models.RoleEmployee {
		employeeID = claims.UserID
	}

	absences, err := h.service.List(r.Context(), claims.CompanyID, employeeID)
	if err != nil {
		writeAbsenceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, absences)
}

// Decide approves or rejects a pending request. Manager/admin only
// (enforced in routing).
func (h *AbsenceHandler) Decide(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	var req DecideAbsenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	absence, err := h.service.Decide(r.Context(), claims.CompanyID, chi.URLParam(r, "absenceID"), req.Approve, claims)
	if err != nil {
		writeAbsenceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, absence)
}

// Delete withdraws a request. Employees withdraw only their own
// pending requests; managers and admins may remove any.
func (h *AbsenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	ownerID := ""
	if claims.Role == models.RoleEmployee {
		ownerID = claims.UserID
	}

	if err := h.service.Delete(r.Context(), claims.CompanyID, chi.URLParam(r, "absenceID"), ownerID); err != nil {
		writeAbsenceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeAbsenceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Absence request not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Request already decided")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Insufficient permissions")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
