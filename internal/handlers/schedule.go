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

const dateLayout = "2006-01-02"

// ScheduleHandler handles departments, shift templates and shifts.
type ScheduleHandler struct {
	service *services.ScheduleService
}

func NewScheduleHandler(service *services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// DepartmentRequest creates or renames a department.
type DepartmentRequest struct {
	Name string `json:"name" validate:"required,min=1,max=128"`
}

// TemplateRequest creates or updates a shift template.
type TemplateRequest struct {
	Name         string  `json:"name" validate:"required,min=1,max=128"`
	DepartmentID *string `json:"department_id" validate:"omitempty,uuid"`
	StartTime    string  `json:"start_time" validate:"required"`
	EndTime      string  `json:"end_time" validate:"required"`
	BreakMinutes int     `json:"break_minutes" validate:"gte=0,lte=1440"`
	Color        string  `json:"color" validate:"omitempty,max=16"`
}

// ShiftRequest creates or updates a shift. Date is "YYYY-MM-DD".
type ShiftRequest struct {
	DepartmentID *string `json:"department_id" validate:"omitempty,uuid"`
	TemplateID   *string `json:"template_id" validate:"omitempty,uuid"`
	EmployeeID   *string `json:"employee_id" validate:"omitempty,uuid"`
	WorkDate     string  `json:"work_date" validate:"required,datetime=2006-01-02"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	BreakMinutes int     `json:"break_minutes" validate:"gte=0,lte=1440"`
	Notes        string  `json:"notes" validate:"max=1024"`
}

// Departments

func (h *ScheduleHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	var req DepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	dept, err := h.service.CreateDepartment(r.Context(), claims.CompanyID, req.Name)
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, dept)
}

func (h *ScheduleHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	depts, err := h.service.ListDepartments(r.Context(), claims.CompanyID)
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, depts)
}

func (h *ScheduleHandler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	var req DepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	dept, err := h.service.UpdateDepartment(r.Context(), claims.CompanyID, chi.URLParam(r, "departmentID"), req.Name)
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, dept)
}

func (h *ScheduleHandler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	if err := h.service.DeleteDepartment(r.Context(), claims.CompanyID, chi.URLParam(r, "departmentID")); err != nil {
		writeScheduleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Shift templates

func (h *ScheduleHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	tpl, err := h.service.CreateTemplate(r.Context(), claims.CompanyID, templateInputFromRequest(req))
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, tpl)
}

func (h *ScheduleHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	tpls, err := h.service.ListTemplates(r.Context(), claims.CompanyID)
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, tpls)
}

func (h *ScheduleHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	tpl, err := h.service.UpdateTemplate(r.Context(), claims.CompanyID, chi.URLParam(r, "templateID"), templateInputFromRequest(req))
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, tpl)
}

func (h *ScheduleHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	if err := h.service.DeleteTemplate(r.Context(), claims.CompanyID, chi.URLParam(r, "templateID")); err != nil {
		writeScheduleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Shifts

func (h *ScheduleHandler) CreateShift(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	var req ShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	input, err := shiftInputFromRequest(req)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid work_date")
		return
	}

	shift, err := h.service.CreateShift(r.Context(), claims.CompanyID, input)
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, shift)
}

// ListShifts returns shifts filtered by optional department_id,
// employee_id, from and to query parameters.
func (h *ScheduleHandler) ListShifts(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())
	query := r.URL.Query()

	filter := models.ShiftFilter{
		CompanyID:    claims.CompanyID,
		DepartmentID: query.Get("department_id"),
		EmployeeID:   query.Get("employee_id"),
	}

	if from := query.Get("from"); from != "" {
		parsed, err := time.Parse(dateLayout, from)
		if err != nil {
			pkghttp.WriteBadRequest(w, "Invalid from date")
			return
		}
		filter.From = parsed
	}
	if to := query.Get("to"); to != "" {
		parsed, err := time.Parse(dateLayout, to)
		if err != nil {
			pkghttp.WriteBadRequest(w, "Invalid to date")
			return
		}
		filter.To = parsed
	}

	shifts, err := h.service.ListShifts(r.Context(), filter)
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, shifts)
}

func (h *ScheduleHandler) GetShift(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	shift, err := h.service.GetShift(r.Context(), claims.CompanyID, chi.URLParam(r, "shiftID"))
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, shift)
}

func (h *ScheduleHandler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	var req ShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	input, err := shiftInputFromRequest(req)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid work_date")
		return
	}

	shift, err := h.service.UpdateShift(r.Context(), claims.CompanyID, chi.URLParam(r, "shiftID"), input)
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, shift)
}

func (h *ScheduleHandler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	if err := h.service.DeleteShift(r.Context(), claims.CompanyID, chi.URLParam(r, "shiftID")); err != nil {
		writeScheduleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func templateInputFromRequest(req TemplateRequest) services.TemplateInput {
	return services.TemplateInput{
		Name:         req.Name,
		DepartmentID: req.DepartmentID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		BreakMinutes: req.BreakMinutes,
		Color:        req.Color,
	}
}

func shiftInputFromRequest(req ShiftRequest) (services.ShiftInput, error) {
	workDate, err := time.Parse(dateLayout, req.WorkDate)
	if err != nil {
		return services.ShiftInput{}, err
	}

	return services.ShiftInput{
		DepartmentID: req.DepartmentID,
		TemplateID:   req.TemplateID,
		EmployeeID:   req.EmployeeID,
		WorkDate:     workDate,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		BreakMinutes: req.BreakMinutes,
		Notes:        req.Notes,
	}, nil
}

func writeScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Already exists")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
