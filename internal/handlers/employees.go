package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shiftline/shiftline/internal/auth"
	"github.com/shiftline/shiftline/internal/models"
	"github.com/shiftline/shiftline/internal/services"
	pkgauth "github.com/shiftline/shiftline/pkg/auth"
	pkghttp "github.com/shiftline/shiftline/pkg/http"
)

// EmployeeHandler handles employee account management within the
// caller's tenant.
type EmployeeHandler struct {
	service *services.UserService
}

func NewEmployeeHandler(service *services.UserService) *EmployeeHandler {
	return &EmployeeHandler{service: service}
}

// CreateEmployeeRequest creates an account in the caller's company.
type CreateEmployeeRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN MANAGER EMPLOYEE"`
}

// UpdateEmployeeRequest updates profile fields. Empty fields stay
// unchanged.
type UpdateEmployeeRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
	Name  string `json:"name" validate:"omitempty,min=1,max=128"`
	Role  string `json:"role" validate:"omitempty,oneof=ADMIN MANAGER EMPLOYEE"`
}

// ChangePasswordRequest changes the caller's own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	// Only admins assign roles; managers create plain employees.
	role := models.Role(req.Role)
	if role != "" && role != models.RoleEmployee && claims.Role != models.RoleAdmin {
		pkghttp.WriteForbidden(w, "Insufficient permissions")
		return
	}

	user, err := h.service.Create(r.Context(), claims.CompanyID, services.CreateEmployeeInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     role,
	})
	if err != nil {
		writeEmployeeError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, user)
}

func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	user, err := h.service.Get(r.Context(), claims.CompanyID, chi.URLParam(r, "employeeID"))
	if err != nil {
		writeEmployeeError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, err := h.service.List(r.Context(), claims.CompanyID, limit, offset)
	if err != nil {
		writeEmployeeError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, users)
}

func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	var req UpdateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if req.Role != "" && claims.Role != models.RoleAdmin {
		pkghttp.WriteForbidden(w, "Insufficient permissions")
		return
	}

	user, err := h.service.Update(r.Context(), claims.CompanyID, chi.URLParam(r, "employeeID"),
		services.UpdateEmployeeInput{
			Email: req.Email,
			Name:  req.Name,
			Role:  models.Role(req.Role),
		})
	if err != nil {
		writeEmployeeError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

// ChangePassword lets the caller change their own password.
func (h *EmployeeHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.ChangePassword(r.Context(), claims.CompanyID, claims.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		var pwErr *pkgauth.PasswordValidationError
		switch {
		case errors.As(err, &pwErr):
			pkghttp.WriteBadRequest(w, err.Error())
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Current password is incorrect")
		default:
			writeEmployeeError(w, err)
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	if employeeID == claims.UserID {
		pkghttp.WriteBadRequest(w, "Cannot delete your own account")
		return
	}

	if err := h.service.Delete(r.Context(), claims.CompanyID, employeeID); err != nil {
		writeEmployeeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeEmployeeError(w http.ResponseWriter, err error) {
	var pwErr *pkgauth.PasswordValidationError

	switch {
	case errors.As(err, &pwErr):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Employee not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Username or email already in use")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
