package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shiftline/shiftline/internal/auth"
	"github.com/shiftline/shiftline/internal/models"
	"github.com/shiftline/shiftline/internal/services"
	pkgauth "github.com/shiftline/shiftline/pkg/auth"
	pkghttp "github.com/shiftline/shiftline/pkg/http"
)

// CompanyHandler handles tenant registration and settings.
type CompanyHandler struct {
	service *services.CompanyService
}

func NewCompanyHandler(service *services.CompanyService) *CompanyHandler {
	return &CompanyHandler{service: service}
}

// RegisterRequest creates a tenant plus its admin owner.
type RegisterRequest struct {
	CompanyName string `json:"company_name" validate:"required,min=1,max=128"`
	Timezone    string `json:"timezone" validate:"omitempty,max=64"`
	WeekStart   int    `json:"week_start" validate:"gte=0,lte=6"`
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	Name        string `json:"name" validate:"required,min=1,max=128"`
}

// UpdateCompanyRequest changes tenant settings.
type UpdateCompanyRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=128"`
	Timezone  string `json:"timezone" validate:"required,max=64"`
	WeekStart int    `json:"week_start" validate:"gte=0,lte=6"`
}

// Register creates a new company and owner. Public endpoint; no
// session is established, the owner signs in afterwards.
func (h *CompanyHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.Register(r.Context(), services.RegistrationInput{
		CompanyName: req.CompanyName,
		Timezone:    req.Timezone,
		WeekStart:   req.WeekStart,
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		OwnerName:   req.Name,
	})
	if err != nil {
		var pwErr *pkgauth.PasswordValidationError
		switch {
		case errors.As(err, &pwErr):
			pkghttp.WriteBadRequest(w, err.Error())
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Username or email already in use")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid request")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, resp)
}

// Get returns the caller's company.
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	company, err := h.service.Get(r.Context(), claims.CompanyID)
	if err != nil {
		writeCompanyError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, company)
}

// Update changes company settings. Admin only (enforced in routing).
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())

	var req UpdateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	company, err := h.service.UpdateSettings(r.Context(), claims.CompanyID, req.Name, req.Timezone, req.WeekStart)
	if err != nil {
		writeCompanyError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, company)
}

func writeCompanyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Company not found")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
