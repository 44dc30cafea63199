package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shiftline/shiftline/internal/auth"
	"github.com/shiftline/shiftline/internal/models"
	"github.com/shiftline/shiftline/internal/services"
	pkghttp "github.com/shiftline/shiftline/pkg/http"
)

// MFAHandler handles second-factor management for the authenticated
// user. Login-time challenge verification lives on AuthHandler because
// it runs before a session exists.
type MFAHandler struct {
	mfa   *services.MFAService
	users UserLookup
}

// UserLookup resolves session claims to a full user record.
type UserLookup interface {
	GetByIDGlobal(ctx context.Context, id string) (*models.User, error)
}

func NewMFAHandler(mfa *services.MFAService, users UserLookup) *MFAHandler {
	return &MFAHandler{mfa: mfa, users: users}
}

func (h *MFAHandler) currentUser(w http.ResponseWriter, r *http.Request) *models.User {
	claims := auth.GetClaimsFromContext(r.Context())
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return nil
	}

	user, err := h.users.GetByIDGlobal(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return nil
	}
	return user
}

// Enroll creates a new unverified method.
func (h *MFAHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	var req EnrollMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	var resp *services.EnrollmentResponse
	var err error
	switch req.Type {
	case models.MFAMethodAuthenticator:
		resp, err = h.mfa.EnrollAuthenticator(r.Context(), user, req.DisplayName)
	case models.MFAMethodEmail:
		if req.EmailAddress == "" {
			pkghttp.WriteBadRequest(w, "email_address is required for email methods")
			return
		}
		resp, err = h.mfa.EnrollEmail(r.Context(), user, req.DisplayName, req.EmailAddress)
	}

	if err != nil {
		writeMFAError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, resp)
}

// Confirm verifies a pending method with a code and activates it.
func (h *MFAHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	var req ConfirmMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	method, err := h.mfa.ConfirmEnrollment(r.Context(), user, chi.URLParam(r, "methodID"), req.Code)
	if err != nil {
		writeMFAError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, method)
}

// Resend issues a fresh enrollment code for a pending email method.
func (h *MFAHandler) Resend(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	if err := h.mfa.ResendEnrollmentCode(r.Context(), user.ID, chi.URLParam(r, "methodID")); err != nil {
		writeMFAError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Code sent"})
}

// List returns the caller's enrolled methods.
func (h *MFAHandler) List(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	methods, err := h.mfa.ListMethods(r.Context(), user.ID)
	if err != nil {
		writeMFAError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, methods)
}

// SetDefault marks a verified method as the one challenged at login.
func (h *MFAHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	if err := h.mfa.SetDefaultMethod(r.Context(), user, chi.URLParam(r, "methodID")); err != nil {
		writeMFAError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Default method updated"})
}

// Remove deletes an enrolled method.
func (h *MFAHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	if err := h.mfa.RemoveMethod(r.Context(), user, chi.URLParam(r, "methodID")); err != nil {
		writeMFAError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeMFAError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrMFAMethodNotFound):
		pkghttp.WriteNotFound(w, "Method not found")
	case errors.Is(err, models.ErrMFAInvalidCode):
		pkghttp.WriteBadRequest(w, "Invalid code")
	case errors.Is(err, models.ErrMFAChallengeExpired):
		pkghttp.WriteBadRequest(w, "Code expired")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Method already verified")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
