package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shiftline/shiftline/internal/auth"
	"github.com/shiftline/shiftline/internal/models"
	"github.com/shiftline/shiftline/internal/services"
	pkghttp "github.com/shiftline/shiftline/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, username, password, ipAddress string) (*services.LoginResult, error)
	CompleteMFALogin(ctx context.Context, challengeID, code, ipAddress string) (*services.LoginResult, error)
	ResendMFACode(ctx context.Context, challengeID string) error
	Logout(claims *models.SessionClaims, ipAddress string)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	cookies  auth.CookieConfig
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, cookies auth.CookieConfig, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		cookies:  cookies,
		ipConfig: ipConfig,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// VerifyMFARequest represents the request body for finishing a login
// that required a second factor.
type VerifyMFARequest struct {
	ChallengeID string `json:"challenge_id" validate:"required"`
	Code        string `json:"code" validate:"required,min=6,max=8"`
}

// ResendMFARequest asks for a fresh code on an open email challenge.
type ResendMFARequest struct {
	ChallengeID string `json:"challenge_id" validate:"required"`
}

// LoginResponse is returned by login and MFA verification. Exactly one
// of User or ChallengeID is set.
type LoginResponse struct {
	User        *services.UserResponse `json:"user,omitempty"`
	MFARequired bool                   `json:"mfa_required,omitempty"`
	ChallengeID string                 `json:"challenge_id,omitempty"`
	MethodType  string                 `json:"method_type,omitempty"`
}

// Login checks credentials and either sets the session cookie or
// returns an MFA challenge descriptor with no cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	result, err := h.service.Login(r.Context(), req.Username, req.Password, ipAddress)
	if err != nil {
		h.writeLoginError(w, err)
		return
	}

	h.writeLoginResult(w, result)
}

// VerifyMFA completes a challenge opened by Login and sets the session
// cookie on success.
func (h *AuthHandler) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req VerifyMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	result, err := h.service.CompleteMFALogin(r.Context(), req.ChallengeID, req.Code, ipAddress)
	if err != nil {
		h.writeLoginError(w, err)
		return
	}

	h.writeLoginResult(w, result)
}

// ResendMFA sends a new code for an open email challenge. Attempts and
// expiry restart with the new code.
func (h *AuthHandler) ResendMFA(w http.ResponseWriter, r *http.Request) {
	var req ResendMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ResendMFACode(r.Context(), req.ChallengeID); err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Codes can only be resent for email challenges")
			return
		}
		h.writeLoginError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Code sent"})
}

// Logout clears the session cookie. Always succeeds; there is no
// server-side session to tear down.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims := auth.GetClaimsFromContext(r.Context()); claims != nil {
		h.service.Logout(claims, pkghttp.ExtractClientIP(r, h.ipConfig))
	}

	auth.ClearSessionCookie(w, h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me returns the authenticated caller's session claims.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r.Context())
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"user_id":    claims.UserID,
		"company_id": claims.CompanyID,
		"username":   claims.Username,
		"email":      claims.Email,
		"role":       string(claims.Role),
	})
}

func (h *AuthHandler) writeLoginResult(w http.ResponseWriter, result *services.LoginResult) {
	if result.MFARequired {
		pkghttp.WriteJSON(w, http.StatusOK, &LoginResponse{
			MFARequired: true,
			ChallengeID: result.ChallengeID,
			MethodType:  result.MethodType,
		})
		return
	}

	auth.SetSessionCookie(w, result.Token, h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, &LoginResponse{User: result.User})
}

func (h *AuthHandler) writeLoginError(w http.ResponseWriter, err error) {
	var rateErr *services.RateLimitedError

	switch {
	case errors.As(err, &rateErr):
		pkghttp.WriteTooManyRequests(w, "Too many attempts. Please try again later.", rateErr.RetryAfter)
	case errors.Is(err, models.ErrRateLimitExceeded):
		pkghttp.WriteTooManyRequests(w, "Too many attempts. Please try again later.", 0)
	case errors.Is(err, models.ErrMFAChallengeNotFound),
		errors.Is(err, models.ErrMFAChallengeExpired):
		pkghttp.WriteUnauthorized(w, "Challenge expired or not found")
	case errors.Is(err, models.ErrMFAAttemptsExhausted):
		pkghttp.WriteUnauthorized(w, "Too many incorrect codes")
	case errors.Is(err, models.ErrMFAInvalidCode),
		errors.Is(err, models.ErrMFAMethodNotVerified),
		errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
