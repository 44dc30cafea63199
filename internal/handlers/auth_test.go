package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shiftline/shiftline/internal/auth"
	"github.com/shiftline/shiftline/internal/models"
	"github.com/shiftline/shiftline/internal/services"
	pkghttp "github.com/shiftline/shiftline/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAuthService scripts the service layer so the handler's HTTP
// behavior can be tested in isolation.
type stubAuthService struct {
	loginResult *services.LoginResult
	loginErr    error
	verifyErr   error
	resendErr   error
	resentID    string
	loggedOut   bool
}

func (s *stubAuthService) Login(_ context.Context, username, password, ip string) (*services.LoginResult, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return s.loginResult, nil
}

func (s *stubAuthService) CompleteMFALogin(_ context.Context, challengeID, code, ip string) (*services.LoginResult, error) {
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return s.loginResult, nil
}

func (s *stubAuthService) ResendMFACode(_ context.Context, challengeID string) error {
	if s.resendErr != nil {
		return s.resendErr
	}
	s.resentID = challengeID
	return nil
}

func (s *stubAuthService) Logout(_ *models.SessionClaims, _ string) {
	s.loggedOut = true
}

func newAuthHandler(stub *stubAuthService) *AuthHandler {
	return NewAuthHandler(stub, auth.CookieConfig{Secure: true}, &pkghttp.IPConfig{})
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestLoginHandler_SetsSessionCookie(t *testing.T) {
	stub := &stubAuthService{loginResult: &services.LoginResult{
		Token: "signed-token",
		User:  &services.UserResponse{ID: "user-1", Username: "alice", Role: "ADMIN"},
	}}
	handler := newAuthHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"alice","password":"Str0ngPassw0rd"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	assert.Equal(t, "signed-token", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, auth.SessionCookieMaxAge, cookie.MaxAge)

	var resp LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "alice", resp.User.Username)
	assert.False(t, resp.MFARequired)
}

func TestLoginHandler_MFAChallengeWithoutCookie(t *testing.T) {
	stub := &stubAuthService{loginResult: &services.LoginResult{
		MFARequired: true,
		ChallengeID: "ch-1",
		MethodType:  models.MFAMethodAuthenticator,
	}}
	handler := newAuthHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"alice","password":"Str0ngPassw0rd"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, sessionCookie(t, rec), "no session cookie until the challenge completes")

	var resp LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.MFARequired)
	assert.Equal(t, "ch-1", resp.ChallengeID)
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{loginErr: models.ErrUnauthorized}
	handler := newAuthHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"alice","password":"wrong"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessionCookie(t, rec))
}

func TestLoginHandler_RateLimited(t *testing.T) {
	stub := &stubAuthService{loginErr: &services.RateLimitedError{RetryAfter: 10 * time.Minute}}
	handler := newAuthHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"alice","password":"Str0ngPassw0rd"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestLoginHandler_MalformedBody(t *testing.T) {
	handler := newAuthHandler(&stubAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandler_MissingFields(t *testing.T) {
	handler := newAuthHandler(&stubAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"alice"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyMFAHandler_SetsCookieOnSuccess(t *testing.T) {
	stub := &stubAuthService{loginResult: &services.LoginResult{
		Token: "signed-token",
		User:  &services.UserResponse{ID: "user-1", Username: "alice"},
	}}
	handler := newAuthHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/mfa/verify",
		strings.NewReader(`{"challenge_id":"ch-1","code":"123456"}`))
	rec := httptest.NewRecorder()
	handler.VerifyMFA(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	assert.Equal(t, "signed-token", cookie.Value)
}

func TestVerifyMFAHandler_ExhaustedAttempts(t *testing.T) {
	stub := &stubAuthService{verifyErr: models.ErrMFAAttemptsExhausted}
	handler := newAuthHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/mfa/verify",
		strings.NewReader(`{"challenge_id":"ch-1","code":"000000"}`))
	rec := httptest.NewRecorder()
	handler.VerifyMFA(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResendMFAHandler_SendsCode(t *testing.T) {
	stub := &stubAuthService{}
	handler := newAuthHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/mfa/resend",
		strings.NewReader(`{"challenge_id":"ch-1"}`))
	rec := httptest.NewRecorder()
	handler.ResendMFA(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ch-1", stub.resentID)
	assert.Nil(t, sessionCookie(t, rec))
}

func TestResendMFAHandler_NonEmailChallenge(t *testing.T) {
	stub := &stubAuthService{resendErr: models.ErrBadRequest}
	handler := newAuthHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/mfa/resend",
		strings.NewReader(`{"challenge_id":"ch-1"}`))
	rec := httptest.NewRecorder()
	handler.ResendMFA(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResendMFAHandler_UnknownChallenge(t *testing.T) {
	stub := &stubAuthService{resendErr: models.ErrMFAChallengeNotFound}
	handler := newAuthHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/mfa/resend",
		strings.NewReader(`{"challenge_id":"gone"}`))
	rec := httptest.NewRecorder()
	handler.ResendMFA(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutHandler_ClearsCookie(t *testing.T) {
	stub := &stubAuthService{}
	handler := newAuthHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	ctx := context.WithValue(req.Context(), auth.ClaimsContextKey, &models.SessionClaims{
		UserID:    "user-1",
		CompanyID: "company-1",
	})
	rec := httptest.NewRecorder()
	handler.Logout(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, stub.loggedOut)

	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, -1, cookie.MaxAge, "serialized as Max-Age=0 to delete the cookie")
}
