package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shiftline/shiftline/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenManager(t *testing.T) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager("a-long-enough-test-secret-value!", time.Hour)
	require.NoError(t, err)
	return tm
}

func sessionRequest(t *testing.T, tm *TokenManager, user *models.User) *http.Request {
	t.Helper()
	token, err := tm.Issue(user)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/protected", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	return r
}

func claimsEcho(captured **models.SessionClaims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestSessionMiddleware_MissingCookie(t *testing.T) {
	tm := newTestTokenManager(t)
	var captured *models.SessionClaims

	handler := SessionMiddleware(tm)(claimsEcho(&captured))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, captured)
}

func TestSessionMiddleware_InvalidToken(t *testing.T) {
	tm := newTestTokenManager(t)
	var captured *models.SessionClaims

	r := httptest.NewRequest("GET", "/protected", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"})

	handler := SessionMiddleware(tm)(claimsEcho(&captured))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, captured)
}

func TestSessionMiddleware_ValidTokenInjectsClaims(t *testing.T) {
	tm := newTestTokenManager(t)
	var captured *models.SessionClaims

	user := &models.User{ID: "u-1", CompanyID: "c-1", Username: "alice", Role: models.RoleManager}
	handler := SessionMiddleware(tm)(claimsEcho(&captured))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, sessionRequest(t, tm, user))

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "u-1", captured.UserID)
	assert.Equal(t, "c-1", captured.CompanyID)
	assert.Equal(t, models.RoleManager, captured.Role)
}

func TestRequireRole_StrictMembership(t *testing.T) {
	tm := newTestTokenManager(t)

	tests := []struct {
		name       string
		gate       []models.Role
		role       models.Role
		wantStatus int
	}{
		{"admin passes admin+manager gate", []models.Role{models.RoleAdmin, models.RoleManager}, models.RoleAdmin, http.StatusOK},
		{"manager passes admin+manager gate", []models.Role{models.RoleAdmin, models.RoleManager}, models.RoleManager, http.StatusOK},
		{"employee rejected by admin+manager gate", []models.Role{models.RoleAdmin, models.RoleManager}, models.RoleEmployee, http.StatusForbidden},
		// Strict membership: outranking a listed role is not enough
		{"manager rejected by admin+employee gate", []models.Role{models.RoleAdmin, models.RoleEmployee}, models.RoleManager, http.StatusForbidden},
		{"unknown role rejected everywhere", []models.Role{models.RoleEmployee}, models.Role("INTERN"), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &models.User{ID: "u-1", CompanyID: "c-1", Username: "alice", Role: tt.role}

			handler := SessionMiddleware(tm)(RequireRole(tt.gate...)(http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) },
			)))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, sessionRequest(t, tm, user))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRequireRole_WithoutSessionMiddleware(t *testing.T) {
	handler := RequireRole(models.RoleAdmin)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) },
	))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleRanks(t *testing.T) {
	assert.Equal(t, 3, models.RoleAdmin.Rank())
	assert.Equal(t, 2, models.RoleManager.Rank())
	assert.Equal(t, 1, models.RoleEmployee.Rank())
	assert.Equal(t, 0, models.Role("INTERN").Rank())
}

func TestSessionCookieAttributes(t *testing.T) {
	w := httptest.NewRecorder()
	SetSessionCookie(w, "tok", CookieConfig{Secure: true})

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, SessionCookieName, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 604800, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestClearSessionCookie(t *testing.T) {
	w := httptest.NewRecorder()
	ClearSessionCookie(w, CookieConfig{Secure: true})

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.LessOrEqual(t, cookies[0].MaxAge, 0)
}
