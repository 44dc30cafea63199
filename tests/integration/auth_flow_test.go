package integration

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftline/shiftline/internal/auth"
	"github.com/shiftline/shiftline/internal/models"
)

var (
	testDB     *TestDB
	testServer *TestServer
)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	db, err := SetupTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up test database: %v\n", err)
		os.Exit(1)
	}
	testDB = db
	testServer = NewTestServer(db.DB)

	code := m.Run()

	testServer.Close()
	if err := db.Teardown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to tear down test database: %v\n", err)
	}
	os.Exit(code)
}

func requireIntegration(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

type loginResponse struct {
	User        map[string]interface{} `json:"user"`
	MFARequired bool                   `json:"mfa_required"`
	ChallengeID string                 `json:"challenge_id"`
	MethodType  string                 `json:"method_type"`
}

// registerCompany registers a new tenant through the public endpoint
// and returns the owner's credentials.
func registerCompany(t *testing.T, ip, suffix string) (username, password string) {
	t.Helper()

	username, password = TestCredentials(suffix)
	resp, err := testServer.RequestAs(http.MethodPost, "/api/v1/companies/register", ip, nil, map[string]interface{}{
		"company_name": "Acme " + suffix,
		"timezone":     "Europe/Berlin",
		"week_start":   1,
		"username":     username,
		"email":        username + "@example.com",
		"password":     password,
		"name":         "Owner " + suffix,
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return username, password
}

// login performs a credential login and returns the raw response.
func login(t *testing.T, ip, username, password string) *http.Response {
	t.Helper()

	resp, err := testServer.RequestAs(http.MethodPost, "/api/v1/auth/login", ip, nil, map[string]string{
		"username": username,
		"password": password,
	})
	require.NoError(t, err)
	return resp
}

// loginSession logs in and returns the established session cookie.
func loginSession(t *testing.T, ip, username, password string) *http.Cookie {
	t.Helper()

	resp := login(t, ip, username, password)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookie := ExtractSessionCookie(resp)
	require.NotNil(t, cookie, "expected a session cookie")
	return cookie
}

func TestCompanyRegistrationAndLogin(t *testing.T) {
	requireIntegration(t)
	ip := TestClientIP()

	username, password := registerCompany(t, ip, "reglogin")

	resp := login(t, ip, username, password)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookie := ExtractSessionCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, auth.SessionCookieMaxAge, cookie.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.NotEmpty(t, cookie.Value)

	var body loginResponse
	require.NoError(t, ParseJSONResponse(resp, &body))
	require.NotNil(t, body.User)
	assert.Equal(t, username, body.User["username"])
	assert.Equal(t, "ADMIN", body.User["role"])
	assert.False(t, body.MFARequired)

	// The cookie authenticates subsequent requests
	meResp, err := testServer.RequestAs(http.MethodGet, "/api/v1/auth/me", ip, cookie, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, meResp.StatusCode)

	var me map[string]string
	require.NoError(t, ParseJSONResponse(meResp, &me))
	assert.Equal(t, username, me["username"])
	assert.Equal(t, "ADMIN", me["role"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	requireIntegration(t)
	ip := TestClientIP()

	username, password := registerCompany(t, ip, "badcreds")

	resp := login(t, ip, username, "WrongPassword9")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Nil(t, ExtractSessionCookie(resp))

	resp = login(t, ip, "no-such-user", password)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginRateLimitBlocksCorrectCredentials(t *testing.T) {
	requireIntegration(t)
	ip := TestClientIP()
	ctx := context.Background()

	company, err := SeedCompany(ctx, testDB.Pool, "Rate Limit Co")
	require.NoError(t, err)
	username, password := TestCredentials("ratelimit")
	_, err = SeedUser(ctx, testDB.Pool, company.ID, username, password, models.RoleEmployee)
	require.NoError(t, err)

	// Burn through the window with wrong passwords
	for i := 0; i < 5; i++ {
		resp := login(t, ip, username, "WrongPassword9")
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	// The sixth attempt is rejected even though the password is right
	resp := login(t, ip, username, password)
	defer resp.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Nil(t, ExtractSessionCookie(resp))

	retryAfter, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	require.NoError(t, err)
	assert.Positive(t, retryAfter)

	// A different client is unaffected
	other := login(t, TestClientIP(), username, password)
	defer other.Body.Close()
	assert.Equal(t, http.StatusOK, other.StatusCode)
}

func TestSessionRequiredForProtectedRoutes(t *testing.T) {
	requireIntegration(t)
	ip := TestClientIP()

	resp, err := testServer.RequestAs(http.MethodGet, "/api/v1/auth/me", ip, nil, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	forged := &http.Cookie{Name: auth.SessionCookieName, Value: "not-a-real-token"}
	resp, err = testServer.RequestAs(http.MethodGet, "/api/v1/employees", ip, forged, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutClearsSessionCookie(t *testing.T) {
	requireIntegration(t)
	ip := TestClientIP()

	username, password := registerCompany(t, ip, "logout")
	cookie := loginSession(t, ip, username, password)

	resp, err := testServer.RequestAs(http.MethodPost, "/api/v1/auth/logout", ip, cookie, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cleared := ExtractSessionCookie(resp)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)
}
