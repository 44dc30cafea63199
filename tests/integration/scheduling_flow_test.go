package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createEmployee provisions a user in the admin's company and returns
// the new employee's credentials.
func createEmployee(t *testing.T, ip string, adminSession *http.Cookie, suffix, role string) (username, password string) {
	t.Helper()

	username, password = TestCredentials(suffix)
	body := map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": password,
		"name":     "Employee " + suffix,
	}
	if role != "" {
		body["role"] = role
	}

	resp, err := testServer.RequestAs(http.MethodPost, "/api/v1/employees", ip, adminSession, body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return username, password
}

func TestRoleGateOnManagementRoutes(t *testing.T) {
	requireIntegration(t)
	adminIP := TestClientIP()

	adminUser, adminPass := registerCompany(t, adminIP, "rolegate")
	adminSession := loginSession(t, adminIP, adminUser, adminPass)

	empUser, empPass := createEmployee(t, adminIP, adminSession, "rolegate-emp", "")
	mgrUser, mgrPass := createEmployee(t, adminIP, adminSession, "rolegate-mgr", "MANAGER")

	empIP := TestClientIP()
	empSession := loginSession(t, empIP, empUser, empPass)
	mgrIP := TestClientIP()
	mgrSession := loginSession(t, mgrIP, mgrUser, mgrPass)

	deptBody := map[string]string{"name": "Front Desk"}

	// Employees can read but not manage
	resp, err := testServer.RequestAs(http.MethodPost, "/api/v1/departments", empIP, empSession, deptBody)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = testServer.RequestAs(http.MethodGet, "/api/v1/departments", empIP, empSession, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Managers can manage schedules
	resp, err = testServer.RequestAs(http.MethodPost, "/api/v1/departments", mgrIP, mgrSession, deptBody)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// But company settings stay admin only
	companyBody := map[string]interface{}{"name": "Renamed Co", "timezone": "UTC", "week_start": 0}
	resp, err = testServer.RequestAs(http.MethodPut, "/api/v1/company", mgrIP, mgrSession, companyBody)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = testServer.RequestAs(http.MethodPut, "/api/v1/company", adminIP, adminSession, companyBody)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAbsenceLifecycle(t *testing.T) {
	requireIntegration(t)
	adminIP := TestClientIP()

	adminUser, adminPass := registerCompany(t, adminIP, "absence")
	adminSession := loginSession(t, adminIP, adminUser, adminPass)

	empUser, empPass := createEmployee(t, adminIP, adminSession, "absence-emp", "")
	empIP := TestClientIP()
	empSession := loginSession(t, empIP, empUser, empPass)

	// Employee files a request
	resp, err := testServer.RequestAs(http.MethodPost, "/api/v1/absences", empIP, empSession, map[string]string{
		"type":       "vacation",
		"start_date": "2026-09-07",
		"end_date":   "2026-09-11",
		"reason":     "Family trip",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]interface{}
	require.NoError(t, ParseJSONResponse(resp, &created))
	absenceID, _ := created["id"].(string)
	require.NotEmpty(t, absenceID)
	assert.Equal(t, "pending", created["status"])

	// Employees cannot decide, not even their own
	resp, err = testServer.RequestAs(http.MethodPost, "/api/v1/absences/"+absenceID+"/decide", empIP, empSession,
		map[string]bool{"approve": true})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Admin approves
	resp, err = testServer.RequestAs(http.MethodPost, "/api/v1/absences/"+absenceID+"/decide", adminIP, adminSession,
		map[string]bool{"approve": true})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decided map[string]interface{}
	require.NoError(t, ParseJSONResponse(resp, &decided))
	assert.Equal(t, "approved", decided["status"])

	// Re-deciding a settled request conflicts
	resp, err = testServer.RequestAs(http.MethodPost, "/api/v1/absences/"+absenceID+"/decide", adminIP, adminSession,
		map[string]bool{"approve": false})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The employee sees the decision in their own listing
	resp, err = testServer.RequestAs(http.MethodGet, "/api/v1/absences", empIP, empSession, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed []map[string]interface{}
	require.NoError(t, ParseJSONResponse(resp, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "approved", listed[0]["status"])
}
