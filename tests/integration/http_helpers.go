package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/shiftline/shiftline/internal/auth"
	"github.com/shiftline/shiftline/internal/config"
	"github.com/shiftline/shiftline/internal/database"
	"github.com/shiftline/shiftline/internal/handlers"
	middlewareCustom "github.com/shiftline/shiftline/internal/middleware"
	"github.com/shiftline/shiftline/internal/ratelimit"
	"github.com/shiftline/shiftline/internal/repositories"
	"github.com/shiftline/shiftline/internal/routes"
	"github.com/shiftline/shiftline/internal/services"
	pkghttp "github.com/shiftline/shiftline/pkg/http"
	pkglogger "github.com/shiftline/shiftline/pkg/logger"
)

// SentEmail represents a captured MFA code email
type SentEmail struct {
	To   string
	Code string
}

// MockEmailService captures sent emails for test assertions
type MockEmailService struct {
	SentEmails []SentEmail
	mu         sync.Mutex
}

// SendMFACode records the email instead of sending it
func (m *MockEmailService) SendMFACode(ctx context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentEmails = append(m.SentEmails, SentEmail{To: email, Code: code})
	return nil
}

// GetLastEmail returns the most recent email sent
func (m *MockEmailService) GetLastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.SentEmails) == 0 {
		return nil
	}
	return &m.SentEmails[len(m.SentEmails)-1]
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server       *httptest.Server
	DB           *database.DB
	EmailService *MockEmailService
	Config       *config.Config

	// Dependency references for inspection in tests
	TokenManager *auth.TokenManager
	Challenges   *repositories.MemoryChallengeStore
	logger       *slog.Logger
}

// NewTestServer initializes a complete HTTP server with real database + mocked email
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			SessionSecret:   "test-secret-32-characters-long-for-testing",
			SessionLifetime: 7 * 24 * time.Hour,
			CookieSecure:    false,
		},
		RateLimit: config.RateLimitConfig{
			LoginLimit:  5,
			LoginWindow: 15 * time.Minute,
		},
		MFA: config.MFAConfig{
			EncryptionKey: []byte("test-mfa-encryption-key-32-chars"),
			Issuer:        "ShiftlineTest",
			ChallengeTTL:  5 * time.Minute,
			MaxAttempts:   3,
		},
		Server: config.ServerConfig{
			Port: "0",
			Env:  "test",
			// Trust loopback so tests can pick their own client IP
			// via X-Forwarded-For and get isolated limiter buckets.
			TrustedProxies: []string{"127.0.0.0/8"},
		},
	}

	companyRepo, userRepo, departmentRepo, templateRepo, shiftRepo, absenceRepo, mfaMethodRepo :=
		InitializeRepositories(db)

	mockEmail := &MockEmailService{
		SentEmails: []SentEmail{},
	}

	rateLimitStore := ratelimit.NewMemoryStore()
	challengeStore := repositories.NewMemoryChallengeStore()

	tokenManager, err := auth.NewTokenManager(cfg.Auth.SessionSecret, cfg.Auth.SessionLifetime)
	if err != nil {
		panic("failed to create token manager: " + err.Error())
	}

	totpManager, err := auth.NewTOTPManager(cfg.MFA.EncryptionKey, cfg.MFA.Issuer)
	if err != nil {
		panic("failed to create TOTP manager: " + err.Error())
	}

	auditLogger := pkglogger.NewAuditLogger(logger)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{})

	mfaService := services.NewMFAService(mfaMethodRepo, challengeStore, totpManager, mockEmail,
		services.MFAPolicy{ChallengeTTL: cfg.MFA.ChallengeTTL, MaxAttempts: cfg.MFA.MaxAttempts},
		logger, auditLogger)
	authService := services.NewAuthService(userRepo, tokenManager,
		ratelimit.NewLimiter(rateLimitStore), mfaService, timingDelay,
		services.LoginPolicy{Limit: cfg.RateLimit.LoginLimit, Window: cfg.RateLimit.LoginWindow},
		logger, auditLogger)
	companyService := services.NewCompanyService(companyRepo, logger, auditLogger)
	userService := services.NewUserService(userRepo, logger, auditLogger)
	scheduleService := services.NewScheduleService(departmentRepo, templateRepo, shiftRepo, logger)
	absenceService := services.NewAbsenceService(absenceRepo, logger, auditLogger)

	cookieConfig := auth.CookieConfig{Secure: cfg.Auth.CookieSecure}
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	handlerSet := routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService, cookieConfig, ipConfig),
		MFA:      handlers.NewMFAHandler(mfaService, userRepo),
		Company:  handlers.NewCompanyHandler(companyService),
		Employee: handlers.NewEmployeeHandler(userService),
		Schedule: handlers.NewScheduleHandler(scheduleService),
		Absence:  handlers.NewAbsenceHandler(absenceService),
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		routes.RegisterRoutes(r, handlerSet, tokenManager)
	})

	server := httptest.NewServer(r)

	return &TestServer{
		Server:       server,
		DB:           db,
		EmailService: mockEmail,
		Config:       cfg,
		TokenManager: tokenManager,
		Challenges:   challengeStore,
		logger:       logger,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader *bytes.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestAs makes a request from a specific client IP, optionally
// carrying a session cookie.
func (ts *TestServer) RequestAs(method, path, clientIP string, session *http.Cookie, body interface{}) (*http.Response, error) {
	headers := map[string]string{}
	if clientIP != "" {
		headers["X-Forwarded-For"] = clientIP
	}

	url := ts.Server.URL + path

	var bodyReader *bytes.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if session != nil {
		req.AddCookie(session)
	}

	return http.DefaultClient.Do(req)
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ExtractSessionCookie returns the session cookie set by a response,
// or nil when none was set.
func ExtractSessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

// GetErrorMessage extracts error message from error response
func GetErrorMessage(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if msg, ok := errResp["message"].(string); ok {
		return msg, nil
	}
	return "", nil
}
