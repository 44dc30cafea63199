package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shiftline/shiftline/internal/auth"
	"github.com/shiftline/shiftline/internal/models"
	"github.com/shiftline/shiftline/internal/ratelimit"
	pkgauth "github.com/shiftline/shiftline/pkg/auth"
	pkglogger "github.com/shiftline/shiftline/pkg/logger"
)

// UserRepository defines the persistence operations the auth service
// needs.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByIDGlobal(ctx context.Context, id string) (*models.User, error)
}

// LoginPolicy holds the rate-limit parameters applied to login
// attempts, keyed by client IP.
type LoginPolicy struct {
	Limit  int
	Window time.Duration
}

// RateLimitedError reports a rejected attempt along with how long the
// caller must wait before the window opens again.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error {
	return models.ErrRateLimitExceeded
}

// AuthService handles authentication business logic
type AuthService struct {
	repo        UserRepository
	tm          *auth.TokenManager
	limiter     *ratelimit.Limiter
	mfa         *MFAService
	timing      *auth.TimingDelay
	policy      LoginPolicy
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	repo UserRepository,
	tm *auth.TokenManager,
	limiter *ratelimit.Limiter,
	mfa *MFAService,
	timing *auth.TimingDelay,
	policy LoginPolicy,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		repo:        repo,
		tm:          tm,
		limiter:     limiter,
		mfa:         mfa,
		timing:      timing,
		policy:      policy,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// LoginResult is the outcome of a credential check. Either Token/User
// are set (session established) or MFARequired is set and the caller
// must finish the challenge before a session exists.
type LoginResult struct {
	Token       string
	User        *UserResponse
	MFARequired bool
	ChallengeID string
	MethodType  string
}

// Login verifies credentials and either issues a session token or
// opens an MFA challenge. Every call counts against the client's
// rate-limit window, successful or not, and failures are padded so
// unknown usernames and wrong passwords are indistinguishable by
// timing.
func (s *AuthService) Login(ctx context.Context, username, password, ipAddress string) (*LoginResult, error) {
	result, err := s.limiter.Check(ctx, ipAddress, s.policy.Limit, s.policy.Window)
	if err != nil {
		// A broken limiter store must not lock every user out.
		s.logger.Error("rate limit check failed, allowing attempt", slog.Any("error", err))
	} else if !result.Allowed {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			IPAddress:     ipAddress,
			FailureReason: "rate_limited",
			Success:       false,
		})
		return nil, &RateLimitedError{RetryAfter: time.Until(result.ResetAt)}
	}

	start := time.Now()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		s.timing.WaitFrom(start)
		return nil, models.ErrUnauthorized
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("login failed: invalid credentials")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				IPAddress:     ipAddress,
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			s.timing.WaitFrom(start)
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user by username", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !pkgauth.VerifyPassword(user.PasswordHash, password) {
		s.logger.Info("login failed: invalid credentials")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			CompanyID:     user.CompanyID,
			IPAddress:     ipAddress,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		s.timing.WaitFrom(start)
		return nil, models.ErrUnauthorized
	}

	// Credentials are good. If a verified second factor exists the
	// session is withheld until the challenge completes.
	challenge, err := s.mfa.CreateChallenge(ctx, user)
	if err == nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType: "login_mfa_challenge",
			UserID:    user.ID,
			CompanyID: user.CompanyID,
			IPAddress: ipAddress,
			Success:   true,
		})
		return &LoginResult{
			MFARequired: true,
			ChallengeID: challenge.ID,
			MethodType:  challenge.MethodType,
		}, nil
	}
	if !errors.Is(err, models.ErrMFAMethodNotFound) {
		return nil, models.ErrInternalServer
	}

	return s.establishSession(user, ipAddress)
}

// CompleteMFALogin finishes a login whose credential check opened a
// challenge. A correct code consumes the challenge and yields the
// session that Login withheld.
func (s *AuthService) CompleteMFALogin(ctx context.Context, challengeID, code, ipAddress string) (*LoginResult, error) {
	challenge, err := s.mfa.VerifyChallenge(ctx, challengeID, code, ipAddress)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetByIDGlobal(ctx, challenge.UserID)
	if err != nil {
		s.logger.Error("failed to load user after MFA verification", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return s.establishSession(user, ipAddress)
}

// ResendMFACode requests a fresh code for an open email challenge.
func (s *AuthService) ResendMFACode(ctx context.Context, challengeID string) error {
	return s.mfa.ResendChallenge(ctx, challengeID)
}

func (s *AuthService) establishSession(user *models.User, ipAddress string) (*LoginResult, error) {
	token, err := s.tm.Issue(user)
	if err != nil {
		s.logger.Error("failed to issue session token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_succeeded",
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		IPAddress: ipAddress,
		Success:   true,
	})

	return &LoginResult{
		Token: token,
		User:  userModelToResponse(user),
	}, nil
}

// Logout records the end of a session. Session tokens are stateless,
// so the only server-side action is the audit record; the handler
// clears the cookie.
func (s *AuthService) Logout(claims *models.SessionClaims, ipAddress string) {
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "logout",
		UserID:    claims.UserID,
		CompanyID: claims.CompanyID,
		IPAddress: ipAddress,
		Success:   true,
	})
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		CompanyID: user.CompanyID,
		Username:  user.Username,
		Email:     user.Email,
		Name:      user.Name,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}
