package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shiftline/shiftline/internal/auth"
	"github.com/shiftline/shiftline/internal/models"
	"github.com/shiftline/shiftline/internal/repositories"
	pkgauth "github.com/shiftline/shiftline/pkg/auth"
	pkglogger "github.com/shiftline/shiftline/pkg/logger"
)

// MFAMethodRepository defines the persistence operations the MFA
// service needs for enrolled methods.
type MFAMethodRepository interface {
	Create(ctx context.Context, method *models.MFAMethod) (*models.MFAMethod, error)
	GetByID(ctx context.Context, userID, id string) (*models.MFAMethod, error)
	ListByUser(ctx context.Context, userID string) ([]*models.MFAMethod, error)
	GetDefaultVerified(ctx context.Context, userID string) (*models.MFAMethod, error)
	MarkVerified(ctx context.Context, userID, id string, makeDefault bool) (*models.MFAMethod, error)
	SetDefault(ctx context.Context, userID, id string) error
	UpdateConfirmCode(ctx context.Context, userID, id, codeHash string, expiresAt time.Time) error
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, userID, id string) error
}

// MFAPolicy holds the tunable parts of the challenge flow.
type MFAPolicy struct {
	ChallengeTTL time.Duration
	MaxAttempts  int
}

// MFAService manages second-factor enrollment and the login-time
// challenge flow.
type MFAService struct {
	methods     MFAMethodRepository
	challenges  repositories.ChallengeStore
	totp        *auth.TOTPManager
	email       EmailService
	policy      MFAPolicy
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewMFAService(
	methods MFAMethodRepository,
	challenges repositories.ChallengeStore,
	totp *auth.TOTPManager,
	email EmailService,
	policy MFAPolicy,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *MFAService {
	return &MFAService{
		methods:     methods,
		challenges:  challenges,
		totp:        totp,
		email:       email,
		policy:      policy,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// EnrollmentResponse is returned when a new method is created. The
// TOTP fields are populated only for authenticator methods, and the
// plaintext secret appears here once and is never retrievable again.
type EnrollmentResponse struct {
	MethodID        string `json:"method_id"`
	Type            string `json:"type"`
	Secret          string `json:"secret,omitempty"`
	ProvisioningURI string `json:"provisioning_uri,omitempty"`
	QRCodeDataURL   string `json:"qr_code,omitempty"`
}

// MethodResponse represents an enrolled method in API responses.
// Secret material never appears here.
type MethodResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
	Verified    bool   `json:"verified"`
	Default     bool   `json:"default"`
	CreatedAt   string `json:"created_at"`
	LastUsedAt  string `json:"last_used_at,omitempty"`
}

// EnrollAuthenticator creates an unverified authenticator method for
// the user and returns the provisioning material.
func (s *MFAService) EnrollAuthenticator(ctx context.Context, user *models.User, displayName string) (*EnrollmentResponse, error) {
	enrollment, err := s.totp.GenerateEnrollment(user.Username)
	if err != nil {
		s.logger.Error("failed to generate TOTP enrollment", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	method := &models.MFAMethod{
		UserID:          user.ID,
		Type:            models.MFAMethodAuthenticator,
		DisplayName:     displayName,
		SecretEncrypted: enrollment.SecretEncrypted,
		SecretNonce:     enrollment.SecretNonce,
	}

	created, err := s.methods.Create(ctx, method)
	if err != nil {
		s.logger.Error("failed to store MFA method", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("mfa_enrollment_started", user.ID, user.CompanyID,
		map[string]string{"method_type": models.MFAMethodAuthenticator})

	return &EnrollmentResponse{
		MethodID:        created.ID,
		Type:            created.Type,
		Secret:          enrollment.Secret,
		ProvisioningURI: enrollment.ProvisioningURI,
		QRCodeDataURL:   enrollment.QRCodeDataURL,
	}, nil
}

// EnrollEmail creates an unverified email method and sends a
// confirmation code to the address. Only the bcrypt hash of the code
// is stored.
func (s *MFAService) EnrollEmail(ctx context.Context, user *models.User, displayName, emailAddress string) (*EnrollmentResponse, error) {
	code, err := generateNumericCode(6)
	if err != nil {
		s.logger.Error("failed to generate email code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	codeHash, err := pkgauth.HashPassword(code)
	if err != nil {
		s.logger.Error("failed to hash email code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	expiresAt := time.Now().Add(s.policy.ChallengeTTL)
	method := &models.MFAMethod{
		UserID:           user.ID,
		Type:             models.MFAMethodEmail,
		DisplayName:      displayName,
		EmailAddress:     emailAddress,
		ConfirmCodeHash:  codeHash,
		ConfirmExpiresAt: &expiresAt,
	}

	created, err := s.methods.Create(ctx, method)
	if err != nil {
		s.logger.Error("failed to store MFA method", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.email.SendMFACode(ctx, emailAddress, code); err != nil {
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("mfa_enrollment_started", user.ID, user.CompanyID,
		map[string]string{"method_type": models.MFAMethodEmail})

	return &EnrollmentResponse{
		MethodID: created.ID,
		Type:     created.Type,
	}, nil
}

// ResendEnrollmentCode issues a fresh code for a pending email method.
// The previous code stops working the moment the new hash is stored.
func (s *MFAService) ResendEnrollmentCode(ctx context.Context, userID, methodID string) error {
	method, err := s.methods.GetByID(ctx, userID, methodID)
	if err != nil {
		return s.mapMethodErr(err)
	}
	if method.Type != models.MFAMethodEmail || method.Verified {
		return models.ErrBadRequest
	}

	code, err := generateNumericCode(6)
	if err != nil {
		return models.ErrInternalServer
	}
	codeHash, err := pkgauth.HashPassword(code)
	if err != nil {
		return models.ErrInternalServer
	}

	if err := s.methods.UpdateConfirmCode(ctx, userID, methodID, codeHash, time.Now().Add(s.policy.ChallengeTTL)); err != nil {
		return s.mapMethodErr(err)
	}

	return s.email.SendMFACode(ctx, method.EmailAddress, code)
}

// ConfirmEnrollment verifies possession of the second factor and
// activates the method. A user's first verified method becomes their
// default.
func (s *MFAService) ConfirmEnrollment(ctx context.Context, user *models.User, methodID, code string) (*MethodResponse, error) {
	method, err := s.methods.GetByID(ctx, user.ID, methodID)
	if err != nil {
		return nil, s.mapMethodErr(err)
	}
	if method.Verified {
		return nil, models.ErrConflict
	}

	if err := s.checkMethodCode(method, code, time.Now()); err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "mfa_enrollment_failed",
			UserID:        user.ID,
			CompanyID:     user.CompanyID,
			FailureReason: "invalid_code",
			Success:       false,
		})
		return nil, err
	}

	makeDefault := false
	if _, err := s.methods.GetDefaultVerified(ctx, user.ID); errors.Is(err, models.ErrNotFound) {
		makeDefault = true
	}

	verified, err := s.methods.MarkVerified(ctx, user.ID, methodID, makeDefault)
	if err != nil {
		return nil, s.mapMethodErr(err)
	}

	s.auditLogger.LogAccountAction("mfa_enrollment_confirmed", user.ID, user.CompanyID,
		map[string]string{"method_type": method.Type})

	return methodToResponse(verified), nil
}

// ListMethods returns the user's enrolled methods.
func (s *MFAService) ListMethods(ctx context.Context, userID string) ([]*MethodResponse, error) {
	methods, err := s.methods.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list MFA methods", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	responses := make([]*MethodResponse, 0, len(methods))
	for _, m := range methods {
		responses = append(responses, methodToResponse(m))
	}
	return responses, nil
}

// SetDefaultMethod marks a verified method as the one challenged at
// login.
func (s *MFAService) SetDefaultMethod(ctx context.Context, user *models.User, methodID string) error {
	if err := s.methods.SetDefault(ctx, user.ID, methodID); err != nil {
		return s.mapMethodErr(err)
	}
	s.auditLogger.LogAccountAction("mfa_default_changed", user.ID, user.CompanyID,
		map[string]string{"method_id": methodID})
	return nil
}

// RemoveMethod deletes an enrolled method.
func (s *MFAService) RemoveMethod(ctx context.Context, user *models.User, methodID string) error {
	if err := s.methods.Delete(ctx, user.ID, methodID); err != nil {
		return s.mapMethodErr(err)
	}
	s.auditLogger.LogAccountAction("mfa_method_removed", user.ID, user.CompanyID,
		map[string]string{"method_id": methodID})
	return nil
}

// CreateChallenge starts a login-time challenge against the user's
// default verified method. For email methods a fresh code is generated
// and delivered; its hash lives only inside the challenge record.
func (s *MFAService) CreateChallenge(ctx context.Context, user *models.User) (*models.MFAChallenge, error) {
	method, err := s.methods.GetDefaultVerified(ctx, user.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrMFAMethodNotFound
		}
		s.logger.Error("failed to load default MFA method", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	challenge := &models.MFAChallenge{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		MethodID:    method.ID,
		MethodType:  method.Type,
		ExpiresAt:   time.Now().Add(s.policy.ChallengeTTL),
		MaxAttempts: s.policy.MaxAttempts,
	}

	if method.Type == models.MFAMethodEmail {
		code, err := generateNumericCode(6)
		if err != nil {
			return nil, models.ErrInternalServer
		}
		codeHash, err := pkgauth.HashPassword(code)
		if err != nil {
			return nil, models.ErrInternalServer
		}
		challenge.CodeHash = codeHash

		if err := s.email.SendMFACode(ctx, method.EmailAddress, code); err != nil {
			return nil, models.ErrInternalServer
		}
	}

	if err := s.challenges.Put(ctx, challenge, s.policy.ChallengeTTL); err != nil {
		s.logger.Error("failed to store MFA challenge", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return challenge, nil
}

// ResendChallenge delivers a fresh code for an open email challenge.
// The previous code stops working, and the expiry and attempt budget
// start over. Authenticator challenges have nothing to resend.
func (s *MFAService) ResendChallenge(ctx context.Context, challengeID string) error {
	challenge, err := s.challenges.Get(ctx, challengeID)
	if err != nil {
		if errors.Is(err, models.ErrMFAChallengeNotFound) {
			return models.ErrMFAChallengeNotFound
		}
		s.logger.Error("failed to load MFA challenge", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if challenge.Expired(time.Now()) {
		_ = s.challenges.Delete(ctx, challengeID)
		return models.ErrMFAChallengeExpired
	}
	if challenge.MethodType != models.MFAMethodEmail {
		return models.ErrBadRequest
	}

	method, err := s.methods.GetByID(ctx, challenge.UserID, challenge.MethodID)
	if err != nil {
		return s.mapMethodErr(err)
	}

	code, err := generateNumericCode(6)
	if err != nil {
		return models.ErrInternalServer
	}
	codeHash, err := pkgauth.HashPassword(code)
	if err != nil {
		return models.ErrInternalServer
	}

	challenge.CodeHash = codeHash
	challenge.Attempts = 0
	challenge.ExpiresAt = time.Now().Add(s.policy.ChallengeTTL)

	// Put, not Update: the store TTL restarts with the new expiry.
	if err := s.challenges.Put(ctx, challenge, s.policy.ChallengeTTL); err != nil {
		s.logger.Error("failed to store MFA challenge", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.email.SendMFACode(ctx, method.EmailAddress, code); err != nil {
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("mfa_challenge_resent", challenge.UserID, "",
		map[string]string{"method_id": method.ID})

	return nil
}

// VerifyChallenge checks a submitted code against an open challenge.
// The attempt is counted before the code is examined, so a burst of
// wrong codes cannot exceed the budget. A verified challenge is
// deleted and cannot be replayed.
func (s *MFAService) VerifyChallenge(ctx context.Context, challengeID, code, ipAddress string) (*models.MFAChallenge, error) {
	challenge, err := s.challenges.Get(ctx, challengeID)
	if err != nil {
		if errors.Is(err, models.ErrMFAChallengeNotFound) {
			return nil, models.ErrMFAChallengeNotFound
		}
		s.logger.Error("failed to load MFA challenge", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now()
	if challenge.Expired(now) {
		_ = s.challenges.Delete(ctx, challengeID)
		return nil, models.ErrMFAChallengeExpired
	}
	if challenge.Exhausted() {
		return nil, models.ErrMFAAttemptsExhausted
	}

	challenge.Attempts++
	if err := s.challenges.Update(ctx, challenge); err != nil {
		s.logger.Error("failed to record MFA attempt", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	method, err := s.methods.GetByID(ctx, challenge.UserID, challenge.MethodID)
	if err != nil {
		return nil, s.mapMethodErr(err)
	}

	if err := s.verifyChallengeCode(challenge, method, code, now); err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "mfa_verification_failed",
			UserID:        challenge.UserID,
			IPAddress:     ipAddress,
			FailureReason: "invalid_code",
			Success:       false,
		})
		return nil, err
	}

	challenge.Verified = true
	_ = s.challenges.Delete(ctx, challengeID)
	_ = s.methods.TouchLastUsed(ctx, method.ID, now)

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "mfa_verification_succeeded",
		UserID:    challenge.UserID,
		IPAddress: ipAddress,
		Success:   true,
	})

	return challenge, nil
}

// checkMethodCode validates a code during enrollment confirmation.
func (s *MFAService) checkMethodCode(method *models.MFAMethod, code string, now time.Time) error {
	switch method.Type {
	case models.MFAMethodAuthenticator:
		secret, err := s.totp.DecryptSecret(method.SecretEncrypted, method.SecretNonce)
		if err != nil {
			s.logger.Error("failed to decrypt TOTP secret", slog.Any("error", err))
			return models.ErrInternalServer
		}
		valid, err := s.totp.ValidateCode(string(secret), code, now)
		if err != nil {
			s.logger.Error("failed to validate TOTP code", slog.Any("error", err))
			return models.ErrInternalServer
		}
		if !valid {
			return models.ErrMFAInvalidCode
		}
		return nil

	case models.MFAMethodEmail:
		if method.ConfirmExpiresAt == nil || now.After(*method.ConfirmExpiresAt) {
			return models.ErrMFAChallengeExpired
		}
		if !pkgauth.VerifyPassword(method.ConfirmCodeHash, code) {
			return models.ErrMFAInvalidCode
		}
		return nil

	default:
		return models.ErrBadRequest
	}
}

// verifyChallengeCode validates a code during a login challenge.
func (s *MFAService) verifyChallengeCode(challenge *models.MFAChallenge, method *models.MFAMethod, code string, now time.Time) error {
	if !method.Verified || !method.Enabled {
		return models.ErrMFAMethodNotVerified
	}

	switch challenge.MethodType {
	case models.MFAMethodAuthenticator:
		secret, err := s.totp.DecryptSecret(method.SecretEncrypted, method.SecretNonce)
		if err != nil {
			s.logger.Error("failed to decrypt TOTP secret", slog.Any("error", err))
			return models.ErrInternalServer
		}
		valid, err := s.totp.ValidateCode(string(secret), code, now)
		if err != nil {
			s.logger.Error("failed to validate TOTP code", slog.Any("error", err))
			return models.ErrInternalServer
		}
		if !valid {
			return models.ErrMFAInvalidCode
		}
		return nil

	case models.MFAMethodEmail:
		if !pkgauth.VerifyPassword(challenge.CodeHash, code) {
			return models.ErrMFAInvalidCode
		}
		return nil

	default:
		return models.ErrBadRequest
	}
}

func (s *MFAService) mapMethodErr(err error) error {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrMFAMethodNotFound) {
		return models.ErrMFAMethodNotFound
	}
	s.logger.Error("mfa method operation failed", slog.Any("error", err))
	return models.ErrInternalServer
}

func methodToResponse(m *models.MFAMethod) *MethodResponse {
	resp := &MethodResponse{
		ID:          m.ID,
		Type:        m.Type,
		DisplayName: m.DisplayName,
		Verified:    m.Verified,
		Default:     m.Default,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
	if m.LastUsedAt != nil {
		resp.LastUsedAt = m.LastUsedAt.Format(time.RFC3339)
	}
	return resp
}

// generateNumericCode returns a random code of n decimal digits with
// uniform distribution, using crypto/rand.
func generateNumericCode(n int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < n; i++ {
		max.Mul(max, big.NewInt(10))
	}

	value, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", n, value), nil
}
