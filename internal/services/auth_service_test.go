package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/shiftline/shiftline/internal/auth"
	"github.com/shiftline/shiftline/internal/models"
	"github.com/shiftline/shiftline/internal/ratelimit"
	"github.com/shiftline/shiftline/internal/repositories"
	pkgauth "github.com/shiftline/shiftline/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "Str0ngPassw0rd"

type authTestEnv struct {
	svc   *AuthService
	mfa   *MFAService
	users *fakeUserRepo
	email *recorderEmail
}

func newTestAuthService(t *testing.T, users ...*models.User) *authTestEnv {
	t.Helper()

	totpMgr, err := auth.NewTOTPManager(testEncryptionKey(), "Shiftline Test")
	require.NoError(t, err)

	email := &recorderEmail{}
	mfaSvc := NewMFAService(newFakeMethodRepo(), repositories.NewMemoryChallengeStore(),
		totpMgr, email,
		MFAPolicy{ChallengeTTL: 5 * time.Minute, MaxAttempts: 3},
		testLogger(), testAuditLogger())

	tm, err := auth.NewTokenManager("unit-test-session-secret-value", time.Hour)
	require.NoError(t, err)

	userRepo := newFakeUserRepo(users...)
	svc := NewAuthService(
		userRepo,
		tm,
		ratelimit.NewLimiter(ratelimit.NewMemoryStore()),
		mfaSvc,
		auth.NewTimingDelay(auth.TimingConfig{}),
		LoginPolicy{Limit: 5, Window: 15 * time.Minute},
		testLogger(),
		testAuditLogger(),
	)

	return &authTestEnv{svc: svc, mfa: mfaSvc, users: userRepo, email: email}
}

func authTestUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := pkgauth.HashPassword(testPassword)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		CompanyID:    "company-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Name:         "Alice",
		Role:         models.RoleAdmin,
	}
}

func TestLogin_Success(t *testing.T) {
	env := newTestAuthService(t, authTestUser(t))

	result, err := env.svc.Login(context.Background(), "alice", testPassword, "192.0.2.1")
	require.NoError(t, err)

	assert.False(t, result.MFARequired)
	assert.NotEmpty(t, result.Token)
	require.NotNil(t, result.User)
	assert.Equal(t, "alice", result.User.Username)
	assert.Equal(t, "company-1", result.User.CompanyID)
	assert.Equal(t, "ADMIN", result.User.Role)
}

func TestLogin_UsernameNormalized(t *testing.T) {
	env := newTestAuthService(t, authTestUser(t))

	result, err := env.svc.Login(context.Background(), "  Alice ", testPassword, "192.0.2.1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestAuthService(t, authTestUser(t))

	_, err := env.svc.Login(context.Background(), "alice", "WrongPassw0rd", "192.0.2.1")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestLogin_UnknownUser(t *testing.T) {
	env := newTestAuthService(t, authTestUser(t))

	_, err := env.svc.Login(context.Background(), "bob", testPassword, "192.0.2.1")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestLogin_EmptyCredentials(t *testing.T) {
	env := newTestAuthService(t, authTestUser(t))

	_, err := env.svc.Login(context.Background(), "", "", "192.0.2.1")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestLogin_RateLimited(t *testing.T) {
	env := newTestAuthService(t, authTestUser(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := env.svc.Login(ctx, "alice", "WrongPassw0rd", "192.0.2.1")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	}

	// Sixth attempt is rejected even though the credentials are right.
	_, err := env.svc.Login(ctx, "alice", testPassword, "192.0.2.1")
	assert.ErrorIs(t, err, models.ErrRateLimitExceeded)

	var rateErr *RateLimitedError
	require.True(t, errors.As(err, &rateErr))
	assert.Greater(t, rateErr.RetryAfter, time.Duration(0))
}

func TestLogin_RateLimitPerClient(t *testing.T) {
	env := newTestAuthService(t, authTestUser(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = env.svc.Login(ctx, "alice", "WrongPassw0rd", "192.0.2.1")
	}

	// A different client is unaffected.
	result, err := env.svc.Login(ctx, "alice", testPassword, "198.51.100.7")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestLogin_MFARequired(t *testing.T) {
	user := authTestUser(t)
	env := newTestAuthService(t, user)
	ctx := context.Background()

	secret := enrollVerified(t, env.mfa, user)

	result, err := env.svc.Login(ctx, "alice", testPassword, "192.0.2.1")
	require.NoError(t, err)

	assert.True(t, result.MFARequired)
	assert.Empty(t, result.Token, "no session until the challenge completes")
	assert.NotEmpty(t, result.ChallengeID)
	assert.Equal(t, models.MFAMethodAuthenticator, result.MethodType)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	completed, err := env.svc.CompleteMFALogin(ctx, result.ChallengeID, code, "192.0.2.1")
	require.NoError(t, err)
	assert.NotEmpty(t, completed.Token)
	assert.Equal(t, "alice", completed.User.Username)
}

func TestLogin_MFASurvivesDefaultRemoval(t *testing.T) {
	user := authTestUser(t)
	env := newTestAuthService(t, user)
	ctx := context.Background()

	first, err := env.mfa.EnrollAuthenticator(ctx, user, "Phone")
	require.NoError(t, err)
	code, err := totp.GenerateCode(first.Secret, time.Now())
	require.NoError(t, err)
	_, err = env.mfa.ConfirmEnrollment(ctx, user, first.MethodID, code)
	require.NoError(t, err)

	second, err := env.mfa.EnrollEmail(ctx, user, "Work mail", "alice@example.com")
	require.NoError(t, err)
	_, err = env.mfa.ConfirmEnrollment(ctx, user, second.MethodID, env.email.LastCode())
	require.NoError(t, err)

	require.NoError(t, env.mfa.RemoveMethod(ctx, user, first.MethodID))

	// Deleting the default method must not silence the second factor
	// while another verified method remains.
	result, err := env.svc.Login(ctx, "alice", testPassword, "192.0.2.1")
	require.NoError(t, err)
	assert.True(t, result.MFARequired)
	assert.Empty(t, result.Token)
	assert.Equal(t, models.MFAMethodEmail, result.MethodType)
}

func TestCompleteMFALogin_WrongCode(t *testing.T) {
	user := authTestUser(t)
	env := newTestAuthService(t, user)
	ctx := context.Background()

	enrollVerified(t, env.mfa, user)

	result, err := env.svc.Login(ctx, "alice", testPassword, "192.0.2.1")
	require.NoError(t, err)
	require.True(t, result.MFARequired)

	_, err = env.svc.CompleteMFALogin(ctx, result.ChallengeID, "000000", "192.0.2.1")
	assert.ErrorIs(t, err, models.ErrMFAInvalidCode)
}

func TestCompleteMFALogin_UnknownChallenge(t *testing.T) {
	env := newTestAuthService(t, authTestUser(t))

	_, err := env.svc.CompleteMFALogin(context.Background(), "missing", "123456", "192.0.2.1")
	assert.ErrorIs(t, err, models.ErrMFAChallengeNotFound)
}

func TestLogin_TokenCarriesClaims(t *testing.T) {
	env := newTestAuthService(t, authTestUser(t))

	result, err := env.svc.Login(context.Background(), "alice", testPassword, "192.0.2.1")
	require.NoError(t, err)

	tm, err := auth.NewTokenManager("unit-test-session-secret-value", time.Hour)
	require.NoError(t, err)

	claims, err := tm.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "company-1", claims.CompanyID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}
