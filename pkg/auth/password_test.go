package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("CorrectHorse9!")
	require.NoError(t, err)
	assert.NotEqual(t, "CorrectHorse9!", hash)

	assert.True(t, VerifyPassword(hash, "CorrectHorse9!"))
	assert.False(t, VerifyPassword(hash, "WrongHorse9!"))
	assert.False(t, VerifyPassword(hash, ""))
}

func TestHashPassword_FreshSaltPerCall(t *testing.T) {
	h1, err := HashPassword("CorrectHorse9!")
	require.NoError(t, err)
	h2, err := HashPassword("CorrectHorse9!")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.True(t, VerifyPassword(h1, "CorrectHorse9!"))
	assert.True(t, VerifyPassword(h2, "CorrectHorse9!"))
}

func TestHashPassword_EmptyRejected(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		shouldFail bool
	}{
		{name: "valid strong password", password: "SecureP4ssword", shouldFail: false},
		{name: "too short", password: "Pass1", shouldFail: true},
		{name: "missing uppercase", password: "securepass123", shouldFail: true},
		{name: "missing lowercase", password: "SECUREPASS123", shouldFail: true},
		{name: "missing digit", password: "SecurePassword", shouldFail: true},
		{name: "common password rejected", password: "Password123", shouldFail: true},
		{name: "valid with symbols", password: "MyP@ssw0rd!", shouldFail: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.shouldFail {
				require.Error(t, err)
				// User-facing message never reveals which check failed
				assert.Equal(t, "invalid password", err.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
