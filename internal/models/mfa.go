package models

import "time"

// MFA method types.
const (
	MFAMethodAuthenticator = "authenticator"
	MFAMethodEmail         = "email"
)

// MFAMethod is an enrolled second factor. A method is created
// unverified/disabled and becomes enabled only after the owner proves
// possession with a valid code. At most one verified method per user
// is the default.
type MFAMethod struct {
	ID          string
	UserID      string
	Type        string
	DisplayName string
	Enabled     bool
	Default     bool
	Verified    bool

	// Authenticator methods: AES-GCM encrypted TOTP secret.
	SecretEncrypted []byte
	SecretNonce     []byte

	// Email methods: delivery address plus the pending enrollment
	// code (bcrypt hash, short-lived).
	EmailAddress     string
	ConfirmCodeHash  string
	ConfirmExpiresAt *time.Time

	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// MFAChallenge is a short-lived, attempt-limited record of one
// in-progress second-factor verification during login. Expiry is
// checked lazily at verification time; the backing store's TTL is the
// only garbage collection.
type MFAChallenge struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	MethodID    string    `json:"method_id"`
	MethodType  string    `json:"method_type"`
	CodeHash    string    `json:"code_hash,omitempty"` // email methods only
	ExpiresAt   time.Time `json:"expires_at"`
	Verified    bool      `json:"verified"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
}

// Expired reports whether the challenge has passed its deadline.
func (c *MFAChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Exhausted reports whether the attempt budget is spent.
func (c *MFAChallenge) Exhausted() bool {
	return c.Attempts >= c.MaxAttempts
}
