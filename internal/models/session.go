package models

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the identity payload carried inside a signed
// session token. Claims are trusted only after signature verification;
// authorization decisions re-read the role from these server-issued
// claims, never from anything a client persisted itself.
type SessionClaims struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      Role   `json:"role"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
