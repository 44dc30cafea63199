package models

import "time"

// User is an account within a company. All queries touching users are
// scoped by CompanyID to preserve tenant isolation.
type User struct {
	ID           string
	CompanyID    string
	Username     string
	Email        string
	PasswordHash string
	Name         string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
