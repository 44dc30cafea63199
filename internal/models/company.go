package models

import "time"

// Company is a tenant. Every other entity hangs off a company id.
type Company struct {
	ID        string
	Name      string
	Timezone  string
	WeekStart int // 0 = Sunday, 1 = Monday
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Department groups employees and shifts within a company.
type Department struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
