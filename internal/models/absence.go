package models

import "time"

// Absence request lifecycle states.
const (
	AbsencePending  = "pending"
	AbsenceApproved = "approved"
	AbsenceRejected = "rejected"
)

// Absence is an employee's request for time off. Employees create
// their own requests; managers and admins decide them.
type Absence struct {
	ID         string     `json:"id"`
	CompanyID  string     `json:"company_id"`
	EmployeeID string     `json:"employee_id"`
	Type       string     `json:"type"` // "vacation", "sick", "other"
	StartDate  time.Time  `json:"start_date"`
	EndDate    time.Time  `json:"end_date"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	DecidedBy  *string    `json:"decided_by"`
	DecidedAt  *time.Time `json:"decided_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
