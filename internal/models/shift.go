package models

import "time"

// ShiftTemplate is a reusable definition of a working shift
// (e.g. "Early 06:00-14:00"). Times are clock times within the
// company's timezone, stored as "HH:MM".
type ShiftTemplate struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	DepartmentID *string   `json:"department_id"`
	Name         string    `json:"name"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	BreakMinutes int       `json:"break_minutes"`
	Color        string    `json:"color"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Shift is a concrete scheduled shift on a calendar date, optionally
// derived from a template and optionally assigned to an employee.
type Shift struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	DepartmentID *string   `json:"department_id"`
	TemplateID   *string   `json:"template_id"`
	EmployeeID   *string   `json:"employee_id"`
	WorkDate     time.Time `json:"work_date"` // date only, midnight UTC
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	BreakMinutes int       `json:"break_minutes"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ShiftFilter narrows shift listings. Zero values mean "no filter";
// CompanyID is always required.
type ShiftFilter struct {
	CompanyID    string
	DepartmentID string
	EmployeeID   string
	From         time.Time
	To           time.Time
}
