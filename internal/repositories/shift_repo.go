package repositories

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shiftline/shiftline/internal/database"
	"github.com/shiftline/shiftline/internal/models"
)

type ShiftRepository struct {
	pool *pgxpool.Pool
}

func NewShiftRepository(db *database.DB) *ShiftRepository {
	return &ShiftRepository{pool: db.Pool}
}

const shiftColumns = `id, company_id, department_id, template_id, employee_id, work_date, start_time, end_time, break_minutes, notes, created_at, updated_at`

func scanShiftRow(scanner rowScanner) (*models.Shift, error) {
	var shift models.Shift
	err := scanner.Scan(
		&shift.ID, &shift.CompanyID, &shift.DepartmentID, &shift.TemplateID,
		&shift.EmployeeID, &shift.WorkDate, &shift.StartTime, &shift.EndTime,
		&shift.BreakMinutes, &shift.Notes, &shift.CreatedAt, &shift.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &shift, nil
}

func (r *ShiftRepository) Create(ctx context.Context, shift *models.Shift) (*models.Shift, error) {
	shift.ID = uuid.New().String()
	now := time.Now()
	shift.CreatedAt = now
	shift.UpdatedAt = now

	query := `
		INSERT INTO shifts (id, company_id, department_id, template_id, employee_id, work_date, start_time, end_time, break_minutes, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + shiftColumns

	return scanShiftRow(r.pool.QueryRow(ctx, query,
		shift.ID, shift.CompanyID, shift.DepartmentID, shift.TemplateID,
		shift.EmployeeID, shift.WorkDate, shift.StartTime, shift.EndTime,
		shift.BreakMinutes, shift.Notes, shift.CreatedAt, shift.UpdatedAt,
	))
}

func (r *ShiftRepository) GetByID(ctx context.Context, companyID, id string) (*models.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE company_id = $1 AND id = $2`
	return scanShiftRow(r.pool.QueryRow(ctx, query, companyID, id))
}

// List returns shifts matching the filter, ordered by date then start
// time. This is a plain filtered read; no overlap resolution happens
// here or anywhere else.
func (r *ShiftRepository) List(ctx context.Context, filter models.ShiftFilter) ([]*models.Shift, error) {
	conditions := []string{"company_id = $1"}
	args := []interface{}{filter.CompanyID}

	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, "department_id = $"+strconv.Itoa(len(args)))
	}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		conditions = append(conditions, "employee_id = $"+strconv.Itoa(len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conditions = append(conditions, "work_date >= $"+strconv.Itoa(len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conditions = append(conditions, "work_date <= $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY work_date, start_time`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	shifts := make([]*models.Shift, 0)
	for rows.Next() {
		shift, err := scanShiftRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, shift)
	}

	return shifts, rows.Err()
}

func (r *ShiftRepository) Update(ctx context.Context, shift *models.Shift) (*models.Shift, error) {
	shift.UpdatedAt = time.Now()

	query := `
		UPDATE shifts
		SET department_id = $3, template_id = $4, employee_id = $5, work_date = $6,
		    start_time = $7, end_time = $8, break_minutes = $9, notes = $10, updated_at = $11
		WHERE company_id = $1 AND id = $2
		RETURNING ` + shiftColumns

	return scanShiftRow(r.pool.QueryRow(ctx, query,
		shift.CompanyID, shift.ID, shift.DepartmentID, shift.TemplateID,
		shift.EmployeeID, shift.WorkDate, shift.StartTime, shift.EndTime,
		shift.BreakMinutes, shift.Notes, shift.UpdatedAt,
	))
}

func (r *ShiftRepository) Delete(ctx context.Context, companyID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM shifts WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
