package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shiftline/shiftline/internal/database"
	"github.com/shiftline/shiftline/internal/models"
)

type AbsenceRepository struct {
	pool *pgxpool.Pool
}

func NewAbsenceRepository(db *database.DB) *AbsenceRepository {
	return &AbsenceRepository{pool: db.Pool}
}

const absenceColumns = `id, company_id, employee_id, type, start_date, end_date, reason, status, decided_by, decided_at, created_at, updated_at`

func scanAbsenceRow(scanner rowScanner) (*models.Absence, error) {
	var absence models.Absence
	err := scanner.Scan(
		&absence.ID, &absence.CompanyID, &absence.EmployeeID, &absence.Type,
		&absence.StartDate, &absence.EndDate, &absence.Reason, &absence.Status,
		&absence.DecidedBy, &absence.DecidedAt, &absence.CreatedAt, &absence.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &absence, nil
}

func (r *AbsenceRepository) Create(ctx context.Context, absence *models.Absence) (*models.Absence, error) {
	absence.ID = uuid.New().String()
	absence.Status = models.AbsencePending
	now := time.Now()
	absence.CreatedAt = now
	absence.UpdatedAt = now

	query := `
		INSERT INTO absences (id, company_id, employee_id, type, start_date, end_date, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + absenceColumns

	return scanAbsenceRow(r.pool.QueryRow(ctx, query,
		absence.ID, absence.CompanyID, absence.EmployeeID, absence.Type,
		absence.StartDate, absence.EndDate, absence.Reason, absence.Status,
		absence.CreatedAt, absence.UpdatedAt,
	))
}

func (r *AbsenceRepository) GetByID(ctx context.Context, companyID, id string) (*models.Absence, error) {
	query := `SELECT ` + absenceColumns + ` FROM absences WHERE company_id = $1 AND id = $2`
	return scanAbsenceRow(r.pool.QueryRow(ctx, query, companyID, id))
}

// List returns absences for a company, optionally narrowed to one
// employee. Newest requests come first.
func (r *AbsenceRepository) List(ctx context.Context, companyID, employeeID string) ([]*models.Absence, error) {
	query := `SELECT ` + absenceColumns + ` FROM absences WHERE company_id = $1`
	args := []interface{}{companyID}
	if employeeID != "" {
		query += ` AND employee_id = $2`
		args = append(args, employeeID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query absences: %w", err)
	}
	defer rows.Close()

	absences := make([]*models.Absence, 0)
	for rows.Next() {
		absence, err := scanAbsenceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan absence: %w", err)
		}
		absences = append(absences, absence)
	}

	return absences, rows.Err()
}

// Decide transitions a pending request to approved or rejected and
// records who decided it. A request that is no longer pending cannot
// be decided again.
func (r *AbsenceRepository) Decide(ctx context.Context, companyID, id, status, deciderID string) (*models.Absence, error) {
	now := time.Now()

	query := `
		UPDATE absences
		SET status = $3, decided_by = $4, decided_at = $5, updated_at = $5
		WHERE company_id = $1 AND id = $2 AND status = $6
		RETURNING ` + absenceColumns

	return scanAbsenceRow(r.pool.QueryRow(ctx, query,
		companyID, id, status, deciderID, now, models.AbsencePending,
	))
}

func (r *AbsenceRepository) Delete(ctx context.Context, companyID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM absences WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
