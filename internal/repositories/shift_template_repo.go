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

type ShiftTemplateRepository struct {
	pool *pgxpool.Pool
}

func NewShiftTemplateRepository(db *database.DB) *ShiftTemplateRepository {
	return &ShiftTemplateRepository{pool: db.Pool}
}

const shiftTemplateColumns = `id, company_id, department_id, name, start_time, end_time, break_minutes, color, created_at, updated_at`

func scanShiftTemplateRow(scanner rowScanner) (*models.ShiftTemplate, error) {
	var tpl models.ShiftTemplate
	err := scanner.Scan(
		&tpl.ID, &tpl.CompanyID, &tpl.DepartmentID, &tpl.Name,
		&tpl.StartTime, &tpl.EndTime, &tpl.BreakMinutes, &tpl.Color,
		&tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &tpl, nil
}

func (r *ShiftTemplateRepository) Create(ctx context.Context, tpl *models.ShiftTemplate) (*models.ShiftTemplate, error) {
	tpl.ID = uuid.New().String()
	now := time.Now()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	query := `
		INSERT INTO shift_templates (id, company_id, department_id, name, start_time, end_time, break_minutes, color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + shiftTemplateColumns

	return scanShiftTemplateRow(r.pool.QueryRow(ctx, query,
		tpl.ID, tpl.CompanyID, tpl.DepartmentID, tpl.Name,
		tpl.StartTime, tpl.EndTime, tpl.BreakMinutes, tpl.Color,
		tpl.CreatedAt, tpl.UpdatedAt,
	))
}

func (r *ShiftTemplateRepository) GetByID(ctx context.Context, companyID, id string) (*models.ShiftTemplate, error) {
	query := `SELECT ` + shiftTemplateColumns + ` FROM shift_templates WHERE company_id = $1 AND id = $2`
	return scanShiftTemplateRow(r.pool.QueryRow(ctx, query, companyID, id))
}

func (r *ShiftTemplateRepository) List(ctx context.Context, companyID string) ([]*models.ShiftTemplate, error) {
	query := `SELECT ` + shiftTemplateColumns + ` FROM shift_templates WHERE company_id = $1 ORDER BY name`

	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift templates: %w", err)
	}
	defer rows.Close()

	templates := make([]*models.ShiftTemplate, 0)
	for rows.Next() {
		tpl, err := scanShiftTemplateRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift template: %w", err)
		}
		templates = append(templates, tpl)
	}

	return templates, rows.Err()
}

func (r *ShiftTemplateRepository) Update(ctx context.Context, tpl *models.ShiftTemplate) (*models.ShiftTemplate, error) {
	tpl.UpdatedAt = time.Now()

	query := `
		UPDATE shift_templates
		SET department_id = $3, name = $4, start_time = $5, end_time = $6, break_minutes = $7, color = $8, updated_at = $9
		WHERE company_id = $1 AND id = $2
		RETURNING ` + shiftTemplateColumns

	return scanShiftTemplateRow(r.pool.QueryRow(ctx, query,
		tpl.CompanyID, tpl.ID, tpl.DepartmentID, tpl.Name,
		tpl.StartTime, tpl.EndTime, tpl.BreakMinutes, tpl.Color, tpl.UpdatedAt,
	))
}

func (r *ShiftTemplateRepository) Delete(ctx context.Context, companyID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM shift_templates WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
