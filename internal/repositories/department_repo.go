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

type DepartmentRepository struct {
	pool *pgxpool.Pool
}

func NewDepartmentRepository(db *database.DB) *DepartmentRepository {
	return &DepartmentRepository{pool: db.Pool}
}

const departmentColumns = `id, company_id, name, created_at, updated_at`

func scanDepartmentRow(scanner rowScanner) (*models.Department, error) {
	var dept models.Department
	err := scanner.Scan(&dept.ID, &dept.CompanyID, &dept.Name, &dept.CreatedAt, &dept.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &dept, nil
}

func (r *DepartmentRepository) Create(ctx context.Context, dept *models.Department) (*models.Department, error) {
	dept.ID = uuid.New().String()
	now := time.Now()
	dept.CreatedAt = now
	dept.UpdatedAt = now

	query := `
		INSERT INTO departments (id, company_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + departmentColumns

	return scanDepartmentRow(r.pool.QueryRow(ctx, query,
		dept.ID, dept.CompanyID, dept.Name, dept.CreatedAt, dept.UpdatedAt))
}

func (r *DepartmentRepository) GetByID(ctx context.Context, companyID, id string) (*models.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE company_id = $1 AND id = $2`
	return scanDepartmentRow(r.pool.QueryRow(ctx, query, companyID, id))
}

func (r *DepartmentRepository) List(ctx context.Context, companyID string) ([]*models.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE company_id = $1 ORDER BY name`

	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query departments: %w", err)
	}
	defer rows.Close()

	depts := make([]*models.Department, 0)
	for rows.Next() {
		dept, err := scanDepartmentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		depts = append(depts, dept)
	}

	return depts, rows.Err()
}

func (r *DepartmentRepository) Update(ctx context.Context, dept *models.Department) (*models.Department, error) {
	dept.UpdatedAt = time.Now()

	query := `
		UPDATE departments SET name = $3, updated_at = $4
		WHERE company_id = $1 AND id = $2
		RETURNING ` + departmentColumns

	return scanDepartmentRow(r.pool.QueryRow(ctx, query,
		dept.CompanyID, dept.ID, dept.Name, dept.UpdatedAt))
}

func (r *DepartmentRepository) Delete(ctx context.Context, companyID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM departments WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
