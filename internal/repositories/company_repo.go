package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shiftline/shiftline/internal/database"
	"github.com/shiftline/shiftline/internal/models"
)

type CompanyRepository struct {
	pool *pgxpool.Pool
}

func NewCompanyRepository(db *database.DB) *CompanyRepository {
	return &CompanyRepository{pool: db.Pool}
}

func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) (*models.Company, error) {
	company.ID = uuid.New().String()
	now := time.Now()
	company.CreatedAt = now
	company.UpdatedAt = now

	if company.Timezone == "" {
		company.Timezone = "UTC"
	}

	query := `
		INSERT INTO companies (id, name, timezone, week_start, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, name, timezone, week_start, created_at, updated_at
	`

	var created models.Company
	err := r.pool.QueryRow(ctx, query,
		company.ID, company.Name, company.Timezone, company.WeekStart,
		company.CreatedAt, company.UpdatedAt,
	).Scan(&created.ID, &created.Name, &created.Timezone, &created.WeekStart,
		&created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &created, nil
}

// CreateWithOwner creates a company and its first admin user in one
// transaction so a failed owner insert never leaves an empty tenant
// behind. The owner's password must already be hashed.
func (r *CompanyRepository) CreateWithOwner(ctx context.Context, company *models.Company, owner *models.User) (*models.Company, *models.User, error) {
	now := time.Now()
	company.ID = uuid.New().String()
	company.CreatedAt = now
	company.UpdatedAt = now
	if company.Timezone == "" {
		company.Timezone = "UTC"
	}

	owner.ID = uuid.New().String()
	owner.CompanyID = company.ID
	owner.Role = models.RoleAdmin
	owner.CreatedAt = now
	owner.UpdatedAt = now

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO companies (id, name, timezone, week_start, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		company.ID, company.Name, company.Timezone, company.WeekStart,
		company.CreatedAt, company.UpdatedAt,
	)
	if err != nil {
		return nil, nil, database.MapPostgresError(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, company_id, username, email, password_hash, name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		owner.ID, owner.CompanyID, owner.Username, owner.Email,
		owner.PasswordHash, owner.Name, owner.Role, owner.CreatedAt, owner.UpdatedAt,
	)
	if err != nil {
		return nil, nil, database.MapPostgresError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	return company, owner, nil
}

func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*models.Company, error) {
	query := `
		SELECT id, name, timezone, week_start, created_at, updated_at
		FROM companies WHERE id = $1
	`

	var company models.Company
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&company.ID, &company.Name, &company.Timezone, &company.WeekStart,
		&company.CreatedAt, &company.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &company, nil
}

func (r *CompanyRepository) Update(ctx context.Context, company *models.Company) (*models.Company, error) {
	company.UpdatedAt = time.Now()

	query := `
		UPDATE companies
		SET name = $2, timezone = $3, week_start = $4, updated_at = $5
		WHERE id = $1
		RETURNING id, name, timezone, week_start, created_at, updated_at
	`

	var updated models.Company
	err := r.pool.QueryRow(ctx, query,
		company.ID, company.Name, company.Timezone, company.WeekStart, company.UpdatedAt,
	).Scan(&updated.ID, &updated.Name, &updated.Timezone, &updated.WeekStart,
		&updated.CreatedAt, &updated.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &updated, nil
}
