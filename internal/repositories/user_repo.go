package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shiftline/shiftline/internal/database"
	"github.com/shiftline/shiftline/internal/models"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

const userColumns = `id, company_id, username, email, password_hash, name, role, created_at, updated_at`

// rowScanner covers both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	err := scanner.Scan(
		&user.ID, &user.CompanyID, &user.Username, &user.Email,
		&user.PasswordHash, &user.Name, &user.Role,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

// GetByUsername looks a user up across tenants. Used only by the login
// flow, before any tenant scope exists; usernames are globally unique.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, username))
}

// GetByIDGlobal looks a user up by primary key without tenant scope.
// Used only to finish an MFA challenge, which identifies its user by
// ID alone; everything after login goes through GetByID.
func (r *UserRepository) GetByIDGlobal(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// GetByID scopes the lookup to a company to preserve tenant isolation.
func (r *UserRepository) GetByID(ctx context.Context, companyID, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE company_id = $1 AND id = $2`
	return scanUserRow(r.pool.QueryRow(ctx, query, companyID, id))
}

func (r *UserRepository) List(ctx context.Context, companyID string, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE company_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = models.RoleEmployee
	}

	query := `
		INSERT INTO users (id, company_id, username, email, password_hash, name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.CompanyID, user.Username, user.Email,
		user.PasswordHash, user.Name, user.Role,
		user.CreatedAt, user.UpdatedAt,
	))
}

func (r *UserRepository) Update(ctx context.Context, companyID string, user *models.User) (*models.User, error) {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET email = $3, name = $4, role = $5, updated_at = $6
		WHERE company_id = $1 AND id = $2
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		companyID, user.ID, user.Email, user.Name, user.Role, user.UpdatedAt,
	))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, companyID, id, passwordHash string) error {
	query := `
		UPDATE users SET password_hash = $3, updated_at = $4
		WHERE company_id = $1 AND id = $2
	`

	tag, err := r.pool.Exec(ctx, query, companyID, id, passwordHash, time.Now())
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, companyID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
