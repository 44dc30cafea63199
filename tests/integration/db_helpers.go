package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shiftline/shiftline/internal/database"
	"github.com/shiftline/shiftline/internal/models"
	"github.com/shiftline/shiftline/internal/repositories"
	pkgauth "github.com/shiftline/shiftline/pkg/auth"
)

// TestDB manages PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("shiftline"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dbWrapper := &database.DB{
		Pool: pool,
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         dbWrapper,
	}, nil
}

// runMigrations executes all goose migrations
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	goose.SetLogger(log.New(io.Discard, "", 0))

	// Goose needs a database/sql connection, so go through the pgx
	// stdlib adapter.
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"mfa_methods",
		"absences",
		"shifts",
		"shift_templates",
		"departments",
		"users",
		"companies",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// InitializeRepositories creates all repository instances from database wrapper
func InitializeRepositories(db *database.DB) (
	*repositories.CompanyRepository,
	*repositories.UserRepository,
	*repositories.DepartmentRepository,
	*repositories.ShiftTemplateRepository,
	*repositories.ShiftRepository,
	*repositories.AbsenceRepository,
	*repositories.MFAMethodRepository,
) {
	return repositories.NewCompanyRepository(db),
		repositories.NewUserRepository(db),
		repositories.NewDepartmentRepository(db),
		repositories.NewShiftTemplateRepository(db),
		repositories.NewShiftRepository(db),
		repositories.NewAbsenceRepository(db),
		repositories.NewMFAMethodRepository(db)
}

// SeedCompany inserts a bare company row
func SeedCompany(ctx context.Context, pool *pgxpool.Pool, name string) (*models.Company, error) {
	query := `
		INSERT INTO companies (id, name, timezone, week_start)
		VALUES ($1, $2, 'UTC', 1)
		RETURNING id, name, timezone, week_start, created_at, updated_at
	`

	var company models.Company
	err := pool.QueryRow(ctx, query, uuid.NewString(), name).Scan(
		&company.ID,
		&company.Name,
		&company.Timezone,
		&company.WeekStart,
		&company.CreatedAt,
		&company.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert company: %w", err)
	}

	return &company, nil
}

// SeedUser inserts a test user with hashed password
func SeedUser(ctx context.Context, pool *pgxpool.Pool, companyID, username, password string, role models.Role) (*models.User, error) {
	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (id, company_id, username, email, password_hash, name, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, company_id, username, email, password_hash, name, role, created_at, updated_at
	`

	var user models.User
	err = pool.QueryRow(ctx, query,
		uuid.NewString(),
		companyID,
		username,
		username+"@example.com",
		hashedPassword,
		"Test "+username,
		role,
	).Scan(
		&user.ID,
		&user.CompanyID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &user, nil
}
