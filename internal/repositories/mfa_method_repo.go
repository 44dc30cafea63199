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

type MFAMethodRepository struct {
	pool *pgxpool.Pool
}

func NewMFAMethodRepository(db *database.DB) *MFAMethodRepository {
	return &MFAMethodRepository{pool: db.Pool}
}

const mfaMethodColumns = `id, user_id, method_type, display_name, enabled, is_default, verified, secret_encrypted, secret_nonce, email_address, confirm_code_hash, confirm_expires_at, created_at, last_used_at`

func scanMFAMethodRow(scanner rowScanner) (*models.MFAMethod, error) {
	var m models.MFAMethod
	err := scanner.Scan(
		&m.ID, &m.UserID, &m.Type, &m.DisplayName, &m.Enabled, &m.Default,
		&m.Verified, &m.SecretEncrypted, &m.SecretNonce, &m.EmailAddress,
		&m.ConfirmCodeHash, &m.ConfirmExpiresAt, &m.CreatedAt, &m.LastUsedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &m, nil
}

func (r *MFAMethodRepository) Create(ctx context.Context, method *models.MFAMethod) (*models.MFAMethod, error) {
	method.ID = uuid.New().String()
	method.CreatedAt = time.Now()

	query := `
		INSERT INTO mfa_methods (id, user_id, method_type, display_name, enabled, is_default, verified, secret_encrypted, secret_nonce, email_address, confirm_code_hash, confirm_expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + mfaMethodColumns

	return scanMFAMethodRow(r.pool.QueryRow(ctx, query,
		method.ID, method.UserID, method.Type, method.DisplayName,
		method.Enabled, method.Default, method.Verified,
		method.SecretEncrypted, method.SecretNonce, method.EmailAddress,
		method.ConfirmCodeHash, method.ConfirmExpiresAt, method.CreatedAt,
	))
}

func (r *MFAMethodRepository) GetByID(ctx context.Context, userID, id string) (*models.MFAMethod, error) {
	query := `SELECT ` + mfaMethodColumns + ` FROM mfa_methods WHERE user_id = $1 AND id = $2`
	return scanMFAMethodRow(r.pool.QueryRow(ctx, query, userID, id))
}

func (r *MFAMethodRepository) ListByUser(ctx context.Context, userID string) ([]*models.MFAMethod, error) {
	query := `SELECT ` + mfaMethodColumns + ` FROM mfa_methods WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mfa methods: %w", err)
	}
	defer rows.Close()

	methods := make([]*models.MFAMethod, 0)
	for rows.Next() {
		method, err := scanMFAMethodRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mfa method: %w", err)
		}
		methods = append(methods, method)
	}

	return methods, rows.Err()
}

// GetDefaultVerified returns the method login challenges against: the
// user's default verified method, or the oldest verified method when
// no default is flagged. Removing the default must not downgrade the
// account to single-factor while other verified methods remain.
func (r *MFAMethodRepository) GetDefaultVerified(ctx context.Context, userID string) (*models.MFAMethod, error) {
	query := `SELECT ` + mfaMethodColumns + ` FROM mfa_methods
		WHERE user_id = $1 AND verified = TRUE AND enabled = TRUE
		ORDER BY is_default DESC, created_at
		LIMIT 1`
	return scanMFAMethodRow(r.pool.QueryRow(ctx, query, userID))
}

// MarkVerified flips a method to verified/enabled and clears the
// pending enrollment code. The first verified method becomes the
// default; SetDefault handles later changes.
func (r *MFAMethodRepository) MarkVerified(ctx context.Context, userID, id string, makeDefault bool) (*models.MFAMethod, error) {
	query := `
		UPDATE mfa_methods
		SET verified = TRUE, enabled = TRUE, is_default = $3,
		    confirm_code_hash = '', confirm_expires_at = NULL
		WHERE user_id = $1 AND id = $2
		RETURNING ` + mfaMethodColumns

	return scanMFAMethodRow(r.pool.QueryRow(ctx, query, userID, id, makeDefault))
}

// SetDefault makes one verified method the default and clears the flag
// on every other method the user has.
func (r *MFAMethodRepository) SetDefault(ctx context.Context, userID, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE mfa_methods SET is_default = FALSE WHERE user_id = $1`, userID); err != nil {
		return database.MapPostgresError(err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE mfa_methods SET is_default = TRUE WHERE user_id = $1 AND id = $2 AND verified = TRUE`,
		userID, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrMFAMethodNotFound
	}

	return tx.Commit(ctx)
}

// UpdateConfirmCode stores a fresh enrollment code hash and deadline,
// used when the user asks for the email code to be resent.
func (r *MFAMethodRepository) UpdateConfirmCode(ctx context.Context, userID, id, codeHash string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE mfa_methods
		SET confirm_code_hash = $3, confirm_expires_at = $4
		WHERE user_id = $1 AND id = $2 AND verified = FALSE`,
		userID, id, codeHash, expiresAt)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrMFAMethodNotFound
	}
	return nil
}

func (r *MFAMethodRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE mfa_methods SET last_used_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

func (r *MFAMethodRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM mfa_methods WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrMFAMethodNotFound
	}
	return nil
}
