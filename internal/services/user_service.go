package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shiftline/shiftline/internal/models"
	"github.com/shiftline/shiftline/internal/repositories"
	pkgauth "github.com/shiftline/shiftline/pkg/auth"
	pkglogger "github.com/shiftline/shiftline/pkg/logger"
)

// UserService manages employee accounts within a tenant.
type UserService struct {
	users       *repositories.UserRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewUserService(users *repositories.UserRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		users:       users,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// CreateEmployeeInput carries a new employee account. Role defaults to
// EMPLOYEE when empty; only admins may set another role, which the
// handler enforces.
type CreateEmployeeInput struct {
	Username string
	Email    string
	Password string
	Name     string
	Role     models.Role
}

func (s *UserService) Create(ctx context.Context, companyID string, input CreateEmployeeInput) (*UserResponse, error) {
	if err := pkgauth.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = models.RoleEmployee
	}
	if !role.Valid() {
		return nil, models.ErrBadRequest
	}

	hash, err := pkgauth.HashPassword(input.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		CompanyID:    companyID,
		Username:     strings.ToLower(strings.TrimSpace(input.Username)),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		Name:         input.Name,
		Role:         role,
	}
	if user.Username == "" || user.Email == "" {
		return nil, models.ErrBadRequest
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("employee_created", created.ID, companyID,
		map[string]string{"role": string(created.Role)})

	return userModelToResponse(created), nil
}

func (s *UserService) Get(ctx context.Context, companyID, id string) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return userModelToResponse(user), nil
}

func (s *UserService) List(ctx context.Context, companyID string, limit, offset int) ([]*UserResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.users.List(ctx, companyID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	responses := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, userModelToResponse(u))
	}
	return responses, nil
}

// UpdateEmployeeInput carries profile updates. Empty role means
// "unchanged".
type UpdateEmployeeInput struct {
	Email string
	Name  string
	Role  models.Role
}

func (s *UserService) Update(ctx context.Context, companyID, id string, input UpdateEmployeeInput) (*UserResponse, error) {
	existing, err := s.users.GetByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if input.Email != "" {
		existing.Email = strings.ToLower(strings.TrimSpace(input.Email))
	}
	if input.Name != "" {
		existing.Name = input.Name
	}
	if input.Role != "" {
		if !input.Role.Valid() {
			return nil, models.ErrBadRequest
		}
		existing.Role = input.Role
	}

	updated, err := s.users.Update(ctx, companyID, existing)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to update user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return userModelToResponse(updated), nil
}

// ChangePassword verifies the current password before accepting the
// new one. Users change only their own password.
func (s *UserService) ChangePassword(ctx context.Context, companyID, id, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return models.ErrInternalServer
	}

	if !pkgauth.VerifyPassword(user.PasswordHash, currentPassword) {
		return models.ErrUnauthorized
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.UpdatePassword(ctx, companyID, id, hash); err != nil {
		s.logger.Error("failed to update password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("password_changed", id, companyID, nil)
	return nil
}

func (s *UserService) Delete(ctx context.Context, companyID, id string) error {
	if err := s.users.Delete(ctx, companyID, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete user", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("employee_deleted", id, companyID, nil)
	return nil
}
