package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shiftline/shiftline/internal/models"
	"github.com/shiftline/shiftline/internal/repositories"
	pkgauth "github.com/shiftline/shiftline/pkg/auth"
	pkglogger "github.com/shiftline/shiftline/pkg/logger"
)

// CompanyService handles tenant registration and settings.
type CompanyService struct {
	companies   *repositories.CompanyRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewCompanyService(companies *repositories.CompanyRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *CompanyService {
	return &CompanyService{
		companies:   companies,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// RegistrationInput carries everything needed to create a tenant and
// its owner account.
type RegistrationInput struct {
	CompanyName string
	Timezone    string
	WeekStart   int
	Username    string
	Email       string
	Password    string
	OwnerName   string
}

// CompanyResponse represents a company in API responses.
type CompanyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timezone  string `json:"timezone"`
	WeekStart int    `json:"week_start"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// RegistrationResponse is returned after a successful registration.
type RegistrationResponse struct {
	Company *CompanyResponse `json:"company"`
	Owner   *UserResponse    `json:"owner"`
}

// Register creates a new tenant with its first admin. The owner logs
// in afterwards like any other user; registration does not establish a
// session.
func (s *CompanyService) Register(ctx context.Context, input RegistrationInput) (*RegistrationResponse, error) {
	if err := pkgauth.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(input.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	company := &models.Company{
		Name:      strings.TrimSpace(input.CompanyName),
		Timezone:  input.Timezone,
		WeekStart: input.WeekStart,
	}
	owner := &models.User{
		Username:     strings.ToLower(strings.TrimSpace(input.Username)),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		Name:         input.OwnerName,
	}

	if company.Name == "" || owner.Username == "" || owner.Email == "" {
		return nil, models.ErrBadRequest
	}

	createdCompany, createdOwner, err := s.companies.CreateWithOwner(ctx, company, owner)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to register company", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("company_registered", createdOwner.ID, createdCompany.ID,
		map[string]string{"company_name": createdCompany.Name})

	return &RegistrationResponse{
		Company: companyModelToResponse(createdCompany),
		Owner:   userModelToResponse(createdOwner),
	}, nil
}

// Get returns the caller's company.
func (s *CompanyService) Get(ctx context.Context, companyID string) (*CompanyResponse, error) {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get company", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return companyModelToResponse(company), nil
}

// UpdateSettings changes the company's name, timezone or week start.
func (s *CompanyService) UpdateSettings(ctx context.Context, companyID, name, timezone string, weekStart int) (*CompanyResponse, error) {
	if name = strings.TrimSpace(name); name == "" {
		return nil, models.ErrBadRequest
	}
	if weekStart < 0 || weekStart > 6 {
		return nil, models.ErrBadRequest
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, models.ErrBadRequest
	}

	company := &models.Company{
		ID:        companyID,
		Name:      name,
		Timezone:  timezone,
		WeekStart: weekStart,
	}

	updated, err := s.companies.Update(ctx, company)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update company", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return companyModelToResponse(updated), nil
}

func companyModelToResponse(c *models.Company) *CompanyResponse {
	return &CompanyResponse{
		ID:        c.ID,
		Name:      c.Name,
		Timezone:  c.Timezone,
		WeekStart: c.WeekStart,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}
