package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shiftline/shiftline/internal/models"
	"github.com/shiftline/shiftline/internal/repositories"
	pkglogger "github.com/shiftline/shiftline/pkg/logger"
)

var absenceTypes = map[string]bool{
	"vacation": true,
	"sick":     true,
	"other":    true,
}

// AbsenceService manages time-off requests. Employees file their own
// requests; managers and admins decide them.
type AbsenceService struct {
	absences    *repositories.AbsenceRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAbsenceService(absences *repositories.AbsenceRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AbsenceService {
	return &AbsenceService{
		absences:    absences,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// AbsenceInput carries a new request.
type AbsenceInput struct {
	Type      string
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

// Create files a request for the calling employee.
func (s *AbsenceService) Create(ctx context.Context, companyID, employeeID string, input AbsenceInput) (*models.Absence, error) {
	if !absenceTypes[input.Type] {
		return nil, models.ErrBadRequest
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() || input.EndDate.Before(input.StartDate) {
		return nil, models.ErrBadRequest
	}

	absence, err := s.absences.Create(ctx, &models.Absence{
		CompanyID:  companyID,
		EmployeeID: employeeID,
		Type:       input.Type,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
		Reason:     input.Reason,
	})
	if err != nil {
		s.logger.Error("failed to create absence", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return absence, nil
}

// List returns a tenant's requests, optionally for one employee.
func (s *AbsenceService) List(ctx context.Context, companyID, employeeID string) ([]*models.Absence, error) {
	absences, err := s.absences.List(ctx, companyID, employeeID)
	if err != nil {
		s.logger.Error("failed to list absences", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return absences, nil
}

// Decide approves or rejects a pending request. Deciding a request
// that was already decided is a conflict, not an overwrite.
func (s *AbsenceService) Decide(ctx context.Context, companyID, id string, approve bool, decider *models.SessionClaims) (*models.Absence, error) {
	status := models.AbsenceRejected
	if approve {
		status = models.AbsenceApproved
	}

	absence, err := s.absences.Decide(ctx, companyID, id, status, decider.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Either the id is unknown or the request was already
			// decided. Distinguish so the client gets a useful error.
			if _, getErr := s.absences.GetByID(ctx, companyID, id); getErr == nil {
				return nil, models.ErrConflict
			}
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to decide absence", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("absence_decided", decider.UserID, companyID,
		map[string]string{"absence_id": id, "status": status})

	return absence, nil
}

// Delete withdraws a request. Employees may withdraw only their own
// pending requests; the handler passes ownerID empty for managers.
func (s *AbsenceService) Delete(ctx context.Context, companyID, id, ownerID string) error {
	if ownerID != "" {
		absence, err := s.absences.GetByID(ctx, companyID, id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.ErrNotFound
			}
			return models.ErrInternalServer
		}
		if absence.EmployeeID != ownerID {
			return models.ErrForbidden
		}
		if absence.Status != models.AbsencePending {
			return models.ErrConflict
		}
	}

	if err := s.absences.Delete(ctx, companyID, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete absence", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}
