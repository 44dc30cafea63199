package services

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shiftline/shiftline/internal/models"
	"github.com/shiftline/shiftline/internal/repositories"
)

var clockTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ScheduleService manages departments, shift templates and scheduled
// shifts. Listings are plain filtered reads; overlapping shifts are
// allowed and left to the planner to sort out.
type ScheduleService struct {
	departments *repositories.DepartmentRepository
	templates   *repositories.ShiftTemplateRepository
	shifts      *repositories.ShiftRepository
	logger      *slog.Logger
}

func NewScheduleService(
	departments *repositories.DepartmentRepository,
	templates *repositories.ShiftTemplateRepository,
	shifts *repositories.ShiftRepository,
	logger *slog.Logger,
) *ScheduleService {
	return &ScheduleService{
		departments: departments,
		templates:   templates,
		shifts:      shifts,
		logger:      logger,
	}
}

func (s *ScheduleService) mapErr(err error, op string) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return models.ErrNotFound
	case errors.Is(err, models.ErrConflict):
		return models.ErrConflict
	case errors.Is(err, models.ErrBadRequest):
		return models.ErrBadRequest
	default:
		s.logger.Error(op, slog.Any("error", err))
		return models.ErrInternalServer
	}
}

// Departments

func (s *ScheduleService) CreateDepartment(ctx context.Context, companyID, name string) (*models.Department, error) {
	if name = strings.TrimSpace(name); name == "" {
		return nil, models.ErrBadRequest
	}

	dept, err := s.departments.Create(ctx, &models.Department{CompanyID: companyID, Name: name})
	if err != nil {
		return nil, s.mapErr(err, "failed to create department")
	}
	return dept, nil
}

func (s *ScheduleService) ListDepartments(ctx context.Context, companyID string) ([]*models.Department, error) {
	depts, err := s.departments.List(ctx, companyID)
	if err != nil {
		return nil, s.mapErr(err, "failed to list departments")
	}
	return depts, nil
}

func (s *ScheduleService) UpdateDepartment(ctx context.Context, companyID, id, name string) (*models.Department, error) {
	if name = strings.TrimSpace(name); name == "" {
		return nil, models.ErrBadRequest
	}

	dept, err := s.departments.Update(ctx, &models.Department{ID: id, CompanyID: companyID, Name: name})
	if err != nil {
		return nil, s.mapErr(err, "failed to update department")
	}
	return dept, nil
}

func (s *ScheduleService) DeleteDepartment(ctx context.Context, companyID, id string) error {
	if err := s.departments.Delete(ctx, companyID, id); err != nil {
		return s.mapErr(err, "failed to delete department")
	}
	return nil
}

// Shift templates

// TemplateInput carries a template create or update. Times are clock
// times "HH:MM"; an end before the start means the shift crosses
// midnight and is accepted.
type TemplateInput struct {
	Name         string
	DepartmentID *string
	StartTime    string
	EndTime      string
	BreakMinutes int
	Color        string
}

func (s *ScheduleService) validateTemplateInput(input TemplateInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return models.ErrBadRequest
	}
	if !clockTimePattern.MatchString(input.StartTime) || !clockTimePattern.MatchString(input.EndTime) {
		return models.ErrBadRequest
	}
	if input.BreakMinutes < 0 || input.BreakMinutes > 24*60 {
		return models.ErrBadRequest
	}
	return nil
}

func (s *ScheduleService) CreateTemplate(ctx context.Context, companyID string, input TemplateInput) (*models.ShiftTemplate, error) {
	if err := s.validateTemplateInput(input); err != nil {
		return nil, err
	}

	tpl, err := s.templates.Create(ctx, &models.ShiftTemplate{
		CompanyID:    companyID,
		DepartmentID: input.DepartmentID,
		Name:         strings.TrimSpace(input.Name),
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
		BreakMinutes: input.BreakMinutes,
		Color:        input.Color,
	})
	if err != nil {
		return nil, s.mapErr(err, "failed to create shift template")
	}
	return tpl, nil
}

func (s *ScheduleService) ListTemplates(ctx context.Context, companyID string) ([]*models.ShiftTemplate, error) {
	tpls, err := s.templates.List(ctx, companyID)
	if err != nil {
		return nil, s.mapErr(err, "failed to list shift templates")
	}
	return tpls, nil
}

func (s *ScheduleService) UpdateTemplate(ctx context.Context, companyID, id string, input TemplateInput) (*models.ShiftTemplate, error) {
	if err := s.validateTemplateInput(input); err != nil {
		return nil, err
	}

	tpl, err := s.templates.Update(ctx, &models.ShiftTemplate{
		ID:           id,
		CompanyID:    companyID,
		DepartmentID: input.DepartmentID,
		Name:         strings.TrimSpace(input.Name),
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
		BreakMinutes: input.BreakMinutes,
		Color:        input.Color,
	})
	if err != nil {
		return nil, s.mapErr(err, "failed to update shift template")
	}
	return tpl, nil
}

func (s *ScheduleService) DeleteTemplate(ctx context.Context, companyID, id string) error {
	if err := s.templates.Delete(ctx, companyID, id); err != nil {
		return s.mapErr(err, "failed to delete shift template")
	}
	return nil
}

// Shifts

// ShiftInput carries a shift create or update. When TemplateID is set
// and the clock times are empty, the template's times and break are
// copied in at creation; later template edits do not touch existing
// shifts.
type ShiftInput struct {
	DepartmentID *string
	TemplateID   *string
	EmployeeID   *string
	WorkDate     time.Time
	StartTime    string
	EndTime      string
	BreakMinutes int
	Notes        string
}

func (s *ScheduleService) CreateShift(ctx context.Context, companyID string, input ShiftInput) (*models.Shift, error) {
	if input.WorkDate.IsZero() {
		return nil, models.ErrBadRequest
	}

	shift := &models.Shift{
		CompanyID:    companyID,
		DepartmentID: input.DepartmentID,
		TemplateID:   input.TemplateID,
		EmployeeID:   input.EmployeeID,
		WorkDate:     input.WorkDate,
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
		BreakMinutes: input.BreakMinutes,
		Notes:        input.Notes,
	}

	if input.TemplateID != nil && input.StartTime == "" && input.EndTime == "" {
		tpl, err := s.templates.GetByID(ctx, companyID, *input.TemplateID)
		if err != nil {
			return nil, s.mapErr(err, "failed to resolve shift template")
		}
		shift.StartTime = tpl.StartTime
		shift.EndTime = tpl.EndTime
		shift.BreakMinutes = tpl.BreakMinutes
		if shift.DepartmentID == nil {
			shift.DepartmentID = tpl.DepartmentID
		}
	}

	if !clockTimePattern.MatchString(shift.StartTime) || !clockTimePattern.MatchString(shift.EndTime) {
		return nil, models.ErrBadRequest
	}

	created, err := s.shifts.Create(ctx, shift)
	if err != nil {
		return nil, s.mapErr(err, "failed to create shift")
	}
	return created, nil
}

func (s *ScheduleService) GetShift(ctx context.Context, companyID, id string) (*models.Shift, error) {
	shift, err := s.shifts.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, s.mapErr(err, "failed to get shift")
	}
	return shift, nil
}

func (s *ScheduleService) ListShifts(ctx context.Context, filter models.ShiftFilter) ([]*models.Shift, error) {
	shifts, err := s.shifts.List(ctx, filter)
	if err != nil {
		return nil, s.mapErr(err, "failed to list shifts")
	}
	return shifts, nil
}

func (s *ScheduleService) UpdateShift(ctx context.Context, companyID, id string, input ShiftInput) (*models.Shift, error) {
	existing, err := s.shifts.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, s.mapErr(err, "failed to get shift")
	}

	if !input.WorkDate.IsZero() {
		existing.WorkDate = input.WorkDate
	}
	if input.StartTime != "" {
		existing.StartTime = input.StartTime
	}
	if input.EndTime != "" {
		existing.EndTime = input.EndTime
	}
	if input.BreakMinutes >= 0 {
		existing.BreakMinutes = input.BreakMinutes
	}
	existing.DepartmentID = input.DepartmentID
	existing.EmployeeID = input.EmployeeID
	existing.Notes = input.Notes

	if !clockTimePattern.MatchString(existing.StartTime) || !clockTimePattern.MatchString(existing.EndTime) {
		return nil, models.ErrBadRequest
	}

	updated, err := s.shifts.Update(ctx, existing)
	if err != nil {
		return nil, s.mapErr(err, "failed to update shift")
	}
	return updated, nil
}

func (s *ScheduleService) DeleteShift(ctx context.Context, companyID, id string) error {
	if err := s.shifts.Delete(ctx, companyID, id); err != nil {
		return s.mapErr(err, "failed to delete shift")
	}
	return nil
}
