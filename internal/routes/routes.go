package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/shiftline/shiftline/internal/auth"
	"github.com/shiftline/shiftline/internal/handlers"
	"github.com/shiftline/shiftline/internal/middleware"
	"github.com/shiftline/shiftline/internal/models"
)

// Handlers bundles the handler set the router wires up.
type Handlers struct {
	Auth     *handlers.AuthHandler
	MFA      *handlers.MFAHandler
	Company  *handlers.CompanyHandler
	Employee *handlers.EmployeeHandler
	Schedule *handlers.ScheduleHandler
	Absence  *handlers.AbsenceHandler
}

// RegisterRoutes registers all application routes. Role gates use
// strict set membership: a route listing ADMIN and MANAGER admits
// exactly those two roles and nothing else.
func RegisterRoutes(router chi.Router, h Handlers, tokenManager *auth.TokenManager) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes, edge rate limited
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimitConfig))
		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/mfa/verify", h.Auth.VerifyMFA)
		r.Post("/auth/mfa/resend", h.Auth.ResendMFA)
		r.Post("/companies/register", h.Company.Register)
	})

	// Session required
	router.Group(func(r chi.Router) {
		r.Use(auth.SessionMiddleware(tokenManager))

		r.Post("/auth/logout", h.Auth.Logout)
		r.Get("/auth/me", h.Auth.Me)

		// MFA management for the caller's own account
		r.Route("/mfa/methods", func(r chi.Router) {
			r.Get("/", h.MFA.List)
			r.Post("/", h.MFA.Enroll)
			r.Post("/{methodID}/confirm", h.MFA.Confirm)
			r.Post("/{methodID}/resend", h.MFA.Resend)
			r.Put("/{methodID}/default", h.MFA.SetDefault)
			r.Delete("/{methodID}", h.MFA.Remove)
		})

		// Any authenticated member of the tenant
		r.Get("/company", h.Company.Get)
		r.Get("/employees", h.Employee.List)
		r.Get("/employees/{employeeID}", h.Employee.Get)
		r.Put("/password", h.Employee.ChangePassword)
		r.Get("/departments", h.Schedule.ListDepartments)
		r.Get("/shift-templates", h.Schedule.ListTemplates)
		r.Get("/shifts", h.Schedule.ListShifts)
		r.Get("/shifts/{shiftID}", h.Schedule.GetShift)
		r.Get("/absences", h.Absence.List)
		r.Post("/absences", h.Absence.Create)
		r.Delete("/absences/{absenceID}", h.Absence.Delete)

		// Admin and manager
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin, models.RoleManager))

			r.Post("/employees", h.Employee.Create)
			r.Put("/employees/{employeeID}", h.Employee.Update)

			r.Post("/departments", h.Schedule.CreateDepartment)
			r.Put("/departments/{departmentID}", h.Schedule.UpdateDepartment)
			r.Delete("/departments/{departmentID}", h.Schedule.DeleteDepartment)

			r.Post("/shift-templates", h.Schedule.CreateTemplate)
			r.Put("/shift-templates/{templateID}", h.Schedule.UpdateTemplate)
			r.Delete("/shift-templates/{templateID}", h.Schedule.DeleteTemplate)

			r.Post("/shifts", h.Schedule.CreateShift)
			r.Put("/shifts/{shiftID}", h.Schedule.UpdateShift)
			r.Delete("/shifts/{shiftID}", h.Schedule.DeleteShift)

			r.Post("/absences/{absenceID}/decide", h.Absence.Decide)
		})

		// Admin only
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))

			r.Put("/company", h.Company.Update)
			r.Delete("/employees/{employeeID}", h.Employee.Delete)
		})
	})
}
