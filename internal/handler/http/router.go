package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

func empIDParam(r *http.Request) string {
	return chi.URLParam(r, "emp_id")
}

func NewRouter(env string, JWTService jwt.Service, attendanceHandler AttendanceHandler, leaveHandler LeaveHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-attendance"),
		slog.String("version", "v1.0.0"),
		slog.String("env", env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// EventSource cannot send headers, so the stream also takes ?jwt=
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(JWTService.JWTAuth(), jwtauth.TokenFromHeader, jwtauth.TokenFromQuery))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Get("/events/leave", leaveHandler.Events)
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

			r.Route("/attendance", func(r chi.Router) {
				r.Get("/today", attendanceHandler.Today)
				r.Get("/history", attendanceHandler.History)
				r.Get("/holidays", attendanceHandler.Holidays)
				r.Get("/holidays.ics", attendanceHandler.HolidaysICS)

				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Get("/organization/today", attendanceHandler.OrganizationToday)
					r.Post("/sync", attendanceHandler.Sync)
					r.Post("/aggregate", attendanceHandler.Aggregate)
					r.Get("/export", attendanceHandler.Export)
				})
			})

			r.Route("/leave", func(r chi.Router) {
				r.Get("/types", leaveHandler.ListTypes)
				r.Post("/apply", leaveHandler.Apply)
				r.Get("/requests/{id}", leaveHandler.GetRequest)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireSelfOrRole(empIDParam, employee.RoleManager, employee.RoleHR, employee.RoleAdmin))
					r.Get("/balance/{emp_id}", leaveHandler.GetBalance)
					r.Get("/my/{emp_id}", leaveHandler.GetMyRequests)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireApprover)
					r.Get("/approvals/pending", leaveHandler.ListPendingApprovals)
					r.Post("/requests/{id}/approve", leaveHandler.ApproveRequest)
					r.Post("/requests/{id}/reject", leaveHandler.RejectRequest)
				})
			})
		})
	})
	return r
}
