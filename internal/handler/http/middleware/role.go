package middleware

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/handler/http/response"
)

// RequireAdmin requires the admin role
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(employee.RoleAdmin)(next)
}

// RequireApprover requires a role that owns approval steps
func RequireApprover(next http.Handler) http.Handler {
	return RequireRole(employee.RoleManager, employee.RoleHR, employee.RoleAdmin)(next)
}

// RequireRole checks that the caller has one of roles
func RequireRole(roles ...employee.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFromContext(r.Context())
			if !ok {
				response.HandleError(w, response.ErrInvalidToken)
				return
			}

			if !slices.Contains(roles, caller.Role) {
				response.Forbidden(w, fmt.Sprintf("Insufficient permissions: role '%s' is not allowed", caller.Role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelfOrRole lets employees read their own resources, identified by
// the URL parameter param, while roles may read anyone's.
func RequireSelfOrRole(param func(*http.Request) string, roles ...employee.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFromContext(r.Context())
			if !ok {
				response.HandleError(w, response.ErrInvalidToken)
				return
			}

			if param(r) != caller.EmpID && !slices.Contains(roles, caller.Role) {
				response.Forbidden(w, "You can only access your own records")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
