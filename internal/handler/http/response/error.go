package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
)

var ErrInvalidToken = errors.New("invalid or missing access token")

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, "Validation failed", validationErrs.ToMap())
		return
	}

	switch {
	case errors.Is(err, ErrInvalidToken):
		Unauthorized(w, err.Error())

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")

	// Attendance domain errors
	case errors.Is(err, attendance.ErrInvalidDateRange),
		errors.Is(err, attendance.ErrDateRangeTooLong):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrAggregationInProgress):
		Conflict(w, "Aggregation for this date is already running")

	// Punch domain errors
	case errors.Is(err, punch.ErrDeviceConnection):
		BadGateway(w, "Terminal device unreachable")

	// Leave domain errors
	case errors.Is(err, leave.ErrBalanceNotFound):
		BadRequest(w, "Leave balance not found", nil)
	case errors.Is(err, leave.ErrInsufficientBalance):
		BadRequest(w, "Insufficient leave balance", nil)
	case errors.Is(err, leave.ErrLeaveTypeNotFound):
		NotFound(w, "Leave type not found")
	case errors.Is(err, leave.ErrLeaveRequestNotFound):
		NotFound(w, "Leave request not found")
	case errors.Is(err, leave.ErrLeaveRequestAlreadyProcessed),
		errors.Is(err, leave.ErrApprovalStepNotFound):
		Conflict(w, "Leave request already processed")
	case errors.Is(err, leave.ErrApproverNotAllowed):
		Forbidden(w, "You are not allowed to decide this approval step")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
