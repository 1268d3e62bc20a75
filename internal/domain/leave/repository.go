package leave

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/shopspring/decimal"
)

// LeaveTypeRepository - interface for leave_types and leave_type_approval_levels
type LeaveTypeRepository interface {
	GetByID(ctx context.Context, id string) (LeaveType, error)
	ListActive(ctx context.Context) ([]LeaveType, error)
	// GetApprovalChain returns the configured levels ordered ascending. An
	// empty result means the default chain applies.
	GetApprovalChain(ctx context.Context, leaveTypeID string) ([]ApprovalLevel, error)
}

// LeaveBalanceRepository - interface for leave_balances table
type LeaveBalanceRepository interface {
	ListByEmployeeYear(ctx context.Context, empID string, year int) ([]LeaveBalance, error)
	// GetForUpdate locks the (emp, type, year) row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, empID, leaveTypeID string, year int) (LeaveBalance, error)
	// Reserve adds days to pending.
	Reserve(ctx context.Context, balanceID int64, days decimal.Decimal) error
	// Release removes days from pending.
	Release(ctx context.Context, balanceID int64, days decimal.Decimal) error
	// Commit moves days from pending to used.
	Commit(ctx context.Context, balanceID int64, days decimal.Decimal) error
}

// LeaveRequestRepository - interface for leave_requests table
type LeaveRequestRepository interface {
	Create(ctx context.Context, request LeaveRequest) (LeaveRequest, error)
	GetByID(ctx context.Context, id string) (LeaveRequest, error)
	GetForUpdate(ctx context.Context, id string) (LeaveRequest, error)
	// ListByEmployee returns requests newest first.
	ListByEmployee(ctx context.Context, empID string) ([]LeaveRequest, error)
	UpdateStatus(ctx context.Context, id string, status LeaveRequestStatus) error
}

// LeaveApprovalRepository - interface for leave_approvals table
type LeaveApprovalRepository interface {
	Create(ctx context.Context, approval LeaveApproval) (LeaveApproval, error)
	ListByRequest(ctx context.Context, requestID string) ([]LeaveApproval, error)
	GetPendingByRequest(ctx context.Context, requestID string) (LeaveApproval, error)
	Decide(ctx context.Context, id string, decision Decision, decidedBy string, comment *string, at time.Time) error
	// ListPending returns active steps, oldest first. A nil role lists every role's steps.
	ListPending(ctx context.Context, role *employee.Role) ([]PendingApproval, error)
}
