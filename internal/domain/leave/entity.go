package leave

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/shopspring/decimal"
)

// LeaveType entity
type LeaveType struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// ApprovalLevel is one configured step of a leave type's approval chain.
type ApprovalLevel struct {
	LeaveTypeID  string
	Level        int
	ApproverRole employee.Role
}

// DefaultApprovalChain applies when a leave type has no configured levels.
var DefaultApprovalChain = []ApprovalLevel{
	{Level: 1, ApproverRole: employee.RoleManager},
}

// LeaveBalance entity. Pending holds days reserved by requests awaiting a decision.
type LeaveBalance struct {
	ID          int64
	EmpID       string
	LeaveTypeID string
	Year        int
	Total       decimal.Decimal
	Used        decimal.Decimal
	Pending     decimal.Decimal
	UpdatedAt   time.Time

	// Relationships (for responses)
	LeaveTypeName *string
}

// Remaining is total - used - pending. It never goes negative.
func (b LeaveBalance) Remaining() decimal.Decimal {
	return b.Total.Sub(b.Used).Sub(b.Pending)
}

type LeaveRequestStatus string

const (
	LeaveRequestStatusPending  LeaveRequestStatus = "Pending"
	LeaveRequestStatusApproved LeaveRequestStatus = "Approved"
	LeaveRequestStatusRejected LeaveRequestStatus = "Rejected"
)

func (s LeaveRequestStatus) IsTerminal() bool {
	return s == LeaveRequestStatusApproved || s == LeaveRequestStatusRejected
}

// LeaveRequest entity
type LeaveRequest struct {
	ID          string
	EmpID       string
	LeaveTypeID string
	StartDate   time.Time
	EndDate     time.Time
	TotalDays   decimal.Decimal
	Reason      string
	Status      LeaveRequestStatus
	BalanceYear int
	AppliedAt   time.Time
	UpdatedAt   time.Time

	// Relationships (for responses)
	LeaveTypeName *string
}

type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// LeaveApproval is one step of a request's approval chain. At most one step
// per request is pending, and steps are created in ascending level order.
type LeaveApproval struct {
	ID             string
	LeaveRequestID string
	ApproverRole   employee.Role
	Level          int
	Decision       Decision
	DecidedBy      *string
	DecidedAt      *time.Time
	Comment        *string
	CreatedAt      time.Time
}

// PendingApproval is an active step joined with its request.
type PendingApproval struct {
	Approval LeaveApproval
	Request  LeaveRequest
}

// Approver is the authenticated actor deciding a step.
type Approver struct {
	EmpID string
	Role  employee.Role
}

// CanDecide reports whether a may act on a step owned by role.
func (a Approver) CanDecide(role employee.Role) bool {
	return a.Role == employee.RoleAdmin || a.Role == role
}
