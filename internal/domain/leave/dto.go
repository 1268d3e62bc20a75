package leave

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// DayPrecision is the number of decimal places stored for leave day amounts.
const DayPrecision = 1

type ApplyLeaveRequest struct {
	EmpID       string          `json:"emp_id"`
	LeaveTypeID string          `json:"leave_type_id"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	TotalDays   decimal.Decimal `json:"total_days"`
	Reason      string          `json:"reason"`
}

func (r *ApplyLeaveRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmpID) {
		errs = append(errs, validator.Required("emp_id"))
	}

	if validator.IsEmpty(r.LeaveTypeID) {
		errs = append(errs, validator.Required("leave_type_id"))
	}

	var start, end time.Time
	var startOK, endOK bool
	if validator.IsEmpty(r.StartDate) {
		errs = append(errs, validator.Required("start_date"))
	} else if start, startOK = validator.IsValidDate(r.StartDate); !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}

	if validator.IsEmpty(r.EndDate) {
		errs = append(errs, validator.Required("end_date"))
	} else if end, endOK = validator.IsValidDate(r.EndDate); !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}

	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	if !r.TotalDays.IsPositive() {
		errs = append(errs, validator.ValidationError{
			Field:   "total_days",
			Message: "total_days must be greater than 0",
		})
	} else if !r.TotalDays.Equal(r.TotalDays.Round(DayPrecision)) {
		errs = append(errs, validator.ValidationError{
			Field:   "total_days",
			Message: "total_days must have at most one decimal place",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type DecideLeaveRequest struct {
	RequestID string   `json:"-"`
	Approver  Approver `json:"-"`
	Comment   *string  `json:"reason,omitempty"`
}

func (r *DecideLeaveRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.RequestID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "leave request id is required",
		})
	}
	if validator.IsEmpty(r.Approver.EmpID) || validator.IsEmpty(string(r.Approver.Role)) {
		errs = append(errs, validator.ValidationError{
			Field:   "approver",
			Message: "approver identity is required",
		})
	}
	if r.Comment != nil && len(*r.Comment) > 1000 {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason must not exceed 1000 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ========================================
// RESPONSES
// ========================================

type LeaveTypeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type LeaveBalanceResponse struct {
	LeaveTypeID string  `json:"leave_type_id"`
	LeaveType   string  `json:"leave_type"`
	Year        int     `json:"year"`
	Total       float64 `json:"total"`
	Used        float64 `json:"used"`
	Pending     float64 `json:"pending"`
	Remaining   float64 `json:"remaining"`
}

func NewLeaveBalanceResponse(b LeaveBalance) LeaveBalanceResponse {
	resp := LeaveBalanceResponse{
		LeaveTypeID: b.LeaveTypeID,
		Year:        b.Year,
		Total:       b.Total.InexactFloat64(),
		Used:        b.Used.InexactFloat64(),
		Pending:     b.Pending.InexactFloat64(),
		Remaining:   b.Remaining().InexactFloat64(),
	}
	if b.LeaveTypeName != nil {
		resp.LeaveType = *b.LeaveTypeName
	}
	return resp
}

type LeaveRequestResponse struct {
	ID          string             `json:"id"`
	EmpID       string             `json:"emp_id"`
	LeaveTypeID string             `json:"leave_type_id"`
	LeaveType   string             `json:"leave_type"`
	StartDate   string             `json:"start_date"`
	EndDate     string             `json:"end_date"`
	TotalDays   float64            `json:"total_days"`
	Reason      string             `json:"reason"`
	Status      LeaveRequestStatus `json:"status"`
	AppliedAt   time.Time          `json:"applied_at"`
}

func NewLeaveRequestResponse(r LeaveRequest) LeaveRequestResponse {
	resp := LeaveRequestResponse{
		ID:          r.ID,
		EmpID:       r.EmpID,
		LeaveTypeID: r.LeaveTypeID,
		StartDate:   r.StartDate.Format(dateLayout),
		EndDate:     r.EndDate.Format(dateLayout),
		TotalDays:   r.TotalDays.InexactFloat64(),
		Reason:      r.Reason,
		Status:      r.Status,
		AppliedAt:   r.AppliedAt,
	}
	if r.LeaveTypeName != nil {
		resp.LeaveType = *r.LeaveTypeName
	}
	return resp
}

type LeaveApprovalResponse struct {
	ID            string     `json:"id"`
	ApprovalLevel int        `json:"approval_level"`
	ApproverRole  string     `json:"approver_role"`
	Decision      Decision   `json:"decision"`
	DecidedBy     *string    `json:"decided_by"`
	DecidedAt     *time.Time `json:"decided_at"`
	Comment       *string    `json:"comment"`
}

func NewLeaveApprovalResponse(a LeaveApproval) LeaveApprovalResponse {
	return LeaveApprovalResponse{
		ID:            a.ID,
		ApprovalLevel: a.Level,
		ApproverRole:  string(a.ApproverRole),
		Decision:      a.Decision,
		DecidedBy:     a.DecidedBy,
		DecidedAt:     a.DecidedAt,
		Comment:       a.Comment,
	}
}

type LeaveRequestDetailResponse struct {
	LeaveRequestResponse
	Approvals []LeaveApprovalResponse `json:"approvals"`
}

type PendingApprovalResponse struct {
	Approval LeaveApprovalResponse `json:"approval"`
	Request  LeaveRequestResponse  `json:"request"`
}

// Leave event names streamed to subscribers.
const (
	EventApprovalPending = "leave.approval_pending"
	EventDecided         = "leave.decided"
)

type LeaveEventResponse struct {
	LeaveRequestID string             `json:"leave_request_id"`
	EmpID          string             `json:"emp_id"`
	LeaveTypeID    string             `json:"leave_type_id"`
	Status         LeaveRequestStatus `json:"status"`
	ApprovalLevel  int                `json:"approval_level"`
	ApproverRole   string             `json:"approver_role,omitempty"`
	Decision       Decision           `json:"decision,omitempty"`
	DecidedBy      string             `json:"decided_by,omitempty"`
}
