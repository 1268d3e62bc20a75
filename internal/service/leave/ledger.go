package leave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/leave"
)

// Apply checks the balance and creates a pending request in one unit of work.
// The requested days are reserved immediately, so concurrent pending requests
// can never add up to more than the balance.
func (l *LeaveServiceImpl) Apply(ctx context.Context, req leave.ApplyLeaveRequest) (leave.LeaveRequest, error) {
	if err := req.Validate(); err != nil {
		return leave.LeaveRequest{}, err
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("invalid start_date: %w", err)
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("invalid end_date: %w", err)
	}

	year := l.currentYear()
	var created leave.LeaveRequest
	var firstStep leave.ApprovalLevel

	err = l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		balance, err := l.LeaveBalanceRepository.GetForUpdate(ctx, req.EmpID, req.LeaveTypeID, year)
		if err != nil {
			return err
		}
		if balance.Remaining().LessThan(req.TotalDays) {
			return leave.ErrInsufficientBalance
		}

		leaveType, err := l.LeaveTypeRepository.GetByID(ctx, req.LeaveTypeID)
		if err != nil {
			return err
		}
		if !leaveType.IsActive {
			return leave.ErrLeaveTypeNotFound
		}

		chain, err := l.approvalChain(ctx, req.LeaveTypeID)
		if err != nil {
			return err
		}

		if err := l.LeaveBalanceRepository.Reserve(ctx, balance.ID, req.TotalDays); err != nil {
			return err
		}

		created, err = l.LeaveRequestRepository.Create(ctx, leave.LeaveRequest{
			EmpID:       req.EmpID,
			LeaveTypeID: req.LeaveTypeID,
			StartDate:   startDate,
			EndDate:     endDate,
			TotalDays:   req.TotalDays,
			Reason:      req.Reason,
			Status:      leave.LeaveRequestStatusPending,
			BalanceYear: year,
		})
		if err != nil {
			return err
		}

		firstStep = chain[0]
		_, err = l.LeaveApprovalRepository.Create(ctx, leave.LeaveApproval{
			LeaveRequestID: created.ID,
			ApproverRole:   firstStep.ApproverRole,
			Level:          firstStep.Level,
			Decision:       leave.DecisionPending,
		})
		return err
	})
	if err != nil {
		return leave.LeaveRequest{}, wrapUnexpected("leave application failed", err)
	}

	slog.Info("Leave applied",
		"leave_request_id", created.ID,
		"emp_id", created.EmpID,
		"leave_type_id", created.LeaveTypeID,
		"total_days", created.TotalDays.String(),
	)
	l.publishPending(created, firstStep)

	return created, nil
}
