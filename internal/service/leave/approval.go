package leave

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/leave"
)

// Approve records an approval on the active step. The request stays Pending
// while further levels remain; approving the last level moves the reserved
// days to used.
func (l *LeaveServiceImpl) Approve(ctx context.Context, req leave.DecideLeaveRequest) (leave.LeaveRequest, error) {
	return l.decide(ctx, req, leave.DecisionApproved)
}

// Reject records a rejection on the active step and releases the reserved days.
func (l *LeaveServiceImpl) Reject(ctx context.Context, req leave.DecideLeaveRequest) (leave.LeaveRequest, error) {
	return l.decide(ctx, req, leave.DecisionRejected)
}

func (l *LeaveServiceImpl) decide(ctx context.Context, req leave.DecideLeaveRequest, decision leave.Decision) (leave.LeaveRequest, error) {
	if err := req.Validate(); err != nil {
		return leave.LeaveRequest{}, err
	}

	var result leave.LeaveRequest
	var decidedLevel int
	var nextStep *leave.ApprovalLevel

	err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// request row first, balance row second, in every path
		request, err := l.LeaveRequestRepository.GetForUpdate(ctx, req.RequestID)
		if err != nil {
			return err
		}
		if request.Status.IsTerminal() {
			return leave.ErrLeaveRequestAlreadyProcessed
		}

		step, err := l.LeaveApprovalRepository.GetPendingByRequest(ctx, request.ID)
		if err != nil {
			if errors.Is(err, leave.ErrApprovalStepNotFound) {
				return leave.ErrLeaveRequestAlreadyProcessed
			}
			return err
		}
		if !req.Approver.CanDecide(step.ApproverRole) {
			return leave.ErrApproverNotAllowed
		}

		if err := l.LeaveApprovalRepository.Decide(ctx, step.ID, decision, req.Approver.EmpID, req.Comment, l.now()); err != nil {
			return err
		}
		decidedLevel = step.Level

		if decision == leave.DecisionApproved {
			next, err := l.nextLevel(ctx, request.LeaveTypeID, step.Level)
			if err != nil {
				return err
			}
			if next != nil {
				_, err = l.LeaveApprovalRepository.Create(ctx, leave.LeaveApproval{
					LeaveRequestID: request.ID,
					ApproverRole:   next.ApproverRole,
					Level:          next.Level,
					Decision:       leave.DecisionPending,
				})
				result = request
				nextStep = next
				return err
			}
		}

		balance, err := l.LeaveBalanceRepository.GetForUpdate(ctx, request.EmpID, request.LeaveTypeID, request.BalanceYear)
		if err != nil {
			return err
		}

		status := leave.LeaveRequestStatusRejected
		if decision == leave.DecisionApproved {
			status = leave.LeaveRequestStatusApproved
			err = l.LeaveBalanceRepository.Commit(ctx, balance.ID, request.TotalDays)
		} else {
			err = l.LeaveBalanceRepository.Release(ctx, balance.ID, request.TotalDays)
		}
		if err != nil {
			return err
		}

		if err := l.LeaveRequestRepository.UpdateStatus(ctx, request.ID, status); err != nil {
			return err
		}
		request.Status = status
		result = request
		return nil
	})
	if err != nil {
		return leave.LeaveRequest{}, wrapUnexpected("leave decision failed", err)
	}

	slog.Info("Leave request decided",
		"leave_request_id", result.ID,
		"decision", string(decision),
		"decided_by", req.Approver.EmpID,
		"status", string(result.Status),
	)
	l.publishDecided(result, decidedLevel, decision, req.Approver.EmpID)
	if nextStep != nil {
		l.publishPending(result, *nextStep)
	}

	return result, nil
}

// nextLevel returns the configured level after current, or nil when current is last.
func (l *LeaveServiceImpl) nextLevel(ctx context.Context, leaveTypeID string, current int) (*leave.ApprovalLevel, error) {
	chain, err := l.approvalChain(ctx, leaveTypeID)
	if err != nil {
		return nil, err
	}
	for i := range chain {
		if chain[i].Level > current {
			return &chain[i], nil
		}
	}
	return nil, nil
}
