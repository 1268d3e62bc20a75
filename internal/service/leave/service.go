package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/sse"
)

type LeaveServiceImpl struct {
	tx database.Transactor
	leave.LeaveTypeRepository
	leave.LeaveBalanceRepository
	leave.LeaveRequestRepository
	leave.LeaveApprovalRepository
	loc *time.Location
	now func() time.Time
	hub *sse.Hub
}

func NewLeaveService(
	tx database.Transactor,
	leaveTypeRepository leave.LeaveTypeRepository,
	leaveBalanceRepository leave.LeaveBalanceRepository,
	leaveRequestRepository leave.LeaveRequestRepository,
	leaveApprovalRepository leave.LeaveApprovalRepository,
	loc *time.Location,
) *LeaveServiceImpl {
	if loc == nil {
		loc = time.UTC
	}
	return &LeaveServiceImpl{
		tx:                      tx,
		LeaveTypeRepository:     leaveTypeRepository,
		LeaveBalanceRepository:  leaveBalanceRepository,
		LeaveRequestRepository:  leaveRequestRepository,
		LeaveApprovalRepository: leaveApprovalRepository,
		loc:                     loc,
		now:                     time.Now,
	}
}

// ListLeaveTypes implements leave.LeaveService.
func (l *LeaveServiceImpl) ListLeaveTypes(ctx context.Context) ([]leave.LeaveTypeResponse, error) {
	types, err := l.LeaveTypeRepository.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave types: %w", err)
	}

	resp := make([]leave.LeaveTypeResponse, 0, len(types))
	for _, lt := range types {
		resp = append(resp, leave.LeaveTypeResponse{ID: lt.ID, Name: lt.Name})
	}
	return resp, nil
}

// GetBalances implements leave.LeaveService.
func (l *LeaveServiceImpl) GetBalances(ctx context.Context, empID string) ([]leave.LeaveBalanceResponse, error) {
	balances, err := l.LeaveBalanceRepository.ListByEmployeeYear(ctx, empID, l.currentYear())
	if err != nil {
		return nil, fmt.Errorf("failed to get leave balances: %w", err)
	}

	resp := make([]leave.LeaveBalanceResponse, 0, len(balances))
	for _, b := range balances {
		resp = append(resp, leave.NewLeaveBalanceResponse(b))
	}
	return resp, nil
}

// ListMyRequests implements leave.LeaveService.
func (l *LeaveServiceImpl) ListMyRequests(ctx context.Context, empID string) ([]leave.LeaveRequestResponse, error) {
	requests, err := l.LeaveRequestRepository.ListByEmployee(ctx, empID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave requests: %w", err)
	}

	resp := make([]leave.LeaveRequestResponse, 0, len(requests))
	for _, r := range requests {
		resp = append(resp, leave.NewLeaveRequestResponse(r))
	}
	return resp, nil
}

// GetRequest implements leave.LeaveService.
func (l *LeaveServiceImpl) GetRequest(ctx context.Context, id string) (leave.LeaveRequestDetailResponse, error) {
	request, err := l.LeaveRequestRepository.GetByID(ctx, id)
	if err != nil {
		return leave.LeaveRequestDetailResponse{}, err
	}

	approvals, err := l.LeaveApprovalRepository.ListByRequest(ctx, id)
	if err != nil {
		return leave.LeaveRequestDetailResponse{}, fmt.Errorf("failed to list approvals: %w", err)
	}

	resp := leave.LeaveRequestDetailResponse{
		LeaveRequestResponse: leave.NewLeaveRequestResponse(request),
		Approvals:            make([]leave.LeaveApprovalResponse, 0, len(approvals)),
	}
	for _, a := range approvals {
		resp.Approvals = append(resp.Approvals, leave.NewLeaveApprovalResponse(a))
	}
	return resp, nil
}

// ListPendingApprovals implements leave.LeaveService. Admins see every role's steps.
func (l *LeaveServiceImpl) ListPendingApprovals(ctx context.Context, approver leave.Approver) ([]leave.PendingApprovalResponse, error) {
	var role *employee.Role
	if approver.Role != employee.RoleAdmin {
		role = &approver.Role
	}

	pending, err := l.LeaveApprovalRepository.ListPending(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending approvals: %w", err)
	}

	resp := make([]leave.PendingApprovalResponse, 0, len(pending))
	for _, p := range pending {
		resp = append(resp, leave.PendingApprovalResponse{
			Approval: leave.NewLeaveApprovalResponse(p.Approval),
			Request:  leave.NewLeaveRequestResponse(p.Request),
		})
	}
	return resp, nil
}

func (l *LeaveServiceImpl) currentYear() int {
	return l.now().In(l.loc).Year()
}

// approvalChain returns the configured levels of a leave type, or the
// default single manager step.
func (l *LeaveServiceImpl) approvalChain(ctx context.Context, leaveTypeID string) ([]leave.ApprovalLevel, error) {
	levels, err := l.LeaveTypeRepository.GetApprovalChain(ctx, leaveTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get approval chain: %w", err)
	}
	if len(levels) == 0 {
		return leave.DefaultApprovalChain, nil
	}
	return levels, nil
}

var domainErrors = []error{
	leave.ErrLeaveTypeNotFound,
	leave.ErrBalanceNotFound,
	leave.ErrInsufficientBalance,
	leave.ErrLeaveRequestNotFound,
	leave.ErrLeaveRequestAlreadyProcessed,
	leave.ErrApprovalStepNotFound,
	leave.ErrApproverNotAllowed,
}

// wrapUnexpected returns domain errors untouched so handlers can map them,
// and adds context to everything else.
func wrapUnexpected(op string, err error) error {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
