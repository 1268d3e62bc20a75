package leave

import (
	"context"

	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/sse"
)

type LeaveService interface {
	// Type
	ListLeaveTypes(ctx context.Context) ([]LeaveTypeResponse, error)
	// Balance
	GetBalances(ctx context.Context, empID string) ([]LeaveBalanceResponse, error)
	// Request
	Apply(ctx context.Context, req ApplyLeaveRequest) (LeaveRequest, error)
	ListMyRequests(ctx context.Context, empID string) ([]LeaveRequestResponse, error)
	GetRequest(ctx context.Context, id string) (LeaveRequestDetailResponse, error)
	// Approval
	ListPendingApprovals(ctx context.Context, approver Approver) ([]PendingApprovalResponse, error)
	Approve(ctx context.Context, req DecideLeaveRequest) (LeaveRequest, error)
	Reject(ctx context.Context, req DecideLeaveRequest) (LeaveRequest, error)
	// Events
	Subscribe(ctx context.Context, subscriber Approver) (<-chan sse.Event, func())
}
