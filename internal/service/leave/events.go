package leave

import (
	"context"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/sse"
)

func employeeKey(empID string) string { return "emp:" + empID }

func roleKey(role employee.Role) string { return "role:" + string(role) }

// SetEventHub enables leave events. Without a hub nothing is published.
func (l *LeaveServiceImpl) SetEventHub(hub *sse.Hub) {
	l.hub = hub
}

// Subscribe implements leave.LeaveService. Subscribers get decisions on their
// own requests; approvers also get new steps for their role.
func (l *LeaveServiceImpl) Subscribe(ctx context.Context, subscriber leave.Approver) (<-chan sse.Event, func()) {
	if l.hub == nil {
		return make(chan sse.Event), func() {}
	}

	keys := []string{employeeKey(subscriber.EmpID)}
	if subscriber.Role != employee.RoleEmployee {
		keys = append(keys, roleKey(subscriber.Role))
	}
	ch, cleanup := l.hub.Subscribe(keys...)
	return ch, cleanup
}

// publishPending tells the step's role, and admins, that a step awaits them.
func (l *LeaveServiceImpl) publishPending(req leave.LeaveRequest, step leave.ApprovalLevel) {
	if l.hub == nil {
		return
	}
	l.hub.PublishToMany(
		[]string{roleKey(step.ApproverRole), roleKey(employee.RoleAdmin)},
		sse.Event{
			Event: leave.EventApprovalPending,
			Data: leave.LeaveEventResponse{
				LeaveRequestID: req.ID,
				EmpID:          req.EmpID,
				LeaveTypeID:    req.LeaveTypeID,
				Status:         req.Status,
				ApprovalLevel:  step.Level,
				ApproverRole:   string(step.ApproverRole),
			},
		},
	)
}

func (l *LeaveServiceImpl) publishDecided(req leave.LeaveRequest, level int, decision leave.Decision, decidedBy string) {
	if l.hub == nil {
		return
	}
	l.hub.Publish(employeeKey(req.EmpID), sse.Event{
		Event: leave.EventDecided,
		Data: leave.LeaveEventResponse{
			LeaveRequestID: req.ID,
			EmpID:          req.EmpID,
			LeaveTypeID:    req.LeaveTypeID,
			Status:         req.Status,
			ApprovalLevel:  level,
			Decision:       decision,
			DecidedBy:      decidedBy,
		},
	})
}
