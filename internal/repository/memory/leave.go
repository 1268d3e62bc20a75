package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/leave"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type leaveTypeRepository struct{ s *Store }

func NewLeaveTypeRepository(s *Store) leave.LeaveTypeRepository {
	return &leaveTypeRepository{s: s}
}

func (r *leaveTypeRepository) GetByID(ctx context.Context, id string) (leave.LeaveType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	lt, ok := r.s.data.leaveTypes[id]
	if !ok {
		return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
	}
	return lt, nil
}

func (r *leaveTypeRepository) ListActive(ctx context.Context) ([]leave.LeaveType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]leave.LeaveType, 0)
	for _, lt := range r.s.data.leaveTypes {
		if lt.IsActive {
			out = append(out, lt)
		}
	}
	slices.SortFunc(out, func(a, b leave.LeaveType) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (r *leaveTypeRepository) GetApprovalChain(ctx context.Context, leaveTypeID string) ([]leave.ApprovalLevel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	levels := slices.Clone(r.s.data.chains[leaveTypeID])
	slices.SortFunc(levels, func(a, b leave.ApprovalLevel) int { return cmp.Compare(a.Level, b.Level) })
	return levels, nil
}

type leaveBalanceRepository struct{ s *Store }

func NewLeaveBalanceRepository(s *Store) leave.LeaveBalanceRepository {
	return &leaveBalanceRepository{s: s}
}

func (r *leaveBalanceRepository) ListByEmployeeYear(ctx context.Context, empID string, year int) ([]leave.LeaveBalance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]leave.LeaveBalance, 0)
	for _, b := range r.s.data.balances {
		if b.EmpID != empID || b.Year != year {
			continue
		}
		if lt, ok := r.s.data.leaveTypes[b.LeaveTypeID]; ok {
			name := lt.Name
			b.LeaveTypeName = &name
		}
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b leave.LeaveBalance) int { return strings.Compare(a.LeaveTypeID, b.LeaveTypeID) })
	return out, nil
}

func (r *leaveBalanceRepository) GetForUpdate(ctx context.Context, empID, leaveTypeID string, year int) (leave.LeaveBalance, error) {
	b, ok := r.s.Balance(empID, leaveTypeID, year)
	if !ok {
		return leave.LeaveBalance{}, leave.ErrBalanceNotFound
	}
	return b, nil
}

func (r *leaveBalanceRepository) Reserve(ctx context.Context, balanceID int64, days decimal.Decimal) error {
	return r.adjust(balanceID, func(b *leave.LeaveBalance) bool {
		if b.Remaining().LessThan(days) {
			return false
		}
		b.Pending = b.Pending.Add(days)
		return true
	})
}

func (r *leaveBalanceRepository) Release(ctx context.Context, balanceID int64, days decimal.Decimal) error {
	return r.adjust(balanceID, func(b *leave.LeaveBalance) bool {
		if b.Pending.LessThan(days) {
			return false
		}
		b.Pending = b.Pending.Sub(days)
		return true
	})
}

func (r *leaveBalanceRepository) Commit(ctx context.Context, balanceID int64, days decimal.Decimal) error {
	return r.adjust(balanceID, func(b *leave.LeaveBalance) bool {
		if b.Pending.LessThan(days) || b.Used.Add(days).GreaterThan(b.Total) {
			return false
		}
		b.Pending = b.Pending.Sub(days)
		b.Used = b.Used.Add(days)
		return true
	})
}

func (r *leaveBalanceRepository) adjust(balanceID int64, apply func(b *leave.LeaveBalance) bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.data.balances[balanceID]
	if !ok {
		return leave.ErrBalanceNotFound
	}
	if !apply(&b) {
		return leave.ErrInsufficientBalance
	}
	b.UpdatedAt = time.Now()
	r.s.data.balances[balanceID] = b
	return nil
}

type leaveRequestRepository struct{ s *Store }

func NewLeaveRequestRepository(s *Store) leave.LeaveRequestRepository {
	return &leaveRequestRepository{s: s}
}

func (r *leaveRequestRepository) Create(ctx context.Context, request leave.LeaveRequest) (leave.LeaveRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if request.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return leave.LeaveRequest{}, err
		}
		request.ID = id.String()
	}
	if request.Status == "" {
		request.Status = leave.LeaveRequestStatusPending
	}
	request.AppliedAt = time.Now()
	request.UpdatedAt = request.AppliedAt
	request.LeaveTypeName = nil
	r.s.data.requests[request.ID] = storedRequest{LeaveRequest: request, seq: r.s.seq()}

	return r.withType(request), nil
}

func (r *leaveRequestRepository) GetByID(ctx context.Context, id string) (leave.LeaveRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored, ok := r.s.data.requests[id]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
	}
	return r.withType(stored.LeaveRequest), nil
}

func (r *leaveRequestRepository) GetForUpdate(ctx context.Context, id string) (leave.LeaveRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *leaveRequestRepository) ListByEmployee(ctx context.Context, empID string) ([]leave.LeaveRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]storedRequest, 0)
	for _, stored := range r.s.data.requests {
		if stored.EmpID == empID {
			matched = append(matched, stored)
		}
	}
	slices.SortFunc(matched, func(a, b storedRequest) int { return cmp.Compare(b.seq, a.seq) })

	out := make([]leave.LeaveRequest, 0, len(matched))
	for _, stored := range matched {
		out = append(out, r.withType(stored.LeaveRequest))
	}
	return out, nil
}

func (r *leaveRequestRepository) UpdateStatus(ctx context.Context, id string, status leave.LeaveRequestStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.data.requests[id]
	if !ok {
		return leave.ErrLeaveRequestNotFound
	}
	stored.Status = status
	stored.UpdatedAt = time.Now()
	r.s.data.requests[id] = stored
	return nil
}

// withType must be called with s.mu held.
func (r *leaveRequestRepository) withType(request leave.LeaveRequest) leave.LeaveRequest {
	if lt, ok := r.s.data.leaveTypes[request.LeaveTypeID]; ok {
		name := lt.Name
		request.LeaveTypeName = &name
	}
	return request
}

type leaveApprovalRepository struct{ s *Store }

func NewLeaveApprovalRepository(s *Store) leave.LeaveApprovalRepository {
	return &leaveApprovalRepository{s: s}
}

func (r *leaveApprovalRepository) Create(ctx context.Context, approval leave.LeaveApproval) (leave.LeaveApproval, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if approval.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return leave.LeaveApproval{}, err
		}
		approval.ID = id.String()
	}
	if approval.Decision == "" {
		approval.Decision = leave.DecisionPending
	}
	for _, existing := range r.s.data.approvals {
		if existing.LeaveRequestID != approval.LeaveRequestID {
			continue
		}
		// mirrors the unique constraints on leave_approvals
		if existing.Level == approval.Level || (existing.Decision == leave.DecisionPending && approval.Decision == leave.DecisionPending) {
			return leave.LeaveApproval{}, leave.ErrLeaveRequestAlreadyProcessed
		}
	}
	approval.CreatedAt = time.Now()
	r.s.data.approvals[approval.ID] = storedApproval{LeaveApproval: approval, seq: r.s.seq()}
	return approval, nil
}

func (r *leaveApprovalRepository) ListByRequest(ctx context.Context, requestID string) ([]leave.LeaveApproval, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]leave.LeaveApproval, 0)
	for _, stored := range r.s.data.approvals {
		if stored.LeaveRequestID == requestID {
			out = append(out, stored.LeaveApproval)
		}
	}
	slices.SortFunc(out, func(a, b leave.LeaveApproval) int { return cmp.Compare(a.Level, b.Level) })
	return out, nil
}

func (r *leaveApprovalRepository) GetPendingByRequest(ctx context.Context, requestID string) (leave.LeaveApproval, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, stored := range r.s.data.approvals {
		if stored.LeaveRequestID == requestID && stored.Decision == leave.DecisionPending {
			return stored.LeaveApproval, nil
		}
	}
	return leave.LeaveApproval{}, leave.ErrApprovalStepNotFound
}

func (r *leaveApprovalRepository) Decide(ctx context.Context, id string, decision leave.Decision, decidedBy string, comment *string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.data.approvals[id]
	if !ok || stored.Decision != leave.DecisionPending {
		return leave.ErrApprovalStepNotFound
	}
	stored.Decision = decision
	stored.DecidedBy = &decidedBy
	stored.DecidedAt = &at
	stored.Comment = comment
	r.s.data.approvals[id] = stored
	return nil
}

func (r *leaveApprovalRepository) ListPending(ctx context.Context, role *employee.Role) ([]leave.PendingApproval, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]storedApproval, 0)
	for _, stored := range r.s.data.approvals {
		if stored.Decision != leave.DecisionPending {
			continue
		}
		if role != nil && stored.ApproverRole != *role {
			continue
		}
		matched = append(matched, stored)
	}
	slices.SortFunc(matched, func(a, b storedApproval) int { return cmp.Compare(a.seq, b.seq) })

	requests := &leaveRequestRepository{s: r.s}
	out := make([]leave.PendingApproval, 0, len(matched))
	for _, stored := range matched {
		req, ok := r.s.data.requests[stored.LeaveRequestID]
		if !ok {
			continue
		}
		out = append(out, leave.PendingApproval{Approval: stored.LeaveApproval, Request: requests.withType(req.LeaveRequest)})
	}
	return out, nil
}
