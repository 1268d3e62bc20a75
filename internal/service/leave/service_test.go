package leave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
	"github.com/cmlabs-hris/hris-attendance-go/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	manager = leave.Approver{EmpID: "M001", Role: employee.RoleManager}
	hr      = leave.Approver{EmpID: "H001", Role: employee.RoleHR}
	admin   = leave.Approver{EmpID: "A001", Role: employee.RoleAdmin}
)

type failingApprovalRepository struct {
	leave.LeaveApprovalRepository
}

func (f failingApprovalRepository) Create(ctx context.Context, approval leave.LeaveApproval) (leave.LeaveApproval, error) {
	return leave.LeaveApproval{}, errors.New("insert failed")
}

type fixture struct {
	store     *memory.Store
	svc       *LeaveServiceImpl
	approvals leave.LeaveApprovalRepository
	year      int
}

func newFixture(t *testing.T, chain ...leave.ApprovalLevel) *fixture {
	t.Helper()
	store := memory.NewStore(time.UTC)
	store.AddEmployee(employee.Employee{EmpID: "E001", Name: "Asha", Role: employee.RoleEmployee, IsActive: true})
	store.AddLeaveType(leave.LeaveType{ID: "annual", Name: "Annual Leave", IsActive: true}, chain...)
	store.AddLeaveType(leave.LeaveType{ID: "legacy", Name: "Legacy Leave", IsActive: false})

	year := time.Now().UTC().Year()
	store.AddBalance(leave.LeaveBalance{EmpID: "E001", LeaveTypeID: "annual", Year: year, Total: decimal.NewFromInt(12)})
	store.AddBalance(leave.LeaveBalance{EmpID: "E001", LeaveTypeID: "legacy", Year: year, Total: decimal.NewFromInt(5)})

	approvals := memory.NewLeaveApprovalRepository(store)
	svc := NewLeaveService(
		memory.NewTransactor(store),
		memory.NewLeaveTypeRepository(store),
		memory.NewLeaveBalanceRepository(store),
		memory.NewLeaveRequestRepository(store),
		approvals,
		time.UTC,
	)
	return &fixture{store: store, svc: svc, approvals: approvals, year: year}
}

func (f *fixture) apply(t *testing.T, days int64) leave.LeaveRequest {
	t.Helper()
	req, err := f.svc.Apply(context.Background(), applyRequest(days))
	require.NoError(t, err)
	return req
}

func (f *fixture) balance(t *testing.T) leave.LeaveBalance {
	t.Helper()
	b, ok := f.store.Balance("E001", "annual", f.year)
	require.True(t, ok)
	return b
}

func applyRequest(days int64) leave.ApplyLeaveRequest {
	return leave.ApplyLeaveRequest{
		EmpID:       "E001",
		LeaveTypeID: "annual",
		StartDate:   "2024-07-01",
		EndDate:     "2024-07-09",
		TotalDays:   decimal.NewFromInt(days),
		Reason:      "Family trip",
	}
}

func decide(id string, approver leave.Approver) leave.DecideLeaveRequest {
	return leave.DecideLeaveRequest{RequestID: id, Approver: approver}
}

func assertDays(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.NewFromInt(want).Equal(got), "want %d, got %s", want, got.String())
}

func TestApply_ReservesDays(t *testing.T) {
	f := newFixture(t)

	req := f.apply(t, 7)

	assert.Equal(t, leave.LeaveRequestStatusPending, req.Status)
	b := f.balance(t)
	assertDays(t, 7, b.Pending)
	assertDays(t, 0, b.Used)
	assertDays(t, 5, b.Remaining())

	approvals, err := f.approvals.ListByRequest(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, approvals, 1)
	assert.Equal(t, employee.RoleManager, approvals[0].ApproverRole)
	assert.Equal(t, 1, approvals[0].Level)
	assert.Equal(t, leave.DecisionPending, approvals[0].Decision)
}

func TestApply_ConcurrentRequestsCannotOverdraw(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Apply(context.Background(), applyRequest(7))
		}()
	}
	wg.Wait()

	var succeeded, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, leave.ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)

	assertDays(t, 5, f.balance(t).Remaining())
	_, _, requests, _ := f.store.Counts()
	assert.Equal(t, 1, requests)
}

func TestApply_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		_, err := f.svc.Apply(ctx, leave.ApplyLeaveRequest{EmpID: "E001"})
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
	})

	t.Run("amount finer than a tenth of a day", func(t *testing.T) {
		for _, days := range []string{"0.04", "1.25", "0.000000001"} {
			req := applyRequest(1)
			req.TotalDays = decimal.RequireFromString(days)
			_, err := f.svc.Apply(ctx, req)
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs, days)
			assert.Contains(t, verrs.ToMap(), "total_days", days)
		}
	})

	t.Run("half day is accepted by validation", func(t *testing.T) {
		req := applyRequest(1)
		req.TotalDays = decimal.RequireFromString("0.5")
		assert.NoError(t, req.Validate())
	})

	t.Run("no balance row", func(t *testing.T) {
		req := applyRequest(1)
		req.LeaveTypeID = "sick"
		_, err := f.svc.Apply(ctx, req)
		assert.ErrorIs(t, err, leave.ErrBalanceNotFound)
	})

	t.Run("more than remaining", func(t *testing.T) {
		_, err := f.svc.Apply(ctx, applyRequest(13))
		assert.ErrorIs(t, err, leave.ErrInsufficientBalance)
	})

	t.Run("inactive leave type", func(t *testing.T) {
		req := applyRequest(1)
		req.LeaveTypeID = "legacy"
		_, err := f.svc.Apply(ctx, req)
		assert.ErrorIs(t, err, leave.ErrLeaveTypeNotFound)
	})

	_, _, requests, _ := f.store.Counts()
	assert.Zero(t, requests)
	assertDays(t, 0, f.balance(t).Pending)
}

func TestApply_RollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.LeaveApprovalRepository = failingApprovalRepository{f.approvals}

	_, err := f.svc.Apply(context.Background(), applyRequest(3))
	require.Error(t, err)

	assertDays(t, 0, f.balance(t).Pending)
	_, _, requests, approvals := f.store.Counts()
	assert.Zero(t, requests)
	assert.Zero(t, approvals)
}

func TestApprove_SingleLevel(t *testing.T) {
	f := newFixture(t)
	req := f.apply(t, 4)

	comment := "enjoy"
	got, err := f.svc.Approve(context.Background(), leave.DecideLeaveRequest{RequestID: req.ID, Approver: manager, Comment: &comment})
	require.NoError(t, err)
	assert.Equal(t, leave.LeaveRequestStatusApproved, got.Status)

	b := f.balance(t)
	assertDays(t, 4, b.Used)
	assertDays(t, 0, b.Pending)
	assertDays(t, 8, b.Remaining())

	detail, err := f.svc.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.LeaveRequestStatusApproved, detail.Status)
	require.Len(t, detail.Approvals, 1)
	assert.Equal(t, leave.DecisionApproved, detail.Approvals[0].Decision)
}

func TestApprove_TwoLevelChain(t *testing.T) {
	f := newFixture(t,
		leave.ApprovalLevel{Level: 1, ApproverRole: employee.RoleManager},
		leave.ApprovalLevel{Level: 2, ApproverRole: employee.RoleHR},
	)
	ctx := context.Background()
	req := f.apply(t, 2)

	// HR cannot act before the manager level is decided
	_, err := f.svc.Approve(ctx, decide(req.ID, hr))
	assert.ErrorIs(t, err, leave.ErrApproverNotAllowed)

	got, err := f.svc.Approve(ctx, decide(req.ID, manager))
	require.NoError(t, err)
	assert.Equal(t, leave.LeaveRequestStatusPending, got.Status)
	assertDays(t, 2, f.balance(t).Pending)

	pending, err := f.svc.ListPendingApprovals(ctx, hr)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Approval.ApprovalLevel)

	managerQueue, err := f.svc.ListPendingApprovals(ctx, manager)
	require.NoError(t, err)
	assert.Empty(t, managerQueue)

	got, err = f.svc.Approve(ctx, decide(req.ID, hr))
	require.NoError(t, err)
	assert.Equal(t, leave.LeaveRequestStatusApproved, got.Status)

	b := f.balance(t)
	assertDays(t, 2, b.Used)
	assertDays(t, 0, b.Pending)
}

func TestApprove_SettlesAgainstTheYearOfApplication(t *testing.T) {
	f := newFixture(t)
	f.store.AddBalance(leave.LeaveBalance{EmpID: "E001", LeaveTypeID: "annual", Year: 2023, Total: decimal.NewFromInt(10)})
	f.store.AddBalance(leave.LeaveBalance{EmpID: "E001", LeaveTypeID: "annual", Year: 2024, Total: decimal.NewFromInt(10)})

	clock := time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)
	f.svc.now = func() time.Time { return clock }

	req := f.apply(t, 2)
	assert.Equal(t, 2023, req.BalanceYear)

	clock = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	got, err := f.svc.Approve(context.Background(), decide(req.ID, manager))
	require.NoError(t, err)
	assert.Equal(t, leave.LeaveRequestStatusApproved, got.Status)

	last, ok := f.store.Balance("E001", "annual", 2023)
	require.True(t, ok)
	assertDays(t, 2, last.Used)
	assertDays(t, 0, last.Pending)

	next, ok := f.store.Balance("E001", "annual", 2024)
	require.True(t, ok)
	assertDays(t, 0, next.Used)
	assertDays(t, 0, next.Pending)
}

func TestReject_ReleasesReservation(t *testing.T) {
	f := newFixture(t,
		leave.ApprovalLevel{Level: 1, ApproverRole: employee.RoleManager},
		leave.ApprovalLevel{Level: 2, ApproverRole: employee.RoleHR},
	)
	req := f.apply(t, 5)

	got, err := f.svc.Reject(context.Background(), decide(req.ID, manager))
	require.NoError(t, err)
	assert.Equal(t, leave.LeaveRequestStatusRejected, got.Status)

	b := f.balance(t)
	assertDays(t, 0, b.Used)
	assertDays(t, 0, b.Pending)
	assertDays(t, 12, b.Remaining())

	_, _, _, approvals := f.store.Counts()
	assert.Equal(t, 1, approvals)
}

func TestDecide_TerminalRequestConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.apply(t, 1)

	_, err := f.svc.Approve(ctx, decide(req.ID, admin))
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, decide(req.ID, admin))
	assert.ErrorIs(t, err, leave.ErrLeaveRequestAlreadyProcessed)
	_, err = f.svc.Reject(ctx, decide(req.ID, admin))
	assert.ErrorIs(t, err, leave.ErrLeaveRequestAlreadyProcessed)

	assertDays(t, 1, f.balance(t).Used)
}

func TestDecide_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.apply(t, 1)

	_, err := f.svc.Approve(ctx, decide("missing", manager))
	assert.ErrorIs(t, err, leave.ErrLeaveRequestNotFound)

	_, err = f.svc.Approve(ctx, decide(req.ID, leave.Approver{EmpID: "E002", Role: employee.RoleEmployee}))
	assert.ErrorIs(t, err, leave.ErrApproverNotAllowed)

	_, err = f.svc.Reject(ctx, leave.DecideLeaveRequest{RequestID: req.ID})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	assertDays(t, 1, f.balance(t).Pending)
}

func TestReadModels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.apply(t, 1)
	second := f.apply(t, 2)

	types, err := f.svc.ListLeaveTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []leave.LeaveTypeResponse{{ID: "annual", Name: "Annual Leave"}}, types)

	balances, err := f.svc.GetBalances(ctx, "E001")
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "annual", balances[0].LeaveTypeID)

	mine, err := f.svc.ListMyRequests(ctx, "E001")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	queue, err := f.svc.ListPendingApprovals(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, queue, 2)

	_, err = f.svc.GetRequest(ctx, "missing")
	assert.ErrorIs(t, err, leave.ErrLeaveRequestNotFound)
}

func TestEvents_FollowTheApprovalChain(t *testing.T) {
	f := newFixture(t,
		leave.ApprovalLevel{Level: 1, ApproverRole: employee.RoleManager},
		leave.ApprovalLevel{Level: 2, ApproverRole: employee.RoleHR},
	)
	f.svc.SetEventHub(sse.NewHub())
	ctx := context.Background()

	managerEvents, closeManager := f.svc.Subscribe(ctx, manager)
	defer closeManager()
	hrEvents, closeHR := f.svc.Subscribe(ctx, hr)
	defer closeHR()
	adminEvents, closeAdmin := f.svc.Subscribe(ctx, admin)
	defer closeAdmin()
	applicantEvents, closeApplicant := f.svc.Subscribe(ctx, leave.Approver{EmpID: "E001", Role: employee.RoleEmployee})
	defer closeApplicant()

	req := f.apply(t, 2)

	ev := <-managerEvents
	assert.Equal(t, leave.EventApprovalPending, ev.Event)
	assert.Equal(t, req.ID, ev.Data.(leave.LeaveEventResponse).LeaveRequestID)
	assert.Equal(t, leave.EventApprovalPending, (<-adminEvents).Event)
	assert.Empty(t, hrEvents)

	_, err := f.svc.Approve(ctx, decide(req.ID, manager))
	require.NoError(t, err)

	decided := (<-applicantEvents).Data.(leave.LeaveEventResponse)
	assert.Equal(t, leave.DecisionApproved, decided.Decision)
	assert.Equal(t, leave.LeaveRequestStatusPending, decided.Status)
	assert.Equal(t, 1, decided.ApprovalLevel)

	pending := (<-hrEvents).Data.(leave.LeaveEventResponse)
	assert.Equal(t, 2, pending.ApprovalLevel)
	assert.Equal(t, "hr", pending.ApproverRole)

	_, err = f.svc.Approve(ctx, decide(req.ID, hr))
	require.NoError(t, err)

	final := (<-applicantEvents).Data.(leave.LeaveEventResponse)
	assert.Equal(t, leave.LeaveRequestStatusApproved, final.Status)
	assert.Equal(t, "H001", final.DecidedBy)
}

func TestEvents_NoHubIsSilent(t *testing.T) {
	f := newFixture(t)

	events, cleanup := f.svc.Subscribe(context.Background(), manager)
	defer cleanup()

	f.apply(t, 1)
	assert.Empty(t, events)
}
