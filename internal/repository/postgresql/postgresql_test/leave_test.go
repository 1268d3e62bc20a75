package postgresqltest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-go/internal/repository/postgresql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBalance(t *testing.T, setup *TestDatabaseSetup, empID string, total int64) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, setup.seedEmployee(ctx, empID, "employee", true))
	_, err := setup.DB.Exec(ctx, `INSERT INTO leave_types (id, name) VALUES ('annual', 'Annual Leave') ON CONFLICT DO NOTHING`)
	require.NoError(t, err)
	_, err = setup.DB.Exec(ctx, `
		INSERT INTO leave_balances (emp_id, leave_type_id, year, total)
		VALUES ($1, 'annual', $2, $3)
	`, empID, time.Now().Year(), total)
	require.NoError(t, err)
}

func TestLeaveBalanceRepository_ConcurrentReservations(t *testing.T) {
	setup := setupTestDatabase(t)
	seedBalance(t, setup, "E001", 12)

	balances := postgresql.NewLeaveBalanceRepository(setup.DB)
	tx := postgresql.NewTransactor(setup.DB)
	year := time.Now().Year()
	seven := decimal.NewFromInt(7)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
				b, err := balances.GetForUpdate(ctx, "E001", "annual", year)
				if err != nil {
					return err
				}
				if b.Remaining().LessThan(seven) {
					return leave.ErrInsufficientBalance
				}
				return balances.Reserve(ctx, b.ID, seven)
			})
		}(i)
	}
	wg.Wait()

	var succeeded, insufficient int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, leave.ErrInsufficientBalance):
			insufficient++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)

	list, err := balances.ListByEmployeeYear(context.Background(), "E001", year)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Remaining().Equal(decimal.NewFromInt(5)))
	assert.True(t, list[0].Pending.Equal(seven))
}

func TestLeaveRepositories_RequestLifecycle(t *testing.T) {
	setup := setupTestDatabase(t)
	seedBalance(t, setup, "E001", 12)
	ctx := context.Background()

	requests := postgresql.NewLeaveRequestRepository(setup.DB)
	approvals := postgresql.NewLeaveApprovalRepository(setup.DB)

	created, err := requests.Create(ctx, leave.LeaveRequest{
		EmpID:       "E001",
		LeaveTypeID: "annual",
		StartDate:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		TotalDays:   decimal.RequireFromString("2.5"),
		Reason:      "family",
		BalanceYear: 2024,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, leave.LeaveRequestStatusPending, created.Status)

	stored, err := requests.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2024, stored.BalanceYear)

	step, err := approvals.Create(ctx, leave.LeaveApproval{LeaveRequestID: created.ID, ApproverRole: "manager", Level: 1})
	require.NoError(t, err)

	pending, err := approvals.GetPendingByRequest(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, step.ID, pending.ID)

	require.NoError(t, approvals.Decide(ctx, step.ID, leave.DecisionApproved, "M001", nil, time.Now()))
	assert.ErrorIs(t, approvals.Decide(ctx, step.ID, leave.DecisionRejected, "M001", nil, time.Now()), leave.ErrApprovalStepNotFound)

	require.NoError(t, requests.UpdateStatus(ctx, created.ID, leave.LeaveRequestStatusApproved))

	got, err := requests.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.LeaveRequestStatusApproved, got.Status)
	assert.True(t, got.TotalDays.Equal(decimal.RequireFromString("2.5")))
	require.NotNil(t, got.LeaveTypeName)
	assert.Equal(t, "Annual Leave", *got.LeaveTypeName)

	_, err = requests.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, leave.ErrLeaveRequestNotFound)
}
