package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type leaveBalanceRepositoryImpl struct {
	db *database.DB
}

func NewLeaveBalanceRepository(db *database.DB) leave.LeaveBalanceRepository {
	return &leaveBalanceRepositoryImpl{db: db}
}

// ListByEmployeeYear implements leave.LeaveBalanceRepository.
func (r *leaveBalanceRepositoryImpl) ListByEmployeeYear(ctx context.Context, empID string, year int) ([]leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT lb.id, lb.emp_id, lb.leave_type_id, lb.year,
			   lb.total, lb.used, lb.pending, lb.updated_at,
			   lt.name AS leave_type_name
		FROM leave_balances lb
		JOIN leave_types lt ON lt.id = lb.leave_type_id
		WHERE lb.emp_id = $1 AND lb.year = $2
		ORDER BY lt.name
	`

	rows, err := q.Query(ctx, query, empID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave balances: %w", err)
	}
	defer rows.Close()

	balances := make([]leave.LeaveBalance, 0)
	for rows.Next() {
		var b leave.LeaveBalance
		if err := rows.Scan(
			&b.ID, &b.EmpID, &b.LeaveTypeID, &b.Year,
			&b.Total, &b.Used, &b.Pending, &b.UpdatedAt,
			&b.LeaveTypeName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leave balance: %w", err)
		}
		balances = append(balances, b)
	}

	return balances, rows.Err()
}

// GetForUpdate implements leave.LeaveBalanceRepository.
func (r *leaveBalanceRepositoryImpl) GetForUpdate(ctx context.Context, empID, leaveTypeID string, year int) (leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, emp_id, leave_type_id, year, total, used, pending, updated_at
		FROM leave_balances
		WHERE emp_id = $1 AND leave_type_id = $2 AND year = $3
		FOR UPDATE
	`

	var b leave.LeaveBalance
	err := q.QueryRow(ctx, query, empID, leaveTypeID, year).Scan(
		&b.ID, &b.EmpID, &b.LeaveTypeID, &b.Year, &b.Total, &b.Used, &b.Pending, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveBalance{}, leave.ErrBalanceNotFound
		}
		return leave.LeaveBalance{}, fmt.Errorf("failed to lock leave balance: %w", err)
	}

	return b, nil
}

// Reserve implements leave.LeaveBalanceRepository.
func (r *leaveBalanceRepositoryImpl) Reserve(ctx context.Context, balanceID int64, days decimal.Decimal) error {
	query := `
		UPDATE leave_balances
		SET pending = pending + $1, updated_at = NOW()
		WHERE id = $2 AND total - used - pending >= $1
	`
	return r.adjust(ctx, query, balanceID, days)
}

// Release implements leave.LeaveBalanceRepository.
func (r *leaveBalanceRepositoryImpl) Release(ctx context.Context, balanceID int64, days decimal.Decimal) error {
	query := `
		UPDATE leave_balances
		SET pending = pending - $1, updated_at = NOW()
		WHERE id = $2 AND pending >= $1
	`
	return r.adjust(ctx, query, balanceID, days)
}

// Commit implements leave.LeaveBalanceRepository.
func (r *leaveBalanceRepositoryImpl) Commit(ctx context.Context, balanceID int64, days decimal.Decimal) error {
	query := `
		UPDATE leave_balances
		SET pending = pending - $1, used = used + $1, updated_at = NOW()
		WHERE id = $2 AND pending >= $1 AND used + $1 <= total
	`
	return r.adjust(ctx, query, balanceID, days)
}

// adjust runs a guarded balance update. Zero affected rows means the guard
// failed, which is reported as insufficient balance.
func (r *leaveBalanceRepositoryImpl) adjust(ctx context.Context, query string, balanceID int64, days decimal.Decimal) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, query, days, balanceID)
	if err != nil {
		return fmt.Errorf("failed to update leave balance %d: %w", balanceID, err)
	}
	if tag.RowsAffected() == 0 {
		return leave.ErrInsufficientBalance
	}

	return nil
}
