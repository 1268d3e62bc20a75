package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type leaveApprovalRepositoryImpl struct {
	db *database.DB
}

func NewLeaveApprovalRepository(db *database.DB) leave.LeaveApprovalRepository {
	return &leaveApprovalRepositoryImpl{db: db}
}

const leaveApprovalColumns = `
	la.id, la.leave_request_id, la.approver_role, la.approval_level, la.decision,
	la.decided_by, la.decided_at, la.comment, la.created_at`

// Create implements leave.LeaveApprovalRepository.
func (r *leaveApprovalRepositoryImpl) Create(ctx context.Context, approval leave.LeaveApproval) (leave.LeaveApproval, error) {
	q := GetQuerier(ctx, r.db)

	if approval.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return leave.LeaveApproval{}, fmt.Errorf("failed to generate approval id: %w", err)
		}
		approval.ID = id.String()
	}
	if approval.Decision == "" {
		approval.Decision = leave.DecisionPending
	}

	query := `
		INSERT INTO leave_approvals (id, leave_request_id, approver_role, approval_level, decision)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		approval.ID, approval.LeaveRequestID, string(approval.ApproverRole), approval.Level, string(approval.Decision),
	).Scan(&approval.CreatedAt)
	if err != nil {
		return leave.LeaveApproval{}, fmt.Errorf("failed to create leave approval: %w", err)
	}

	return approval, nil
}

// ListByRequest implements leave.LeaveApprovalRepository.
func (r *leaveApprovalRepositoryImpl) ListByRequest(ctx context.Context, requestID string) ([]leave.LeaveApproval, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leaveApprovalColumns + `
		FROM leave_approvals la
		WHERE la.leave_request_id = $1
		ORDER BY la.approval_level
	`

	rows, err := q.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave approvals: %w", err)
	}
	defer rows.Close()

	approvals := make([]leave.LeaveApproval, 0)
	for rows.Next() {
		var a leave.LeaveApproval
		if err := scanLeaveApproval(rows, &a); err != nil {
			return nil, fmt.Errorf("failed to scan leave approval: %w", err)
		}
		approvals = append(approvals, a)
	}

	return approvals, rows.Err()
}

// GetPendingByRequest implements leave.LeaveApprovalRepository.
func (r *leaveApprovalRepositoryImpl) GetPendingByRequest(ctx context.Context, requestID string) (leave.LeaveApproval, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leaveApprovalColumns + `
		FROM leave_approvals la
		WHERE la.leave_request_id = $1 AND la.decision = 'pending'
	`

	var a leave.LeaveApproval
	if err := scanLeaveApproval(q.QueryRow(ctx, query, requestID), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveApproval{}, leave.ErrApprovalStepNotFound
		}
		return leave.LeaveApproval{}, fmt.Errorf("failed to get pending approval: %w", err)
	}

	return a, nil
}

// Decide implements leave.LeaveApprovalRepository.
func (r *leaveApprovalRepositoryImpl) Decide(ctx context.Context, id string, decision leave.Decision, decidedBy string, comment *string, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE leave_approvals
		SET decision = $1, decided_by = $2, comment = $3, decided_at = $4
		WHERE id = $5 AND decision = 'pending'
	`

	tag, err := q.Exec(ctx, query, string(decision), decidedBy, comment, at, id)
	if err != nil {
		return fmt.Errorf("failed to record approval decision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return leave.ErrApprovalStepNotFound
	}

	return nil
}

// ListPending implements leave.LeaveApprovalRepository.
func (r *leaveApprovalRepositoryImpl) ListPending(ctx context.Context, role *employee.Role) ([]leave.PendingApproval, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leaveApprovalColumns + `, ` + leaveRequestColumns + `
		FROM leave_approvals la
		JOIN leave_requests lr ON lr.id = la.leave_request_id
		JOIN leave_types lt ON lt.id = lr.leave_type_id
		WHERE la.decision = 'pending' AND ($1::text IS NULL OR la.approver_role = $1)
		ORDER BY la.created_at
	`

	var roleArg *string
	if role != nil {
		s := string(*role)
		roleArg = &s
	}

	rows, err := q.Query(ctx, query, roleArg)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending approvals: %w", err)
	}
	defer rows.Close()

	pending := make([]leave.PendingApproval, 0)
	for rows.Next() {
		var (
			p  leave.PendingApproval
			a  = &p.Approval
			lr = &p.Request
		)
		if err := rows.Scan(
			&a.ID, &a.LeaveRequestID, &a.ApproverRole, &a.Level, &a.Decision,
			&a.DecidedBy, &a.DecidedAt, &a.Comment, &a.CreatedAt,
			&lr.ID, &lr.EmpID, &lr.LeaveTypeID, &lr.StartDate, &lr.EndDate, &lr.TotalDays,
			&lr.Reason, &lr.Status, &lr.BalanceYear, &lr.AppliedAt, &lr.UpdatedAt, &lr.LeaveTypeName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pending approval: %w", err)
		}
		pending = append(pending, p)
	}

	return pending, rows.Err()
}

func scanLeaveApproval(row pgx.Row, a *leave.LeaveApproval) error {
	return row.Scan(
		&a.ID, &a.LeaveRequestID, &a.ApproverRole, &a.Level, &a.Decision,
		&a.DecidedBy, &a.DecidedAt, &a.Comment, &a.CreatedAt,
	)
}
