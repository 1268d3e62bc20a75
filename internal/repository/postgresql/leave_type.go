package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type leaveTypeRepositoryImpl struct {
	db *database.DB
}

func NewLeaveTypeRepository(db *database.DB) leave.LeaveTypeRepository {
	return &leaveTypeRepositoryImpl{db: db}
}

// GetByID implements leave.LeaveTypeRepository.
func (r *leaveTypeRepositoryImpl) GetByID(ctx context.Context, id string) (leave.LeaveType, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, is_active, created_at
		FROM leave_types
		WHERE id = $1
	`

	var lt leave.LeaveType
	err := q.QueryRow(ctx, query, id).Scan(&lt.ID, &lt.Name, &lt.IsActive, &lt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
		}
		return leave.LeaveType{}, fmt.Errorf("failed to get leave type %s: %w", id, err)
	}

	return lt, nil
}

// ListActive implements leave.LeaveTypeRepository.
func (r *leaveTypeRepositoryImpl) ListActive(ctx context.Context) ([]leave.LeaveType, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, is_active, created_at
		FROM leave_types
		WHERE is_active = TRUE
		ORDER BY name
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave types: %w", err)
	}
	defer rows.Close()

	types := make([]leave.LeaveType, 0)
	for rows.Next() {
		var lt leave.LeaveType
		if err := rows.Scan(&lt.ID, &lt.Name, &lt.IsActive, &lt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan leave type: %w", err)
		}
		types = append(types, lt)
	}

	return types, rows.Err()
}

// GetApprovalChain implements leave.LeaveTypeRepository.
func (r *leaveTypeRepositoryImpl) GetApprovalChain(ctx context.Context, leaveTypeID string) ([]leave.ApprovalLevel, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT leave_type_id, approval_level, approver_role
		FROM leave_type_approval_levels
		WHERE leave_type_id = $1
		ORDER BY approval_level
	`

	rows, err := q.Query(ctx, query, leaveTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get approval chain: %w", err)
	}
	defer rows.Close()

	levels := make([]leave.ApprovalLevel, 0)
	for rows.Next() {
		var lvl leave.ApprovalLevel
		if err := rows.Scan(&lvl.LeaveTypeID, &lvl.Level, &lvl.ApproverRole); err != nil {
			return nil, fmt.Errorf("failed to scan approval level: %w", err)
		}
		levels = append(levels, lvl)
	}

	return levels, rows.Err()
}
