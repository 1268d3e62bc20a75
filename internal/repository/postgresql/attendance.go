package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceRepositoryImpl struct {
	db  *database.DB
	loc *time.Location
}

func NewAttendanceRepository(db *database.DB, loc *time.Location) attendance.AttendanceRepository {
	return &attendanceRepositoryImpl{db: db, loc: loc}
}

const attendanceColumns = `
	da.emp_id, da.attendance_date, da.punch_in, da.punch_out,
	da.total_seconds, da.expected_seconds, da.status, da.updated_at, e.name`

// Upsert implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) Upsert(ctx context.Context, record attendance.DailyAttendance) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO daily_attendance (
			emp_id, attendance_date, punch_in, punch_out,
			total_seconds, expected_seconds, status, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (emp_id, attendance_date) DO UPDATE SET
			punch_in = EXCLUDED.punch_in,
			punch_out = EXCLUDED.punch_out,
			total_seconds = EXCLUDED.total_seconds,
			expected_seconds = EXCLUDED.expected_seconds,
			status = EXCLUDED.status,
			updated_at = NOW()
	`

	_, err := q.Exec(ctx, query,
		record.EmpID,
		civilDate(record.Date, r.loc),
		toCivilPtr(record.PunchIn, r.loc),
		toCivilPtr(record.PunchOut, r.loc),
		int64(record.TotalDuration/time.Second),
		int64(record.ExpectedDuration/time.Second),
		string(record.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert attendance for %s on %s: %w", record.EmpID, civilDate(record.Date, r.loc), err)
	}

	return nil
}

// GetByEmployeeDate implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) GetByEmployeeDate(ctx context.Context, empID string, date time.Time) (attendance.DailyAttendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + attendanceColumns + `
		FROM daily_attendance da
		JOIN employees e ON e.emp_id = da.emp_id
		WHERE da.emp_id = $1 AND da.attendance_date = $2
	`

	record, err := r.scan(q.QueryRow(ctx, query, empID, civilDate(date, r.loc)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.DailyAttendance{}, attendance.ErrAttendanceNotFound
		}
		return attendance.DailyAttendance{}, fmt.Errorf("failed to get attendance: %w", err)
	}

	return record, nil
}

// ListByEmployeeBetween implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) ListByEmployeeBetween(ctx context.Context, empID string, from, to time.Time) ([]attendance.DailyAttendance, error) {
	query := `SELECT ` + attendanceColumns + `
		FROM daily_attendance da
		JOIN employees e ON e.emp_id = da.emp_id
		WHERE da.emp_id = $1 AND da.attendance_date BETWEEN $2 AND $3
		ORDER BY da.attendance_date DESC
	`
	return r.list(ctx, query, empID, civilDate(from, r.loc), civilDate(to, r.loc))
}

// ListByDate implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) ListByDate(ctx context.Context, date time.Time) ([]attendance.DailyAttendance, error) {
	query := `SELECT ` + attendanceColumns + `
		FROM daily_attendance da
		JOIN employees e ON e.emp_id = da.emp_id
		WHERE da.attendance_date = $1
		ORDER BY da.emp_id
	`
	return r.list(ctx, query, civilDate(date, r.loc))
}

// ListBetween implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) ListBetween(ctx context.Context, from, to time.Time) ([]attendance.DailyAttendance, error) {
	query := `SELECT ` + attendanceColumns + `
		FROM daily_attendance da
		JOIN employees e ON e.emp_id = da.emp_id
		WHERE da.attendance_date BETWEEN $1 AND $2
		ORDER BY da.attendance_date, da.emp_id
	`
	return r.list(ctx, query, civilDate(from, r.loc), civilDate(to, r.loc))
}

func (r *attendanceRepositoryImpl) list(ctx context.Context, query string, args ...any) ([]attendance.DailyAttendance, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	records := make([]attendance.DailyAttendance, 0)
	for rows.Next() {
		record, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func (r *attendanceRepositoryImpl) scan(row pgx.Row) (attendance.DailyAttendance, error) {
	var (
		record          attendance.DailyAttendance
		totalSeconds    int64
		expectedSeconds int64
		status          string
		name            string
	)
	if err := row.Scan(
		&record.EmpID, &record.Date, &record.PunchIn, &record.PunchOut,
		&totalSeconds, &expectedSeconds, &status, &record.UpdatedAt, &name,
	); err != nil {
		return attendance.DailyAttendance{}, err
	}

	record.Date = fromCivilDate(record.Date, r.loc)
	record.PunchIn = fromCivilPtr(record.PunchIn, r.loc)
	record.PunchOut = fromCivilPtr(record.PunchOut, r.loc)
	record.TotalDuration = time.Duration(totalSeconds) * time.Second
	record.ExpectedDuration = time.Duration(expectedSeconds) * time.Second
	record.Status = attendance.Status(status)
	record.EmployeeName = &name

	return record, nil
}
