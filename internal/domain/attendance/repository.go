package attendance

import (
	"context"
	"time"
)

type AttendanceRepository interface {
	Upsert(ctx context.Context, record DailyAttendance) error
	GetByEmployeeDate(ctx context.Context, empID string, date time.Time) (DailyAttendance, error)
	// ListByEmployeeBetween returns records with from <= date <= to.
	ListByEmployeeBetween(ctx context.Context, empID string, from, to time.Time) ([]DailyAttendance, error)
	ListByDate(ctx context.Context, date time.Time) ([]DailyAttendance, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]DailyAttendance, error)
}
