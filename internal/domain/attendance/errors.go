package attendance

import "errors"

var (
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrInvalidDateRange   = errors.New("invalid date range")
	ErrDateRangeTooLong   = errors.New("date range exceeds 366 days")

	// ErrAggregationInProgress means another instance holds the lock for the date.
	ErrAggregationInProgress = errors.New("aggregation for this date is already running")
)
