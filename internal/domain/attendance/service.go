package attendance

import (
	"context"
	"io"
	"time"
)

// AttendanceService is the read side plus the on-demand aggregation used by handlers.
type AttendanceService interface {
	// Today returns the caller's record for today, with a live duration while Working
	Today(ctx context.Context, empID string) (TodayResponse, error)

	// History returns a gap-filled history, most recent first
	History(ctx context.Context, filter HistoryFilter) ([]HistoryItemResponse, error)

	// OrganizationToday returns every employee's status for today (admin)
	OrganizationToday(ctx context.Context) (OrganizationTodayResponse, error)

	// Aggregate (re)builds the records for one civil date
	Aggregate(ctx context.Context, date time.Time) (AggregationReport, error)

	// Export writes an XLSX workbook of stored records
	Export(ctx context.Context, filter ExportFilter, w io.Writer) error

	// Holidays lists holidays between from and to
	Holidays(ctx context.Context, from, to time.Time) ([]HolidayResponse, error)

	// HolidaysICS renders the holidays between from and to as an iCalendar feed
	HolidaysICS(ctx context.Context, from, to time.Time) (string, error)
}

// JobRunner fronts the background attendance jobs for admin endpoints.
type JobRunner interface {
	// TriggerSync queues an out-of-band terminal sync followed by aggregation.
	// It returns false when a run is already queued.
	TriggerSync(ctx context.Context) bool

	// AggregateDate runs the aggregation for one date, shared with any
	// concurrent run for the same date.
	AggregateDate(ctx context.Context, date time.Time) (AggregationReport, error)
}
