package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/holiday"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
)

// Reconciler rebuilds a per-day history from stored records and raw events.
// It never writes.
type Reconciler struct {
	attendance.AttendanceRepository
	punch.PunchRepository
	holiday.HolidayRepository
	policy attendance.Policy
}

func NewReconciler(
	attendanceRepository attendance.AttendanceRepository,
	punchRepository punch.PunchRepository,
	holidayRepository holiday.HolidayRepository,
	policy attendance.Policy,
) *Reconciler {
	return &Reconciler{
		AttendanceRepository: attendanceRepository,
		PunchRepository:      punchRepository,
		HolidayRepository:    holidayRepository,
		policy:               policy,
	}
}

// History returns one entry for every date in [from, to], most recent first.
func (r *Reconciler) History(ctx context.Context, empID string, from, to time.Time) ([]attendance.HistoryEntry, error) {
	first := r.policy.Date(from)
	last := r.policy.Date(to)
	if last.Before(first) {
		return nil, attendance.ErrInvalidDateRange
	}
	if attendance.DaysInclusive(first, last) > attendance.MaxHistoryDays {
		return nil, attendance.ErrDateRangeTooLong
	}

	records, err := r.AttendanceRepository.ListByEmployeeBetween(ctx, empID, first, last)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance records: %w", err)
	}
	recordByDate := make(map[string]attendance.DailyAttendance, len(records))
	for _, rec := range records {
		recordByDate[r.key(rec.Date)] = rec
	}

	events, err := r.PunchRepository.ListByEmployeeBetween(ctx, empID, first, r.policy.NextDay(last))
	if err != nil {
		return nil, fmt.Errorf("failed to load punch events: %w", err)
	}
	eventsByDate := make(map[string][]time.Time)
	for _, ev := range events {
		k := r.key(ev.PunchTime)
		eventsByDate[k] = append(eventsByDate[k], ev.PunchTime.In(r.policy.Location))
	}

	holidays, err := r.HolidayRepository.ListBetween(ctx, first, last)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}
	holidayDates := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		holidayDates[r.key(h.Date)] = struct{}{}
	}

	entries := make([]attendance.HistoryEntry, 0, attendance.DaysInclusive(first, last))
	for day := last; !day.Before(first); day = day.AddDate(0, 0, -1) {
		k := r.key(day)
		rec, hasRecord := recordByDate[k]

		entry := r.resolve(day, rec, hasRecord, eventsByDate[k])
		_, entry.IsHoliday = holidayDates[k]
		entries = append(entries, entry)
	}

	return entries, nil
}

func (r *Reconciler) resolve(day time.Time, rec attendance.DailyAttendance, hasRecord bool, events []time.Time) attendance.HistoryEntry {
	cutoff := r.policy.PunchInCutoff(day)
	entry := attendance.HistoryEntry{Date: day}

	if hasRecord && rec.PunchIn != nil && !rec.PunchIn.Before(cutoff) {
		entry.PunchIn = rec.PunchIn
		entry.PunchOut = rec.PunchOut
		entry.TotalDuration = totalDuration(rec.PunchIn, rec.PunchOut)
		entry.Status = rec.Status
		entry.Source = attendance.SourceRecord
		return entry
	}

	if len(events) > 0 {
		earliest, latest := events[0], events[0]
		for _, t := range events[1:] {
			if t.Before(earliest) {
				earliest = t
			}
			if t.After(latest) {
				latest = t
			}
		}
		if !earliest.Before(cutoff) {
			entry.PunchIn = &earliest
			entry.Status = attendance.StatusWorking
			if latest.After(earliest) {
				entry.PunchOut = &latest
				entry.Status = attendance.StatusPresent
			}
			entry.TotalDuration = totalDuration(entry.PunchIn, entry.PunchOut)
			entry.Source = attendance.SourcePunchLog
			return entry
		}
	}

	placeholder := cutoff
	entry.PunchIn = &placeholder
	entry.Source = attendance.SourcePlaceholder
	switch {
	case hasRecord:
		entry.Status = rec.Status
	case len(events) > 0:
		entry.Status = attendance.StatusWorking
	default:
		entry.Status = attendance.StatusAbsent
	}
	return entry
}

func (r *Reconciler) key(t time.Time) string {
	return t.In(r.policy.Location).Format(attendance.DateLayout)
}
