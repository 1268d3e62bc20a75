package attendance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"

	// MaxHistoryDays bounds a single history query.
	MaxHistoryDays = 366
)

type HistoryFilter struct {
	EmpID string `json:"emp_id"`
	From  string `json:"from"`
	To    string `json:"to"`
}

func (f *HistoryFilter) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.EmpID) {
		errs = append(errs, validator.Required("emp_id"))
	}

	from, fromOK := validator.IsValidDate(f.From)
	if !fromOK {
		errs = append(errs, validator.ValidationError{
			Field:   "from",
			Message: "from must be in YYYY-MM-DD format",
		})
	}
	to, toOK := validator.IsValidDate(f.To)
	if !toOK {
		errs = append(errs, validator.ValidationError{
			Field:   "to",
			Message: "to must be in YYYY-MM-DD format",
		})
	}

	if fromOK && toOK {
		if to.Before(from) {
			errs = append(errs, validator.ValidationError{
				Field:   "to",
				Message: "to must not be before from",
			})
		} else if DaysInclusive(from, to) > MaxHistoryDays {
			errs = append(errs, validator.ValidationError{
				Field:   "from",
				Message: fmt.Sprintf("date range must not exceed %d days", MaxHistoryDays),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ExportFilter struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (f *ExportFilter) Validate() error {
	var errs validator.ValidationErrors

	from, fromOK := validator.IsValidDate(f.From)
	if !fromOK {
		errs = append(errs, validator.ValidationError{Field: "from", Message: "from must be in YYYY-MM-DD format"})
	}
	to, toOK := validator.IsValidDate(f.To)
	if !toOK {
		errs = append(errs, validator.ValidationError{Field: "to", Message: "to must be in YYYY-MM-DD format"})
	}
	if fromOK && toOK {
		if to.Before(from) {
			errs = append(errs, validator.ValidationError{Field: "to", Message: "to must not be before from"})
		} else if DaysInclusive(from, to) > MaxHistoryDays {
			errs = append(errs, validator.ValidationError{
				Field:   "from",
				Message: fmt.Sprintf("date range must not exceed %d days", MaxHistoryDays),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// DaysInclusive counts the calendar dates in [from, to]. Both are treated as
// civil dates, so the count is unaffected by DST.
func DaysInclusive(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours()/24) + 1
}

type HoursMinutes struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

func NewHoursMinutes(d time.Duration) HoursMinutes {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Minute)
	return HoursMinutes{Hours: total / 60, Minutes: total % 60}
}

// FormatHHMM renders d as zero-padded "HH:MM". Hours are not wrapped at 24.
func FormatHHMM(d time.Duration) string {
	hm := NewHoursMinutes(d)
	return fmt.Sprintf("%02d:%02d", hm.Hours, hm.Minutes)
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateTimeLayout)
	return &s
}

type TodayResponse struct {
	AttendanceDate string  `json:"attendance_date"`
	PunchIn        *string `json:"punch_in"`
	PunchOut       *string `json:"punch_out"`
	TotalHours     string  `json:"total_hours"`
	Status         Status  `json:"status"`
	WeekTotalHours string  `json:"week_total_hours"`
}

type HistoryItemResponse struct {
	AttendanceDate string        `json:"attendance_date"`
	PunchIn        *string       `json:"punch_in"`
	PunchOut       *string       `json:"punch_out"`
	TotalHours     HoursMinutes  `json:"total_hours"`
	Status         Status        `json:"status"`
	Source         HistorySource `json:"source"`
	IsHoliday      bool          `json:"is_holiday"`
}

func NewHistoryItemResponse(e HistoryEntry) HistoryItemResponse {
	return HistoryItemResponse{
		AttendanceDate: e.Date.Format(DateLayout),
		PunchIn:        formatTime(e.PunchIn),
		PunchOut:       formatTime(e.PunchOut),
		TotalHours:     NewHoursMinutes(e.TotalDuration),
		Status:         e.Status,
		Source:         e.Source,
		IsHoliday:      e.IsHoliday,
	}
}

type OrganizationSummary struct {
	Total    int `json:"total"`
	Present  int `json:"present"`
	Working  int `json:"working"`
	Absent   int `json:"absent"`
	Inactive int `json:"inactive"`
}

type OrganizationRow struct {
	EmpID      string  `json:"emp_id"`
	Name       string  `json:"name"`
	PunchIn    *string `json:"punch_in"`
	PunchOut   *string `json:"punch_out"`
	TotalHours string  `json:"total_hours"`
	Status     Status  `json:"status"`
}

type OrganizationTodayResponse struct {
	AttendanceDate string              `json:"attendance_date"`
	Summary        OrganizationSummary `json:"summary"`
	Employees      []OrganizationRow   `json:"employees"`
}

type AggregationReportResponse struct {
	AttendanceDate string            `json:"attendance_date"`
	Employees      int               `json:"employees"`
	Upserted       int               `json:"upserted"`
	Failed         map[string]string `json:"failed"`
	DurationMs     int64             `json:"duration_ms"`
}

func NewAggregationReportResponse(r AggregationReport) AggregationReportResponse {
	failed := r.Failed
	if failed == nil {
		failed = map[string]string{}
	}
	return AggregationReportResponse{
		AttendanceDate: r.Date.Format(DateLayout),
		Employees:      r.Employees,
		Upserted:       r.Upserted,
		Failed:         failed,
		DurationMs:     r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
	}
}

type HolidayResponse struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

func NewOrganizationRow(r DailyAttendance, name string) OrganizationRow {
	return OrganizationRow{
		EmpID:      r.EmpID,
		Name:       name,
		PunchIn:    formatTime(r.PunchIn),
		PunchOut:   formatTime(r.PunchOut),
		TotalHours: FormatHHMM(r.TotalDuration),
		Status:     r.Status,
	}
}
