package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/holiday"
)

type AttendanceServiceImpl struct {
	attendance.AttendanceRepository
	employee.EmployeeRepository
	holiday.HolidayRepository
	aggregator *Aggregator
	reconciler *Reconciler
	policy     attendance.Policy
	now        func() time.Time
}

func NewAttendanceService(
	attendanceRepository attendance.AttendanceRepository,
	employeeRepository employee.EmployeeRepository,
	holidayRepository holiday.HolidayRepository,
	aggregator *Aggregator,
	reconciler *Reconciler,
	policy attendance.Policy,
) *AttendanceServiceImpl {
	return &AttendanceServiceImpl{
		AttendanceRepository: attendanceRepository,
		EmployeeRepository:   employeeRepository,
		HolidayRepository:    holidayRepository,
		aggregator:           aggregator,
		reconciler:           reconciler,
		policy:               policy,
		now:                  time.Now,
	}
}

// liveDuration is the stored total for Present and the elapsed time since
// punch-in for today's Working record.
func (s *AttendanceServiceImpl) liveDuration(rec attendance.DailyAttendance, today time.Time, now time.Time) time.Duration {
	switch rec.Status {
	case attendance.StatusPresent:
		return rec.TotalDuration
	case attendance.StatusWorking:
		if rec.PunchIn != nil && rec.Date.Equal(today) && now.After(*rec.PunchIn) {
			return now.Sub(*rec.PunchIn)
		}
	}
	return 0
}

// Today implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Today(ctx context.Context, empID string) (attendance.TodayResponse, error) {
	now := s.now().In(s.policy.Location)
	today := s.policy.Date(now)

	resp := attendance.TodayResponse{
		AttendanceDate: today.Format(attendance.DateLayout),
		TotalHours:     attendance.FormatHHMM(0),
		Status:         attendance.StatusAbsent,
	}

	rec, err := s.AttendanceRepository.GetByEmployeeDate(ctx, empID, today)
	switch {
	case err == nil:
		resp.PunchIn = timePtrToString(rec.PunchIn)
		resp.PunchOut = timePtrToString(rec.PunchOut)
		resp.Status = rec.Status
		resp.TotalHours = attendance.FormatHHMM(s.liveDuration(rec, today, now))
	case errors.Is(err, attendance.ErrAttendanceNotFound):
	default:
		return attendance.TodayResponse{}, fmt.Errorf("failed to get today's attendance: %w", err)
	}

	// weeks start on Monday
	monday := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
	week, err := s.AttendanceRepository.ListByEmployeeBetween(ctx, empID, monday, today)
	if err != nil {
		return attendance.TodayResponse{}, fmt.Errorf("failed to get weekly attendance: %w", err)
	}
	var weekTotal time.Duration
	for _, r := range week {
		weekTotal += s.liveDuration(r, today, now)
	}
	resp.WeekTotalHours = attendance.FormatHHMM(weekTotal)

	return resp, nil
}

// History implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) History(ctx context.Context, filter attendance.HistoryFilter) ([]attendance.HistoryItemResponse, error) {
	if filter.From == "" && filter.To == "" {
		today := s.policy.Date(s.now())
		filter.From = time.Date(today.Year(), today.Month()-1, 1, 0, 0, 0, 0, s.policy.Location).Format(attendance.DateLayout)
		filter.To = today.Format(attendance.DateLayout)
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	from, err := time.ParseInLocation(attendance.DateLayout, filter.From, s.policy.Location)
	if err != nil {
		return nil, fmt.Errorf("parse from: %w", err)
	}
	to, err := time.ParseInLocation(attendance.DateLayout, filter.To, s.policy.Location)
	if err != nil {
		return nil, fmt.Errorf("parse to: %w", err)
	}

	entries, err := s.reconciler.History(ctx, filter.EmpID, from, to)
	if err != nil {
		return nil, err
	}

	items := make([]attendance.HistoryItemResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, attendance.NewHistoryItemResponse(e))
	}
	return items, nil
}

// OrganizationToday implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) OrganizationToday(ctx context.Context) (attendance.OrganizationTodayResponse, error) {
	now := s.now().In(s.policy.Location)
	today := s.policy.Date(now)

	employees, err := s.EmployeeRepository.ListAll(ctx)
	if err != nil {
		return attendance.OrganizationTodayResponse{}, fmt.Errorf("failed to list employees: %w", err)
	}
	records, err := s.AttendanceRepository.ListByDate(ctx, today)
	if err != nil {
		return attendance.OrganizationTodayResponse{}, fmt.Errorf("failed to list today's attendance: %w", err)
	}
	byEmp := make(map[string]attendance.DailyAttendance, len(records))
	for _, r := range records {
		byEmp[r.EmpID] = r
	}

	resp := attendance.OrganizationTodayResponse{
		AttendanceDate: today.Format(attendance.DateLayout),
		Employees:      make([]attendance.OrganizationRow, 0, len(employees)),
	}
	for _, emp := range employees {
		rec, ok := byEmp[emp.EmpID]
		if !ok {
			rec = attendance.DailyAttendance{EmpID: emp.EmpID, Date: today, Status: attendance.StatusAbsent}
		}
		if !emp.IsActive {
			rec.Status = attendance.StatusInactive
		}
		rec.TotalDuration = s.liveDuration(rec, today, now)

		row := attendance.NewOrganizationRow(rec, emp.Name)
		resp.Employees = append(resp.Employees, row)

		resp.Summary.Total++
		switch rec.Status {
		case attendance.StatusPresent:
			resp.Summary.Present++
		case attendance.StatusWorking:
			resp.Summary.Working++
		case attendance.StatusInactive:
			resp.Summary.Inactive++
		default:
			resp.Summary.Absent++
		}
	}

	return resp, nil
}

// Aggregate implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Aggregate(ctx context.Context, date time.Time) (attendance.AggregationReport, error) {
	return s.aggregator.Aggregate(ctx, date)
}

// timePtrToString safely converts a *time.Time to a string.
func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.Format(attendance.DateTimeLayout)
	return &format
}
