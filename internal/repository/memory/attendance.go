package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/holiday"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
)

type employeeRepository struct{ s *Store }

func NewEmployeeRepository(s *Store) employee.EmployeeRepository {
	return &employeeRepository{s: s}
}

func (r *employeeRepository) ListAll(ctx context.Context) ([]employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]employee.Employee, 0, len(r.s.data.employees))
	for _, e := range r.s.data.employees {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b employee.Employee) int { return strings.Compare(a.EmpID, b.EmpID) })
	return out, nil
}

func (r *employeeRepository) GetByEmpID(ctx context.Context, empID string) (employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.data.employees[empID]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

type punchRepository struct{ s *Store }

func NewPunchRepository(s *Store) punch.PunchRepository {
	return &punchRepository{s: s}
}

func (r *punchRepository) InsertBatch(ctx context.Context, events []punch.PunchEvent) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var inserted int64
	for _, ev := range events {
		key := punchKey{empID: ev.EmpID, at: ev.PunchTime.Truncate(time.Second).Unix()}
		if _, exists := r.s.data.punches[key]; exists {
			continue
		}
		ev.PunchTime = ev.PunchTime.In(r.s.loc)
		r.s.data.punches[key] = ev
		inserted++
	}
	return inserted, nil
}

func (r *punchRepository) ListBetween(ctx context.Context, from, to time.Time) ([]punch.PunchEvent, error) {
	return r.list(func(ev punch.PunchEvent) bool {
		return !ev.PunchTime.Before(from) && ev.PunchTime.Before(to)
	}), nil
}

func (r *punchRepository) ListByEmployeeBetween(ctx context.Context, empID string, from, to time.Time) ([]punch.PunchEvent, error) {
	return r.list(func(ev punch.PunchEvent) bool {
		return ev.EmpID == empID && !ev.PunchTime.Before(from) && ev.PunchTime.Before(to)
	}), nil
}

func (r *punchRepository) list(match func(punch.PunchEvent) bool) []punch.PunchEvent {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]punch.PunchEvent, 0)
	for _, ev := range r.s.data.punches {
		if match(ev) {
			out = append(out, ev)
		}
	}
	slices.SortFunc(out, func(a, b punch.PunchEvent) int {
		if c := a.PunchTime.Compare(b.PunchTime); c != 0 {
			return c
		}
		return strings.Compare(a.EmpID, b.EmpID)
	})
	return out
}

type attendanceRepository struct{ s *Store }

func NewAttendanceRepository(s *Store) attendance.AttendanceRepository {
	return &attendanceRepository{s: s}
}

func (r *attendanceRepository) Upsert(ctx context.Context, record attendance.DailyAttendance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	record.UpdatedAt = time.Now()
	record.EmployeeName = nil
	r.s.data.records[recordKey{empID: record.EmpID, date: r.s.dateKey(record.Date)}] = record
	return nil
}

func (r *attendanceRepository) GetByEmployeeDate(ctx context.Context, empID string, date time.Time) (attendance.DailyAttendance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	record, ok := r.s.data.records[recordKey{empID: empID, date: r.s.dateKey(date)}]
	if !ok {
		return attendance.DailyAttendance{}, attendance.ErrAttendanceNotFound
	}
	return r.withName(record), nil
}

func (r *attendanceRepository) ListByEmployeeBetween(ctx context.Context, empID string, from, to time.Time) ([]attendance.DailyAttendance, error) {
	out := r.list(empID, r.s.dateKey(from), r.s.dateKey(to))
	slices.Reverse(out)
	return out, nil
}

func (r *attendanceRepository) ListByDate(ctx context.Context, date time.Time) ([]attendance.DailyAttendance, error) {
	key := r.s.dateKey(date)
	return r.list("", key, key), nil
}

func (r *attendanceRepository) ListBetween(ctx context.Context, from, to time.Time) ([]attendance.DailyAttendance, error) {
	return r.list("", r.s.dateKey(from), r.s.dateKey(to)), nil
}

// list returns records within [from, to] ordered by date then emp_id. An
// empty empID matches every employee.
func (r *attendanceRepository) list(empID, from, to string) []attendance.DailyAttendance {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]attendance.DailyAttendance, 0)
	for key, record := range r.s.data.records {
		if empID != "" && key.empID != empID {
			continue
		}
		if key.date < from || key.date > to {
			continue
		}
		out = append(out, r.withName(record))
	}
	slices.SortFunc(out, func(a, b attendance.DailyAttendance) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.EmpID, b.EmpID)
	})
	return out
}

func (r *attendanceRepository) withName(record attendance.DailyAttendance) attendance.DailyAttendance {
	if e, ok := r.s.data.employees[record.EmpID]; ok {
		name := e.Name
		record.EmployeeName = &name
	}
	return record
}

type holidayRepository struct{ s *Store }

func NewHolidayRepository(s *Store) holiday.HolidayRepository {
	return &holidayRepository{s: s}
}

func (r *holidayRepository) ListBetween(ctx context.Context, from, to time.Time) ([]holiday.Holiday, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	lo, hi := r.s.dateKey(from), r.s.dateKey(to)
	out := make([]holiday.Holiday, 0)
	for key, h := range r.s.data.holidays {
		if key >= lo && key <= hi {
			out = append(out, h)
		}
	}
	slices.SortFunc(out, func(a, b holiday.Holiday) int { return a.Date.Compare(b.Date) })
	return out, nil
}

func (r *holidayRepository) Upsert(ctx context.Context, h holiday.Holiday) error {
	r.s.AddHoliday(h)
	return nil
}
