package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/cmlabs-hris/hris-attendance-go/internal/service/attendance")

// DefaultAggregateConcurrency bounds the per-employee fan-out of one run.
const DefaultAggregateConcurrency = 8

// ComputeRecord derives one day's record from that day's events. events may be
// unordered and may belong to other dates; only those on date are considered.
func ComputeRecord(emp employee.Employee, date time.Time, events []punch.PunchEvent, policy attendance.Policy) attendance.DailyAttendance {
	day := policy.Date(date)
	next := policy.NextDay(day)
	inCutoff := policy.PunchInCutoff(day)
	outCutoff := policy.PunchOutCutoff(day)

	var punchIn, punchOut *time.Time
	for _, ev := range events {
		t := ev.PunchTime.In(policy.Location)
		if t.Before(day) || !t.Before(next) {
			continue
		}
		if !t.Before(inCutoff) && (punchIn == nil || t.Before(*punchIn)) {
			punchIn = &t
		}
	}
	if punchIn != nil {
		for _, ev := range events {
			t := ev.PunchTime.In(policy.Location)
			if !t.Before(next) || t.Before(outCutoff) || !t.After(*punchIn) {
				continue
			}
			if punchOut == nil || t.Before(*punchOut) {
				punchOut = &t
			}
		}
	}

	record := attendance.DailyAttendance{
		EmpID:            emp.EmpID,
		Date:             day,
		PunchIn:          punchIn,
		PunchOut:         punchOut,
		TotalDuration:    totalDuration(punchIn, punchOut),
		ExpectedDuration: policy.ExpectedDuration,
	}

	switch {
	case !emp.IsActive:
		record.Status = attendance.StatusInactive
	case punchIn == nil:
		record.Status = attendance.StatusAbsent
	case punchOut == nil:
		record.Status = attendance.StatusWorking
	default:
		record.Status = attendance.StatusPresent
	}

	return record
}

func totalDuration(in, out *time.Time) time.Duration {
	if in == nil || out == nil {
		return 0
	}
	return out.Sub(*in)
}

// Aggregator rebuilds daily records from stored punch events.
type Aggregator struct {
	employee.EmployeeRepository
	punch.PunchRepository
	attendance.AttendanceRepository
	policy      attendance.Policy
	concurrency int
	now         func() time.Time
}

func NewAggregator(
	employeeRepository employee.EmployeeRepository,
	punchRepository punch.PunchRepository,
	attendanceRepository attendance.AttendanceRepository,
	policy attendance.Policy,
	concurrency int,
) *Aggregator {
	if concurrency <= 0 {
		concurrency = DefaultAggregateConcurrency
	}
	return &Aggregator{
		EmployeeRepository:   employeeRepository,
		PunchRepository:      punchRepository,
		AttendanceRepository: attendanceRepository,
		policy:               policy,
		concurrency:          concurrency,
		now:                  time.Now,
	}
}

// Aggregate writes one record per registry employee for date. Per-employee
// failures are collected in the report; the registry and the day's events
// are loaded once and a failure there aborts the run.
func (a *Aggregator) Aggregate(ctx context.Context, date time.Time) (report attendance.AggregationReport, err error) {
	day := a.policy.Date(date)

	ctx, span := tracer.Start(ctx, "attendance.Aggregate")
	span.SetAttributes(attribute.String("attendance.date", day.Format(attendance.DateLayout)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	report = attendance.AggregationReport{
		Date:      day,
		Failed:    make(map[string]string),
		StartedAt: a.now(),
	}

	employees, err := a.EmployeeRepository.ListAll(ctx)
	if err != nil {
		return attendance.AggregationReport{}, fmt.Errorf("failed to load employee registry: %w", err)
	}

	events, err := a.PunchRepository.ListBetween(ctx, day, a.policy.NextDay(day))
	if err != nil {
		return attendance.AggregationReport{}, fmt.Errorf("failed to load punch events for %s: %w", day.Format(attendance.DateLayout), err)
	}

	byEmployee := make(map[string][]punch.PunchEvent)
	for _, ev := range events {
		byEmployee[ev.EmpID] = append(byEmployee[ev.EmpID], ev)
	}

	var (
		mu       sync.Mutex
		upserted int
		g        errgroup.Group
	)
	g.SetLimit(a.concurrency)

	for _, emp := range employees {
		g.Go(func() error {
			record := ComputeRecord(emp, day, byEmployee[emp.EmpID], a.policy)
			upsertErr := a.AttendanceRepository.Upsert(ctx, record)

			mu.Lock()
			defer mu.Unlock()
			if upsertErr != nil {
				report.Failed[emp.EmpID] = upsertErr.Error()
				return nil
			}
			upserted++
			return nil
		})
	}
	_ = g.Wait()

	report.Employees = len(employees)
	report.Upserted = upserted
	report.FinishedAt = a.now()

	span.SetAttributes(
		attribute.Int("attendance.employees", report.Employees),
		attribute.Int("attendance.failed", len(report.Failed)),
	)
	if len(report.Failed) > 0 {
		slog.Error("Attendance aggregation finished with failures",
			"date", day.Format(attendance.DateLayout),
			"employees", report.Employees,
			"failed", len(report.Failed),
		)
	} else {
		slog.Info("Attendance aggregation finished",
			"date", day.Format(attendance.DateLayout),
			"employees", report.Employees,
		)
	}

	return report, nil
}
