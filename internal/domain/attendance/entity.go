package attendance

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusAbsent   Status = "Absent"
	StatusWorking  Status = "Working"
	StatusPresent  Status = "Present"
	StatusInactive Status = "Inactive"
)

// DailyAttendance is the authoritative per-employee-per-day record.
// (EmpID, Date) is the key; every write is an upsert.
type DailyAttendance struct {
	EmpID            string
	Date             time.Time // midnight of the civil date in the organization timezone
	PunchIn          *time.Time
	PunchOut         *time.Time
	TotalDuration    time.Duration
	ExpectedDuration time.Duration
	Status           Status
	UpdatedAt        time.Time

	// DTO
	EmployeeName *string
}

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) Before(o ClockTime) bool {
	return c.Hour < o.Hour || (c.Hour == o.Hour && c.Minute < o.Minute)
}

// Policy holds the organization-wide windowing rules.
type Policy struct {
	Location          *time.Location
	PunchInThreshold  ClockTime
	PunchOutThreshold ClockTime
	ExpectedDuration  time.Duration
}

func DefaultPolicy(loc *time.Location) Policy {
	if loc == nil {
		loc = time.UTC
	}
	return Policy{
		Location:          loc,
		PunchInThreshold:  ClockTime{Hour: 10, Minute: 30},
		PunchOutThreshold: ClockTime{Hour: 19, Minute: 0},
		ExpectedDuration:  9 * time.Hour,
	}
}

// Date returns midnight of t's civil date in the organization timezone.
func (p Policy) Date(t time.Time) time.Time {
	t = t.In(p.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.Location)
}

// At returns the instant of clock c on the civil date of day.
func (p Policy) At(day time.Time, c ClockTime) time.Time {
	d := p.Date(day)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, p.Location)
}

func (p Policy) PunchInCutoff(day time.Time) time.Time {
	return p.At(day, p.PunchInThreshold)
}

func (p Policy) PunchOutCutoff(day time.Time) time.Time {
	return p.At(day, p.PunchOutThreshold)
}

// NextDay returns midnight of the civil date after day. AddDate keeps it
// correct across DST transitions.
func (p Policy) NextDay(day time.Time) time.Time {
	return p.Date(day).AddDate(0, 0, 1)
}

type HistorySource string

const (
	SourceRecord      HistorySource = "record"
	SourcePunchLog    HistorySource = "punch_log"
	SourcePlaceholder HistorySource = "placeholder"
)

// HistoryEntry is one reconstructed day. It is never persisted.
type HistoryEntry struct {
	Date          time.Time
	PunchIn       *time.Time
	PunchOut      *time.Time
	TotalDuration time.Duration
	Status        Status
	Source        HistorySource
	IsHoliday     bool
}

type AggregationReport struct {
	Date       time.Time
	Employees  int
	Upserted   int
	Failed     map[string]string
	StartedAt  time.Time
	FinishedAt time.Time
}
