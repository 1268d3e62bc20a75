package attendance

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/holiday"
)

const calendarProductID = "-//cmlabs-hris//hris-attendance//EN"

// Holidays implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Holidays(ctx context.Context, from, to time.Time) ([]attendance.HolidayResponse, error) {
	holidays, err := s.HolidayRepository.ListBetween(ctx, s.policy.Date(from), s.policy.Date(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}

	resp := make([]attendance.HolidayResponse, 0, len(holidays))
	for _, h := range holidays {
		resp = append(resp, attendance.HolidayResponse{Date: h.Date.Format(attendance.DateLayout), Name: h.Name})
	}
	return resp, nil
}

// HolidaysICS implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) HolidaysICS(ctx context.Context, from, to time.Time) (string, error) {
	holidays, err := s.HolidayRepository.ListBetween(ctx, s.policy.Date(from), s.policy.Date(to))
	if err != nil {
		return "", fmt.Errorf("failed to list holidays: %w", err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)

	stamp := s.now().UTC()
	for _, h := range holidays {
		date := h.Date.Format("20060102")
		event := cal.AddEvent(date + "@holidays.hris-attendance")
		event.SetDtStampTime(stamp)
		event.SetSummary(h.Name)
		event.SetAllDayStartAt(h.Date)
		event.SetAllDayEndAt(h.Date.AddDate(0, 0, 1))
	}

	return cal.Serialize(), nil
}

// ParseHolidayCalendar reads holiday events from an iCalendar feed. Dated
// starts are taken as civil dates; timed starts in UTC or with a TZID are
// converted to loc first. Events without a summary or a parseable start are
// skipped.
func ParseHolidayCalendar(r io.Reader, loc *time.Location) ([]holiday.Holiday, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	holidays := make([]holiday.Holiday, 0)
	for _, evt := range cal.Events() {
		summary := evt.GetProperty(ics.ComponentPropertySummary)
		if summary == nil || summary.Value == "" {
			continue
		}

		day, ok := holidayDate(evt, loc)
		if !ok {
			continue
		}
		holidays = append(holidays, holiday.Holiday{Date: day, Name: summary.Value})
	}

	return holidays, nil
}

func holidayDate(evt *ics.VEvent, loc *time.Location) (time.Time, bool) {
	start := evt.GetProperty(ics.ComponentPropertyDtStart)
	if start == nil {
		return time.Time{}, false
	}

	var at time.Time
	var err error
	if isDateValue(start) {
		at, err = evt.GetAllDayStartAt()
	} else {
		at, err = evt.GetStartAt()
		// floating times are already wall time in the organization zone
		if err == nil && !isFloating(start) {
			at = at.In(loc)
		}
	}
	if err != nil {
		return time.Time{}, false
	}

	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, loc), true
}

func isDateValue(prop *ics.IANAProperty) bool {
	if v := prop.ICalParameters[string(ics.ParameterValue)]; len(v) == 1 && v[0] == string(ics.ValueDataTypeDate) {
		return true
	}
	return !strings.Contains(prop.Value, "T")
}

func isFloating(prop *ics.IANAProperty) bool {
	_, hasZone := prop.ICalParameters[string(ics.ParameterTzid)]
	return !hasZone && !strings.HasSuffix(prop.Value, "Z")
}
