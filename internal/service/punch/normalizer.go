package punch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
)

// Layouts without an offset are device wall time in the organization timezone.
var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseRecordTime parses a terminal timestamp and returns it as civil time in
// loc, truncated to whole seconds.
func ParseRecordTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty record time")
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.In(loc).Truncate(time.Second), nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.Truncate(time.Second), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised record time %q", raw)
}

// Normalizer turns raw terminal tuples into storable punch events.
type Normalizer struct {
	employee.EmployeeRepository
	loc          *time.Location
	deviceSerial string
}

func NewNormalizer(employeeRepository employee.EmployeeRepository, loc *time.Location, deviceSerial string) *Normalizer {
	return &Normalizer{
		EmployeeRepository: employeeRepository,
		loc:                loc,
		deviceSerial:       deviceSerial,
	}
}

// Normalize validates, canonicalizes and deduplicates a batch. The employee
// registry is read once per batch.
func (n *Normalizer) Normalize(ctx context.Context, logs []punch.RawLog) (punch.NormalizeResult, error) {
	result := punch.NormalizeResult{
		Events:   make([]punch.PunchEvent, 0, len(logs)),
		Received: len(logs),
	}
	if len(logs) == 0 {
		return result, nil
	}

	employees, err := n.EmployeeRepository.ListAll(ctx)
	if err != nil {
		return punch.NormalizeResult{}, fmt.Errorf("failed to load employee registry: %w", err)
	}
	registry := employee.NewRegistry(employees)

	type key struct {
		empID string
		at    int64
	}
	seen := make(map[key]struct{}, len(logs))

	for _, raw := range logs {
		at, err := ParseRecordTime(raw.RecordTime, n.loc)
		if err != nil {
			result.InvalidTime++
			continue
		}

		empID := strings.TrimSpace(raw.DeviceUserID)
		if !registry.Has(empID) {
			result.UnknownEmployee++
			continue
		}

		k := key{empID: empID, at: at.Unix()}
		if _, dup := seen[k]; dup {
			result.Duplicates++
			continue
		}
		seen[k] = struct{}{}

		ev := punch.PunchEvent{
			EmpID:        empID,
			PunchTime:    at,
			DeviceSerial: n.deviceSerial,
		}
		if ip := strings.TrimSpace(raw.IP); ip != "" {
			ev.SourceIP = &ip
		}
		result.Events = append(result.Events, ev)
	}

	return result, nil
}
