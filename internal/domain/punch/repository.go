package punch

import (
	"context"
	"time"
)

type PunchRepository interface {
	// InsertBatch stores events, silently skipping rows whose (emp_id, punch_time)
	// already exists. It returns the number of rows actually inserted.
	InsertBatch(ctx context.Context, events []PunchEvent) (int64, error)
	// ListBetween returns all events with from <= punch_time < to, ordered by punch_time.
	ListBetween(ctx context.Context, from, to time.Time) ([]PunchEvent, error)
	ListByEmployeeBetween(ctx context.Context, empID string, from, to time.Time) ([]PunchEvent, error)
}
