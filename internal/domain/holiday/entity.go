package holiday

import (
	"context"
	"time"
)

type Holiday struct {
	Date time.Time
	Name string
}

type HolidayRepository interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]Holiday, error)
	// Upsert stores h, replacing the name of an existing holiday on the same date.
	Upsert(ctx context.Context, h Holiday) error
}
