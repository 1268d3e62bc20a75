package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/holiday"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
)

type holidayRepositoryImpl struct {
	db  *database.DB
	loc *time.Location
}

func NewHolidayRepository(db *database.DB, loc *time.Location) holiday.HolidayRepository {
	return &holidayRepositoryImpl{db: db, loc: loc}
}

// ListBetween implements holiday.HolidayRepository.
func (r *holidayRepositoryImpl) ListBetween(ctx context.Context, from, to time.Time) ([]holiday.Holiday, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT holiday_date, name
		FROM holidays
		WHERE holiday_date BETWEEN $1 AND $2
		ORDER BY holiday_date
	`

	rows, err := q.Query(ctx, query, civilDate(from, r.loc), civilDate(to, r.loc))
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	holidays := make([]holiday.Holiday, 0)
	for rows.Next() {
		var h holiday.Holiday
		if err := rows.Scan(&h.Date, &h.Name); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		h.Date = fromCivilDate(h.Date, r.loc)
		holidays = append(holidays, h)
	}

	return holidays, rows.Err()
}

// Upsert implements holiday.HolidayRepository.
func (r *holidayRepositoryImpl) Upsert(ctx context.Context, h holiday.Holiday) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO holidays (holiday_date, name)
		VALUES ($1, $2)
		ON CONFLICT (holiday_date) DO UPDATE SET name = EXCLUDED.name
	`

	if _, err := q.Exec(ctx, query, civilDate(h.Date, r.loc), h.Name); err != nil {
		return fmt.Errorf("failed to upsert holiday %s: %w", civilDate(h.Date, r.loc), err)
	}

	return nil
}
