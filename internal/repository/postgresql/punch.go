package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

// insertChunkSize bounds the statements queued in a single pgx.Batch.
const insertChunkSize = 500

type punchRepositoryImpl struct {
	db  *database.DB
	loc *time.Location
}

func NewPunchRepository(db *database.DB, loc *time.Location) punch.PunchRepository {
	return &punchRepositoryImpl{db: db, loc: loc}
}

// InsertBatch implements punch.PunchRepository.
func (r *punchRepositoryImpl) InsertBatch(ctx context.Context, events []punch.PunchEvent) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_logs (emp_id, punch_time, device_ip, device_sn)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (emp_id, punch_time) DO NOTHING
	`

	var inserted int64
	for start := 0; start < len(events); start += insertChunkSize {
		end := min(start+insertChunkSize, len(events))
		chunk := events[start:end]

		batch := &pgx.Batch{}
		for _, ev := range chunk {
			batch.Queue(query, ev.EmpID, toCivil(ev.PunchTime, r.loc), ev.SourceIP, ev.DeviceSerial)
		}

		br := q.SendBatch(ctx, batch)
		for range chunk {
			tag, err := br.Exec()
			if err != nil {
				br.Close()
				return inserted, fmt.Errorf("failed to insert punch event: %w", err)
			}
			inserted += tag.RowsAffected()
		}
		if err := br.Close(); err != nil {
			return inserted, fmt.Errorf("failed to close punch batch: %w", err)
		}
	}

	return inserted, nil
}

// ListBetween implements punch.PunchRepository.
func (r *punchRepositoryImpl) ListBetween(ctx context.Context, from, to time.Time) ([]punch.PunchEvent, error) {
	query := `
		SELECT emp_id, punch_time, device_ip, device_sn
		FROM attendance_logs
		WHERE punch_time >= $1 AND punch_time < $2
		ORDER BY punch_time, emp_id
	`
	return r.list(ctx, query, toCivil(from, r.loc), toCivil(to, r.loc))
}

// ListByEmployeeBetween implements punch.PunchRepository.
func (r *punchRepositoryImpl) ListByEmployeeBetween(ctx context.Context, empID string, from, to time.Time) ([]punch.PunchEvent, error) {
	query := `
		SELECT emp_id, punch_time, device_ip, device_sn
		FROM attendance_logs
		WHERE emp_id = $1 AND punch_time >= $2 AND punch_time < $3
		ORDER BY punch_time
	`
	return r.list(ctx, query, empID, toCivil(from, r.loc), toCivil(to, r.loc))
}

func (r *punchRepositoryImpl) list(ctx context.Context, query string, args ...any) ([]punch.PunchEvent, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list punch events: %w", err)
	}
	defer rows.Close()

	events := make([]punch.PunchEvent, 0)
	for rows.Next() {
		var ev punch.PunchEvent
		if err := rows.Scan(&ev.EmpID, &ev.PunchTime, &ev.SourceIP, &ev.DeviceSerial); err != nil {
			return nil, fmt.Errorf("failed to scan punch event: %w", err)
		}
		ev.PunchTime = fromCivil(ev.PunchTime, r.loc)
		events = append(events, ev)
	}

	return events, rows.Err()
}
