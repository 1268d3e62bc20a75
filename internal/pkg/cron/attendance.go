package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/lock"
	"golang.org/x/sync/singleflight"
)

const (
	SyncJobName      = "attendance_sync"
	aggregateLockTTL = 5 * time.Minute
)

type Syncer interface {
	Sync(ctx context.Context) (punch.SyncReport, error)
}

type DateAggregator interface {
	Aggregate(ctx context.Context, date time.Time) (attendance.AggregationReport, error)
}

// AttendanceJobs pulls the terminal and rebuilds today's records on every
// tick. Aggregation of one date is single-flight within the process and
// guarded by a lock across processes.
type AttendanceJobs struct {
	syncer     Syncer
	aggregator DateAggregator
	locker     lock.Locker
	policy     attendance.Policy
	group      singleflight.Group
	scheduler  *Scheduler
	now        func() time.Time
}

func NewAttendanceJobs(syncer Syncer, aggregator DateAggregator, locker lock.Locker, policy attendance.Policy) *AttendanceJobs {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	return &AttendanceJobs{
		syncer:     syncer,
		aggregator: aggregator,
		locker:     locker,
		policy:     policy,
		now:        time.Now,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	j.scheduler = scheduler
	scheduler.AddJob(SyncJobName, interval, j.SyncAndAggregate)
}

// TriggerSync implements attendance.JobRunner.
func (j *AttendanceJobs) TriggerSync(ctx context.Context) bool {
	if j.scheduler == nil {
		return false
	}
	return j.scheduler.Trigger(SyncJobName)
}

// SyncAndAggregate syncs the terminal, then aggregates today. During the first
// hour of the day yesterday is aggregated again so late punches are picked up.
// An unreachable terminal does not stop aggregation of the stored events.
func (j *AttendanceJobs) SyncAndAggregate(ctx context.Context) error {
	var errs []error

	report, err := j.syncer.Sync(ctx)
	switch {
	case err == nil:
		slog.Info("Cron: Terminal synced", "fetched", report.Fetched, "inserted", report.Inserted)
	case errors.Is(err, punch.ErrDeviceNotResumed):
		errs = append(errs, fmt.Errorf("sync: %w", err))
	case errors.Is(err, punch.ErrDeviceConnection):
		slog.Warn("Cron: Terminal unreachable, retrying next tick", "error", err)
	default:
		errs = append(errs, fmt.Errorf("sync: %w", err))
	}

	now := j.now().In(j.policy.Location)
	today := j.policy.Date(now)

	dates := []time.Time{today}
	if now.Hour() == 0 {
		dates = []time.Time{today.AddDate(0, 0, -1), today}
	}

	for _, date := range dates {
		if _, err := j.AggregateDate(ctx, date); err != nil {
			if errors.Is(err, attendance.ErrAggregationInProgress) {
				slog.Info("Cron: Aggregation running elsewhere, skipped", "date", date.Format(attendance.DateLayout))
				continue
			}
			errs = append(errs, fmt.Errorf("aggregate %s: %w", date.Format(attendance.DateLayout), err))
		}
	}

	return errors.Join(errs...)
}

// AggregateDate implements attendance.JobRunner.
func (j *AttendanceJobs) AggregateDate(ctx context.Context, date time.Time) (attendance.AggregationReport, error) {
	key := j.policy.Date(date).Format(attendance.DateLayout)

	v, err, shared := j.group.Do(key, func() (interface{}, error) {
		lease, ok, err := j.locker.TryLock(ctx, "aggregate:"+key, aggregateLockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, attendance.ErrAggregationInProgress
		}
		defer func() {
			if rErr := lease.Release(context.WithoutCancel(ctx)); rErr != nil {
				slog.Warn("Cron: Failed to release aggregation lock", "date", key, "error", rErr)
			}
		}()

		return j.aggregator.Aggregate(ctx, date)
	})
	if err != nil {
		return attendance.AggregationReport{}, err
	}
	if shared {
		slog.Debug("Cron: Aggregation result shared", "date", key)
	}

	return v.(attendance.AggregationReport), nil
}
