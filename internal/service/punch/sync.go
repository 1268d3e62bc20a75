package punch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/cmlabs-hris/hris-attendance-go/internal/service/punch")

// SyncService pulls the terminal log and stores the normalized events.
type SyncService struct {
	terminal   punch.Terminal
	normalizer *Normalizer
	punch.PunchRepository
}

func NewSyncService(terminal punch.Terminal, normalizer *Normalizer, punchRepository punch.PunchRepository) *SyncService {
	return &SyncService{
		terminal:        terminal,
		normalizer:      normalizer,
		PunchRepository: punchRepository,
	}
}

// Sync fetches inside a device session, then normalizes and stores outside it
// so the device is disabled only while its log is read.
func (s *SyncService) Sync(ctx context.Context) (report punch.SyncReport, err error) {
	ctx, span := tracer.Start(ctx, "punch.Sync")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var logs []punch.RawLog
	err = WithSession(ctx, s.terminal, func(ctx context.Context) error {
		fetched, fErr := s.terminal.FetchLogs(ctx)
		if fErr != nil {
			return fmt.Errorf("fetch terminal logs: %w", fErr)
		}
		logs = fetched
		return nil
	})
	if err != nil {
		return punch.SyncReport{}, err
	}

	result, err := s.normalizer.Normalize(ctx, logs)
	if err != nil {
		return punch.SyncReport{}, err
	}

	inserted, err := s.PunchRepository.InsertBatch(ctx, result.Events)
	if err != nil {
		return punch.SyncReport{}, fmt.Errorf("store punch events: %w", err)
	}

	report = punch.SyncReport{
		Fetched:         result.Received,
		Accepted:        len(result.Events),
		Inserted:        inserted,
		InvalidTime:     result.InvalidTime,
		UnknownEmployee: result.UnknownEmployee,
		Duplicates:      result.Duplicates,
	}

	span.SetAttributes(
		attribute.Int("punch.fetched", report.Fetched),
		attribute.Int64("punch.inserted", report.Inserted),
	)
	slog.Info("Terminal sync completed",
		"fetched", report.Fetched,
		"accepted", report.Accepted,
		"inserted", report.Inserted,
		"invalid_time", report.InvalidTime,
		"unknown_employee", report.UnknownEmployee,
		"duplicates", report.Duplicates,
	)

	return report, nil
}
