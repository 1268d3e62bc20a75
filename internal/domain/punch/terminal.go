package punch

import "context"

// Terminal is the biometric device feed. Pause must be called before
// FetchLogs and Resume afterwards; see service/punch.WithSession.
type Terminal interface {
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	FetchLogs(ctx context.Context) ([]RawLog, error)
}
