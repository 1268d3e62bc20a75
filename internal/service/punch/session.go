package punch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
)

// WithSession pauses the terminal, runs fn and always resumes the terminal
// afterwards, including when fn fails or panics. A failed pause is reported as
// punch.ErrDeviceConnection and fn is not run. A failed resume is joined to the
// returned error as punch.ErrDeviceNotResumed.
func WithSession(ctx context.Context, terminal punch.Terminal, fn func(ctx context.Context) error) (err error) {
	defer func() {
		p := recover()

		// resume must run even when ctx is already cancelled
		if rErr := terminal.Resume(context.WithoutCancel(ctx)); rErr != nil {
			slog.Error("Terminal was not resumed; device stays disabled until resumed manually", "error", rErr)
			err = errors.Join(err, fmt.Errorf("%w: %v", punch.ErrDeviceNotResumed, rErr))
		}

		if p != nil {
			panic(p)
		}
	}()

	if pErr := terminal.Pause(ctx); pErr != nil {
		if errors.Is(pErr, punch.ErrDeviceConnection) {
			return pErr
		}
		return fmt.Errorf("%w: pause: %v", punch.ErrDeviceConnection, pErr)
	}

	return fn(ctx)
}
