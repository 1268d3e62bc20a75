package punch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	punchsvc "github.com/cmlabs-hris/hris-attendance-go/internal/service/punch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTerminal struct {
	pauseErr  error
	resumeErr error
	fetchErr  error
	logs      []punch.RawLog

	calls []string
}

func (f *fakeTerminal) Pause(ctx context.Context) error {
	f.calls = append(f.calls, "pause")
	return f.pauseErr
}

func (f *fakeTerminal) Resume(ctx context.Context) error {
	f.calls = append(f.calls, "resume")
	return f.resumeErr
}

func (f *fakeTerminal) FetchLogs(ctx context.Context) ([]punch.RawLog, error) {
	f.calls = append(f.calls, "fetch")
	return f.logs, f.fetchErr
}

func TestWithSession_ResumesOnSuccess(t *testing.T) {
	term := &fakeTerminal{}

	err := punchsvc.WithSession(context.Background(), term, func(ctx context.Context) error {
		_, err := term.FetchLogs(ctx)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"pause", "fetch", "resume"}, term.calls)
}

func TestWithSession_ResumesOnError(t *testing.T) {
	term := &fakeTerminal{}
	boom := errors.New("boom")

	err := punchsvc.WithSession(context.Background(), term, func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"pause", "resume"}, term.calls)
}

func TestWithSession_ResumesOnPanic(t *testing.T) {
	term := &fakeTerminal{}

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = punchsvc.WithSession(context.Background(), term, func(ctx context.Context) error {
			panic("kaboom")
		})
	})
	assert.Equal(t, []string{"pause", "resume"}, term.calls)
}

func TestWithSession_ResumesWhenContextCancelled(t *testing.T) {
	term := &fakeTerminal{}
	ctx, cancel := context.WithCancel(context.Background())

	err := punchsvc.WithSession(ctx, term, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"pause", "resume"}, term.calls)
}

func TestWithSession_PauseFailureStillResumes(t *testing.T) {
	term := &fakeTerminal{pauseErr: errors.New("dial tcp: refused")}
	ran := false

	err := punchsvc.WithSession(context.Background(), term, func(ctx context.Context) error {
		ran = true
		return nil
	})

	assert.ErrorIs(t, err, punch.ErrDeviceConnection)
	assert.False(t, ran)
	assert.Equal(t, []string{"pause", "resume"}, term.calls)
}

func TestWithSession_ResumeFailureIsReported(t *testing.T) {
	term := &fakeTerminal{resumeErr: errors.New("device busy")}
	boom := errors.New("boom")

	err := punchsvc.WithSession(context.Background(), term, func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, punch.ErrDeviceNotResumed)
	assert.ErrorIs(t, err, boom)
}
