package punch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/repository/memory"
	punchsvc "github.com/cmlabs-hris/hris-attendance-go/internal/service/punch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncService_Sync(t *testing.T) {
	loc := time.UTC
	store := newRegistryStore(loc, "E001")
	term := &fakeTerminal{logs: []punch.RawLog{
		{DeviceUserID: "E001", RecordTime: "2024-03-04 10:45:00", IP: "10.0.0.5"},
		{DeviceUserID: "E001", RecordTime: "2024-03-04 10:45:00"},
		{DeviceUserID: "E404", RecordTime: "2024-03-04 11:00:00"},
	}}
	svc := punchsvc.NewSyncService(term,
		punchsvc.NewNormalizer(memory.NewEmployeeRepository(store), loc, "SN-01"),
		memory.NewPunchRepository(store),
	)

	report, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, punch.SyncReport{Fetched: 3, Accepted: 1, Inserted: 1, UnknownEmployee: 1, Duplicates: 1}, report)
	assert.Equal(t, []string{"pause", "fetch", "resume"}, term.calls)

	report, err = svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.Inserted)
}

func TestSyncService_FetchFailureResumesDevice(t *testing.T) {
	store := newRegistryStore(time.UTC, "E001")
	term := &fakeTerminal{fetchErr: errors.New("read timeout")}
	svc := punchsvc.NewSyncService(term,
		punchsvc.NewNormalizer(memory.NewEmployeeRepository(store), time.UTC, "SN-01"),
		memory.NewPunchRepository(store),
	)

	_, err := svc.Sync(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"pause", "fetch", "resume"}, term.calls)

	punches, _, _, _ := store.Counts()
	assert.Zero(t, punches)
}
