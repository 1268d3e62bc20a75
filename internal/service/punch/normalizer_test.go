package punch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/repository/memory"
	punchsvc "github.com/cmlabs-hris/hris-attendance-go/internal/service/punch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func newRegistryStore(loc *time.Location, empIDs ...string) *memory.Store {
	store := memory.NewStore(loc)
	for _, id := range empIDs {
		store.AddEmployee(employee.Employee{EmpID: id, Name: id, Role: employee.RoleEmployee, IsActive: true})
	}
	return store
}

func TestParseRecordTime(t *testing.T) {
	loc := mustLoad(t, "Asia/Kolkata")

	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{name: "utc instant", raw: "2024-03-04T05:00:00Z", want: time.Date(2024, 3, 4, 10, 30, 0, 0, loc)},
		{name: "offset instant with fraction", raw: "2024-03-04T10:29:59.900+05:30", want: time.Date(2024, 3, 4, 10, 29, 59, 0, loc)},
		{name: "device wall time", raw: "2024-03-04 19:00:00", want: time.Date(2024, 3, 4, 19, 0, 0, 0, loc)},
		{name: "device wall time with T", raw: " 2024-03-04T08:15:00 ", want: time.Date(2024, 3, 4, 8, 15, 0, 0, loc)},
		{name: "garbage", raw: "yesterday", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := punchsvc.ParseRecordTime(tt.raw, loc)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
			assert.Equal(t, loc, got.Location())
		})
	}
}

func TestNormalizer_FiltersAndDeduplicates(t *testing.T) {
	loc := mustLoad(t, "Asia/Kolkata")
	store := newRegistryStore(loc, "E001", "E002")
	n := punchsvc.NewNormalizer(memory.NewEmployeeRepository(store), loc, "SN-01")

	logs := []punch.RawLog{
		{DeviceUserID: "E001", RecordTime: "2024-03-04 10:45:00", IP: "10.0.0.5"},
		{DeviceUserID: " E001 ", RecordTime: "2024-03-04T05:15:00Z"}, // same instant as above
		{DeviceUserID: "E002", RecordTime: "2024-03-04 19:02:11"},
		{DeviceUserID: "E999", RecordTime: "2024-03-04 10:00:00"},
		{DeviceUserID: "E002", RecordTime: "not-a-time"},
	}

	result, err := n.Normalize(context.Background(), logs)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Received)
	assert.Equal(t, 1, result.InvalidTime)
	assert.Equal(t, 1, result.UnknownEmployee)
	assert.Equal(t, 1, result.Duplicates)
	require.Len(t, result.Events, 2)

	first := result.Events[0]
	assert.Equal(t, "E001", first.EmpID)
	assert.Equal(t, "SN-01", first.DeviceSerial)
	require.NotNil(t, first.SourceIP)
	assert.Equal(t, "10.0.0.5", *first.SourceIP)
	assert.Nil(t, result.Events[1].SourceIP)
}

type failingEmployees struct {
	employee.EmployeeRepository
}

func (failingEmployees) ListAll(ctx context.Context) ([]employee.Employee, error) {
	return nil, errors.New("registry down")
}

func TestNormalizer_RegistryFailure(t *testing.T) {
	n := punchsvc.NewNormalizer(failingEmployees{}, time.UTC, "SN-01")

	_, err := n.Normalize(context.Background(), []punch.RawLog{{DeviceUserID: "E001", RecordTime: "2024-03-04 10:45:00"}})
	assert.Error(t, err)
}

func TestNormalizer_StoreWriteIsIdempotent(t *testing.T) {
	loc := time.UTC
	store := newRegistryStore(loc, "E001")
	n := punchsvc.NewNormalizer(memory.NewEmployeeRepository(store), loc, "SN-01")
	repo := memory.NewPunchRepository(store)
	ctx := context.Background()

	logs := []punch.RawLog{
		{DeviceUserID: "E001", RecordTime: "2024-03-04 10:45:00"},
		{DeviceUserID: "E001", RecordTime: "2024-03-04 19:10:00"},
	}

	result, err := n.Normalize(ctx, logs)
	require.NoError(t, err)
	inserted, err := repo.InsertBatch(ctx, result.Events)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inserted)

	result, err = n.Normalize(ctx, logs)
	require.NoError(t, err)
	inserted, err = repo.InsertBatch(ctx, result.Events)
	require.NoError(t, err)
	assert.Equal(t, int64(0), inserted)
}
