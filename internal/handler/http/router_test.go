package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/holiday"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-attendance-go/internal/repository/memory"
	attendanceService "github.com/cmlabs-hris/hris-attendance-go/internal/service/attendance"
	leaveService "github.com/cmlabs-hris/hris-attendance-go/internal/service/leave"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

type fakeJobRunner struct {
	queued bool
	err    error
}

func (f *fakeJobRunner) TriggerSync(ctx context.Context) bool {
	if f.queued {
		return false
	}
	f.queued = true
	return true
}

func (f *fakeJobRunner) AggregateDate(ctx context.Context, date time.Time) (attendance.AggregationReport, error) {
	return attendance.AggregationReport{Date: date, Employees: 3, Upserted: 3}, f.err
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type testServer struct {
	handler http.Handler
	jwt     jwt.Service
	store   *memory.Store
	jobs    *fakeJobRunner
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	loc := time.UTC
	store := memory.NewStore(loc)
	store.AddEmployee(employee.Employee{EmpID: "E001", Name: "Asha", Role: employee.RoleEmployee, IsActive: true})
	store.AddEmployee(employee.Employee{EmpID: "M001", Name: "Marta", Role: employee.RoleManager, IsActive: true})
	store.AddEmployee(employee.Employee{EmpID: "A001", Name: "Ade", Role: employee.RoleAdmin, IsActive: true})
	store.AddLeaveType(leave.LeaveType{ID: "annual", Name: "Annual Leave", IsActive: true})
	store.AddBalance(leave.LeaveBalance{EmpID: "E001", LeaveTypeID: "annual", Year: time.Now().UTC().Year(), Total: decimal.NewFromInt(12)})
	store.AddHoliday(holiday.Holiday{Date: time.Date(time.Now().UTC().Year(), 1, 26, 0, 0, 0, 0, loc), Name: "Republic Day"})

	policy := attendance.DefaultPolicy(loc)
	empRepo := memory.NewEmployeeRepository(store)
	punchRepo := memory.NewPunchRepository(store)
	attRepo := memory.NewAttendanceRepository(store)
	holidayRepo := memory.NewHolidayRepository(store)

	attSvc := attendanceService.NewAttendanceService(
		attRepo, empRepo, holidayRepo,
		attendanceService.NewAggregator(empRepo, punchRepo, attRepo, policy, 2),
		attendanceService.NewReconciler(attRepo, punchRepo, holidayRepo, policy),
		policy,
	)
	lvSvc := leaveService.NewLeaveService(
		memory.NewTransactor(store),
		memory.NewLeaveTypeRepository(store),
		memory.NewLeaveBalanceRepository(store),
		memory.NewLeaveRequestRepository(store),
		memory.NewLeaveApprovalRepository(store),
		loc,
	)
	lvSvc.SetEventHub(sse.NewHub())

	jobs := &fakeJobRunner{}
	jwtSvc := jwt.NewJWTService(handlerTestSecret)
	router := NewRouter("test", jwtSvc, NewAttendanceHandler(attSvc, jobs, loc), NewLeaveHandler(lvSvc))

	return &testServer{handler: router, jwt: jwtSvc, store: store, jobs: jobs}
}

func (s *testServer) do(t *testing.T, method, path, empID string, role employee.Role, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if empID != "" {
		token, _, err := s.jwt.GenerateAccessToken(empID, role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/attendance/today", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/today", nil)
	forged, _, err := jwt.NewJWTService("other-secret").GenerateAccessToken("E001", employee.RoleAdmin, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLeaveFlow(t *testing.T) {
	s := newTestServer(t)
	apply := `{"leave_type_id":"annual","start_date":"2024-07-01","end_date":"2024-07-09","total_days":7,"reason":"trip"}`

	rec := s.do(t, http.MethodPost, "/api/v1/leave/apply", "E001", employee.RoleEmployee, apply)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		LeaveRequestID string `json:"leave_request_id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &created))
	require.NotEmpty(t, created.LeaveRequestID)

	rec = s.do(t, http.MethodPost, "/api/v1/leave/apply", "E001", employee.RoleEmployee, apply)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Insufficient leave balance", decode(t, rec).Error.Message)

	rec = s.do(t, http.MethodGet, "/api/v1/leave/balance/E001", "E001", employee.RoleEmployee, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var balances []leave.LeaveBalanceResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &balances))
	require.Len(t, balances, 1)
	assert.Equal(t, 7.0, balances[0].Pending)
	assert.Equal(t, 5.0, balances[0].Remaining)

	approvePath := "/api/v1/leave/requests/" + created.LeaveRequestID + "/approve"

	rec = s.do(t, http.MethodPost, approvePath, "E001", employee.RoleEmployee, "")
	assert.Equal(t, http.StatusForbidden, rec.Code, "employees cannot approve")

	rec = s.do(t, http.MethodPost, approvePath, "M001", employee.RoleManager, `{"reason":"ok"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, approvePath, "M001", employee.RoleManager, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/leave/requests/"+created.LeaveRequestID, "E001", employee.RoleEmployee, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail leave.LeaveRequestDetailResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &detail))
	assert.Equal(t, leave.LeaveRequestStatusApproved, detail.Status)
	require.Len(t, detail.Approvals, 1)
	assert.Equal(t, "ok", *detail.Approvals[0].Comment)

	rec = s.do(t, http.MethodGet, "/api/v1/leave/my/E001", "E001", employee.RoleEmployee, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []leave.LeaveRequestResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "Annual Leave", mine[0].LeaveType)
}

func TestLeaveApply_Errors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/leave/apply", "E001", employee.RoleEmployee, `{"leave_type_id":"annual"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "Missing required fields", env.Error.Message)
	assert.Contains(t, env.Error.Details, "start_date")

	rec = s.do(t, http.MethodPost, "/api/v1/leave/apply", "E001", employee.RoleEmployee,
		`{"leave_type_id":"annual","start_date":"2024-07-01","end_date":"2024-07-01","total_days":0.04}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env = decode(t, rec)
	assert.Equal(t, "Validation failed", env.Error.Message)
	assert.Contains(t, env.Error.Details, "total_days")

	rec = s.do(t, http.MethodPost, "/api/v1/leave/apply", "E001", employee.RoleEmployee,
		`{"leave_type_id":"sick","start_date":"2024-07-01","end_date":"2024-07-01","total_days":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Leave balance not found", decode(t, rec).Error.Message)

	rec = s.do(t, http.MethodPost, "/api/v1/leave/apply", "E001", employee.RoleEmployee,
		`{"emp_id":"M001","leave_type_id":"annual","start_date":"2024-07-01","end_date":"2024-07-01","total_days":1}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/leave/apply", "E001", employee.RoleEmployee, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeave_WrongApproverRole(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/leave/apply", "E001", employee.RoleEmployee,
		`{"leave_type_id":"annual","start_date":"2024-07-01","end_date":"2024-07-02","total_days":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		LeaveRequestID string `json:"leave_request_id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &created))

	rec = s.do(t, http.MethodPost, "/api/v1/leave/requests/"+created.LeaveRequestID+"/reject", "H001", employee.RoleHR, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/leave/requests/"+created.LeaveRequestID+"/reject", "A001", employee.RoleAdmin, `{"reason":"team offsite"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLeave_OtherEmployeesRecordsAreForbidden(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/leave/balance/M001", "E001", employee.RoleEmployee, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/leave/balance/E001", "M001", employee.RoleManager, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAttendanceEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/attendance/today", "E001", employee.RoleEmployee, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var today attendance.TodayResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &today))
	assert.Equal(t, attendance.StatusAbsent, today.Status)
	assert.Equal(t, "00:00", today.TotalHours)

	rec = s.do(t, http.MethodGet, "/api/v1/attendance/history?from=2024-03-10&to=2024-03-01", "E001", employee.RoleEmployee, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/attendance/history?from=2024-03-01&to=2024-03-03", "E001", employee.RoleEmployee, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []attendance.HistoryItemResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &items))
	assert.Len(t, items, 3)

	rec = s.do(t, http.MethodGet, "/api/v1/attendance/history?emp_id=M001", "E001", employee.RoleEmployee, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/attendance/organization/today", "E001", employee.RoleEmployee, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/attendance/organization/today", "A001", employee.RoleAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var org attendance.OrganizationTodayResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &org))
	assert.Equal(t, 3, org.Summary.Total)
}

func TestAttendanceAdminJobs(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/sync", "A001", employee.RoleAdmin, "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/v1/attendance/sync", "A001", employee.RoleAdmin, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/attendance/aggregate?date=2024-03-04", "A001", employee.RoleAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report attendance.AggregationReportResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &report))
	assert.Equal(t, 3, report.Upserted)

	rec = s.do(t, http.MethodPost, "/api/v1/attendance/aggregate?date=04-03-2024", "A001", employee.RoleAdmin, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.jobs.err = attendance.ErrAggregationInProgress
	rec = s.do(t, http.MethodPost, "/api/v1/attendance/aggregate", "A001", employee.RoleAdmin, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAttendanceExportAndHolidays(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/attendance/export?from=2024-03-01&to=2024-03-31", "A001", employee.RoleAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	rec = s.do(t, http.MethodGet, "/api/v1/attendance/export?from=2024-03-01", "A001", employee.RoleAdmin, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/attendance/holidays", "E001", employee.RoleEmployee, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var holidays []attendance.HolidayResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &holidays))
	require.Len(t, holidays, 1)
	assert.Equal(t, "Republic Day", holidays[0].Name)

	rec = s.do(t, http.MethodGet, "/api/v1/attendance/holidays.ics", "E001", employee.RoleEmployee, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, rec.Body.String(), "SUMMARY:Republic Day")
}

// readEvent reads one server-sent event and returns its name and data.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return name, data
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestLeaveEventsStream(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/api/v1/events/leave")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, _, err := s.jwt.GenerateAccessToken("M001", employee.RoleManager, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events/leave?jwt="+token, nil)
	require.NoError(t, err)

	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	stream := bufio.NewReader(resp.Body)
	name, data := readEvent(t, stream)
	assert.Equal(t, "connected", name)
	assert.Contains(t, data, `"emp_id":"M001"`)

	rec := s.do(t, http.MethodPost, "/api/v1/leave/apply", "E001", employee.RoleEmployee,
		`{"leave_type_id":"annual","start_date":"2024-07-01","end_date":"2024-07-01","total_days":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	name, data = readEvent(t, stream)
	assert.Equal(t, leave.EventApprovalPending, name)
	var payload leave.LeaveEventResponse
	require.NoError(t, json.Unmarshal([]byte(data), &payload))
	assert.Equal(t, "E001", payload.EmpID)
	assert.Equal(t, "manager", payload.ApproverRole)
}
