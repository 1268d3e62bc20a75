package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-attendance-go/internal/handler/http/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AttendanceHandler interface {
	Today(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
	OrganizationToday(w http.ResponseWriter, r *http.Request)
	Sync(w http.ResponseWriter, r *http.Request)
	Aggregate(w http.ResponseWriter, r *http.Request)
	Export(w http.ResponseWriter, r *http.Request)
	Holidays(w http.ResponseWriter, r *http.Request)
	HolidaysICS(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	jobs              attendance.JobRunner
	loc               *time.Location
	now               func() time.Time
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService, jobs attendance.JobRunner, loc *time.Location) AttendanceHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		jobs:              jobs,
		loc:               loc,
		now:               time.Now,
	}
}

// Today implements AttendanceHandler.
func (h *attendanceHandlerImpl) Today(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		response.HandleError(w, response.ErrInvalidToken)
		return
	}

	today, err := h.attendanceService.Today(r.Context(), caller.EmpID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, today)
}

// History implements AttendanceHandler. Approvers and admins may pass
// emp_id to read another employee's history.
func (h *attendanceHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		response.HandleError(w, response.ErrInvalidToken)
		return
	}

	query := r.URL.Query()
	filter := attendance.HistoryFilter{
		EmpID: caller.EmpID,
		From:  query.Get("from"),
		To:    query.Get("to"),
	}

	if empID := query.Get("emp_id"); empID != "" && empID != caller.EmpID {
		if caller.Role == employee.RoleEmployee {
			response.Forbidden(w, "You can only access your own records")
			return
		}
		filter.EmpID = empID
	}

	items, err := h.attendanceService.History(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, items)
}

// OrganizationToday implements AttendanceHandler.
func (h *attendanceHandlerImpl) OrganizationToday(w http.ResponseWriter, r *http.Request) {
	resp, err := h.attendanceService.OrganizationToday(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, resp)
}

// Sync implements AttendanceHandler. The sync runs on the job goroutine; the
// request only queues it.
func (h *attendanceHandlerImpl) Sync(w http.ResponseWriter, r *http.Request) {
	if !h.jobs.TriggerSync(r.Context()) {
		response.Conflict(w, "A terminal sync is already queued")
		return
	}

	response.Accepted(w, "Terminal sync started")
}

// Aggregate implements AttendanceHandler.
func (h *attendanceHandlerImpl) Aggregate(w http.ResponseWriter, r *http.Request) {
	date := h.now().In(h.loc)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation(attendance.DateLayout, raw, h.loc)
		if err != nil {
			response.BadRequest(w, "date must be in YYYY-MM-DD format", nil)
			return
		}
		date = parsed
	}

	report, err := h.jobs.AggregateDate(r.Context(), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, attendance.NewAggregationReportResponse(report))
}

// Export implements AttendanceHandler.
func (h *attendanceHandlerImpl) Export(w http.ResponseWriter, r *http.Request) {
	filter := attendance.ExportFilter{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}

	var buf bytes.Buffer
	if err := h.attendanceService.Export(r.Context(), filter, &buf); err != nil {
		response.HandleError(w, err)
		return
	}

	filename := fmt.Sprintf("attendance_%s_%s.xlsx", filter.From, filter.To)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to write export", "error", err)
	}
}

// Holidays implements AttendanceHandler.
func (h *attendanceHandlerImpl) Holidays(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.holidayRange(w, r)
	if !ok {
		return
	}

	holidays, err := h.attendanceService.Holidays(r.Context(), from, to)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, holidays)
}

// HolidaysICS implements AttendanceHandler.
func (h *attendanceHandlerImpl) HolidaysICS(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.holidayRange(w, r)
	if !ok {
		return
	}

	feed, err := h.attendanceService.HolidaysICS(r.Context(), from, to)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="holidays.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(feed))
}

// holidayRange defaults to the current calendar year.
func (h *attendanceHandlerImpl) holidayRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	now := h.now().In(h.loc)
	from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, h.loc)
	to := time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, h.loc)

	query := r.URL.Query()
	if raw := query.Get("from"); raw != "" {
		parsed, err := time.ParseInLocation(attendance.DateLayout, raw, h.loc)
		if err != nil {
			response.BadRequest(w, "from must be in YYYY-MM-DD format", nil)
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := query.Get("to"); raw != "" {
		parsed, err := time.ParseInLocation(attendance.DateLayout, raw, h.loc)
		if err != nil {
			response.BadRequest(w, "to must be in YYYY-MM-DD format", nil)
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	if to.Before(from) {
		response.HandleError(w, attendance.ErrInvalidDateRange)
		return time.Time{}, time.Time{}, false
	}

	return from, to, true
}
