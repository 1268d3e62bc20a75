package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-attendance-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type LeaveHandler interface {
	ListTypes(w http.ResponseWriter, r *http.Request)
	GetBalance(w http.ResponseWriter, r *http.Request)

	Apply(w http.ResponseWriter, r *http.Request)
	GetMyRequests(w http.ResponseWriter, r *http.Request)
	GetRequest(w http.ResponseWriter, r *http.Request)

	ListPendingApprovals(w http.ResponseWriter, r *http.Request)
	ApproveRequest(w http.ResponseWriter, r *http.Request)
	RejectRequest(w http.ResponseWriter, r *http.Request)

	Events(w http.ResponseWriter, r *http.Request)
}

type LeaveHandlerImpl struct {
	leaveService leave.LeaveService
}

func NewLeaveHandler(leaveService leave.LeaveService) LeaveHandler {
	return &LeaveHandlerImpl{
		leaveService: leaveService,
	}
}

// roles that may act on behalf of, or read the records of, other employees
var leaveOfficers = []employee.Role{employee.RoleHR, employee.RoleAdmin}

// ListTypes implements LeaveHandler.
func (l *LeaveHandlerImpl) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := l.leaveService.ListLeaveTypes(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, types)
}

// GetBalance implements LeaveHandler.
func (l *LeaveHandlerImpl) GetBalance(w http.ResponseWriter, r *http.Request) {
	balances, err := l.leaveService.GetBalances(r.Context(), chi.URLParam(r, "emp_id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, balances)
}

// Apply implements LeaveHandler.
func (l *LeaveHandlerImpl) Apply(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		response.HandleError(w, response.ErrInvalidToken)
		return
	}

	var req leave.ApplyLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Apply decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if req.EmpID == "" {
		req.EmpID = caller.EmpID
	}
	if req.EmpID != caller.EmpID && !isOfficer(caller.Role) {
		response.Forbidden(w, "You can only apply leave for yourself")
		return
	}

	created, err := l.leaveService.Apply(r.Context(), req)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs.HasCode(validator.CodeRequired) {
			response.ValidationError(w, "Missing required fields", verrs.ToMap())
			return
		}
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Leave request submitted", map[string]string{
		"leave_request_id": created.ID,
	})
}

// GetMyRequests implements LeaveHandler.
func (l *LeaveHandlerImpl) GetMyRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := l.leaveService.ListMyRequests(r.Context(), chi.URLParam(r, "emp_id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, requests)
}

// GetRequest implements LeaveHandler. Employees see only their own requests.
func (l *LeaveHandlerImpl) GetRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		response.HandleError(w, response.ErrInvalidToken)
		return
	}

	detail, err := l.leaveService.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if detail.EmpID != caller.EmpID && caller.Role == employee.RoleEmployee {
		response.HandleError(w, leave.ErrLeaveRequestNotFound)
		return
	}

	response.Success(w, detail)
}

// ListPendingApprovals implements LeaveHandler.
func (l *LeaveHandlerImpl) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		response.HandleError(w, response.ErrInvalidToken)
		return
	}

	pending, err := l.leaveService.ListPendingApprovals(r.Context(), leave.Approver{EmpID: caller.EmpID, Role: caller.Role})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, pending)
}

// ApproveRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDecision(w, r)
	if !ok {
		return
	}

	updated, err := l.leaveService.Approve(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	message := "Leave request approved successfully"
	if updated.Status == leave.LeaveRequestStatusPending {
		message = "Approval recorded; awaiting next approval level"
	}
	response.SuccessWithMessage(w, message, leave.NewLeaveRequestResponse(updated))
}

// RejectRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) RejectRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDecision(w, r)
	if !ok {
		return
	}

	updated, err := l.leaveService.Reject(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave request rejected successfully", leave.NewLeaveRequestResponse(updated))
}

// Events streams leave events to the caller as server-sent events.
func (l *LeaveHandlerImpl) Events(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		response.HandleError(w, response.ErrInvalidToken)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := l.leaveService.Subscribe(r.Context(), leave.Approver{EmpID: caller.EmpID, Role: caller.Role})
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"emp_id\":%q}\n\n", caller.EmpID)
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				slog.Error("Leave event encode error", "event", event.Event, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// decodeDecision reads the optional {reason} body and fills in the request
// id and the caller as approver.
func decodeDecision(w http.ResponseWriter, r *http.Request) (leave.DecideLeaveRequest, bool) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		response.HandleError(w, response.ErrInvalidToken)
		return leave.DecideLeaveRequest{}, false
	}

	var req leave.DecideLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.Error("Decision decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return leave.DecideLeaveRequest{}, false
	}

	req.RequestID = chi.URLParam(r, "id")
	req.Approver = leave.Approver{EmpID: caller.EmpID, Role: caller.Role}
	return req, true
}

func isOfficer(role employee.Role) bool {
	return slices.Contains(leaveOfficers, role)
}
