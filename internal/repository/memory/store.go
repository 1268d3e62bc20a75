// Package memory holds map-backed repositories with the same contracts as the
// postgresql package. Unit and handler tests run against it.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/holiday"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
)

type punchKey struct {
	empID string
	at    int64
}

type recordKey struct {
	empID string
	date  string
}

type storedRequest struct {
	leave.LeaveRequest
	seq int64
}

type storedApproval struct {
	leave.LeaveApproval
	seq int64
}

type state struct {
	employees  map[string]employee.Employee
	punches    map[punchKey]punch.PunchEvent
	records    map[recordKey]attendance.DailyAttendance
	holidays   map[string]holiday.Holiday
	leaveTypes map[string]leave.LeaveType
	chains     map[string][]leave.ApprovalLevel
	balances   map[int64]leave.LeaveBalance
	requests   map[string]storedRequest
	approvals  map[string]storedApproval
	nextID     int64
}

func newState() state {
	return state{
		employees:  make(map[string]employee.Employee),
		punches:    make(map[punchKey]punch.PunchEvent),
		records:    make(map[recordKey]attendance.DailyAttendance),
		holidays:   make(map[string]holiday.Holiday),
		leaveTypes: make(map[string]leave.LeaveType),
		chains:     make(map[string][]leave.ApprovalLevel),
		balances:   make(map[int64]leave.LeaveBalance),
		requests:   make(map[string]storedRequest),
		approvals:  make(map[string]storedApproval),
	}
}

func (s state) clone() state {
	c := state{
		employees:  maps.Clone(s.employees),
		punches:    maps.Clone(s.punches),
		records:    maps.Clone(s.records),
		holidays:   maps.Clone(s.holidays),
		leaveTypes: maps.Clone(s.leaveTypes),
		chains:     maps.Clone(s.chains),
		balances:   maps.Clone(s.balances),
		requests:   maps.Clone(s.requests),
		approvals:  maps.Clone(s.approvals),
		nextID:     s.nextID,
	}
	return c
}

// Store is the shared backing state. Transactions are serialized: a unit of
// work holds txMu for its whole duration, which stands in for row locks.
// A rollback restores the whole snapshot, so writes made outside the
// transaction while it runs are lost.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data state
	loc  *time.Location
}

func NewStore(loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{data: newState(), loc: loc}
}

func (s *Store) seq() int64 {
	s.data.nextID++
	return s.data.nextID
}

func (s *Store) dateKey(t time.Time) string {
	return t.In(s.loc).Format("2006-01-02")
}

type txKey struct{}

type transactor struct {
	store *Store
}

func NewTransactor(store *Store) database.Transactor {
	return &transactor{store: store}
}

// WithinTransaction implements database.Transactor. State is snapshotted on
// entry and restored when fn fails or panics.
func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	t.store.mu.RLock()
	snapshot := t.store.data.clone()
	t.store.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			t.store.restore(snapshot)
			panic(p)
		}
		if err != nil {
			t.store.restore(snapshot)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true))
}

func (s *Store) restore(snapshot state) {
	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
}

// ========================================
// SEEDING
// ========================================

func (s *Store) AddEmployee(e employee.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
		e.UpdatedAt = e.CreatedAt
	}
	s.data.employees[e.EmpID] = e
}

func (s *Store) AddHoliday(h holiday.Holiday) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.holidays[s.dateKey(h.Date)] = h
}

// AddLeaveType registers a leave type with an optional approval chain.
func (s *Store) AddLeaveType(lt leave.LeaveType, chain ...leave.ApprovalLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lt.CreatedAt.IsZero() {
		lt.CreatedAt = time.Now()
	}
	s.data.leaveTypes[lt.ID] = lt
	levels := make([]leave.ApprovalLevel, 0, len(chain))
	for _, lvl := range chain {
		lvl.LeaveTypeID = lt.ID
		levels = append(levels, lvl)
	}
	s.data.chains[lt.ID] = levels
}

// AddBalance stores b and returns its generated id.
func (s *Store) AddBalance(b leave.LeaveBalance) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.seq()
	b.UpdatedAt = time.Now()
	s.data.balances[b.ID] = b
	return b.ID
}

// Balance returns the stored balance for (emp, type, year).
func (s *Store) Balance(empID, leaveTypeID string, year int) (leave.LeaveBalance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.data.balances {
		if b.EmpID == empID && b.LeaveTypeID == leaveTypeID && b.Year == year {
			return b, true
		}
	}
	return leave.LeaveBalance{}, false
}

// Counts reports stored rows per table, for assertions on rollbacks.
func (s *Store) Counts() (punches, records, requests, approvals int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.punches), len(s.data.records), len(s.data.requests), len(s.data.approvals)
}
