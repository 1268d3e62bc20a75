package employee

import "time"

type Role string

const (
	RoleEmployee Role = "employee" // Regular employee
	RoleManager  Role = "manager"  // First approval level
	RoleHR       Role = "hr"       // Second approval level
	RoleAdmin    Role = "admin"    // Organization administrator, may act on any approval step
)

// Employee is reference data owned by the identity system. It is read-only here.
type Employee struct {
	EmpID     string
	Name      string
	Email     *string
	Role      Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Registry is a point-in-time snapshot of the known employees, keyed by emp_id.
type Registry map[string]Employee

func NewRegistry(employees []Employee) Registry {
	r := make(Registry, len(employees))
	for _, e := range employees {
		r[e.EmpID] = e
	}
	return r
}

func (r Registry) Has(empID string) bool {
	_, ok := r[empID]
	return ok
}
