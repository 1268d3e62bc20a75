package employee

import "context"

// EmployeeRepository reads the employees table, which is maintained by the identity system.
type EmployeeRepository interface {
	ListAll(ctx context.Context) ([]Employee, error)
	GetByEmpID(ctx context.Context, empID string) (Employee, error)
}
