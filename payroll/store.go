/*
store.go - Persistence interface for payroll results

PURPOSE:
  The engine itself never writes. A payroll run produces PayrollRecords (one
  per allocation) and AdvanceRecords (one per cross-organization grant
  allocation) that are persisted through these interfaces.

KEY INTERFACES:
  Store:         Payroll and advance rows
  TxStore:       All-or-nothing writes for one employee and period
  EmployeeStore: Employee snapshots
  RunStore:      Audit of bulk and scheduled runs

UNIQUENESS:
  At most one PayrollRecord exists per (employee, allocation, pay period).
  A second write returns ErrDuplicatePayroll, so a retried run is rejected
  instead of paying twice.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - payroll/store/memory.go: In-memory for testing
*/
package payroll

import (
	"context"
	"time"
)

// =============================================================================
// RECORDS
// =============================================================================

// PayrollRecord is a persisted AllocationCalculation.
type PayrollRecord struct {
	ID           string                `json:"id"`
	EmployeeID   string                `json:"employee_id"`
	AllocationID string                `json:"allocation_id"`
	PayPeriod    PayPeriod             `json:"pay_period"`
	TaxYear      int                   `json:"tax_year"`
	Calculation  AllocationCalculation `json:"calculation"`
	CreatedBy    string                `json:"created_by"`
	CreatedAt    time.Time             `json:"created_at"`
}

// AdvanceRecord is a persisted InterOrganizationAdvance.
type AdvanceRecord struct {
	ID         string                   `json:"id"`
	PayrollID  string                   `json:"payroll_id"`
	EmployeeID string                   `json:"employee_id"`
	Advance    InterOrganizationAdvance `json:"advance"`
	CreatedBy  string                   `json:"created_by"`
	CreatedAt  time.Time                `json:"created_at"`
}

// RunRecord audits one bulk or scheduled run.
type RunRecord struct {
	ID          string    `json:"id"`
	PayPeriod   PayPeriod `json:"pay_period"`
	TaxYear     int       `json:"tax_year"`
	Actor       string    `json:"actor"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Errors      []string  `json:"errors,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// =============================================================================
// INTERFACES
// =============================================================================

// Store persists payroll results. Payroll rows are never updated in place.
type Store interface {
	// SavePayroll returns ErrDuplicatePayroll if the employee already has a
	// payroll for the allocation and period.
	SavePayroll(ctx context.Context, rec PayrollRecord) error

	SaveAdvance(ctx context.Context, rec AdvanceRecord) error

	// ListPayrolls returns the employee's payrolls for period, ordered by allocation.
	ListPayrolls(ctx context.Context, employeeID string, period PayPeriod) ([]PayrollRecord, error)

	// ListAdvances returns every advance for period.
	ListAdvances(ctx context.Context, period PayPeriod) ([]AdvanceRecord, error)
}

// TxStore wraps Store with transaction support.
// If fn returns an error every write made through the view is rolled back.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// EmployeeStore persists employee snapshots.
type EmployeeStore interface {
	SaveEmployee(ctx context.Context, emp Employee) error
	// GetEmployee returns ErrEmployeeNotFound for unknown ids.
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
}

// RunStore records payroll runs.
type RunStore interface {
	SaveRun(ctx context.Context, run RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	IsRunComplete(ctx context.Context, period PayPeriod) (bool, error)
}
