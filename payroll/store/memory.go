// Package store provides in-memory payroll Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	payrolls  map[string]payroll.PayrollRecord
	unique    map[uniqueKey]string
	advances  []payroll.AdvanceRecord
	employees map[string]payroll.Employee
	runs      []payroll.RunRecord
}

// uniqueKey is the one-payroll-per-allocation-per-period constraint.
type uniqueKey struct {
	EmployeeID   string
	AllocationID string
	Period       payroll.PayPeriod
}

func NewMemory() *Memory {
	return &Memory{
		payrolls:  make(map[string]payroll.PayrollRecord),
		unique:    make(map[uniqueKey]string),
		employees: make(map[string]payroll.Employee),
	}
}

func (m *Memory) SavePayroll(_ context.Context, rec payroll.PayrollRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.savePayrollLocked(rec)
}

func (m *Memory) savePayrollLocked(rec payroll.PayrollRecord) error {
	k := uniqueKey{EmployeeID: rec.EmployeeID, AllocationID: rec.AllocationID, Period: rec.PayPeriod}
	if _, exists := m.unique[k]; exists {
		return payroll.ErrDuplicatePayroll
	}
	m.payrolls[rec.ID] = rec
	m.unique[k] = rec.ID
	return nil
}

func (m *Memory) SaveAdvance(_ context.Context, rec payroll.AdvanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advances = append(m.advances, rec)
	return nil
}

func (m *Memory) ListPayrolls(_ context.Context, employeeID string, period payroll.PayPeriod) ([]payroll.PayrollRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listPayrollsLocked(employeeID, period), nil
}

func (m *Memory) listPayrollsLocked(employeeID string, period payroll.PayPeriod) []payroll.PayrollRecord {
	result := []payroll.PayrollRecord{}
	for _, rec := range m.payrolls {
		if rec.EmployeeID == employeeID && rec.PayPeriod == period {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AllocationID < result[j].AllocationID })
	return result
}

func (m *Memory) ListAdvances(_ context.Context, period payroll.PayPeriod) ([]payroll.AdvanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAdvancesLocked(period), nil
}

func (m *Memory) listAdvancesLocked(period payroll.PayPeriod) []payroll.AdvanceRecord {
	result := []payroll.AdvanceRecord{}
	for _, rec := range m.advances {
		if rec.Advance.PayPeriod == period {
			result = append(result, rec)
		}
	}
	return result
}

// =============================================================================
// EMPLOYEES AND RUNS
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, emp payroll.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = emp
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id string) (*payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[id]
	if !ok {
		return nil, payroll.ErrEmployeeNotFound
	}
	return &emp, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]payroll.Employee, 0, len(m.employees))
	for _, emp := range m.employees {
		result = append(result, emp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) SaveRun(_ context.Context, run payroll.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

// ListRuns returns the most recent runs first.
func (m *Memory) ListRuns(_ context.Context, limit int) ([]payroll.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := []payroll.RunRecord{}
	for i := len(m.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, m.runs[i])
	}
	return result, nil
}

func (m *Memory) IsRunComplete(_ context.Context, period payroll.PayPeriod) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, run := range m.runs {
		if run.PayPeriod == period {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(payroll.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	payrolls map[string]payroll.PayrollRecord
	unique   map[uniqueKey]string
	advances []payroll.AdvanceRecord
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		payrolls: make(map[string]payroll.PayrollRecord, len(tm.payrolls)),
		unique:   make(map[uniqueKey]string, len(tm.unique)),
		advances: append([]payroll.AdvanceRecord{}, tm.advances...),
	}
	for k, v := range tm.payrolls {
		s.payrolls[k] = v
	}
	for k, v := range tm.unique {
		s.unique[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.payrolls = s.payrolls
	tm.unique = s.unique
	tm.advances = s.advances
}

// txMemoryView runs with the parent's lock already held.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) SavePayroll(_ context.Context, rec payroll.PayrollRecord) error {
	return tv.parent.savePayrollLocked(rec)
}

func (tv *txMemoryView) SaveAdvance(_ context.Context, rec payroll.AdvanceRecord) error {
	tv.parent.advances = append(tv.parent.advances, rec)
	return nil
}

func (tv *txMemoryView) ListPayrolls(_ context.Context, employeeID string, period payroll.PayPeriod) ([]payroll.PayrollRecord, error) {
	return tv.parent.listPayrollsLocked(employeeID, period), nil
}

func (tv *txMemoryView) ListAdvances(_ context.Context, period payroll.PayPeriod) ([]payroll.AdvanceRecord, error) {
	return tv.parent.listAdvancesLocked(period), nil
}

var (
	_ payroll.TxStore       = (*TxMemory)(nil)
	_ payroll.EmployeeStore = (*Memory)(nil)
	_ payroll.RunStore      = (*Memory)(nil)
)
