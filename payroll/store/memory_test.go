package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

var june = payroll.PayPeriod{Year: 2025, Month: time.June}

func record(id, employee, allocation string) payroll.PayrollRecord {
	return payroll.PayrollRecord{ID: id, EmployeeID: employee, AllocationID: allocation, PayPeriod: june, CreatedBy: "tester"}
}

func TestMemory_UniquePerAllocationAndPeriod(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.SavePayroll(ctx, record("p1", "emp-1", "a1")))
	assert.ErrorIs(t, m.SavePayroll(ctx, record("p2", "emp-1", "a1")), payroll.ErrDuplicatePayroll)

	// Different allocation or period is fine
	require.NoError(t, m.SavePayroll(ctx, record("p3", "emp-1", "a2")))
	july := record("p4", "emp-1", "a1")
	july.PayPeriod = june.Next()
	require.NoError(t, m.SavePayroll(ctx, july))

	got, err := m.ListPayrolls(ctx, "emp-1", june)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].AllocationID)
	assert.Equal(t, "a2", got[1].AllocationID)
}

func TestTxMemory_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	m := store.NewTxMemory()
	boom := errors.New("boom")

	err := m.WithTx(ctx, func(s payroll.Store) error {
		require.NoError(t, s.SavePayroll(ctx, record("p1", "emp-1", "a1")))
		require.NoError(t, s.SaveAdvance(ctx, payroll.AdvanceRecord{ID: "adv-1", PayrollID: "p1",
			Advance: payroll.InterOrganizationAdvance{PayPeriod: june}}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	payrolls, _ := m.ListPayrolls(ctx, "emp-1", june)
	assert.Empty(t, payrolls)
	advances, _ := m.ListAdvances(ctx, june)
	assert.Empty(t, advances)

	// The unique key was released too
	require.NoError(t, m.SavePayroll(ctx, record("p1", "emp-1", "a1")))
}

func TestMemory_EmployeesAndRuns(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	_, err := m.GetEmployee(ctx, "missing")
	assert.ErrorIs(t, err, payroll.ErrEmployeeNotFound)

	require.NoError(t, m.SaveEmployee(ctx, payroll.Employee{ID: "emp-2"}))
	require.NoError(t, m.SaveEmployee(ctx, payroll.Employee{ID: "emp-1"}))
	emps, err := m.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, emps, 2)
	assert.Equal(t, "emp-1", emps[0].ID)

	done, _ := m.IsRunComplete(ctx, june)
	assert.False(t, done)
	require.NoError(t, m.SaveRun(ctx, payroll.RunRecord{ID: "r1", PayPeriod: june.Next()}))
	require.NoError(t, m.SaveRun(ctx, payroll.RunRecord{ID: "r2", PayPeriod: june}))
	done, _ = m.IsRunComplete(ctx, june)
	assert.True(t, done)

	runs, _ := m.ListRuns(ctx, 1)
	require.Len(t, runs, 1)
	assert.Equal(t, "r2", runs[0].ID)
}
