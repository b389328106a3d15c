package payroll_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
	"go.uber.org/zap"
)

func newRunner(t *testing.T) (*payroll.Runner, *store.TxMemory) {
	t.Helper()
	mem := store.NewTxMemory()
	r := payroll.NewRunner(newEngine(t), mem, zap.NewNop())
	r.Now = func() time.Time { return date(2025, time.June, 30) }
	var n atomic.Int64
	r.NewID = func() string { return fmt.Sprintf("id-%d", n.Add(1)) }
	return r, mem
}

func TestRunEmployee_PersistsPayrollsAndAdvances(t *testing.T) {
	ctx := context.Background()
	r, mem := newRunner(t)
	emp := smruEmployee(grant("a1", "0.6", "BHF"), orgAllocation("a2", "0.4", "SMRU"))
	june := period(2025, time.June)

	res, err := r.RunEmployee(ctx, "hr-admin", emp, june, 2025)
	require.NoError(t, err)
	require.Len(t, res.Payrolls, 2)
	require.Len(t, res.Advances, 1)
	assert.Equal(t, res.Payrolls[0].ID, res.Advances[0].PayrollID)

	stored, err := mem.ListPayrolls(ctx, "emp-1", june)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "hr-admin", stored[0].CreatedBy)

	advances, err := mem.ListAdvances(ctx, june)
	require.NoError(t, err)
	require.Len(t, advances, 1)
	assert.Equal(t, "BHF", advances[0].Advance.FromOrganization)
}

func TestRunEmployee_SecondRunRejected(t *testing.T) {
	ctx := context.Background()
	r, mem := newRunner(t)
	emp := smruEmployee(grant("a1", "1", "BHF"))
	june := period(2025, time.June)

	_, err := r.RunEmployee(ctx, "hr-admin", emp, june, 2025)
	require.NoError(t, err)

	_, err = r.RunEmployee(ctx, "hr-admin", emp, june, 2025)
	assert.ErrorIs(t, err, payroll.ErrDuplicatePayroll)

	advances, _ := mem.ListAdvances(ctx, june)
	assert.Len(t, advances, 1, "rolled back run wrote no advance")
}

func TestRunEmployee_PartialFailureRollsBack(t *testing.T) {
	// GIVEN: Allocation a2 already has a payroll for June
	ctx := context.Background()
	r, mem := newRunner(t)
	june := period(2025, time.June)
	require.NoError(t, mem.SavePayroll(ctx, payroll.PayrollRecord{
		ID: "existing", EmployeeID: "emp-1", AllocationID: "a2", PayPeriod: june, CreatedBy: "hr-admin",
	}))

	// WHEN: Both allocations are run
	emp := smruEmployee(grant("a1", "0.5", "BHF"), grant("a2", "0.5", "BHF"))
	_, err := r.RunEmployee(ctx, "hr-admin", emp, june, 2025)

	// THEN: a1 is not left behind
	require.ErrorIs(t, err, payroll.ErrDuplicatePayroll)
	stored, err := mem.ListPayrolls(ctx, "emp-1", june)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "existing", stored[0].ID)

	advances, _ := mem.ListAdvances(ctx, june)
	assert.Empty(t, advances)
}

func TestRunEmployee_LastDayHireOnCrossOrgGrant(t *testing.T) {
	// GIVEN: A hire on the last day of June, so the refund outweighs one day's pay
	ctx := context.Background()
	r, mem := newRunner(t)
	june := period(2025, time.June)
	emp := smruEmployee(grant("a1", "1", "BHF"))
	emp.Employment = employment(date(2025, time.June, 30), "30000")

	// WHEN
	res, err := r.RunEmployee(ctx, "hr-admin", emp, june, 2025)

	// THEN: The payroll is stored and the advance carries the negative net
	require.NoError(t, err)
	require.Len(t, res.Payrolls, 1)
	net := res.Payrolls[0].Calculation.NetSalary
	assertDec(t, "-775.83", net, "net salary")

	advances, err := mem.ListAdvances(ctx, june)
	require.NoError(t, err)
	require.Len(t, advances, 1)
	assert.True(t, advances[0].Advance.Amount.Equal(net))
	assert.Equal(t, "BHF", advances[0].Advance.FromOrganization)
	assert.Equal(t, "SMRU", advances[0].Advance.ToOrganization)

	// AND: The same hire on an organization allocation is stored alike, with no advance
	other := smruEmployee(orgAllocation("a1", "1", "SMRU"))
	other.ID = "emp-2"
	other.Employment = employment(date(2025, time.June, 30), "30000")
	res, err = r.RunEmployee(ctx, "hr-admin", other, june, 2025)
	require.NoError(t, err)
	assertDec(t, "-775.83", res.Payrolls[0].Calculation.NetSalary, "org net salary")
	assert.Empty(t, res.Advances)
}

func TestRunEmployee_RequiresActor(t *testing.T) {
	r, _ := newRunner(t)
	_, err := r.RunEmployee(context.Background(), " ", smruEmployee(grant("a1", "1", "BHF")), period(2025, time.June), 2025)
	assert.ErrorIs(t, err, payroll.ErrInput)
}

func TestRunBulk_IsolatesFailures(t *testing.T) {
	ctx := context.Background()
	r, _ := newRunner(t)
	r.Workers = 2

	good1 := smruEmployee(grant("a1", "1", "BHF"))
	good1.ID = "emp-1"
	broken := smruEmployee(grant("a1", "1", "BHF"))
	broken.ID = "emp-2"
	broken.Employment = nil
	good2 := smruEmployee(orgAllocation("a1", "1", "SMRU"))
	good2.ID = "emp-3"

	res, err := r.RunBulk(ctx, "system", []payroll.Employee{good1, broken, good2}, period(2025, time.June), 2025)
	require.NoError(t, err)

	require.Len(t, res.Succeeded, 2)
	assert.Equal(t, "emp-1", res.Succeeded[0].Payroll.EmployeeID)
	assert.Equal(t, "emp-3", res.Succeeded[1].Payroll.EmployeeID)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, "emp-2", res.Failed[0].EmployeeID)
	assert.ErrorIs(t, res.Failed[0], payroll.ErrInput)
	assert.Len(t, res.FailureMessages(), 1)
}

func TestRunBulk_CancelledContext(t *testing.T) {
	// GIVEN: A context cancelled before the run starts
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, mem := newRunner(t)
	r.Workers = 1

	first := smruEmployee(grant("a1", "1", "BHF"))
	second := smruEmployee(grant("a1", "1", "BHF"))
	second.ID = "emp-2"
	june := period(2025, time.June)

	// WHEN
	res, err := r.RunBulk(ctx, "system", []payroll.Employee{first, second}, june, 2025)

	// THEN: The cancellation is returned and every employee is reported
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Succeeded)
	require.Len(t, res.Failed, 2)
	assert.ErrorIs(t, res.Failed[1], context.Canceled)

	stored, err := mem.ListPayrolls(context.Background(), "emp-1", june)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRunner_PreviewWritesNothing(t *testing.T) {
	ctx := context.Background()
	r, mem := newRunner(t)
	emp := smruEmployee(grant("a1", "1", "BHF"))
	june := period(2025, time.June)

	preview, err := r.Preview(emp, june, 2025)
	require.NoError(t, err)
	require.Len(t, preview.Calculations, 1)
	assert.Equal(t, "emp-1", preview.EmployeeID)

	stored, err := mem.ListPayrolls(ctx, "emp-1", june)
	require.NoError(t, err)
	assert.Empty(t, stored)
}
