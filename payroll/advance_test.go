package payroll_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

func smruEmployee(allocs ...payroll.FundingAllocation) payroll.Employee {
	return payroll.Employee{
		ID:               "emp-1",
		HomeOrganization: "SMRU",
		Employment:       employment(date(2025, time.March, 1), "50000"),
		TaxProfile:       singleThai(),
		Allocations:      allocs,
	}
}

func TestResolveInterOrganizationAdvance_GrantFromOtherOrganization(t *testing.T) {
	// GIVEN: An SMRU employee charged to a BHF grant
	alloc := grant("a1", "1", "BHF")
	emp := smruEmployee(alloc)
	june := period(2025, time.June)
	calc, err := newEngine(t).CalculateAllocationPayroll(emp.Employment, alloc, june, emp.TaxProfile, 2025)
	require.NoError(t, err)

	// WHEN: The advance is resolved
	adv, err := payroll.ResolveInterOrganizationAdvance(emp, alloc, calc, june)
	require.NoError(t, err)

	// THEN: BHF advances the net salary to SMRU
	require.NotNil(t, adv)
	assert.Equal(t, "BHF", adv.FromOrganization)
	assert.Equal(t, "SMRU", adv.ToOrganization)
	assert.Equal(t, "GR-a1", adv.ViaGrantRef)
	assert.Equal(t, june, adv.PayPeriod)
	assert.True(t, adv.Amount.Equal(calc.NetSalary))
}

func TestResolveInterOrganizationAdvance_NoAdvanceCases(t *testing.T) {
	june := period(2025, time.June)
	e := newEngine(t)

	tests := []struct {
		name  string
		alloc payroll.FundingAllocation
	}{
		{"organization allocation from another org", orgAllocation("a1", "1", "BHF")},
		{"grant held by home organization", grant("a1", "1", "SMRU")},
		{"home organization differs only in case", grant("a1", "1", " smru ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emp := smruEmployee(tt.alloc)
			calc, err := e.CalculateAllocationPayroll(emp.Employment, tt.alloc, june, emp.TaxProfile, 2025)
			require.NoError(t, err)

			adv, err := payroll.ResolveInterOrganizationAdvance(emp, tt.alloc, calc, june)
			require.NoError(t, err)
			assert.Nil(t, adv)
		})
	}
}

func TestResolveInterOrganizationAdvance_MismatchedResult(t *testing.T) {
	emp := smruEmployee()
	_, err := payroll.ResolveInterOrganizationAdvance(emp, grant("a1", "1", "BHF"),
		payroll.AllocationCalculation{AllocationID: "a2"}, period(2025, time.June))
	assert.ErrorIs(t, err, payroll.ErrInput)
}

func TestPreviewInterOrganizationAdvances(t *testing.T) {
	// GIVEN: 0.6 on a BHF grant, 0.4 on SMRU core funding
	emp := smruEmployee(grant("a1", "0.6", "BHF"), orgAllocation("a2", "0.4", "SMRU"))

	// WHEN: Previewing before any payroll exists
	previews, err := newEngine(t).PreviewInterOrganizationAdvances(emp, period(2025, time.June))
	require.NoError(t, err)

	// THEN: Only the BHF grant needs an advance, estimated from FTE
	require.Len(t, previews, 1)
	p := previews[0]
	assert.Equal(t, "a1", p.AllocationID)
	assert.Equal(t, "BHF", p.FromOrganization)
	assert.Equal(t, "SMRU", p.ToOrganization)
	assertDec(t, "50000", p.AdjustedGrossSalary, "adjusted")
	assertDec(t, "30000", p.EstimatedAmount, "estimate")
}

func TestPreviewInterOrganizationAdvances_NoEmployment(t *testing.T) {
	emp := smruEmployee(grant("a1", "1", "BHF"))
	emp.Employment = nil
	_, err := newEngine(t).PreviewInterOrganizationAdvances(emp, period(2025, time.June))
	assert.ErrorIs(t, err, payroll.ErrInput)
}
