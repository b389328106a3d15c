package payroll_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/tax"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newEngine(t *testing.T) *payroll.Engine {
	t.Helper()
	e, err := payroll.NewEngine(payroll.DefaultConfig(2025))
	require.NoError(t, err)
	return e
}

func singleThai() tax.Profile {
	return tax.Profile{Residency: tax.ResidencyThai, MonthsWorkingThisYear: 12}
}

func employment(start time.Time, base string) *payroll.EmploymentProfile {
	return &payroll.EmploymentProfile{
		StartDate:     start,
		BaseSalary:    dec(base),
		PositionTitle: "Research Officer",
	}
}

func grant(id, fte, funder string) payroll.FundingAllocation {
	return payroll.FundingAllocation{
		ID:                  id,
		FTE:                 dec(fte),
		Type:                payroll.AllocationGrant,
		FundingOrganization: funder,
		FundingSourceName:   "GR-" + id,
	}
}

func orgAllocation(id, fte, org string) payroll.FundingAllocation {
	return payroll.FundingAllocation{
		ID:                  id,
		FTE:                 dec(fte),
		Type:                payroll.AllocationOrganization,
		FundingOrganization: org,
	}
}

func assertNetIdentity(t *testing.T, c payroll.AllocationCalculation) {
	t.Helper()
	assert.True(t, c.NetSalary.Equal(c.TotalIncome.Sub(c.TotalDeduction)),
		"net %s != income %s - deduction %s", c.NetSalary, c.TotalIncome, c.TotalDeduction)
}

// =============================================================================
// ALLOCATION PAYROLL
// =============================================================================

func TestCalculateAllocationPayroll_HalfFTE_ThreeMonths(t *testing.T) {
	// GIVEN: 50,000 base at 0.5 FTE, three months of service
	emp := employment(date(2025, time.March, 1), "50000")

	// WHEN: June is calculated
	c, err := newEngine(t).CalculateAllocationPayroll(emp, grant("a1", "0.5", "SMRU"), period(2025, time.June), singleThai(), 2025)
	require.NoError(t, err)

	// THEN: No increase, no 13th month, SS capped at 750
	assert.Equal(t, 3, c.ServicePeriod.TotalMonths)
	assertDec(t, "50000", c.GrossSalary, "gross")
	assertDec(t, "25000.00", c.GrossSalaryByFTE, "salary by fte")
	assertDec(t, "0", c.AnnualIncrease, "annual increase")
	assertDec(t, "0", c.ThirteenthMonthSalary, "13th month")
	assertDec(t, "0", c.CompensationRefund, "compensation")
	assertDec(t, "750.00", c.PVDEmployee, "pvd employee")
	assertDec(t, "750.00", c.SocialSecurityEmployee, "ss employee")
	assertDec(t, "0", c.IncomeTax, "income tax")
	assertDec(t, "25000", c.TotalIncome, "total income")
	assertDec(t, "1500", c.TotalDeduction, "total deduction")
	assertDec(t, "23500", c.NetSalary, "net")
	assertDec(t, "1500", c.EmployerContribution, "employer contribution")
	assertNetIdentity(t, c)
}

func TestCalculateAllocationPayroll_EligibleForIncreaseAndThirteenth(t *testing.T) {
	// GIVEN: 17 months of service, no probation record
	emp := employment(date(2024, time.January, 1), "50000")

	c, err := newEngine(t).CalculateAllocationPayroll(emp, orgAllocation("a1", "1", "SMRU"), period(2025, time.June), singleThai(), 2025)
	require.NoError(t, err)

	assert.Equal(t, 1, c.ServicePeriod.FullYears)
	assertDec(t, "500", c.AnnualIncrease, "1% of base")
	assertDec(t, "50500", c.AdjustedGrossSalary, "adjusted")
	assertDec(t, "4208.33", c.ThirteenthMonthSalary, "13th month")
	assertDec(t, "1515", c.PVDEmployee, "pvd")
	assertDec(t, "750", c.SocialSecurityEmployee, "ss")
	assertDec(t, "1615.17", c.IncomeTax, "tax")
	assertDec(t, "54708.33", c.TotalIncome, "total income")
	assertDec(t, "3880.17", c.TotalDeduction, "total deduction")
	assertDec(t, "50828.16", c.NetSalary, "net")
	assertNetIdentity(t, c)
}

func TestCalculateAllocationPayroll_FirstYearIncreaseProRated(t *testing.T) {
	emp := employment(date(2024, time.October, 1), "50000")

	c, err := newEngine(t).CalculateAllocationPayroll(emp, orgAllocation("a1", "1", "SMRU"), period(2025, time.June), singleThai(), 2025)
	require.NoError(t, err)

	assert.Equal(t, 8, c.ServicePeriod.RemainingMonths)
	assertDec(t, "333.33", c.AnnualIncrease, "8/12 of 1%")
	assertDec(t, "50333.33", c.AdjustedGrossSalary, "adjusted")
}

func TestCalculateAllocationPayroll_ProbationNotPassed_NoIncrease(t *testing.T) {
	// GIVEN: Eight months in but probation extended until July
	emp := employment(date(2024, time.October, 1), "50000")
	emp.ProbationPassDate = ptrTime(date(2025, time.July, 1))
	emp.ProbationSalary = ptrDec("40000")

	c, err := newEngine(t).CalculateAllocationPayroll(emp, orgAllocation("a1", "1", "SMRU"), period(2025, time.June), singleThai(), 2025)
	require.NoError(t, err)

	assertDec(t, "40000", c.GrossSalary, "probation salary")
	assertDec(t, "0", c.AnnualIncrease, "increase")
	assertDec(t, "0", c.ThirteenthMonthSalary, "13th month")
}

func TestCalculateAllocationPayroll_MidMonthStart_CompensationOnFTESalary(t *testing.T) {
	emp := employment(date(2025, time.June, 10), "30000")

	c, err := newEngine(t).CalculateAllocationPayroll(emp, orgAllocation("a1", "1", "SMRU"), period(2025, time.June), singleThai(), 2025)
	require.NoError(t, err)

	assertDec(t, "-9000", c.CompensationRefund, "21 of 30 days worked")
	assertDec(t, "21000", c.TotalIncome, "total income")
	assertNetIdentity(t, c)
}

func TestCalculateAllocationPayroll_SocialSecurityCappedAtOneMillion(t *testing.T) {
	emp := employment(date(2025, time.March, 1), "1000000")

	c, err := newEngine(t).CalculateAllocationPayroll(emp, orgAllocation("a1", "1", "SMRU"), period(2025, time.June), singleThai(), 2025)
	require.NoError(t, err)

	assertDec(t, "750", c.SocialSecurityEmployee, "employee")
	assertDec(t, "750", c.SocialSecurityEmployer, "employer")
	assert.True(t, c.IncomeTax.IsPositive())
	assertNetIdentity(t, c)
}

func TestCalculateAllocationPayroll_NonThaiWithoutID_PaysSavingFund(t *testing.T) {
	emp := employment(date(2025, time.March, 1), "25000")
	profile := tax.Profile{Residency: tax.ResidencyNonThaiNoID, MonthsWorkingThisYear: 12}

	c, err := newEngine(t).CalculateAllocationPayroll(emp, orgAllocation("a1", "1", "SMRU"), period(2025, time.June), profile, 2025)
	require.NoError(t, err)

	assertDec(t, "375", c.SavingFund, "saving fund")
	assertDec(t, "1875", c.TotalDeduction, "pvd + saving + ss")
	assertNetIdentity(t, c)
}

func TestCalculateAllocationPayroll_Errors(t *testing.T) {
	e := newEngine(t)
	june := period(2025, time.June)
	valid := employment(date(2025, time.March, 1), "50000")

	t.Run("missing employment", func(t *testing.T) {
		_, err := e.CalculateAllocationPayroll(nil, grant("a1", "1", "BHF"), june, singleThai(), 2025)
		assert.ErrorIs(t, err, payroll.ErrInput)
	})

	t.Run("fte out of range", func(t *testing.T) {
		for _, fte := range []string{"0", "-0.5", "1.01"} {
			_, err := e.CalculateAllocationPayroll(valid, grant("a1", fte, "BHF"), june, singleThai(), 2025)
			assert.ErrorIs(t, err, payroll.ErrInput, "fte %s", fte)
		}
	})

	t.Run("starts after the period", func(t *testing.T) {
		_, err := e.CalculateAllocationPayroll(employment(date(2025, time.July, 1), "50000"), grant("a1", "1", "BHF"), june, singleThai(), 2025)
		assert.ErrorIs(t, err, payroll.ErrInput)
	})

	t.Run("unknown tax year", func(t *testing.T) {
		_, err := e.CalculateAllocationPayroll(valid, grant("a1", "1", "BHF"), june, singleThai(), 1999)
		assert.ErrorIs(t, err, payroll.ErrConfiguration)
		assert.ErrorIs(t, err, tax.ErrTableNotFound)

		var cfgErr *payroll.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, 1999, cfgErr.TaxYear)
	})

	t.Run("malformed tax profile", func(t *testing.T) {
		_, err := e.CalculateAllocationPayroll(valid, grant("a1", "1", "BHF"), june, tax.Profile{Residency: tax.ResidencyThai}, 2025)
		assert.ErrorIs(t, err, payroll.ErrInput)
		assert.ErrorIs(t, err, tax.ErrInvalidInput)
	})
}

func TestNewEngine_RejectsBadConfig(t *testing.T) {
	cfg := payroll.DefaultConfig(2025)
	cfg.Rates.SocialSecurityRate = dec("1.5")
	_, err := payroll.NewEngine(cfg)
	assert.ErrorIs(t, err, payroll.ErrConfiguration)

	_, err = payroll.NewEngine(payroll.Config{})
	assert.ErrorIs(t, err, payroll.ErrConfiguration)
}

// =============================================================================
// EMPLOYEE SUMMARY
// =============================================================================

func TestCalculateEmployeePayrollSummary_SumsEveryField(t *testing.T) {
	emp := payroll.Employee{
		ID:               "emp-1",
		HomeOrganization: "SMRU",
		Employment:       employment(date(2024, time.January, 1), "50000"),
		TaxProfile:       singleThai(),
	}
	allocs := []payroll.FundingAllocation{grant("a1", "0.6", "BHF"), orgAllocation("a2", "0.4", "SMRU")}

	got, err := newEngine(t).CalculateEmployeePayrollSummary(emp, allocs, period(2025, time.June), 2025)
	require.NoError(t, err)
	require.Len(t, got.Calculations, 2)

	s := got.Summary
	assert.Equal(t, 2, s.AllocationCount)
	a, b := got.Calculations[0], got.Calculations[1]
	assert.Equal(t, "emp-1", a.EmployeeID)

	pairs := []struct {
		name      string
		sum, x, y string
	}{
		{"gross_salary_by_fte", s.GrossSalaryByFTE.String(), a.GrossSalaryByFTE.String(), b.GrossSalaryByFTE.String()},
		{"pvd_employee", s.PVDEmployee.String(), a.PVDEmployee.String(), b.PVDEmployee.String()},
		{"social_security_employee", s.SocialSecurityEmployee.String(), a.SocialSecurityEmployee.String(), b.SocialSecurityEmployee.String()},
		{"income_tax", s.IncomeTax.String(), a.IncomeTax.String(), b.IncomeTax.String()},
		{"thirteen_month_salary", s.ThirteenthMonthSalary.String(), a.ThirteenthMonthSalary.String(), b.ThirteenthMonthSalary.String()},
		{"total_income", s.TotalIncome.String(), a.TotalIncome.String(), b.TotalIncome.String()},
		{"total_deduction", s.TotalDeduction.String(), a.TotalDeduction.String(), b.TotalDeduction.String()},
		{"net_salary", s.NetSalary.String(), a.NetSalary.String(), b.NetSalary.String()},
		{"employer_contribution", s.EmployerContribution.String(), a.EmployerContribution.String(), b.EmployerContribution.String()},
	}
	for _, p := range pairs {
		assertDec(t, dec(p.x).Add(dec(p.y)).String(), dec(p.sum), p.name)
	}
	assertDec(t, "30300", a.GrossSalaryByFTE, "0.6 of 50500")
	assertDec(t, "20200", b.GrossSalaryByFTE, "0.4 of 50500")
	assertDec(t, "1500", s.SocialSecurityEmployee, "capped per allocation")
}

func TestCalculateEmployeePayrollSummary_InputErrors(t *testing.T) {
	e := newEngine(t)
	june := period(2025, time.June)

	_, err := e.CalculateEmployeePayrollSummary(payroll.Employee{ID: "emp-1", TaxProfile: singleThai()},
		[]payroll.FundingAllocation{grant("a1", "1", "BHF")}, june, 2025)
	assert.ErrorIs(t, err, payroll.ErrInput, "no employment")

	emp := payroll.Employee{ID: "emp-1", Employment: employment(date(2025, time.March, 1), "50000"), TaxProfile: singleThai()}
	_, err = e.CalculateEmployeePayrollSummary(emp, nil, june, 2025)
	assert.ErrorIs(t, err, payroll.ErrInput, "no allocations")

	_, err = e.CalculateEmployeePayrollSummary(emp, []payroll.FundingAllocation{grant("a1", "1", "BHF"), grant("a2", "2", "BHF")}, june, 2025)
	var allocErr *payroll.AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, "a2", allocErr.AllocationID)
}

func TestSummarize_Empty(t *testing.T) {
	_, err := payroll.Summarize(nil)
	assert.ErrorIs(t, err, payroll.ErrInput)
}
