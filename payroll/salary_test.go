package payroll_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func period(y int, m time.Month) payroll.PayPeriod {
	return payroll.PayPeriod{Year: y, Month: m}
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrDec(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "%s: want %s, got %s", msg, want, got)
}

// =============================================================================
// PRO-RATED SALARY
// =============================================================================

func TestProRatedSalary_NoProbationDate_AlwaysBase(t *testing.T) {
	emp := &payroll.EmploymentProfile{StartDate: date(2020, time.May, 4), BaseSalary: dec("50000")}

	for _, p := range []payroll.PayPeriod{
		period(2024, time.February), period(2025, time.January), period(2025, time.June), period(2027, time.December),
	} {
		b, err := payroll.ProRatedSalary(emp, p)
		require.NoError(t, err)
		assert.Equal(t, payroll.SalaryPositionRate, b.Method)
		assertDec(t, "50000", b.GrossSalary, p.String())
	}
}

func TestProRatedSalary_PassOnLastDay_OnePositionDay(t *testing.T) {
	// GIVEN: Probation passes on January 31st
	emp := &payroll.EmploymentProfile{
		StartDate:         date(2024, time.November, 1),
		ProbationPassDate: ptrTime(date(2025, time.January, 31)),
		ProbationSalary:   ptrDec("40000"),
		BaseSalary:        dec("50000"),
	}

	// WHEN: January is computed
	b, err := payroll.ProRatedSalary(emp, period(2025, time.January))
	require.NoError(t, err)

	// THEN: 30 probation days and 1 position day
	assert.Equal(t, payroll.SalaryProrated, b.Method)
	assert.Equal(t, 31, b.DaysInMonth)
	assert.Equal(t, 30, b.ProbationDays)
	assert.Equal(t, 1, b.PositionDays)
	assertDec(t, "40322.58", b.GrossSalary, "gross")
}

func TestProRatedSalary_PassMidMonth_SplitsDays(t *testing.T) {
	emp := &payroll.EmploymentProfile{
		StartDate:         date(2025, time.March, 16),
		ProbationPassDate: ptrTime(date(2025, time.June, 16)),
		ProbationSalary:   ptrDec("40000"),
		BaseSalary:        dec("50000"),
	}

	b, err := payroll.ProRatedSalary(emp, period(2025, time.June))
	require.NoError(t, err)

	assert.Equal(t, 15, b.ProbationDays)
	assert.Equal(t, 15, b.PositionDays)
	assertDec(t, "20000", b.ProbationAmount, "probation portion")
	assertDec(t, "25000", b.PositionAmount, "position portion")
	assertDec(t, "45000", b.GrossSalary, "gross")
}

func TestProRatedSalary_PassAfterPeriod_ProbationRate(t *testing.T) {
	emp := &payroll.EmploymentProfile{
		StartDate:         date(2025, time.May, 1),
		ProbationPassDate: ptrTime(date(2025, time.August, 1)),
		ProbationSalary:   ptrDec("40000"),
		BaseSalary:        dec("50000"),
	}

	b, err := payroll.ProRatedSalary(emp, period(2025, time.June))
	require.NoError(t, err)
	assert.Equal(t, payroll.SalaryProbationRate, b.Method)
	assertDec(t, "40000", b.GrossSalary, "gross")

	// After passing, the base rate applies
	b, err = payroll.ProRatedSalary(emp, period(2025, time.September))
	require.NoError(t, err)
	assert.Equal(t, payroll.SalaryPositionRate, b.Method)
	assertDec(t, "50000", b.GrossSalary, "gross after pass")
}

func TestProRatedSalary_MissingProbationSalary_InputError(t *testing.T) {
	emp := &payroll.EmploymentProfile{
		StartDate:         date(2025, time.May, 1),
		ProbationPassDate: ptrTime(date(2025, time.August, 1)),
		BaseSalary:        dec("50000"),
	}

	_, err := payroll.ProRatedSalary(emp, period(2025, time.June))
	assert.ErrorIs(t, err, payroll.ErrInput)
}

// =============================================================================
// ANNUAL INCREASE
// =============================================================================

func TestAnnualIncrease(t *testing.T) {
	caps := payroll.DefaultPositionCaps()
	rate := dec("0.01")

	tests := []struct {
		name     string
		base     string
		sp       payroll.ServicePeriod
		eligible bool
		title    string
		want     string
	}{
		{"not eligible", "50000", payroll.ServicePeriod{TotalMonths: 30, FullYears: 2, RemainingMonths: 6}, false, "Officer", "0"},
		{"first year pro-rated", "50000", payroll.ServicePeriod{TotalMonths: 8, RemainingMonths: 8}, true, "Officer", "333.33"},
		{"first year under six months", "50000", payroll.ServicePeriod{TotalMonths: 5, RemainingMonths: 5}, true, "Officer", "0"},
		{"full year under cap", "50000", payroll.ServicePeriod{TotalMonths: 24, FullYears: 2}, true, "Officer", "500"},
		{"senior capped", "1000000", payroll.ServicePeriod{TotalMonths: 24, FullYears: 2}, true, "Senior Engineer", "8000"},
		{"lead capped", "1000000", payroll.ServicePeriod{TotalMonths: 24, FullYears: 2}, true, "Team LEAD", "8000"},
		{"manager capped", "2000000", payroll.ServicePeriod{TotalMonths: 14, FullYears: 1, RemainingMonths: 2}, true, "Project Manager", "15000"},
		{"intern capped", "500000", payroll.ServicePeriod{TotalMonths: 12, FullYears: 1}, true, "Research Intern", "3000"},
		{"default cap", "1000000", payroll.ServicePeriod{TotalMonths: 12, FullYears: 1}, true, "Coordinator", "5000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := payroll.AnnualIncrease(dec(tt.base), tt.sp, tt.eligible, tt.title, caps, rate)
			assertDec(t, tt.want, got, tt.name)
		})
	}
}

func TestPositionCaps_FirstMatchWins(t *testing.T) {
	caps := payroll.DefaultPositionCaps()
	// "senior" precedes "manager" in the table
	assertDec(t, "8000", caps.CapFor("Senior Program Manager"), "senior manager")
	assertDec(t, "15000", caps.CapFor("Finance Director"), "director")
	assertDec(t, "5000", caps.CapFor(""), "empty title")
}

// =============================================================================
// COMPENSATION REFUND AND 13TH MONTH
// =============================================================================

func TestCompensationRefund(t *testing.T) {
	june := period(2025, time.June) // 30 days

	tests := []struct {
		name  string
		start time.Time
		want  string
	}{
		{"starts on the 10th works 21 days", date(2025, time.June, 10), "-9000"},
		{"starts on the 11th works 20 days", date(2025, time.June, 11), "-10000"},
		{"starts on the last day", date(2025, time.June, 30), "-29000"},
		{"starts on the first", date(2025, time.June, 1), "0"},
		{"started in an earlier month", date(2024, time.June, 10), "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDec(t, tt.want, payroll.CompensationRefund(tt.start, june, dec("30000")), tt.name)
		})
	}
}

func TestThirteenthMonthSalary(t *testing.T) {
	assertDec(t, "2083.33", payroll.ThirteenthMonthSalary(dec("25000"), true), "eligible")
	assertDec(t, "0", payroll.ThirteenthMonthSalary(dec("25000"), false), "ineligible")
}

// =============================================================================
// CONTRIBUTIONS
// =============================================================================

func TestSocialSecurity_NeverExceedsCap(t *testing.T) {
	rates := payroll.DefaultRates()

	for _, salary := range []string{"0", "14999.99", "15000", "25000", "1000000"} {
		ss := rates.SocialSecurity(dec(salary))
		assert.False(t, ss.Employee.GreaterThan(dec("750")), "employee at %s", salary)
		assert.False(t, ss.Employer.GreaterThan(dec("750")), "employer at %s", salary)
	}
	assertDec(t, "750", rates.SocialSecurity(dec("1000000")).Employee, "capped")
	assertDec(t, "500", rates.SocialSecurity(dec("10000")).Employee, "uncapped")
}

func TestProvidentFund_SavingFundOnlyWithoutID(t *testing.T) {
	rates := payroll.DefaultRates()

	thai := rates.ProvidentFund(dec("25000"), "thai")
	assertDec(t, "750", thai.Employee, "employee")
	assertDec(t, "750", thai.Employer, "employer")
	assertDec(t, "0", thai.SavingFund, "saving fund")

	noID := rates.ProvidentFund(dec("25000"), "non_thai_no_id")
	assertDec(t, "375", noID.SavingFund, "saving fund")
}

func TestHealthWelfare_ZeroUnlessEnabled(t *testing.T) {
	rates := payroll.DefaultRates()
	rates.HealthWelfareEmployee = dec("0.01")
	rates.HealthWelfareEmployer = dec("0.02")

	off := rates.HealthWelfare(false, dec("30000"))
	assertDec(t, "0", off.Employee, "disabled")

	on := rates.HealthWelfare(true, dec("30000"))
	assertDec(t, "300", on.Employee, "employee")
	assertDec(t, "600", on.Employer, "employer")
}
