package payroll

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/tax"
)

// =============================================================================
// ENGINE - Stateless orchestrator over injected configuration
// =============================================================================

// Engine runs the per-allocation pipeline. It holds only immutable
// configuration and is safe to share between goroutines without locking.
type Engine struct {
	cfg Config
	tax *tax.Calculator
}

// NewEngine validates cfg and builds an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	calc, err := tax.NewCalculator(cfg.TaxTables)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}
	return &Engine{cfg: cfg, tax: calc}, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// CalculateAllocationPayroll computes one AllocationCalculation. Every
// monetary value is rounded to 2 places where it is computed.
func (e *Engine) CalculateAllocationPayroll(
	employment *EmploymentProfile,
	allocation FundingAllocation,
	period PayPeriod,
	profile tax.Profile,
	taxYear int,
) (AllocationCalculation, error) {
	if err := validateInputs(employment, allocation, period); err != nil {
		return AllocationCalculation{}, err
	}

	reference := period.End()
	sp := CalculateServicePeriod(employment.StartDate, reference)

	// 1. Gross salary
	breakdown, err := ProRatedSalary(employment, period)
	if err != nil {
		return AllocationCalculation{}, err
	}
	salary := breakdown.GrossSalary

	// 2. Annual increase
	increaseEligible := EligibleForAnnualIncrease(sp, employment.ProbationPassDate, reference)
	increase := AnnualIncrease(employment.BaseSalary, sp, increaseEligible,
		employment.PositionTitle, e.cfg.PositionCaps, e.cfg.Rates.AnnualIncrease)
	adjusted := round2(salary.Add(increase))

	// 3. FTE share
	byFTE := round2(adjusted.Mul(allocation.FTE))

	// 4-5. Adjustments
	compensation := CompensationRefund(employment.StartDate, period, byFTE)
	thirteenth := ThirteenthMonthSalary(byFTE,
		EligibleForThirteenthMonth(sp, employment.ProbationPassDate, reference))

	// 6. Contributions
	pvd := e.cfg.Rates.ProvidentFund(byFTE, profile.Residency)
	ss := e.cfg.Rates.SocialSecurity(byFTE)
	hw := e.cfg.Rates.HealthWelfare(employment.HealthWelfareEnabled, byFTE)

	// 7. Income tax
	taxResult, err := e.tax.Calculate(tax.Input{
		MonthlySalary:          byFTE,
		SocialSecurityEmployee: ss.Employee,
		ProvidentFundEmployee:  pvd.Employee,
		Profile:                profile,
		TaxYear:                taxYear,
	})
	if err != nil {
		return AllocationCalculation{}, translateTaxError(err, taxYear)
	}
	incomeTax := taxResult.MonthlyTaxAmount

	// 8-11. Totals
	totalIncome := byFTE.Add(compensation).Add(thirteenth)
	totalDeduction := pvd.Employee.Add(pvd.SavingFund).Add(ss.Employee).Add(hw.Employee).Add(incomeTax)
	employer := pvd.Employer.Add(ss.Employer).Add(hw.Employer)

	calc := AllocationCalculation{
		AllocationID: allocation.ID,
		PayPeriod:    period,
		TaxYear:      taxYear,
		FTE:          allocation.FTE,

		GrossSalary:           salary,
		AnnualIncrease:        increase,
		AdjustedGrossSalary:   adjusted,
		GrossSalaryByFTE:      byFTE,
		CompensationRefund:    compensation,
		ThirteenthMonthSalary: thirteenth,

		PVDEmployee:            pvd.Employee,
		PVDEmployer:            pvd.Employer,
		SavingFund:             pvd.SavingFund,
		SocialSecurityEmployee: ss.Employee,
		SocialSecurityEmployer: ss.Employer,
		HealthWelfareEmployee:  hw.Employee,
		HealthWelfareEmployer:  hw.Employer,
		IncomeTax:              incomeTax,

		TotalIncome:          totalIncome,
		TotalDeduction:       totalDeduction,
		NetSalary:            totalIncome.Sub(totalDeduction),
		EmployerContribution: employer,

		ServicePeriod:   sp,
		SalaryBreakdown: breakdown,
		Tax:             taxResult,
	}
	if err := checkInvariants(calc); err != nil {
		return AllocationCalculation{}, err
	}
	return calc, nil
}

// CalculateEmployeePayrollSummary runs every allocation and aggregates them.
// Any allocation failure fails the whole summary; nothing partial is returned.
func (e *Engine) CalculateEmployeePayrollSummary(
	employee Employee,
	allocations []FundingAllocation,
	period PayPeriod,
	taxYear int,
) (EmployeePayroll, error) {
	if employee.Employment == nil {
		return EmployeePayroll{}, &InputError{Field: "employment", Reason: "employee " + employee.ID + " has no employment record"}
	}
	if len(allocations) == 0 {
		return EmployeePayroll{}, &InputError{Field: "allocations", Reason: "employee " + employee.ID + " has no funding allocations"}
	}

	calcs := make([]AllocationCalculation, 0, len(allocations))
	for _, alloc := range allocations {
		calc, err := e.CalculateAllocationPayroll(employee.Employment, alloc, period, employee.TaxProfile, taxYear)
		if err != nil {
			return EmployeePayroll{}, &AllocationError{AllocationID: alloc.ID, Err: err}
		}
		calc.EmployeeID = employee.ID
		calcs = append(calcs, calc)
	}

	summary, err := Summarize(calcs)
	if err != nil {
		return EmployeePayroll{}, err
	}
	return EmployeePayroll{
		EmployeeID:   employee.ID,
		PayPeriod:    period,
		TaxYear:      taxYear,
		Calculations: calcs,
		Summary:      summary,
	}, nil
}

// =============================================================================
// GUARDS
// =============================================================================

func validateInputs(employment *EmploymentProfile, allocation FundingAllocation, period PayPeriod) error {
	if employment == nil {
		return &InputError{Field: "employment", Reason: "missing"}
	}
	if err := period.Validate(); err != nil {
		return err
	}
	if err := employment.Validate(); err != nil {
		return err
	}
	if err := allocation.Validate(); err != nil {
		return err
	}
	if dateOnly(employment.StartDate).After(period.End()) {
		return &InputError{
			Field:  "employment.start_date",
			Reason: fmt.Sprintf("%s is after pay period %s", employment.StartDate.Format("2006-01-02"), period),
		}
	}
	return nil
}

func translateTaxError(err error, taxYear int) error {
	switch {
	case errors.Is(err, tax.ErrTableNotFound), errors.Is(err, tax.ErrInvalidTable):
		return &ConfigurationError{TaxYear: taxYear, Err: err}
	case errors.Is(err, tax.ErrInvalidInput):
		var inErr *tax.InputError
		if errors.As(err, &inErr) {
			return &InputError{Field: "tax_profile." + inErr.Field, Reason: inErr.Reason, Err: err}
		}
		return &InputError{Field: "tax_profile", Reason: err.Error(), Err: err}
	default:
		return err
	}
}

// checkInvariants rejects results that no valid input can produce.
func checkInvariants(c AllocationCalculation) error {
	nonNegative := []struct {
		field string
		value decimal.Decimal
	}{
		{"pvd_employee", c.PVDEmployee},
		{"pvd_employer", c.PVDEmployer},
		{"saving_fund", c.SavingFund},
		{"social_security_employee", c.SocialSecurityEmployee},
		{"social_security_employer", c.SocialSecurityEmployer},
		{"health_welfare_employee", c.HealthWelfareEmployee},
		{"health_welfare_employer", c.HealthWelfareEmployer},
		{"income_tax", c.IncomeTax},
		{"annual_increase", c.AnnualIncrease},
		{"thirteen_month_salary", c.ThirteenthMonthSalary},
	}
	for _, nn := range nonNegative {
		if nn.value.IsNegative() {
			return &InvariantViolation{Field: nn.field, Value: nn.value.String(), Rule: "must not be negative"}
		}
	}
	if c.CompensationRefund.IsPositive() {
		return &InvariantViolation{Field: "compensation_refund", Value: c.CompensationRefund.String(), Rule: "must not be positive"}
	}
	if !c.NetSalary.Equal(c.TotalIncome.Sub(c.TotalDeduction)) {
		return &InvariantViolation{Field: "net_salary", Value: c.NetSalary.String(), Rule: "must equal total_income - total_deduction"}
	}
	return nil
}
