package payroll

import "github.com/shopspring/decimal"

// Summarize sums every numeric field across calcs. An empty list is an
// InputError, never a zero summary.
func Summarize(calcs []AllocationCalculation) (PayrollSummary, error) {
	if len(calcs) == 0 {
		return PayrollSummary{}, &InputError{Field: "allocations", Reason: "cannot summarize an empty allocation list"}
	}

	s := PayrollSummary{AllocationCount: len(calcs)}
	fields := s.fields()
	for i := range fields {
		*fields[i] = decimal.Zero
	}
	for _, c := range calcs {
		values := c.amounts()
		for i := range fields {
			*fields[i] = fields[i].Add(values[i])
		}
	}
	return s, nil
}

// fields and amounts must list the same columns in the same order.
func (s *PayrollSummary) fields() []*decimal.Decimal {
	return []*decimal.Decimal{
		&s.GrossSalary, &s.AnnualIncrease, &s.AdjustedGrossSalary, &s.GrossSalaryByFTE,
		&s.CompensationRefund, &s.ThirteenthMonthSalary,
		&s.PVDEmployee, &s.PVDEmployer, &s.SavingFund,
		&s.SocialSecurityEmployee, &s.SocialSecurityEmployer,
		&s.HealthWelfareEmployee, &s.HealthWelfareEmployer, &s.IncomeTax,
		&s.TotalIncome, &s.TotalDeduction, &s.NetSalary, &s.EmployerContribution,
	}
}

func (c AllocationCalculation) amounts() []decimal.Decimal {
	return []decimal.Decimal{
		c.GrossSalary, c.AnnualIncrease, c.AdjustedGrossSalary, c.GrossSalaryByFTE,
		c.CompensationRefund, c.ThirteenthMonthSalary,
		c.PVDEmployee, c.PVDEmployer, c.SavingFund,
		c.SocialSecurityEmployee, c.SocialSecurityEmployer,
		c.HealthWelfareEmployee, c.HealthWelfareEmployer, c.IncomeTax,
		c.TotalIncome, c.TotalDeduction, c.NetSalary, c.EmployerContribution,
	}
}
