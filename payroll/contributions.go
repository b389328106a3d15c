package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/tax"
)

// Rates are the statutory and fund contribution parameters.
type Rates struct {
	PVDEmployee        decimal.Decimal
	PVDEmployer        decimal.Decimal
	SavingFund         decimal.Decimal
	SocialSecurityRate decimal.Decimal
	SocialSecurityCap  decimal.Decimal

	HealthWelfareEmployee decimal.Decimal
	HealthWelfareEmployer decimal.Decimal

	// AnnualIncrease is the base increase rate applied to base salary.
	AnnualIncrease decimal.Decimal
}

// DefaultRates returns the current statutory rates.
func DefaultRates() Rates {
	return Rates{
		PVDEmployee:           decimal.RequireFromString("0.03"),
		PVDEmployer:           decimal.RequireFromString("0.03"),
		SavingFund:            decimal.RequireFromString("0.015"),
		SocialSecurityRate:    decimal.RequireFromString("0.05"),
		SocialSecurityCap:     decimal.NewFromInt(750),
		HealthWelfareEmployee: decimal.Zero,
		HealthWelfareEmployer: decimal.Zero,
		AnnualIncrease:        decimal.RequireFromString("0.01"),
	}
}

func (r Rates) Validate() error {
	one := decimal.NewFromInt(1)
	for name, v := range map[string]decimal.Decimal{
		"pvd_employee":            r.PVDEmployee,
		"pvd_employer":            r.PVDEmployer,
		"saving_fund":             r.SavingFund,
		"social_security":         r.SocialSecurityRate,
		"health_welfare_employee": r.HealthWelfareEmployee,
		"health_welfare_employer": r.HealthWelfareEmployer,
		"annual_increase":         r.AnnualIncrease,
	} {
		if v.IsNegative() || v.GreaterThan(one) {
			return fmt.Errorf("%w: rate %s = %s out of range [0, 1]", ErrConfiguration, name, v)
		}
	}
	if r.SocialSecurityCap.IsNegative() {
		return fmt.Errorf("%w: social security cap is negative", ErrConfiguration)
	}
	return nil
}

// =============================================================================
// CONTRIBUTION CALCULATORS
// =============================================================================

// PVDContribution is the provident fund (or saving fund) split.
type PVDContribution struct {
	Employee   decimal.Decimal
	Employer   decimal.Decimal
	SavingFund decimal.Decimal
}

// ProvidentFund computes PVD on the FTE-adjusted monthly salary. Non-Thai
// employees without an ID additionally pay into the saving fund.
func (r Rates) ProvidentFund(monthly decimal.Decimal, residency tax.Residency) PVDContribution {
	c := PVDContribution{
		Employee:   round2(monthly.Mul(r.PVDEmployee)),
		Employer:   round2(monthly.Mul(r.PVDEmployer)),
		SavingFund: decimal.Zero,
	}
	if residency == tax.ResidencyNonThaiNoID {
		c.SavingFund = round2(monthly.Mul(r.SavingFund))
	}
	return c
}

// SocialSecurityContribution is matched at the same rate and cap on each side.
type SocialSecurityContribution struct {
	Employee decimal.Decimal
	Employer decimal.Decimal
}

func (r Rates) SocialSecurity(monthly decimal.Decimal) SocialSecurityContribution {
	amount := decimal.Min(round2(monthly.Mul(r.SocialSecurityRate)), r.SocialSecurityCap)
	return SocialSecurityContribution{Employee: amount, Employer: amount}
}

// HealthWelfareContribution is zero unless the employee is enrolled.
type HealthWelfareContribution struct {
	Employee decimal.Decimal
	Employer decimal.Decimal
}

func (r Rates) HealthWelfare(enabled bool, monthly decimal.Decimal) HealthWelfareContribution {
	if !enabled {
		return HealthWelfareContribution{Employee: decimal.Zero, Employer: decimal.Zero}
	}
	return HealthWelfareContribution{
		Employee: round2(monthly.Mul(r.HealthWelfareEmployee)),
		Employer: round2(monthly.Mul(r.HealthWelfareEmployer)),
	}
}
