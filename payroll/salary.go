package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// GROSS SALARY - Probation pro-ration
// =============================================================================

// ProRatedSalary resolves the period's gross salary from the probation state.
//
// The probation pass date is the first day paid at the position rate, so a
// pass on the 16th of a 31-day month pays 15 probation days and 16 position
// days. A pass date on or before the first of the month pays the full base
// salary; after the last day, the full probation salary.
func ProRatedSalary(employment *EmploymentProfile, period PayPeriod) (SalaryBreakdown, error) {
	dim := period.DaysInMonth()
	base := employment.BaseSalary

	pass := employment.ProbationPassDate
	if pass == nil || !dateOnly(*pass).After(period.Start()) {
		return SalaryBreakdown{
			Method:             SalaryPositionRate,
			DaysInMonth:        dim,
			PositionDays:       dim,
			ProbationDailyRate: decimal.Zero,
			PositionDailyRate:  round2(base.Div(decimal.NewFromInt(int64(dim)))),
			ProbationAmount:    decimal.Zero,
			PositionAmount:     base,
			GrossSalary:        base,
		}, nil
	}

	if employment.ProbationSalary == nil {
		return SalaryBreakdown{}, &InputError{
			Field:  "employment.probation_salary",
			Reason: "required while probation is not yet passed in " + period.String(),
		}
	}
	probation := *employment.ProbationSalary

	if dateOnly(*pass).After(period.End()) {
		return SalaryBreakdown{
			Method:             SalaryProbationRate,
			DaysInMonth:        dim,
			ProbationDays:      dim,
			ProbationDailyRate: round2(probation.Div(decimal.NewFromInt(int64(dim)))),
			PositionDailyRate:  decimal.Zero,
			ProbationAmount:    probation,
			PositionAmount:     decimal.Zero,
			GrossSalary:        probation,
		}, nil
	}

	return splitAtPass(probation, base, *pass, dim), nil
}

func splitAtPass(probation, base decimal.Decimal, pass time.Time, dim int) SalaryBreakdown {
	days := decimal.NewFromInt(int64(dim))
	probationDays := pass.Day() - 1
	positionDays := dim - probationDays

	probationPortion := probation.Div(days).Mul(decimal.NewFromInt(int64(probationDays)))
	positionPortion := base.Div(days).Mul(decimal.NewFromInt(int64(positionDays)))

	return SalaryBreakdown{
		Method:             SalaryProrated,
		DaysInMonth:        dim,
		ProbationDays:      probationDays,
		PositionDays:       positionDays,
		ProbationDailyRate: round2(probation.Div(days)),
		PositionDailyRate:  round2(base.Div(days)),
		ProbationAmount:    round2(probationPortion),
		PositionAmount:     round2(positionPortion),
		GrossSalary:        round2(probationPortion.Add(positionPortion)),
	}
}

// =============================================================================
// ANNUAL INCREASE
// =============================================================================

// AnnualIncrease computes the increase on top of base salary.
//
// In the first year of service the increase is pro-rated by remaining months
// and paid only from six months on. From the first full year it is the base
// rate capped by the position tier.
func AnnualIncrease(base decimal.Decimal, sp ServicePeriod, eligible bool, title string, caps PositionCapTable, rate decimal.Decimal) decimal.Decimal {
	if !eligible {
		return decimal.Zero
	}
	if sp.FullYears < 1 {
		if sp.RemainingMonths < minEligibleMonths {
			return decimal.Zero
		}
		months := decimal.NewFromInt(int64(sp.RemainingMonths))
		return round2(base.Mul(rate).Mul(months).Div(decimal.NewFromInt(12)))
	}
	return decimal.Min(round2(base.Mul(rate)), caps.CapFor(title))
}

// =============================================================================
// COMPENSATION REFUND AND 13TH MONTH
// =============================================================================

// CompensationRefund is the negative adjustment for starting after the first
// day of the pay period: the unworked days of a full-month salary.
func CompensationRefund(start time.Time, period PayPeriod, monthly decimal.Decimal) decimal.Decimal {
	if !period.Contains(start) || start.Day() <= 1 {
		return decimal.Zero
	}
	dim := period.DaysInMonth()
	worked := dim - start.Day() + 1
	prorated := monthly.Div(decimal.NewFromInt(int64(dim))).Mul(decimal.NewFromInt(int64(worked)))
	return round2(prorated.Sub(monthly))
}

// ThirteenthMonthSalary accrues one twelfth of the monthly salary per period.
func ThirteenthMonthSalary(monthly decimal.Decimal, eligible bool) decimal.Decimal {
	if !eligible {
		return decimal.Zero
	}
	return round2(monthly.Div(decimal.NewFromInt(12)))
}
