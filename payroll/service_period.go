package payroll

import "time"

// ServicePeriod is the tenure between employment start and a reference date.
type ServicePeriod struct {
	TotalMonths     int `json:"total_months"`
	FullYears       int `json:"full_years"`
	RemainingMonths int `json:"remaining_months"`
}

// CalculateServicePeriod counts whole calendar months from start to reference.
// A month is complete only once the reference day-of-month reaches the start
// day, so 2024-01-31 to 2024-02-29 is zero months. A reference before start
// yields zero.
func CalculateServicePeriod(start, reference time.Time) ServicePeriod {
	total := wholeMonthsBetween(dateOnly(start), dateOnly(reference))
	if total < 0 {
		total = 0
	}
	return ServicePeriod{
		TotalMonths:     total,
		FullYears:       total / 12,
		RemainingMonths: total % 12,
	}
}

func wholeMonthsBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	return months
}

// minEligibleMonths is the tenure needed for both annual increase and 13th month.
const minEligibleMonths = 6

// eligibleAfterProbation is shared by the annual increase and 13th month rules:
// at least six months of service, and probation passed on or before reference
// when a pass date is recorded.
func eligibleAfterProbation(sp ServicePeriod, probationPass *time.Time, reference time.Time) bool {
	if sp.TotalMonths < minEligibleMonths {
		return false
	}
	if probationPass == nil {
		return true
	}
	return !dateOnly(reference).Before(dateOnly(*probationPass))
}

// EligibleForAnnualIncrease reports annual increase eligibility at reference.
func EligibleForAnnualIncrease(sp ServicePeriod, probationPass *time.Time, reference time.Time) bool {
	return eligibleAfterProbation(sp, probationPass, reference)
}

// EligibleForThirteenthMonth reports 13th month eligibility at reference.
// Currently identical to the annual increase rule.
func EligibleForThirteenthMonth(sp ServicePeriod, probationPass *time.Time, reference time.Time) bool {
	return eligibleAfterProbation(sp, probationPass, reference)
}
