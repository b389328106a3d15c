package payroll

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INTER-ORGANIZATION ADVANCES
// =============================================================================

// requiresAdvance reports whether the allocation is funded by a grant held
// by an organization other than home.
func requiresAdvance(home string, alloc FundingAllocation) bool {
	if alloc.Type != AllocationGrant {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(alloc.FundingOrganization), strings.TrimSpace(home))
}

// homeOrganization prefers the employee record and falls back to the
// allocation snapshot.
func homeOrganization(employee Employee, alloc FundingAllocation) string {
	if h := strings.TrimSpace(employee.HomeOrganization); h != "" {
		return h
	}
	return strings.TrimSpace(alloc.HomeOrganization)
}

func validateAdvanceParties(employee Employee, alloc FundingAllocation) error {
	if alloc.Type != AllocationGrant {
		return nil
	}
	if homeOrganization(employee, alloc) == "" {
		return &InputError{Field: "home_organization", Reason: "missing for employee " + employee.ID}
	}
	if strings.TrimSpace(alloc.FundingOrganization) == "" {
		return &InputError{Field: "allocation.funding_organization", Reason: "missing on grant allocation " + alloc.ID}
	}
	return nil
}

// ResolveInterOrganizationAdvance returns the advance owed for a computed
// allocation payroll, or nil when none is owed. The result must belong to the
// allocation. The amount is the allocation's net salary as computed, so a
// start on the last day of the month yields a negative advance that the home
// organization owes back.
func ResolveInterOrganizationAdvance(
	employee Employee,
	allocation FundingAllocation,
	result AllocationCalculation,
	period PayPeriod,
) (*InterOrganizationAdvance, error) {
	if result.AllocationID != allocation.ID {
		return nil, &InputError{
			Field:  "payroll_result",
			Reason: "belongs to allocation " + result.AllocationID + ", not " + allocation.ID,
		}
	}
	if err := validateAdvanceParties(employee, allocation); err != nil {
		return nil, err
	}
	home := homeOrganization(employee, allocation)
	if !requiresAdvance(home, allocation) {
		return nil, nil
	}
	return &InterOrganizationAdvance{
		AllocationID:     allocation.ID,
		FromOrganization: strings.TrimSpace(allocation.FundingOrganization),
		ToOrganization:   home,
		ViaGrantRef:      allocation.FundingSourceName,
		Amount:           result.NetSalary,
		PayPeriod:        period,
	}, nil
}

// PreviewInterOrganizationAdvances detects the advances the employee's
// allocations will need for period, estimating each amount as FTE times the
// adjusted gross salary. Nothing is computed past gross salary.
func (e *Engine) PreviewInterOrganizationAdvances(employee Employee, period PayPeriod) ([]AdvancePreview, error) {
	if employee.Employment == nil {
		return nil, &InputError{Field: "employment", Reason: "employee " + employee.ID + " has no employment record"}
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}

	var (
		adjusted   = decimal.Zero
		computed   bool
		employment = employee.Employment
		previews   = []AdvancePreview{}
	)
	for _, alloc := range employee.Allocations {
		if err := alloc.Validate(); err != nil {
			return nil, &AllocationError{AllocationID: alloc.ID, Err: err}
		}
		if err := validateAdvanceParties(employee, alloc); err != nil {
			return nil, err
		}
		home := homeOrganization(employee, alloc)
		if !requiresAdvance(home, alloc) {
			continue
		}
		if !computed {
			var err error
			if adjusted, err = e.adjustedGross(employment, period); err != nil {
				return nil, err
			}
			computed = true
		}
		previews = append(previews, AdvancePreview{
			AllocationID:        alloc.ID,
			FromOrganization:    strings.TrimSpace(alloc.FundingOrganization),
			ToOrganization:      home,
			ViaGrantRef:         alloc.FundingSourceName,
			FTE:                 alloc.FTE,
			AdjustedGrossSalary: adjusted,
			EstimatedAmount:     round2(adjusted.Mul(alloc.FTE)),
			PayPeriod:           period,
		})
	}
	return previews, nil
}

// adjustedGross is steps 1-2 of the allocation pipeline.
func (e *Engine) adjustedGross(employment *EmploymentProfile, period PayPeriod) (decimal.Decimal, error) {
	if err := employment.Validate(); err != nil {
		return decimal.Zero, err
	}
	reference := period.End()
	breakdown, err := ProRatedSalary(employment, period)
	if err != nil {
		return decimal.Zero, err
	}
	sp := CalculateServicePeriod(employment.StartDate, reference)
	increase := AnnualIncrease(employment.BaseSalary, sp,
		EligibleForAnnualIncrease(sp, employment.ProbationPassDate, reference),
		employment.PositionTitle, e.cfg.PositionCaps, e.cfg.Rates.AnnualIncrease)
	return round2(breakdown.GrossSalary.Add(increase)), nil
}
