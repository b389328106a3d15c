/*
Package payroll provides the payroll calculation engine.

PURPOSE:
  Given an employee's employment record, funding allocations and a pay period,
  derive gross salary (with probation pro-ration and annual increase),
  statutory deductions, 13th-month accrual, mid-month start adjustments and net
  salary per allocation, then aggregate and reconcile the results against the
  organizations funding them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee / EmploymentProfile: Immutable input snapshots
  - FundingAllocation: What share (FTE) of the employee is charged to which funder
  - AllocationCalculation: One itemized result per allocation
  - PayrollSummary: Employee-level totals for the period
  - InterOrganizationAdvance: Cash owed between organizations of the group

DESIGN PRINCIPLES:
  1. Immutability: Inputs are snapshots, outputs are recomputed, never mutated
  2. Precision: decimal.Decimal everywhere, rounded to 2 places at every step
  3. Explicit errors: Ineligibility yields zero, bad input yields an error
  4. No ambient state: The Engine holds only its injected configuration

USAGE:
  engine, err := payroll.NewEngine(payroll.DefaultConfig())
  calc, err := engine.CalculateAllocationPayroll(
      employee.Employment, allocation, payroll.PayPeriodOf(date), employee.TaxProfile, 2025)

SEE ALSO:
  - engine.go: The orchestrator
  - advance.go: Inter-organization advance detection
  - runner.go: Persisting runs through a TxStore
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/tax"
)

// =============================================================================
// INPUT SNAPSHOTS
// =============================================================================

// Employee is the snapshot supplied per calculation call.
type Employee struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	HomeOrganization string              `json:"home_organization"`
	Employment       *EmploymentProfile  `json:"employment,omitempty"`
	TaxProfile       tax.Profile         `json:"tax_profile"`
	Allocations      []FundingAllocation `json:"allocations"`
}

// EmploymentProfile is owned by the employee. The engine never mutates it.
type EmploymentProfile struct {
	StartDate            time.Time        `json:"start_date"`
	ProbationPassDate    *time.Time       `json:"probation_pass_date,omitempty"`
	ProbationSalary      *decimal.Decimal `json:"probation_salary,omitempty"`
	BaseSalary           decimal.Decimal  `json:"base_salary"`
	PositionRef          string           `json:"position_ref"`
	PositionTitle        string           `json:"position_title"`
	DepartmentRef        string           `json:"department_ref"`
	HealthWelfareEnabled bool             `json:"health_welfare_enabled"`
}

// Validate checks the fields every calculator relies on.
func (e *EmploymentProfile) Validate() error {
	if e.StartDate.IsZero() {
		return &InputError{Field: "employment.start_date", Reason: "missing"}
	}
	if e.BaseSalary.IsNegative() {
		return &InputError{Field: "employment.base_salary", Reason: "must not be negative"}
	}
	if e.ProbationSalary != nil && e.ProbationSalary.IsNegative() {
		return &InputError{Field: "employment.probation_salary", Reason: "must not be negative"}
	}
	if e.ProbationPassDate != nil && dateOnly(*e.ProbationPassDate).Before(dateOnly(e.StartDate)) {
		return &InputError{Field: "employment.probation_pass_date", Reason: "before start date"}
	}
	return nil
}

// AllocationType distinguishes grant funding from organizational funding.
type AllocationType string

const (
	AllocationGrant        AllocationType = "grant"
	AllocationOrganization AllocationType = "organization"
)

// FundingAllocation charges a fraction of the employee to one funding source.
// The sum of concurrent allocations is expected to be at most 1; that is the
// caller's concern.
type FundingAllocation struct {
	ID                  string          `json:"id"`
	FTE                 decimal.Decimal `json:"fte"`
	Type                AllocationType  `json:"allocation_type"`
	HomeOrganization    string          `json:"home_organization"`
	FundingOrganization string          `json:"funding_organization"`
	FundingSourceName   string          `json:"funding_source_name"`
}

// Validate enforces fte in (0, 1] and a known allocation type.
func (a FundingAllocation) Validate() error {
	if a.ID == "" {
		return &InputError{Field: "allocation.id", Reason: "missing"}
	}
	if !a.FTE.IsPositive() || a.FTE.GreaterThan(decimal.NewFromInt(1)) {
		return &InputError{Field: "allocation.fte", Reason: "must be in (0, 1], got " + a.FTE.String()}
	}
	switch a.Type {
	case AllocationGrant, AllocationOrganization:
	default:
		return &InputError{Field: "allocation.allocation_type", Reason: "unknown type " + string(a.Type)}
	}
	return nil
}

// =============================================================================
// OUTPUTS
// =============================================================================

// SalaryMethod records how the pay period's gross salary was resolved.
type SalaryMethod string

const (
	SalaryPositionRate  SalaryMethod = "position_rate"
	SalaryProbationRate SalaryMethod = "probation_rate"
	SalaryProrated      SalaryMethod = "prorated"
)

// SalaryBreakdown is always carried in the output for auditability.
type SalaryBreakdown struct {
	Method             SalaryMethod    `json:"method"`
	DaysInMonth        int             `json:"days_in_month"`
	ProbationDays      int             `json:"probation_days"`
	PositionDays       int             `json:"position_days"`
	ProbationDailyRate decimal.Decimal `json:"probation_daily_rate"`
	PositionDailyRate  decimal.Decimal `json:"position_daily_rate"`
	ProbationAmount    decimal.Decimal `json:"probation_amount"`
	PositionAmount     decimal.Decimal `json:"position_amount"`
	GrossSalary        decimal.Decimal `json:"gross_salary"`
}

// AllocationCalculation is produced fresh per request.
type AllocationCalculation struct {
	AllocationID string          `json:"allocation_id"`
	EmployeeID   string          `json:"employee_id,omitempty"`
	PayPeriod    PayPeriod       `json:"pay_period"`
	TaxYear      int             `json:"tax_year"`
	FTE          decimal.Decimal `json:"fte"`

	GrossSalary           decimal.Decimal `json:"gross_salary"`
	AnnualIncrease        decimal.Decimal `json:"annual_increase"`
	AdjustedGrossSalary   decimal.Decimal `json:"adjusted_gross_salary"`
	GrossSalaryByFTE      decimal.Decimal `json:"gross_salary_by_fte"`
	CompensationRefund    decimal.Decimal `json:"compensation_refund"`
	ThirteenthMonthSalary decimal.Decimal `json:"thirteen_month_salary"`

	PVDEmployee            decimal.Decimal `json:"pvd_employee"`
	PVDEmployer            decimal.Decimal `json:"pvd_employer"`
	SavingFund             decimal.Decimal `json:"saving_fund"`
	SocialSecurityEmployee decimal.Decimal `json:"social_security_employee"`
	SocialSecurityEmployer decimal.Decimal `json:"social_security_employer"`
	HealthWelfareEmployee  decimal.Decimal `json:"health_welfare_employee"`
	HealthWelfareEmployer  decimal.Decimal `json:"health_welfare_employer"`
	IncomeTax              decimal.Decimal `json:"income_tax"`

	TotalIncome          decimal.Decimal `json:"total_income"`
	TotalDeduction       decimal.Decimal `json:"total_deduction"`
	NetSalary            decimal.Decimal `json:"net_salary"`
	EmployerContribution decimal.Decimal `json:"employer_contribution"`

	ServicePeriod   ServicePeriod   `json:"service_period"`
	SalaryBreakdown SalaryBreakdown `json:"salary_breakdown"`
	Tax             tax.Result      `json:"tax"`
}

// PayrollSummary sums every numeric AllocationCalculation field.
type PayrollSummary struct {
	AllocationCount int `json:"allocation_count"`

	GrossSalary           decimal.Decimal `json:"gross_salary"`
	AnnualIncrease        decimal.Decimal `json:"annual_increase"`
	AdjustedGrossSalary   decimal.Decimal `json:"adjusted_gross_salary"`
	GrossSalaryByFTE      decimal.Decimal `json:"gross_salary_by_fte"`
	CompensationRefund    decimal.Decimal `json:"compensation_refund"`
	ThirteenthMonthSalary decimal.Decimal `json:"thirteen_month_salary"`

	PVDEmployee            decimal.Decimal `json:"pvd_employee"`
	PVDEmployer            decimal.Decimal `json:"pvd_employer"`
	SavingFund             decimal.Decimal `json:"saving_fund"`
	SocialSecurityEmployee decimal.Decimal `json:"social_security_employee"`
	SocialSecurityEmployer decimal.Decimal `json:"social_security_employer"`
	HealthWelfareEmployee  decimal.Decimal `json:"health_welfare_employee"`
	HealthWelfareEmployer  decimal.Decimal `json:"health_welfare_employer"`
	IncomeTax              decimal.Decimal `json:"income_tax"`

	TotalIncome          decimal.Decimal `json:"total_income"`
	TotalDeduction       decimal.Decimal `json:"total_deduction"`
	NetSalary            decimal.Decimal `json:"net_salary"`
	EmployerContribution decimal.Decimal `json:"employer_contribution"`
}

// EmployeePayroll bundles per-allocation calculations with their summary.
type EmployeePayroll struct {
	EmployeeID   string                  `json:"employee_id"`
	PayPeriod    PayPeriod               `json:"pay_period"`
	TaxYear      int                     `json:"tax_year"`
	Calculations []AllocationCalculation `json:"calculations"`
	Summary      PayrollSummary          `json:"summary"`
}

// InterOrganizationAdvance is created only for grant allocations whose funder
// differs from the employee's home organization.
type InterOrganizationAdvance struct {
	AllocationID     string          `json:"allocation_id"`
	FromOrganization string          `json:"from_organization"`
	ToOrganization   string          `json:"to_organization"`
	ViaGrantRef      string          `json:"via_grant_ref"`
	Amount           decimal.Decimal `json:"amount"`
	PayPeriod        PayPeriod       `json:"pay_period"`
}

// AdvancePreview is an advance detected before any payroll exists.
type AdvancePreview struct {
	AllocationID        string          `json:"allocation_id"`
	FromOrganization    string          `json:"from_organization"`
	ToOrganization      string          `json:"to_organization"`
	ViaGrantRef         string          `json:"via_grant_ref"`
	FTE                 decimal.Decimal `json:"fte"`
	AdjustedGrossSalary decimal.Decimal `json:"adjusted_gross_salary"`
	EstimatedAmount     decimal.Decimal `json:"estimated_amount"`
	PayPeriod           PayPeriod       `json:"pay_period"`
}

// =============================================================================
// MONEY HELPERS
// =============================================================================

// round2 is the single rounding rule of the engine: 2 places, half away from zero.
func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// MustParseDecimal parses s or panics. Intended for constants and tests.
func MustParseDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
