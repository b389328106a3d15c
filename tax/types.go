/*
Package tax provides the personal income tax calculation used by payroll.

PURPOSE:
  Given a monthly (FTE-weighted) salary, the employee's tax profile and a tax
  year, derive the monthly withholding amount together with an itemized
  breakdown. The calculator is a pure function of its inputs and the bracket
  table injected at construction.

KEY CONCEPTS IN THIS FILE (types.go):
  - Profile: What the tax office knows about the employee (family, residency)
  - Residency: Thai resident or foreign staff with/without a Thai tax ID
  - Input / Result: The calculator contract

ALGORITHM (calculator.go):
  1. Annualize: monthly salary x months working this year
  2. Deduct: employment expense, allowances, social security, provident fund
  3. Taxable income = max(0, income - deductions)
  4. Walk the progressive brackets
  5. Monthly tax = annual tax / months working

SEE ALSO:
  - table.go: Bracket table and allowance amounts
  - payroll/engine.go: The orchestrator that calls Calculate
*/
package tax

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PROFILE
// =============================================================================

// Residency classifies an employee for tax and provident fund purposes.
type Residency string

const (
	ResidencyThai          Residency = "thai"
	ResidencyNonThaiWithID Residency = "non_thai_with_id"
	ResidencyNonThaiNoID   Residency = "non_thai_no_id"
)

// Valid reports whether r is one of the known residency statuses.
func (r Residency) Valid() bool {
	switch r {
	case ResidencyThai, ResidencyNonThaiWithID, ResidencyNonThaiNoID:
		return true
	}
	return false
}

// Profile is the read-only tax profile derived from employee and dependents records.
type Profile struct {
	HasSpouse             bool      `json:"has_spouse" yaml:"has_spouse"`
	DependentChildren     int       `json:"dependent_children_count" yaml:"dependent_children_count"`
	EligibleParents       int       `json:"eligible_parents_count" yaml:"eligible_parents_count"`
	Residency             Residency `json:"residency_status" yaml:"residency_status"`
	MonthsWorkingThisYear int       `json:"months_working_this_year" yaml:"months_working_this_year"`
}

// Validate rejects profiles the calculator cannot interpret.
func (p Profile) Validate() error {
	if !p.Residency.Valid() {
		return &InputError{Field: "residency_status", Reason: fmt.Sprintf("unknown residency %q", p.Residency)}
	}
	if p.MonthsWorkingThisYear < 1 || p.MonthsWorkingThisYear > 12 {
		return &InputError{Field: "months_working_this_year", Reason: fmt.Sprintf("must be 1..12, got %d", p.MonthsWorkingThisYear)}
	}
	if p.DependentChildren < 0 {
		return &InputError{Field: "dependent_children_count", Reason: "must not be negative"}
	}
	if p.EligibleParents < 0 || p.EligibleParents > 4 {
		return &InputError{Field: "eligible_parents_count", Reason: fmt.Sprintf("must be 0..4, got %d", p.EligibleParents)}
	}
	return nil
}

// IsResident reports whether family allowances apply.
func (p Profile) IsResident() bool {
	return p.Residency == ResidencyThai
}

// =============================================================================
// CALCULATOR CONTRACT
// =============================================================================

// Input is everything Calculate needs for one allocation.
// SocialSecurityEmployee and ProvidentFundEmployee are the monthly employee
// contributions already computed by the payroll contribution calculators.
type Input struct {
	MonthlySalary          decimal.Decimal
	SocialSecurityEmployee decimal.Decimal
	ProvidentFundEmployee  decimal.Decimal
	Profile                Profile
	TaxYear                int
}

// Deductions itemizes everything subtracted from annual income.
type Deductions struct {
	EmploymentExpense decimal.Decimal `json:"employment_expense"`
	Personal          decimal.Decimal `json:"personal"`
	Spouse            decimal.Decimal `json:"spouse"`
	Children          decimal.Decimal `json:"children"`
	Parents           decimal.Decimal `json:"parents"`
	SocialSecurity    decimal.Decimal `json:"social_security"`
	ProvidentFund     decimal.Decimal `json:"provident_fund"`
	Total             decimal.Decimal `json:"total"`
}

// BracketTax is the tax charged inside one bracket.
type BracketTax struct {
	From    decimal.Decimal  `json:"from"`
	UpTo    *decimal.Decimal `json:"up_to,omitempty"`
	Rate    decimal.Decimal  `json:"rate"`
	Taxable decimal.Decimal  `json:"taxable"`
	Tax     decimal.Decimal  `json:"tax"`
}

// ContributionSplit reports a monthly contribution and the annual amount deducted for tax.
type ContributionSplit struct {
	Monthly    decimal.Decimal `json:"monthly"`
	Annual     decimal.Decimal `json:"annual"`
	Deductible decimal.Decimal `json:"deductible"`
}

// Result is the detailed outcome of Calculate.
type Result struct {
	TaxYear          int               `json:"tax_year"`
	MonthsWorking    int               `json:"months_working"`
	AnnualIncome     decimal.Decimal   `json:"annual_income"`
	Deductions       Deductions        `json:"deductions"`
	TaxableIncome    decimal.Decimal   `json:"taxable_income"`
	Brackets         []BracketTax      `json:"brackets"`
	AnnualTax        decimal.Decimal   `json:"annual_tax"`
	MonthlyTaxAmount decimal.Decimal   `json:"monthly_tax_amount"`
	SocialSecurity   ContributionSplit `json:"social_security"`
	ProvidentFund    ContributionSplit `json:"provident_fund"`
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTableNotFound is returned when no bracket table exists for the tax year.
	ErrTableNotFound = errors.New("tax table not found")

	// ErrInvalidTable is returned when a bracket table is malformed.
	ErrInvalidTable = errors.New("invalid tax table")

	// ErrInvalidInput is returned for malformed profiles or negative amounts.
	ErrInvalidInput = errors.New("invalid tax input")
)

// InputError names the offending input field.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid tax input %s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }
