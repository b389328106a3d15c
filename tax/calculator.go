package tax

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Calculator computes monthly withholding from an injected TableSet.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	tables TableSet
}

// NewCalculator validates tables and returns a Calculator over them.
func NewCalculator(tables TableSet) (*Calculator, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no tax tables configured", ErrInvalidTable)
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{tables: tables}, nil
}

// Tables exposes the configured tables, read-only by convention.
func (c *Calculator) Tables() TableSet { return c.tables }

func round(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Calculate returns the monthly tax amount and its breakdown.
// The result is deterministic for (salary, profile, tax year) and never negative.
func (c *Calculator) Calculate(in Input) (Result, error) {
	if err := in.Profile.Validate(); err != nil {
		return Result{}, err
	}
	if in.MonthlySalary.IsNegative() {
		return Result{}, &InputError{Field: "monthly_salary", Reason: "must not be negative"}
	}
	if in.SocialSecurityEmployee.IsNegative() || in.ProvidentFundEmployee.IsNegative() {
		return Result{}, &InputError{Field: "contributions", Reason: "must not be negative"}
	}

	table, err := c.tables.For(in.TaxYear)
	if err != nil {
		return Result{}, err
	}

	months := decimal.NewFromInt(int64(in.Profile.MonthsWorkingThisYear))
	annualIncome := round(in.MonthlySalary.Mul(months))

	ssAnnual := round(in.SocialSecurityEmployee.Mul(months))
	ssDeductible := decimal.Min(ssAnnual, table.SocialSecurityCap)

	pvdAnnual := round(in.ProvidentFundEmployee.Mul(months))
	pvdCap := decimal.Min(round(annualIncome.Mul(table.ProvidentFundRateCap)), table.ProvidentFundCap)
	pvdDeductible := decimal.Min(pvdAnnual, pvdCap)

	ded := Deductions{
		EmploymentExpense: decimal.Min(round(annualIncome.Mul(table.EmploymentExpenseRate)), table.EmploymentExpenseCap),
		Personal:          table.PersonalAllowance,
		Spouse:            decimal.Zero,
		Children:          decimal.Zero,
		Parents:           decimal.Zero,
		SocialSecurity:    ssDeductible,
		ProvidentFund:     pvdDeductible,
	}
	if in.Profile.IsResident() {
		if in.Profile.HasSpouse {
			ded.Spouse = table.SpouseAllowance
		}
		ded.Children = table.ChildAllowance.Mul(decimal.NewFromInt(int64(in.Profile.DependentChildren)))
		ded.Parents = table.ParentAllowance.Mul(decimal.NewFromInt(int64(in.Profile.EligibleParents)))
	}
	ded.Total = ded.EmploymentExpense.Add(ded.Personal).Add(ded.Spouse).Add(ded.Children).
		Add(ded.Parents).Add(ded.SocialSecurity).Add(ded.ProvidentFund)

	taxable := annualIncome.Sub(ded.Total)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}

	brackets, annualTax := applyBrackets(table.Brackets, taxable)
	monthly := round(annualTax.Div(months))

	return Result{
		TaxYear:          in.TaxYear,
		MonthsWorking:    in.Profile.MonthsWorkingThisYear,
		AnnualIncome:     annualIncome,
		Deductions:       ded,
		TaxableIncome:    taxable,
		Brackets:         brackets,
		AnnualTax:        annualTax,
		MonthlyTaxAmount: monthly,
		SocialSecurity: ContributionSplit{
			Monthly:    in.SocialSecurityEmployee,
			Annual:     ssAnnual,
			Deductible: ssDeductible,
		},
		ProvidentFund: ContributionSplit{
			Monthly:    in.ProvidentFundEmployee,
			Annual:     pvdAnnual,
			Deductible: pvdDeductible,
		},
	}, nil
}

// applyBrackets walks the marginal bands, rounding each band's tax.
func applyBrackets(brackets []Bracket, taxable decimal.Decimal) ([]BracketTax, decimal.Decimal) {
	var (
		out   []BracketTax
		total = decimal.Zero
		lower = decimal.Zero
	)
	for _, b := range brackets {
		if !taxable.GreaterThan(lower) {
			break
		}
		top := taxable
		if b.UpTo != nil {
			top = decimal.Min(taxable, *b.UpTo)
		}
		portion := top.Sub(lower)
		tax := round(portion.Mul(b.Rate))
		out = append(out, BracketTax{
			From:    lower,
			UpTo:    b.UpTo,
			Rate:    b.Rate,
			Taxable: portion,
			Tax:     tax,
		})
		total = total.Add(tax)
		if b.UpTo == nil {
			break
		}
		lower = *b.UpTo
	}
	return out, total
}
