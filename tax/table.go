package tax

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BRACKET TABLE - External configuration, one per tax year
// =============================================================================

// Bracket is one marginal band. A nil UpTo marks the open-ended top band.
type Bracket struct {
	UpTo *decimal.Decimal
	Rate decimal.Decimal
}

// Table holds the bracket thresholds, marginal rates and standard deduction
// amounts for a single tax year. Amounts are annual.
type Table struct {
	Year     int
	Brackets []Bracket

	PersonalAllowance decimal.Decimal
	SpouseAllowance   decimal.Decimal
	ChildAllowance    decimal.Decimal
	ParentAllowance   decimal.Decimal

	EmploymentExpenseRate decimal.Decimal
	EmploymentExpenseCap  decimal.Decimal

	SocialSecurityCap    decimal.Decimal
	ProvidentFundRateCap decimal.Decimal
	ProvidentFundCap     decimal.Decimal
}

// Validate checks bracket ordering and rate ranges.
func (t Table) Validate() error {
	if len(t.Brackets) == 0 {
		return fmt.Errorf("%w: year %d has no brackets", ErrInvalidTable, t.Year)
	}
	prev := decimal.Zero
	for i, b := range t.Brackets {
		if b.Rate.IsNegative() || b.Rate.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: year %d bracket %d rate %s out of range", ErrInvalidTable, t.Year, i, b.Rate)
		}
		last := i == len(t.Brackets)-1
		if b.UpTo == nil {
			if !last {
				return fmt.Errorf("%w: year %d bracket %d is unbounded but not last", ErrInvalidTable, t.Year, i)
			}
			continue
		}
		if !b.UpTo.GreaterThan(prev) {
			return fmt.Errorf("%w: year %d bracket %d threshold %s not ascending", ErrInvalidTable, t.Year, i, b.UpTo)
		}
		prev = *b.UpTo
	}
	if t.Brackets[len(t.Brackets)-1].UpTo != nil {
		return fmt.Errorf("%w: year %d top bracket must be unbounded", ErrInvalidTable, t.Year)
	}
	for name, v := range map[string]decimal.Decimal{
		"personal_allowance":      t.PersonalAllowance,
		"spouse_allowance":        t.SpouseAllowance,
		"child_allowance":         t.ChildAllowance,
		"parent_allowance":        t.ParentAllowance,
		"employment_expense_rate": t.EmploymentExpenseRate,
		"employment_expense_cap":  t.EmploymentExpenseCap,
		"social_security_cap":     t.SocialSecurityCap,
		"provident_fund_rate_cap": t.ProvidentFundRateCap,
		"provident_fund_cap":      t.ProvidentFundCap,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%w: year %d %s is negative", ErrInvalidTable, t.Year, name)
		}
	}
	return nil
}

// TableSet indexes tables by tax year. It is read-only after construction.
type TableSet map[int]Table

// For returns the table for year or ErrTableNotFound.
func (s TableSet) For(year int) (Table, error) {
	t, ok := s[year]
	if !ok {
		return Table{}, fmt.Errorf("%w: year %d", ErrTableNotFound, year)
	}
	return t, nil
}

// Years returns the configured years in ascending order.
func (s TableSet) Years() []int {
	years := make([]int, 0, len(s))
	for y := range s {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Validate validates every table and that each is filed under its own year.
func (s TableSet) Validate() error {
	for _, y := range s.Years() {
		t := s[y]
		if t.Year != y {
			return fmt.Errorf("%w: table for %d declares year %d", ErrInvalidTable, y, t.Year)
		}
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// DEFAULTS - Thai personal income tax schedule
// =============================================================================

func upTo(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func pct(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// DefaultTable returns the Thai progressive schedule for year.
func DefaultTable(year int) Table {
	return Table{
		Year: year,
		Brackets: []Bracket{
			{UpTo: upTo(150_000), Rate: pct("0")},
			{UpTo: upTo(300_000), Rate: pct("0.05")},
			{UpTo: upTo(500_000), Rate: pct("0.10")},
			{UpTo: upTo(750_000), Rate: pct("0.15")},
			{UpTo: upTo(1_000_000), Rate: pct("0.20")},
			{UpTo: upTo(2_000_000), Rate: pct("0.25")},
			{UpTo: upTo(5_000_000), Rate: pct("0.30")},
			{UpTo: nil, Rate: pct("0.35")},
		},
		PersonalAllowance:     decimal.NewFromInt(60_000),
		SpouseAllowance:       decimal.NewFromInt(60_000),
		ChildAllowance:        decimal.NewFromInt(30_000),
		ParentAllowance:       decimal.NewFromInt(30_000),
		EmploymentExpenseRate: pct("0.50"),
		EmploymentExpenseCap:  decimal.NewFromInt(100_000),
		SocialSecurityCap:     decimal.NewFromInt(9_000),
		ProvidentFundRateCap:  pct("0.15"),
		ProvidentFundCap:      decimal.NewFromInt(500_000),
	}
}

// DefaultTables builds a TableSet with DefaultTable for each year.
func DefaultTables(years ...int) TableSet {
	set := make(TableSet, len(years))
	for _, y := range years {
		set[y] = DefaultTable(y)
	}
	return set
}
