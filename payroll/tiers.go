package payroll

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PositionCap caps the annual increase for titles containing any keyword.
type PositionCap struct {
	Name     string          `json:"name" yaml:"name"`
	Keywords []string        `json:"keywords" yaml:"keywords"`
	Cap      decimal.Decimal `json:"cap" yaml:"cap"`
}

// PositionCapTable is scanned in order; the first rule with a matching
// keyword wins, otherwise Default applies.
type PositionCapTable struct {
	Rules   []PositionCap   `json:"rules" yaml:"rules"`
	Default decimal.Decimal `json:"default" yaml:"default"`
}

// DefaultPositionCaps mirrors the organization's published increase caps.
func DefaultPositionCaps() PositionCapTable {
	return PositionCapTable{
		Rules: []PositionCap{
			{Name: "senior", Keywords: []string{"senior", "lead"}, Cap: decimal.NewFromInt(8000)},
			{Name: "management", Keywords: []string{"manager", "director"}, Cap: decimal.NewFromInt(15000)},
			{Name: "entry", Keywords: []string{"junior", "intern"}, Cap: decimal.NewFromInt(3000)},
		},
		Default: decimal.NewFromInt(5000),
	}
}

// CapFor returns the cap for a position title. Matching is case-insensitive
// substring search.
func (t PositionCapTable) CapFor(title string) decimal.Decimal {
	title = strings.ToLower(title)
	for _, rule := range t.Rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(title, strings.ToLower(kw)) {
				return rule.Cap
			}
		}
	}
	return t.Default
}

func (t PositionCapTable) Validate() error {
	if t.Default.IsNegative() {
		return fmt.Errorf("%w: default position cap is negative", ErrConfiguration)
	}
	for _, rule := range t.Rules {
		if rule.Cap.IsNegative() {
			return fmt.Errorf("%w: position cap %q is negative", ErrConfiguration, rule.Name)
		}
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("%w: position cap %q has no keywords", ErrConfiguration, rule.Name)
		}
	}
	return nil
}
