/*
Package factory provides JSON/YAML to Go engine configuration conversion.

PURPOSE:
  Converts an engine configuration file (tax tables, position increase caps,
  contribution rates) into a payroll.Config. Finance can publish next year's
  tax table or a rate change without a code change.

SCHEMA (YAML shown, JSON uses the same keys):
  default_years: [2025]
  rates:
    pvd_employee: 0.03
    social_security_cap: 750
  position_caps:
    default: 5000
    rules:
      - name: senior
        keywords: [senior, lead]
        cap: 8000
  tax_tables:
    - year: 2026
      personal_allowance: 60000
      brackets:
        - {up_to: 150000, rate: 0}
        - {rate: 0.35}

DEFAULTS:
  - Every omitted rate keeps its statutory default
  - Omitted position_caps keep DefaultPositionCaps
  - A tax table field that is omitted takes the default table's value
  - With no tax_tables at all, default tables are built for default_years

USAGE:
  cfg, err := factory.LoadEngineConfigFile("config/engine.yaml")
  engine, err := payroll.NewEngine(cfg)

SEE ALSO:
  - payroll/config.go: Config type definition
  - tax/table.go: Table validation
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/tax"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// SCHEMA TYPES
// =============================================================================

// EngineConfigSchema is the file representation of an engine configuration.
type EngineConfigSchema struct {
	DefaultYears []int              `json:"default_years,omitempty" yaml:"default_years,omitempty"`
	Rates        *RatesSchema       `json:"rates,omitempty" yaml:"rates,omitempty"`
	PositionCaps *PositionCapSchema `json:"position_caps,omitempty" yaml:"position_caps,omitempty"`
	TaxTables    []TaxTableSchema   `json:"tax_tables,omitempty" yaml:"tax_tables,omitempty"`
}

// RatesSchema overrides individual contribution rates. Amounts decode
// straight into decimals, so file values stay exact.
type RatesSchema struct {
	PVDEmployee           *decimal.Decimal `json:"pvd_employee,omitempty" yaml:"pvd_employee,omitempty"`
	PVDEmployer           *decimal.Decimal `json:"pvd_employer,omitempty" yaml:"pvd_employer,omitempty"`
	SavingFund            *decimal.Decimal `json:"saving_fund,omitempty" yaml:"saving_fund,omitempty"`
	SocialSecurity        *decimal.Decimal `json:"social_security,omitempty" yaml:"social_security,omitempty"`
	SocialSecurityCap     *decimal.Decimal `json:"social_security_cap,omitempty" yaml:"social_security_cap,omitempty"`
	HealthWelfareEmployee *decimal.Decimal `json:"health_welfare_employee,omitempty" yaml:"health_welfare_employee,omitempty"`
	HealthWelfareEmployer *decimal.Decimal `json:"health_welfare_employer,omitempty" yaml:"health_welfare_employer,omitempty"`
	AnnualIncrease        *decimal.Decimal `json:"annual_increase,omitempty" yaml:"annual_increase,omitempty"`
}

// PositionCapSchema replaces the position cap table.
type PositionCapSchema struct {
	Default decimal.Decimal      `json:"default" yaml:"default"`
	Rules   []PositionRuleSchema `json:"rules" yaml:"rules"`
}

type PositionRuleSchema struct {
	Name     string          `json:"name" yaml:"name"`
	Keywords []string        `json:"keywords" yaml:"keywords"`
	Cap      decimal.Decimal `json:"cap" yaml:"cap"`
}

// TaxTableSchema is one year's table. Omitted fields take default values.
type TaxTableSchema struct {
	Year     int             `json:"year" yaml:"year"`
	Brackets []BracketSchema `json:"brackets,omitempty" yaml:"brackets,omitempty"`

	PersonalAllowance     *decimal.Decimal `json:"personal_allowance,omitempty" yaml:"personal_allowance,omitempty"`
	SpouseAllowance       *decimal.Decimal `json:"spouse_allowance,omitempty" yaml:"spouse_allowance,omitempty"`
	ChildAllowance        *decimal.Decimal `json:"child_allowance,omitempty" yaml:"child_allowance,omitempty"`
	ParentAllowance       *decimal.Decimal `json:"parent_allowance,omitempty" yaml:"parent_allowance,omitempty"`
	EmploymentExpenseRate *decimal.Decimal `json:"employment_expense_rate,omitempty" yaml:"employment_expense_rate,omitempty"`
	EmploymentExpenseCap  *decimal.Decimal `json:"employment_expense_cap,omitempty" yaml:"employment_expense_cap,omitempty"`
	SocialSecurityCap     *decimal.Decimal `json:"social_security_cap,omitempty" yaml:"social_security_cap,omitempty"`
	ProvidentFundRateCap  *decimal.Decimal `json:"provident_fund_rate_cap,omitempty" yaml:"provident_fund_rate_cap,omitempty"`
	ProvidentFundCap      *decimal.Decimal `json:"provident_fund_cap,omitempty" yaml:"provident_fund_cap,omitempty"`
}

// BracketSchema is one band. A missing up_to marks the top band.
type BracketSchema struct {
	UpTo *decimal.Decimal `json:"up_to,omitempty" yaml:"up_to,omitempty"`
	Rate decimal.Decimal  `json:"rate" yaml:"rate"`
}

// =============================================================================
// PARSING
// =============================================================================

// Format selects the decoder.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// LoadEngineConfigFile reads path and picks the decoder by extension.
func LoadEngineConfigFile(path string) (payroll.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return payroll.Config{}, fmt.Errorf("failed to read engine config %s: %w", path, err)
	}
	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	return ParseEngineConfig(data, format)
}

// ParseEngineConfig decodes data and builds a validated payroll.Config.
func ParseEngineConfig(data []byte, format Format) (payroll.Config, error) {
	var schema EngineConfigSchema
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &schema); err != nil {
			return payroll.Config{}, fmt.Errorf("failed to parse engine config YAML: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &schema); err != nil {
			return payroll.Config{}, fmt.Errorf("failed to parse engine config JSON: %w", err)
		}
	default:
		return payroll.Config{}, fmt.Errorf("%w: unsupported config format %q", payroll.ErrConfiguration, format)
	}
	return FromSchema(schema)
}

// FromSchema converts a schema to a payroll.Config and validates it.
func FromSchema(s EngineConfigSchema) (payroll.Config, error) {
	cfg := payroll.DefaultConfig(s.DefaultYears...)

	if s.Rates != nil {
		cfg.Rates = applyRates(cfg.Rates, *s.Rates)
	}
	if s.PositionCaps != nil {
		cfg.PositionCaps = parsePositionCaps(*s.PositionCaps)
	}
	if len(s.TaxTables) > 0 {
		tables := make(tax.TableSet, len(s.TaxTables))
		for _, ts := range s.TaxTables {
			if _, dup := tables[ts.Year]; dup {
				return payroll.Config{}, &payroll.ConfigurationError{
					TaxYear: ts.Year,
					Err:     fmt.Errorf("%w: year listed twice", tax.ErrInvalidTable),
				}
			}
			tables[ts.Year] = parseTaxTable(ts)
		}
		cfg.TaxTables = tables
	}

	if err := cfg.Validate(); err != nil {
		return payroll.Config{}, err
	}
	return cfg, nil
}

func applyRates(r payroll.Rates, s RatesSchema) payroll.Rates {
	override(&r.PVDEmployee, s.PVDEmployee)
	override(&r.PVDEmployer, s.PVDEmployer)
	override(&r.SavingFund, s.SavingFund)
	override(&r.SocialSecurityRate, s.SocialSecurity)
	override(&r.SocialSecurityCap, s.SocialSecurityCap)
	override(&r.HealthWelfareEmployee, s.HealthWelfareEmployee)
	override(&r.HealthWelfareEmployer, s.HealthWelfareEmployer)
	override(&r.AnnualIncrease, s.AnnualIncrease)
	return r
}

func parsePositionCaps(s PositionCapSchema) payroll.PositionCapTable {
	t := payroll.PositionCapTable{Default: s.Default}
	for _, rule := range s.Rules {
		t.Rules = append(t.Rules, payroll.PositionCap{
			Name:     rule.Name,
			Keywords: rule.Keywords,
			Cap:      rule.Cap,
		})
	}
	return t
}

func parseTaxTable(s TaxTableSchema) tax.Table {
	t := tax.DefaultTable(s.Year)
	if len(s.Brackets) > 0 {
		t.Brackets = make([]tax.Bracket, 0, len(s.Brackets))
		for _, b := range s.Brackets {
			bracket := tax.Bracket{Rate: b.Rate}
			if b.UpTo != nil {
				up := *b.UpTo
				bracket.UpTo = &up
			}
			t.Brackets = append(t.Brackets, bracket)
		}
	}
	override(&t.PersonalAllowance, s.PersonalAllowance)
	override(&t.SpouseAllowance, s.SpouseAllowance)
	override(&t.ChildAllowance, s.ChildAllowance)
	override(&t.ParentAllowance, s.ParentAllowance)
	override(&t.EmploymentExpenseRate, s.EmploymentExpenseRate)
	override(&t.EmploymentExpenseCap, s.EmploymentExpenseCap)
	override(&t.SocialSecurityCap, s.SocialSecurityCap)
	override(&t.ProvidentFundRateCap, s.ProvidentFundRateCap)
	override(&t.ProvidentFundCap, s.ProvidentFundCap)
	return t
}

func override(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}
