package payroll

import (
	"fmt"
	"time"

	"github.com/warp/payroll-engine/tax"
)

// Config is the read-only configuration injected into an Engine.
type Config struct {
	TaxTables    tax.TableSet
	PositionCaps PositionCapTable
	Rates        Rates
}

// DefaultConfig returns statutory defaults with tax tables for the given
// years, or for the current and previous year when none are given.
func DefaultConfig(years ...int) Config {
	if len(years) == 0 {
		y := currentYear()
		years = []int{y - 1, y}
	}
	return Config{
		TaxTables:    tax.DefaultTables(years...),
		PositionCaps: DefaultPositionCaps(),
		Rates:        DefaultRates(),
	}
}

func (c Config) Validate() error {
	if len(c.TaxTables) == 0 {
		return &ConfigurationError{Err: fmt.Errorf("%w: no tax tables", tax.ErrInvalidTable)}
	}
	if err := c.TaxTables.Validate(); err != nil {
		return &ConfigurationError{Err: err}
	}
	if err := c.PositionCaps.Validate(); err != nil {
		return err
	}
	return c.Rates.Validate()
}

var currentYear = func() int { return time.Now().Year() }
