package payroll

import (
	"encoding/json"
	"fmt"
	"time"
)

// PayPeriod is one calendar month. Only year and month are significant.
type PayPeriod struct {
	Year  int
	Month time.Month
}

// PayPeriodOf returns the pay period containing t.
func PayPeriodOf(t time.Time) PayPeriod {
	return PayPeriod{Year: t.Year(), Month: t.Month()}
}

// ParsePayPeriod accepts "YYYY-MM" or a full "YYYY-MM-DD" date.
func ParsePayPeriod(s string) (PayPeriod, error) {
	for _, layout := range []string{"2006-01", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return PayPeriodOf(t), nil
		}
	}
	return PayPeriod{}, &InputError{Field: "pay_period", Reason: fmt.Sprintf("cannot parse %q, want YYYY-MM", s)}
}

// IsZero reports whether p was never set.
func (p PayPeriod) IsZero() bool { return p.Year == 0 && p.Month == 0 }

// Validate checks the month is in range.
func (p PayPeriod) Validate() error {
	if p.IsZero() {
		return &InputError{Field: "pay_period", Reason: "missing"}
	}
	if p.Month < time.January || p.Month > time.December || p.Year < 1 {
		return &InputError{Field: "pay_period", Reason: fmt.Sprintf("invalid %04d-%02d", p.Year, int(p.Month))}
	}
	return nil
}

// Start returns the first day of the period, UTC midnight.
func (p PayPeriod) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the period, UTC midnight.
func (p PayPeriod) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// DaysInMonth returns 28..31.
func (p PayPeriod) DaysInMonth() int { return p.End().Day() }

// Contains reports whether the calendar date of t falls in p.
func (p PayPeriod) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// Next returns the following month.
func (p PayPeriod) Next() PayPeriod { return PayPeriodOf(p.Start().AddDate(0, 1, 0)) }

func (p PayPeriod) String() string { return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month)) }

func (p PayPeriod) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

func (p *PayPeriod) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParsePayPeriod(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// dateOnly strips the clock so comparisons are by calendar date.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
