package payroll_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

func TestPayPeriod_Bounds(t *testing.T) {
	feb := period(2024, time.February)
	assert.Equal(t, date(2024, time.February, 1), feb.Start())
	assert.Equal(t, date(2024, time.February, 29), feb.End())
	assert.Equal(t, 29, feb.DaysInMonth())
	assert.True(t, feb.Contains(date(2024, time.February, 15)))
	assert.False(t, feb.Contains(date(2024, time.March, 1)))
	assert.Equal(t, period(2024, time.March), feb.Next())
	assert.Equal(t, period(2025, time.January), period(2024, time.December).Next())
}

func TestParsePayPeriod(t *testing.T) {
	p, err := payroll.ParsePayPeriod("2025-06")
	require.NoError(t, err)
	assert.Equal(t, period(2025, time.June), p)

	p, err = payroll.ParsePayPeriod("2025-06-18")
	require.NoError(t, err)
	assert.Equal(t, "2025-06", p.String())

	_, err = payroll.ParsePayPeriod("June 2025")
	assert.ErrorIs(t, err, payroll.ErrInput)
}

func TestPayPeriod_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		P payroll.PayPeriod `json:"p"`
	}{period(2025, time.March)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":"2025-03"}`, string(b))

	var out struct {
		P payroll.PayPeriod `json:"p"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, period(2025, time.March), out.P)
}

// =============================================================================
// SERVICE PERIOD AND ELIGIBILITY
// =============================================================================

func TestCalculateServicePeriod(t *testing.T) {
	tests := []struct {
		name      string
		start     time.Time
		reference time.Time
		total     int
		years     int
		remaining int
	}{
		{"month end to shorter month end", date(2024, time.January, 31), date(2024, time.February, 29), 0, 0, 0},
		{"one day short of six months", date(2025, time.January, 15), date(2025, time.July, 14), 5, 0, 5},
		{"exactly six months", date(2025, time.January, 15), date(2025, time.July, 15), 6, 0, 6},
		{"over two years", date(2023, time.March, 1), date(2025, time.June, 30), 27, 2, 3},
		{"reference before start", date(2025, time.June, 1), date(2025, time.May, 31), 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := payroll.CalculateServicePeriod(tt.start, tt.reference)
			assert.Equal(t, tt.total, sp.TotalMonths)
			assert.Equal(t, tt.years, sp.FullYears)
			assert.Equal(t, tt.remaining, sp.RemainingMonths)
		})
	}
}

func TestEligibility_SixMonthsAndProbationPassed(t *testing.T) {
	ref := date(2025, time.June, 30)
	six := payroll.ServicePeriod{TotalMonths: 6, RemainingMonths: 6}
	five := payroll.ServicePeriod{TotalMonths: 5, RemainingMonths: 5}

	assert.True(t, payroll.EligibleForAnnualIncrease(six, nil, ref))
	assert.False(t, payroll.EligibleForAnnualIncrease(five, nil, ref))
	assert.True(t, payroll.EligibleForAnnualIncrease(six, ptrTime(ref), ref), "passed on reference day")
	assert.False(t, payroll.EligibleForAnnualIncrease(six, ptrTime(date(2025, time.July, 1)), ref))

	assert.True(t, payroll.EligibleForThirteenthMonth(six, ptrTime(date(2025, time.January, 1)), ref))
	assert.False(t, payroll.EligibleForThirteenthMonth(five, nil, ref))
}
