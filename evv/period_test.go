package evv

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWindowFor(t *testing.T) {
	ispStart := date(2025, 1, 1)
	ispEnd := date(2025, 12, 31)

	tests := []struct {
		name        string
		period      UnitsPeriod
		serviceDate time.Time
		start, end  time.Time
	}{
		{"weekly midweek", PeriodWeekly, date(2025, 8, 27), date(2025, 8, 24), date(2025, 8, 30)},
		{"weekly on sunday", PeriodWeekly, date(2025, 8, 24), date(2025, 8, 24), date(2025, 8, 30)},
		{"weekly on saturday", PeriodWeekly, date(2025, 8, 30), date(2025, 8, 24), date(2025, 8, 30)},
		{"weekly across month boundary", PeriodWeekly, date(2025, 9, 1), date(2025, 8, 31), date(2025, 9, 6)},
		{"monthly", PeriodMonthly, date(2025, 2, 10), date(2025, 2, 1), date(2025, 2, 28)},
		{"monthly 31 days", PeriodMonthly, date(2025, 8, 27), date(2025, 8, 1), date(2025, 8, 31)},
		{"yearly", PeriodYearly, date(2025, 6, 15), date(2025, 1, 1), date(2025, 12, 31)},
		{"isp period", PeriodISP, date(2025, 6, 15), ispStart, ispEnd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := WindowFor(tt.period, tt.serviceDate, ispStart, ispEnd)
			require.NoError(t, err)
			assert.Equal(t, tt.start, w.Start)
			assert.Equal(t, tt.end, w.End)
			assert.True(t, w.Contains(tt.serviceDate))
		})
	}
}

func TestWindowForUnknownPeriod(t *testing.T) {
	_, err := WindowFor(UnitsPeriod("fortnightly"), date(2025, 8, 27), date(2025, 1, 1), date(2025, 12, 31))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: date(2025, 8, 24), End: date(2025, 8, 30)}

	assert.True(t, w.Contains(date(2025, 8, 24)))
	assert.True(t, w.Contains(date(2025, 8, 30)))
	assert.True(t, w.Contains(time.Date(2025, 8, 30, 23, 59, 0, 0, time.UTC)))
	assert.False(t, w.Contains(date(2025, 8, 23)))
	assert.False(t, w.Contains(date(2025, 8, 31)))
}
