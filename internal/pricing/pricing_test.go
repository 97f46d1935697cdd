package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestQuote_ThreeDayRental(t *testing.T) {
	// 300000/day, 2025-07-01 -> 2025-07-04 is a 3-day rental at 12% tax.
	snap, err := Quote(300000, date(2025, 7, 1), date(2025, 7, 4), 0.12)

	require.NoError(t, err)
	assert.Equal(t, 3, snap.TotalDays)
	assert.Equal(t, int64(300000), snap.DailyRate)
	assert.Equal(t, int64(900000), snap.Subtotal)
	assert.Equal(t, int64(108000), snap.TaxAmount)
	assert.Equal(t, int64(1008000), snap.TotalAmount)
}

func TestQuote_OneNight(t *testing.T) {
	snap, err := Quote(250000, date(2025, 6, 1), date(2025, 6, 2), 0.12)

	require.NoError(t, err)
	assert.Equal(t, 1, snap.TotalDays)
	assert.Equal(t, int64(250000), snap.Subtotal)
}

func TestQuote_Invariants(t *testing.T) {
	cases := []struct {
		rate    int64
		start   time.Time
		end     time.Time
		taxRate float64
	}{
		{300000, date(2025, 7, 1), date(2025, 7, 4), 0.12},
		{150000, date(2025, 1, 31), date(2025, 2, 3), 0.11},
		{999999, date(2025, 12, 28), date(2026, 1, 2), 0.1},
		{1, date(2025, 3, 1), date(2025, 3, 31), 0},
		{75000, date(2025, 8, 10), date(2025, 8, 11), 1},
	}

	for _, c := range cases {
		snap, err := Quote(c.rate, c.start, c.end, c.taxRate)
		require.NoError(t, err)

		assert.Equal(t, snap.DailyRate*int64(snap.TotalDays), snap.Subtotal)
		assert.Equal(t, snap.Subtotal+snap.TaxAmount, snap.TotalAmount)

		// Deterministic: the same inputs must reproduce the snapshot exactly.
		again, err := Quote(c.rate, c.start, c.end, c.taxRate)
		require.NoError(t, err)
		assert.Equal(t, snap, again)
	}
}

func TestQuote_TaxRounding(t *testing.T) {
	// 100001 * 0.115 = 11500.115 -> rounds to 11500
	snap, err := Quote(100001, date(2025, 5, 1), date(2025, 5, 2), 0.115)
	require.NoError(t, err)
	assert.Equal(t, int64(11500), snap.TaxAmount)

	// 100005 * 0.115 = 11500.575 -> rounds to 11501
	snap, err = Quote(100005, date(2025, 5, 1), date(2025, 5, 2), 0.115)
	require.NoError(t, err)
	assert.Equal(t, int64(11501), snap.TaxAmount)
}

func TestQuote_InvalidInputs(t *testing.T) {
	_, err := Quote(300000, date(2025, 7, 4), date(2025, 7, 1), 0.12)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = Quote(300000, date(2025, 7, 1), date(2025, 7, 1), 0.12)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = Quote(0, date(2025, 7, 1), date(2025, 7, 4), 0.12)
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = Quote(-5, date(2025, 7, 1), date(2025, 7, 4), 0.12)
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = Quote(300000, date(2025, 7, 1), date(2025, 7, 4), 1.5)
	assert.ErrorIs(t, err, ErrInvalidTax)

	_, err = Quote(300000, date(2025, 7, 1), date(2025, 7, 4), -0.1)
	assert.ErrorIs(t, err, ErrInvalidTax)
}

func TestDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2025, 7, 1, 23, 30, 0, 0, time.UTC)
	end := time.Date(2025, 7, 4, 0, 15, 0, 0, time.UTC)

	assert.Equal(t, 3, DaysBetween(start, end))
}
