package analysis

import (
	"testing"
	"time"

	"stock-screener/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyBars(start time.Time, n int) []models.MBar {
	var bars []models.MBar
	for d := start; len(bars) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		i := float64(len(bars))
		bars = append(bars, models.MBar{Timestamp: d, Open: 100 + i, High: 101 + i, Low: 99 + i, Close: 100.5 + i, Volume: 10})
	}
	return bars
}

func TestResampleWeekly(t *testing.T) {
	r := NewTimeSeriesResampler(nil)
	// Wednesday 2025-03-05: 3 weekdays, then a full week of 5
	bars := dailyBars(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), 8)
	weekly := r.ResampleBars(bars, "1wk")

	require.Len(t, weekly, 2)
	assert.Equal(t, bars[0].Open, weekly[0].Open)
	assert.Equal(t, bars[2].Close, weekly[0].Close)
	assert.Equal(t, int64(30), weekly[0].Volume)
	assert.Equal(t, bars[7].High, weekly[1].High)
	assert.Equal(t, bars[3].Low, weekly[1].Low)
	assert.Equal(t, int64(50), weekly[1].Volume)
}

func TestResampleMonthly(t *testing.T) {
	r := NewTimeSeriesResampler(nil)
	bars := dailyBars(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 65)
	monthly := r.ResampleBars(bars, "1mo")

	require.Len(t, monthly, 4) // Jan, Feb, Mar, Apr 1
	assert.Equal(t, time.January, monthly[0].Timestamp.Month())
	assert.Equal(t, time.April, monthly[3].Timestamp.Month())
}

func TestResampleDailyIsIdentity(t *testing.T) {
	r := NewTimeSeriesResampler(nil)
	bars := dailyBars(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 5)
	assert.Equal(t, bars, r.ResampleBars(bars, "1d"))
}

func TestBucketStartMonday(t *testing.T) {
	r := NewTimeSeriesResampler(nil)
	sunday := time.Date(2025, 3, 9, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), r.BucketStart(sunday, "1wk"))
}
