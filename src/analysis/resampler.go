package analysis

import (
	"sort"
	"time"

	"stock-screener/src/analysis/core"
	"stock-screener/src/models"
)

// TimeSeriesResampler groups daily bars into calendar-aligned buckets.
type TimeSeriesResampler struct {
	Location *time.Location
}

// -----------------------------------------------------------------------------

func NewTimeSeriesResampler(loc *time.Location) *TimeSeriesResampler {
	if loc == nil {
		loc = time.UTC
	}
	return &TimeSeriesResampler{Location: loc}
}

// -----------------------------------------------------------------------------

// BucketStart returns the start of the bucket holding t: the Monday of its
// ISO week for "1wk", the first of the month for "1mo", midnight otherwise.
func (r *TimeSeriesResampler) BucketStart(t time.Time, timeframe string) time.Time {
	local := t.In(r.Location)
	y, m, d := local.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, r.Location)

	switch timeframe {
	case "1wk":
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	case "1mo":
		return time.Date(y, m, 1, 0, 0, 0, 0, r.Location)
	default:
		return day
	}
}

// -----------------------------------------------------------------------------

// ResampleIndices returns index groups of consecutive timestamps sharing a
// bucket. timestamps must be ascending.
func (r *TimeSeriesResampler) ResampleIndices(timestamps []time.Time, timeframe string) [][]int {
	var groups [][]int
	var current []int
	var currentStart time.Time

	for i, ts := range timestamps {
		start := r.BucketStart(ts, timeframe)
		if len(current) > 0 && !start.Equal(currentStart) {
			groups = append(groups, current)
			current = nil
		}
		if len(current) == 0 {
			currentStart = start
		}
		current = append(current, i)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// -----------------------------------------------------------------------------

// ResampleBars aggregates bars to timeframe. Each output bar is stamped with
// its bucket's first input timestamp.
func (r *TimeSeriesResampler) ResampleBars(bars []models.MBar, timeframe string) []models.MBar {
	if timeframe == "1d" || len(bars) == 0 {
		return bars
	}

	sorted := make([]models.MBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	timestamps := make([]time.Time, len(sorted))
	for i, b := range sorted {
		timestamps[i] = b.Timestamp
	}

	groups := r.ResampleIndices(timestamps, timeframe)
	out := make([]models.MBar, 0, len(groups))
	for _, idx := range groups {
		n := len(idx)
		opens, highs, lows, closes := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
		volumes := make([]int64, n)
		for j, k := range idx {
			b := sorted[k]
			opens[j], highs[j], lows[j], closes[j], volumes[j] = b.Open, b.High, b.Low, b.Close, b.Volume
		}

		o, h, l, c, v := core.AggregateBar(opens, highs, lows, closes, volumes)
		out = append(out, models.MBar{
			Timestamp: sorted[idx[0]].Timestamp,
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
			Volume:    v,
		})
	}
	return out
}
