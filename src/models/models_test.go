package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesJSONUsesNullForNaN(t *testing.T) {
	data, err := json.Marshal(MSeries{math.NaN(), 1.5, 2})
	require.NoError(t, err)
	assert.Equal(t, `[null,1.5,2]`, string(data))

	var back MSeries
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 3)
	assert.True(t, math.IsNaN(back[0]))
	assert.Equal(t, 2.0, back.Last())
}

func TestIndicatorSetMarshals(t *testing.T) {
	set := MIndicatorSet{Ticker: "X", Close: MSeries{1}, RSI: MSeries{math.NaN()}}
	_, err := json.Marshal(set)
	assert.NoError(t, err)
}

func TestCacheKeyString(t *testing.T) {
	k := MCacheKey{Ticker: "ABC.ST", Timeframe: "1d", Period: "1y", Source: SourcePrimary}
	assert.Equal(t, "ABC.ST|1d|1y|primary", k.String())
	assert.Equal(t, FundamentalsTimeframe, FundamentalsKey("ABC.ST", SourceSecondary).Timeframe)
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC), PeriodStart("3mo", now))
	assert.Equal(t, time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC), PeriodStart("1y", now))
	assert.True(t, PeriodStart("max", now).Before(PeriodStart("5y", now)))
	assert.True(t, IsValidTimeframe("1wk"))
	assert.False(t, IsValidTimeframe("1h"))
	assert.False(t, IsValidPeriod("10y"))
}

func TestFetchResultOK(t *testing.T) {
	assert.False(t, MFetchResult{Kind: FetchOK}.OK(), "no bars is not ok")
	assert.True(t, MFetchResult{Kind: FetchOK, Series: MPriceSeries{Bars: []MBar{{Close: 1}}}}.OK())
	assert.Equal(t, SourceSecondary, SourceForTier("secondary"))
	assert.Equal(t, SourcePrimary, SourceForTier("anything"))
}
