package finnhub

import (
	"context"
	"io"
	"net/http"
	"testing"

	"stock-screener/src/logger"
	"stock-screener/src/models"
	"stock-screener/src/network"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSource(apiKey string) *FinnhubSource {
	cfg := &models.MConfig{}
	cfg.Network.RequestTimeout = 1
	log := logger.NewLogger(nil, "finnhub-test")
	log.SetOutput(io.Discard)
	return NewFinnhubSource(cfg, models.MSourceConfig{Name: "finnhub", Kind: "finnhub", Tier: "secondary", APIKey: apiKey}, log)
}

func TestTransformCandles(t *testing.T) {
	in := finnhub.StockCandles{
		O: []float32{10, 11},
		H: []float32{12, 13},
		L: []float32{9, 10},
		C: []float32{11, 12},
		V: []float32{1000, 2000},
		T: []int64{1741158000, 1741244400},
		S: "ok",
	}
	bars, err := TransformCandles("AAPL", in)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 12.0, bars[1].Close)
	assert.Equal(t, int64(2000), bars[1].Volume)
	assert.Equal(t, int64(1741158000), bars[0].Timestamp.Unix())
}

func TestTransformCandlesMismatch(t *testing.T) {
	in := finnhub.StockCandles{
		O: []float32{10},
		H: []float32{12, 13},
		L: []float32{9, 10},
		C: []float32{11, 12},
		V: []float32{1000, 2000},
		T: []int64{1, 2},
	}
	_, err := TransformCandles("AAPL", in)
	assert.Error(t, err)

	bars, err := TransformCandles("AAPL", finnhub.StockCandles{S: "no_data"})
	assert.NoError(t, err)
	assert.Empty(t, bars)
}

func TestTransformCompanyProfile(t *testing.T) {
	f := TransformCompanyProfile("ERIC-B.ST", finnhub.CompanyProfile2{
		Name:                 "Ericsson",
		Currency:             "SEK",
		FinnhubIndustry:      "Communications",
		MarketCapitalization: 250000,
	})
	assert.Equal(t, "Ericsson", f.Name.String)
	assert.Equal(t, "Communications", f.Sector.String)
	assert.InDelta(t, 2.5e11, f.MarketCap.Float64, 1)
	assert.False(t, f.PERatio.Valid)
	assert.Equal(t, 1, f.MetricCount())
}

func TestWithoutAPIKeyIsUnsupported(t *testing.T) {
	s := newSource("")
	assert.Equal(t, models.SourceSecondary, s.Source())

	res := s.FetchPrice(context.Background(), "AAPL", "1d", "1y")
	assert.Equal(t, models.FetchUnsupported, res.Kind)

	fres := s.FetchFundamentals(context.Background(), "AAPL")
	assert.Equal(t, models.FetchUnsupported, fres.Kind)
}

func TestIndexTickersAreUnsupported(t *testing.T) {
	res := newSource("key").FetchPrice(context.Background(), "^OMX", "1d", "1y")
	assert.Equal(t, models.FetchUnsupported, res.Kind)
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, models.FetchRateLimited, classify(ctx, &http.Response{StatusCode: 429}, assert.AnError))
	assert.Equal(t, models.FetchEmpty, classify(ctx, &http.Response{StatusCode: 404}, assert.AnError))
	assert.Equal(t, models.FetchRateLimited, classify(ctx, nil, network.ErrTooManyRequests))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Equal(t, models.FetchTimeout, classify(cancelled, nil, assert.AnError))
}
