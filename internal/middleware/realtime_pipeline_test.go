package middleware

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	"github.com/antonbeski0/Predflux/pkg/metrics"
)

type sliceSink struct{ trades []*models.Trade }

func (s *sliceSink) Append(t *models.Trade) { s.trades = append(s.trades, t) }

func trade(sym string, price float64) *models.Trade {
	return &models.Trade{Symbol: sym, Timestamp: 1700000000, Price: price, Volume: 1}
}

func TestPipelineValidates(t *testing.T) {
	sink := &sliceSink{}
	p := NewRealtimePipeline(sink, metrics.Nop{}, WithMaxRPS(0))
	now := time.Now()

	require.Error(t, p.process(nil, now))
	require.Error(t, p.process(trade("", 1), now))
	require.Error(t, p.process(trade("AAPL", 0), now))
	require.Error(t, p.process(trade("AAPL", math.NaN()), now))
	require.Error(t, p.process(&models.Trade{Symbol: "AAPL", Price: 1}, now))
	require.NoError(t, p.process(trade("AAPL", 1), now))
	assert.Len(t, sink.trades, 1)
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	sink := &sliceSink{}
	p := NewRealtimePipeline(sink, metrics.Nop{}, WithMaxRPS(2))
	now := time.Now()

	require.NoError(t, p.process(trade("AAPL", 1), now))
	require.ErrorIs(t, p.process(trade("AAPL", 2), now.Add(100*time.Millisecond)), ErrThrottled)
	require.NoError(t, p.process(trade("MSFT", 3), now.Add(100*time.Millisecond)))
	require.NoError(t, p.process(trade("AAPL", 4), now.Add(600*time.Millisecond)))
	assert.Len(t, sink.trades, 3)
}

func TestPipelineTransform(t *testing.T) {
	sink := &sliceSink{}
	p := NewRealtimePipeline(sink, metrics.Nop{}, WithMaxRPS(0), WithTransform(func(tr *models.Trade) *models.Trade {
		cp := *tr
		cp.Symbol = "BINANCE:" + cp.Symbol
		return &cp
	}))
	require.NoError(t, p.process(trade("BTCUSDT", 1), time.Now()))
	assert.Equal(t, "BINANCE:BTCUSDT", sink.trades[0].Symbol)
}
