package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	domsvc "github.com/antonbeski0/Predflux/internal/domain/service"
	mid "github.com/antonbeski0/Predflux/internal/middleware"
	"github.com/antonbeski0/Predflux/internal/repository"
	"github.com/antonbeski0/Predflux/internal/services/forecast"
	"github.com/antonbeski0/Predflux/pkg/kvstore"
	applogger "github.com/antonbeski0/Predflux/pkg/logger"
	"github.com/antonbeski0/Predflux/pkg/metrics"
)

type captured struct {
	topic string
	key   string
	event models.ForecastEvent
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []captured
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, topic, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	var ev models.ForecastEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return err
	}
	p.msgs = append(p.msgs, captured{topic: topic, key: key, event: ev})
	return nil
}

func (p *fakePublisher) count(t models.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.msgs {
		if m.event.Type == t {
			n++
		}
	}
	return n
}

type fakeSentiment struct {
	scores map[string][]float64
	err    error
}

func (f *fakeSentiment) Scores(_ context.Context, q string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.scores[q], nil
}

type mapSource map[string][]float64

func (m mapSource) LatestValues(_ context.Context, sym string, n int) ([]float64, error) {
	v, ok := m[sym]
	if !ok {
		return nil, errors.New("unknown symbol " + sym)
	}
	if n < len(v) {
		v = v[len(v)-n:]
	}
	return v, nil
}

func prices(n int, base, phase float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + 10*math.Sin(float64(i)*0.4+phase)
	}
	return out
}

func newRunner(t *testing.T, pub *fakePublisher, src mapSource, sent *fakeSentiment) *ForecastRunner {
	t.Helper()
	store := repository.NewModelStore(kvstore.NewMemoryStore())
	events := NewEventSink(pub, "predflux.events", nil)

	single := forecast.DefaultSingleConfig()
	single.Units, single.Epochs = 4, 2
	multi := forecast.DefaultMultiConfig()
	multi.Units, multi.HeadUnits, multi.Epochs = 4, 4, 2

	se := forecast.NewSingleAssetEngine(store, forecast.WithConfig(single), forecast.WithObserver(events))
	me := forecast.NewMultiAssetEngine(store, forecast.WithConfig(multi), forecast.WithObserver(events))
	var ss domsvc.SentimentSource
	if sent != nil {
		ss = sent
	}
	return NewForecastRunner(se, me, src, ss, events, nil)
}

func TestRunSingleDenormalizes(t *testing.T) {
	pub := &fakePublisher{}
	r := newRunner(t, pub, nil, nil)

	res, err := r.RunSingle(context.Background(), models.SingleForecastRequest{
		Values: prices(30, 100, 0), Lookback: 8, Horizon: 5,
	})
	require.NoError(t, err)
	require.Len(t, res.Predictions, 5)
	require.Len(t, res.Prices, 5)
	require.NotNil(t, res.Scale)
	for i, p := range res.Predictions {
		assert.InDelta(t, res.Scale.Min+p*(res.Scale.Max-res.Scale.Min), res.Prices[i], 1e-9)
	}
	assert.NotEmpty(t, res.JobID)

	assert.Equal(t, 2, pub.count(models.EventEpoch))
	assert.Equal(t, 1, pub.count(models.EventResult))
	for _, m := range pub.msgs {
		assert.Equal(t, res.JobID, m.key)
		assert.Equal(t, "predflux.events", m.topic)
	}
}

func TestRunSingleFromPoints(t *testing.T) {
	r := newRunner(t, &fakePublisher{}, nil, nil)
	pts := make([]models.Point, 12)
	for i := range pts {
		pts[i] = models.Point{X: float64(i), Y: 50 + 20*math.Cos(float64(i))}
	}
	res, err := r.RunSingle(context.Background(), models.SingleForecastRequest{Points: pts, Lookback: 4, Horizon: 3})
	require.NoError(t, err)
	assert.Len(t, res.Predictions, 3)
	assert.Nil(t, res.Prices)
	assert.Nil(t, res.Scale)
}

func TestRunSingleDegenerate(t *testing.T) {
	pub := &fakePublisher{}
	r := newRunner(t, pub, nil, nil)
	_, err := r.RunSingle(context.Background(), models.SingleForecastRequest{
		Values: []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5}, Lookback: 8, Horizon: 2,
	})
	require.ErrorIs(t, err, models.ErrDegenerateSeries)
	assert.Equal(t, 1, pub.count(models.EventFailed))
}

func TestRunMultiUsesSentimentQuery(t *testing.T) {
	sent := &fakeSentiment{scores: map[string][]float64{"apple": {2, 4}}}
	r := newRunner(t, &fakePublisher{}, nil, sent)

	res, err := r.RunMulti(context.Background(), models.MultiForecastRequest{
		Assets: []models.AssetInput{
			{Name: "AAPL", Values: prices(20, 180, 0), SentimentQuery: "apple"},
			{Name: "MSFT", Values: prices(20, 400, 1), Sentiment: []float64{-1, 1, 3}},
			{Name: "SHORT", Values: prices(4, 10, 0)},
		},
		Lookback: 5,
		Horizon:  4,
	})
	require.NoError(t, err)
	require.Len(t, res.Assets, 2)
	assert.Equal(t, 3.0, res.Assets[0].AverageSentiment)
	assert.Equal(t, 1.0, res.Assets[1].AverageSentiment)
	assert.Len(t, res.Assets[1].Prices, 4)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "SHORT", res.Skipped[0].Asset)
}

func TestRunMultiSentimentFailureIsNeutral(t *testing.T) {
	r := newRunner(t, &fakePublisher{}, nil, &fakeSentiment{err: errors.New("quota")})
	res, err := r.RunMulti(context.Background(), models.MultiForecastRequest{
		Assets:   []models.AssetInput{{Name: "AAPL", Values: prices(12, 180, 0), SentimentQuery: "apple"}},
		Lookback: 4, Horizon: 2,
	})
	require.NoError(t, err)
	assert.Zero(t, res.Assets[0].AverageSentiment)
}

func TestRunMultiRejectsDuplicateNames(t *testing.T) {
	r := newRunner(t, &fakePublisher{}, nil, nil)
	_, err := r.RunMulti(context.Background(), models.MultiForecastRequest{
		Assets: []models.AssetInput{
			{Name: "AAPL", Values: prices(12, 1, 0)},
			{Name: "AAPL", Values: prices(12, 1, 1)},
		},
		Lookback: 4, Horizon: 2,
	})
	require.ErrorIs(t, err, models.ErrInvalidSeries)
}

func TestRunSymbolsAlignsLengths(t *testing.T) {
	src := mapSource{"AAPL": prices(40, 180, 0), "MSFT": prices(25, 400, 1)}
	sent := &fakeSentiment{scores: map[string][]float64{"AAPL": {1}}}
	r := newRunner(t, &fakePublisher{}, src, sent)

	res, err := r.RunSymbols(context.Background(), models.SymbolsForecastRequest{
		Symbols: []string{"AAPL", "MSFT"}, Points: 30, Lookback: 6, Horizon: 3, Sentiment: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Assets, 2)
	assert.Equal(t, 1.0, res.Assets[0].AverageSentiment)
	assert.Empty(t, res.Skipped)
}

func TestRunSymbolsSkipsShortSymbol(t *testing.T) {
	src := mapSource{"AAA": prices(80, 100, 0), "BBB": prices(80, 50, 1), "CCC": prices(5, 10, 2)}
	pub := &fakePublisher{}
	r := newRunner(t, pub, src, nil)

	res, err := r.RunSymbols(context.Background(), models.SymbolsForecastRequest{
		Symbols: []string{"AAA", "CCC", "BBB"}, Points: 80, Lookback: 10, Horizon: 3,
	})
	require.NoError(t, err)
	require.Len(t, res.Assets, 2)
	assert.Equal(t, "AAA", res.Assets[0].Asset)
	assert.Equal(t, "BBB", res.Assets[1].Asset)
	for _, a := range res.Assets {
		assert.Len(t, a.Predictions, 3)
	}
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "CCC", res.Skipped[0].Asset)
	assert.Equal(t, 5, res.Skipped[0].Length)
	assert.Contains(t, res.Skipped[0].Reason, "11")
}

func TestRunSymbolsAllShort(t *testing.T) {
	src := mapSource{"AAA": prices(4, 100, 0), "BBB": prices(6, 50, 1)}
	r := newRunner(t, &fakePublisher{}, src, nil)

	_, err := r.RunSymbols(context.Background(), models.SymbolsForecastRequest{
		Symbols: []string{"AAA", "BBB"}, Points: 30, Lookback: 10, Horizon: 3,
	})
	require.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestRunSymbolsUnknownSymbol(t *testing.T) {
	r := newRunner(t, &fakePublisher{}, mapSource{}, nil)
	_, err := r.RunSymbols(context.Background(), models.SymbolsForecastRequest{
		Symbols: []string{"NOPE"}, Points: 30, Lookback: 6, Horizon: 3,
	})
	require.Error(t, err)
}

func TestPersistenceWarning(t *testing.T) {
	w, err := persistenceWarning(true, errors.Join(models.ErrPersistence, errors.New("disk")))
	require.NoError(t, err)
	assert.Contains(t, w, "not saved")

	_, err = persistenceWarning(false, models.ErrPersistence)
	require.ErrorIs(t, err, models.ErrPersistence)
}

func TestSeriesBuffersRing(t *testing.T) {
	b := NewSeriesBuffers(3)
	ctx := context.Background()
	_, err := b.LatestValues(ctx, "AAPL", 2)
	require.ErrorIs(t, err, models.ErrInsufficientData)

	for i := 1; i <= 5; i++ {
		b.Append(&models.Trade{Symbol: "AAPL", Price: float64(i)})
	}
	b.Append(&models.Trade{Symbol: "MSFT", Price: 9})

	vals, err := b.LatestValues(ctx, "AAPL", 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5}, vals)
	vals, err = b.LatestValues(ctx, "AAPL", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5}, vals)
	vals, err = b.LatestValues(ctx, "MSFT", 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{9}, vals)
	assert.Equal(t, 3, b.Len("AAPL"))
	assert.Equal(t, []string{"AAPL", "MSFT"}, b.Symbols())
}

func TestChainSourceFallsBack(t *testing.T) {
	live := NewSeriesBuffers(10)
	live.Append(&models.Trade{Symbol: "AAPL", Price: 1})
	live.Append(&models.Trade{Symbol: "AAPL", Price: 2})
	chain := ChainSource{mapSource{}, live}

	vals, err := chain.LatestValues(context.Background(), "AAPL", 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, vals)

	_, err = chain.LatestValues(context.Background(), "MSFT", 5)
	require.Error(t, err)
}

func TestEventSinkSwallowsPublishErrors(t *testing.T) {
	sink := NewEventSink(&fakePublisher{err: errors.New("broker down")}, "t", nil)
	sink.OnProgress(WithJobID(context.Background(), "j1"), models.ProgressEvent{Phase: models.PhaseTraining, Epoch: 1})

	var nilSink *EventSink
	nilSink.emit(context.Background(), models.ForecastEvent{Type: models.EventResult})
}

func TestForecastRequestHandler(t *testing.T) {
	pub := &fakePublisher{}
	h := NewForecastRequestHandler("predflux.requests", newRunner(t, pub, nil, nil), metrics.Nop{}, applogger.NewNop())
	assert.Equal(t, "predflux.requests", h.Topic())
	ctx := context.Background()

	job, _ := json.Marshal(models.ForecastJob{
		JobID: "job-1",
		Kind:  models.RequestSingle,
		Single: &models.SingleForecastRequest{
			Values: prices(20, 50, 0), Horizon: 3,
		},
	})
	require.NoError(t, h.Handle(ctx, job))
	require.Equal(t, 1, pub.count(models.EventResult))
	assert.Equal(t, "job-1", pub.msgs[len(pub.msgs)-1].key)

	// permanent failures are acknowledged
	require.NoError(t, h.Handle(ctx, []byte("{not json")))
	require.NoError(t, h.Handle(ctx, []byte(`{"job_id":"x","kind":"bogus"}`)))
	require.NoError(t, h.Handle(ctx, []byte(`{"job_id":"x","kind":"multi"}`)))
	flat, _ := json.Marshal(models.ForecastJob{Kind: models.RequestSingle, Single: &models.SingleForecastRequest{
		Values: []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
	}})
	require.NoError(t, h.Handle(ctx, flat))
}

type fakeStream struct {
	mu         sync.Mutex
	trades     []*models.Trade
	reads      int
	reconnects int
	connected  bool
}

func (f *fakeStream) Connect(context.Context) error   { f.connected = true; return nil }
func (f *fakeStream) Subscribe(context.Context) error { return nil }
func (f *fakeStream) Close() error                    { f.connected = false; return nil }
func (f *fakeStream) IsConnected() bool               { return f.connected }

func (f *fakeStream) Reconnect(context.Context) error {
	f.mu.Lock()
	f.reconnects++
	f.mu.Unlock()
	return nil
}

// Read serves the queued trades on the first call, then fails once, then
// blocks until ctx ends.
func (f *fakeStream) Read(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	f.mu.Lock()
	f.reads++
	n := f.reads
	f.mu.Unlock()
	tr := make(chan *models.Trade, len(f.trades))
	errs := make(chan error, 1)
	switch n {
	case 1:
		for _, t := range f.trades {
			tr <- t
		}
		errs <- errors.New("eof")
		close(tr)
		close(errs)
	default:
		go func() {
			<-ctx.Done()
			close(tr)
			close(errs)
		}()
	}
	return tr, errs
}

func TestLiveCollectorFillsBuffers(t *testing.T) {
	stream := &fakeStream{trades: []*models.Trade{
		{Symbol: "AAPL", Timestamp: 1, Price: 10},
		{Symbol: "AAPL", Timestamp: 2, Price: -1},
		{Symbol: "AAPL", Timestamp: 3, Price: 11},
	}}
	buffers := NewSeriesBuffers(16)
	pipe := mid.NewRealtimePipeline(buffers, metrics.Nop{}, mid.WithMaxRPS(0))
	c := NewLiveCollector(stream, pipe, buffers, metrics.Nop{}, applogger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.IsConnected())

	require.Eventually(t, func() bool {
		stream.mu.Lock()
		defer stream.mu.Unlock()
		return stream.reconnects == 1 && stream.reads >= 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	require.NoError(t, c.Shutdown(shutdownCtx))

	vals, err := c.Buffers().LatestValues(context.Background(), "AAPL", 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11}, vals)
}

func TestPermanentErrors(t *testing.T) {
	assert.True(t, permanent(fmt.Errorf("x: %w", models.ErrInvalidOptions)))
	assert.True(t, permanent(fmt.Errorf("x: %w", models.ErrInsufficientData)))
	assert.False(t, permanent(fmt.Errorf("x: %w", models.ErrPersistence)))
}
