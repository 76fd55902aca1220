package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	domrepo "github.com/antonbeski0/Predflux/internal/domain/repository"
)

// Sink receives trades that passed the pipeline.
type Sink interface {
	Append(t *models.Trade)
}

// RealtimePipeline sits between the live stream and the series buffers.
// It validates, optionally transforms, and throttles trades per symbol.
type RealtimePipeline struct {
	sink      Sink
	metrics   domrepo.Metrics
	maxRPS    float64
	burst     int
	transform func(*models.Trade) *models.Trade

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

type PipelineOption func(*RealtimePipeline)

// WithMaxRPS sets the max trades per second accepted per symbol.
// Zero or less disables throttling.
func WithMaxRPS(n float64) PipelineOption {
	return func(p *RealtimePipeline) { p.maxRPS = n }
}

// WithBurst sets how many trades may arrive back to back before throttling.
func WithBurst(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.burst = n
		}
	}
}

// WithTransform sets a hook applied to each trade before throttling.
func WithTransform(fn func(*models.Trade) *models.Trade) PipelineOption {
	return func(p *RealtimePipeline) { p.transform = fn }
}

// NewRealtimePipeline creates a new pipeline.
func NewRealtimePipeline(sink Sink, metrics domrepo.Metrics, opts ...PipelineOption) *RealtimePipeline {
	p := &RealtimePipeline{
		sink:     sink,
		metrics:  metrics,
		maxRPS:   20,
		burst:    1,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ErrThrottled reports a trade dropped by the per-symbol rate limit.
var ErrThrottled = errors.New("trade throttled")

// Process validates and throttles t, then hands it to the sink.
func (p *RealtimePipeline) Process(_ context.Context, t *models.Trade) error {
	return p.process(t, time.Now())
}

func (p *RealtimePipeline) process(t *models.Trade, now time.Time) error {
	if err := validateTrade(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		t = p.transform(t)
		if err := validateTrade(t); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.allow(t.Symbol, now) {
		p.metrics.RecordError("pipeline_throttle")
		return ErrThrottled
	}
	p.sink.Append(t)
	p.metrics.RecordLastPrice(t.Symbol, t.Price)
	p.metrics.RecordLatency("pipeline_process", time.Since(now).Seconds())
	return nil
}

func validateTrade(t *models.Trade) error {
	if t == nil {
		return fmt.Errorf("trade nil")
	}
	if t.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if t.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if math.IsNaN(t.Price) || math.IsInf(t.Price, 0) || t.Price <= 0 {
		return fmt.Errorf("price invalid: %g", t.Price)
	}
	if t.Volume < 0 {
		return fmt.Errorf("negative volume")
	}
	return nil
}

func (p *RealtimePipeline) allow(symbol string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	lim, ok := p.limiters[symbol]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(p.maxRPS), p.burst)
		p.limiters[symbol] = lim
	}
	p.mu.Unlock()
	return lim.AllowN(now, 1)
}
