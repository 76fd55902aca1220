package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	drepo "github.com/antonbeski0/Predflux/internal/domain/repository"
	mid "github.com/antonbeski0/Predflux/internal/middleware"
	applogger "github.com/antonbeski0/Predflux/pkg/logger"
)

// LiveCollector pumps trades from the market stream through the pipeline
// into the series buffers, reconnecting on stream errors.
type LiveCollector struct {
	stream  drepo.MarketStream
	pipe    *mid.RealtimePipeline
	buffers *SeriesBuffers
	metrics drepo.Metrics
	l       *applogger.Logger

	wg sync.WaitGroup
}

func NewLiveCollector(stream drepo.MarketStream, pipe *mid.RealtimePipeline, buffers *SeriesBuffers, metrics drepo.Metrics, l *applogger.Logger) *LiveCollector {
	return &LiveCollector{stream: stream, pipe: pipe, buffers: buffers, metrics: metrics, l: l}
}

// IsConnected returns true if the market stream is connected.
func (c *LiveCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Buffers returns the series buffers the collector fills.
func (c *LiveCollector) Buffers() *SeriesBuffers { return c.buffers }

// Start connects, subscribes and consumes in the background until ctx ends.
func (c *LiveCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.wg.Add(1)
	go c.run(ctx)
	return nil
}

func (c *LiveCollector) run(ctx context.Context) {
	defer c.wg.Done()
	for ctx.Err() == nil {
		trCh, errCh := c.stream.Read(ctx)
		c.consume(ctx, trCh, errCh)
		if ctx.Err() != nil {
			return
		}
		c.metrics.RecordError("stream")
		if err := c.stream.Reconnect(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.l.Warn("stream reconnect failed", applogger.Error(err))
		}
	}
}

// consume returns when the read channels close or ctx ends.
func (c *LiveCollector) consume(ctx context.Context, trCh <-chan *models.Trade, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			c.l.Warn("stream error", applogger.Error(err))
		case t, ok := <-trCh:
			if !ok {
				return
			}
			if err := c.pipe.Process(ctx, t); err != nil && !errors.Is(err, mid.ErrThrottled) {
				c.l.Debug("trade rejected", applogger.Error(err))
			}
		}
	}
}

// Shutdown closes the stream and waits for the consumer to exit. The
// context passed to Start must already be cancelled or about to be.
func (c *LiveCollector) Shutdown(ctx context.Context) error {
	err := c.stream.Close()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}
