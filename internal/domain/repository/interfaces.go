package repository

import (
	"context"

	"github.com/antonbeski0/Predflux/internal/domain/models"
)

// ArtifactStore persists one model artifact per slot name.
// Load returns (nil, nil) when the slot is empty.
type ArtifactStore interface {
	Save(ctx context.Context, name string, a *models.ModelArtifact) error
	Load(ctx context.Context, name string) (*models.ModelArtifact, error)
}

// SeriesSource yields the latest raw observations for a symbol, oldest first.
type SeriesSource interface {
	LatestValues(ctx context.Context, symbol string, n int) ([]float64, error)
}

// MarketStream is a live trade feed.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// EventPublisher ships keyed JSON events to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// Metrics records forecasting telemetry.
type Metrics interface {
	RecordEpoch(model string, epoch int, loss float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordStoreOp(op, result string)
	RecordLastPrice(symbol string, price float64)
}
