package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	domrepo "github.com/antonbeski0/Predflux/internal/domain/repository"
	"github.com/antonbeski0/Predflux/pkg/kvstore"
	applogger "github.com/antonbeski0/Predflux/pkg/logger"
	"github.com/antonbeski0/Predflux/pkg/metrics"
)

// ModelStore persists model artifacts as JSON in a key-value store keyed by
// the bare slot name. A later Save to the same name replaces the earlier one.
type ModelStore struct {
	kv      kvstore.Store
	l       *applogger.Logger
	metrics domrepo.Metrics
}

// ModelStoreOption configures ModelStore.
type ModelStoreOption func(*ModelStore)

// WithStoreLogger injects a structured logger.
func WithStoreLogger(l *applogger.Logger) ModelStoreOption {
	return func(s *ModelStore) { s.l = l }
}

// WithStoreMetrics injects a metrics recorder.
func WithStoreMetrics(m domrepo.Metrics) ModelStoreOption {
	return func(s *ModelStore) { s.metrics = m }
}

func NewModelStore(kv kvstore.Store, opts ...ModelStoreOption) *ModelStore {
	s := &ModelStore{kv: kv, l: applogger.NewNop(), metrics: metrics.Nop{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes the artifact under name. Encoding and I/O failures wrap
// models.ErrPersistence.
func (s *ModelStore) Save(ctx context.Context, name string, a *models.ModelArtifact) error {
	start := time.Now()
	if a == nil {
		return fmt.Errorf("save %s: nil artifact: %w", name, models.ErrPersistence)
	}
	payload, err := json.Marshal(a)
	if err != nil {
		s.metrics.RecordStoreOp("save", "error")
		return fmt.Errorf("encode %s: %w: %w", name, models.ErrPersistence, err)
	}
	if err := s.kv.Put(ctx, name, payload); err != nil {
		s.metrics.RecordStoreOp("save", "error")
		s.l.Error("model save failed", applogger.String("model", name), applogger.Error(err))
		return fmt.Errorf("save %s: %w: %w", name, models.ErrPersistence, err)
	}
	s.metrics.RecordStoreOp("save", "ok")
	s.metrics.RecordLatency("model_save", time.Since(start).Seconds())
	s.l.Info("model saved",
		applogger.String("model", name),
		applogger.Int("bytes", len(payload)),
		applogger.Int("tensors", len(a.Weights)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// Load reads the artifact stored under name. It returns (nil, nil) when
// nothing has been saved yet.
func (s *ModelStore) Load(ctx context.Context, name string) (*models.ModelArtifact, error) {
	start := time.Now()
	payload, ok, err := s.kv.Get(ctx, name)
	if err != nil {
		s.metrics.RecordStoreOp("load", "error")
		return nil, fmt.Errorf("load %s: %w: %w", name, models.ErrPersistence, err)
	}
	if !ok {
		s.metrics.RecordStoreOp("load", "miss")
		return nil, nil
	}
	var a models.ModelArtifact
	if err := json.Unmarshal(payload, &a); err != nil {
		s.metrics.RecordStoreOp("load", "error")
		return nil, fmt.Errorf("decode %s: %w: %w", name, models.ErrPersistence, err)
	}
	s.metrics.RecordStoreOp("load", "hit")
	s.metrics.RecordLatency("model_load", time.Since(start).Seconds())
	return &a, nil
}

// MustLoad is Load that treats an empty slot as models.ErrModelMissing.
func (s *ModelStore) MustLoad(ctx context.Context, name string) (*models.ModelArtifact, error) {
	a, err := s.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("slot %q: %w", name, models.ErrModelMissing)
	}
	return a, nil
}

var _ domrepo.ArtifactStore = (*ModelStore)(nil)
