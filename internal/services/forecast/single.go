package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	domrepo "github.com/antonbeski0/Predflux/internal/domain/repository"
	"github.com/antonbeski0/Predflux/internal/services/features"
	"github.com/antonbeski0/Predflux/internal/services/nn"
)

// SingleAssetEngine trains one recurrent model on a normalized series and
// forecasts it autoregressively. Calls on one instance are serialized.
type SingleAssetEngine struct {
	*engine
}

// NewSingleAssetEngine builds an engine persisting under models.SingleAssetModel.
func NewSingleAssetEngine(store domrepo.ArtifactStore, opts ...Option) *SingleAssetEngine {
	return &SingleAssetEngine{engine: newEngine(models.SingleAssetModel, store, DefaultSingleConfig(), opts)}
}

// TrainAndPredict fits the model to series (already normalized) and returns
// opts.Horizon predictions in the same normalized frame.
//
// A failed save still returns the predictions together with an error
// wrapping models.ErrPersistence.
func (s *SingleAssetEngine) TrainAndPredict(ctx context.Context, series []float64, opts Options) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.setState(models.StatePreparing)
	opts, err := s.cfg.resolve(opts)
	if err != nil {
		return nil, s.fail(err)
	}

	if err := checkFinite(series); err != nil {
		return nil, s.fail(err)
	}
	ds, err := features.Build(series, opts.Lookback)
	if err != nil {
		return nil, s.fail(err)
	}
	if !s.initialized {
		if err := s.initLocked(ctx); err != nil {
			return nil, s.fail(err)
		}
		s.setState(models.StatePreparing)
	}

	net, err := s.prepareNetwork(nn.SingleAssetArchitecture(opts.Lookback, s.cfg.Units), opts.ResetWeights)
	if err != nil {
		return nil, s.fail(err)
	}

	samples := make([]nn.Sample, ds.Len())
	for i, w := range ds.Windows {
		samples[i] = nn.Sample{Inputs: [][][]float64{w.Input}, Target: w.Target}
	}
	if err := s.train(ctx, net, samples); err != nil {
		return nil, s.fail(err)
	}
	saveErr := s.persist(ctx, net)

	s.setState(models.StatePredicting)
	reg := newShiftRegister(tailSteps(series, opts.Lookback))
	preds, err := s.rollout(ctx, net, reg, opts.Horizon, "",
		func(w [][]float64) [][][]float64 { return [][][]float64{w} },
		func(p float64) []float64 { return []float64{p} },
	)
	if err != nil {
		return nil, s.fail(fmt.Errorf("forecast %s: %w", s.name, err))
	}

	s.setState(models.StateDone)
	s.metrics.RecordLatency("train_and_predict", time.Since(start).Seconds())
	return preds, saveErr
}
