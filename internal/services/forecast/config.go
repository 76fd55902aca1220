package forecast

import (
	"fmt"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	"github.com/antonbeski0/Predflux/internal/services/nn"
)

// Config holds the hyperparameters of one engine.
type Config struct {
	Lookback     int
	Horizon      int
	Epochs       int
	BatchSize    int
	Units        int
	HeadUnits    int
	LearningRate float64
	Shuffle      bool
	Seed         int64
}

// DefaultSingleConfig is the single-asset setup: 8-step lookback, 20-step
// horizon, 60 epochs.
func DefaultSingleConfig() Config {
	return Config{
		Lookback:     8,
		Horizon:      20,
		Epochs:       60,
		BatchSize:    nn.DefaultBatchSize,
		Units:        nn.DefaultUnits,
		LearningRate: nn.DefaultLearningRate,
		Shuffle:      true,
		Seed:         42,
	}
}

// DefaultMultiConfig is the multi-asset setup: 60-step lookback, 120-step
// horizon, 100 epochs.
func DefaultMultiConfig() Config {
	return Config{
		Lookback:     60,
		Horizon:      120,
		Epochs:       100,
		BatchSize:    nn.DefaultBatchSize,
		Units:        nn.DefaultUnits,
		HeadUnits:    nn.DefaultHeadUnits,
		LearningRate: nn.DefaultLearningRate,
		Shuffle:      true,
		Seed:         42,
	}
}

// Options are per-call overrides. A zero Lookback or Horizon means the
// engine Config value; negative values are rejected with
// models.ErrInvalidOptions.
type Options struct {
	Lookback int
	Horizon  int
	// ResetWeights discards the in-memory model and trains from fresh weights.
	ResetWeights bool
}

func (c Config) resolve(o Options) (Options, error) {
	if o.Lookback < 0 || o.Horizon < 0 {
		return o, fmt.Errorf("lookback %d, horizon %d: %w", o.Lookback, o.Horizon, models.ErrInvalidOptions)
	}
	if o.Lookback == 0 {
		o.Lookback = c.Lookback
	}
	if o.Horizon == 0 {
		o.Horizon = c.Horizon
	}
	return o, nil
}

func (c Config) fit(seed int64) nn.FitConfig {
	return nn.FitConfig{
		Epochs:       c.Epochs,
		BatchSize:    c.BatchSize,
		LearningRate: c.LearningRate,
		Shuffle:      c.Shuffle,
		Seed:         seed,
	}
}
