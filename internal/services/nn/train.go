package nn

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

// Sample is one training example; Inputs is indexed [branch][step][feature].
type Sample struct {
	Inputs [][][]float64
	Target float64
}

// FitConfig controls a training run. Zero values take the defaults below.
type FitConfig struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	Shuffle      bool
	Seed         int64
}

const (
	DefaultBatchSize    = 8
	DefaultLearningRate = 0.001
)

func (c FitConfig) withDefaults() FitConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.LearningRate <= 0 {
		c.LearningRate = DefaultLearningRate
	}
	if c.Beta1 <= 0 {
		c.Beta1 = 0.9
	}
	if c.Beta2 <= 0 {
		c.Beta2 = 0.999
	}
	if c.Epsilon <= 0 {
		c.Epsilon = 1e-7
	}
	return c
}

// EpochFunc is called after every epoch with the 1-based epoch and mean
// squared error. Returning an error stops training.
type EpochFunc func(epoch int, loss float64) error

// Fit trains on samples with MSE loss and Adam. The context is checked
// between epochs; on cancellation the weights keep whatever progress was made.
func (n *Network) Fit(ctx context.Context, samples []Sample, cfg FitConfig, onEpoch EpochFunc) error {
	if len(samples) == 0 {
		return fmt.Errorf("fit: no samples")
	}
	for i, s := range samples {
		if err := n.checkInputs(s.Inputs); err != nil {
			return fmt.Errorf("fit: sample %d: %w", i, err)
		}
	}
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))
	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}
	batch := make([]Sample, 0, cfg.BatchSize)

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cfg.Shuffle {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		total := 0.0
		for start := 0; start < len(order); start += cfg.BatchSize {
			end := min(start+cfg.BatchSize, len(order))
			batch = batch[:0]
			for _, idx := range order[start:end] {
				batch = append(batch, samples[idx])
			}
			loss, err := n.trainBatch(batch, cfg)
			if err != nil {
				return fmt.Errorf("fit: epoch %d: %w", epoch, err)
			}
			total += loss
		}
		n.epochs++
		mse := total / float64(len(samples))
		if onEpoch != nil {
			if err := onEpoch(epoch, mse); err != nil {
				return err
			}
		}
	}
	return nil
}

// trainBatch runs forward/backward on the batch, applies one Adam step and
// returns the summed squared error measured before the update.
func (n *Network) trainBatch(batch []Sample, cfg FitConfig) (float64, error) {
	for _, p := range n.params {
		p.zeroGrad()
	}
	scale := 2 / float64(len(batch))
	sum := 0.0
	for _, s := range batch {
		fp, err := n.forward(s.Inputs)
		if err != nil {
			return 0, err
		}
		diff := fp.out - s.Target
		sum += diff * diff
		n.backward(fp, scale*diff)
	}
	n.adam(cfg)
	return sum, nil
}

func (n *Network) adam(cfg FitConfig) {
	n.step++
	t := float64(n.step)
	lr := cfg.LearningRate * math.Sqrt(1-math.Pow(cfg.Beta2, t)) / (1 - math.Pow(cfg.Beta1, t))
	for _, p := range n.params {
		for i, g := range p.g {
			p.m[i] = cfg.Beta1*p.m[i] + (1-cfg.Beta1)*g
			p.v[i] = cfg.Beta2*p.v[i] + (1-cfg.Beta2)*g*g
			p.w[i] -= lr * p.m[i] / (math.Sqrt(p.v[i]) + cfg.Epsilon)
		}
	}
}
