package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	domrepo "github.com/antonbeski0/Predflux/internal/domain/repository"
	"github.com/antonbeski0/Predflux/internal/services/features"
	"github.com/antonbeski0/Predflux/internal/services/nn"
	applogger "github.com/antonbeski0/Predflux/pkg/logger"
)

// MultiAssetEngine trains one joint model with a recurrent branch per asset
// and forecasts every asset with it.
type MultiAssetEngine struct {
	*engine
}

// NewMultiAssetEngine builds an engine persisting under models.MultiAssetModel.
func NewMultiAssetEngine(store domrepo.ArtifactStore, opts ...Option) *MultiAssetEngine {
	return &MultiAssetEngine{engine: newEngine(models.MultiAssetModel, store, DefaultMultiConfig(), opts)}
}

type assetData struct {
	name string
	avg  float64
	ds   models.Dataset
	last [][]float64 // last lookback [price, avg] steps
}

// TrainAndPredict fits the joint model and rolls out a forecast for each
// asset with enough data. Assets shorter than lookback+1 are reported in
// Skipped. The joint model is trained on every asset's target: each input
// window set appears once per asset, paired with that asset's next value.
//
// During asset j's rollout only its own window advances; every other branch
// sees its last observed window unchanged.
func (m *MultiAssetEngine) TrainAndPredict(ctx context.Context, assets []models.Asset, opts Options) (*models.MultiForecast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	m.setState(models.StatePreparing)
	opts, err := m.cfg.resolve(opts)
	if err != nil {
		return nil, m.fail(err)
	}

	included, skipped, err := m.prepare(assets, opts.Lookback)
	if err != nil {
		return nil, m.fail(err)
	}
	if !m.initialized {
		if err := m.initLocked(ctx); err != nil {
			return nil, m.fail(err)
		}
		m.setState(models.StatePreparing)
	}

	arch := nn.MultiAssetArchitecture(len(included), opts.Lookback, m.cfg.Units, m.cfg.HeadUnits)
	net, err := m.prepareNetwork(arch, opts.ResetWeights)
	if err != nil {
		return nil, m.fail(err)
	}

	if err := m.train(ctx, net, jointSamples(included)); err != nil {
		return nil, m.fail(err)
	}
	saveErr := m.persist(ctx, net)

	m.setState(models.StatePredicting)
	out := &models.MultiForecast{Assets: make([]models.AssetForecast, 0, len(included)), Skipped: skipped}
	for j, a := range included {
		reg := newShiftRegister(a.last)
		preds, err := m.rollout(ctx, net, reg, opts.Horizon, a.name,
			func(w [][]float64) [][][]float64 {
				in := make([][][]float64, len(included))
				for k, other := range included {
					in[k] = other.last
				}
				in[j] = w
				return in
			},
			func(p float64) []float64 { return []float64{p, a.avg} },
		)
		if err != nil {
			return nil, m.fail(fmt.Errorf("forecast %s asset %q: %w", m.name, a.name, err))
		}
		out.Assets = append(out.Assets, models.AssetForecast{Asset: a.name, Predictions: preds})
	}

	m.setState(models.StateDone)
	m.metrics.RecordLatency("train_and_predict", time.Since(start).Seconds())
	return out, saveErr
}

// prepare windows every usable asset and checks they align.
func (m *MultiAssetEngine) prepare(assets []models.Asset, lookback int) ([]assetData, []models.SkippedAsset, error) {
	var (
		included []assetData
		skipped  []models.SkippedAsset
	)
	for _, a := range assets {
		if err := checkFinite(a.Series); err != nil {
			return nil, nil, fmt.Errorf("asset %q: %w", a.Name, err)
		}
		if err := checkFinite(a.Sentiment); err != nil {
			return nil, nil, fmt.Errorf("asset %q sentiment: %w", a.Name, err)
		}
		if len(a.Series) < lookback+1 {
			m.l.Warn("asset skipped, not enough data",
				applogger.String("asset", a.Name),
				applogger.Int("length", len(a.Series)),
				applogger.Int("required", lookback+1),
			)
			skipped = append(skipped, models.SkippedAsset{
				Asset:  a.Name,
				Length: len(a.Series),
				Reason: fmt.Sprintf("needs at least %d points", lookback+1),
			})
			continue
		}
		avg := features.Mean(a.Sentiment)
		ds, err := features.BuildWithSentiment(a.Series, avg, lookback)
		if err != nil {
			return nil, nil, fmt.Errorf("asset %q: %w", a.Name, err)
		}
		included = append(included, assetData{
			name: a.Name,
			avg:  avg,
			ds:   ds,
			last: tailSteps(a.Series, lookback, avg),
		})
	}
	if len(included) == 0 {
		return nil, skipped, fmt.Errorf("all %d assets need at least %d points: %w", len(assets), lookback+1, models.ErrInsufficientData)
	}
	n := included[0].ds.Len()
	for _, a := range included[1:] {
		if a.ds.Len() != n {
			return nil, skipped, fmt.Errorf("asset %q has %d windows, asset %q has %d: %w",
				included[0].name, n, a.name, a.ds.Len(), models.ErrDatasetAlignment)
		}
	}
	return included, skipped, nil
}

// jointSamples pairs window i of every asset with asset j's target i, for
// every j.
func jointSamples(included []assetData) []nn.Sample {
	n := included[0].ds.Len()
	samples := make([]nn.Sample, 0, n*len(included))
	for j := range included {
		for i := 0; i < n; i++ {
			in := make([][][]float64, len(included))
			for k, a := range included {
				in[k] = a.ds.Windows[i].Input
			}
			samples = append(samples, nn.Sample{Inputs: in, Target: included[j].ds.Windows[i].Target})
		}
	}
	return samples
}
