package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	domrepo "github.com/antonbeski0/Predflux/internal/domain/repository"
	domsvc "github.com/antonbeski0/Predflux/internal/domain/service"
	"github.com/antonbeski0/Predflux/internal/services/features"
	"github.com/antonbeski0/Predflux/internal/services/forecast"
	applogger "github.com/antonbeski0/Predflux/pkg/logger"
)

// ForecastRunner turns raw requests into engine calls: it normalizes
// inputs, gathers sentiment and live series, denormalizes outputs and
// publishes lifecycle events.
type ForecastRunner struct {
	single    *forecast.SingleAssetEngine
	multi     *forecast.MultiAssetEngine
	series    domrepo.SeriesSource
	sentiment domsvc.SentimentSource
	events    *EventSink
	l         *applogger.Logger
}

func NewForecastRunner(
	single *forecast.SingleAssetEngine,
	multi *forecast.MultiAssetEngine,
	series domrepo.SeriesSource,
	sentiment domsvc.SentimentSource,
	events *EventSink,
	l *applogger.Logger,
) *ForecastRunner {
	if l == nil {
		l = applogger.NewNop()
	}
	return &ForecastRunner{single: single, multi: multi, series: series, sentiment: sentiment, events: events, l: l}
}

// Engines exposes the engines for status and model introspection.
func (r *ForecastRunner) Engines() (*forecast.SingleAssetEngine, *forecast.MultiAssetEngine) {
	return r.single, r.multi
}

func jobContext(ctx context.Context, id string) (context.Context, string) {
	if id == "" {
		id = JobID(ctx)
	}
	if id == "" {
		id = uuid.NewString()
	}
	return WithJobID(ctx, id), id
}

// RunSingle forecasts one series. Raw values are min-max normalized first
// and the rollout is reported in both frames; traced points are digitized
// and only the normalized rollout is reported.
func (r *ForecastRunner) RunSingle(ctx context.Context, req models.SingleForecastRequest) (*models.SingleForecastResult, error) {
	ctx, id := jobContext(ctx, "")
	log := r.l.With(applogger.String("job_id", id))

	var (
		series []float64
		scaler *features.Scaler
		err    error
	)
	if len(req.Values) > 0 {
		var s features.Scaler
		s, err = features.NewScaler(req.Values)
		if err == nil {
			scaler = &s
			series = make([]float64, len(req.Values))
			for i, v := range req.Values {
				series[i] = s.Transform(v)
			}
		}
	} else {
		series, err = features.Digitize(req.Points)
	}
	if err != nil {
		return nil, r.failed(ctx, id, models.SingleAssetModel, err)
	}

	log.Info("single forecast started", applogger.Int("points", len(series)), applogger.Int("lookback", req.Lookback))
	preds, err := r.single.TrainAndPredict(ctx, series, forecast.Options{
		Lookback:     req.Lookback,
		Horizon:      req.Horizon,
		ResetWeights: req.ResetWeights,
	})
	warning, err := persistenceWarning(preds != nil, err)
	if err != nil {
		return nil, r.failed(ctx, id, models.SingleAssetModel, err)
	}

	res := &models.SingleForecastResult{
		JobID:       id,
		Model:       models.SingleAssetModel,
		Lookback:    req.Lookback,
		Horizon:     len(preds),
		Predictions: preds,
		Warning:     warning,
	}
	if scaler != nil {
		res.Prices = scaler.InverseAll(preds)
		res.Scale = &models.Scale{Min: scaler.Min, Max: scaler.Max}
	}
	r.events.emit(ctx, models.ForecastEvent{Type: models.EventResult, JobID: id, Model: res.Model, Result: res})
	log.Info("single forecast done", applogger.Int("horizon", res.Horizon))
	return res, nil
}

// RunMulti forecasts several assets jointly. Each asset is normalized on
// its own range. Sentiment is taken from the request or, when only a query
// is given, fetched; a failed fetch degrades to neutral sentiment.
func (r *ForecastRunner) RunMulti(ctx context.Context, req models.MultiForecastRequest) (*models.MultiForecastResult, error) {
	return r.runMulti(ctx, req, nil)
}

// runMulti runs a multi-asset forecast and reports pre as skipped ahead of
// anything the engine skips.
func (r *ForecastRunner) runMulti(ctx context.Context, req models.MultiForecastRequest, pre []models.SkippedAsset) (*models.MultiForecastResult, error) {
	ctx, id := jobContext(ctx, "")
	log := r.l.With(applogger.String("job_id", id))

	assets := make([]models.Asset, len(req.Assets))
	scalers := make(map[string]features.Scaler, len(req.Assets))
	avgs := make(map[string]float64, len(req.Assets))
	for i, in := range req.Assets {
		if _, dup := scalers[in.Name]; dup {
			return nil, r.failed(ctx, id, models.MultiAssetModel,
				fmt.Errorf("asset %q listed twice: %w", in.Name, models.ErrInvalidSeries))
		}
		s, err := features.NewScaler(in.Values)
		if err != nil {
			return nil, r.failed(ctx, id, models.MultiAssetModel, fmt.Errorf("asset %q: %w", in.Name, err))
		}
		norm := make([]float64, len(in.Values))
		for k, v := range in.Values {
			norm[k] = s.Transform(v)
		}
		sent := in.Sentiment
		if len(sent) == 0 && in.SentimentQuery != "" {
			sent = r.fetchSentiment(ctx, in.SentimentQuery)
		}
		scalers[in.Name] = s
		avgs[in.Name] = features.Mean(sent)
		assets[i] = models.Asset{Name: in.Name, Series: norm, Sentiment: sent}
	}

	log.Info("multi forecast started", applogger.Int("assets", len(assets)), applogger.Int("lookback", req.Lookback))
	out, err := r.multi.TrainAndPredict(ctx, assets, forecast.Options{
		Lookback:     req.Lookback,
		Horizon:      req.Horizon,
		ResetWeights: req.ResetWeights,
	})
	warning, err := persistenceWarning(out != nil, err)
	if err != nil {
		return nil, r.failed(ctx, id, models.MultiAssetModel, err)
	}

	res := &models.MultiForecastResult{
		JobID:    id,
		Model:    models.MultiAssetModel,
		Lookback: req.Lookback,
		Horizon:  req.Horizon,
		Assets:   make([]models.AssetResult, 0, len(out.Assets)),
		Skipped:  append(pre, out.Skipped...),
		Warning:  warning,
	}
	for _, a := range out.Assets {
		s := scalers[a.Asset]
		res.Assets = append(res.Assets, models.AssetResult{
			Asset:            a.Asset,
			Predictions:      a.Predictions,
			Prices:           s.InverseAll(a.Predictions),
			Scale:            models.Scale{Min: s.Min, Max: s.Max},
			AverageSentiment: avgs[a.Asset],
		})
	}
	r.events.emit(ctx, models.ForecastEvent{Type: models.EventResult, JobID: id, Model: res.Model, Result: res})
	log.Info("multi forecast done", applogger.Int("assets", len(res.Assets)), applogger.Int("skipped", len(res.Skipped)))
	return res, nil
}

// RunSymbols loads the latest prices per symbol and runs a multi-asset
// forecast. Symbols with fewer than lookback+1 prices are reported as
// skipped; the rest are trimmed to their shortest common length. News
// sentiment is queried by symbol when requested.
func (r *ForecastRunner) RunSymbols(ctx context.Context, req models.SymbolsForecastRequest) (*models.MultiForecastResult, error) {
	ctx, id := jobContext(ctx, "")
	if r.series == nil {
		return nil, r.failed(ctx, id, models.MultiAssetModel, errors.New("no series source configured"))
	}

	lookback := req.Lookback
	if lookback == 0 {
		lookback = r.multi.Config().Lookback
	}

	var skipped []models.SkippedAsset
	inputs := make([]models.AssetInput, 0, len(req.Symbols))
	shortest := -1
	for _, sym := range req.Symbols {
		vals, err := r.series.LatestValues(ctx, sym, req.Points)
		if err != nil {
			return nil, r.failed(ctx, id, models.MultiAssetModel, fmt.Errorf("load %s: %w", sym, err))
		}
		if len(vals) < lookback+1 {
			r.l.Warn("symbol skipped, not enough prices",
				applogger.String("symbol", sym),
				applogger.Int("length", len(vals)),
				applogger.Int("required", lookback+1),
			)
			skipped = append(skipped, models.SkippedAsset{
				Asset:  sym,
				Length: len(vals),
				Reason: fmt.Sprintf("needs at least %d points", lookback+1),
			})
			continue
		}
		if shortest < 0 || len(vals) < shortest {
			shortest = len(vals)
		}
		in := models.AssetInput{Name: sym, Values: vals}
		if req.Sentiment {
			in.SentimentQuery = sym
		}
		inputs = append(inputs, in)
	}
	if len(inputs) == 0 {
		return nil, r.failed(ctx, id, models.MultiAssetModel,
			fmt.Errorf("all %d symbols need at least %d points: %w", len(req.Symbols), lookback+1, models.ErrInsufficientData))
	}
	for i := range inputs {
		inputs[i].Values = inputs[i].Values[len(inputs[i].Values)-shortest:]
	}

	return r.runMulti(ctx, models.MultiForecastRequest{
		Assets:       inputs,
		Lookback:     req.Lookback,
		Horizon:      req.Horizon,
		ResetWeights: req.ResetWeights,
	}, skipped)
}

func (r *ForecastRunner) fetchSentiment(ctx context.Context, query string) []float64 {
	if r.sentiment == nil {
		return nil
	}
	scores, err := r.sentiment.Scores(ctx, query)
	if err != nil {
		r.l.Warn("sentiment unavailable, using neutral", applogger.String("query", query), applogger.Error(err))
		return nil
	}
	return scores
}

func (r *ForecastRunner) failed(ctx context.Context, id, model string, err error) error {
	r.events.emit(ctx, models.ForecastEvent{Type: models.EventFailed, JobID: id, Model: model, Error: err.Error()})
	return err
}

// persistenceWarning downgrades a save failure that still produced a
// forecast into a warning string.
func persistenceWarning(haveResult bool, err error) (string, error) {
	if err != nil && haveResult && errors.Is(err, models.ErrPersistence) {
		return "model trained but not saved: " + err.Error(), nil
	}
	return "", err
}
