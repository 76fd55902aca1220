package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	domrepo "github.com/antonbeski0/Predflux/internal/domain/repository"
	"github.com/antonbeski0/Predflux/internal/services/nn"
	applogger "github.com/antonbeski0/Predflux/pkg/logger"
	"github.com/antonbeski0/Predflux/pkg/metrics"
)

// Option configures an engine.
type Option func(*engine)

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(e *engine) { e.l = l }
}

// WithMetrics injects a metrics recorder.
func WithMetrics(m domrepo.Metrics) Option {
	return func(e *engine) { e.metrics = m }
}

// WithObserver subscribes observers to progress events.
func WithObserver(obs ...ProgressObserver) Option {
	return func(e *engine) { e.observers = append(e.observers, obs...) }
}

// WithConfig replaces the engine hyperparameters.
func WithConfig(cfg Config) Option {
	return func(e *engine) { e.cfg = cfg }
}

// Status is a point-in-time view of an engine.
type Status struct {
	Model    string             `json:"model"`
	State    models.EngineState `json:"state"`
	HasModel bool               `json:"has_model"`
	Epochs   int                `json:"epochs"`
	Error    string             `json:"error,omitempty"`
}

// engine holds the lifecycle shared by the single- and multi-asset engines.
// mu serializes Initialize and TrainAndPredict; stateMu guards the fields
// readable while a run is in progress.
type engine struct {
	name      string
	store     domrepo.ArtifactStore
	cfg       Config
	l         *applogger.Logger
	metrics   domrepo.Metrics
	observers []ProgressObserver

	mu          sync.Mutex
	net         *nn.Network
	initialized bool

	stateMu sync.RWMutex
	state   models.EngineState
	handle  *nn.Snapshot
	lastErr error
}

func newEngine(name string, store domrepo.ArtifactStore, cfg Config, opts []Option) *engine {
	e := &engine{
		name:    name,
		store:   store,
		cfg:     cfg,
		l:       applogger.NewNop(),
		metrics: metrics.Nop{},
		state:   models.StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.l = e.l.With(applogger.String("model", name))
	return e
}

// Initialize loads the persisted model for this slot, if any. Any load
// failure degrades to a cold start; only context cancellation is returned.
func (e *engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initLocked(ctx)
}

func (e *engine) initLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.initialized = true
	art, err := e.store.Load(ctx, e.name)
	switch {
	case err != nil:
		e.l.Warn("model load failed, starting cold", applogger.Error(err))
		e.setState(models.StateIdle)
		return nil
	case art == nil:
		e.l.Info("no persisted model, starting cold")
		e.setState(models.StateIdle)
		return nil
	}
	net, err := nn.FromArtifact(art)
	if err != nil {
		e.l.Warn("persisted model unusable, starting cold", applogger.Error(err))
		e.setState(models.StateIdle)
		return nil
	}
	e.net = net
	e.setHandle(net.Snapshot())
	e.setState(models.StateLoaded)
	e.l.Info("model loaded",
		applogger.Int("branches", art.Architecture.Branches),
		applogger.Int("lookback", art.Architecture.Lookback),
		applogger.Int("epochs", art.Epochs),
	)
	return nil
}

// State returns the current lifecycle state.
func (e *engine) State() models.EngineState {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

// Model returns a read-only view of the latest model, or false if none exists.
// It is refreshed after every epoch and is safe to call during training.
func (e *engine) Model() (models.ModelHandle, bool) {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	if e.handle == nil {
		return nil, false
	}
	return e.handle, true
}

// Config returns the hyperparameters the engine was built with.
func (e *engine) Config() Config { return e.cfg }

// Status summarizes the engine for introspection.
func (e *engine) Status() Status {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	st := Status{Model: e.name, State: e.state, HasModel: e.handle != nil}
	if e.handle != nil {
		st.Epochs = e.handle.Epochs()
	}
	if e.lastErr != nil {
		st.Error = e.lastErr.Error()
	}
	return st
}

func (e *engine) setState(s models.EngineState) {
	e.stateMu.Lock()
	e.state = s
	if s != models.StateError {
		e.lastErr = nil
	}
	e.stateMu.Unlock()
}

func (e *engine) setHandle(h *nn.Snapshot) {
	e.stateMu.Lock()
	e.handle = h
	e.stateMu.Unlock()
}

// fail moves the engine to the error state and records the failure.
func (e *engine) fail(err error) error {
	e.stateMu.Lock()
	e.state = models.StateError
	e.lastErr = err
	e.stateMu.Unlock()
	e.metrics.RecordError(errorKind(err))
	e.l.Error("forecast failed", applogger.Error(err))
	return err
}

// prepareNetwork returns the network to train: the current one when it is
// compatible with arch and reset is false, otherwise a freshly built one.
func (e *engine) prepareNetwork(arch models.Architecture, reset bool) (*nn.Network, error) {
	if e.net != nil && !reset {
		if e.net.Architecture().Equal(arch) {
			e.setState(models.StateLoaded)
			return e.net, nil
		}
		have := e.net.Architecture()
		e.l.Warn("model architecture changed, rebuilding",
			applogger.Int("branches_had", have.Branches),
			applogger.Int("branches_want", arch.Branches),
			applogger.Int("lookback_had", have.Lookback),
			applogger.Int("lookback_want", arch.Lookback),
		)
	}
	e.setState(models.StateCreating)
	net, err := nn.New(arch, e.cfg.Seed)
	if err != nil {
		return nil, err
	}
	e.net = net
	e.setHandle(net.Snapshot())
	return net, nil
}

func (e *engine) train(ctx context.Context, net *nn.Network, samples []nn.Sample) error {
	e.setState(models.StateTraining)
	start := time.Now()
	epochs := e.cfg.Epochs
	err := net.Fit(ctx, samples, e.cfg.fit(e.cfg.Seed+int64(net.Epochs())), func(epoch int, loss float64) error {
		snap := net.Snapshot()
		e.setHandle(snap)
		e.metrics.RecordEpoch(e.name, epoch, loss)
		e.notify(ctx, models.ProgressEvent{
			Model:  e.name,
			Phase:  models.PhaseTraining,
			Epoch:  epoch,
			Epochs: epochs,
			Loss:   loss,
			Handle: snap,
		})
		e.l.Debug("epoch done", applogger.Int("epoch", epoch), applogger.Float("loss", loss))
		return ctx.Err()
	})
	if err != nil {
		return fmt.Errorf("train %s: %w", e.name, err)
	}
	e.metrics.RecordLatency("train", time.Since(start).Seconds())
	e.l.Info("training done",
		applogger.Int("samples", len(samples)),
		applogger.Int("epochs", epochs),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// persist saves the network. The returned error is informational: the
// in-memory model stays usable either way.
func (e *engine) persist(ctx context.Context, net *nn.Network) error {
	if err := e.store.Save(ctx, e.name, net.Artifact(e.name)); err != nil {
		e.metrics.RecordError(errorKind(err))
		e.l.Error("model save failed, continuing with in-memory model", applogger.Error(err))
		if !errors.Is(err, models.ErrPersistence) {
			err = fmt.Errorf("%w: %w", models.ErrPersistence, err)
		}
		return err
	}
	return nil
}

func (e *engine) notify(ctx context.Context, ev models.ProgressEvent) {
	for _, o := range e.observers {
		o.OnProgress(ctx, ev)
	}
}

func (e *engine) predictEvent(step, steps int, asset string) models.ProgressEvent {
	ev := models.ProgressEvent{
		Model: e.name,
		Phase: models.PhasePredicting,
		Step:  step,
		Steps: steps,
		Asset: asset,
	}
	e.stateMu.RLock()
	if e.handle != nil {
		ev.Handle = e.handle
	}
	e.stateMu.RUnlock()
	return ev
}

func checkFinite(series []float64) error {
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("value %d is not finite: %w", i, models.ErrInvalidSeries)
		}
	}
	return nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrDegenerateSeries):
		return "degenerate_series"
	case errors.Is(err, models.ErrInvalidSeries):
		return "invalid_series"
	case errors.Is(err, models.ErrInvalidOptions):
		return "invalid_options"
	case errors.Is(err, models.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, models.ErrDatasetAlignment):
		return "dataset_alignment"
	case errors.Is(err, models.ErrPersistence):
		return "persistence"
	case errors.Is(err, models.ErrModelMissing):
		return "model_missing"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}
