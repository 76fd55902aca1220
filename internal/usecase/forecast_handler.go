package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	domrepo "github.com/antonbeski0/Predflux/internal/domain/repository"
	pkgkafka "github.com/antonbeski0/Predflux/pkg/kafka"
	applogger "github.com/antonbeski0/Predflux/pkg/logger"
)

// ForecastRequestHandler consumes queued forecast jobs and runs them.
// Jobs that can never succeed (bad payloads, unusable series) are
// acknowledged after a failed event; only infrastructure errors are
// returned so the consumer retries them.
type ForecastRequestHandler struct {
	topic    string
	runner   *ForecastRunner
	metrics  domrepo.Metrics
	l        *applogger.Logger
	validate *validator.Validate
}

func NewForecastRequestHandler(topic string, runner *ForecastRunner, metrics domrepo.Metrics, l *applogger.Logger) *ForecastRequestHandler {
	return &ForecastRequestHandler{
		topic:    topic,
		runner:   runner,
		metrics:  metrics,
		l:        l,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *ForecastRequestHandler) Topic() string { return h.topic }

func (h *ForecastRequestHandler) Handle(ctx context.Context, b []byte) error {
	var job models.ForecastJob
	if err := json.Unmarshal(b, &job); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		h.l.Warn("forecast job undecodable, dropped", applogger.Error(err))
		return nil
	}
	ctx = WithJobID(ctx, job.JobID)

	start := time.Now()
	err := h.run(ctx, job)
	h.metrics.RecordLatency("consumer_job", time.Since(start).Seconds())
	if err == nil {
		return nil
	}
	if permanent(err) {
		h.l.Warn("forecast job rejected",
			applogger.String("job_id", job.JobID),
			applogger.String("kind", string(job.Kind)),
			applogger.Error(err),
		)
		return nil
	}
	return err
}

func (h *ForecastRequestHandler) run(ctx context.Context, job models.ForecastJob) error {
	var req any
	switch job.Kind {
	case models.RequestSingle:
		req = job.Single
	case models.RequestMulti:
		req = job.Multi
	case models.RequestSymbols:
		req = job.Symbols
	default:
		return fmt.Errorf("unknown job kind %q: %w", job.Kind, errBadJob)
	}
	if err := h.prepare(req); err != nil {
		return err
	}

	var err error
	switch job.Kind {
	case models.RequestSingle:
		_, err = h.runner.RunSingle(ctx, *job.Single)
	case models.RequestMulti:
		_, err = h.runner.RunMulti(ctx, *job.Multi)
	case models.RequestSymbols:
		_, err = h.runner.RunSymbols(ctx, *job.Symbols)
	}
	return err
}

func (h *ForecastRequestHandler) prepare(req any) error {
	switch v := req.(type) {
	case *models.SingleForecastRequest:
		if v == nil {
			return fmt.Errorf("missing single payload: %w", errBadJob)
		}
	case *models.MultiForecastRequest:
		if v == nil {
			return fmt.Errorf("missing multi payload: %w", errBadJob)
		}
	case *models.SymbolsForecastRequest:
		if v == nil {
			return fmt.Errorf("missing symbols payload: %w", errBadJob)
		}
	}
	if err := defaults.Set(req); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", errBadJob, err)
	}
	return nil
}

var errBadJob = errors.New("bad forecast job")

func permanent(err error) bool {
	for _, target := range []error{
		errBadJob,
		models.ErrDegenerateSeries,
		models.ErrInvalidSeries,
		models.ErrInvalidOptions,
		models.ErrInsufficientData,
		models.ErrDatasetAlignment,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var _ pkgkafka.MessageHandler = (*ForecastRequestHandler)(nil)
