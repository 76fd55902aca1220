package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	domrepo "github.com/antonbeski0/Predflux/internal/domain/repository"
	applogger "github.com/antonbeski0/Predflux/pkg/logger"
)

type jobIDKey struct{}

// WithJobID tags ctx with the job a forecast runs under.
func WithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobIDKey{}, id)
}

// JobID returns the job tagged on ctx, or "".
func JobID(ctx context.Context) string {
	id, _ := ctx.Value(jobIDKey{}).(string)
	return id
}

// EventSink publishes forecast lifecycle events. A nil publisher makes it
// a no-op so deployments without Kafka need no special casing.
type EventSink struct {
	pub   domrepo.EventPublisher
	topic string
	l     *applogger.Logger
}

func NewEventSink(pub domrepo.EventPublisher, topic string, l *applogger.Logger) *EventSink {
	if l == nil {
		l = applogger.NewNop()
	}
	return &EventSink{pub: pub, topic: topic, l: l}
}

// OnProgress publishes training epochs; prediction steps are not published.
func (s *EventSink) OnProgress(ctx context.Context, ev models.ProgressEvent) {
	if ev.Phase != models.PhaseTraining {
		return
	}
	s.emit(ctx, models.ForecastEvent{
		Type:   models.EventEpoch,
		JobID:  JobID(ctx),
		Model:  ev.Model,
		Epoch:  ev.Epoch,
		Epochs: ev.Epochs,
		Loss:   ev.Loss,
	})
}

func (s *EventSink) emit(ctx context.Context, ev models.ForecastEvent) {
	if s == nil || s.pub == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		s.l.Warn("event encode failed", applogger.Error(err))
		return
	}
	if err := s.pub.Publish(context.WithoutCancel(ctx), s.topic, ev.JobID, b); err != nil {
		s.l.Warn("event publish failed",
			applogger.String("type", string(ev.Type)),
			applogger.String("job_id", ev.JobID),
			applogger.Error(err),
		)
	}
}
