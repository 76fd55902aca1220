package forecast

import (
	"context"

	"github.com/antonbeski0/Predflux/internal/domain/models"
)

// ProgressObserver receives training and prediction progress. Calls happen
// on the engine goroutine; implementations should return quickly.
type ProgressObserver interface {
	OnProgress(ctx context.Context, ev models.ProgressEvent)
}

// ObserverFunc adapts a function to ProgressObserver.
type ObserverFunc func(ctx context.Context, ev models.ProgressEvent)

func (f ObserverFunc) OnProgress(ctx context.Context, ev models.ProgressEvent) { f(ctx, ev) }

// ChannelObserver forwards events to a channel without blocking; events are
// dropped while the channel is full.
type ChannelObserver struct {
	ch chan<- models.ProgressEvent
}

func NewChannelObserver(ch chan<- models.ProgressEvent) *ChannelObserver {
	return &ChannelObserver{ch: ch}
}

func (o *ChannelObserver) OnProgress(_ context.Context, ev models.ProgressEvent) {
	select {
	case o.ch <- ev:
	default:
	}
}

// EpochsOnly wraps an observer so it only sees training events.
func EpochsOnly(next ProgressObserver) ProgressObserver {
	return ObserverFunc(func(ctx context.Context, ev models.ProgressEvent) {
		if ev.Phase == models.PhaseTraining {
			next.OnProgress(ctx, ev)
		}
	})
}
