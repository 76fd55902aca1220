package forecast

import (
	"context"
	"fmt"

	"github.com/antonbeski0/Predflux/internal/services/nn"
)

// shiftRegister is a fixed-length window of feature steps: pushing a new
// step drops the oldest one.
type shiftRegister struct {
	steps [][]float64
}

func newShiftRegister(seed [][]float64) *shiftRegister {
	steps := make([][]float64, len(seed))
	copy(steps, seed)
	return &shiftRegister{steps: steps}
}

func (r *shiftRegister) push(step []float64) {
	copy(r.steps, r.steps[1:])
	r.steps[len(r.steps)-1] = step
}

// view returns the current window; callers must not modify it.
func (r *shiftRegister) view() [][]float64 { return r.steps }

func (r *shiftRegister) len() int { return len(r.steps) }

// tailSteps turns the last lookback values of series into feature steps,
// appending extra to every step.
func tailSteps(series []float64, lookback int, extra ...float64) [][]float64 {
	tail := series[len(series)-lookback:]
	out := make([][]float64, lookback)
	for i, v := range tail {
		step := make([]float64, 0, 1+len(extra))
		step = append(step, v)
		out[i] = append(step, extra...)
	}
	return out
}

// rollout runs horizon autoregressive steps. inputs maps the register's
// current window to the network inputs; next turns a prediction into the
// step pushed back onto the register.
func (e *engine) rollout(
	ctx context.Context,
	net *nn.Network,
	reg *shiftRegister,
	horizon int,
	asset string,
	inputs func(window [][]float64) [][][]float64,
	next func(pred float64) []float64,
) ([]float64, error) {
	out := make([]float64, 0, horizon)
	for step := 1; step <= horizon; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := net.Predict(inputs(reg.view()))
		if err != nil {
			return nil, fmt.Errorf("predict step %d: %w", step, err)
		}
		out = append(out, p)
		reg.push(next(p))
		e.notify(ctx, e.predictEvent(step, horizon, asset))
	}
	return out, nil
}
