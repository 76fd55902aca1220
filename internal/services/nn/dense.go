package nn

import (
	"math/rand"

	"github.com/antonbeski0/Predflux/internal/domain/models"
)

// dense computes act(W·x + b) with W stored as [out, in].
type dense struct {
	in, out int
	act     models.Activation
	kernel  *param
	bias    *param
}

func newDense(prefix string, in, out int, act models.Activation, rng *rand.Rand) *dense {
	d := &dense{
		in:     in,
		out:    out,
		act:    act,
		kernel: newParam(prefix+"/kernel", out, in),
		bias:   newParam(prefix+"/bias", out),
	}
	d.kernel.glorot(rng, in, out)
	return d
}

func (d *dense) params() []*param { return []*param{d.kernel, d.bias} }

// forward returns the activation and the pre-activation.
func (d *dense) forward(x []float64) ([]float64, []float64) {
	pre := make([]float64, d.out)
	y := make([]float64, d.out)
	for r := 0; r < d.out; r++ {
		s := d.bias.w[r]
		wr := d.kernel.w[r*d.in : (r+1)*d.in]
		for k, xv := range x {
			s += wr[k] * xv
		}
		pre[r] = s
		y[r] = s
		if d.act == models.ActivationReLU && s < 0 {
			y[r] = 0
		}
	}
	return y, pre
}

// backward accumulates gradients and returns dL/dx.
func (d *dense) backward(x, pre, dy []float64) []float64 {
	dx := make([]float64, d.in)
	for r := 0; r < d.out; r++ {
		g := dy[r]
		if d.act == models.ActivationReLU && pre[r] <= 0 {
			g = 0
		}
		if g == 0 {
			continue
		}
		d.bias.g[r] += g
		wr := d.kernel.w[r*d.in : (r+1)*d.in]
		gw := d.kernel.g[r*d.in : (r+1)*d.in]
		for k, xv := range x {
			gw[k] += g * xv
			dx[k] += g * wr[k]
		}
	}
	return dx
}
