package nn

import (
	"fmt"
	"math"
	"math/rand"
)

// lstm is a single recurrent layer returning its last hidden state.
// Gate rows are laid out i, f, g, o; kernel is [4H, in], recurrent is [4H, H].
type lstm struct {
	in, units int
	kernel    *param
	recurrent *param
	bias      *param
}

type lstmCache struct {
	x          [][]float64
	h, c       [][]float64 // T+1 states, index 0 is the zero state
	i, f, g, o [][]float64
}

func newLSTM(prefix string, in, units int, rng *rand.Rand) *lstm {
	l := &lstm{
		in:        in,
		units:     units,
		kernel:    newParam(prefix+"/kernel", 4*units, in),
		recurrent: newParam(prefix+"/recurrent_kernel", 4*units, units),
		bias:      newParam(prefix+"/bias", 4*units),
	}
	l.kernel.glorot(rng, in, 4*units)
	l.recurrent.glorot(rng, units, 4*units)
	// forget gate starts open
	for j := units; j < 2*units; j++ {
		l.bias.w[j] = 1
	}
	return l
}

func (l *lstm) params() []*param { return []*param{l.kernel, l.recurrent, l.bias} }

func (l *lstm) forward(x [][]float64) ([]float64, *lstmCache, error) {
	H := l.units
	T := len(x)
	cache := &lstmCache{
		x: x,
		h: make([][]float64, T+1),
		c: make([][]float64, T+1),
		i: make([][]float64, T),
		f: make([][]float64, T),
		g: make([][]float64, T),
		o: make([][]float64, T),
	}
	cache.h[0] = make([]float64, H)
	cache.c[0] = make([]float64, H)
	z := make([]float64, 4*H)

	for t := 0; t < T; t++ {
		if len(x[t]) != l.in {
			return nil, nil, fmt.Errorf("step %d has %d features, want %d", t, len(x[t]), l.in)
		}
		hp, cp := cache.h[t], cache.c[t]
		for r := 0; r < 4*H; r++ {
			s := l.bias.w[r]
			wr := l.kernel.w[r*l.in : (r+1)*l.in]
			for k, xv := range x[t] {
				s += wr[k] * xv
			}
			ur := l.recurrent.w[r*H : (r+1)*H]
			for k, hv := range hp {
				s += ur[k] * hv
			}
			z[r] = s
		}
		ig := make([]float64, H)
		fg := make([]float64, H)
		gg := make([]float64, H)
		og := make([]float64, H)
		hn := make([]float64, H)
		cn := make([]float64, H)
		for j := 0; j < H; j++ {
			ig[j] = sigmoid(z[j])
			fg[j] = sigmoid(z[H+j])
			gg[j] = math.Tanh(z[2*H+j])
			og[j] = sigmoid(z[3*H+j])
			cn[j] = fg[j]*cp[j] + ig[j]*gg[j]
			hn[j] = og[j] * math.Tanh(cn[j])
		}
		cache.i[t], cache.f[t], cache.g[t], cache.o[t] = ig, fg, gg, og
		cache.h[t+1], cache.c[t+1] = hn, cn
	}
	return cache.h[T], cache, nil
}

// backward accumulates parameter gradients given dL/dh at the last step.
func (l *lstm) backward(cache *lstmCache, dhLast []float64) {
	H := l.units
	T := len(cache.x)
	dh := make([]float64, H)
	copy(dh, dhLast)
	dc := make([]float64, H)
	dz := make([]float64, 4*H)

	for t := T - 1; t >= 0; t-- {
		ig, fg, gg, og := cache.i[t], cache.f[t], cache.g[t], cache.o[t]
		c, cp, hp := cache.c[t+1], cache.c[t], cache.h[t]
		for j := 0; j < H; j++ {
			tc := math.Tanh(c[j])
			dcj := dc[j] + dh[j]*og[j]*(1-tc*tc)
			do := dh[j] * tc
			di := dcj * gg[j]
			dg := dcj * ig[j]
			df := dcj * cp[j]
			dc[j] = dcj * fg[j]

			dz[j] = di * ig[j] * (1 - ig[j])
			dz[H+j] = df * fg[j] * (1 - fg[j])
			dz[2*H+j] = dg * (1 - gg[j]*gg[j])
			dz[3*H+j] = do * og[j] * (1 - og[j])
		}

		next := make([]float64, H)
		for r := 0; r < 4*H; r++ {
			d := dz[r]
			if d == 0 {
				continue
			}
			l.bias.g[r] += d
			gw := l.kernel.g[r*l.in : (r+1)*l.in]
			for k, xv := range cache.x[t] {
				gw[k] += d * xv
			}
			ur := l.recurrent.w[r*H : (r+1)*H]
			gu := l.recurrent.g[r*H : (r+1)*H]
			for k := 0; k < H; k++ {
				gu[k] += d * hp[k]
				next[k] += ur[k] * d
			}
		}
		dh = next
	}
}
