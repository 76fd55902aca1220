package nn

import (
	"math"
	"math/rand"
)

// param is one trainable tensor with its gradient and Adam moments.
type param struct {
	name  string
	shape []int
	w     []float64
	g     []float64
	m     []float64
	v     []float64
}

func newParam(name string, shape ...int) *param {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &param{
		name:  name,
		shape: shape,
		w:     make([]float64, n),
		g:     make([]float64, n),
		m:     make([]float64, n),
		v:     make([]float64, n),
	}
}

// glorot fills w from U(-l, l), l = sqrt(6/(fanIn+fanOut)).
func (p *param) glorot(rng *rand.Rand, fanIn, fanOut int) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	for i := range p.w {
		p.w[i] = (rng.Float64()*2 - 1) * limit
	}
}

func (p *param) zeroGrad() {
	for i := range p.g {
		p.g[i] = 0
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
