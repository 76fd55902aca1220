package nn

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/antonbeski0/Predflux/internal/domain/models"
)

// Network is a multi-branch recurrent regressor: every branch is an LSTM over
// its own input sequence; the last hidden states are concatenated and passed
// through a dense head to a single output.
//
// A Network is not safe for concurrent use.
type Network struct {
	arch     models.Architecture
	branches []*lstm
	head     []*dense
	params   []*param
	step     int
	epochs   int
}

// New builds a freshly initialized network. The same seed gives the same weights.
func New(arch models.Architecture, seed int64) (*Network, error) {
	if err := Validate(arch); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	n := &Network{arch: arch}
	for b := 0; b < arch.Branches; b++ {
		l := newLSTM(fmt.Sprintf("branch_%d/lstm", b), arch.InputDim, arch.Units, rng)
		n.branches = append(n.branches, l)
		n.params = append(n.params, l.params()...)
	}
	in := arch.Branches * arch.Units
	for i, spec := range arch.Head {
		d := newDense(fmt.Sprintf("head_%d/dense", i), in, spec.Units, spec.Activation, rng)
		n.head = append(n.head, d)
		n.params = append(n.params, d.params()...)
		in = spec.Units
	}
	return n, nil
}

// FromArtifact restores a network from persisted weights. Every tensor the
// architecture needs must be present with a matching shape.
func FromArtifact(a *models.ModelArtifact) (*Network, error) {
	if a == nil {
		return nil, fmt.Errorf("nil artifact")
	}
	n, err := New(a.Architecture, 0)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]models.Tensor, len(a.Weights))
	for _, t := range a.Weights {
		byName[t.Name] = t
	}
	if len(byName) != len(n.params) {
		return nil, fmt.Errorf("artifact has %d tensors, architecture needs %d", len(byName), len(n.params))
	}
	for _, p := range n.params {
		t, ok := byName[p.name]
		if !ok {
			return nil, fmt.Errorf("artifact missing tensor %q", p.name)
		}
		if !sameShape(t.Shape, p.shape) || len(t.Values) != len(p.w) {
			return nil, fmt.Errorf("tensor %q shape %v, want %v", p.name, t.Shape, p.shape)
		}
		copy(p.w, t.Values)
	}
	n.epochs = a.Epochs
	return n, nil
}

// Architecture returns the network descriptor.
func (n *Network) Architecture() models.Architecture { return n.arch }

// Epochs returns the total number of epochs this network has been trained for.
func (n *Network) Epochs() int { return n.epochs }

// Artifact copies the current weights into a persistable artifact.
func (n *Network) Artifact(name string) *models.ModelArtifact {
	weights := make([]models.Tensor, len(n.params))
	for i, p := range n.params {
		vals := make([]float64, len(p.w))
		copy(vals, p.w)
		shape := make([]int, len(p.shape))
		copy(shape, p.shape)
		weights[i] = models.Tensor{Name: p.name, Shape: shape, Values: vals}
	}
	return &models.ModelArtifact{
		Name:         name,
		Architecture: n.arch,
		Weights:      weights,
		Epochs:       n.epochs,
		SavedAt:      time.Now().UTC(),
	}
}

// Summary reports mean and max absolute weight per tensor.
func (n *Network) Summary() []models.LayerSummary {
	out := make([]models.LayerSummary, len(n.params))
	for i, p := range n.params {
		var sum, maxAbs float64
		for _, w := range p.w {
			a := math.Abs(w)
			sum += a
			maxAbs = math.Max(maxAbs, a)
		}
		shape := make([]int, len(p.shape))
		copy(shape, p.shape)
		out[i] = models.LayerSummary{Name: p.name, Shape: shape, MeanAbs: sum / float64(len(p.w)), MaxAbs: maxAbs}
	}
	return out
}

// Snapshot captures a read-only view that stays valid while training continues.
func (n *Network) Snapshot() *Snapshot {
	return &Snapshot{arch: n.arch, layers: n.Summary(), epochs: n.epochs}
}

// Predict runs one forward pass. inputs is indexed [branch][step][feature].
func (n *Network) Predict(inputs [][][]float64) (float64, error) {
	if err := n.checkInputs(inputs); err != nil {
		return 0, err
	}
	p, err := n.forward(inputs)
	if err != nil {
		return 0, err
	}
	return p.out, nil
}

// pass keeps the intermediate values of one forward pass for backprop.
type pass struct {
	caches []*lstmCache
	xs     [][]float64 // input to each head layer
	pres   [][]float64 // pre-activation of each head layer
	out    float64
}

func (n *Network) forward(inputs [][][]float64) (*pass, error) {
	p := &pass{caches: make([]*lstmCache, len(n.branches))}
	concat := make([]float64, 0, len(n.branches)*n.arch.Units)
	for b, l := range n.branches {
		h, cache, err := l.forward(inputs[b])
		if err != nil {
			return nil, fmt.Errorf("branch %d: %w", b, err)
		}
		p.caches[b] = cache
		concat = append(concat, h...)
	}
	x := concat
	for _, d := range n.head {
		y, pre := d.forward(x)
		p.xs = append(p.xs, x)
		p.pres = append(p.pres, pre)
		x = y
	}
	p.out = x[0]
	return p, nil
}

func (n *Network) backward(p *pass, dOut float64) {
	dy := []float64{dOut}
	for i := len(n.head) - 1; i >= 0; i-- {
		dy = n.head[i].backward(p.xs[i], p.pres[i], dy)
	}
	H := n.arch.Units
	for b, l := range n.branches {
		l.backward(p.caches[b], dy[b*H:(b+1)*H])
	}
}

func (n *Network) checkInputs(inputs [][][]float64) error {
	if len(inputs) != n.arch.Branches {
		return fmt.Errorf("got %d branch inputs, want %d", len(inputs), n.arch.Branches)
	}
	for b, seq := range inputs {
		if len(seq) != n.arch.Lookback {
			return fmt.Errorf("branch %d has %d steps, want %d", b, len(seq), n.arch.Lookback)
		}
	}
	return nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Snapshot is an immutable ModelHandle.
type Snapshot struct {
	arch   models.Architecture
	layers []models.LayerSummary
	epochs int
}

func (s *Snapshot) Architecture() models.Architecture { return s.arch }
func (s *Snapshot) Summary() []models.LayerSummary    { return s.layers }
func (s *Snapshot) Epochs() int                        { return s.epochs }

var (
	_ models.ModelHandle = (*Network)(nil)
	_ models.ModelHandle = (*Snapshot)(nil)
)
