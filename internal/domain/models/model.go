package models

import "time"

// Model slot names.
const (
	SingleAssetModel = "time-series-model"
	MultiAssetModel  = "multi-asset-time-series-model"
)

// Activation of a dense layer.
type Activation string

const (
	ActivationLinear Activation = "linear"
	ActivationReLU   Activation = "relu"
)

// DenseSpec describes one fully connected layer of the head.
type DenseSpec struct {
	Units      int        `json:"units"`
	Activation Activation `json:"activation"`
}

// Architecture is the serializable network descriptor: Branches recurrent
// branches of Units cells over [Lookback, InputDim] inputs, concatenated and
// fed through Head.
type Architecture struct {
	Branches int         `json:"branches"`
	Lookback int         `json:"lookback"`
	InputDim int         `json:"input_dim"`
	Units    int         `json:"units"`
	Head     []DenseSpec `json:"head"`
}

// Equal reports whether two descriptors produce the same parameter layout.
func (a Architecture) Equal(b Architecture) bool {
	if a.Branches != b.Branches || a.Lookback != b.Lookback || a.InputDim != b.InputDim || a.Units != b.Units {
		return false
	}
	if len(a.Head) != len(b.Head) {
		return false
	}
	for i := range a.Head {
		if a.Head[i] != b.Head[i] {
			return false
		}
	}
	return true
}

// Tensor is a named weight array in row-major order.
type Tensor struct {
	Name   string    `json:"name"`
	Shape  []int     `json:"shape"`
	Values []float64 `json:"values"`
}

// ModelArtifact is what the model store persists per slot.
type ModelArtifact struct {
	Name         string       `json:"name"`
	Architecture Architecture `json:"architecture"`
	Weights      []Tensor     `json:"weights"`
	Epochs       int          `json:"epochs"`
	SavedAt      time.Time    `json:"saved_at"`
}

// LayerSummary is the weight magnitude view of one tensor.
type LayerSummary struct {
	Name    string  `json:"name"`
	Shape   []int   `json:"shape"`
	MeanAbs float64 `json:"mean_abs"`
	MaxAbs  float64 `json:"max_abs"`
}

// ModelHandle is a read-only view of a trained network.
type ModelHandle interface {
	Architecture() Architecture
	Summary() []LayerSummary
}
