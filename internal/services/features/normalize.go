package features

import (
	"fmt"
	"math"

	"github.com/antonbeski0/Predflux/internal/domain/models"
)

// Normalize min-max scales raw into [0,1], preserving order.
// A constant (or empty) series has no range and is rejected.
func Normalize(raw []float64) ([]float64, error) {
	s, err := NewScaler(raw)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = s.Transform(v)
	}
	return out, nil
}

// Scaler remembers the range a series was normalized with.
type Scaler struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// NewScaler fits a scaler to raw.
func NewScaler(raw []float64) (Scaler, error) {
	if len(raw) == 0 {
		return Scaler{}, fmt.Errorf("normalize empty series: %w", models.ErrDegenerateSeries)
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Scaler{}, fmt.Errorf("value %d is not finite: %w", i, models.ErrInvalidSeries)
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return Scaler{}, fmt.Errorf("max equals min (%g): %w", lo, models.ErrDegenerateSeries)
	}
	return Scaler{Min: lo, Max: hi}, nil
}

// Transform maps v into the normalized range.
func (s Scaler) Transform(v float64) float64 {
	return (v - s.Min) / (s.Max - s.Min)
}

// Inverse maps a normalized value back to source units.
func (s Scaler) Inverse(v float64) float64 {
	return s.Min + v*(s.Max-s.Min)
}

// InverseAll maps every value back to source units.
func (s Scaler) InverseAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.Inverse(v)
	}
	return out
}
