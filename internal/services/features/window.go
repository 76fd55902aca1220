package features

import (
	"fmt"

	"github.com/antonbeski0/Predflux/internal/domain/models"
)

// Build slices series into len(series)-lookback windows; window i covers
// series[i:i+lookback] and targets series[i+lookback]. Each step has one feature.
func Build(series []float64, lookback int) (models.Dataset, error) {
	if err := checkLength(len(series), lookback); err != nil {
		return models.Dataset{}, err
	}
	n := len(series) - lookback
	ds := models.Dataset{Windows: make([]models.Window, n), Lookback: lookback, Features: 1}
	for i := 0; i < n; i++ {
		in := make([][]float64, lookback)
		for t := 0; t < lookback; t++ {
			in[t] = []float64{series[i+t]}
		}
		ds.Windows[i] = models.Window{Input: in, Target: series[i+lookback]}
	}
	return ds, nil
}

// BuildWithSentiment is Build with every step carrying [price, avgSentiment].
// The same average is used for all steps and windows.
func BuildWithSentiment(series []float64, avgSentiment float64, lookback int) (models.Dataset, error) {
	if err := checkLength(len(series), lookback); err != nil {
		return models.Dataset{}, err
	}
	n := len(series) - lookback
	ds := models.Dataset{Windows: make([]models.Window, n), Lookback: lookback, Features: 2}
	for i := 0; i < n; i++ {
		in := make([][]float64, lookback)
		for t := 0; t < lookback; t++ {
			in[t] = []float64{series[i+t], avgSentiment}
		}
		ds.Windows[i] = models.Window{Input: in, Target: series[i+lookback]}
	}
	return ds, nil
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func checkLength(n, lookback int) error {
	if lookback < 1 {
		return fmt.Errorf("lookback %d must be positive: %w", lookback, models.ErrInsufficientData)
	}
	if n <= lookback {
		return fmt.Errorf("series length %d needs at least %d points: %w", n, lookback+1, models.ErrInsufficientData)
	}
	return nil
}
