package models

import "errors"

// Forecasting error taxonomy. Callers match with errors.Is; producers wrap
// with fmt.Errorf("...: %w", ErrX) to attach detail.
var (
	ErrDegenerateSeries = errors.New("degenerate series")
	ErrInvalidSeries    = errors.New("invalid series")
	ErrInvalidOptions   = errors.New("invalid options")
	ErrInsufficientData = errors.New("insufficient data")
	ErrDatasetAlignment = errors.New("dataset alignment")
	ErrPersistence      = errors.New("persistence failure")
	ErrModelMissing     = errors.New("model missing")
)
