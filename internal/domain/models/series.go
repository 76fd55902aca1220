package models

import "time"

// Asset is one input to the multi-asset engine.
type Asset struct {
	Name      string
	Series    []float64
	Sentiment []float64 // per-headline scores, may be empty
}

// Window is one supervised example: lookback steps of features and the next value.
type Window struct {
	Input  [][]float64 // [lookback][features]
	Target float64
}

// Dataset is the ordered window set built from one series.
type Dataset struct {
	Windows  []Window
	Lookback int
	Features int
}

// Len returns the number of windows.
func (d Dataset) Len() int { return len(d.Windows) }

// Point is a digitized chart coordinate in canvas space (y grows downward).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Trade is a single market print from the live stream.
type Trade struct {
	Symbol    string
	Timestamp int64 // unix seconds
	Price     float64
	Volume    float64
}

// Candle represents an OHLCV record read from the feature store.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
