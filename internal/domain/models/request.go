package models

import "time"

// SingleForecastRequest asks for a single-asset forecast. Exactly one of
// Values (raw prices) or Points (a traced chart) is used; Values wins.
type SingleForecastRequest struct {
	Values       []float64 `json:"values" validate:"required_without=Points"`
	Points       []Point   `json:"points" validate:"required_without=Values"`
	Lookback     int       `json:"lookback" default:"8" validate:"gte=1,lte=512"`
	Horizon      int       `json:"horizon" default:"20" validate:"gte=1,lte=1000"`
	ResetWeights bool      `json:"reset_weights"`
}

// AssetInput is one raw series of a multi-asset request.
type AssetInput struct {
	Name           string    `json:"name" validate:"required"`
	Values         []float64 `json:"values" validate:"required,min=2"`
	Sentiment      []float64 `json:"sentiment"`
	SentimentQuery string    `json:"sentiment_query"`
}

// MultiForecastRequest asks for a joint forecast over several assets.
type MultiForecastRequest struct {
	Assets       []AssetInput `json:"assets" validate:"required,min=1,max=16,dive"`
	Lookback     int          `json:"lookback" default:"60" validate:"gte=1,lte=512"`
	Horizon      int          `json:"horizon" default:"120" validate:"gte=1,lte=1000"`
	ResetWeights bool         `json:"reset_weights"`
}

// SymbolsForecastRequest forecasts live symbols from stored or streamed
// prices. Symbols are truncated to a common, most recent length.
type SymbolsForecastRequest struct {
	Symbols      []string `json:"symbols" validate:"required,min=1,max=16,dive,required"`
	Points       int      `json:"points" default:"240" validate:"gte=2,lte=10000"`
	Lookback     int      `json:"lookback" default:"60" validate:"gte=1,lte=512"`
	Horizon      int      `json:"horizon" default:"120" validate:"gte=1,lte=1000"`
	Sentiment    bool     `json:"sentiment"`
	ResetWeights bool     `json:"reset_weights"`
}

// Scale is the min-max range a series was normalized with.
type Scale struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// SingleForecastResult is a single-asset forecast. Prices is the
// denormalized rollout and is absent for traced charts.
type SingleForecastResult struct {
	JobID       string    `json:"job_id"`
	Model       string    `json:"model"`
	Lookback    int       `json:"lookback"`
	Horizon     int       `json:"horizon"`
	Predictions []float64 `json:"predictions"`
	Prices      []float64 `json:"prices,omitempty"`
	Scale       *Scale    `json:"scale,omitempty"`
	Warning     string    `json:"warning,omitempty"`
}

// AssetResult is one asset of a multi-asset forecast.
type AssetResult struct {
	Asset            string    `json:"asset"`
	Predictions      []float64 `json:"predictions"`
	Prices           []float64 `json:"prices"`
	Scale            Scale     `json:"scale"`
	AverageSentiment float64   `json:"average_sentiment"`
}

// MultiForecastResult is a multi-asset forecast.
type MultiForecastResult struct {
	JobID    string         `json:"job_id"`
	Model    string         `json:"model"`
	Lookback int            `json:"lookback"`
	Horizon  int            `json:"horizon"`
	Assets   []AssetResult  `json:"assets"`
	Skipped  []SkippedAsset `json:"skipped,omitempty"`
	Warning  string         `json:"warning,omitempty"`
}

// EventType tags messages on the events topic.
type EventType string

const (
	EventEpoch  EventType = "epoch"
	EventResult EventType = "result"
	EventFailed EventType = "failed"
)

// ForecastEvent is published to the events topic, keyed by job ID.
type ForecastEvent struct {
	Type   EventType `json:"type"`
	JobID  string    `json:"job_id"`
	Model  string    `json:"model"`
	Epoch  int       `json:"epoch,omitempty"`
	Epochs int       `json:"epochs,omitempty"`
	Loss   float64   `json:"loss,omitempty"`
	Result any       `json:"result,omitempty"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

// RequestKind selects the runner entry point for a queued request.
type RequestKind string

const (
	RequestSingle  RequestKind = "single"
	RequestMulti   RequestKind = "multi"
	RequestSymbols RequestKind = "symbols"
)

// ForecastJob is the envelope read from the requests topic.
type ForecastJob struct {
	JobID   string                  `json:"job_id"`
	Kind    RequestKind             `json:"kind"`
	Single  *SingleForecastRequest  `json:"single,omitempty"`
	Multi   *MultiForecastRequest   `json:"multi,omitempty"`
	Symbols *SymbolsForecastRequest `json:"symbols,omitempty"`
}
