package models

// EngineState is the lifecycle position of a forecast engine.
type EngineState string

const (
	StateIdle       EngineState = "idle"
	StatePreparing  EngineState = "preparing"
	StateCreating   EngineState = "creating"
	StateLoaded     EngineState = "loaded"
	StateTraining   EngineState = "training"
	StatePredicting EngineState = "predicting"
	StateDone       EngineState = "done"
	StateError      EngineState = "error"
)

// Phase distinguishes training progress from prediction progress.
type Phase string

const (
	PhaseTraining   Phase = "training"
	PhasePredicting Phase = "predicting"
)

// ProgressEvent is emitted after every epoch and every rollout step.
type ProgressEvent struct {
	Model  string      `json:"model"`
	Phase  Phase       `json:"phase"`
	Epoch  int         `json:"epoch,omitempty"`
	Epochs int         `json:"epochs,omitempty"`
	Loss   float64     `json:"loss,omitempty"`
	Step   int         `json:"step,omitempty"`
	Steps  int         `json:"steps,omitempty"`
	Asset  string      `json:"asset,omitempty"`
	Handle ModelHandle `json:"-"`
}

// AssetForecast holds the rollout for one asset, in normalized units.
type AssetForecast struct {
	Asset       string    `json:"asset"`
	Predictions []float64 `json:"predictions"`
}

// SkippedAsset records an asset excluded for being too short.
type SkippedAsset struct {
	Asset  string `json:"asset"`
	Length int    `json:"length"`
	Reason string `json:"reason"`
}

// MultiForecast is the multi-asset engine result.
type MultiForecast struct {
	Assets  []AssetForecast `json:"assets"`
	Skipped []SkippedAsset  `json:"skipped,omitempty"`
}
