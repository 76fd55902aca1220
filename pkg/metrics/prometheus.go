package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	epochs    *prometheus.CounterVec
	loss      *prometheus.GaugeVec
	lastEpoch *prometheus.GaugeVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	storeOps  *prometheus.CounterVec
	lastPrice *prometheus.GaugeVec
	backend   string
}

// New registers the forecasting metrics on reg; nil means the default registry.
// backend labels store operations.
func New(reg prometheus.Registerer, backend string) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		backend: backend,
		epochs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predflux_training_epochs_total",
				Help: "Completed training epochs per model slot",
			},
			[]string{"model"},
		),
		loss: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "predflux_training_loss",
				Help: "Mean squared error of the last completed epoch",
			},
			[]string{"model"},
		),
		lastEpoch: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "predflux_training_epoch",
				Help: "Index of the last completed epoch in the current run",
			},
			[]string{"model"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predflux_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "predflux_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
		storeOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predflux_model_store_operations_total",
				Help: "Model store operations by backend and result",
			},
			[]string{"backend", "op", "result"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "predflux_last_price",
				Help: "Last live price for a symbol",
			},
			[]string{"symbol"},
		),
	}
}

// RecordEpoch records a completed epoch and its loss.
func (r *Recorder) RecordEpoch(model string, epoch int, loss float64) {
	r.epochs.WithLabelValues(model).Inc()
	r.loss.WithLabelValues(model).Set(loss)
	r.lastEpoch.WithLabelValues(model).Set(float64(epoch))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordStoreOp records a model store load or save.
func (r *Recorder) RecordStoreOp(op, result string) {
	r.storeOps.WithLabelValues(r.backend, op, result).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordEpoch(string, int, float64) {}
func (Nop) RecordError(string)               {}
func (Nop) RecordLatency(string, float64)    {}
func (Nop) RecordStoreOp(string, string)     {}
func (Nop) RecordLastPrice(string, float64)  {}
