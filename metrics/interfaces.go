// Package metrics provides interfaces and implementations for Prometheus-compatible metrics.
//
// The package supports two modes of operation:
//   - Scrape mode (status server): metrics are registered with a Prometheus
//     registry and exposed via HTTP.
//   - Push mode (presence client): metric values are kept locally and sent to a
//     VictoriaMetrics/Prometheus remote write endpoint on Flush.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Gauge is a metric that represents a single numerical value that can go up and down.
type Gauge interface {
	// Set sets the Gauge to the given value.
	Set(float64)
}

// Counter is a metric that represents a single monotonically increasing counter.
type Counter interface {
	// Inc increments the counter by 1.
	Inc()
	// Add adds the given value to the counter. It panics if the value is negative.
	Add(float64)
}

// CounterVec is a Counter with labels.
type CounterVec interface {
	// With returns the Counter for the given Labels.
	With(prometheus.Labels) Counter
}

// Registry creates and registers metrics.
// Implementations handle the differences between push and scrape modes.
type Registry interface {
	// NewGauge creates and registers a new Gauge.
	NewGauge(opts prometheus.GaugeOpts) (Gauge, error)

	// NewCounterVec creates and registers a new CounterVec.
	NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error)
}

// Discard is a Registry whose metrics record nothing.
var Discard Registry = discardRegistry{}

type discardRegistry struct{}

func (discardRegistry) NewGauge(prometheus.GaugeOpts) (Gauge, error) {
	return discardMetric{}, nil
}

func (discardRegistry) NewCounterVec(prometheus.CounterOpts, []string) (CounterVec, error) {
	return discardMetric{}, nil
}

type discardMetric struct{}

func (discardMetric) Set(float64)                     {}
func (discardMetric) Inc()                            {}
func (discardMetric) Add(float64)                     {}
func (discardMetric) With(prometheus.Labels) Counter { return discardMetric{} }
