// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package txn

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector collects transaction manager metrics into Prometheus.
type MetricsCollector struct {
	attemptsTotal     *prometheus.CounterVec
	retriesTotal      prometheus.Counter
	timeoutsTotal     prometheus.Counter
	deadlocksTotal    prometheus.Counter
	inFlightGauge     prometheus.Gauge
	durationHistogram *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetricsCollector creates a metrics collector registered against the
// given registry. A nil registry creates a private one.
func NewMetricsCollector(namespace, subsystem string, registry *prometheus.Registry) (*MetricsCollector, error) {
	if namespace == "" {
		namespace = "txkit"
	}
	if subsystem == "" {
		subsystem = "txn"
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &MetricsCollector{registry: registry}

	c.attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "attempts_total",
			Help:      "Total number of transaction attempts by outcome",
		},
		[]string{"outcome"},
	)

	c.retriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "retries_total",
			Help:      "Total number of transaction retries",
		},
	)

	c.timeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "timeouts_total",
			Help:      "Total number of attempts that exceeded the configured timeout",
		},
	)

	c.deadlocksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "deadlocks_total",
			Help:      "Total number of vendor deadlock signals detected",
		},
	)

	c.inFlightGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "in_flight",
			Help:      "Number of transactions currently executing",
		},
	)

	c.durationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Duration of complete Transaction calls in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0},
		},
		[]string{"outcome"},
	)

	collectors := []prometheus.Collector{
		c.attemptsTotal,
		c.retriesTotal,
		c.timeoutsTotal,
		c.deadlocksTotal,
		c.inFlightGauge,
		c.durationHistogram,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return c, nil
}

// RecordStart marks a Transaction call as in flight.
func (c *MetricsCollector) RecordStart() {
	c.inFlightGauge.Inc()
}

// RecordCommit records a committed transaction.
func (c *MetricsCollector) RecordCommit(attempts int, duration time.Duration) {
	c.attemptsTotal.WithLabelValues("committed").Inc()
	c.durationHistogram.WithLabelValues("committed").Observe(duration.Seconds())
	c.inFlightGauge.Dec()
}

// RecordFailure records a transaction that exhausted its attempts or hit a
// permanent error.
func (c *MetricsCollector) RecordFailure(attempts int, duration time.Duration) {
	c.attemptsTotal.WithLabelValues("failed").Inc()
	c.durationHistogram.WithLabelValues("failed").Observe(duration.Seconds())
	c.inFlightGauge.Dec()
}

// RecordRollback records a rolled-back attempt.
func (c *MetricsCollector) RecordRollback() {
	c.attemptsTotal.WithLabelValues("rolled_back").Inc()
}

// RecordRetry records one retry.
func (c *MetricsCollector) RecordRetry() {
	c.retriesTotal.Inc()
}

// RecordTimeout records an attempt that exceeded its timeout.
func (c *MetricsCollector) RecordTimeout() {
	c.timeoutsTotal.Inc()
}

// RecordDeadlock records a detected deadlock signal.
func (c *MetricsCollector) RecordDeadlock() {
	c.deadlocksTotal.Inc()
}

// GetRegistry returns the Prometheus registry.
func (c *MetricsCollector) GetRegistry() *prometheus.Registry {
	return c.registry
}
