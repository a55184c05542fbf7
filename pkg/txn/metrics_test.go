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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsCollectorDefaults(t *testing.T) {
	collector, err := NewMetricsCollector("", "", nil)
	if err != nil {
		t.Fatalf("NewMetricsCollector() error: %v", err)
	}
	if collector.GetRegistry() == nil {
		t.Error("GetRegistry() = nil, want a private registry")
	}
}

func TestNewMetricsCollectorDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	if _, err := NewMetricsCollector("txkit", "txn", registry); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := NewMetricsCollector("txkit", "txn", registry); err == nil {
		t.Error("second registration on the same registry should fail")
	}
}

func TestMetricsCollectorRecords(t *testing.T) {
	collector, err := NewMetricsCollector("txkit", "txn", nil)
	if err != nil {
		t.Fatalf("NewMetricsCollector() error: %v", err)
	}

	collector.RecordStart()
	collector.RecordStart()
	if got := testutil.ToFloat64(collector.inFlightGauge); got != 2 {
		t.Errorf("in_flight = %v, want 2", got)
	}

	collector.RecordCommit(1, 10*time.Millisecond)
	collector.RecordFailure(3, 50*time.Millisecond)
	if got := testutil.ToFloat64(collector.inFlightGauge); got != 0 {
		t.Errorf("in_flight = %v after commit+failure, want 0", got)
	}
	if got := testutil.ToFloat64(collector.attemptsTotal.WithLabelValues("committed")); got != 1 {
		t.Errorf("attempts_total{committed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.attemptsTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("attempts_total{failed} = %v, want 1", got)
	}

	collector.RecordRetry()
	collector.RecordRetry()
	collector.RecordTimeout()
	collector.RecordDeadlock()
	collector.RecordRollback()

	if got := testutil.ToFloat64(collector.retriesTotal); got != 2 {
		t.Errorf("retries_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.timeoutsTotal); got != 1 {
		t.Errorf("timeouts_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.deadlocksTotal); got != 1 {
		t.Errorf("deadlocks_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.attemptsTotal.WithLabelValues("rolled_back")); got != 1 {
		t.Errorf("attempts_total{rolled_back} = %v, want 1", got)
	}
}

func TestManagerRecordsMetrics(t *testing.T) {
	collector, err := NewMetricsCollector("txkit", "txn", nil)
	if err != nil {
		t.Fatalf("NewMetricsCollector() error: %v", err)
	}

	scopes := NewMemoryScopeFactory()
	manager := NewManager(scopes, WithMetrics(collector))

	attempts := 0
	_, err = manager.Transaction(context.Background(), "wf-metrics", fastRetryConfig(2),
		func(ctx context.Context, scope Scope) (interface{}, error) {
			attempts++
			if attempts == 1 {
				return nil, errors.New("connection reset")
			}
			return nil, nil
		})
	if err != nil {
		t.Fatalf("Transaction() error: %v", err)
	}

	if got := testutil.ToFloat64(collector.attemptsTotal.WithLabelValues("committed")); got != 1 {
		t.Errorf("attempts_total{committed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.attemptsTotal.WithLabelValues("rolled_back")); got != 1 {
		t.Errorf("attempts_total{rolled_back} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.retriesTotal); got != 1 {
		t.Errorf("retries_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.inFlightGauge); got != 0 {
		t.Errorf("in_flight = %v after completion, want 0", got)
	}
}
