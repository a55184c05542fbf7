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
	"strings"
	"sync"
	"testing"
)

// callRecorder collects adapter invocations across goroutines.
type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *callRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func recordingAdapter(rec *callRecorder, name string, priority int, err error) Adapter {
	return NewAdapter(name, priority, false, func(ctx context.Context, phase Phase, ec *EventContext) error {
		rec.record(name)
		return err
	})
}

func TestRegistryExecutionOrder(t *testing.T) {
	rec := &callRecorder{}
	registry := NewRegistry()
	registry.Register(recordingAdapter(rec, "metrics", 50, nil))
	registry.Register(recordingAdapter(rec, "audit", 10, nil))
	registry.Register(recordingAdapter(rec, "cache", 30, nil))

	ec := NewEventContext("wf", 0)
	if err := registry.ExecutePhase(context.Background(), PhaseBeforeBegin, ec, false); err != nil {
		t.Fatalf("ExecutePhase() error: %v", err)
	}

	want := []string{"audit", "cache", "metrics"}
	got := rec.snapshot()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegistryPriorityTieBrokenByRegistrationOrder(t *testing.T) {
	rec := &callRecorder{}
	registry := NewRegistry()
	registry.Register(recordingAdapter(rec, "first", 10, nil))
	registry.Register(recordingAdapter(rec, "second", 10, nil))
	registry.Register(recordingAdapter(rec, "third", 10, nil))

	ec := NewEventContext("wf", 0)
	_ = registry.ExecutePhase(context.Background(), PhaseAfterBegin, ec, false)

	got := rec.snapshot()
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}
}

func TestRegistryReRegisterKeepsPosition(t *testing.T) {
	rec := &callRecorder{}
	registry := NewRegistry()
	registry.Register(recordingAdapter(rec, "a", 10, nil))
	registry.Register(recordingAdapter(rec, "b", 10, nil))
	// replace "a"; it must stay ahead of "b"
	registry.Register(recordingAdapter(rec, "a", 10, nil))

	if registry.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", registry.Len())
	}

	ec := NewEventContext("wf", 0)
	_ = registry.ExecutePhase(context.Background(), PhaseAfterBegin, ec, false)

	got := rec.snapshot()
	if got[0] != "a" || got[1] != "b" {
		t.Errorf("calls = %v, want [a b]", got)
	}
}

func TestRegistryFailFastStopsAtFirstError(t *testing.T) {
	rec := &callRecorder{}
	bang := errors.New("validation rejected")
	registry := NewRegistry()
	registry.Register(recordingAdapter(rec, "ok", 1, nil))
	registry.Register(recordingAdapter(rec, "broken", 2, bang))
	registry.Register(recordingAdapter(rec, "never", 3, nil))

	ec := NewEventContext("wf", 0)
	err := registry.ExecutePhase(context.Background(), PhaseBeforeCommitValidation, ec, true)

	if !errors.Is(err, bang) {
		t.Fatalf("ExecutePhase() = %v, want wrapped %v", err, bang)
	}
	if !strings.Contains(err.Error(), "broken") || !strings.Contains(err.Error(), "BEFORE_COMMIT_VALIDATION") {
		t.Errorf("error %q should name the adapter and the phase", err.Error())
	}

	got := rec.snapshot()
	if len(got) != 2 {
		t.Errorf("calls = %v, adapter after the failure must not run", got)
	}
}

func TestRegistryBestEffortContinuesPastErrors(t *testing.T) {
	rec := &callRecorder{}
	registry := NewRegistry()
	registry.Register(recordingAdapter(rec, "broken", 1, errors.New("boom")))
	registry.Register(recordingAdapter(rec, "critical-broken", 2, errors.New("boom")))
	registry.Register(NewAdapter("panicky", 3, false, func(ctx context.Context, phase Phase, ec *EventContext) error {
		rec.record("panicky")
		panic("adapter exploded")
	}))
	registry.Register(recordingAdapter(rec, "last", 4, nil))

	ec := NewEventContext("wf", 0)
	err := registry.ExecutePhase(context.Background(), PhaseAfterCommit, ec, false)

	if err != nil {
		t.Fatalf("best-effort phase returned error: %v", err)
	}
	if got := rec.snapshot(); len(got) != 4 || got[3] != "last" {
		t.Errorf("calls = %v, all adapters must run", got)
	}
}

func TestRegistryUnregister(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewAdapter("x", 0, false, nil))

	registry.Unregister("x")
	registry.Unregister("unknown") // no-op

	if registry.Len() != 0 {
		t.Errorf("Len() = %d after unregister, want 0", registry.Len())
	}
}

func TestRegistryReset(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewAdapter("x", 0, false, nil))
	registry.Register(NewAdapter("y", 0, false, nil))

	registry.Reset()

	if registry.Len() != 0 {
		t.Errorf("Len() = %d after reset, want 0", registry.Len())
	}
	if adapters := registry.Adapters(); len(adapters) != 0 {
		t.Errorf("Adapters() = %v after reset, want empty", adapters)
	}
}

func TestRegistryConcurrentRegisterAndExecute(t *testing.T) {
	registry := NewRegistry()
	ec := NewEventContext("wf", 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			registry.Register(NewAdapter(string(rune('a'+n)), n, false, nil))
		}(i)
		go func() {
			defer wg.Done()
			_ = registry.ExecutePhase(context.Background(), PhaseBeforeBegin, ec, false)
		}()
	}
	wg.Wait()

	if registry.Len() != 8 {
		t.Errorf("Len() = %d, want 8", registry.Len())
	}
}
